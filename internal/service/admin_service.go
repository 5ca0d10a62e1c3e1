package service

import (
	"crypto/subtle"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/lock"
	"github.com/lvdashuaibi/pulsevote/internal/model"
	"github.com/lvdashuaibi/pulsevote/internal/repository"
)

const (
	// 管理重置的互斥锁名
	ResetLockName = "admin:reset:lock"

	// 未上传头像时的默认头像
	DefaultAvatarRef = "https://api.dicebear.com/7.x/avataaars/svg?seed=Felix&skinColor=614335&topType=shortHair&hairColor=2c1b18"
)

// ReservationCleaner 管理重置时清空去重占位集合
type ReservationCleaner interface {
	ClearReservations() error
}

// AdminService 管理控制面：生命周期切换、基础票数、获胜者、候选人名册与批量重置
// 口令是静态共享密钥，只适用于低风险场景
type AdminService struct {
	ledger   repository.Ledger
	cache    SnapshotCache
	cleaner  ReservationCleaner
	producer EventPublisher
	vote     *VoteService
	locker   lock.Lock
}

// NewAdminService 创建管理服务；cache、cleaner、producer、locker允许为nil
func NewAdminService(
	ledger repository.Ledger,
	cache SnapshotCache,
	cleaner ReservationCleaner,
	producer EventPublisher,
	vote *VoteService,
	locker lock.Lock,
) *AdminService {
	return &AdminService{
		ledger:   ledger,
		cache:    cache,
		cleaner:  cleaner,
		producer: producer,
		vote:     vote,
		locker:   locker,
	}
}

// Login 校验管理口令
func (s *AdminService) Login(passcode string) bool {
	expected := config.AppConfig.Admin.Passcode
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(passcode), []byte(expected)) == 1
}

func (s *AdminService) authorize(passcode string) error {
	if !s.Login(passcode) {
		return model.ErrUnauthorized
	}
	return nil
}

// SetPhase 切换选举阶段，管理员可以在任意阶段之间切换（包括从已结束重新打开）
func (s *AdminService) SetPhase(passcode, phase string) error {
	if err := s.authorize(passcode); err != nil {
		return err
	}
	if !model.ValidPhase(phase) {
		return model.ErrInvalidPhase
	}
	if err := s.ledger.UpdatePhase(phase); err != nil {
		return err
	}
	s.fanOutAdmin("set-phase")
	log.Printf("选举阶段已切换为 %s", phase)
	return nil
}

// SetBaselineTotal 设置基础票数
func (s *AdminService) SetBaselineTotal(passcode string, n int) error {
	if err := s.authorize(passcode); err != nil {
		return err
	}
	if n < 0 {
		return model.ErrInvalidBaseline
	}
	if err := s.ledger.UpdateBaseline(n); err != nil {
		return err
	}
	s.fanOutAdmin("set-baseline")
	return nil
}

// SetWinner 钦定获胜者，空字符串表示清除
// 获胜者是管理员手工声明的字段，与实时排名可以合理地不一致
func (s *AdminService) SetWinner(passcode, candidateID string) error {
	if err := s.authorize(passcode); err != nil {
		return err
	}
	if candidateID != "" {
		if _, err := s.ledger.GetCandidate(candidateID); err != nil {
			return err
		}
	}
	if err := s.ledger.UpdateWinner(candidateID); err != nil {
		return err
	}
	s.fanOutAdmin("set-winner")
	return nil
}

// AddCandidate 新增候选人，票数从0开始，缺省头像用默认头像
func (s *AdminService) AddCandidate(passcode, name, bio, imageRef string) (*model.Candidate, error) {
	if err := s.authorize(passcode); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("候选人名字不能为空")
	}
	if imageRef == "" {
		imageRef = DefaultAvatarRef
	}

	candidate := &model.Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Bio:       bio,
		ImageRef:  imageRef,
		Votes:     0,
		CreatedAt: time.Now(),
	}
	if err := s.ledger.CreateCandidate(candidate); err != nil {
		return nil, err
	}
	s.fanOutAdmin("add-candidate")
	return candidate, nil
}

// RemoveCandidate 删除候选人，历史活动事件保留原候选人名字不回填
// 被删除的候选人是当前获胜者时一并清除获胜者，设置里不允许悬挂引用
func (s *AdminService) RemoveCandidate(passcode, id string) error {
	if err := s.authorize(passcode); err != nil {
		return err
	}
	if err := s.ledger.DeleteCandidate(id); err != nil {
		return err
	}

	settings, err := s.ledger.GetSettings()
	if err != nil {
		log.Printf("删除候选人后读取选举设置失败: %v", err)
	} else if settings.WinnerID == id {
		if err := s.ledger.UpdateWinner(""); err != nil {
			log.Printf("清除获胜者失败: %v", err)
		}
	}

	s.fanOutAdmin("remove-candidate")
	return nil
}

// ResetAll 批量重置：清空投票人与活动流、所有票数与基础票数归零、清空去重占位
// 整个批次在分布式锁内执行，避免与并发重置互相交叠
func (s *AdminService) ResetAll(passcode string) error {
	if err := s.authorize(passcode); err != nil {
		return err
	}

	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ResetLockName, config.AppConfig.Election.LockTimeout)
		if err != nil {
			return fmt.Errorf("获取重置锁失败: %w", err)
		}
		if !acquired {
			return fmt.Errorf("重置操作正在进行中")
		}
		defer func() {
			if err := s.locker.ReleaseLock(ResetLockName); err != nil {
				log.Printf("释放重置锁失败: %v", err)
			}
		}()
	}

	if err := s.ledger.ResetAll(); err != nil {
		return err
	}

	if s.cleaner != nil {
		if err := s.cleaner.ClearReservations(); err != nil {
			log.Printf("清空去重占位失败: %v", err)
		}
	}

	s.fanOutAdmin("reset-all")
	log.Printf("管理批量重置已完成")
	return nil
}

// fanOutAdmin 管理变更广播，Kafka不可用时退回本地失效
func (s *AdminService) fanOutAdmin(action string) {
	event := &model.TallyEvent{
		Type:       model.EventAdmin,
		Action:     action,
		OccurredAt: time.Now(),
	}
	if s.producer != nil {
		if err := s.producer.PublishTallyEvent(event); err == nil {
			return
		} else {
			log.Printf("发送管理事件到Kafka失败: %v，本地直接失效缓存", err)
		}
	}
	if s.vote != nil {
		if err := s.vote.HandleTallyEvent(event); err != nil {
			log.Printf("本地处理管理事件失败: %v", err)
		}
	}
}
