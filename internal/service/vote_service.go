package service

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/identity"
	"github.com/lvdashuaibi/pulsevote/internal/model"
	"github.com/lvdashuaibi/pulsevote/internal/realtime"
	"github.com/lvdashuaibi/pulsevote/internal/repository"
)

// 候选人记录在事件捕获时缺失名字的兜底展示名
const fallbackCandidateName = "Musharax"

// DedupReserver 跨实例去重快速预检，权威裁决在账本的提交事务里
type DedupReserver interface {
	ReserveVoter(contactKey, nameKey string) error
	ReleaseReservation(contactKey, nameKey string) error
}

// SnapshotCache 榜单与设置的快照缓存
type SnapshotCache interface {
	GetBoardCache() (*model.Board, bool, error)
	SetBoardCache(board *model.Board) error
	DeleteBoardCache() error
	GetSettingsCache() (*model.ElectionSettings, bool, error)
	SetSettingsCache(settings *model.ElectionSettings) error
	DeleteSettingsCache() error
}

// EventPublisher 把提交成功的事件广播给所有实例
type EventPublisher interface {
	PublishTallyEvent(event *model.TallyEvent) error
}

// VoteService 投票提交协调器
// 校验、去重预检与原子提交的编排，一次提交只产生一个终态结果
type VoteService struct {
	ledger   repository.Ledger
	reserver DedupReserver
	cache    SnapshotCache
	producer EventPublisher
	broker   *realtime.Broker
}

// NewVoteService 创建投票服务；reserver、cache、producer允许为nil（降级运行）
func NewVoteService(
	ledger repository.Ledger,
	reserver DedupReserver,
	cache SnapshotCache,
	producer EventPublisher,
	broker *realtime.Broker,
) *VoteService {
	return &VoteService{
		ledger:   ledger,
		reserver: reserver,
		cache:    cache,
		producer: producer,
		broker:   broker,
	}
}

// SubmitVote 提交一次投票
// 流程：阶段闸门 -> 本地标记闸门 -> 归一化 -> 读时预检 -> 占位 -> 原子提交 -> 广播
// 返回的响应总是可用的，错误码见model.ErrorCode
func (s *VoteService) SubmitVote(request *model.VoteRequest) (*model.VoteResponse, error) {
	// 阶段闸门：只有进行中的选举接受投票，拒绝时不产生任何写入
	settings, err := s.ledger.GetSettings()
	if err != nil {
		return s.failResponse(err), fmt.Errorf("读取选举设置失败: %w", err)
	}
	if settings.Phase != model.PhaseOngoing {
		return s.failResponse(model.ErrVotingNotOpen), model.ErrVotingNotOpen
	}

	// 客户端本地标记只是幂等缓存，被清掉的标记会落到提交时的权威裁决
	if request.PriorMarker != "" {
		return s.failResponse(model.ErrAlreadyVoted), model.ErrAlreadyVoted
	}

	// 归一化两条身份轴
	nameKey, err := identity.NormalizeName(request.RawName)
	if err != nil {
		return s.failResponse(err), err
	}
	contactKey, err := identity.NormalizeContact(request.RawContact)
	if err != nil {
		return s.failResponse(err), err
	}

	// 读时预检，只是避免无谓写入的优化，不是权威闸门
	if registered, err := s.ledger.ContactRegistered(contactKey); err != nil {
		return s.failResponse(err), fmt.Errorf("检查联系方式登记状态失败: %w", err)
	} else if registered {
		return s.failResponse(model.ErrDuplicateContact), model.ErrDuplicateContact
	}
	if taken, err := s.ledger.NameTaken(nameKey); err != nil {
		return s.failResponse(err), fmt.Errorf("检查姓名占用状态失败: %w", err)
	} else if taken {
		return s.failResponse(model.ErrDuplicateName), model.ErrDuplicateName
	}

	// 候选人存在性也先读一次，拿到活动流需要的展示名
	candidate, err := s.ledger.GetCandidate(request.CandidateID)
	if err != nil {
		return s.failResponse(err), err
	}
	candidateName := candidate.Name
	if candidateName == "" {
		candidateName = fallbackCandidateName
	}

	// 跨实例占位；占位服务不可用时降级放行，提交事务仍会裁决
	reserved := false
	if s.reserver != nil {
		if err := s.reserver.ReserveVoter(contactKey, nameKey); err != nil {
			switch err {
			case model.ErrDuplicateContact, model.ErrDuplicateName:
				return s.failResponse(err), err
			default:
				log.Printf("去重占位失败，降级依赖提交裁决: %v", err)
			}
		} else {
			reserved = true
		}
	}

	now := time.Now()
	record := &model.VoterRecord{
		ContactKey:  contactKey,
		NameKey:     nameKey,
		DisplayName: request.RawName,
		CandidateID: request.CandidateID,
		TimestampMs: now.UnixMilli(),
	}
	event := &model.ActivityEvent{
		ID:             uuid.NewString(),
		VoterFirstName: identity.DisplayToken(request.RawName),
		CandidateName:  candidateName,
		TimestampMs:    now.UnixMilli(),
	}

	// 原子提交：登记 + 票数+1 + 活动事件，三者全有或全无
	if err := s.ledger.CommitVote(record, event); err != nil {
		if reserved {
			// 占位随提交一起回滚，避免挡住后续重试
			if relErr := s.reserver.ReleaseReservation(contactKey, nameKey); relErr != nil {
				log.Printf("撤销去重占位失败: %v", relErr)
			}
		}
		return s.failResponse(err), err
	}

	// 提交已落账，之后的广播失败只影响到达速度，不影响正确性
	s.fanOut(&model.TallyEvent{
		Type:        model.EventVote,
		CandidateID: request.CandidateID,
		ContactKey:  contactKey,
		OccurredAt:  now,
	})

	return &model.VoteResponse{
		Success:   true,
		Code:      model.CodeOK,
		Message:   "投票成功",
		Marker:    request.CandidateID,
		Record:    record,
		Timestamp: now,
	}, nil
}

// fanOut 先尝试Kafka广播；广播失败时本实例直接失效缓存并通知本地订阅
func (s *VoteService) fanOut(event *model.TallyEvent) {
	if s.producer != nil {
		if err := s.producer.PublishTallyEvent(event); err == nil {
			return
		} else {
			log.Printf("发送计票事件到Kafka失败: %v，本地直接失效缓存", err)
		}
	}
	if err := s.HandleTallyEvent(event); err != nil {
		log.Printf("本地处理计票事件失败: %v", err)
	}
}

// HandleTallyEvent 处理计票事件（Kafka消费者回调）：失效缓存并通知订阅方
func (s *VoteService) HandleTallyEvent(event *model.TallyEvent) error {
	if s.cache != nil {
		if err := s.cache.DeleteBoardCache(); err != nil {
			log.Printf("处理计票事件删除榜单缓存失败: %v", err)
		}
		if event.Type == model.EventAdmin {
			if err := s.cache.DeleteSettingsCache(); err != nil {
				log.Printf("处理计票事件删除设置缓存失败: %v", err)
			}
		}
	}

	if s.broker != nil {
		switch event.Type {
		case model.EventVote:
			s.broker.Publish(realtime.TopicCandidates)
			s.broker.Publish(realtime.TopicActivity)
			s.broker.Publish(realtime.TopicVoters)
		case model.EventAdmin:
			s.broker.Publish(realtime.TopicCandidates)
			s.broker.Publish(realtime.TopicActivity)
			s.broker.Publish(realtime.TopicSettings)
			s.broker.Publish(realtime.TopicVoters)
		}
	}
	return nil
}

// Candidates 按创建顺序返回候选人
func (s *VoteService) Candidates() ([]*model.Candidate, error) {
	return s.ledger.ListCandidates()
}

// Candidate 查询单个候选人
func (s *VoteService) Candidate(id string) (*model.Candidate, error) {
	return s.ledger.GetCandidate(id)
}

// Activities 按时间倒序返回活动流，limit<=0时使用配置的默认窗口
func (s *VoteService) Activities(limit int) ([]*model.ActivityEvent, error) {
	if limit <= 0 {
		limit = config.AppConfig.Feed.RecentLimit
	}
	return s.ledger.RecentActivities(limit)
}

// Settings 缓存优先读取选举设置
func (s *VoteService) Settings() (*model.ElectionSettings, error) {
	if s.cache != nil {
		if settings, found, err := s.cache.GetSettingsCache(); err == nil && found {
			return settings, nil
		}
	}

	settings, err := s.ledger.GetSettings()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSettingsCache(settings); err != nil {
			log.Printf("回填设置缓存失败: %v", err)
		}
	}
	return settings, nil
}

// Board 缓存优先返回聚合视图，未命中时重建并回填
func (s *VoteService) Board() (*model.Board, error) {
	if s.cache != nil {
		if board, found, err := s.cache.GetBoardCache(); err == nil && found {
			return board, nil
		}
	}
	return s.RebuildBoard()
}

// RebuildBoard 从账本重建聚合视图并回填缓存
func (s *VoteService) RebuildBoard() (*model.Board, error) {
	candidates, err := s.ledger.ListCandidates()
	if err != nil {
		return nil, err
	}
	settings, err := s.ledger.GetSettings()
	if err != nil {
		return nil, err
	}

	board := ComputeBoard(candidates, settings)

	if s.cache != nil {
		if err := s.cache.SetBoardCache(board); err != nil {
			log.Printf("回填榜单缓存失败: %v", err)
		}
	}
	return board, nil
}

// VoterKeys 返回所有已投票的联系方式键
func (s *VoteService) VoterKeys() ([]string, error) {
	return s.ledger.VoterKeys()
}

// failResponse 失败响应，错误码与信息由终态错误决定
func (s *VoteService) failResponse(err error) *model.VoteResponse {
	return &model.VoteResponse{
		Success:   false,
		Code:      model.ErrorCode(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}
