package snapshot

import (
	"log"
	"time"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/lock"
	"github.com/lvdashuaibi/pulsevote/internal/service"
)

const (
	RefresherLockName = "board:refresher:lock"
)

// SnapshotService 榜单快照刷新器
// 多实例部署时只有持锁的实例真正刷新，其余实例只读缓存
// 即使没有任何提交，快照也会周期性地从账本重建一次，对冲缓存漂移
type SnapshotService struct {
	voteService *service.VoteService
	locker      lock.Lock
	ticker      *time.Ticker
	stopChan    chan struct{}
	isRefresher bool // 标识该实例是否为快照刷新者
}

func NewSnapshotService(voteService *service.VoteService, locker lock.Lock, isRefresher bool) *SnapshotService {
	return &SnapshotService{
		voteService: voteService,
		locker:      locker,
		stopChan:    make(chan struct{}),
		isRefresher: isRefresher,
	}
}

// Start 启动刷新循环；非刷新者实例也启动定时器，但抢不到锁就跳过
func (s *SnapshotService) Start() {
	interval := config.AppConfig.Election.SnapshotInterval
	s.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.refresh()
			case <-s.stopChan:
				s.ticker.Stop()
				log.Println("榜单快照刷新器已停止")
				return
			}
		}
	}()
}

// Stop 停止刷新循环
func (s *SnapshotService) Stop() {
	close(s.stopChan)
	if s.isRefresher && s.locker != nil {
		s.locker.ReleaseLock(RefresherLockName)
	}
}

// refresh 抢到刷新锁后从账本重建快照并回填缓存
func (s *SnapshotService) refresh() {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(RefresherLockName, config.AppConfig.Election.LockTimeout)
		if err != nil {
			log.Printf("获取快照刷新锁失败: %v", err)
			return
		}
		if !acquired {
			// 锁在别的实例手里，本轮跳过
			return
		}
		s.isRefresher = true
		defer func() {
			if err := s.locker.ReleaseLock(RefresherLockName); err != nil {
				log.Printf("释放快照刷新锁失败: %v", err)
			}
		}()
	}

	if _, err := s.voteService.RebuildBoard(); err != nil {
		log.Printf("重建榜单快照失败: %v", err)
		return
	}
	if _, err := s.voteService.Settings(); err != nil {
		log.Printf("刷新设置快照失败: %v", err)
	}
}
