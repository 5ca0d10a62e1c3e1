package repository

import (
	"github.com/lvdashuaibi/pulsevote/internal/model"
)

// Ledger 投票账本接口
// MySQLRepository为生产实现，MemoryLedger供测试使用
// CommitVote是唯一改变候选人票数的路径，必须一次性写入
// 投票人记录、票数递增和活动事件三者，部分写入永远不可见
type Ledger interface {
	// 候选人
	ListCandidates() ([]*model.Candidate, error)
	GetCandidate(id string) (*model.Candidate, error)
	CreateCandidate(c *model.Candidate) error
	DeleteCandidate(id string) error

	// 投票人登记表的快照读
	ContactRegistered(contactKey string) (bool, error)
	NameTaken(nameKey string) (bool, error)
	VoterKeys() ([]string, error)

	// 原子提交：登记投票人 + 票数+1 + 追加活动事件
	// 提交时以唯一键为准重新校验去重，竞态下后提交者失败
	CommitVote(rec *model.VoterRecord, event *model.ActivityEvent) error

	// 活动流，读取方截断，写入方不截断
	RecentActivities(limit int) ([]*model.ActivityEvent, error)

	// 选举设置
	GetSettings() (*model.ElectionSettings, error)
	UpdatePhase(phase string) error
	UpdateBaseline(n int) error
	UpdateWinner(candidateID string) error

	// 管理批量清除：投票人、活动流、所有票数、基础票数
	ResetAll() error
}

var (
	_ Ledger = (*MySQLRepository)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
