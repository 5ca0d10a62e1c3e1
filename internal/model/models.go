package model

import (
	"time"
)

// 选举阶段
const (
	PhaseUpcoming = "upcoming"
	PhaseOngoing  = "ongoing"
	PhaseEnded    = "ended"
)

// ValidPhase 判断阶段取值是否合法
func ValidPhase(phase string) bool {
	switch phase {
	case PhaseUpcoming, PhaseOngoing, PhaseEnded:
		return true
	}
	return false
}

// Candidate 候选人模型，票数只允许通过投票提交的原子递增修改
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	ImageRef  string    `json:"imageRef"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoterRecord 投票人记录，以归一化联系方式为主键，一个联系方式只存在一条记录
type VoterRecord struct {
	ContactKey  string `json:"contactKey"`
	NameKey     string `json:"nameKey"`
	DisplayName string `json:"displayName"`
	CandidateID string `json:"candidateId"`
	TimestampMs int64  `json:"timestampMs"`
}

// ActivityEvent 活动流事件，写入后不再修改，展示时按时间倒序截断
type ActivityEvent struct {
	ID             string `json:"id"`
	VoterFirstName string `json:"userName"`
	CandidateName  string `json:"candidateName"`
	TimestampMs    int64  `json:"timestamp"`
}

// ElectionSettings 选举设置单例，只由管理面修改
type ElectionSettings struct {
	Phase         string `json:"phase"`
	BaselineTotal int    `json:"baselineTotal"`
	WinnerID      string `json:"winnerCandidateId,omitempty"`
}

// VoteRequest 投票请求
// PriorMarker 为客户端本地"我已投过票"标记的回传，仅作为幂等防护的第一道闸
type VoteRequest struct {
	CandidateID string `json:"candidateId"`
	RawName     string `json:"name"`
	RawContact  string `json:"contact"`
	PriorMarker string `json:"priorMarker,omitempty"`
}

// VoteResponse 投票响应
// Marker 在提交成功后由客户端持久化为本地标记
type VoteResponse struct {
	Success   bool         `json:"success"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Marker    string       `json:"marker,omitempty"`
	Record    *VoterRecord `json:"record,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// 事件类型
const (
	EventVote  = "vote"
	EventAdmin = "admin"
)

// TallyEvent Kafka事件，投票提交或管理变更成功后广播给所有实例
type TallyEvent struct {
	Type        string    `json:"type"`
	CandidateID string    `json:"candidateId,omitempty"`
	ContactKey  string    `json:"contactKey,omitempty"`
	Action      string    `json:"action,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Board 聚合视图，纯推导，不持有状态
type Board struct {
	TotalVotes int          `json:"totalVotes"`
	Phase      string       `json:"phase"`
	WinnerID   string       `json:"winnerCandidateId,omitempty"`
	Ranking    []BoardEntry `json:"ranking"`
}

// BoardEntry 榜单条目
type BoardEntry struct {
	Rank       int       `json:"rank"`
	Candidate  Candidate `json:"candidate"`
	Percentage int       `json:"percentage"`
}
