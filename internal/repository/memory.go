package repository

import (
	"sort"
	"sync"

	"github.com/lvdashuaibi/pulsevote/internal/model"
)

// MemoryLedger 账本的进程内实现，语义与MySQL实现一致，测试专用
// 单把互斥锁保证CommitVote的全有或全无
type MemoryLedger struct {
	mu         sync.Mutex
	candidates []*model.Candidate
	voters     map[string]*model.VoterRecord // contactKey -> record
	names      map[string]string             // nameKey -> contactKey
	activities []*model.ActivityEvent
	settings   model.ElectionSettings
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		voters: make(map[string]*model.VoterRecord),
		names:  make(map[string]string),
		settings: model.ElectionSettings{
			Phase: model.PhaseUpcoming,
		},
	}
}

func (m *MemoryLedger) ListCandidates() ([]*model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Candidate, len(m.candidates))
	for i, c := range m.candidates {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

func (m *MemoryLedger) GetCandidate(id string) (*model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.candidates {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, model.ErrCandidateNotFound
}

func (m *MemoryLedger) CreateCandidate(c *model.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.candidates = append(m.candidates, &cp)
	return nil
}

func (m *MemoryLedger) DeleteCandidate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.candidates {
		if c.ID == id {
			m.candidates = append(m.candidates[:i], m.candidates[i+1:]...)
			return nil
		}
	}
	return model.ErrCandidateNotFound
}

func (m *MemoryLedger) ContactRegistered(contactKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.voters[contactKey]
	return ok, nil
}

func (m *MemoryLedger) NameTaken(nameKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.names[nameKey]
	return ok, nil
}

func (m *MemoryLedger) VoterKeys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.voters))
	for k := range m.voters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// CommitVote 与MySQL实现相同的裁决顺序：先两条去重轴，再候选人存在性
// 任何一步失败都不留下部分写入
func (m *MemoryLedger) CommitVote(rec *model.VoterRecord, event *model.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.voters[rec.ContactKey]; ok {
		return model.ErrDuplicateContact
	}
	if _, ok := m.names[rec.NameKey]; ok {
		return model.ErrDuplicateName
	}

	var candidate *model.Candidate
	for _, c := range m.candidates {
		if c.ID == rec.CandidateID {
			candidate = c
			break
		}
	}
	if candidate == nil {
		return model.ErrCandidateNotFound
	}

	recCp := *rec
	eventCp := *event
	m.voters[rec.ContactKey] = &recCp
	m.names[rec.NameKey] = rec.ContactKey
	candidate.Votes++
	m.activities = append(m.activities, &eventCp)
	return nil
}

func (m *MemoryLedger) RecentActivities(limit int) ([]*model.ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.ActivityEvent, len(m.activities))
	for i, e := range m.activities {
		cp := *e
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs > out[j].TimestampMs
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryLedger) GetSettings() (*model.ElectionSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := m.settings
	return &cp, nil
}

func (m *MemoryLedger) UpdatePhase(phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.Phase = phase
	return nil
}

func (m *MemoryLedger) UpdateBaseline(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.BaselineTotal = n
	return nil
}

func (m *MemoryLedger) UpdateWinner(candidateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.WinnerID = candidateID
	return nil
}

func (m *MemoryLedger) ResetAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.voters = make(map[string]*model.VoterRecord)
	m.names = make(map[string]string)
	m.activities = nil
	for _, c := range m.candidates {
		c.Votes = 0
	}
	m.settings.BaselineTotal = 0
	return nil
}
