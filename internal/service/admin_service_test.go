package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/pulsevote/config"
	"github.com/lvdashuaibi/pulsevote/internal/model"
	"github.com/lvdashuaibi/pulsevote/internal/repository"
)

const testPasscode = "22lp"

func newTestAdminService(t *testing.T) (*AdminService, *repository.MemoryLedger) {
	t.Helper()
	config.AppConfig.Admin.Passcode = testPasscode

	ledger := repository.NewMemoryLedger()
	vote := NewVoteService(ledger, nil, nil, nil, nil)
	admin := NewAdminService(ledger, nil, nil, nil, vote, nil)
	return admin, ledger
}

func TestAdminLogin(t *testing.T) {
	admin, _ := newTestAdminService(t)

	assert.True(t, admin.Login(testPasscode))
	assert.False(t, admin.Login("wrong"))
	assert.False(t, admin.Login(""))
}

// 未配置口令时一律拒绝，空配置不等于免登录
func TestAdminLoginEmptyConfigured(t *testing.T) {
	admin, _ := newTestAdminService(t)
	config.AppConfig.Admin.Passcode = ""
	defer func() { config.AppConfig.Admin.Passcode = testPasscode }()

	assert.False(t, admin.Login(""))
	assert.False(t, admin.Login("anything"))
}

func TestAdminSetPhase(t *testing.T) {
	admin, ledger := newTestAdminService(t)

	require.NoError(t, admin.SetPhase(testPasscode, model.PhaseOngoing))
	settings, err := ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseOngoing, settings.Phase)

	// 已结束的选举可以重新打开
	require.NoError(t, admin.SetPhase(testPasscode, model.PhaseEnded))
	require.NoError(t, admin.SetPhase(testPasscode, model.PhaseOngoing))
	settings, err = ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseOngoing, settings.Phase)

	assert.ErrorIs(t, admin.SetPhase(testPasscode, "paused"), model.ErrInvalidPhase)
	assert.ErrorIs(t, admin.SetPhase("wrong", model.PhaseEnded), model.ErrUnauthorized)
}

func TestAdminSetBaselineTotal(t *testing.T) {
	admin, ledger := newTestAdminService(t)

	require.NoError(t, admin.SetBaselineTotal(testPasscode, 43))
	settings, err := ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 43, settings.BaselineTotal)

	require.NoError(t, admin.SetBaselineTotal(testPasscode, 0))
	assert.ErrorIs(t, admin.SetBaselineTotal(testPasscode, -1), model.ErrInvalidBaseline)
	assert.ErrorIs(t, admin.SetBaselineTotal("wrong", 10), model.ErrUnauthorized)
}

func TestAdminSetWinner(t *testing.T) {
	admin, ledger := newTestAdminService(t)
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c1", Name: "Eleanor Vance"}))

	require.NoError(t, admin.SetWinner(testPasscode, "c1"))
	settings, err := ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "c1", settings.WinnerID)

	// 空字符串清除获胜者
	require.NoError(t, admin.SetWinner(testPasscode, ""))
	settings, err = ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "", settings.WinnerID)

	assert.ErrorIs(t, admin.SetWinner(testPasscode, "missing"), model.ErrCandidateNotFound)
	assert.ErrorIs(t, admin.SetWinner("wrong", "c1"), model.ErrUnauthorized)
}

func TestAdminAddCandidate(t *testing.T) {
	admin, ledger := newTestAdminService(t)

	candidate, err := admin.AddCandidate(testPasscode, "Sari Nakamoto", "bio", "")
	require.NoError(t, err)
	assert.NotEmpty(t, candidate.ID)
	assert.Equal(t, 0, candidate.Votes)
	assert.Equal(t, DefaultAvatarRef, candidate.ImageRef)

	stored, err := ledger.GetCandidate(candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sari Nakamoto", stored.Name)

	_, err = admin.AddCandidate(testPasscode, "", "bio", "")
	assert.Error(t, err)

	_, err = admin.AddCandidate("wrong", "Any Name", "", "")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAdminRemoveCandidate(t *testing.T) {
	admin, ledger := newTestAdminService(t)
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c1", Name: "Eleanor Vance"}))

	require.NoError(t, admin.RemoveCandidate(testPasscode, "c1"))
	_, err := ledger.GetCandidate("c1")
	assert.ErrorIs(t, err, model.ErrCandidateNotFound)

	assert.ErrorIs(t, admin.RemoveCandidate(testPasscode, "c1"), model.ErrCandidateNotFound)
	assert.ErrorIs(t, admin.RemoveCandidate("wrong", "c1"), model.ErrUnauthorized)
}

// 删除当前获胜者时获胜者声明一并清除，设置里不留悬挂引用
func TestAdminRemoveCandidateClearsWinner(t *testing.T) {
	admin, ledger := newTestAdminService(t)
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c1", Name: "Eleanor Vance"}))
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c2", Name: "Kaelen Thorne"}))
	require.NoError(t, admin.SetWinner(testPasscode, "c1"))

	require.NoError(t, admin.RemoveCandidate(testPasscode, "c1"))

	settings, err := ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "", settings.WinnerID)

	// 删除其他候选人不影响获胜者声明
	require.NoError(t, admin.SetWinner(testPasscode, "c2"))
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c3", Name: "Sari Nakamoto"}))
	require.NoError(t, admin.RemoveCandidate(testPasscode, "c3"))

	settings, err = ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "c2", settings.WinnerID)
}

func TestAdminResetAll(t *testing.T) {
	admin, ledger := newTestAdminService(t)
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c1", Name: "Eleanor Vance", CreatedAt: time.Now()}))
	require.NoError(t, ledger.UpdatePhase(model.PhaseOngoing))
	require.NoError(t, ledger.UpdateBaseline(43))
	require.NoError(t, ledger.UpdateWinner("c1"))
	require.NoError(t, ledger.CommitVote(
		&model.VoterRecord{ContactKey: "611111111", NameKey: "ali ahmed", DisplayName: "Ali Ahmed", CandidateID: "c1", TimestampMs: time.Now().UnixMilli()},
		&model.ActivityEvent{ID: "e1", VoterFirstName: "Ali", CandidateName: "Eleanor Vance", TimestampMs: time.Now().UnixMilli()},
	))

	require.NoError(t, admin.ResetAll(testPasscode))

	keys, err := ledger.VoterKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	activities, err := ledger.RecentActivities(100)
	require.NoError(t, err)
	assert.Empty(t, activities)

	candidate, err := ledger.GetCandidate("c1")
	require.NoError(t, err)
	assert.Equal(t, 0, candidate.Votes)

	settings, err := ledger.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 0, settings.BaselineTotal)
	// 阶段与获胜者不在重置范围内
	assert.Equal(t, model.PhaseOngoing, settings.Phase)
	assert.Equal(t, "c1", settings.WinnerID)

	// 重置后同一身份可以重新投票
	require.NoError(t, ledger.CommitVote(
		&model.VoterRecord{ContactKey: "611111111", NameKey: "ali ahmed", DisplayName: "Ali Ahmed", CandidateID: "c1", TimestampMs: time.Now().UnixMilli()},
		&model.ActivityEvent{ID: "e2", VoterFirstName: "Ali", CandidateName: "Eleanor Vance", TimestampMs: time.Now().UnixMilli()},
	))

	assert.ErrorIs(t, admin.ResetAll("wrong"), model.ErrUnauthorized)
}
