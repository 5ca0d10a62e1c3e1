package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lvdashuaibi/pulsevote/internal/model"
)

func TestComputeBoardTotals(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Name: "Eleanor Vance", Votes: 5},
		{ID: "c2", Name: "Kaelen Thorne", Votes: 3},
	}
	settings := &model.ElectionSettings{Phase: model.PhaseOngoing, BaselineTotal: 43}

	board := ComputeBoard(candidates, settings)

	assert.Equal(t, 51, board.TotalVotes)
	assert.Equal(t, model.PhaseOngoing, board.Phase)
}

func TestComputeBoardRanking(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Name: "Eleanor Vance", Votes: 2},
		{ID: "c2", Name: "Kaelen Thorne", Votes: 7},
		{ID: "c3", Name: "Sari Nakamoto", Votes: 1},
	}
	board := ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseOngoing})

	assert.Equal(t, "c2", board.Ranking[0].Candidate.ID)
	assert.Equal(t, "c1", board.Ranking[1].Candidate.ID)
	assert.Equal(t, "c3", board.Ranking[2].Candidate.ID)
	assert.Equal(t, 1, board.Ranking[0].Rank)
	assert.Equal(t, 3, board.Ranking[2].Rank)
}

// 同票的候选人保持创建时的相对顺序
func TestComputeBoardStableTies(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Name: "Eleanor Vance", Votes: 4},
		{ID: "c2", Name: "Kaelen Thorne", Votes: 4},
		{ID: "c3", Name: "Sari Nakamoto", Votes: 4},
	}
	board := ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseOngoing})

	assert.Equal(t, "c1", board.Ranking[0].Candidate.ID)
	assert.Equal(t, "c2", board.Ranking[1].Candidate.ID)
	assert.Equal(t, "c3", board.Ranking[2].Candidate.ID)
}

func TestComputeBoardPercentages(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Votes: 1},
		{ID: "c2", Votes: 2},
	}
	board := ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseOngoing})

	// 1/3 -> 33，2/3 -> 67（四舍五入）
	assert.Equal(t, 67, board.Ranking[0].Percentage)
	assert.Equal(t, 33, board.Ranking[1].Percentage)
}

// 票数全为0时占比一律为0，基础票数不参与占比计算
func TestComputeBoardZeroSum(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Votes: 0},
		{ID: "c2", Votes: 0},
	}
	board := ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseUpcoming, BaselineTotal: 43})

	assert.Equal(t, 43, board.TotalVotes)
	for _, entry := range board.Ranking {
		assert.Equal(t, 0, entry.Percentage)
	}
}

func TestComputeBoardEmpty(t *testing.T) {
	board := ComputeBoard(nil, &model.ElectionSettings{Phase: model.PhaseUpcoming})

	assert.Equal(t, 0, board.TotalVotes)
	assert.Empty(t, board.Ranking)
}

// 获胜者只透传设置里的值，票数最高也不会被推断为获胜者
func TestComputeBoardWinnerPassthrough(t *testing.T) {
	candidates := []*model.Candidate{
		{ID: "c1", Votes: 100},
		{ID: "c2", Votes: 1},
	}

	board := ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseEnded})
	assert.Equal(t, "", board.WinnerID)

	board = ComputeBoard(candidates, &model.ElectionSettings{Phase: model.PhaseEnded, WinnerID: "c2"})
	assert.Equal(t, "c2", board.WinnerID)
}
