package service

import (
	"sort"

	"github.com/lvdashuaibi/pulsevote/internal/model"
)

// ComputeBoard 纯推导聚合视图，不持有任何状态
// 总票数 = 基础票数 + 候选人票数之和
// 排名按票数降序，同票保持候选人创建顺序
// 占比按候选人票数之和计算，和为0时一律为0
// 获胜者只透传管理员钦定的值，从不由排名推断
func ComputeBoard(candidates []*model.Candidate, settings *model.ElectionSettings) *model.Board {
	sum := 0
	for _, c := range candidates {
		sum += c.Votes
	}

	ranked := make([]*model.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})

	board := &model.Board{
		TotalVotes: settings.BaselineTotal + sum,
		Phase:      settings.Phase,
		WinnerID:   settings.WinnerID,
		Ranking:    make([]model.BoardEntry, len(ranked)),
	}

	for i, c := range ranked {
		pct := 0
		if sum > 0 {
			pct = int(float64(c.Votes)/float64(sum)*100 + 0.5)
		}
		board.Ranking[i] = model.BoardEntry{
			Rank:       i + 1,
			Candidate:  *c,
			Percentage: pct,
		}
	}

	return board
}
