package graph

import (
	"fmt"
	"testing"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/pulsevote/internal/model"
	"github.com/lvdashuaibi/pulsevote/internal/repository"
	"github.com/lvdashuaibi/pulsevote/internal/service"
)

// unreachableLedger 模拟账本临时不可用的测试替身
type unreachableLedger struct {
	*repository.MemoryLedger
}

func (l *unreachableLedger) GetCandidate(id string) (*model.Candidate, error) {
	return nil, fmt.Errorf("查询候选人失败: %w", fmt.Errorf("connection refused"))
}

// 候选人不存在时返回null，不报错
func TestResolverCandidateMissing(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	resolver := NewResolver(service.NewVoteService(ledger, nil, nil, nil, nil), nil)

	result, err := resolver.Candidate(struct{ ID graphql.ID }{ID: "missing"})

	require.NoError(t, err)
	assert.Nil(t, result)
}

// 账本故障与候选人不存在是两种结果：故障必须上抛，不能伪装成null
func TestResolverCandidateLedgerFailure(t *testing.T) {
	ledger := &unreachableLedger{MemoryLedger: repository.NewMemoryLedger()}
	resolver := NewResolver(service.NewVoteService(ledger, nil, nil, nil, nil), nil)

	result, err := resolver.Candidate(struct{ ID graphql.ID }{ID: "c1"})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestResolverCandidateFound(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	require.NoError(t, ledger.CreateCandidate(&model.Candidate{ID: "c1", Name: "Eleanor Vance", Votes: 3}))
	resolver := NewResolver(service.NewVoteService(ledger, nil, nil, nil, nil), nil)

	result, err := resolver.Candidate(struct{ ID graphql.ID }{ID: "c1"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, graphql.ID("c1"), result.ID())
	assert.Equal(t, "Eleanor Vance", result.Name())
	assert.Equal(t, int32(3), result.Votes())
}
