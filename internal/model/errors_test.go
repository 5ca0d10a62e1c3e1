package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{nil, CodeOK},
		{ErrVotingNotOpen, CodeVotingNotOpen},
		{ErrAlreadyVoted, CodeAlreadyVoted},
		{ErrIncompleteName, CodeIncompleteName},
		{ErrInvalidContact, CodeInvalidContact},
		{ErrDuplicateContact, CodeDuplicateContact},
		{ErrDuplicateName, CodeDuplicateName},
		{ErrCandidateNotFound, CodeCandidateNotFound},
		{ErrCommitFailed, CodeCommitFailed},
		{errors.New("unknown"), CodeCommitFailed},
	}

	for _, c := range cases {
		assert.Equal(t, c.code, ErrorCode(c.err))
	}
}

// 包装后的错误仍然映射到同一个错误码
func TestErrorCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: Duplicate entry '611' for key 'PRIMARY'", ErrDuplicateContact)
	assert.Equal(t, CodeDuplicateContact, ErrorCode(wrapped))
}

func TestValidPhase(t *testing.T) {
	assert.True(t, ValidPhase(PhaseUpcoming))
	assert.True(t, ValidPhase(PhaseOngoing))
	assert.True(t, ValidPhase(PhaseEnded))
	assert.False(t, ValidPhase("paused"))
	assert.False(t, ValidPhase(""))
}
