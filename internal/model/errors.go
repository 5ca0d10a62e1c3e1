package model

import "errors"

// 投票提交的终态错误，每次提交只对外暴露其中一个
var (
	ErrVotingNotOpen     = errors.New("投票尚未开放")
	ErrAlreadyVoted      = errors.New("本机已提交过投票")
	ErrIncompleteName    = errors.New("姓名不完整，需要至少两个词")
	ErrInvalidContact    = errors.New("联系方式无效，不含任何数字")
	ErrDuplicateContact  = errors.New("该联系方式已投过票")
	ErrDuplicateName     = errors.New("该姓名已投过票")
	ErrCandidateNotFound = errors.New("候选人不存在")
	ErrCommitFailed      = errors.New("提交失败，可整体重试")
	ErrSettingsNotFound  = errors.New("选举设置不存在")
	ErrUnauthorized      = errors.New("管理口令错误")
	ErrInvalidBaseline   = errors.New("基础票数不能为负")
	ErrInvalidPhase      = errors.New("非法的选举阶段")
)

// 错误码，供API层向调用方透出
const (
	CodeVotingNotOpen     = "VOTING_NOT_OPEN"
	CodeAlreadyVoted      = "ALREADY_VOTED_LOCALLY"
	CodeIncompleteName    = "INCOMPLETE_NAME"
	CodeInvalidContact    = "INVALID_CONTACT"
	CodeDuplicateContact  = "DUPLICATE_CONTACT"
	CodeDuplicateName     = "DUPLICATE_NAME"
	CodeCandidateNotFound = "CANDIDATE_NOT_FOUND"
	CodeCommitFailed      = "COMMIT_FAILED"
	CodeOK                = "OK"
)

// ErrorCode 把终态错误映射为稳定的错误码，未知错误一律按提交失败处理
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrVotingNotOpen):
		return CodeVotingNotOpen
	case errors.Is(err, ErrAlreadyVoted):
		return CodeAlreadyVoted
	case errors.Is(err, ErrIncompleteName):
		return CodeIncompleteName
	case errors.Is(err, ErrInvalidContact):
		return CodeInvalidContact
	case errors.Is(err, ErrDuplicateContact):
		return CodeDuplicateContact
	case errors.Is(err, ErrDuplicateName):
		return CodeDuplicateName
	case errors.Is(err, ErrCandidateNotFound):
		return CodeCandidateNotFound
	default:
		return CodeCommitFailed
	}
}
