package studio

import (
	"errors"
	"net/http"

	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/types"
)

// Operation 阶段操作类型
type Operation string

const (
	OpRun           Operation = "run"
	OpRefine        Operation = "refine"
	OpNewSession    Operation = "new_session"
	OpSwitchVersion Operation = "switch_version"
)

// StageError 阶段操作失败。Message 是面向用户的提示，Err 是底层原因。
type StageError struct {
	Stage   project.Stage
	Op      Operation
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable 底层错误是否可重试
func (e *StageError) Retryable() bool {
	return types.IsRetryable(e.Err)
}

func stageFailure(stage project.Stage, op Operation, err error) *StageError {
	msg := failureMessages[stage]
	if op == OpRefine {
		msg = refineFailure
	}
	return &StageError{Stage: stage, Op: op, Message: msg, Err: err}
}

// AsStageError 提取 StageError
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func validationError(msg string) *types.Error {
	return types.NewError(types.ErrValidation, msg).WithHTTPStatus(http.StatusBadRequest)
}

func keyRequiredError() *types.Error {
	return types.NewError(types.ErrKeyRequired, msgKeyRequired).WithHTTPStatus(http.StatusPreconditionRequired)
}
