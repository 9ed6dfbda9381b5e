package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrSchemaViolation  = errors.New("model response violates schema")
	ErrPromptMissing    = errors.New("required prompt is missing")
	ErrValidation       = errors.New("validation failed")
	ErrToolLoopExceeded = errors.New("tool loop exceeded")
	ErrUnknownAgent     = errors.New("unknown agent")
	ErrSessionBusy      = errors.New("session has a turn in progress")
)

// ErrorKind is the stable failure code surfaced at the API boundary.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindBusy              ErrorKind = "busy"
	KindCompletionFailed  ErrorKind = "completion_failed"
	KindCompletionTimeout ErrorKind = "completion_timeout"
	KindToolLoopExceeded  ErrorKind = "tool_loop_exceeded"
	KindEmptyReply        ErrorKind = "empty_reply"
	KindInternal          ErrorKind = "internal"
)

// TurnError is the typed failure of a turn. Reply carries the apology text
// that was persisted for the turn, when one was.
type TurnError struct {
	Kind    ErrorKind
	Message string
	Reply   string
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed if sent again.
func (e *TurnError) Retryable() bool {
	switch e.Kind {
	case KindBusy, KindCompletionFailed, KindCompletionTimeout:
		return true
	default:
		return false
	}
}

func NewTurnError(kind ErrorKind, message string, err error) *TurnError {
	return &TurnError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind of err, KindInternal when err is not a TurnError.
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}
