package cerr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

type Error struct {
	Code     Code
	Msg      string // returned to the caller alongside Code
	Err      error  // logged only
	Stack    string // captured for server-side failures
	Resource string // "task", "memory" or "version"; picks the tool not-found code
	Tool     string // overrides the derived tool code when set
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.IsServerSide() {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

// Validation builds an InvalidArgument error whose message lists every
// problem joined by "; ".
func Validation(problems ...string) *Error {
	return NewError(InvalidArgument, strings.Join(problems, "; "), nil)
}

func TaskNotFound(id string) *Error {
	e := NewError(NotFound, fmt.Sprintf("Task %s not found", id), nil)
	e.Resource = "task"
	return e
}

func MemoryNotFound(id string) *Error {
	e := NewError(NotFound, fmt.Sprintf("Memory %s not found", id), nil)
	e.Resource = "memory"
	return e
}

func VersionNotFound(id string) *Error {
	e := NewError(NotFound, fmt.Sprintf("Version %s not found", id), nil)
	e.Resource = "version"
	return e
}

// Storage wraps a driver error. The message shown to callers never
// contains the driver text.
func Storage(op string, err error) *Error {
	return NewError(Internal, op+" failed", err)
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, Canceled for context
// cancellation, and Unknown for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	if errors.Is(err, context.Canceled) {
		return Canceled
	}
	return Unknown
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Msg
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return "unknown error"
}

// ToolCode maps err onto the string codes used by the MCP envelope.
func ToolCode(err error) string {
	var cerr *Error
	if !errors.As(err, &cerr) {
		return ToolOperationFailed
	}
	if cerr.Tool != "" {
		return cerr.Tool
	}
	switch cerr.Code {
	case InvalidArgument:
		return ToolValidationError
	case NotFound:
		if cerr.Resource == "memory" {
			return ToolMemoryNotFound
		}
		return ToolTaskNotFound
	case Aborted:
		return ToolVersionConflict
	case FailedPrecondition, AlreadyExists:
		return ToolInvalidState
	default:
		return ToolOperationFailed
	}
}
