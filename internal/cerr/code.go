// Package cerr defines coded errors shared by the stores, the MCP tools
// and the REST API.
package cerr

import "net/http"

type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	Internal           = Code(13)
)

var codeNames = map[Code]string{
	OK:                 "ok",
	Canceled:           "canceled",
	Unknown:            "unknown",
	InvalidArgument:    "invalid_argument",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	PermissionDenied:   "permission_denied",
	FailedPrecondition: "failed_precondition",
	Aborted:            "aborted",
	Internal:           "internal",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown"
}

// HTTPCode maps a code onto the status the REST surface returns.
// Validation failures are 422 and lost optimistic locks are 409.
func (c Code) HTTPCode() int {
	switch c {
	case OK:
		return http.StatusOK
	case Canceled:
		return 499
	case InvalidArgument:
		return http.StatusUnprocessableEntity
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists, Aborted, FailedPrecondition:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// IsServerSide reports whether errors with this code are logged at error
// level with a captured stack.
func (c Code) IsServerSide() bool {
	return c == Unknown || c == Internal
}

// Tool error codes carried in the MCP response envelope. Callers branch on
// these strings, so new values are added, never renamed.
const (
	ToolValidationError = "VALIDATION_ERROR"
	ToolTaskNotFound    = "TASK_NOT_FOUND"
	ToolMemoryNotFound  = "MEMORY_NOT_FOUND"
	ToolVersionConflict = "VERSION_CONFLICT"
	ToolInvalidState    = "INVALID_STATE"
	ToolOperationFailed = "OPERATION_FAILED"
)
