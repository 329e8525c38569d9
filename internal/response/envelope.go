// Package response builds the uniform envelope every MCP tool returns.
package response

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/HendryAvila/taskmem/internal/cerr"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Envelope is the tool result shape. Exactly one of Data/Error is set.
type Envelope struct {
	Success   bool           `json:"success"`
	Operation string         `json:"operation"`
	Data      any            `json:"data"`
	Message   *string        `json:"message"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
	Error     *ErrorBody     `json:"error"`
}

// JSON encodes the envelope. Values reaching here come from store types,
// so an encoding failure is reported as a failure envelope instead.
func (e *Envelope) JSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		fallback, _ := json.Marshal(Failure(e.Operation, "encode result: "+err.Error(), cerr.ToolOperationFailed, nil))
		return string(fallback)
	}
	return string(b)
}

func timestamp() string {
	return timeNow().UTC().Format(time.RFC3339)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Success wraps data. An empty message becomes "<operation> completed
// successfully".
func Success(operation string, data any, message string, metadata map[string]any) *Envelope {
	if message == "" {
		message = operation + " completed successfully"
	}
	return &Envelope{
		Success:   true,
		Operation: operation,
		Data:      data,
		Message:   &message,
		Timestamp: timestamp(),
		Metadata:  orEmpty(metadata),
	}
}

// Failure reports an error. An empty code becomes OPERATION_FAILED.
func Failure(operation, message, code string, metadata map[string]any) *Envelope {
	if code == "" {
		code = cerr.ToolOperationFailed
	}
	return &Envelope{
		Operation: operation,
		Timestamp: timestamp(),
		Metadata:  orEmpty(metadata),
		Error:     &ErrorBody{Message: message, Code: code},
	}
}

// FromError derives the code and caller-safe message from err.
func FromError(operation string, err error, metadata map[string]any) *Envelope {
	return Failure(operation, cerr.Message(err), cerr.ToolCode(err), metadata)
}

// Pagination is the page description attached to list results.
type Pagination struct {
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// ListSuccess wraps one page of items. total is the count across all
// pages; a negative total means unknown and is replaced by the page size.
func ListSuccess[T any](operation string, items []T, total, skip, limit int, message string) *Envelope {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	if total < 0 {
		total = count
	}
	if message == "" {
		message = fmt.Sprintf("Retrieved %d items", count)
	}
	return Success(operation, items, message, map[string]any{
		"count":       count,
		"total_count": total,
		"pagination": Pagination{
			Skip:    skip,
			Limit:   limit,
			HasMore: skip+count < total,
		},
	})
}

type BulkSummary struct {
	CreatedCount   int `json:"created_count"`
	UpdatedCount   int `json:"updated_count"`
	TotalProcessed int `json:"total_processed"`
}

// BulkSuccess wraps the outcome of a bulk operation. extra is merged into
// the data object next to created, updated and summary.
func BulkSuccess[T any](operation string, created, updated []T, message string, extra map[string]any) *Envelope {
	if created == nil {
		created = []T{}
	}
	if updated == nil {
		updated = []T{}
	}
	data := map[string]any{
		"created": created,
		"updated": updated,
		"summary": BulkSummary{
			CreatedCount:   len(created),
			UpdatedCount:   len(updated),
			TotalProcessed: len(created) + len(updated),
		},
	}
	for k, v := range extra {
		data[k] = v
	}
	if message == "" {
		message = fmt.Sprintf("Bulk operation completed: %d created, %d updated", len(created), len(updated))
	}
	return Success(operation, data, message, map[string]any{
		"operation_type": "bulk",
		"created_count":  len(created),
		"updated_count":  len(updated),
	})
}
