package cerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HendryAvila/taskmem/internal/clog"
)

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(ctx context.Context, rw http.ResponseWriter, status int, v any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		WriteError(ctx, rw, NewError(Internal, "server error", err))
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	if _, err := rw.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, err)
	}
}

// WriteError records err on the request log context and writes the
// caller-safe JSON body. Stacks stay in the log.
func WriteError(ctx context.Context, rw http.ResponseWriter, err error) {
	var cErr *Error
	if !errors.As(err, &cErr) {
		if errors.Is(err, context.Canceled) {
			cErr = NewError(Canceled, "connection closed", err)
		} else {
			cErr = NewError(Unknown, "unknown error", err)
		}
	}
	clog.AddError(ctx, cErr)
	if cErr.Stack != "" {
		clog.AddStack(ctx, cErr.Stack)
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if encErr := enc.Encode(httpError{Code: cErr.Code.String(), Message: cErr.Msg}); encErr != nil {
		buf = bytes.NewBufferString(`{"code":"internal","message":"server error"}`)
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(cErr.Code.HTTPCode())
	if _, wErr := rw.Write(buf.Bytes()); wErr != nil {
		clog.AddError(ctx, errors.Join(cErr, wErr))
	}
}
