package cerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCode(t *testing.T) {
	cases := map[Code]int{
		InvalidArgument:    http.StatusUnprocessableEntity,
		NotFound:           http.StatusNotFound,
		Aborted:            http.StatusConflict,
		FailedPrecondition: http.StatusConflict,
		PermissionDenied:   http.StatusForbidden,
		Internal:           http.StatusInternalServerError,
		Unknown:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPCode(), code.String())
	}
}

func TestToolCode(t *testing.T) {
	assert.Equal(t, ToolValidationError, ToolCode(Validation("bad")))
	assert.Equal(t, ToolTaskNotFound, ToolCode(TaskNotFound("abc")))
	assert.Equal(t, ToolMemoryNotFound, ToolCode(MemoryNotFound("abc")))
	assert.Equal(t, ToolVersionConflict, ToolCode(NewError(Aborted, "conflict", nil)))
	assert.Equal(t, ToolInvalidState, ToolCode(NewError(FailedPrecondition, "state", nil)))
	assert.Equal(t, ToolOperationFailed, ToolCode(errors.New("boom")))

	e := NewError(FailedPrecondition, "deps", nil)
	e.Tool = ToolValidationError
	assert.Equal(t, ToolValidationError, ToolCode(fmt.Errorf("wrapped: %w", e)))
}

func TestStackOnlyForServerSide(t *testing.T) {
	assert.Empty(t, NewError(NotFound, "x", nil).Stack)
	assert.NotEmpty(t, Storage("insert task", errors.New("disk full")).Stack)
}

func TestMessageHidesDriverText(t *testing.T) {
	err := Storage("insert task", errors.New("SQLITE_FULL"))
	assert.Equal(t, "insert task failed", Message(err))
	assert.Contains(t, err.Error(), "SQLITE_FULL")
	assert.Equal(t, "unknown error", Message(errors.New("raw")))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, Storage("query", errors.New("secret detail")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["code"])
	assert.Equal(t, "query failed", body["message"])
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(context.Background(), rec, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}
