package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tahakcygt/HSS-ka/internal/planner"
)

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "test error")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "test error", resp["error"])
}

func TestHelpers_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write func(http.ResponseWriter)
		want  int
	}{
		{"ok", func(w http.ResponseWriter) { WriteJSONOK(w, map[string]int{"n": 1}) }, http.StatusOK},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "x") }, http.StatusBadRequest},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "x") }, http.StatusInternalServerError},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWritePlanError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
		kind string
	}{
		{fmt.Errorf("bad zone: %w", planner.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("no home: %w", planner.ErrPreconditionUnmet), http.StatusUnprocessableEntity, "precondition_unmet"},
		{fmt.Errorf("nan: %w", planner.ErrComputation), http.StatusInternalServerError, "computation"},
		{errors.New("other"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WritePlanError(rec, tt.err)
			assert.Equal(t, tt.code, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp["kind"])
			assert.Equal(t, tt.err.Error(), resp["error"])
		})
	}
}

func TestPlanClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		WriteJSONOK(w, map[string]string{"path": r.URL.Path, "body": string(body)})
	}))
	defer srv.Close()

	c := NewPlanClient(srv.URL+"/api/", nil)
	body, status, err := c.Plan(context.Background(), []byte(`{"x":1}`), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"path":"/api/plan","body":"{\"x\":1}"}`, string(body))

	body, _, err = c.Plan(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/api/plan/geo")
}

func TestPlanClient_TransportError(t *testing.T) {
	t.Parallel()

	c := NewPlanClient("http://planner.invalid", ClientFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))
	_, _, err := c.Plan(context.Background(), []byte(`{}`), false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}
