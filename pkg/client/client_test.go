package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentraflow-backend/application/services"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/pkg/common"
)

func TestSubmitExport(t *testing.T) {
	var got services.SubmitExportRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/mcp/receive-export", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		common.RespondJSON(w, http.StatusAccepted, services.SubmitExportResult{Success: true, ImportID: "mcp_u_claude_1"})
	}))
	defer server.Close()

	convs := []entities.Conversation{{
		ID:       "c1",
		Platform: "claude",
		Messages: []entities.Message{{Role: "user", Content: "hello"}},
	}}
	result, err := New(server.URL, 0).SubmitExport(context.Background(), "u", convs)

	require.NoError(t, err)
	assert.Equal(t, "mcp_u_claude_1", result.ImportID)
	assert.Equal(t, "u", got.UserID)
	assert.Equal(t, convs, got.Conversations)
}

func TestSubmitExport_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required")
	}))
	defer server.Close()

	_, err := New(server.URL, 0).SubmitExport(context.Background(), "", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "user_id is required", apiErr.Message)
}

func TestSubmitExport_RetriesUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			common.RespondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "queue full")
			return
		}
		common.RespondJSON(w, http.StatusAccepted, services.SubmitExportResult{Success: true, ImportID: "id"})
	}))
	defer server.Close()

	result, err := New(server.URL, 0).SubmitExport(context.Background(), "u", nil)

	require.NoError(t, err)
	assert.Equal(t, "id", result.ImportID)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestImportStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mcp/status/mcp_u_claude_1" {
			common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "import not found")
			return
		}
		common.RespondJSON(w, http.StatusOK, services.ImportStatus{
			ImportID: "mcp_u_claude_1",
			Status:   entities.ImportStatusRunning,
			Progress: 50,
		})
	}))
	defer server.Close()
	c := New(server.URL, 0)

	status, err := c.ImportStatus(context.Background(), "mcp_u_claude_1")
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusRunning, status.Status)
	assert.Equal(t, 50, status.Progress)

	_, err = c.ImportStatus(context.Background(), "other")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
