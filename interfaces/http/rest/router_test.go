package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/application/ports/mocks"
	"mentraflow-backend/application/services"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/infrastructure/persistence/memory"
	"mentraflow-backend/interfaces/http/rest/handlers"
	"mentraflow-backend/pkg/observability"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	handler   http.Handler
	store     *memory.Store
	queue     *mocks.MockJobQueue
	scheduler *services.RecallScheduler
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	store := memory.NewStore()
	queue := new(mocks.MockJobQueue)
	clock := ports.SystemClock{}
	metrics := observability.NewCollector("test")
	logger := zap.NewNop()

	scheduler := services.NewRecallScheduler(store, clock, metrics, logger)
	gateway := services.NewIngestionGateway(store, queue, clock, 10, metrics, logger)
	queries := services.NewQueryService(store, clock, logger)
	settings := handlers.Settings{
		EnabledPlatforms: []string{"claude", "perplexity", "chatgpt"},
		MaxConversations: 10,
		AutoQuiz:         true,
		AutoNode:         true,
	}
	if pinger == nil {
		pinger = store
	}

	router := NewRouter(
		handlers.NewMCPHandler(gateway, queries, settings, logger),
		handlers.NewRecallHandler(scheduler, logger),
		pinger,
		metrics,
		RouterConfig{EnableMetrics: true, EnableCORS: true, CORSOrigins: []string{"http://localhost:3000"}},
		logger,
	)
	return &testServer{handler: router.Setup(), store: store, queue: queue, scheduler: scheduler}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const exportBody = `{
  "user_id": "user-1",
  "conversations": [{
    "id": "conv-1",
    "title": "Spaced repetition",
    "platform": "claude",
    "messages": [
      {"role": "user", "content": "What is spaced repetition?"},
      {"role": "assistant", "content": "Reviewing material at growing intervals."}
    ]
  }]
}`

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(t, stubPinger{err: errors.New("connection refused")})
	rec = down.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode(t, rec)["status"])
}

func TestReceiveExport_AcceptedThenPollable(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.queue.On("Enqueue", mock.Anything, mock.AnythingOfType("ports.ImportJob")).Return(nil)

	rec := srv.do(t, http.MethodPost, "/api/mcp/receive-export", exportBody)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	importID, _ := body["import_id"].(string)
	require.True(t, strings.HasPrefix(importID, "mcp_user-1_claude_"))

	rec = srv.do(t, http.MethodGet, "/api/mcp/status/"+importID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "queued", status["status"])
	assert.EqualValues(t, 0, status["progress"])

	rec = srv.do(t, http.MethodGet, "/api/mcp/history?user_id=user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	srv.queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestReceiveExport_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"user_id":`},
		{"unknown field", `{"user_id":"u","conversations":[],"extra":1}`},
		{"missing user", `{"conversations":[{"platform":"claude","messages":[{"role":"user","content":"x"}]}]}`},
		{"no conversations", `{"user_id":"u","conversations":[]}`},
		{"conversation without messages", `{"user_id":"u","conversations":[{"platform":"claude","messages":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil)
			rec := srv.do(t, http.MethodPost, "/api/mcp/receive-export", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, decode(t, rec)["success"])
			srv.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
		})
	}
}

func TestReceiveExport_QueueUnavailable(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.queue.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue full"))

	rec := srv.do(t, http.MethodPost, "/api/mcp/receive-export", exportBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown import", "/api/mcp/status/mcp_nobody_claude_1", http.StatusNotFound},
		{"history requires user", "/api/mcp/history", http.StatusBadRequest},
		{"bad limit", "/api/mcp/concepts?user_id=u&limit=abc", http.StatusBadRequest},
		{"concepts", "/api/mcp/concepts?user_id=u", http.StatusOK},
		{"quizzes", "/api/mcp/quizzes?user_id=u&limit=5", http.StatusOK},
		{"quiz for unknown concept", "/api/mcp/concepts/concept_missing/quiz", http.StatusNotFound},
		{"stats", "/api/mcp/stats?user_id=u", http.StatusOK},
		{"stats requires user", "/api/mcp/stats", http.StatusBadRequest},
		{"sessions", "/api/mcp/recall-sessions?user_id=u", http.StatusOK},
		{"sessions bad status", "/api/mcp/recall-sessions?user_id=u&status=later", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSettings(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/api/mcp/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var settings handlers.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, []string{"claude", "perplexity", "chatgpt"}, settings.EnabledPlatforms)
	assert.Equal(t, 10, settings.MaxConversations)
	assert.True(t, settings.AutoQuiz)
}

func TestQuizEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	quiz, err := entities.NewQuiz("concept_abc", "user-1", []entities.QuizQuestion{{
		Question:      "What is spaced repetition?",
		Options:       map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		CorrectAnswer: "A",
	}}, ports.SystemClock{}.Now())
	require.NoError(t, err)
	require.NoError(t, srv.store.SaveQuiz(ctx, quiz))

	rec := srv.do(t, http.MethodGet, "/api/mcp/concepts/concept_abc/quiz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.ID, decode(t, rec)["id"])

	rec = srv.do(t, http.MethodPost, "/api/mcp/quizzes/"+quiz.ID+"/results", `{"score": 75}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["times_taken"])
	assert.EqualValues(t, 75, body["average_score"])

	rec = srv.do(t, http.MethodPost, "/api/mcp/quizzes/"+quiz.ID+"/results", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/mcp/quizzes/"+quiz.ID+"/results", `{"score": 150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/mcp/quizzes/quiz_missing/results", `{"score": 50}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteRecallSession(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	first, err := srv.scheduler.ScheduleFirst(ctx, "user-1", "node_1", "Spaced repetition")
	require.NoError(t, err)

	rec := srv.do(t, http.MethodPost, "/api/mcp/recall-sessions/"+first.ID+"/complete", `{"success": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.CompleteSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.FollowUpScheduled)
	require.NotNil(t, resp.NextSession)
	assert.Equal(t, 3, resp.NextSession.IntervalDays)

	rec = srv.do(t, http.MethodPost, "/api/mcp/recall-sessions/"+first.ID+"/complete", `{"success": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/mcp/recall-sessions/"+resp.NextSession.ID+"/complete", `{"success": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = handlers.CompleteSessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FollowUpScheduled)
	assert.Nil(t, resp.NextSession)

	rec = srv.do(t, http.MethodPost, "/api/mcp/recall-sessions/"+first.ID+"/complete", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/mcp/recall-sessions?user_id=user-1&status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["completed_count"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, http.MethodGet, "/health", "")

	rec := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}
