package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentraflow-backend/infrastructure/config"
	"mentraflow-backend/infrastructure/llm"
	"mentraflow-backend/infrastructure/messaging/eventbridge"
	"mentraflow-backend/infrastructure/workers"
)

func TestInitializeContainer_MemoryAndPool(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "error"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Same(t, container.Pool, container.Queue.(*workers.Pool))
	assert.NotNil(t, container.Processor)

	rec := httptest.NewRecorder()
	container.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_SQLiteAndEventBridge(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "error"
	cfg.StoreBackend = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "test.db")
	cfg.QueueBackend = config.QueueEventBridge

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	_, ok := container.Queue.(*eventbridge.Queue)
	assert.True(t, ok)
	assert.NoError(t, container.Store.Ping(context.Background()))
}

func TestInitializeContainer_UnknownBackends(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "error"
	cfg.StoreBackend = "postgres"
	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Defaults()
	cfg.LogLevel = "error"
	cfg.QueueBackend = "sqs"
	_, _, err = InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestProvideLanguageModel(t *testing.T) {
	logging, cleanup, err := ProvideLogging(config.Defaults())
	require.NoError(t, err)
	defer cleanup()

	cfg := config.Defaults()
	cfg.LLM.APIKey = ""
	assert.IsType(t, llm.Disabled{}, ProvideLanguageModel(cfg, logging.Logger))

	cfg.LLM.APIKey = "sk-test"
	assert.IsType(t, &llm.Client{}, ProvideLanguageModel(cfg, logging.Logger))
}
