package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, QueueWorkerPool, cfg.QueueBackend)
	assert.Equal(t, 10, cfg.Ingestion.MaxConversations)
	assert.Equal(t, 100, cfg.Integration.LinkCandidateLimit)
	assert.Equal(t, 5, cfg.Integration.MaxConnections)
	assert.Equal(t, []string{"claude", "perplexity", "chatgpt"}, cfg.Ingestion.EnabledPlatforms)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
log_level: debug
store_backend: sqlite
sqlite_path: /tmp/mentraflow.db
llm:
  model: local-model
  call_timeout: 5s
workers:
  count: 4
ingestion:
  max_conversations: 20
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKERS_COUNT", "8")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, 8, cfg.Workers.Count, "environment wins over the file")
	assert.Equal(t, 100, cfg.Workers.QueueSize, "unset keys keep defaults")
	assert.Equal(t, 20, cfg.Ingestion.MaxConversations)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "workers: [not, a, map")
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.StoreBackend = "postgres" }, true},
		{"sqlite without path", func(c *Config) { c.StoreBackend = StoreSQLite; c.SQLitePath = "" }, true},
		{"unknown queue", func(c *Config) { c.QueueBackend = "kafka" }, true},
		{"eventbridge without bus", func(c *Config) { c.QueueBackend = QueueEventBridge; c.EventBusName = "" }, true},
		{"no workers", func(c *Config) { c.Workers.Count = 0 }, true},
		{"zero conversation cap", func(c *Config) { c.Ingestion.MaxConversations = 0 }, true},
		{"memory store in production", func(c *Config) { c.Environment = "production" }, true},
		{"dynamodb in production", func(c *Config) { c.Environment = "production"; c.StoreBackend = StoreDynamoDB }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWatcher_AppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\n")
	cfg := Defaults()
	cfg.ConfigFile = path
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	w, err := NewWatcher(cfg, level, zap.NewNop())
	require.NoError(t, err)
	changed := make(chan *Config, 1)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	writeFile(t, path, "log_level: debug\n")

	select {
	case next := <-changed:
		assert.Equal(t, "debug", next.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.Equal(t, "debug", w.Current().LogLevel)
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\n")
	cfg := Defaults()
	cfg.ConfigFile = path
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	w, err := NewWatcher(cfg, level, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	writeFile(t, path, "store_backend: postgres\nlog_level: debug\n")
	w.reload()

	assert.Same(t, cfg, w.Current())
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestNewWatcher_RequiresFile(t *testing.T) {
	_, err := NewWatcher(Defaults(), zap.NewAtomicLevel(), zap.NewNop())
	assert.Error(t, err)
}
