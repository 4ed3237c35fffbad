package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Job transports.
const (
	QueueWorkerPool  = "pool"
	QueueEventBridge = "eventbridge"
)

// LLMConfig configures the language model client. An empty APIKey disables
// the model and every extraction stage uses its fallback.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"-"`
	Model             string        `yaml:"model"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	BreakerFailures   int           `yaml:"breaker_failures"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
}

// IngestionConfig bounds what one export may ask for.
type IngestionConfig struct {
	MaxConversations int      `yaml:"max_conversations"`
	EnabledPlatforms []string `yaml:"enabled_platforms"`
	AutoQuiz         bool     `yaml:"auto_quiz"`
	AutoNode         bool     `yaml:"auto_node"`
}

// IntegrationConfig tunes graph linking.
type IntegrationConfig struct {
	LinkCandidateLimit int `yaml:"link_candidate_limit"`
	MaxConnections     int `yaml:"max_connections"`
}

// WorkersConfig sizes the in-process job pool.
type WorkersConfig struct {
	Count      int           `yaml:"count"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// TracingConfig enables OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	Version       string `yaml:"version"`
	LogLevel      string `yaml:"log_level"`

	// Storage
	StoreBackend string `yaml:"store_backend"`
	SQLitePath   string `yaml:"sqlite_path"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	EventBusName     string `yaml:"event_bus_name"`

	// Job transport
	QueueBackend string `yaml:"queue_backend"`

	LLM         LLMConfig         `yaml:"llm"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Integration IntegrationConfig `yaml:"integration"`
	Workers     WorkersConfig     `yaml:"workers"`
	Tracing     TracingConfig     `yaml:"tracing"`

	// Feature flags
	EnableMetrics bool     `yaml:"enable_metrics"`
	EnableCORS    bool     `yaml:"enable_cors"`
	CORSOrigins   []string `yaml:"cors_origins"`

	// ConfigFile is the optional YAML overlay, watched for log level changes.
	ConfigFile string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		Version:       "dev",
		LogLevel:      "info",
		StoreBackend:  StoreMemory,
		SQLitePath:    "data/mentraflow.db",
		AWSRegion:     "us-west-2",
		DynamoDBTable: "mentraflow",
		EventBusName:  "mentraflow-events",
		QueueBackend:  QueueWorkerPool,
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			CallTimeout:       30 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
			BreakerFailures:   5,
			BreakerTimeout:    60 * time.Second,
		},
		Ingestion: IngestionConfig{
			MaxConversations: 10,
			EnabledPlatforms: []string{"claude", "perplexity", "chatgpt"},
			AutoQuiz:         true,
			AutoNode:         true,
		},
		Integration: IntegrationConfig{
			LinkCandidateLimit: 100,
			MaxConnections:     5,
		},
		Workers: WorkersConfig{
			Count:      2,
			QueueSize:  100,
			JobTimeout: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 0.1,
		},
		EnableMetrics: true,
		EnableCORS:    true,
		CORSOrigins:   []string{"*"},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by CONFIG_FILE, then environment variables. Later sources win.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays the YAML file at path onto c.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Version = getEnv("VERSION", c.Version)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.QueueBackend = getEnv("QUEUE_BACKEND", c.QueueBackend)

	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", c.LLM.APIKey))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.CallTimeout = getEnvDuration("LLM_CALL_TIMEOUT", c.LLM.CallTimeout)
	c.LLM.RequestsPerSecond = getEnvFloat("LLM_REQUESTS_PER_SECOND", c.LLM.RequestsPerSecond)
	c.LLM.Burst = getEnvInt("LLM_BURST", c.LLM.Burst)
	c.LLM.BreakerFailures = getEnvInt("LLM_BREAKER_FAILURES", c.LLM.BreakerFailures)
	c.LLM.BreakerTimeout = getEnvDuration("LLM_BREAKER_TIMEOUT", c.LLM.BreakerTimeout)

	c.Ingestion.MaxConversations = getEnvInt("INGESTION_MAX_CONVERSATIONS", c.Ingestion.MaxConversations)
	c.Ingestion.EnabledPlatforms = getEnvList("INGESTION_ENABLED_PLATFORMS", c.Ingestion.EnabledPlatforms)
	c.Ingestion.AutoQuiz = getEnvBool("INGESTION_AUTO_QUIZ", c.Ingestion.AutoQuiz)
	c.Ingestion.AutoNode = getEnvBool("INGESTION_AUTO_NODE", c.Ingestion.AutoNode)
	c.Integration.LinkCandidateLimit = getEnvInt("INTEGRATION_LINK_CANDIDATE_LIMIT", c.Integration.LinkCandidateLimit)
	c.Integration.MaxConnections = getEnvInt("INTEGRATION_MAX_CONNECTIONS", c.Integration.MaxConnections)
	c.Workers.Count = getEnvInt("WORKERS_COUNT", c.Workers.Count)
	c.Workers.QueueSize = getEnvInt("WORKERS_QUEUE_SIZE", c.Workers.QueueSize)
	c.Workers.JobTimeout = getEnvDuration("WORKERS_JOB_TIMEOUT", c.Workers.JobTimeout)

	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", c.Tracing.SampleRate)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.CORSOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSOrigins)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreDynamoDB:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.QueueBackend {
	case QueueWorkerPool:
		if c.Workers.Count <= 0 {
			return fmt.Errorf("WORKERS_COUNT must be positive")
		}
		if c.Workers.QueueSize <= 0 {
			return fmt.Errorf("WORKERS_QUEUE_SIZE must be positive")
		}
	case QueueEventBridge:
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}

	if c.StoreBackend == StoreDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required")
	}
	if c.Ingestion.MaxConversations <= 0 {
		return fmt.Errorf("INGESTION_MAX_CONVERSATIONS must be positive")
	}
	if c.Integration.MaxConnections <= 0 || c.Integration.LinkCandidateLimit <= 0 {
		return fmt.Errorf("integration limits must be positive")
	}
	if c.IsProduction() && c.StoreBackend == StoreMemory {
		return fmt.Errorf("the memory store cannot be used in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList reads a comma separated list.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
