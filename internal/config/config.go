package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Classifier ClassifierConfig `yaml:"classifier"`
	LLM        LLMConfig        `yaml:"llm"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// UpstreamConfig points at the RAG orchestrator and vector-search backends
// and bounds every outbound call per route.
type UpstreamConfig struct {
	RAGURL    string `yaml:"rag_url"`
	VectorURL string `yaml:"vector_url"`

	QueryTimeout    time.Duration `yaml:"query_timeout"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
	HealthTimeout   time.Duration `yaml:"health_timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

type ClassifierConfig struct {
	// RedirectThreshold is the minimum confidence at which a templates/alerts
	// classification short-circuits to a dashboard redirect instead of running
	// generation. Below it the system prefers answering over bouncing the user.
	RedirectThreshold float64 `yaml:"redirect_threshold"`
}

// LLMConfig selects the generative backend used to escalate low-confidence
// classifications. Provider is one of "stub", "openai", "anthropic"; the
// choice is resolved once at startup.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type UploadsConfig struct {
	Dir               string   `yaml:"dir"`
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	MaxFilesPerQuery  int      `yaml:"max_files_per_query"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type AuthConfig struct {
	// Keys lists accepted API key hashes. Empty means auth is stubbed out and
	// every request passes.
	Keys []APIKeyConfig `yaml:"keys"`
}

type APIKeyConfig struct {
	Name string `yaml:"name"`
	Hash string `yaml:"hash"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             4000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     300 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			RAGURL:          "http://127.0.0.1:8000",
			VectorURL:       "http://127.0.0.1:5001",
			QueryTimeout:    60 * time.Second,
			UploadTimeout:   120 * time.Second,
			PipelineTimeout: 180 * time.Second,
			SearchTimeout:   15 * time.Second,
			HealthTimeout:   5 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
		Classifier: ClassifierConfig{
			RedirectThreshold: 0.7,
		},
		LLM: LLMConfig{
			Provider:    "stub",
			Model:       "",
			MaxTokens:   200,
			Temperature: 0.1,
			Timeout:     20 * time.Second,
		},
		Uploads: UploadsConfig{
			Dir:               "uploads",
			MaxFileSizeBytes:  50 << 20,
			MaxFilesPerQuery:  10,
			AllowedExtensions: []string{".pdf", ".docx", ".txt", ".png", ".jpg", ".jpeg"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "assistant",
			User:            "assistant",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			DB:       0,
			PoolSize: 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}
