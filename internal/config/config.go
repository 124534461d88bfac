// Package config defines the configuration structures for LawLens. Loading
// lives in loader.go and defaults in defaults.go; this file holds plain data
// types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
)

// Search backends selectable with search.backend.
const (
	SearchBackendMemory     = "memory"
	SearchBackendPostgres   = "postgres"
	SearchBackendMilvus     = "milvus"
	SearchBackendOpenSearch = "opensearch"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests/s per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// PipelineConfig tunes normalization, alignment and ranking.
type PipelineConfig struct {
	PhonePlaceholder string        `mapstructure:"phone_placeholder"`
	YThreshold       float64       `mapstructure:"y_threshold"`
	SpeakerPrefix    string        `mapstructure:"speaker_prefix"`
	ConvictionBudget int           `mapstructure:"conviction_budget"`
	SearchK          int           `mapstructure:"search_k"`
	Concurrency      int           `mapstructure:"concurrency"`
	MaxEvidenceBytes int64         `mapstructure:"max_evidence_bytes"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DraftComplaint   bool          `mapstructure:"draft_complaint"`
}

// SearchConfig selects the precedent search backend. CorpusPath is a JSON or
// JSONL precedent file read by the memory backend and by `lawlens index`.
type SearchConfig struct {
	Backend    string `mapstructure:"backend"`
	CorpusPath string `mapstructure:"corpus_path"`
}

// DatabaseConfig holds PostgreSQL (pgvector) connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	EmbeddingDim    int           `mapstructure:"embedding_dim"`
}

// RedisConfig holds Redis connection parameters for the diagnosis cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the diagnosis job transport parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	JobTopic        string   `mapstructure:"job_topic"`
	ResultTopic     string   `mapstructure:"result_topic"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
	MaxRetries      int      `mapstructure:"max_retries"`
}

// OpenSearchConfig holds the BM25 precedent index parameters.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	Username           string   `mapstructure:"username"`
	Password           string   `mapstructure:"password"`
	Index              string   `mapstructure:"index"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
}

// MilvusConfig holds the vector precedent collection parameters.
type MilvusConfig struct {
	Address     string        `mapstructure:"address"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Collection  string        `mapstructure:"collection"`
	VectorField string        `mapstructure:"vector_field"`
	MetricType  string        `mapstructure:"metric_type"`
	Nprobe      int           `mapstructure:"nprobe"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MinIOConfig holds the evidence object store parameters.
type MinIOConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	Region         string `mapstructure:"region"`
	EvidenceBucket string `mapstructure:"evidence_bucket"`
	ReportBucket   string `mapstructure:"report_bucket"`
}

// VisionConfig configures Google Cloud Vision text detection.
type VisionConfig struct {
	CredentialsFile string   `mapstructure:"credentials_file"`
	APIKey          string   `mapstructure:"api_key"`
	LanguageHints   []string `mapstructure:"language_hints"`
}

// WhisperConfig configures the OpenAI-compatible transcription endpoint.
type WhisperConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PyannoteConfig configures the diarization sidecar. Without a token the
// pipeline runs in unlabeled transcript mode.
type PyannoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiConfig configures embedding, feature analysis and drafting.
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        logging.LogConfig `mapstructure:"log"`
	Pipeline   PipelineConfig    `mapstructure:"pipeline"`
	Search     SearchConfig      `mapstructure:"search"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	OpenSearch OpenSearchConfig  `mapstructure:"opensearch"`
	Milvus     MilvusConfig      `mapstructure:"milvus"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Vision     VisionConfig      `mapstructure:"vision"`
	Whisper    WhisperConfig     `mapstructure:"whisper"`
	Pyannote   PyannoteConfig    `mapstructure:"pyannote"`
	Gemini     GeminiConfig      `mapstructure:"gemini"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks a defaulted Config and returns the first problem found.
// Backend sections are only checked when selected.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Pipeline.YThreshold <= 0 {
		return fmt.Errorf("config: pipeline.y_threshold must be > 0, got %v", c.Pipeline.YThreshold)
	}
	if c.Pipeline.ConvictionBudget < 1 {
		return fmt.Errorf("config: pipeline.conviction_budget must be ≥ 1, got %d", c.Pipeline.ConvictionBudget)
	}
	if c.Pipeline.SearchK < c.Pipeline.ConvictionBudget {
		return fmt.Errorf("config: pipeline.search_k (%d) must be ≥ pipeline.conviction_budget (%d)",
			c.Pipeline.SearchK, c.Pipeline.ConvictionBudget)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be ≥ 1, got %d", c.Pipeline.Concurrency)
	}

	switch c.Search.Backend {
	case SearchBackendMemory:
	case SearchBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.EmbeddingDim < 1 {
			return fmt.Errorf("config: database.embedding_dim must be ≥ 1, got %d", c.Database.EmbeddingDim)
		}
	case SearchBackendMilvus:
		if c.Milvus.Address == "" {
			return fmt.Errorf("config: milvus.address is required")
		}
		if c.Milvus.Collection == "" {
			return fmt.Errorf("config: milvus.collection is required")
		}
	case SearchBackendOpenSearch:
		if len(c.OpenSearch.Addresses) == 0 {
			return fmt.Errorf("config: opensearch.addresses must contain at least one address")
		}
		if c.OpenSearch.Index == "" {
			return fmt.Errorf("config: opensearch.index is required")
		}
	default:
		return fmt.Errorf("config: search.backend %q is invalid; expected memory|postgres|milvus|opensearch", c.Search.Backend)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis.enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	return nil
}

// DiarizationEnabled reports whether a diarization token is configured.
func (c *Config) DiarizationEnabled() bool {
	return c.Pyannote.Token != "" && c.Pyannote.BaseURL != ""
}
