package config

import (
	"time"

	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/domain/precedent"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort        = 8080
	DefaultServerMode        = "release"
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 120 * time.Second
	DefaultMaxBodySize       = 64 << 20
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultRateBurst         = 20
	DefaultPipelineTimeout   = 3 * time.Minute
	DefaultPipelineWorkers   = 4
	DefaultMaxEvidenceBytes  = 25 << 20
	DefaultSpeakerPrefix     = "화자"
	DefaultSearchBackend     = SearchBackendMemory
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "lawlens"
	DefaultDBMaxConns        = 10
	DefaultEmbeddingDim      = 768
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisTTL          = 24 * time.Hour
	DefaultRedisKeyPrefix    = "lawlens:"
	DefaultKafkaGroupID      = "lawlens-worker"
	DefaultKafkaJobTopic     = "lawlens.diagnosis.requested"
	DefaultKafkaResultTopic  = "lawlens.diagnosis.completed"
	DefaultKafkaDLQTopic     = "lawlens.diagnosis.dlq"
	DefaultKafkaMaxRetries   = 3
	DefaultOpenSearchIndex   = "precedents"
	DefaultMilvusAddress     = "localhost:19530"
	DefaultMilvusCollection  = "precedents"
	DefaultMilvusVectorField = "embedding"
	DefaultMilvusMetricType  = "COSINE"
	DefaultMilvusNprobe      = 16
	DefaultMinIOEndpoint     = "localhost:9000"
	DefaultEvidenceBucket    = "lawlens-evidence"
	DefaultReportBucket      = "lawlens-reports"
	DefaultWhisperBaseURL    = "https://api.openai.com/v1"
	DefaultWhisperModel      = "whisper-1"
	DefaultWhisperLanguage   = "ko"
	DefaultEngineTimeout     = 2 * time.Minute
	DefaultGeminiModel       = "gemini-1.5-flash"
	DefaultGeminiEmbedModel  = "text-embedding-004"
	DefaultGeminiTemperature = 0.2
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultMetricsNamespace  = "lawlens"
)

// ApplyDefaults fills zero-value fields of cfg. Values already set win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.PhonePlaceholder == "" {
		cfg.Pipeline.PhonePlaceholder = evidence.DefaultPhonePlaceholder
	}
	if cfg.Pipeline.YThreshold == 0 {
		cfg.Pipeline.YThreshold = evidence.DefaultYThreshold
	}
	if cfg.Pipeline.SpeakerPrefix == "" {
		cfg.Pipeline.SpeakerPrefix = DefaultSpeakerPrefix
	}
	if cfg.Pipeline.ConvictionBudget == 0 {
		cfg.Pipeline.ConvictionBudget = precedent.DefaultConvictionBudget
	}
	if cfg.Pipeline.SearchK == 0 {
		cfg.Pipeline.SearchK = precedent.DefaultSearchK
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultPipelineWorkers
	}
	if cfg.Pipeline.MaxEvidenceBytes == 0 {
		cfg.Pipeline.MaxEvidenceBytes = DefaultMaxEvidenceBytes
	}
	if cfg.Pipeline.Timeout == 0 {
		cfg.Pipeline.Timeout = DefaultPipelineTimeout
	}

	// ── Search ────────────────────────────────────────────────────────────────
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = DefaultSearchBackend
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.EmbeddingDim == 0 {
		cfg.Database.EmbeddingDim = DefaultEmbeddingDim
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobTopic == "" {
		cfg.Kafka.JobTopic = DefaultKafkaJobTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultKafkaDLQTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}

	// ── OpenSearch / Milvus ───────────────────────────────────────────────────
	if cfg.OpenSearch.Index == "" {
		cfg.OpenSearch.Index = DefaultOpenSearchIndex
	}
	if cfg.Milvus.Address == "" {
		cfg.Milvus.Address = DefaultMilvusAddress
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = DefaultMilvusCollection
	}
	if cfg.Milvus.VectorField == "" {
		cfg.Milvus.VectorField = DefaultMilvusVectorField
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = DefaultMilvusMetricType
	}
	if cfg.Milvus.Nprobe == 0 {
		cfg.Milvus.Nprobe = DefaultMilvusNprobe
	}
	if cfg.Milvus.Timeout == 0 {
		cfg.Milvus.Timeout = DefaultEngineTimeout
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.EvidenceBucket == "" {
		cfg.MinIO.EvidenceBucket = DefaultEvidenceBucket
	}
	if cfg.MinIO.ReportBucket == "" {
		cfg.MinIO.ReportBucket = DefaultReportBucket
	}

	// ── Engines ───────────────────────────────────────────────────────────────
	if len(cfg.Vision.LanguageHints) == 0 {
		cfg.Vision.LanguageHints = []string{"ko", "en"}
	}
	if cfg.Whisper.BaseURL == "" {
		cfg.Whisper.BaseURL = DefaultWhisperBaseURL
	}
	if cfg.Whisper.Model == "" {
		cfg.Whisper.Model = DefaultWhisperModel
	}
	if cfg.Whisper.Language == "" {
		cfg.Whisper.Language = DefaultWhisperLanguage
	}
	if cfg.Whisper.Timeout == 0 {
		cfg.Whisper.Timeout = DefaultEngineTimeout
	}
	if cfg.Pyannote.Timeout == 0 {
		cfg.Pyannote.Timeout = DefaultEngineTimeout
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = DefaultGeminiModel
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = DefaultGeminiEmbedModel
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = DefaultGeminiTemperature
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
