// Package bootstrap wires configuration into the running LawLens components.
// The API server, the worker and the CLI share it so each backend is built
// the same way everywhere.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/LawLens/internal/infrastructure/database/redis"
	"github.com/turtacn/LawLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/LawLens/internal/infrastructure/search/memory"
	"github.com/turtacn/LawLens/internal/infrastructure/search/milvus"
	"github.com/turtacn/LawLens/internal/infrastructure/search/opensearch"
	"github.com/turtacn/LawLens/internal/infrastructure/storage/minio"
	"github.com/turtacn/LawLens/internal/intelligence/gemini"
	"github.com/turtacn/LawLens/internal/intelligence/pyannote"
	"github.com/turtacn/LawLens/internal/intelligence/vision"
	"github.com/turtacn/LawLens/internal/intelligence/whisper"
	"github.com/turtacn/LawLens/internal/interfaces/http/handlers"
	"github.com/turtacn/LawLens/pkg/errors"
)

// Options narrows what New builds.
type Options struct {
	// SkipEngines leaves OCR, transcription, diarization and the language
	// model unconfigured. Used by commands that only touch the index.
	SkipEngines bool
	// SkipQueue leaves the Kafka producer unconfigured.
	SkipQueue bool
}

// App holds every constructed component. Nil fields are disabled.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.PipelineMetrics

	DB       *postgres.Connection
	Redis    *redis.Client
	Store    *minio.EvidenceStore
	Producer *kafka.Producer
	Gemini   *gemini.Client

	Detector   *vision.Detector
	Recognizer *whisper.Recognizer
	Diarizer   *pyannote.Diarizer

	Searcher precedent.Searcher
	Indexer  precedent.Indexer
	Reports  *repositories.DiagnosisRepository
	Service  diagnosis.Service

	// MilvusSearcher and OpenSearchIndexer are set for their backends so
	// the index command can create the collection or index first.
	MilvusSearcher    *milvus.PrecedentSearcher
	OpenSearchIndexer *opensearch.Indexer

	checkers []handlers.HealthChecker
	closers  []func() error
}

// New builds the components cfg enables. On failure everything opened so
// far is closed.
func New(ctx context.Context, cfg *config.Config, log logging.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	a := &App{Config: cfg, Logger: log}
	if err := a.init(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	if err := a.initMetrics(); err != nil {
		return err
	}
	if err := a.initStorage(ctx); err != nil {
		return err
	}
	if opts.SkipEngines {
		if err := a.initGemini(ctx); err != nil {
			return err
		}
	} else if err := a.initEngines(ctx); err != nil {
		return err
	}
	if !opts.SkipQueue {
		if err := a.initQueue(); err != nil {
			return err
		}
	}
	if err := a.initSearch(ctx); err != nil {
		return err
	}
	return a.initService()
}

func (a *App) initMetrics() error {
	if !a.Config.Metrics.Enabled {
		a.Collector = prometheus.NewNoopCollector()
		a.Metrics = prometheus.NewPipelineMetrics(a.Collector)
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.Config.Metrics.Namespace,
		Subsystem:            a.Config.Metrics.Subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, a.Logger)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create metrics collector")
	}
	a.Collector = collector
	a.Metrics = prometheus.NewPipelineMetrics(collector)
	return nil
}

// initStorage opens Postgres when a database user is set or the search
// backend needs it, Redis when enabled and MinIO when an access key is set.
// The endpoints alone are not enough because defaults fill them in.
func (a *App) initStorage(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.User != "" || cfg.Search.Backend == config.SearchBackendPostgres {
		db, err := postgres.NewConnection(ctx, cfg.Database, a.Logger)
		if err != nil {
			return err
		}
		a.DB = db
		a.Reports = repositories.NewDiagnosisRepository(db.Pool(), a.Logger)
		a.onClose(func() error { db.Close(); return nil })
		a.check("postgres", db.HealthCheck)
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, a.Logger)
		if err != nil {
			return err
		}
		a.Redis = rc
		a.onClose(rc.Close)
		a.check("redis", rc.Ping)
	}

	if cfg.MinIO.AccessKey != "" {
		store, err := minio.NewClient(ctx, cfg.MinIO, a.Logger)
		if err != nil {
			return err
		}
		a.Store = store
		a.check("minio", store.Ping)
	}
	return nil
}

// initEngines builds every extraction and language engine. An engine without
// credentials is skipped with a log line; the pipeline degrades around it.
func (a *App) initEngines(ctx context.Context) error {
	cfg := a.Config

	det, err := vision.NewDetector(ctx, cfg.Vision, a.Logger)
	switch {
	case err == nil:
		a.Detector = det
	case errors.IsCode(err, errors.ErrCodeFeatureDisabled):
		a.Logger.Info("ocr disabled", logging.String("reason", err.Error()))
	default:
		return err
	}

	rec, err := whisper.NewRecognizer(cfg.Whisper, nil, a.Logger)
	switch {
	case err == nil:
		a.Recognizer = rec
	case errors.IsCode(err, errors.ErrCodeFeatureDisabled):
		a.Logger.Info("transcription disabled", logging.String("reason", err.Error()))
	default:
		return err
	}

	a.Diarizer = pyannote.NewDiarizer(cfg.Pyannote, nil, a.Logger)
	if !a.Diarizer.Enabled() {
		a.Logger.Info("speaker diarization disabled, transcripts stay unlabeled")
	}

	return a.initGemini(ctx)
}

func (a *App) initGemini(ctx context.Context) error {
	gc, err := gemini.NewClient(ctx, a.Config.Gemini, a.Logger)
	switch {
	case err == nil:
		a.Gemini = gc
		a.onClose(gc.Close)
	case errors.IsCode(err, errors.ErrCodeFeatureDisabled):
		a.Logger.Info("language model disabled", logging.String("reason", err.Error()))
	default:
		return err
	}
	return nil
}

func (a *App) initQueue() error {
	if len(a.Config.Kafka.Brokers) == 0 {
		return nil
	}
	p, err := kafka.NewProducer(a.Config.Kafka, a.Logger)
	if err != nil {
		return err
	}
	a.Producer = p
	a.onClose(p.Close)
	return nil
}

// initSearch builds the configured precedent backend. Vector backends need
// the Gemini embedder.
func (a *App) initSearch(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Search.Backend {
	case config.SearchBackendMemory:
		ix := memory.NewIndex(a.Logger)
		if cfg.Search.CorpusPath != "" {
			docs, err := memory.LoadCorpusFile(cfg.Search.CorpusPath)
			if err != nil {
				return err
			}
			if err := ix.Index(ctx, docs); err != nil {
				return err
			}
		} else {
			a.Logger.Warn("search.corpus_path is empty, the precedent index starts empty")
		}
		a.Searcher, a.Indexer = ix, ix

	case config.SearchBackendPostgres:
		emb, err := a.embedder(cfg.Database.EmbeddingDim)
		if err != nil {
			return err
		}
		repo := repositories.NewPrecedentRepository(a.DB.Pool(), emb, a.Logger)
		a.Searcher, a.Indexer = repo, repo

	case config.SearchBackendMilvus:
		emb, err := a.embedder(cfg.Database.EmbeddingDim)
		if err != nil {
			return err
		}
		mc, err := milvus.NewClient(ctx, cfg.Milvus, a.Logger)
		if err != nil {
			return err
		}
		a.onClose(mc.Close)
		a.check("milvus", mc.CheckHealth)
		s := milvus.NewPrecedentSearcher(mc, emb, cfg.Milvus, a.Logger)
		a.Searcher, a.Indexer, a.MilvusSearcher = s, s, s

	case config.SearchBackendOpenSearch:
		oc, err := opensearch.NewClient(ctx, cfg.OpenSearch, a.Logger)
		if err != nil {
			return err
		}
		a.check("opensearch", oc.Ping)
		a.Searcher = opensearch.NewPrecedentSearcher(oc, a.Logger)
		a.OpenSearchIndexer = opensearch.NewIndexer(oc, false, a.Logger)
		a.Indexer = a.OpenSearchIndexer

	default:
		return errors.Newf(errors.ErrCodeValidation, "unknown search backend %q", cfg.Search.Backend)
	}
	return nil
}

func (a *App) embedder(dim int) (*gemini.Embedder, error) {
	if a.Gemini == nil {
		return nil, errors.Newf(errors.ErrCodeFeatureDisabled,
			"search backend %q needs gemini embeddings; set gemini.api_key", a.Config.Search.Backend)
	}
	return gemini.NewEmbedder(a.Gemini, dim), nil
}

// initService assigns only the collaborators that exist, so the service
// never sees a typed nil behind an interface.
func (a *App) initService() error {
	deps := diagnosis.Deps{
		Searcher: a.Searcher,
		Metrics:  a.Metrics,
		Logger:   a.Logger,
	}
	if a.Detector != nil {
		deps.Detector = a.Detector
	}
	if a.Recognizer != nil {
		deps.Recognizer = a.Recognizer
	}
	if a.Diarizer != nil && a.Diarizer.Enabled() {
		deps.Diarizer = a.Diarizer
	}
	if a.Gemini != nil {
		deps.Analyzer = gemini.NewAnalyzer(a.Gemini)
		deps.Advisor = gemini.NewAdvisor(a.Gemini)
	}
	if a.Redis != nil {
		deps.Cache = redis.NewRedisCache(a.Redis, a.Logger,
			redis.WithPrefix(a.Config.Redis.KeyPrefix),
			redis.WithDefaultTTL(a.Config.Redis.DefaultTTL))
	}
	if a.Reports != nil {
		deps.Reports = a.Reports
	}
	if a.Store != nil {
		deps.Store = a.Store
	}
	if a.Producer != nil {
		deps.Jobs = a.Producer
	}

	svc, err := diagnosis.NewService(diagnosis.ConfigFrom(a.Config), deps)
	if err != nil {
		return err
	}
	a.Service = svc
	return nil
}

// HealthCheckers returns one readiness check per connected dependency.
func (a *App) HealthCheckers() []handlers.HealthChecker {
	return a.checkers
}

// MetricsHandler serves the collector's registry.
func (a *App) MetricsHandler() http.Handler {
	return a.Collector.Handler()
}

func (a *App) check(name string, fn func(ctx context.Context) error) {
	a.checkers = append(a.checkers, handlers.CheckFunc{Component: name, Fn: fn})
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of creation and returns the
// first error.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
