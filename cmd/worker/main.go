// Command worker consumes queued diagnosis jobs from Kafka, runs them and
// publishes the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/LawLens/internal/bootstrap"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/LawLens/internal/interfaces/http"
	"github.com/turtacn/LawLens/internal/interfaces/http/handlers"
)

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	defaultHealthPort       = 8081
)

var version = "dev"

type options struct {
	configPath   string
	consumers    int
	healthPort   int
	createTopics bool
	replication  int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", defaultWorkerConfigPath, "path to configuration file")
	flag.IntVar(&opts.consumers, "consumers", 0, "concurrent consumers in the group (default: pipeline.concurrency)")
	flag.IntVar(&opts.healthPort, "health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	flag.BoolVar(&opts.createTopics, "create-topics", false, "create the job, result and dead-letter topics when missing")
	flag.IntVar(&opts.replication, "replication", 1, "replication factor for --create-topics")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for the worker")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	consumers := opts.consumers
	if consumers <= 0 {
		consumers = cfg.Pipeline.Concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.createTopics {
		if err := ensureTopics(ctx, cfg.Kafka, opts.replication, logger); err != nil {
			return err
		}
	}

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error during cleanup", logging.Err(err))
		}
	}()

	logger.Info("starting LawLens worker",
		logging.String("version", version),
		logging.Int("consumers", consumers),
		logging.String("topic", cfg.Kafka.JobTopic),
		logging.String("group", cfg.Kafka.GroupID),
	)

	healthCfg := cfg.Server
	healthCfg.Port = opts.healthPort
	healthSrv := httpserver.NewServer(healthCfg, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, app.HealthCheckers()...),
		Mode:             "release",
		Logger:           logger,
		MetricsCollector: app.Collector,
	}), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(healthSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return healthSrv.Stop(context.Background())
	})

	for i := 0; i < consumers; i++ {
		consumer, err := kafka.NewConsumer(cfg.Kafka, app.Service, app.Producer, logger.With(logging.Int("consumer", i)))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("worker stopped")
	return err
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, replication int, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(ctx, cfg.Brokers, log)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(kafka.Topics(cfg, replication))
}
