package cli

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/LawLens/internal/bootstrap"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/search/memory"
	apihttp "github.com/turtacn/LawLens/internal/interfaces/http"
	"github.com/turtacn/LawLens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// index
// ─────────────────────────────────────────────────────────────────────────────

type indexResult struct {
	Backend string `json:"backend"`
	Corpus  string `json:"corpus"`
	Indexed int    `json:"indexed"`
}

func (r indexResult) String() string {
	return fmt.Sprintf("indexed %d precedents from %s into %s", r.Indexed, r.Corpus, r.Backend)
}

func newIndexCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "index [corpus.jsonl]",
		Short: "Load a precedent corpus into the configured search backend",
		Long: "Reads a JSON array or JSON Lines precedent export and writes it to the\n" +
			"backend selected by search.backend, creating the Milvus collection or the\n" +
			"OpenSearch index first. The memory backend only validates the corpus.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			path := argOrEmpty(args)
			if path == "" {
				path = cc.Config.Search.CorpusPath
			}
			if path == "" {
				return errors.New(errors.ErrCodeValidation, "no corpus given; pass a file or set search.corpus_path")
			}
			docs, err := memory.LoadCorpusFile(path)
			if err != nil {
				return err
			}

			// The memory backend would load the corpus twice through bootstrap.
			cfg := *cc.Config
			if cfg.Search.Backend == config.SearchBackendMemory {
				cfg.Search.CorpusPath = ""
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()
			app, err := bootstrap.New(ctx, &cfg, cc.Logger, bootstrap.Options{SkipEngines: true, SkipQueue: true})
			if err != nil {
				return err
			}
			defer app.Close()

			if app.MilvusSearcher != nil {
				if err := app.MilvusSearcher.EnsureCollection(ctx); err != nil {
					return err
				}
			}
			if app.OpenSearchIndexer != nil {
				if err := app.OpenSearchIndexer.EnsureIndex(ctx); err != nil {
					return err
				}
			}

			n, err := indexBatches(ctx, app.Indexer, docs, batchSize, cc.Logger)
			if err != nil {
				return err
			}
			return PrintResult(cmd, indexResult{Backend: cfg.Search.Backend, Corpus: path, Indexed: n})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "documents per write")
	return cmd
}

// indexBatches writes docs in batches and returns how many were written
// before the first failure.
func indexBatches(ctx context.Context, ix precedent.Indexer, docs []precedent.Document, size int, log logging.Logger) (int, error) {
	if size <= 0 {
		size = len(docs)
	}
	done := 0
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		if err := ix.Index(ctx, docs[start:end]); err != nil {
			return done, errors.Wrap(err, errors.CodeUnknown, "indexing stopped").
				WithDetail(fmt.Sprintf("after %d of %d documents", done, len(docs)))
		}
		done = end
		log.Info("indexed batch", logging.Int("done", done), logging.Int("total", len(docs)))
	}
	return done, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// migrate
// ─────────────────────────────────────────────────────────────────────────────

type versionState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (v versionState) String() string {
	if v.Dirty {
		return fmt.Sprintf("schema version %d (dirty)", v.Version)
	}
	return fmt.Sprintf("schema version %d", v.Version)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	withMigrator := func(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		mg, err := postgres.NewMigrator(cc.Config.Database, cc.Logger)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(mg)
	}
	printVersion := func(cmd *cobra.Command, mg *postgres.Migrator) error {
		v, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		return PrintResult(cmd, versionState{Version: v, Dirty: dirty})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(mg *postgres.Migrator) error {
					if err := mg.Up(); err != nil {
						return err
					}
					return printVersion(cmd, mg)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1 step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return errors.New(errors.ErrCodeValidation, "steps must be an integer").WithDetail(args[0])
					}
					steps = n
				}
				return withMigrator(cmd, func(mg *postgres.Migrator) error {
					if err := mg.Down(steps); err != nil {
						return err
					}
					return printVersion(cmd, mg)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(mg *postgres.Migrator) error {
					return printVersion(cmd, mg)
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without migrating, to clear a dirty state",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.New(errors.ErrCodeValidation, "version must be an integer").WithDetail(args[0])
				}
				return withMigrator(cmd, func(mg *postgres.Migrator) error {
					if err := mg.Force(v); err != nil {
						return err
					}
					return printVersion(cmd, mg)
				})
			},
		},
	)
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// serve
// ─────────────────────────────────────────────────────────────────────────────

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := *cc.Config
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.New(ctx, &cfg, cc.Logger, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			srv := apihttp.NewServer(cfg.Server, app.Router(Version), cc.Logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			PrintSuccess(cmd, "listening on "+srv.Addr())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			return srv.Stop(context.Background())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// version
// ─────────────────────────────────────────────────────────────────────────────

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("lawlens %s (commit %s, built %s, %s %s)", v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintResult(cmd, versionInfo{
				Version:   Version,
				Commit:    GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
