package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"tanyabot/agent"
	"tanyabot/config"
	"tanyabot/database"
	"tanyabot/filter"
	"tanyabot/intent"
	"tanyabot/lookup"
	"tanyabot/metrics"
	"tanyabot/qa"
	"tanyabot/throttle"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tanyabot",
	Short: "Indonesian question-answering chat bot that learns from its users",
	Long: `tanyabot answers questions, does arithmetic and calculus, looks unknown
questions up on the web and learns new answers from the people it talks to.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(filterCmd)
}

// bootstrap loads configuration and builds the logger the way every subcommand needs them.
func bootstrap() (*config.Config, *zap.Logger, error) {
	tempLogger, err := config.InitLogger("info", config.LogFormatConsole)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg := config.Load(tempLogger)

	logger, err := config.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-initialize logger with configured level: %w", err)
	}
	return cfg, logger, nil
}

// app is the wired pipeline plus the pieces the subcommands drive directly.
type app struct {
	agent   *agent.Agent
	metrics *metrics.Metrics
	filter  *filter.Filter
	store   *qa.Store
	db      *database.PostgresStore
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

type persisters struct {
	qa      qa.Persister
	words   filter.Persister
	records qa.RecordPersister
}

func openPersisters(ctx context.Context, cfg *config.Config, logger *zap.Logger) (persisters, *database.PostgresStore, error) {
	if cfg.StoreBackend != config.BackendPostgres {
		return persisters{
			qa:      qa.NewFileStore(cfg.QAStoreFile),
			words:   filter.NewFileStore(cfg.FilterWordsFile),
			records: qa.NewFileRecordStore(cfg.TrainingDataFile),
		}, nil, nil
	}

	db, err := database.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return persisters{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return persisters{}, nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	return persisters{qa: db.QA(), words: db.FilterWords(), records: db.TrainingRecords()}, db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	p, db, err := openPersisters(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{metrics: metrics.New(), db: db}

	a.store, err = qa.NewStore(ctx, p.qa, logger, qa.WithThreshold(cfg.MatchThreshold))
	if err != nil {
		a.Close()
		return nil, err
	}
	training, err := qa.NewTrainingLog(ctx, p.records, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.filter, err = filter.New(ctx, p.words, logger, filter.DefaultWords...)
	if err != nil {
		a.Close()
		return nil, err
	}

	sources := lookup.SourcesFromConfig(cfg.BingAPIKey, cfg.BingEndpoint, cfg.WikipediaEndpoint, &http.Client{})
	resolver, err := lookup.NewResolver(sources, lookup.Options{
		Timeout:      cfg.LookupTimeout,
		CacheEnabled: cfg.LookupCacheEnabled,
		CacheSize:    cfg.LookupCacheSize,
		Metrics:      a.metrics,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	advice, err := intent.LoadAdvice(cfg.AdviceFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	intents := intent.NewMatcher(append(advice, intent.DefaultRules...)...)
	logger.Info("Intent rules loaded",
		zap.Int("advice_rules", len(advice)),
		zap.Int("rules", intents.Len()))

	a.agent = agent.NewAgent(cfg, agent.Deps{
		Filter:   a.filter,
		Throttle: throttle.New(cfg.ThrottleThreshold),
		Store:    a.store,
		Intents:  intents,
		Lookup:   resolver,
		Fallback: agent.NewTrainingFallback(training, cfg.MatchThreshold),
		Training: training,
		Metrics:  a.metrics,
	}, logger)
	return a, nil
}
