package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/ai"
	"github.com/jersjar7/Fit14-sub001/internal/envstruct"
	"github.com/jersjar7/Fit14-sub001/internal/errors"
	"github.com/jersjar7/Fit14-sub001/internal/flightrecorder"
	"github.com/jersjar7/Fit14-sub001/internal/logging"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/jersjar7/Fit14-sub001/internal/sqlite"
	"github.com/jersjar7/Fit14-sub001/internal/tracker"
	"golang.org/x/sync/errgroup"
)

type application struct {
	logger            *slog.Logger
	tracker           *tracker.Service
	generationTimeout time.Duration
	exportDir         string
}

const (
	backendEndpoint = "endpoint"
	backendOpenAI   = "openai"
)

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FIT14_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FIT14_SQLITE_URL" envDefault:"./fit14.sqlite3"`
	// AIBackend selects the plan generator transport: "endpoint" or "openai".
	AIBackend string `env:"FIT14_AI_BACKEND" envDefault:"endpoint"`
	// AIEndpointURL is the URL of the generation endpoint used by the endpoint backend.
	AIEndpointURL string `env:"FIT14_AI_ENDPOINT_URL" envDefault:""`
	// AIAPIKey authenticates against the selected backend.
	AIAPIKey string `env:"FIT14_AI_API_KEY" envDefault:""`
	// OpenAIModel is the chat model used by the openai backend.
	OpenAIModel string `env:"FIT14_OPENAI_MODEL" envDefault:"gpt-4o"`
	// OpenAIBaseURL overrides the OpenAI API URL, for example for a compatible proxy.
	OpenAIBaseURL string `env:"FIT14_OPENAI_BASE_URL" envDefault:""`
	// GenerationTimeout bounds a single plan generation.
	GenerationTimeout time.Duration `env:"FIT14_GENERATION_TIMEOUT" envDefault:"60s"`
	// StrictGoals requires two answered profile questions before generating.
	StrictGoals bool `env:"FIT14_STRICT_GOALS" envDefault:"false"`
	// TracesDir enables the flight recorder. Generation timeouts write runtime traces there.
	TracesDir string `env:"FIT14_TRACES_DIR" envDefault:""`
}

func newTransport(cfg config, logger *slog.Logger) (planner.Transport, error) {
	switch cfg.AIBackend {
	case backendEndpoint:
		if cfg.AIEndpointURL == "" {
			return nil, errors.New("FIT14_AI_ENDPOINT_URL is required for the endpoint backend")
		}
		return ai.NewEndpoint(cfg.AIEndpointURL, cfg.AIAPIKey, nil, logger), nil
	case backendOpenAI:
		if cfg.AIAPIKey == "" {
			return nil, errors.New("FIT14_AI_API_KEY is required for the openai backend")
		}
		return ai.NewOpenAI(cfg.AIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger), nil
	default:
		return nil, errors.Wrap(errors.New("unknown AI backend"), "select transport",
			slog.String("backend", cfg.AIBackend))
	}
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "new transport")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	var recorder *flightrecorder.Recorder
	onTimeout := func(context.Context) {}
	if cfg.TracesDir != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			MinAge:          0,
			MaxBytes:        0,
			Cooldown:        0,
			TracesDirectory: cfg.TracesDir,
			Now:             nil,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		onTimeout = recorder.CaptureGenerationTimeout
	}

	generator := planner.NewGenerator(transport, logger, planner.Options{
		Timeout:   cfg.GenerationTimeout,
		Strict:    cfg.StrictGoals,
		Now:       nil,
		OnTimeout: onTimeout,
	})

	app := application{
		logger:            logger,
		tracker:           tracker.NewService(db, generator, logger, nil),
		generationTimeout: cfg.GenerationTimeout,
		exportDir:         os.TempDir(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.configureAndStartServer(ctx, cfg.Addr, app.routes())
	})
	g.Go(func() error {
		return db.RunOptimizer(ctx)
	})
	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(ctx)
		})
	}
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run application")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
