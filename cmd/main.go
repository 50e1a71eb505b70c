package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/lineup/internal/adapters/http/api"
	"github.com/okian/lineup/internal/adapters/http/swagger"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/adapters/repository/postgres"
	"github.com/okian/lineup/internal/adapters/repository/redisshare"
	"github.com/okian/lineup/internal/adapters/scheduler"
	app "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/config"
	"github.com/okian/lineup/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// A missing .env is fine; values may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "lineup exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		logger.Get().Warn(ctx, "invalid log_format; keeping text", logger.String("log_format", cfg.LogFormat))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	svc := newService(cfg, st)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	sched, err := scheduler.New(svc,
		scheduler.WithRetention(cfg.HistoryRetention()),
		scheduler.WithRetentionInterval(cfg.RetentionInterval()),
		scheduler.WithMetricsInterval(cfg.MetricsInterval()),
	)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown: stop taking requests, stop jobs, then drain saves.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := sched.Stop(); err != nil {
		log.Error(ctx, "scheduler shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// stores bundles the configured backends and whatever must be closed.
type stores struct {
	roster  repository.RosterStore
	history repository.HistoryStore
	shares  repository.ShareStore
	closers []io.Closer
}

// openStores builds the roster, history and share backends named by cfg.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{
		roster:  repository.NewMemoryRoster(),
		history: repository.NewMemoryHistory(),
	}

	var db *postgres.DB
	if cfg.StoreBackend == config.BackendPostgres || cfg.ShareBackend == config.BackendPostgres {
		var err error
		if db, err = postgres.Open(ctx, cfg.PostgresDSN); err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db)
	}
	if cfg.StoreBackend == config.BackendPostgres {
		st.roster = postgres.NewRoster(db)
		st.history = postgres.NewHistory(db)
	}

	switch cfg.ShareBackend {
	case config.BackendRedis:
		rs, err := redisshare.Open(ctx, cfg.RedisURL, redisshare.WithTTL(cfg.ShareTTL()))
		if err != nil {
			st.Close(ctx)
			return nil, err
		}
		st.shares = rs
		st.closers = append(st.closers, rs)
	case config.BackendPostgres:
		st.shares = postgres.NewShares(db, cfg.ShareTTL())
	default:
		st.shares = repository.NewMemoryShares(repository.WithShareTTL(cfg.ShareTTL()))
	}

	logger.Get().Info(ctx, "stores ready",
		logger.String("store_backend", cfg.StoreBackend),
		logger.String("share_backend", cfg.ShareBackend),
	)
	return st, nil
}

// Close releases backend connections.
func (s *stores) Close(ctx context.Context) {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.Get().Warn(ctx, "failed to close store", logger.Error(err))
		}
	}
}

func newService(cfg *config.Config, st *stores) *app.Service {
	return app.New(
		app.WithLogger(logger.Get().Named("service")),
		app.WithRosterStore(st.roster),
		app.WithHistoryStore(st.history),
		app.WithShareStore(st.shares),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMinMatchPlayers(cfg.MinMatchPlayers),
		app.WithTeamNames(cfg.TeamAName, cfg.TeamBName),
		app.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
	)
}

// newHandler registers the API and docs routes and applies CORS.
func newHandler(ctx context.Context, svc *app.Service, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return api.WithCORS(mux, cfg.AllowedOrigins())
}
