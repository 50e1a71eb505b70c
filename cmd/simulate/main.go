package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/lineup/internal/simulate"
	"github.com/okian/lineup/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players = flag.Int("players", simulate.DefaultPlayers, "Number of roster players to create")
		rounds  = flag.Int("rounds", simulate.DefaultRounds, "Number of matches to request")
		minPool = flag.Int("min-pool", simulate.DefaultMinPool, "Smallest pool per match")
		maxPool = flag.Int("max-pool", 0, "Largest pool per match (default: whole roster)")
		workers = flag.Int("workers", 0, "Concurrent requests (default: CPU cores * 2)")
		timeout = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		seed    = flag.Uint64("seed", 0, "Random seed (default: from the clock)")
		cleanup = flag.Bool("cleanup", true, "Delete seeded players when done")
		verbose = flag.Bool("verbose", false, "Log every verified match")
		format  = flag.String("log-format", logger.FormatText, "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := simulate.Run(ctx, simulate.Config{
		BaseURL: *baseURL,
		Players: *players,
		Rounds:  *rounds,
		MinPool: *minPool,
		MaxPool: *maxPool,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Cleanup: *cleanup,
		Verbose: *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
