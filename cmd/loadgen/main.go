package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/liftboard/internal/loadgen"
	"github.com/okian/liftboard/pkg/logger"
)

const (
	defaultAthletes     = 1000
	defaultLifts        = 10000
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultDrainTimeout = 2 * time.Minute
	defaultRunTimeout   = 10 * time.Minute
	defaultPoll         = 250 * time.Millisecond
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		athletes = flag.Int("athletes", defaultAthletes, "Number of distinct athletes")
		lifts    = flag.Int("lifts", defaultLifts, "Number of lifts to submit")
		dupRate  = flag.Float64("dup-rate", 0.05, "Share of lifts re-sent with the same submission id")
		noBody   = flag.Float64("no-body-rate", 0.02, "Share of lifts sent without body_kg")
		topN     = flag.Int("top", defaultTopN, "Leaderboard page size to verify")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent HTTP workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drain    = flag.Duration("drain-timeout", defaultDrainTimeout, "How long to wait for the service to process submissions")
		seed     = flag.Uint64("seed", 0, "Generator seed (0 uses the clock)")
		output   = flag.String("output", "", "Write generated lifts to this JSON file")
		logFile  = flag.String("log", "", "Also write logs to this file")
		jsonLogs = flag.Bool("json", false, "Emit JSON logs")
		verbose  = flag.Bool("verbose", false, "Log every failed submission")
	)
	flag.Parse()

	opts := []logger.Option{logger.WithJSON(*jsonLogs)}
	if *logFile != "" {
		opts = append(opts, logger.WithFile(*logFile))
	}
	if err := logger.Init(opts...); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:       *baseURL,
		Athletes:      *athletes,
		Lifts:         *lifts,
		DuplicateRate: *dupRate,
		NoBodyRate:    *noBody,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		DrainTimeout:  *drain,
		PollInterval:  defaultPoll,
		Seed:          *seed,
		OutputFile:    *output,
		Verbose:       *verbose,
	})
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load run failed:", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer: nothing left to flush
	}
}
