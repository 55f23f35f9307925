package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/ladder/internal/testevents"
	"github.com/okian/ladder/pkg/logger"
)

const (
	defaultUsers       = 500
	defaultNumEvents   = 10000
	defaultTopN        = 50
	defaultReplays     = 100
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		group      = flag.String("group", "", "Group to write to")
		users      = flag.Int("users", defaultUsers, "Distinct users")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		attrs      = flag.String("attrs", "kills,assists", "Comma separated attributes")
		topN       = flag.Int("top", defaultTopN, "Rows compared per leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		replays    = flag.Int("replays", defaultReplays, "Events resent with the same request id")
		seed       = flag.Uint64("seed", 0, "Generator seed")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated events")
		logFile    = flag.String("log", "", "Log file for test output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp(os.Stdout)
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &testevents.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		Group:      *group,
		Users:      *users,
		NumEvents:  *numEvents,
		Attrs:      strings.Split(*attrs, ","),
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		Replays:    *replays,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := testevents.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "test failed", logger.Error(err))
		if errors.Is(err, testevents.ErrMismatch) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
