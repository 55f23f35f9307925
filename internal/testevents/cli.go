package testevents

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/ladder/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends structured logs to both stdout and a file. If logFile
// is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the test events tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Ladder Event Test Tool
======================

Submits generated score events to a running ladder service, then checks
that the served best and total leaderboards match what the events imply.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -group string      Group to write to (default: server default)
  -users int         Distinct users (default 500)
  -events int        Number of events to submit (default 10000)
  -attrs string      Comma separated attributes (default "kills,assists")
  -top int           Rows compared per leaderboard (default 50)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -replays int       Events resent with the same request id (default 100)
  -seed uint         Generator seed (default: from clock)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Output file for generated events
  -log string        Log file for test output
  -verbose           Enable verbose logging
  -help              Show this help message

Examples:
  go run ./cmd/test-events -events 50000 -workers 16
  go run ./cmd/test-events -group tournament -seed 42 -verbose
`)
}
