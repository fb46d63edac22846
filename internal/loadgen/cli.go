package loadgen

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Scoreboard Load Tool
====================

Submits random game results concurrently, then checks every leaderboard and a
sample of player histories against a local fold of what was sent.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -results int
        Number of results to submit (default 5000)
  -players int
        Number of distinct players (default 200)
  -games string
        Comma separated game types (default "chess,trivia,darts")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for submitted results (default: none)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Defaults against a local server
  go run ./cmd/loadgen

  # Heavier run
  go run ./cmd/loadgen -results 50000 -players 2000 -workers 32
`)
}
