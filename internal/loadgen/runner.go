// Package loadgen drives a running scoreboard with random game results and
// checks what it serves against a local fold of the same results.
package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/scoreboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete load run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting scoreboard load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("results", config.NumResults),
		logger.Int("players", config.Players),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	results, games, err := generateResults(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("result generation failed: %w", err)
	}

	if err := submitResults(ctx, config, client, results, stats); err != nil {
		return stats, fmt.Errorf("result submission failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveResults(config.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results to file", logger.Error(err))
		}
	}

	if stats.ResultsFailed > 0 {
		log.Warn(ctx, "skipping verification after failed submissions", logger.Int("failed", stats.ResultsFailed))
	} else {
		if err := verifyBoards(ctx, client, results, games, stats); err != nil {
			return stats, err
		}
		if err := verifyHistories(ctx, client, results, stats); err != nil {
			return stats, err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveResults writes results to filename as a JSON array.
func saveResults(filename string, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.ResultsSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("resultsGenerated", stats.ResultsGenerated),
		logger.Int("resultsSubmitted", stats.ResultsSubmitted),
		logger.Int("resultsSuccessful", stats.ResultsSuccessful),
		logger.Int("resultsFailed", stats.ResultsFailed),
		logger.Int("boardsVerified", stats.BoardsVerified),
		logger.Int("historiesVerified", stats.HistoriesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("resultsPerSecond", perSecond),
	)
}
