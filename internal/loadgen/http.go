package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET and decodes a 200 response into dst.
func (c *HTTPClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if dst == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// postJSON sends body as JSON and decodes a 200 response into dst.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, dst any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (c *HTTPClient) leaderboard(ctx context.Context, gameType string) ([]types.LeaderboardEntry, error) {
	var out []types.LeaderboardEntry
	err := c.getJSON(ctx, "/api/leaderboard/"+url.PathEscape(gameType), &out)
	return out, err
}

func (c *HTTPClient) history(ctx context.Context, playerID string) ([]types.GameRecord, error) {
	var out []types.GameRecord
	err := c.getJSON(ctx, "/api/games/history/"+url.PathEscape(playerID), &out)
	return out, err
}

// submitResults posts results concurrently. Results are handed to workers in
// order but may be stored in any order.
func submitResults(ctx context.Context, config *Config, client *HTTPClient, results []Result, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting results", logger.Int("results", len(results)), logger.Int("workers", config.Workers))

	var (
		submitted  atomic.Int64
		successful atomic.Int64
		failed     atomic.Int64
	)

	jobs := make(chan Result, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				var ack types.SubmitResponse
				err := client.postJSON(ctx, "/api/games/result", r, &ack)
				submitted.Add(1)
				if err != nil || ack.ID == "" {
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "submit failed", logger.String("player_id", r.PlayerID), logger.Error(err))
					}
					continue
				}
				successful.Add(1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(results)),
					logger.Int64("failed", failed.Load()),
				)
			}
		}
	}()

feed:
	for _, r := range results {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- r:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)

	stats.ResultsSubmitted = int(submitted.Load())
	stats.ResultsSuccessful = int(successful.Load())
	stats.ResultsFailed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.ResultsSuccessful),
		logger.Int("failed", stats.ResultsFailed),
	)
	return ctx.Err()
}
