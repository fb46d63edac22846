package loadgen

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/scoreboard/internal/domain/leaderboard"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

const historySample = 20

func toModel(r Result) model.GameResult {
	return model.GameResult{
		GameType:   r.GameType,
		PlayerID:   r.PlayerID,
		PlayerName: r.PlayerName,
		Score:      r.Score,
		Duration:   r.Duration,
		Winner:     r.Winner,
	}
}

// expectedBoards folds results into the ranked board per game type.
func expectedBoards(results []Result, games []string) map[string][]types.LeaderboardEntry {
	folded := make(map[model.Key]model.LeaderboardEntry)
	for _, r := range results {
		g := toModel(r)
		k := model.KeyOf(g)
		e, ok := folded[k]
		folded[k] = leaderboard.Fold(e, ok, g)
	}
	flat := make([]model.LeaderboardEntry, 0, len(folded))
	for _, e := range folded {
		flat = append(flat, e)
	}

	out := make(map[string][]types.LeaderboardEntry, len(games))
	for _, g := range games {
		out[g] = types.FromEntries(leaderboard.Rank(flat, g))
	}
	return out
}

// verifyBoards compares every served board with the local fold.
func verifyBoards(ctx context.Context, client *HTTPClient, results []Result, games []string, stats *Stats) error {
	want := expectedBoards(results, games)
	for _, g := range games {
		got, err := client.leaderboard(ctx, g)
		if err != nil {
			return fmt.Errorf("leaderboard %s: %w", g, err)
		}
		if !slices.Equal(got, want[g]) {
			return fmt.Errorf("%w: board %s has %d entries, want %d", ErrMismatch, g, len(got), len(want[g]))
		}
		stats.BoardsVerified++
		logger.Get().Info(ctx, "board verified", logger.String("game_type", g), logger.Int("entries", len(got)))
	}
	return nil
}

// verifyHistories checks that a sample of players has every submitted
// result, newest first.
func verifyHistories(ctx context.Context, client *HTTPClient, results []Result, stats *Stats) error {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, r := range results {
		if counts[r.PlayerID] == 0 {
			order = append(order, r.PlayerID)
		}
		counts[r.PlayerID]++
	}

	for _, id := range order[:min(historySample, len(order))] {
		got, err := client.history(ctx, id)
		if err != nil {
			return fmt.Errorf("history %s: %w", id, err)
		}
		if len(got) != counts[id] {
			return fmt.Errorf("%w: player %s has %d results, want %d", ErrMismatch, id, len(got), counts[id])
		}
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp.After(got[i-1].Timestamp) {
				return fmt.Errorf("%w: history of %s is not newest first", ErrMismatch, id)
			}
		}
		stats.HistoriesVerified++
	}
	return nil
}
