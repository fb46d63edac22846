// Package leaderboard holds the aggregation rule that folds game results into
// per-player statistics, and the orderings used when reading them back.
//
// Nothing here touches storage: backends persist whatever Fold returns, so a
// new backend never has to reimplement the rule.
package leaderboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/scoreboard/internal/domain/model"
)

// ErrInvalidResult reports a result that is missing a required field.
var ErrInvalidResult = errors.New("invalid game result")

// Validate checks the fields the aggregation depends on. Score and duration are
// not range checked.
func Validate(r model.GameResult) error {
	switch {
	case strings.TrimSpace(r.GameType) == "":
		return fmt.Errorf("%w: missing game_type", ErrInvalidResult)
	case strings.TrimSpace(r.PlayerID) == "":
		return fmt.Errorf("%w: missing player_id", ErrInvalidResult)
	case strings.TrimSpace(r.PlayerName) == "":
		return fmt.Errorf("%w: missing player_name", ErrInvalidResult)
	}
	return nil
}

// Fold applies r to the entry for its key. When found is false, existing is
// ignored and a new entry is started from r.
func Fold(existing model.LeaderboardEntry, found bool, r model.GameResult) model.LeaderboardEntry {
	if !found {
		e := model.LeaderboardEntry{
			PlayerName:  r.PlayerName,
			GameType:    r.GameType,
			HighScore:   r.Score,
			GamesPlayed: 1,
		}
		if r.Winner {
			e.Wins = 1
		}
		return e
	}

	e := existing
	e.GamesPlayed++
	e.HighScore = max(e.HighScore, r.Score)
	if r.Winner {
		e.Wins++
	}
	return e
}

// CompareRank orders entries for display: high score descending, then player
// name ascending.
func CompareRank(a, b model.LeaderboardEntry) int {
	switch {
	case a.HighScore > b.HighScore:
		return -1
	case a.HighScore < b.HighScore:
		return 1
	}
	return strings.Compare(a.PlayerName, b.PlayerName)
}

// Rank returns the entries of gameType in ranked order. The input is not
// modified; the result is never nil.
func Rank(entries []model.LeaderboardEntry, gameType string) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.GameType == gameType {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, CompareRank)
	return out
}

// CompareHistory orders records most recent first. Equal timestamps fall back
// to insertion order reversed.
func CompareHistory(a, b model.Record) int {
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.Seq > b.Seq:
		return -1
	case a.Seq < b.Seq:
		return 1
	}
	return 0
}

// History returns the records of playerID, most recent first. The input is not
// modified; the result is never nil.
func History(records []model.Record, playerID string) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, CompareHistory)
	return out
}
