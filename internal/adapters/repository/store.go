// Package repository defines the storage contract for game results and the
// materialized leaderboard, plus helpers shared by the SQL backends.
package repository

import (
	"context"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Backend names accepted by configuration.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Counts summarizes the stored state.
type Counts struct {
	Results int
	Entries int
}

// Store persists the append-only result log and the leaderboard entries
// derived from it. Implementations do not aggregate: callers pass the already
// folded entry to Commit.
type Store interface {
	// Commit appends rec to the result log and writes entry, replacing any
	// entry with the same key, as one unit. Either both land or neither does.
	Commit(ctx context.Context, rec model.Record, entry model.LeaderboardEntry) error

	// Entry returns the entry for key; found is false when none exists.
	Entry(ctx context.Context, key model.Key) (entry model.LeaderboardEntry, found bool, err error)

	// Entries returns every entry of gameType. Order is backend specific.
	Entries(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error)

	// Results returns every record of playerID in insertion order.
	Results(ctx context.Context, playerID string) ([]model.Record, error)

	// LastRecord returns the most recently appended record; found is false
	// when the log is empty.
	LastRecord(ctx context.Context) (rec model.Record, found bool, err error)

	// Counts returns the number of stored results and entries.
	Counts(ctx context.Context) (Counts, error)

	// Close releases backend resources.
	Close() error
}
