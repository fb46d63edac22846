// Package sqlstore implements repository.Store over database/sql. The SQLite
// and PostgreSQL backends share it and differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	// Name is the backend name used in errors and metrics.
	Name string
	// Numbered switches "?" placeholders to "$1", "$2", ...
	Numbered bool
	// IsDuplicate reports whether err is a unique constraint violation.
	IsDuplicate func(error) bool
}

const (
	insertResult = `INSERT INTO game_results
		(seq, id, recorded_at, game_type, player_id, player_name, score, duration, winner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	upsertEntry = `INSERT INTO leaderboard_entries
		(game_type, player_name, high_score, games_played, wins)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_type, player_name) DO UPDATE SET
			high_score = excluded.high_score,
			games_played = excluded.games_played,
			wins = excluded.wins`

	selectEntry = `SELECT player_name, game_type, high_score, games_played, wins
		FROM leaderboard_entries WHERE game_type = ? AND player_name = ?`

	selectEntries = `SELECT player_name, game_type, high_score, games_played, wins
		FROM leaderboard_entries WHERE game_type = ?
		ORDER BY high_score DESC, player_name ASC`

	resultColumns = `seq, id, recorded_at, game_type, player_id, player_name, score, duration, winner`

	selectResults = `SELECT ` + resultColumns + ` FROM game_results WHERE player_id = ? ORDER BY seq ASC`

	selectLast = `SELECT ` + resultColumns + ` FROM game_results ORDER BY seq DESC LIMIT 1`

	countResults = `SELECT COUNT(*) FROM game_results`
	countEntries = `SELECT COUNT(*) FROM leaderboard_entries`
)

// Store is a repository.Store on a *sql.DB whose schema is already migrated.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       map[string]string
	closed  atomic.Bool
}

var _ repository.Store = (*Store)(nil)

// New wraps db. The Store owns db and closes it on Close.
func New(db *sql.DB, d Dialect) *Store {
	s := &Store{db: db, dialect: d, q: make(map[string]string)}
	for _, q := range []string{insertResult, upsertEntry, selectEntry, selectEntries, selectResults, selectLast, countResults, countEntries} {
		s.q[q] = s.bind(q)
	}
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) bind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) fail(op string, err error) error {
	metrics.RecordStoreError(s.dialect.Name, op)
	return fmt.Errorf("%w: %s %s: %w", repository.ErrStore, s.dialect.Name, op, err)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return repository.ErrClosed
	}
	return nil
}

// Commit implements repository.Store in a single transaction.
func (s *Store) Commit(ctx context.Context, rec model.Record, entry model.LeaderboardEntry) (err error) {
	if err := s.check(ctx); err != nil {
		return err
	}
	if rec.GameType != entry.GameType || rec.PlayerName != entry.PlayerName {
		return fmt.Errorf("%w: entry key %v does not match record key %v", repository.ErrStore, entry.Key(), model.KeyOf(rec.GameResult))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, s.q[insertResult],
		rec.Seq, rec.ID, rec.Timestamp.UnixNano(),
		rec.GameType, rec.PlayerID, rec.PlayerName,
		rec.Score, rec.Duration, rec.Winner,
	)
	if err != nil {
		if s.dialect.IsDuplicate != nil && s.dialect.IsDuplicate(err) {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateID, rec.ID)
		}
		return s.fail("insert result", err)
	}

	_, err = tx.ExecContext(ctx, s.q[upsertEntry],
		entry.GameType, entry.PlayerName, entry.HighScore, entry.GamesPlayed, entry.Wins,
	)
	if err != nil {
		return s.fail("upsert entry", err)
	}

	if err = tx.Commit(); err != nil {
		return s.fail("commit", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	err := row.Scan(&e.PlayerName, &e.GameType, &e.HighScore, &e.GamesPlayed, &e.Wins)
	return e, err
}

func scanRecord(row scanner) (model.Record, error) {
	var (
		r  model.Record
		ns int64
	)
	err := row.Scan(&r.Seq, &r.ID, &ns, &r.GameType, &r.PlayerID, &r.PlayerName, &r.Score, &r.Duration, &r.Winner)
	if err != nil {
		return model.Record{}, err
	}
	r.Timestamp = time.Unix(0, ns).UTC()
	return r, nil
}

// Entry implements repository.Store.
func (s *Store) Entry(ctx context.Context, key model.Key) (model.LeaderboardEntry, bool, error) {
	if err := s.check(ctx); err != nil {
		return model.LeaderboardEntry{}, false, err
	}
	e, err := scanEntry(s.db.QueryRowContext(ctx, s.q[selectEntry], key.GameType, key.PlayerName))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeaderboardEntry{}, false, nil
	}
	if err != nil {
		return model.LeaderboardEntry{}, false, s.fail("get entry", err)
	}
	return e, true, nil
}

// Entries implements repository.Store. Rows come back in rank order.
func (s *Store) Entries(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q[selectEntries], gameType)
	if err != nil {
		return nil, s.fail("list entries", err)
	}
	defer rows.Close()

	out := make([]model.LeaderboardEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, s.fail("scan entry", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list entries", err)
	}
	return out, nil
}

// Results implements repository.Store.
func (s *Store) Results(ctx context.Context, playerID string) ([]model.Record, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q[selectResults], playerID)
	if err != nil {
		return nil, s.fail("list results", err)
	}
	defer rows.Close()

	out := make([]model.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, s.fail("scan result", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list results", err)
	}
	return out, nil
}

// LastRecord implements repository.Store.
func (s *Store) LastRecord(ctx context.Context) (model.Record, bool, error) {
	if err := s.check(ctx); err != nil {
		return model.Record{}, false, err
	}
	r, err := scanRecord(s.db.QueryRowContext(ctx, s.q[selectLast]))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, false, nil
	}
	if err != nil {
		return model.Record{}, false, s.fail("last result", err)
	}
	return r, true, nil
}

// Counts implements repository.Store.
func (s *Store) Counts(ctx context.Context) (repository.Counts, error) {
	if err := s.check(ctx); err != nil {
		return repository.Counts{}, err
	}
	var c repository.Counts
	if err := s.db.QueryRowContext(ctx, s.q[countResults]).Scan(&c.Results); err != nil {
		return repository.Counts{}, s.fail("count results", err)
	}
	if err := s.db.QueryRowContext(ctx, s.q[countEntries]).Scan(&c.Entries); err != nil {
		return repository.Counts{}, s.fail("count entries", err)
	}
	return c, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
