// Package memory provides the in-process repository.Store backend. State lives
// for the lifetime of the process and is dropped on Close.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
)

// Store keeps the result log in a slice and the leaderboard in a map, with a
// treap per game type so Entries comes back already ranked.
type Store struct {
	mu       sync.RWMutex
	results  []model.Record
	ids      map[string]struct{}
	byPlayer map[string][]int // player id -> indexes into results
	entries  map[model.Key]model.LeaderboardEntry
	boards   map[string]*board
	closed   bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		ids:      make(map[string]struct{}),
		byPlayer: make(map[string][]int),
		entries:  make(map[model.Key]model.LeaderboardEntry),
		boards:   make(map[string]*board),
	}
}

// Commit implements repository.Store.
func (s *Store) Commit(ctx context.Context, rec model.Record, entry model.LeaderboardEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.GameType != entry.GameType || rec.PlayerName != entry.PlayerName {
		return fmt.Errorf("%w: entry key %v does not match record key %v", repository.ErrStore, entry.Key(), model.KeyOf(rec.GameResult))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return repository.ErrClosed
	}
	if _, dup := s.ids[rec.ID]; dup {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateID, rec.ID)
	}

	s.ids[rec.ID] = struct{}{}
	s.results = append(s.results, rec)
	s.byPlayer[rec.PlayerID] = append(s.byPlayer[rec.PlayerID], len(s.results)-1)

	key := entry.Key()
	old, found := s.entries[key]
	s.entries[key] = entry

	b, ok := s.boards[key.GameType]
	if !ok {
		b = &board{}
		s.boards[key.GameType] = b
	}
	b.move(key.PlayerName, old.HighScore, found, entry.HighScore)
	return nil
}

// Entry implements repository.Store.
func (s *Store) Entry(ctx context.Context, key model.Key) (model.LeaderboardEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.LeaderboardEntry{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.LeaderboardEntry{}, false, repository.ErrClosed
	}
	e, ok := s.entries[key]
	return e, ok, nil
}

// Entries implements repository.Store. Entries are returned in rank order.
func (s *Store) Entries(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	b, ok := s.boards[gameType]
	if !ok {
		return []model.LeaderboardEntry{}, nil
	}
	out := make([]model.LeaderboardEntry, 0, b.len())
	collect(b.root, gameType, s.entries, &out)
	return out, nil
}

// Results implements repository.Store.
func (s *Store) Results(ctx context.Context, playerID string) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	idx := s.byPlayer[playerID]
	out := make([]model.Record, len(idx))
	for i, j := range idx {
		out[i] = s.results[j]
	}
	return out, nil
}

// LastRecord implements repository.Store.
func (s *Store) LastRecord(ctx context.Context) (model.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Record{}, false, repository.ErrClosed
	}
	if len(s.results) == 0 {
		return model.Record{}, false, nil
	}
	return s.results[len(s.results)-1], true, nil
}

// Counts implements repository.Store.
func (s *Store) Counts(ctx context.Context) (repository.Counts, error) {
	if err := ctx.Err(); err != nil {
		return repository.Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Counts{Results: len(s.results), Entries: len(s.entries)}, nil
}

// Close drops all state. Later calls fail with repository.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.results = nil
	s.ids = nil
	s.byPlayer = nil
	s.entries = nil
	s.boards = nil
	return nil
}
