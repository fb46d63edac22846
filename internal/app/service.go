// Package service owns the leaderboard store and applies submissions to it one
// at a time. The HTTP API, the notifier and the exporters all go through it.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/adapters/repository/memory"
	"github.com/okian/scoreboard/internal/domain/leaderboard"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Notifier receives a Change after every successful submit. Enqueue must not
// block; an error means the change was dropped.
type Notifier interface {
	Enqueue(ctx context.Context, c model.Change) error
}

// Stats summarizes the service for /stats.
type Stats struct {
	Started bool   `json:"started"`
	Backend string `json:"backend"`
	Results int    `json:"results"`
	Entries int    `json:"entries"`
}

// Service serializes submissions and answers leaderboard and history queries.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	backend  string
	notifier Notifier
	now      func() time.Time
	newID    func() (string, error)

	// seq and last are the sequence and timestamp of the newest record.
	seq  int64
	last time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Without WithStore it uses an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		now:   time.Now,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = memory.New()
		s.backend = repository.BackendMemory
	}
	return s
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Start seeds the sequence and clock from the newest stored record.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	last, found, err := s.store.LastRecord(ctx)
	if err != nil {
		return fmt.Errorf("read last record: %w", err)
	}
	if found {
		s.seq = last.Seq
		s.last = last.Timestamp
	}

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count stored state: %w", err)
	}
	metrics.UpdateTotals(counts.Results, counts.Entries)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("backend", s.backend),
		logger.Int("results", counts.Results),
		logger.Int("entries", counts.Entries),
	)
	return nil
}

// Stop closes the store. Later calls fail with ErrNotStarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "close store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

// Submit stores r and folds it into its leaderboard entry as one unit, and
// returns the new record id.
func (s *Service) Submit(ctx context.Context, r model.GameResult) (string, error) {
	start := time.Now()
	if err := leaderboard.Validate(r); err != nil {
		metrics.RecordSubmitError("invalid")
		return "", err
	}

	rec, err := s.commit(ctx, r)
	if err != nil {
		return "", err
	}

	metrics.RecordResultSubmitted(r.GameType)
	metrics.RecordSubmitLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.notify(ctx, model.Change{GameType: r.GameType, PlayerName: r.PlayerName, At: rec.Timestamp})
	return rec.ID, nil
}

func (s *Service) commit(ctx context.Context, r model.GameResult) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.Record{}, ErrNotStarted
	}

	id, err := s.newID()
	if err != nil {
		metrics.RecordSubmitError("id_generation")
		s.logger.Error(ctx, "generate result id", logger.Error(err))
		return model.Record{}, fmt.Errorf("%w: %w", ErrIDGeneration, err)
	}

	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}

	prev, found, err := s.store.Entry(ctx, model.KeyOf(r))
	if err != nil {
		metrics.RecordSubmitError("store")
		return model.Record{}, fmt.Errorf("read entry: %w", err)
	}

	rec := model.Record{ID: id, Timestamp: ts, Seq: s.seq + 1, GameResult: r}
	if err := s.store.Commit(ctx, rec, leaderboard.Fold(prev, found, r)); err != nil {
		metrics.RecordSubmitError("store")
		return model.Record{}, fmt.Errorf("commit result: %w", err)
	}

	s.seq = rec.Seq
	s.last = ts
	return rec, nil
}

func (s *Service) notify(ctx context.Context, c model.Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, c); err != nil {
		s.logger.Debug(ctx, "leaderboard change dropped",
			logger.String("game_type", c.GameType),
			logger.Error(err),
		)
	}
}

// Leaderboard returns the ranked entries of gameType; empty, never nil, when
// the game type is unknown.
func (s *Service) Leaderboard(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency("leaderboard", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	entries, err := s.store.Entries(ctx, gameType)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return leaderboard.Rank(entries, gameType), nil
}

// History returns playerID's records, most recent first; empty, never nil,
// when the player is unknown.
func (s *Service) History(ctx context.Context, playerID string) ([]model.Record, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency("history", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	records, err := s.store.Results(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return leaderboard.History(records, playerID), nil
}

// Stats reports stored counts and refreshes the matching gauges.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Started: s.started, Backend: s.backend}
	if !s.started {
		return st, nil
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return st, fmt.Errorf("count stored state: %w", err)
	}
	st.Results = counts.Results
	st.Entries = counts.Entries
	metrics.UpdateTotals(counts.Results, counts.Entries)
	return st, nil
}
