package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/scoreboard/internal/adapters/mq/worker"
	model "github.com/okian/scoreboard/internal/domain/model"
	logging "github.com/okian/scoreboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockSource struct {
	ch chan model.Change
}

func newMockSource() *mockSource {
	return &mockSource{ch: make(chan model.Change, 16)}
}

func (m *mockSource) Dequeue(ctx context.Context) <-chan model.Change {
	return m.ch
}

func (m *mockSource) add(gameType string) {
	m.ch <- model.Change{GameType: gameType, PlayerName: "Ann", At: time.Now()}
}

type mockBoards struct {
	mu     sync.Mutex
	boards map[string][]model.LeaderboardEntry
	errs   map[string]error
}

func newMockBoards() *mockBoards {
	return &mockBoards{
		boards: make(map[string][]model.LeaderboardEntry),
		errs:   make(map[string]error),
	}
}

func (m *mockBoards) Leaderboard(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[gameType]; ok {
		return nil, err
	}
	return m.boards[gameType], nil
}

func (m *mockBoards) set(gameType string, entries ...model.LeaderboardEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[gameType] = entries
}

func (m *mockBoards) fail(gameType string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[gameType] = err
}

type broadcast struct {
	gameType string
	entries  []model.LeaderboardEntry
}

type mockBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (m *mockBroadcaster) Broadcast(gameType string, entries []model.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, broadcast{gameType: gameType, entries: entries})
	return nil
}

func (m *mockBroadcaster) count(gameType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.sent {
		if b.gameType == gameType {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) last(gameType string) (broadcast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].gameType == gameType {
			return m.sent[i], true
		}
	}
	return broadcast{}, false
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		source := newMockSource()
		boards := newMockBoards()
		out := &mockBroadcaster{}

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(source, boards, out, worker.WithName("test"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a change arrives", func() {
				boards.set("chess", model.LeaderboardEntry{PlayerName: "Ann", GameType: "chess", HighScore: 10, GamesPlayed: 1})
				source.add("chess")

				convey.Convey("Then the current board is broadcast", func() {
					convey.So(eventually(func() bool { return out.count("chess") == 1 }), convey.ShouldBeTrue)
					b, _ := out.last("chess")
					convey.So(b.entries, convey.ShouldHaveLength, 1)
					convey.So(b.entries[0].PlayerName, convey.ShouldEqual, "Ann")
				})
			})

			convey.Convey("And reading the board fails", func() {
				boards.fail("trivia", errors.New("store down"))
				source.add("trivia")
				source.add("chess")

				convey.Convey("Then nothing is sent for that game and the worker keeps going", func() {
					convey.So(eventually(func() bool { return out.count("chess") == 1 }), convey.ShouldBeTrue)
					convey.So(out.count("trivia"), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()

				convey.Convey("Then it stops gracefully, twice", func() {
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When a worker never ran", func() {
			w := worker.NewInMemoryWorker(source, boards, out)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			convey.Convey("Then Shutdown reports the timeout", func() {
				err := w.Shutdown(ctx)
				convey.So(errors.Is(err, worker.ErrShutdownTimeout), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a notifier pool", t, func() {
		_ = logging.Init()

		source := newMockSource()
		boards := newMockBoards()
		out := &mockBroadcaster{}

		convey.Convey("When created with a default count", func() {
			pool := worker.NewPool(0, source, boards, out)

			convey.Convey("Then it has at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When running with several workers", func() {
			pool := worker.NewPool(3, source, boards, out)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- pool.Run(ctx) }()

			for _, g := range []string{"chess", "trivia", "ludo", "chess"} {
				boards.set(g, model.LeaderboardEntry{PlayerName: "Ann", GameType: g})
				source.add(g)
			}

			convey.Convey("Then every change is broadcast", func() {
				convey.So(eventually(func() bool {
					return out.count("chess") == 2 && out.count("trivia") == 1 && out.count("ludo") == 1
				}), convey.ShouldBeTrue)
			})

			convey.Convey("Then Run returns once the source closes", func() {
				close(source.ch)
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(2 * time.Second):
					convey.So("pool did not stop", convey.ShouldBeEmpty)
				}
			})

			convey.Convey("Then Shutdown stops the workers", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				cancel()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					convey.So("pool did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
