package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitUp(base string) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/")
		if err == nil {
			_ = resp.Body.Close()
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestRun(t *testing.T) {
	convey.Convey("Given the application running on a sqlite store", t, func() {
		addr := freeAddr(t)
		t.Setenv("SCOREBOARD_ADDR", addr)
		t.Setenv("SCOREBOARD_STORE_BACKEND", "sqlite")
		t.Setenv("SCOREBOARD_SQLITE_PATH", filepath.Join(t.TempDir(), "scores.db"))
		t.Setenv("SCOREBOARD_DOTENV", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("SCOREBOARD_LOG_LEVEL", "error")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx) }()
		convey.Reset(func() {
			cancel()
			select {
			case err := <-done:
				if err != nil {
					t.Errorf("run: %v", err)
				}
			case <-time.After(10 * time.Second):
				t.Error("run did not return after cancel")
			}
		})

		base := "http://" + addr
		convey.So(waitUp(base), convey.ShouldBeTrue)

		convey.Convey("When a client watches chess and a result is posted", func() {
			conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/leaderboard/chess", nil)
			convey.So(err, convey.ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

			var initial types.BoardUpdate
			convey.So(conn.ReadJSON(&initial), convey.ShouldBeNil)
			convey.So(initial.Entries, convey.ShouldBeEmpty)

			body := `{"game_type":"chess","player_id":"p1","player_name":"Ann","score":12,"duration":300,"winner":true}`
			resp, err := http.Post(base+"/api/games/result", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			convey.Convey("Then the subscriber receives the new board", func() {
				var update types.BoardUpdate
				convey.So(conn.ReadJSON(&update), convey.ShouldBeNil)
				convey.So(update.Type, convey.ShouldEqual, "leaderboard")
				convey.So(update.Entries, convey.ShouldResemble, []types.LeaderboardEntry{
					{PlayerName: "Ann", GameType: "chess", HighScore: 12, GamesPlayed: 1, Wins: 1},
				})
			})

			convey.Convey("Then the leaderboard endpoint agrees", func() {
				resp, err := http.Get(base + "/api/leaderboard/chess")
				convey.So(err, convey.ShouldBeNil)
				defer resp.Body.Close()
				var got []types.LeaderboardEntry
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got, convey.ShouldHaveLength, 1)
				convey.So(got[0].HighScore, convey.ShouldEqual, 12)
			})
		})

		convey.Convey("The API docs are served", func() {
			resp, err := http.Get(base + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestRunRejectsBadConfig(t *testing.T) {
	convey.Convey("Given an unknown store backend", t, func() {
		t.Setenv("SCOREBOARD_STORE_BACKEND", "cassandra")
		t.Setenv("SCOREBOARD_DOTENV", filepath.Join(t.TempDir(), "missing.env"))

		convey.Convey("Then run fails before serving", func() {
			convey.So(run(context.Background()), convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		svc := service.New()
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()
		q := queue.NewInMemoryQueue(queue.WithCapacity(37))

		convey.Convey("Then the updaters return when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx, metrics.RefreshInterval()) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, metrics.RefreshInterval(), svc, q) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the service updater ticks at the given interval", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			startServiceMetricsUpdater(ctx, 10*time.Millisecond, svc, q)

			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			capacity := -1.0
			for _, f := range families {
				if f.GetName() == "scoreboard_notify_queue_capacity" {
					capacity = f.GetMetric()[0].GetGauge().GetValue()
				}
			}
			convey.So(capacity, convey.ShouldEqual, 37)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(context.Background(), svc, q) }, convey.ShouldNotPanic)
		})
	})
}
