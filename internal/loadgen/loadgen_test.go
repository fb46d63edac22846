package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/http/api"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

func TestGenerateResults(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := &Config{NumResults: 300, Players: 40, Games: []string{"chess", "trivia"}, Seed: 7}
		stats := &Stats{}

		Convey("Then results cover the configured players and suffixed games", func() {
			results, games, err := generateResults(context.Background(), cfg, stats)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 300)
			So(stats.ResultsGenerated, ShouldEqual, 300)
			So(games, ShouldHaveLength, 2)
			So(games[0], ShouldStartWith, "chess-")
			So(strings.TrimPrefix(games[1], "trivia-"), ShouldEqual, strings.TrimPrefix(games[0], "chess-"))

			ids := make(map[string]struct{})
			for _, r := range results {
				So(r.GameType == games[0] || r.GameType == games[1], ShouldBeTrue)
				So(r.Duration, ShouldBeGreaterThan, 0)
				So(r.PlayerName, ShouldNotBeBlank)
				ids[r.PlayerID] = struct{}{}
			}
			So(len(ids), ShouldBeLessThanOrEqualTo, 40)
		})

		Convey("Then the same seed yields the same players", func() {
			a, _, err := generateResults(context.Background(), cfg, stats)
			So(err, ShouldBeNil)
			b, _, err := generateResults(context.Background(), cfg, stats)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, a)

			other, _, err := generateResults(context.Background(), &Config{NumResults: 300, Players: 40, Games: []string{"chess", "trivia"}, Seed: 8}, stats)
			So(err, ShouldBeNil)
			So(other[0].PlayerID, ShouldNotEqual, a[0].PlayerID)
		})

		Convey("Then an empty config is rejected", func() {
			_, _, err := generateResults(context.Background(), &Config{}, stats)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestExpectedBoards(t *testing.T) {
	Convey("Given results from two ids sharing a name", t, func() {
		results := []Result{
			{GameType: "g", PlayerID: "a", PlayerName: "Bob", Score: 10, Winner: true},
			{GameType: "g", PlayerID: "b", PlayerName: "Bob", Score: 30},
			{GameType: "g", PlayerID: "c", PlayerName: "Ann", Score: 30, Winner: true},
		}

		Convey("Then the board folds by name and ranks ties by name", func() {
			board := expectedBoards(results, []string{"g", "empty"})
			So(board["g"], ShouldHaveLength, 2)
			So(board["g"][0].PlayerName, ShouldEqual, "Ann")
			So(board["g"][1].PlayerName, ShouldEqual, "Bob")
			So(board["g"][1].GamesPlayed, ShouldEqual, 2)
			So(board["g"][1].Wins, ShouldEqual, 1)
			So(board["empty"], ShouldBeEmpty)
		})
	})
}

func TestRunAgainstServer(t *testing.T) {
	Convey("Given a scoreboard behind httptest", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc).Handler(context.Background(), nil))
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		out := filepath.Join(t.TempDir(), "out", "results.json")
		cfg := &Config{
			BaseURL:    srv.URL,
			NumResults: 400,
			Players:    30,
			Games:      []string{"chess", "darts"},
			Workers:    8,
			Timeout:    5 * time.Second,
			OutputFile: out,
			Seed:       11,
		}

		Convey("Then every board and sampled history matches", func() {
			stats, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(stats.ResultsSuccessful, ShouldEqual, 400)
			So(stats.ResultsFailed, ShouldEqual, 0)
			So(stats.BoardsVerified, ShouldEqual, 2)
			So(stats.HistoriesVerified, ShouldBeGreaterThan, 0)

			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			var saved []Result
			So(json.Unmarshal(data, &saved), ShouldBeNil)
			So(saved, ShouldHaveLength, 400)
		})
	})
}

func TestRunReservedGameNames(t *testing.T) {
	Convey("Given game types with reserved path characters", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc).Handler(context.Background(), nil))
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		cfg := &Config{
			BaseURL:    srv.URL,
			NumResults: 60,
			Players:    6,
			Games:      []string{"c++", "a,b;c", "50% off"},
			Workers:    4,
			Timeout:    5 * time.Second,
			Seed:       5,
		}

		Convey("Then boards and histories still verify", func() {
			stats, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(stats.ResultsSuccessful, ShouldEqual, 60)
			So(stats.BoardsVerified, ShouldEqual, 3)
			So(stats.HistoriesVerified, ShouldBeGreaterThan, 0)
		})
	})
}

func TestRunUnhealthy(t *testing.T) {
	Convey("Given a server whose health check fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		Reset(srv.Close)

		Convey("Then Run stops before submitting", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Workers: 1, NumResults: 1, Players: 1, Games: []string{"g"}, Timeout: time.Second})
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
			So(stats.ResultsSubmitted, ShouldEqual, 0)
		})
	})
}

func TestRunGames(t *testing.T) {
	Convey("Given two runs", t, func() {
		a := runGames([]string{"chess"}, rand.New(rand.NewPCG(1, 2)))
		b := runGames([]string{"chess"}, rand.New(rand.NewPCG(3, 4)))

		Convey("Then their game types differ", func() {
			So(a[0], ShouldNotEqual, b[0])
		})
	})
}
