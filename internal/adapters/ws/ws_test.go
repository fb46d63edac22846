package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type staticBoards map[string][]model.LeaderboardEntry

func (s staticBoards) Leaderboard(_ context.Context, gameType string) ([]model.LeaderboardEntry, error) {
	return s[gameType], nil
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func readUpdate(conn *websocket.Conn) (types.BoardUpdate, error) {
	var u types.BoardUpdate
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return u, err
	}
	err = json.Unmarshal(data, &u)
	return u, err
}

func TestHub(t *testing.T) {
	Convey("Given a running hub behind a websocket endpoint", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		hub := NewHub()
		hubDone := make(chan struct{})
		go func() {
			_ = hub.Run(ctx)
			close(hubDone)
		}()

		boards := staticBoards{
			"chess": {{PlayerName: "Ann", GameType: "chess", HighScore: 90, GamesPlayed: 3, Wins: 2}},
		}
		r := chi.NewRouter()
		r.Handle("/ws/leaderboard/{game_type}", NewHandler(hub, boards, []string{"http://localhost:3000"}))
		srv := httptest.NewServer(r)
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/leaderboard/"

		Reset(func() {
			cancel()
			<-hubDone
			srv.Close()
		})

		Convey("When a client subscribes to chess", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL+"chess", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then it receives the current board first", func() {
				u, err := readUpdate(conn)
				So(err, ShouldBeNil)
				So(u.Type, ShouldEqual, MessageTypeLeaderboard)
				So(u.GameType, ShouldEqual, "chess")
				So(u.Entries, ShouldHaveLength, 1)
				So(u.Entries[0].HighScore, ShouldEqual, 90)
			})

			Convey("Then chess broadcasts reach it and other rooms do not", func() {
				_, err := readUpdate(conn)
				So(err, ShouldBeNil)
				So(waitFor(func() bool { return hub.Clients("chess") == 1 }), ShouldBeTrue)

				So(hub.Broadcast("trivia", nil), ShouldBeNil)
				So(hub.Broadcast("chess", []model.LeaderboardEntry{
					{PlayerName: "Bob", GameType: "chess", HighScore: 120, GamesPlayed: 1, Wins: 1},
				}), ShouldBeNil)

				u, err := readUpdate(conn)
				So(err, ShouldBeNil)
				So(u.GameType, ShouldEqual, "chess")
				So(u.Entries[0].PlayerName, ShouldEqual, "Bob")
			})

			Convey("Then closing the connection removes it from the room", func() {
				So(waitFor(func() bool { return hub.Clients("chess") == 1 }), ShouldBeTrue)
				_ = conn.Close()
				So(waitFor(func() bool { return hub.Clients("") == 0 }), ShouldBeTrue)
			})

			Convey("Then stopping the hub closes the connection", func() {
				_, err := readUpdate(conn)
				So(err, ShouldBeNil)
				So(waitFor(func() bool { return hub.Clients("chess") == 1 }), ShouldBeTrue)
				cancel()
				_, err = readUpdate(conn)
				So(err, ShouldNotBeNil)
				So(hub.Broadcast("chess", nil), ShouldEqual, ErrHubClosed)
			})
		})

		Convey("When a client subscribes with an encoded game type", func() {
			boards["c++"] = []model.LeaderboardEntry{{PlayerName: "Cid", GameType: "c++", HighScore: 7, GamesPlayed: 1}}
			conn, _, err := websocket.DefaultDialer.Dial(wsURL+"c%2B%2B", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then it joins the decoded room and gets its board", func() {
				u, err := readUpdate(conn)
				So(err, ShouldBeNil)
				So(u.GameType, ShouldEqual, "c++")
				So(u.Entries, ShouldHaveLength, 1)
				So(u.Entries[0].PlayerName, ShouldEqual, "Cid")
				So(waitFor(func() bool { return hub.Clients("c++") == 1 }), ShouldBeTrue)
				So(hub.Clients("c%2B%2B"), ShouldEqual, 0)
			})
		})

		Convey("When an unknown game type is subscribed", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL+"ludo", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then the initial board is empty, not null", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"entries":[]`)
			})
		})

		Convey("When a foreign origin dials", func() {
			hdr := http.Header{"Origin": {"http://evil.example"}}
			_, resp, err := websocket.DefaultDialer.Dial(wsURL+"chess", hdr)

			Convey("Then the upgrade is refused", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			})
		})
	})
}

func TestCheckOrigin(t *testing.T) {
	Convey("Origin checks", t, func() {
		req := func(origin string) *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if origin != "" {
				r.Header.Set("Origin", origin)
			}
			return r
		}

		check := checkOrigin([]string{"http://localhost:3000"})
		So(check(req("http://localhost:3000")), ShouldBeTrue)
		So(check(req("HTTP://LOCALHOST:3000")), ShouldBeTrue)
		So(check(req("http://other:3000")), ShouldBeFalse)
		So(check(req("")), ShouldBeTrue)

		So(checkOrigin([]string{"*"})(req("http://any")), ShouldBeTrue)
	})
}
