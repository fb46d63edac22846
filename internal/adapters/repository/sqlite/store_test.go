package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/adapters/repository/storetest"
	"github.com/okian/scoreboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		s, err := Open(filepath.Join(t.TempDir(), "board.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return s
	})
}

func TestInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		s, err := Open(MemoryPath)
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return s
	})
}

func TestReopen(t *testing.T) {
	Convey("Given a database file with one committed result", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "board.db")
		at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

		s, err := Open(path)
		So(err, ShouldBeNil)
		r := model.GameResult{GameType: "chess", PlayerID: "p1", PlayerName: "Ann", Score: -4, Duration: 61, Winner: true}
		err = s.Commit(ctx, model.Record{ID: "r1", Seq: 1, Timestamp: at, GameResult: r},
			model.LeaderboardEntry{PlayerName: "Ann", GameType: "chess", HighScore: -4, GamesPlayed: 1, Wins: 1})
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is opened again", func() {
			s, err := Open(path)
			So(err, ShouldBeNil)
			defer s.Close()

			Convey("Then the record survives with full timestamp precision", func() {
				rec, found, err := s.LastRecord(ctx)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(rec.Timestamp.Equal(at), ShouldBeTrue)
				So(rec.GameResult, ShouldResemble, r)
				So(rec.Seq, ShouldEqual, 1)
			})
		})
	})
}

func TestOpenRejectsBlankPath(t *testing.T) {
	Convey("Open with a blank path fails", t, func() {
		_, err := Open("  ")
		So(err, ShouldNotBeNil)
	})
}

func TestClosedStore(t *testing.T) {
	Convey("Given a closed store", t, func() {
		s, err := Open(MemoryPath)
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("Then calls report ErrClosed and Close stays idempotent", func() {
			_, err := s.Counts(context.Background())
			So(err, ShouldEqual, repository.ErrClosed)
			So(s.Close(), ShouldBeNil)
		})
	})
}
