// Package storetest runs the behaviour every repository.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/leaderboard"
	"github.com/okian/scoreboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) repository.Store

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// feeder plays the role of the service: it folds and commits results in order.
type feeder struct {
	s   repository.Store
	seq int64
}

func (f *feeder) submit(ctx context.Context, r model.GameResult) (model.Record, error) {
	prev, found, err := f.s.Entry(ctx, model.KeyOf(r))
	if err != nil {
		return model.Record{}, err
	}
	f.seq++
	rec := model.Record{
		ID:         fmt.Sprintf("id-%04d", f.seq),
		Timestamp:  base.Add(time.Duration(f.seq) * time.Millisecond),
		Seq:        f.seq,
		GameResult: r,
	}
	return rec, f.s.Commit(ctx, rec, leaderboard.Fold(prev, found, r))
}

// Run exercises newStore against the Store contract.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore(t)
		f := &feeder{s: s}
		Reset(func() { _ = s.Close() })

		Convey("Reads return empty results", func() {
			_, found, err := s.Entry(ctx, model.Key{PlayerName: "Ann", GameType: "chess"})
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)

			entries, err := s.Entries(ctx, "chess")
			So(err, ShouldBeNil)
			So(entries, ShouldNotBeNil)
			So(entries, ShouldBeEmpty)

			results, err := s.Results(ctx, "p1")
			So(err, ShouldBeNil)
			So(results, ShouldNotBeNil)
			So(results, ShouldBeEmpty)

			_, found, err = s.LastRecord(ctx)
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)

			c, err := s.Counts(ctx)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, repository.Counts{})
		})

		Convey("When Ann plays trivia twice", func() {
			_, err := f.submit(ctx, model.GameResult{GameType: "trivia", PlayerID: "p1", PlayerName: "Ann", Score: 50, Duration: 30, Winner: true})
			So(err, ShouldBeNil)
			last, err := f.submit(ctx, model.GameResult{GameType: "trivia", PlayerID: "p1", PlayerName: "Ann", Score: 80, Duration: 20})
			So(err, ShouldBeNil)

			Convey("Then the entry aggregates both", func() {
				e, found, err := s.Entry(ctx, model.Key{PlayerName: "Ann", GameType: "trivia"})
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(e, ShouldResemble, model.LeaderboardEntry{PlayerName: "Ann", GameType: "trivia", HighScore: 80, GamesPlayed: 2, Wins: 1})
			})

			Convey("Then both records are kept in insertion order", func() {
				rs, err := s.Results(ctx, "p1")
				So(err, ShouldBeNil)
				So(rs, ShouldHaveLength, 2)
				So(rs[0].Score, ShouldEqual, 50)
				So(rs[1].Score, ShouldEqual, 80)
				So(rs[1].ID, ShouldEqual, last.ID)
				So(rs[1].Seq, ShouldEqual, last.Seq)
				So(rs[1].Duration, ShouldEqual, 20)
				So(rs[0].Winner, ShouldBeTrue)
				So(rs[1].Timestamp.Equal(last.Timestamp), ShouldBeTrue)
			})

			Convey("Then LastRecord is the second result", func() {
				rec, found, err := s.LastRecord(ctx)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(rec.ID, ShouldEqual, last.ID)
				So(rec.Seq, ShouldEqual, 2)
			})

			Convey("Then counts reflect one entry and two results", func() {
				c, err := s.Counts(ctx)
				So(err, ShouldBeNil)
				So(c, ShouldResemble, repository.Counts{Results: 2, Entries: 1})
			})

			Convey("And a duplicate id is rejected without side effects", func() {
				dup := last
				dup.Seq = 3
				err := s.Commit(ctx, dup, model.LeaderboardEntry{PlayerName: "Ann", GameType: "trivia", HighScore: 999, GamesPlayed: 3})
				So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)

				e, _, err := s.Entry(ctx, model.Key{PlayerName: "Ann", GameType: "trivia"})
				So(err, ShouldBeNil)
				So(e.HighScore, ShouldEqual, 80)
				c, err := s.Counts(ctx)
				So(err, ShouldBeNil)
				So(c.Results, ShouldEqual, 2)
			})
		})

		Convey("When two players share a name", func() {
			_, err := f.submit(ctx, model.GameResult{GameType: "chess", PlayerID: "b1", PlayerName: "Bob", Score: 10, Winner: true})
			So(err, ShouldBeNil)
			_, err = f.submit(ctx, model.GameResult{GameType: "chess", PlayerID: "b2", PlayerName: "Bob", Score: 30, Winner: true})
			So(err, ShouldBeNil)

			Convey("Then one entry holds both and histories stay separate", func() {
				entries, err := s.Entries(ctx, "chess")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].GamesPlayed, ShouldEqual, 2)
				So(entries[0].Wins, ShouldEqual, 2)

				h1, err := s.Results(ctx, "b1")
				So(err, ShouldBeNil)
				So(h1, ShouldHaveLength, 1)
				h2, err := s.Results(ctx, "b2")
				So(err, ShouldBeNil)
				So(h2, ShouldHaveLength, 1)
			})
		})

		Convey("When random results are committed", func() {
			rng := rand.New(rand.NewPCG(3, 5))
			names := []string{"Ann", "Bob", "Cid", "Dee", "Eve"}
			games := []string{"chess", "trivia"}
			var all []model.Record
			for i := 0; i < 120; i++ {
				rec, err := f.submit(ctx, model.GameResult{
					GameType:   games[rng.IntN(len(games))],
					PlayerID:   fmt.Sprintf("p%d", rng.IntN(4)),
					PlayerName: names[rng.IntN(len(names))],
					Score:      rng.Int64N(50) - 10,
					Winner:     rng.IntN(3) == 0,
				})
				So(err, ShouldBeNil)
				all = append(all, rec)
			}

			Convey("Then each board matches a fresh fold of the log", func() {
				want := make(map[model.Key]model.LeaderboardEntry)
				for _, r := range all {
					k := model.KeyOf(r.GameResult)
					e, ok := want[k]
					want[k] = leaderboard.Fold(e, ok, r.GameResult)
				}
				flat := make([]model.LeaderboardEntry, 0, len(want))
				for _, e := range want {
					flat = append(flat, e)
				}

				for _, g := range games {
					got, err := s.Entries(ctx, g)
					So(err, ShouldBeNil)
					So(leaderboard.Rank(got, g), ShouldResemble, leaderboard.Rank(flat, g))
				}

				c, err := s.Counts(ctx)
				So(err, ShouldBeNil)
				So(c, ShouldResemble, repository.Counts{Results: len(all), Entries: len(want)})
			})

			Convey("Then each history matches the log filtered by player", func() {
				for i := 0; i < 4; i++ {
					id := fmt.Sprintf("p%d", i)
					got, err := s.Results(ctx, id)
					So(err, ShouldBeNil)
					want := make([]string, 0)
					for _, r := range all {
						if r.PlayerID == id {
							want = append(want, r.ID)
						}
					}
					gotIDs := make([]string, 0, len(got))
					for _, r := range got {
						gotIDs = append(gotIDs, r.ID)
					}
					So(gotIDs, ShouldResemble, want)
				}
			})
		})
	})
}
