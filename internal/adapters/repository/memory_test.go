package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/player"
	. "github.com/smartystreets/goconvey/convey"
)

func mkPlayer(id string, r float64) player.Player {
	return player.New(id, "Player "+id, player.Skills{Goalkeeper: r, Defender: r, Midfielder: r, Forward: r}, nil)
}

func mkMatch(id string, ts time.Time) model.SavedMatch {
	return model.SavedMatch{
		ID:          id,
		Timestamp:   ts,
		MatchResult: balance.Generate([]player.Player{mkPlayer(id+"-a", 6), mkPlayer(id+"-b", 5)}, false),
	}
}

func TestMemoryRoster(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty roster", t, func() {
		s := repository.NewMemoryRoster()

		Convey("When players are added", func() {
			So(s.Put(ctx, mkPlayer("a", 5)), ShouldBeNil)
			So(s.Put(ctx, mkPlayer("b", 6)), ShouldBeNil)
			So(s.Put(ctx, mkPlayer("c", 7)), ShouldBeNil)

			Convey("Then List returns the newest first", func() {
				all, err := s.List(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
				So(all[0].ID, ShouldEqual, "c")
				So(all[2].ID, ShouldEqual, "a")
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 3)
			})

			Convey("And replacing a player keeps its position", func() {
				So(s.Put(ctx, mkPlayer("a", 9)), ShouldBeNil)
				all, _ := s.List(ctx)
				So(all[2].ID, ShouldEqual, "a")
				So(all[2].Skill, ShouldEqual, 9)
			})

			Convey("And deleting removes it", func() {
				So(s.Delete(ctx, "b"), ShouldBeNil)
				_, err := s.Get(ctx, "b")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				all, _ := s.List(ctx)
				So(len(all), ShouldEqual, 2)
			})

			Convey("And returned players are copies", func() {
				p, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				p.Positions[0] = player.Forward
				again, _ := s.Get(ctx, "a")
				So(again.Positions[0], ShouldEqual, player.Goalkeeper)
			})
		})

		Convey("When a player is created over a taken id", func() {
			So(s.Create(ctx, mkPlayer("a", 5)), ShouldBeNil)
			err := s.Create(ctx, mkPlayer("a", 9))

			Convey("Then it is a conflict and the first player stays", func() {
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				got, _ := s.Get(ctx, "a")
				So(got.Skill, ShouldEqual, 5)
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When an unknown id is deleted", func() {
			So(errors.Is(s.Delete(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given concurrent writers", t, func() {
		s := repository.NewMemoryRoster()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Put(ctx, mkPlayer(fmt.Sprintf("p%d", i), 5))
				_, _ = s.List(ctx)
			}(i)
		}
		wg.Wait()

		Convey("Then every player is stored once", func() {
			n, _ := s.Count(ctx)
			So(n, ShouldEqual, 20)
		})
	})

	Convey("Given concurrent creates of one id", t, func() {
		s := repository.NewMemoryRoster()
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			created  int
			conflict int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Create(ctx, mkPlayer("same", 5))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, repository.ErrConflict):
					conflict++
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(created, ShouldEqual, 1)
			So(conflict, ShouldEqual, 19)
			all, _ := s.List(ctx)
			So(len(all), ShouldEqual, 1)
		})
	})
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)

	Convey("Given a history with three matches", t, func() {
		s := repository.NewMemoryHistory()
		So(s.Save(ctx, mkMatch("m1", base)), ShouldBeNil)
		So(s.Save(ctx, mkMatch("m2", base.Add(time.Hour))), ShouldBeNil)
		So(s.Save(ctx, mkMatch("m3", base.Add(2*time.Hour))), ShouldBeNil)

		Convey("When listing without a filter", func() {
			all, err := s.List(ctx, model.HistoryFilter{})

			Convey("Then matches come newest first", func() {
				So(err, ShouldBeNil)
				So([]string{all[0].ID, all[1].ID, all[2].ID}, ShouldResemble, []string{"m3", "m2", "m1"})
			})
		})

		Convey("When listing with since and limit", func() {
			got, _ := s.List(ctx, model.HistoryFilter{Since: base.Add(time.Hour), Limit: 1})
			So(len(got), ShouldEqual, 1)
			So(got[0].ID, ShouldEqual, "m3")
		})

		Convey("When saving an existing id", func() {
			err := s.Save(ctx, mkMatch("m1", base))
			So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
		})

		Convey("When updating a match", func() {
			m := mkMatch("m2", base.Add(time.Hour))
			m.TeamA.Name = "Rojos"
			So(s.Update(ctx, m), ShouldBeNil)

			got, err := s.Get(ctx, "m2")
			So(err, ShouldBeNil)
			So(got.TeamA.Name, ShouldEqual, "Rojos")
		})

		Convey("When updating an unknown match", func() {
			err := s.Update(ctx, mkMatch("zz", base))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When pruning before a cutoff", func() {
			n, err := s.DeleteBefore(ctx, base.Add(90*time.Minute))

			Convey("Then only older matches are removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				left, _ := s.Count(ctx)
				So(left, ShouldEqual, 1)
				_, err := s.Get(ctx, "m3")
				So(err, ShouldBeNil)
			})
		})

		Convey("When deleting", func() {
			So(s.Delete(ctx, "m1"), ShouldBeNil)
			So(errors.Is(s.Delete(ctx, "m1"), repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryShares(t *testing.T) {
	ctx := context.Background()

	Convey("Given a share store with a one hour ttl", t, func() {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		s := repository.NewMemoryShares(repository.WithShareTTL(time.Hour), repository.WithClock(clock))
		result := balance.Generate([]player.Player{mkPlayer("a", 6), mkPlayer("b", 5)}, false)

		id, err := s.Put(ctx, result)
		So(err, ShouldBeNil)
		So(id, ShouldNotBeEmpty)

		Convey("When read before expiry", func() {
			got, err := s.Get(ctx, id)

			Convey("Then the result comes back intact", func() {
				So(err, ShouldBeNil)
				So(got.SkillDifference, ShouldEqual, result.SkillDifference)
				So(got.TeamA.Players[0].ID, ShouldEqual, "a")
			})
		})

		Convey("When read after expiry", func() {
			now = now.Add(time.Hour)
			_, err := s.Get(ctx, id)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When expired shares are purged", func() {
			_, _ = s.Put(ctx, result)
			now = now.Add(2 * time.Hour)
			n, err := s.PurgeExpired(ctx)

			Convey("Then every expired entry is removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				_, err := s.Get(ctx, id)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the id is unknown", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a share store without ttl", t, func() {
		s := repository.NewMemoryShares()
		id, _ := s.Put(ctx, balance.MatchResult{SkillDifference: 2})

		Convey("Then shares never expire", func() {
			got, err := s.Get(ctx, id)
			So(err, ShouldBeNil)
			So(got.SkillDifference, ShouldEqual, 2)
		})
	})
}
