package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/lineup/internal/adapters/repository"
	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rating(r float64) *float64 { return &r }

func raw(id, name string, gk, def, mid, fwd float64) player.RawPlayer {
	return player.RawPlayer{
		ID:   id,
		Name: name,
		PositionSkills: map[string]float64{
			"goalkeeper": gk, "defender": def, "midfielder": mid, "forward": fwd,
		},
	}
}

func newStarted(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithClock(func() time.Time { return fixedNow })}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func stop(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = svc.Stop(ctx)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then stats report the defaults before start", func() {
			stats, err := svc.GetStats(context.Background())
			So(err, ShouldBeNil)
			So(stats.Started, ShouldBeFalse)
			So(stats.Workers, ShouldEqual, 4)
			So(stats.QueueCapacity, ShouldEqual, 10_000)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithWorkerCount(-1),
		)

		Convey("Then invalid values are ignored", func() {
			stats, err := svc.GetStats(context.Background())
			So(err, ShouldBeNil)
			So(stats.Workers, ShouldEqual, 8)
			So(stats.QueueCapacity, ShouldEqual, 50)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newStarted()

		Convey("Then it is marked as started", func() {
			stats, err := svc.GetStats(context.Background())
			So(err, ShouldBeNil)
			So(stats.Started, ShouldBeTrue)
		})

		Convey("And starting twice is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})

		Convey("When stopped", func() {
			stop(svc)

			Convey("Then saves are refused", func() {
				_, err := svc.SaveMatch(context.Background(), model.SavedMatch{})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again is a no-op", func() {
				So(svc.Stop(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestService_Roster(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty roster", t, func() {
		svc := service.New(service.WithClock(func() time.Time { return fixedNow }))

		Convey("When a player without an id is created", func() {
			p, err := svc.CreatePlayer(ctx, raw("", "  Ana ", 8, 6, 6, 4))

			Convey("Then an id is assigned and fields are normalized", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldNotBeEmpty)
				So(p.Name, ShouldEqual, "Ana")
				So(p.Skill, ShouldEqual, 6)
				So(p.Positions, ShouldResemble, []player.Position{player.Goalkeeper})
				So(p.CreatedAt, ShouldEqual, fixedNow)

				got, err := svc.GetPlayer(ctx, p.ID)
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Ana")
			})
		})

		Convey("When the same id is created twice", func() {
			_, err := svc.CreatePlayer(ctx, raw("p1", "Ana", 5, 5, 5, 5))
			So(err, ShouldBeNil)
			_, err = svc.CreatePlayer(ctx, raw("p1", "Other", 5, 5, 5, 5))

			Convey("Then the second is a conflict", func() {
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When a player record is invalid", func() {
			_, err := svc.CreatePlayer(ctx, raw("p1", "", 5, 5, 5, 5))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, player.ErrInvalidPlayer), ShouldBeTrue)
			})
		})

		Convey("When a player is updated", func() {
			_, err := svc.CreatePlayer(ctx, raw("p1", "Ana", 5, 5, 5, 5))
			So(err, ShouldBeNil)
			p, err := svc.UpdatePlayer(ctx, "p1", raw("", "Ana B", 5, 7, 7, 7))

			Convey("Then ratings change and the creation time is kept", func() {
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "Ana B")
				So(p.Skill, ShouldEqual, 6.5)
				So(p.CreatedAt, ShouldEqual, fixedNow)
			})

			Convey("And a mismatched body id is rejected", func() {
				_, err := svc.UpdatePlayer(ctx, "p1", raw("p2", "Ana", 5, 5, 5, 5))
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When an unknown player is updated or deleted", func() {
			_, updErr := svc.UpdatePlayer(ctx, "ghost", raw("", "Ghost", 5, 5, 5, 5))
			delErr := svc.DeletePlayer(ctx, "ghost")

			Convey("Then both report not found", func() {
				So(errors.Is(updErr, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(delErr, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When players are listed", func() {
			for _, r := range []player.RawPlayer{
				raw("1", "Ana", 5, 5, 5, 5),
				raw("2", "Juan", 5, 5, 5, 5),
				raw("3", "Banana", 5, 5, 5, 5),
			} {
				_, err := svc.CreatePlayer(ctx, r)
				So(err, ShouldBeNil)
			}

			Convey("Then without a query they come newest first", func() {
				ps, err := svc.ListPlayers(ctx, "")
				So(err, ShouldBeNil)
				So(ids(ps), ShouldResemble, []string{"3", "2", "1"})
			})

			Convey("Then a query ranks fuzzy matches by distance", func() {
				ps, err := svc.ListPlayers(ctx, "ANA")
				So(err, ShouldBeNil)
				So(ids(ps), ShouldResemble, []string{"1", "3"})
			})

			Convey("Then a deleted player disappears", func() {
				So(svc.DeletePlayer(ctx, "2"), ShouldBeNil)
				ps, err := svc.ListPlayers(ctx, "")
				So(err, ShouldBeNil)
				So(ids(ps), ShouldResemble, []string{"3", "1"})
			})
		})
	})
}

// nilRoster lists nothing as a nil slice, the way database scans do.
type nilRoster struct {
	*repository.MemoryRoster
}

func (nilRoster) List(context.Context) ([]player.Player, error) { return nil, nil }

func TestService_RosterEdges(t *testing.T) {
	ctx := context.Background()

	Convey("Given many clients creating the same player id", t, func() {
		svc := service.New(service.WithClock(func() time.Time { return fixedNow }))
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			created  []string
			conflict int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("Client %d", i)
				_, err := svc.CreatePlayer(ctx, raw("shared", name, 5, 5, 5, 5))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created = append(created, name)
				case errors.Is(err, repository.ErrConflict):
					conflict++
				}
			}(i)
		}
		wg.Wait()

		Convey("Then one create wins and the rest conflict", func() {
			So(len(created), ShouldEqual, 1)
			So(conflict, ShouldEqual, 15)
			got, err := svc.GetPlayer(ctx, "shared")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, created[0])
		})
	})

	Convey("Given a roster backend that lists nothing as nil", t, func() {
		svc := service.New(service.WithRosterStore(nilRoster{repository.NewMemoryRoster()}))

		Convey("When the roster is listed", func() {
			ps, err := svc.ListPlayers(ctx, "")

			Convey("Then an empty, non-nil list is returned", func() {
				So(err, ShouldBeNil)
				So(ps, ShouldNotBeNil)
				So(ps, ShouldBeEmpty)
			})
		})
	})
}

func ids(ps []player.Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestService_GenerateMatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a roster of four players", t, func() {
		svc := service.New(service.WithTeamNames("Reds", "Blues"))
		for _, r := range []player.RawPlayer{
			raw("k1", "Keeper One", 9, 3, 3, 3),
			raw("k2", "Keeper Two", 8, 3, 3, 3),
			raw("f1", "Field One", 2, 7, 7, 7),
			raw("f2", "Field Two", 2, 6, 6, 6),
		} {
			_, err := svc.CreatePlayer(ctx, r)
			So(err, ShouldBeNil)
		}

		Convey("When a match is generated from roster ids", func() {
			res, err := svc.GenerateMatch(ctx, service.MatchRequest{PlayerIDs: []string{"k1", "k2", "f1", "f2"}})

			Convey("Then every player lands on exactly one team", func() {
				So(err, ShouldBeNil)
				So(len(res.TeamA.Players)+len(res.TeamB.Players), ShouldEqual, 4)
				So(len(res.TeamA.Players)-len(res.TeamB.Players), ShouldBeBetweenOrEqual, -1, 1)
				So(res.TeamA.Name, ShouldEqual, "Reds")
				So(res.TeamB.Name, ShouldEqual, "Blues")
			})

			Convey("And each team gets one of the top keepers", func() {
				So(res.TeamA.Players[0].ID, ShouldEqual, "k1")
				So(res.TeamB.Players[0].ID, ShouldEqual, "k2")
			})
		})

		Convey("When guests join roster players", func() {
			guest := raw("", "Guest", 4, 4, 4, 4)
			guest.Stamina = rating(6)
			res, err := svc.GenerateMatch(ctx, service.MatchRequest{
				PlayerIDs:  []string{"k1", "f1"},
				Players:    []player.RawPlayer{guest},
				UseStamina: true,
				TeamAName:  "Home",
			})

			Convey("Then guests are balanced but not stored", func() {
				So(err, ShouldBeNil)
				So(len(res.TeamA.Players)+len(res.TeamB.Players), ShouldEqual, 3)
				So(res.TeamA.Name, ShouldEqual, "Home")
				So(res.TeamB.Name, ShouldEqual, "Blues")
				ps, _ := svc.ListPlayers(ctx, "Guest")
				So(ps, ShouldBeEmpty)
			})
		})

		Convey("When an id is repeated", func() {
			_, err := svc.GenerateMatch(ctx, service.MatchRequest{PlayerIDs: []string{"k1", "k1"}})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("When an id is unknown", func() {
			_, err := svc.GenerateMatch(ctx, service.MatchRequest{PlayerIDs: []string{"k1", "nobody"}})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the pool is too small", func() {
			_, err := svc.GenerateMatch(ctx, service.MatchRequest{PlayerIDs: []string{"k1"}})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func sampleMatch(ctx context.Context, svc *service.Service) balance.MatchResult {
	for _, r := range []player.RawPlayer{
		raw("a", "A", 6, 6, 6, 6),
		raw("b", "B", 4, 4, 4, 4),
	} {
		_, err := svc.CreatePlayer(ctx, r)
		So(err, ShouldBeNil)
	}
	res, err := svc.GenerateMatch(ctx, service.MatchRequest{PlayerIDs: []string{"a", "b"}})
	So(err, ShouldBeNil)
	return res
}

func TestService_Shares(t *testing.T) {
	ctx := context.Background()

	Convey("Given a generated match", t, func() {
		svc := service.New()
		res := sampleMatch(ctx, svc)

		Convey("When it is shared", func() {
			id, err := svc.ShareMatch(ctx, res)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			Convey("Then it can be read back by id", func() {
				got, err := svc.GetShare(ctx, id)
				So(err, ShouldBeNil)
				So(got.SkillDifference, ShouldEqual, res.SkillDifference)
				So(got.TeamA.Name, ShouldEqual, res.TeamA.Name)
			})
		})

		Convey("When an empty result is shared", func() {
			_, err := svc.ShareMatch(ctx, balance.MatchResult{})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("When an unknown share is requested", func() {
			_, err := svc.GetShare(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given shares with a short ttl", t, func() {
		now := fixedNow
		store := repository.NewMemoryShares(repository.WithShareTTL(time.Hour), repository.WithClock(func() time.Time { return now }))
		svc := service.New(service.WithShareStore(store))
		res := sampleMatch(ctx, svc)
		_, err := svc.ShareMatch(ctx, res)
		So(err, ShouldBeNil)

		Convey("When they expire and are purged", func() {
			now = now.Add(2 * time.Hour)
			n, err := svc.PurgeExpiredShares(ctx)

			Convey("Then they are removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}
