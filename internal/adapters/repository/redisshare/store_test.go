package redisshare_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/adapters/repository/redisshare"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	url := os.Getenv("LINEUP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LINEUP_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := redisshare.Open(ctx, url,
		redisshare.WithTTL(time.Second),
		redisshare.WithKeyPrefix("lineup:test:"+uuid.NewString()+":"))
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer func() { _ = s.Close() }()

	convey.Convey("Given a shared match with a one second ttl", t, func() {
		a := player.New("a", "Ana", player.Skills{Goalkeeper: 7, Defender: 5, Midfielder: 5, Forward: 5}, nil)
		b := player.New("b", "Beto", player.Skills{Goalkeeper: 3, Defender: 7, Midfielder: 7, Forward: 7}, nil)
		result := balance.Generate([]player.Player{a, b}, false)

		id, err := s.Put(ctx, result)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When read right away", func() {
			got, err := s.Get(ctx, id)

			convey.Convey("Then it matches what was shared", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.TeamA.Players[0].ID, convey.ShouldEqual, "a")
				convey.So(got.SkillDifference, convey.ShouldEqual, result.SkillDifference)
			})
		})

		convey.Convey("When read after the ttl", func() {
			time.Sleep(1500 * time.Millisecond)
			_, err := s.Get(ctx, id)

			convey.Convey("Then it is gone", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestOpen_BadURL(t *testing.T) {
	convey.Convey("Given a malformed redis url", t, func() {
		_, err := redisshare.Open(context.Background(), "not-a-url://")

		convey.Convey("Then Open fails before dialing", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
