package simulate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/lineup/internal/adapters/http/api"
	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/simulate"
	"github.com/okian/lineup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a lineup service behind an HTTP server", t, func() {
		svc := service.New()
		mux := http.NewServeMux()
		api.NewServer(svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a simulation runs against it", func() {
			stats, err := simulate.Run(context.Background(), simulate.Config{
				BaseURL: srv.URL,
				Players: 12,
				Rounds:  30,
				Workers: 4,
				Seed:    42,
				Timeout: 5 * time.Second,
				Cleanup: true,
			})

			Convey("Then every match passes verification", func() {
				So(err, ShouldBeNil)
				So(stats.PlayersCreated, ShouldEqual, 12)
				So(stats.MatchesChecked, ShouldEqual, 30)
				So(stats.StaminaMatches, ShouldEqual, 15)
				So(stats.Violations, ShouldEqual, 0)
			})

			Convey("And the seeded players are removed", func() {
				st, err := svc.GetStats(context.Background())
				So(err, ShouldBeNil)
				So(st.RosterSize, ShouldEqual, 0)
			})
		})
	})

	Convey("Given no service at the address", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the run fails the health check", func() {
			_, err := simulate.Run(context.Background(), simulate.Config{BaseURL: url, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}
