package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/config"
	"github.com/okian/lineup/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestOpenStores(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("When stores are opened", func() {
			st, err := openStores(context.Background(), cfg)

			convey.Convey("Then every store is in memory and nothing needs closing", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.roster, convey.ShouldHaveSameTypeAs, &repository.MemoryRoster{})
				convey.So(st.history, convey.ShouldHaveSameTypeAs, &repository.MemoryHistory{})
				convey.So(st.shares, convey.ShouldHaveSameTypeAs, &repository.MemoryShares{})
				convey.So(st.closers, convey.ShouldBeEmpty)
				convey.So(func() { st.Close(context.Background()) }, convey.ShouldNotPanic)
			})
		})
	})

	convey.Convey("Given a redis share backend with a malformed url", t, func() {
		cfg := config.New()
		cfg.ShareBackend = config.BackendRedis
		cfg.RedisURL = "not a url"

		convey.Convey("Then opening the stores fails", func() {
			_, err := openStores(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the application handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.CORSOrigins = "https://lineup.example"
		cfg.TeamAName = "Bibs"

		st, err := openStores(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, st)
		h := newHandler(ctx, svc, cfg)

		serve := func(method, path, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Origin", "https://lineup.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then API and docs routes are served with CORS headers", func() {
			for _, path := range []string{"/healthz", "/stats", "/players", "/history", "/api-docs", "/openapi.yaml"} {
				w := serve(http.MethodGet, path, "")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "https://lineup.example")
			}
		})

		convey.Convey("Then configured team names reach generated matches", func() {
			body := `{"players":[{"name":"A","skill":5},{"name":"B","skill":4}]}`
			w := serve(http.MethodPost, "/matches", body)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"name":"Bibs"`)
		})
	})
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given LINEUP_ environment variables", t, func() {
		t.Setenv("LINEUP_ADDR", ":8080")
		t.Setenv("LINEUP_QUEUE_SIZE", "1000")
		t.Setenv("LINEUP_WORKER_COUNT", "2")

		convey.Convey("Then the loaded configuration builds a service", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)

			st, err := openStores(context.Background(), cfg)
			convey.So(err, convey.ShouldBeNil)
			stats, err := newService(cfg, st).GetStats(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.Workers, convey.ShouldEqual, 2)
			convey.So(stats.QueueCapacity, convey.ShouldEqual, 1000)
		})
	})

	convey.Convey("Given an empty address", t, func() {
		t.Setenv("LINEUP_ADDR", "")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
