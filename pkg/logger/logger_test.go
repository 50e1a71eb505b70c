package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		var buf bytes.Buffer

		convey.Convey("When initialized with text output", func() {
			convey.So(Init(WithOutput(&buf)), convey.ShouldBeNil)
			Get().Info(context.Background(), "roster loaded", Int("players", 12))

			convey.Convey("Then lines carry the fields and the caller", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, "roster loaded")
				convey.So(out, convey.ShouldContainSubstring, "players=12")
				convey.So(out, convey.ShouldContainSubstring, "logger_test.go:")
				convey.So(Sync(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When switched to json", func() {
			convey.So(Init(WithOutput(&buf)), convey.ShouldBeNil)
			convey.So(SetFormat(FormatJSON), convey.ShouldBeNil)
			Named("balancer").Warn(context.Background(), "uneven teams",
				Float64("skill_difference", 2.5), Bool("stamina", true), Duration("took", time.Millisecond))

			convey.Convey("Then each line is a JSON object tagged with the component", func() {
				var line map[string]any
				convey.So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), convey.ShouldBeNil)
				convey.So(line["msg"], convey.ShouldEqual, "uneven teams")
				convey.So(line["component"], convey.ShouldEqual, "balancer")
				convey.So(line["skill_difference"], convey.ShouldEqual, 2.5)
				convey.So(line["stamina"], convey.ShouldEqual, true)
			})
		})

		convey.Convey("When an unknown format is requested", func() {
			convey.So(Init(WithOutput(&buf)), convey.ShouldBeNil)

			convey.Convey("Then it is rejected", func() {
				convey.So(SetFormat("xml"), convey.ShouldNotBeNil)
				convey.So(Init(WithFormat("xml")), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestLevels(t *testing.T) {
	convey.Convey("Given a standalone logger", t, func() {
		var buf bytes.Buffer
		log, err := New(&buf, FormatText)
		convey.So(err, convey.ShouldBeNil)
		defer SetLevel(0)

		convey.Convey("When the level is warn", func() {
			convey.So(SetLevelString("WARN"), convey.ShouldBeNil)
			log.Info(context.Background(), "hidden")
			log.Error(context.Background(), "shown", Error(errors.New("boom")))

			convey.Convey("Then lower levels are dropped", func() {
				out := buf.String()
				convey.So(out, convey.ShouldNotContainSubstring, "hidden")
				convey.So(out, convey.ShouldContainSubstring, "shown")
				convey.So(out, convey.ShouldContainSubstring, "error=boom")
			})
		})

		convey.Convey("When the level is debug", func() {
			convey.So(SetLevelString("debug"), convey.ShouldBeNil)
			log.Debug(context.Background(), "details")
			convey.So(strings.Count(buf.String(), "details"), convey.ShouldEqual, 1)
		})

		convey.Convey("When the level is unknown", func() {
			convey.So(SetLevelString("loud"), convey.ShouldNotBeNil)
		})
	})
}
