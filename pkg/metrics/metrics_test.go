package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// sample returns the value of the named series whose labels include want.
// Counters and gauges report their value, histograms their sample count.
func sample(reg prometheus.Gatherer, name string, want map[string]string) float64 {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, want) {
				continue
			}
			switch {
			case m.Counter != nil:
				return m.GetCounter().GetValue()
			case m.Gauge != nil:
				return m.GetGauge().GetValue()
			case m.Histogram != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewManager(t *testing.T) {
	Convey("Given a private registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When creating a manager with custom naming", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(reg),
			)
			m.rosterSize.Set(7)

			Convey("Then metrics are registered under that name", func() {
				So(sample(reg, "test_unit_roster_players", nil), ShouldEqual, 7)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(reg))
			m.historyEntries.Set(3)

			Convey("Then the defaults are kept", func() {
				So(m.namespace, ShouldEqual, "lineup")
				So(m.subsystem, ShouldEqual, "balancer")
				So(m.histogramBuckets, ShouldNotBeEmpty)
				So(sample(reg, "lineup_balancer_history_entries", nil), ShouldEqual, 3)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	reg := GetRegistry()

	Convey("Given the global registry", t, func() {
		Convey("When a balancing run is recorded", func() {
			stamina := map[string]string{"stamina": "true"}
			before := sample(reg, "lineup_balancer_matches_generated_total", stamina)
			beforeLatency := sample(reg, "lineup_balancer_balance_latency_milliseconds", nil)
			RecordMatchGenerated(true, 10, 1.5, 0.2)

			Convey("Then the counter and histograms move", func() {
				So(sample(reg, "lineup_balancer_matches_generated_total", stamina), ShouldEqual, before+1)
				So(sample(reg, "lineup_balancer_balance_latency_milliseconds", nil), ShouldEqual, beforeLatency+1)
			})
		})

		Convey("When history saves are recorded", func() {
			dup := map[string]string{"result": SaveDuplicate}
			before := sample(reg, "lineup_balancer_history_saves_total", dup)
			RecordHistorySave(SaveDuplicate)
			RecordHistorySave(SaveDuplicate)

			Convey("Then each outcome is counted separately", func() {
				So(sample(reg, "lineup_balancer_history_saves_total", dup), ShouldEqual, before+2)
			})
		})

		Convey("When pruning removes nothing", func() {
			before := sample(reg, "lineup_balancer_history_pruned_total", nil)
			RecordHistoryPruned(0)
			RecordHistoryPruned(-4)

			Convey("Then the counter does not move", func() {
				So(sample(reg, "lineup_balancer_history_pruned_total", nil), ShouldEqual, before)
			})
		})

		Convey("When gauges are set", func() {
			UpdateRosterSize(12)
			UpdateQueueSize(4)
			UpdateQueueCapacity(8)
			UpdateQueueUtilization(50)

			Convey("Then they report the last value", func() {
				So(sample(reg, "lineup_balancer_roster_players", nil), ShouldEqual, 12)
				So(sample(reg, "lineup_balancer_queue_size", nil), ShouldEqual, 4)
				So(sample(reg, "lineup_balancer_queue_utilization_percent", nil), ShouldEqual, 50)
			})
		})

		Convey("When HTTP traffic is recorded", func() {
			labels := map[string]string{"endpoint": "/matches", "method": "POST", "status_code": "200"}
			before := sample(reg, "lineup_balancer_http_requests_total", labels)
			RecordHTTPRequest("/matches", "POST", "200")
			RecordHTTPRequestDuration("/matches", "POST", "200", 3)

			Convey("Then it is labelled by endpoint", func() {
				So(sample(reg, "lineup_balancer_http_requests_total", labels), ShouldEqual, before+1)
			})
		})

		Convey("When the remaining recorders are called with edge values", func() {
			So(func() {
				RecordShareCreated()
				RecordRepositoryLatency("memory", "list", 0)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(0)
				RecordWorkerProcessingLatency(0)
				RecordWorkerError()
				RecordErrorByComponent("", "")
				RecordErrorByEndpoint("", "", "")
				RecordSchedulerRun("retention", "ok")
				UpdateSystemMemoryUsage(0)
				UpdateSystemGoroutineCount(-1)
				UpdateHistoryEntries(0)
			}, ShouldNotPanic)
		})
	})
}

func TestRecordersConcurrency(t *testing.T) {
	Convey("Given many goroutines recording at once", t, func() {
		reg := GetRegistry()
		labels := map[string]string{"job": "concurrency", "result": "ok"}
		before := sample(reg, "lineup_balancer_scheduler_runs_total", labels)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordSchedulerRun("concurrency", "ok")
					UpdateQueueSize(j)
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(sample(reg, "lineup_balancer_scheduler_runs_total", labels), ShouldEqual, before+1000)
		})
	})
}
