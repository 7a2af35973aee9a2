package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

// withManager installs m as the global manager for the duration of a test.
func withManager(t *testing.T, m *Manager) {
	t.Helper()
	prev := globalManager.Load()
	if err := SetGlobal(m); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { globalManager.Store(prev) })
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then the liftboard namespace should be used", func() {
				So(m.namespace, ShouldEqual, "liftboard")
				So(m.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.queueEnqueued.Inc()

			Convey("Then metric names should carry the namespace and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_queue_enqueue_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When installing a nil manager", func() {
			So(SetGlobal(nil), ShouldEqual, ErrNotInitialized)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
	withManager(t, m)

	Convey("Given an installed manager", t, func() {
		Convey("When recording submission outcomes", func() {
			RecordSubmissionAccepted()
			RecordSubmissionDuplicate()
			RecordSubmissionRejected("queue_full")
			RecordSubmissionSkipped("no_body_mass")

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(m.submissionsAccepted), ShouldEqual, 1)
				So(testutil.ToFloat64(m.submissionsDuplicate), ShouldEqual, 1)
				So(testutil.ToFloat64(m.submissionsRejected.WithLabelValues("queue_full")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.submissionsSkipped.WithLabelValues("no_body_mass")), ShouldEqual, 1)
			})
		})

		Convey("When updating queue size", func() {
			UpdateQueueSize(25, 100)

			Convey("Then size and utilization should be set", func() {
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 25)
				So(testutil.ToFloat64(m.queueUtilization), ShouldEqual, 0.25)
			})
		})

		Convey("When tracking busy workers", func() {
			AddWorkerActive(2)
			AddWorkerActive(-1)

			So(testutil.ToFloat64(m.workerActiveCount), ShouldEqual, 1)
			AddWorkerActive(-1)
		})

		Convey("When recording an HTTP request", func() {
			RecordHTTPRequest("/healthz", "GET", "200", 1.5)

			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/healthz", "GET", "200")), ShouldEqual, 1)
		})

		Convey("When sampling the runtime", func() {
			SampleRuntime()

			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldBeGreaterThan, 0)
		})
	})
}

func TestDisabledManager(t *testing.T) {
	m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
	withManager(t, m)

	Convey("Given a disabled manager", t, func() {
		RecordSubmissionAccepted()
		RecordLeaderboardUpdate()
		UpdateBoardTotals(3, 30)

		Convey("Then nothing should be observed", func() {
			So(testutil.ToFloat64(m.submissionsAccepted), ShouldEqual, 0)
			So(testutil.ToFloat64(m.leaderboardUpdates), ShouldEqual, 0)
			So(testutil.ToFloat64(m.boardCount), ShouldEqual, 0)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	if GetRegistry() == nil {
		t.Fatal("expected the custom registry")
	}
}
