package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/liftboard/internal/config"
	"github.com/okian/liftboard/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.DedupeCacheMB, convey.ShouldEqual, 32)
			convey.So(cfg.DedupeTTL(), convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the typed accessors should resolve", func() {
			kind, err := cfg.MetricKind()
			convey.So(err, convey.ShouldBeNil)
			convey.So(kind, convey.ShouldEqual, scoring.MetricRelative)

			formula, err := cfg.Formula()
			convey.So(err, convey.ShouldBeNil)
			convey.So(formula, convey.ShouldEqual, scoring.Epley)

			day, err := cfg.Weekday()
			convey.So(err, convey.ShouldBeNil)
			convey.So(day, convey.ShouldEqual, time.Friday)

			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc, convey.ShouldEqual, time.Local)
		})
	})
}

func TestConfig_Weekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"sunday": time.Sunday,
		"Sat":    time.Saturday,
		" MON ":  time.Monday,
	}
	for in, want := range cases {
		cfg := config.New()
		cfg.CutoffWeekday = in
		got, err := cfg.Weekday()
		if err != nil || got != want {
			t.Errorf("Weekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several bad values", t, func() {
		cfg := config.New()
		cfg.Addr = ""
		cfg.QueueSize = 0
		cfg.BoardMetric = "wilks2"
		cfg.Timezone = "Mars/Olympus_Mons"
		cfg.CutoffWeekday = "someday"

		err := cfg.Validate()

		convey.Convey("Then every problem should be reported", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(err.Error(), convey.ShouldContainSubstring, "queue_size")
			convey.So(err.Error(), convey.ShouldContainSubstring, "wilks2")
			convey.So(err.Error(), convey.ShouldContainSubstring, "Mars/Olympus_Mons")
			convey.So(err.Error(), convey.ShouldContainSubstring, "someday")
		})
	})
}
