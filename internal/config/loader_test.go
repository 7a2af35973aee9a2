package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/liftboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{ //nolint:gochecknoglobals // test fixture
	"LIFTBOARD_CONFIG", "LIFTBOARD_ADDR", "LIFTBOARD_QUEUE_SIZE", "LIFTBOARD_WORKER_COUNT",
	"LIFTBOARD_DEDUPE_CACHE_MB", "LIFTBOARD_BOARD_METRIC", "LIFTBOARD_TIMEZONE",
	"LIFTBOARD_CUTOFF_WEEKDAY", "LIFTBOARD_LOG_JSON",
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liftboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.BoardMetric, convey.ShouldEqual, "relative")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("LIFTBOARD_ADDR", ":8080")
			t.Setenv("LIFTBOARD_QUEUE_SIZE", "500")
			t.Setenv("LIFTBOARD_WORKER_COUNT", "16")
			t.Setenv("LIFTBOARD_BOARD_METRIC", "e1rm")
			t.Setenv("LIFTBOARD_LOG_JSON", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.BoardMetric, convey.ShouldEqual, "e1rm")
				convey.So(cfg.LogJSON, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			t.Setenv("LIFTBOARD_CONFIG", writeConfigFile(t, `
addr: ":9090"
queue_size: 3000
worker_count: 24
timezone: "Europe/Berlin"
cutoff_weekday: "sunday"
one_rep_max_formula: "brzycki"
`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 3000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.Timezone, convey.ShouldEqual, "Europe/Berlin")
				convey.So(cfg.OneRepMaxFormula, convey.ShouldEqual, "brzycki")
			})

			convey.Convey("And env vars set", func() {
				t.Setenv("LIFTBOARD_ADDR", ":8181")

				cfg, err := config.Load(ctx)

				convey.Convey("Then env should win over the file", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
					convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				})
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("LIFTBOARD_CONFIG", "/non/existent/liftboard.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric env var is not a number", func() {
			t.Setenv("LIFTBOARD_QUEUE_SIZE", "invalid")

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When values fail validation", func() {
			t.Setenv("LIFTBOARD_WORKER_COUNT", "0")
			t.Setenv("LIFTBOARD_CUTOFF_WEEKDAY", "caturday")

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail as invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
				convey.So(err.Error(), convey.ShouldContainSubstring, "caturday")
			})
		})
	})
}
