package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/liftboard/internal/app"
	"github.com/okian/liftboard/internal/config"
	"github.com/okian/liftboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithStdout(false)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given configuration loaded from the environment", t, func() {
		t.Setenv("LIFTBOARD_QUEUE_SIZE", "16")
		t.Setenv("LIFTBOARD_WORKER_COUNT", "2")
		t.Setenv("LIFTBOARD_BOARD_METRIC", "e1rm")
		t.Setenv("LIFTBOARD_ONE_REP_MAX_FORMULA", "brzycki")
		t.Setenv("LIFTBOARD_TIMEZONE", "UTC")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every setting becomes a service option", func() {
			opts, err := serviceOptions(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(opts, convey.ShouldHaveLength, 5)

			svc, err := service.New(opts...)
			convey.So(err, convey.ShouldBeNil)
			stats := svc.GetStats(context.Background())
			convey.So(stats.Metric, convey.ShouldEqual, "e1rm")
			convey.So(stats.Formula, convey.ShouldEqual, "brzycki")
		})

		convey.Convey("And the log options follow the file setting", func() {
			convey.So(logOptions(cfg), convey.ShouldHaveLength, 1)
			cfg.LogFile = t.TempDir() + "/liftboard.log"
			convey.So(logOptions(cfg), convey.ShouldHaveLength, 2)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given a started service behind the HTTP handler", t, func() {
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.QueueSize = 16
		opts, err := serviceOptions(cfg)
		convey.So(err, convey.ShouldBeNil)

		svc, err := service.New(opts...)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		h := newHandler(svc, cfg)

		convey.Convey("Then stats report the running pipeline", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"started":true`)
		})

		convey.Convey("And a submission is accepted", func() {
			body := `{"athlete_id":"a-1","lifted_kg":120,"body_kg":80,"ts":"` + time.Now().UTC().Format(time.RFC3339) + `"}`
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1
		cfg.QueueSize = 4

		convey.Convey("Then run returns cleanly once the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after cancellation")
			}
		})

		convey.Convey("And a port clash surfaces as an error", func() {
			ln := httptest.NewServer(http.NotFoundHandler())
			defer ln.Close()
			cfg.Addr = strings.TrimPrefix(ln.URL, "http://")

			err := run(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "http server")
		})
	})
}
