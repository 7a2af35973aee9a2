package loadgen

import (
	"context"
	"math/rand/v2"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/liftboard/internal/adapters/http/api"
	service "github.com/okian/liftboard/internal/app"
	"github.com/okian/liftboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithStdout(false)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:       baseURL,
		Athletes:      40,
		Lifts:         400,
		DuplicateRate: 0.1,
		NoBodyRate:    0.05,
		TopN:          25,
		Workers:       8,
		Timeout:       5 * time.Second,
		DrainTimeout:  10 * time.Second,
		PollInterval:  10 * time.Millisecond,
		Seed:          42,
	}
}

func startService(t *testing.T) *httptest.Server {
	t.Helper()
	svc, err := service.New(service.WithWorkerCount(4), service.WithQueueSize(1024))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	stats := api.StatsFunc(func(ctx context.Context) any { return svc.GetStats(ctx) })
	srv := httptest.NewServer(api.NewServer(svc, stats).Router())
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := testConfig("")
		now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		lifts := generate(cfg, rand.New(rand.NewPCG(1, 2)), now)

		Convey("Then it emits the originals followed by re-sent duplicates", func() {
			So(len(lifts), ShouldBeGreaterThanOrEqualTo, cfg.Lifts)

			ids := make(map[string]Lift, len(lifts))
			for _, l := range lifts[:cfg.Lifts] {
				_, dup := ids[l.SubmissionID]
				So(dup, ShouldBeFalse)
				ids[l.SubmissionID] = l
			}
			for _, l := range lifts[cfg.Lifts:] {
				So(ids[l.SubmissionID], ShouldResemble, l)
			}
		})

		Convey("And every lift is well formed", func() {
			athletes := map[string]bool{}
			for _, l := range lifts {
				athletes[l.AthleteID] = true
				So(l.LiftedKg, ShouldBeBetweenOrEqual, minLiftedKg, maxLiftedKg)
				So(l.Reps, ShouldBeBetweenOrEqual, 1, maxReps)
				ts, err := time.Parse(time.RFC3339, l.TS)
				So(err, ShouldBeNil)
				So(ts.After(now), ShouldBeFalse)
				So(now.Sub(ts), ShouldBeLessThan, spreadSecs*time.Second)
			}
			So(len(athletes), ShouldBeLessThanOrEqualTo, cfg.Athletes)
		})

		Convey("And the same seed reproduces the same loads", func() {
			again := generate(cfg, rand.New(rand.NewPCG(1, 2)), now)
			So(len(again), ShouldEqual, len(lifts))
			for i := range lifts {
				So(again[i].LiftedKg, ShouldEqual, lifts[i].LiftedKg)
				So(again[i].Reps, ShouldEqual, lifts[i].Reps)
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running liftboard", t, func() {
		srv := startService(t)
		cfg := testConfig(srv.URL)
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "lifts.json")

		Convey("When a load run completes", func() {
			report, err := Run(context.Background(), cfg)

			Convey("Then the served boards agree with the local ranking", func() {
				So(err, ShouldBeNil)
				So(report.Mismatches, ShouldBeEmpty)
				So(report.Accepted, ShouldEqual, int64(cfg.Lifts))
				So(report.Duplicates, ShouldEqual, int64(report.Generated-cfg.Lifts))
				So(report.Rejected, ShouldBeZeroValue)
				So(report.Failed, ShouldBeZeroValue)
				So(report.Boards, ShouldBeGreaterThanOrEqualTo, 1)
				So(report.Ranked, ShouldBeGreaterThan, 0)
			})

			Convey("And the generated lifts are saved", func() {
				info, err := os.Stat(cfg.OutputFile)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestRunUnreachable(t *testing.T) {
	Convey("Given no service at the target URL", t, func() {
		srv := httptest.NewServer(nil)
		cfg := testConfig(srv.URL)
		srv.Close()

		Convey("Then the run fails before generating anything", func() {
			report, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
			So(report, ShouldBeNil)
		})
	})
}
