package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	service "github.com/okian/liftboard/internal/app"
	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/rotation"
	"github.com/okian/liftboard/internal/domain/types"
	"github.com/okian/liftboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithStdout(false)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	goleak.VerifyTestMain(m)
}

// Friday of ISO week 2026-W42, noon UTC.
var friday = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithClock(func() time.Time { return friday }),
		service.WithRotation(rotation.DefaultTable, time.UTC, time.Friday),
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
	}
	svc, err := service.New(append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a service with an empty rotation table", t, func() {
		_, err := service.New(service.WithRotation([]rotation.Assignment{}, time.UTC, time.Friday))

		Convey("Then the default table should be kept", func() {
			So(err, ShouldBeNil)
		})
	})

	Convey("Given a service that has not been started", t, func() {
		svc := newService(t)
		ctx := context.Background()

		Convey("Then pipeline operations should report ErrNotStarted", func() {
			_, err := svc.Submit(ctx, model.Submission{AthleteID: "a1", LiftedKg: 100, TS: friday})
			So(errors.Is(err, model.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Leaderboard(ctx, model.BoardKey{Year: 2026, Week: 42}, 10)
			So(errors.Is(err, model.ErrNotStarted), ShouldBeTrue)

			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("Then stats should show it stopped", func() {
			stats := svc.GetStats(ctx)
			So(stats.Started, ShouldBeFalse)
			So(stats.Metric, ShouldEqual, "relative")
			So(stats.CurrentBoard, ShouldEqual, "2026-W42")
		})
	})
}

func TestService_Rotation(t *testing.T) {
	Convey("Given a service clocked to Friday noon of week 42", t, func() {
		svc := newService(t)

		Convey("When asking for the running rotation", func() {
			r := svc.Rotation()

			Convey("Then week, exercises and countdown should match the table", func() {
				So(r.Board, ShouldEqual, "2026-W42")
				So(r.Week, ShouldEqual, 42)
				So(r.Current.ExerciseID, ShouldEqual, "power-clean")
				So(r.Next.ExerciseID, ShouldEqual, "back-squat")
				So(r.CutoffDate, ShouldEqual, "2026-10-16")
				So(r.RemainingMS, ShouldEqual, (11*time.Hour + 59*time.Minute + 59*time.Second).Milliseconds())
			})
		})

		Convey("When asking for arbitrary weeks", func() {
			So(svc.Assignment(1).ExerciseID, ShouldEqual, "back-squat")
			So(svc.Assignment(7).ExerciseID, ShouldEqual, "back-squat")
			So(svc.Assignment(0).ExerciseID, ShouldEqual, "power-clean")
		})

		Convey("When counting down to an explicit date", func() {
			d, err := svc.Countdown("2026-10-18")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 2*24*time.Hour+11*time.Hour+59*time.Minute+59*time.Second)

			past, err := svc.Countdown("2026-10-01")
			So(err, ShouldBeNil)
			So(past, ShouldEqual, 0)

			_, err = svc.Countdown("next friday")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When counting down without a date", func() {
			d, err := svc.Countdown("")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 11*time.Hour+59*time.Minute+59*time.Second)
		})

		Convey("When resolving board names", func() {
			b, err := svc.ResolveBoard("current")
			So(err, ShouldBeNil)
			So(b, ShouldResemble, model.BoardKey{Year: 2026, Week: 42})

			b, err = svc.ResolveBoard("2025-w01")
			So(err, ShouldBeNil)
			So(b, ShouldResemble, model.BoardKey{Year: 2025, Week: 1})

			_, err = svc.ResolveBoard("last-week")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Score(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		lifted, body float64
		reps         int
		want         float64
	}{
		{100, 75, 1, 71.25604733905324},
		{100, 75, 0, 71.25604733905324},
		{200, 93, 1, 125.63802067022353},
		{100, 75, 5, 83.13205522889545},
	}
	for _, tc := range cases {
		got, err := svc.Score(ctx, tc.lifted, tc.body, tc.reps)
		if err != nil {
			t.Fatalf("Score(%v, %v, %d): %v", tc.lifted, tc.body, tc.reps, err)
		}
		if d := got - tc.want; d > 1e-9 || d < -1e-9 {
			t.Errorf("Score(%v, %v, %d) = %v, want %v", tc.lifted, tc.body, tc.reps, got, tc.want)
		}
	}

	for _, bad := range [][3]float64{{0, 75, 1}, {100, 0, 1}, {100, 5, 1}, {100, 75, -1}} {
		if _, err := svc.Score(ctx, bad[0], bad[1], int(bad[2])); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Score(%v) expected invalid input, got %v", bad, err)
		}
	}
}

func TestService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = svc.Stop(ctx) }()

	body := 80.0
	negative := -1.0
	invalid := []model.Submission{
		{LiftedKg: 100, TS: friday},
		{AthleteID: "a1", TS: friday},
		{AthleteID: "a1", LiftedKg: 100},
		{AthleteID: "a1", LiftedKg: 100, Reps: -2, TS: friday},
		{AthleteID: "a1", LiftedKg: 100, BodyKg: &negative, TS: friday},
	}
	for i, sub := range invalid {
		if _, err := svc.Submit(ctx, sub); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("case %d: expected invalid input, got %v", i, err)
		}
	}

	r, err := svc.Submit(ctx, model.Submission{AthleteID: " a1 ", LiftedKg: 100, BodyKg: &body, TS: friday})
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != types.StatusAccepted || r.SubmissionID == "" || r.Board != "2026-W42" {
		t.Fatalf("unexpected receipt %+v", r)
	}
}
