package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dedupe "github.com/okian/liftboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCacheDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new cache deduper", t, func() {
		d := dedupe.NewCacheDeduper(dedupe.WithCacheSizeMB(1), dedupe.WithTTL(time.Hour))

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When recording a new submission", func() {
			seen := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it should report it as unseen and remember it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording the same submission twice", func() {
			d.SeenAndRecord(ctx, "sub-1")
			seen := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then the second call should report a duplicate", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording a submission", func() {
			d.SeenAndRecord(ctx, "sub-1")
			d.Unrecord(ctx, "sub-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing should change", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When an id is too large to store", func() {
			huge := strings.Repeat("x", 70_000)

			Convey("Then it should be let through every time", func() {
				So(d.SeenAndRecord(ctx, huge), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, huge), ShouldBeFalse)
			})
		})
	})
}

func TestCacheDeduperConcurrent(t *testing.T) {
	ctx := context.Background()
	d := dedupe.NewCacheDeduper()

	var (
		wg     sync.WaitGroup
		unseen atomic.Int64
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if !d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i)) {
					unseen.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := unseen.Load(); got != 200 {
		t.Fatalf("expected exactly 200 first sightings, got %d", got)
	}
	if d.Size() != 200 {
		t.Fatalf("expected 200 entries, got %d", d.Size())
	}
}
