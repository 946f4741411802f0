package uploader_test

import (
	"sync"
	"testing"

	"folio/internal/uploader"
)

func TestLimiterCeiling(t *testing.T) {
	limiter := uploader.NewLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.TryAdmit() {
			t.Fatalf("admission %d refused below ceiling", i)
		}
	}
	if limiter.TryAdmit() {
		t.Fatal("admission allowed past ceiling")
	}
	if limiter.Active() != 3 {
		t.Fatalf("expected 3 active, got %d", limiter.Active())
	}

	limiter.Release()
	if !limiter.TryAdmit() {
		t.Fatal("admission refused after release")
	}
}

func TestLimiterReleaseNeverGoesNegative(t *testing.T) {
	limiter := uploader.NewLimiter(2)

	limiter.Release()
	limiter.Release()
	if limiter.Active() != 0 {
		t.Fatalf("expected 0 active, got %d", limiter.Active())
	}

	// The spurious releases must not have widened the ceiling.
	if !limiter.TryAdmit() || !limiter.TryAdmit() {
		t.Fatal("admissions below ceiling refused")
	}
	if limiter.TryAdmit() {
		t.Fatal("admission allowed past ceiling")
	}
}

func TestLimiterFloorsCeilingAtOne(t *testing.T) {
	limiter := uploader.NewLimiter(0)
	if limiter.Limit() != 1 {
		t.Fatalf("expected ceiling 1, got %d", limiter.Limit())
	}
	if !limiter.TryAdmit() {
		t.Fatal("single slot refused")
	}
	if limiter.TryAdmit() {
		t.Fatal("second admission allowed with ceiling 1")
	}
}

func TestLimiterUnderContention(t *testing.T) {
	limiter := uploader.NewLimiter(3)

	var wg sync.WaitGroup
	violations := make(chan int, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if !limiter.TryAdmit() {
					continue
				}
				if active := limiter.Active(); active > 3 {
					select {
					case violations <- active:
					default:
					}
				}
				limiter.Release()
			}
		}()
	}
	wg.Wait()
	close(violations)

	for active := range violations {
		t.Fatalf("active count %d exceeded ceiling", active)
	}
	if limiter.Active() != 0 {
		t.Fatalf("slots leaked: %d still active", limiter.Active())
	}
}
