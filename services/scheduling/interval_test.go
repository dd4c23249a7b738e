package scheduling

import (
	"testing"
	"time"

	"bookline/models"
)

func iv(t *testing.T, day time.Time, startMin, endMin int) models.TimeInterval {
	t.Helper()
	interval, err := models.NewTimeInterval(
		day.Add(time.Duration(startMin)*time.Minute),
		day.Add(time.Duration(endMin)*time.Minute),
	)
	if err != nil {
		t.Fatalf("bad test interval: %v", err)
	}
	return interval
}

func TestIntersect(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	got, ok := Intersect(iv(t, day, 540, 720), iv(t, day, 600, 780))
	if !ok {
		t.Fatal("expected overlap")
	}
	want := iv(t, day, 600, 720)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Touching boundaries do not overlap under half-open semantics.
	if _, ok := Intersect(iv(t, day, 540, 600), iv(t, day, 600, 660)); ok {
		t.Fatal("touching intervals must not intersect")
	}
	if _, ok := Intersect(iv(t, day, 540, 600), iv(t, day, 720, 780)); ok {
		t.Fatal("disjoint intervals must not intersect")
	}
}

func TestSubtract(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	open := iv(t, day, 540, 1020) // 09:00-17:00

	// Middle chunk splits in two.
	parts := Subtract(open, iv(t, day, 600, 660))
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != iv(t, day, 540, 600) || parts[1] != iv(t, day, 660, 1020) {
		t.Fatalf("unexpected split: %v", parts)
	}

	// Leading overlap leaves one tail.
	parts = Subtract(open, iv(t, day, 480, 600))
	if len(parts) != 1 || parts[0] != iv(t, day, 600, 1020) {
		t.Fatalf("unexpected leading subtraction: %v", parts)
	}

	// Full cover leaves nothing.
	if parts = Subtract(open, iv(t, day, 480, 1080)); len(parts) != 0 {
		t.Fatalf("expected empty result, got %v", parts)
	}

	// Disjoint subtrahend leaves the interval intact.
	if parts = Subtract(open, iv(t, day, 1080, 1140)); len(parts) != 1 || parts[0] != open {
		t.Fatalf("expected untouched interval, got %v", parts)
	}
}

func TestMergeAdjacent(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Shared-boundary intervals coalesce; gapped ones stay apart.
	merged := MergeAdjacent([]models.TimeInterval{
		iv(t, day, 540, 600),
		iv(t, day, 600, 660),
		iv(t, day, 720, 780),
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged intervals, got %d", len(merged))
	}
	if merged[0] != iv(t, day, 540, 660) || merged[1] != iv(t, day, 720, 780) {
		t.Fatalf("unexpected merge: %v", merged)
	}

	// Containment collapses entirely.
	merged = MergeAdjacent([]models.TimeInterval{
		iv(t, day, 540, 780),
		iv(t, day, 600, 660),
	})
	if len(merged) != 1 || merged[0] != iv(t, day, 540, 780) {
		t.Fatalf("unexpected containment merge: %v", merged)
	}
}

func TestSubtractAll_MergesBusyFirst(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	open := []models.TimeInterval{iv(t, day, 540, 1020)}

	// Back-to-back bookings 10:00-10:30 and 10:30-11:00 must subtract as one
	// block, not produce a phantom sliver at 10:30.
	remaining := SubtractAll(open, []models.TimeInterval{
		iv(t, day, 630, 660),
		iv(t, day, 600, 630),
	})
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining intervals, got %d: %v", len(remaining), remaining)
	}
	if remaining[0] != iv(t, day, 540, 600) || remaining[1] != iv(t, day, 660, 1020) {
		t.Fatalf("unexpected remainder: %v", remaining)
	}
}
