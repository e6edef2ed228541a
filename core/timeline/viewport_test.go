package timeline

import (
	"math"
	"testing"
)

func TestRoundTripWithinOnePixel(t *testing.T) {
	v := NewViewport(0.2)
	v.SetDuration(180000)
	for _, zoom := range []float64{0.25, 0.33, 0.5, 0.75, 1.0} {
		if err := v.SetZoom(zoom); err != nil {
			t.Fatalf("SetZoom(%v): %v", zoom, err)
		}
		width := v.Width()
		for x := 0.0; x <= width; x += 7.3 {
			got := v.TimeToX(v.XToTime(x))
			if math.Abs(got-x) > 1 {
				t.Fatalf("zoom=%v x=%v round-trip=%v", zoom, x, got)
			}
		}
	}
}

func TestTimeToXScalesWithZoom(t *testing.T) {
	v := NewViewport(0.5)
	v.SetDuration(10000)
	if got := v.TimeToX(1000); got != 500 {
		t.Fatalf("TimeToX(1000) at zoom 1 = %v, want 500", got)
	}
	_ = v.SetZoom(0.25)
	if got := v.TimeToX(1000); got != 125 {
		t.Fatalf("TimeToX(1000) at zoom 0.25 = %v, want 125", got)
	}
}

func TestSetZoomRejectsNonPositive(t *testing.T) {
	v := NewViewport(0.2)
	for _, z := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := v.SetZoom(z); err == nil {
			t.Fatalf("SetZoom(%v) should fail", z)
		}
	}
	if v.Zoom() != 1 {
		t.Fatalf("zoom changed to %v after rejected updates", v.Zoom())
	}
}

func TestSetZoomAcceptsOutOfUIRange(t *testing.T) {
	v := NewViewport(0.2)
	if err := v.SetZoom(4); err != nil {
		t.Fatalf("SetZoom(4): %v", err)
	}
	if got := ClampZoom(4, 0.25, 1); got != 1 {
		t.Fatalf("ClampZoom = %v", got)
	}
	if got := ClampZoom(0.1, 0.25, 1); got != 0.25 {
		t.Fatalf("ClampZoom = %v", got)
	}
}

func TestSubscribersNotifiedSynchronously(t *testing.T) {
	v := NewViewport(0.2)
	var seen []Snapshot
	cancel := v.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	v.SetDuration(5000)
	_ = v.SetZoom(0.5)
	_ = v.SetZoom(0.5) // unchanged, no notification

	if len(seen) != 2 {
		t.Fatalf("got %d notifications, want 2", len(seen))
	}
	if seen[1].Zoom != 0.5 || seen[1].DurationMs != 5000 {
		t.Fatalf("last snapshot = %+v", seen[1])
	}

	cancel()
	v.SetDuration(6000)
	if len(seen) != 2 {
		t.Fatalf("notified after cancel")
	}
}

func TestVisibleRangeClampsToDuration(t *testing.T) {
	v := NewViewport(0.1)
	v.SetDuration(10000) // 1000px wide at zoom 1
	start, end := v.VisibleRange(800, 400)
	if start != 8000 || end != 10000 {
		t.Fatalf("VisibleRange = %v..%v", start, end)
	}
	start, end = v.VisibleRange(-50, 100)
	if start != 0 || end != 1000 {
		t.Fatalf("VisibleRange negative scroll = %v..%v", start, end)
	}
}
