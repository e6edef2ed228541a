package waveform

import (
	"errors"
	"strings"
	"testing"

	"BeatStudio/core/audio"
	"BeatStudio/core/editorerr"
	"BeatStudio/core/timeline"
)

func snapshot(durationMs, zoom float64) timeline.Snapshot {
	v := timeline.NewViewport(0.2)
	v.SetDuration(durationMs)
	v.SetZoom(zoom)
	return v.Snapshot()
}

func TestRenderWithoutBuffer(t *testing.T) {
	r := NewRenderer()
	snap := snapshot(10000, 1)

	r.SetLoading()
	f := r.Render(snap, 0, 0, 100)
	if f.State != StateLoading || f.Columns != nil {
		t.Fatalf("loading frame = %+v", f)
	}

	r.SetError(editorerr.New(editorerr.KindDecode, "bad header", "The audio file could not be decoded."))
	f = r.Render(snap, 500, 0, 100)
	if f.State != StateError || f.Message != "The audio file could not be decoded." {
		t.Fatalf("error frame = %+v", f)
	}
	if f.PlayheadX != 100 {
		t.Fatalf("PlayheadX = %v", f.PlayheadX)
	}

	r.SetError(errors.New("raw: connection reset by peer"))
	if strings.Contains(r.Render(snap, 0, 0, 10).Message, "connection reset") {
		t.Fatal("raw error text leaked into frame")
	}
}

func TestRenderPeaks(t *testing.T) {
	// 1 kHz samples: 1 sample per ms; first half silent, second half full scale.
	samples := make([]float32, 2000)
	for i := 1000; i < 2000; i++ {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	r := NewRenderer()
	r.SetBuffer(audio.NewBuffer(1000, [][]float32{samples}))

	snap := snapshot(2000, 1) // 0.2 px/ms, 400 px wide
	f := r.Render(snap, 1000, 0, 400)
	if len(f.Columns) != 400 {
		t.Fatalf("columns = %d", len(f.Columns))
	}
	if c := f.Columns[10]; c.Min != 0 || c.Max != 0 {
		t.Fatalf("silent column = %+v", c)
	}
	if c := f.Columns[300]; c.Min != -1 || c.Max != 1 {
		t.Fatalf("loud column = %+v", c)
	}
	if f.PlayheadX != 200 {
		t.Fatalf("PlayheadX = %v", f.PlayheadX)
	}

	// Playhead-only change reuses the cached columns.
	g := r.Render(snap, 1500, 0, 400)
	if &g.Columns[0] != &f.Columns[0] {
		t.Fatal("expected cached columns for a playhead-only update")
	}
	// A zoom change recomputes.
	h := r.Render(snapshot(2000, 0.5), 1500, 0, 400)
	if &h.Columns[0] == &f.Columns[0] {
		t.Fatal("expected new columns after zoom change")
	}
	if c := h.Columns[150]; c.Min != -1 || c.Max != 1 {
		t.Fatalf("zoomed-out loud column = %+v", c)
	}
	if c := h.Columns[350]; c.Min != 0 || c.Max != 0 {
		t.Fatalf("column past the end of audio = %+v", c)
	}
}

func TestPointerSeekClamps(t *testing.T) {
	snap := snapshot(1000, 1) // 200px wide
	cases := []struct {
		scroll, x, want float64
	}{
		{0, 100, 500},
		{0, -20, 0},
		{50, 500, 1000},
		{100, 0, 500},
	}
	for _, tc := range cases {
		if got := PointerSeek(snap, tc.scroll, tc.x); got != tc.want {
			t.Errorf("PointerSeek(%v, %v) = %v, want %v", tc.scroll, tc.x, got, tc.want)
		}
	}
}

func TestRenderTerminal(t *testing.T) {
	r := NewRenderer()
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = 0.5
	}
	r.SetBuffer(audio.NewBuffer(1000, [][]float32{samples}))
	out := RenderTerminal(r.Render(snapshot(1000, 1), 100, 0, 40), 7, []float64{10})
	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("lines = %d, want 7 rows plus axis", len(lines))
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "▼") {
		t.Fatal("expected playhead and note markers")
	}

	r.SetLoading()
	if got := RenderTerminal(r.Render(snapshot(1000, 1), 0, 0, 40), 7, nil); !strings.Contains(got, "loading") {
		t.Fatalf("loading render = %q", got)
	}
}
