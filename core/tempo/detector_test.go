package tempo

import (
	"context"
	"errors"
	"math"
	"testing"

	"BeatStudio/core/audio"
	"BeatStudio/core/editorerr"
)

// clickTrack renders short sine bursts on every beat.
func clickTrack(sampleRate int, seconds, bpm, offsetMs float64) *audio.Buffer {
	n := int(float64(sampleRate) * seconds)
	samples := make([]float32, n)
	beat := 60000 / bpm
	burst := sampleRate / 50 // 20ms
	for t := offsetMs; t < seconds*1000; t += beat {
		start := int(t * float64(sampleRate) / 1000)
		for i := 0; i < burst && start+i < n; i++ {
			samples[start+i] = float32(0.8 * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate)))
		}
	}
	return audio.NewBuffer(sampleRate, [][]float32{samples})
}

func TestDetectClickTrack(t *testing.T) {
	cases := []struct {
		bpm, offset float64
	}{
		{120, 250},
		{150, 100},
		{90, 0},
	}
	d := NewDetector(70, 200)
	for _, tc := range cases {
		r, err := d.Detect(context.Background(), clickTrack(8000, 12, tc.bpm, tc.offset))
		if err != nil {
			t.Fatalf("bpm %v: %v", tc.bpm, err)
		}
		if math.Abs(r.BPM-tc.bpm) > 1 {
			t.Errorf("bpm = %v, want %v", r.BPM, tc.bpm)
		}
		if math.Abs(r.OffsetMs-tc.offset) > 10 {
			t.Errorf("bpm %v: offset = %v, want %v", tc.bpm, r.OffsetMs, tc.offset)
		}
	}
}

func TestDetectFailures(t *testing.T) {
	d := NewDetector(70, 200)
	silent := audio.NewBuffer(8000, [][]float32{make([]float32, 8000*10)})
	short := clickTrack(8000, 1, 120, 0)

	for name, buf := range map[string]*audio.Buffer{"silent": silent, "short": short, "nil": nil} {
		_, err := d.Detect(context.Background(), buf)
		if !editorerr.Is(err, editorerr.KindDetection) {
			t.Errorf("%s: err = %v, want detection kind", name, err)
		}
		if editorerr.Message(err) == "" {
			t.Errorf("%s: missing user message", name)
		}
	}
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDetector(70, 200).Detect(ctx, clickTrack(8000, 10, 120, 0))
	if !errors.Is(err, editorerr.ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}
