package tempo

import (
	"context"
	"errors"
	"testing"

	"BeatStudio/core/audio"
)

func TestTrackerRunsOnce(t *testing.T) {
	tr := NewTracker()
	if tr.Status("a") != StatusNotStarted {
		t.Fatalf("unknown song should be not-started")
	}
	if !tr.Begin("a") {
		t.Fatal("first Begin should succeed")
	}
	if tr.Begin("a") {
		t.Fatal("second Begin while in flight should fail")
	}
	tr.Done("a", Result{BPM: 128})
	if tr.Begin("a") {
		t.Fatal("Begin after done should fail")
	}
	if r, ok := tr.Result("a"); !ok || r.BPM != 128 {
		t.Fatalf("Result = %+v, %v", r, ok)
	}
}

func TestTrackerFailedIsTerminal(t *testing.T) {
	tr := NewTracker()
	tr.Begin("b")
	tr.Fail("b", Result{BPM: 120})
	for i := 0; i < 3; i++ {
		if tr.Begin("b") {
			t.Fatal("failed detection must not be retried")
		}
	}
	if tr.Status("b") != StatusFailed {
		t.Fatalf("status = %s", tr.Status("b"))
	}
}

func TestTrackerAbandon(t *testing.T) {
	tr := NewTracker()
	tr.Begin("c")
	tr.Abandon("c")
	if tr.Status("c") != StatusNotStarted {
		t.Fatalf("abandoned song status = %s", tr.Status("c"))
	}
	tr.Begin("c")
	tr.Done("c", Result{BPM: 100})
	tr.Abandon("c")
	if tr.Status("c") != StatusDone {
		t.Fatal("Abandon must not clear a finished song")
	}
}

type memCache struct {
	data map[string]Result
	err  error
}

func (m *memCache) GetTempo(_ context.Context, hash string) (Result, bool, error) {
	if m.err != nil {
		return Result{}, false, m.err
	}
	r, ok := m.data[hash]
	return r, ok, nil
}

func (m *memCache) SetTempo(_ context.Context, hash string, r Result) error {
	if m.err != nil {
		return m.err
	}
	m.data[hash] = r
	return nil
}

type countingEstimator struct {
	n int
	r Result
}

func (c *countingEstimator) Detect(context.Context, *audio.Buffer) (Result, error) {
	c.n++
	return c.r, nil
}

func TestCachedDetector(t *testing.T) {
	inner := &countingEstimator{r: Result{BPM: 140, OffsetMs: 20}}
	cache := &memCache{data: map[string]Result{}}
	cd := NewCachedDetector(inner, cache)
	buf := audio.NewBuffer(100, [][]float32{{0}})
	buf.SourceHash = "abc"

	for i := 0; i < 2; i++ {
		r, err := cd.Detect(context.Background(), buf)
		if err != nil || r.BPM != 140 {
			t.Fatalf("Detect = %+v, %v", r, err)
		}
	}
	if inner.n != 1 {
		t.Fatalf("inner detector ran %d times, want 1", inner.n)
	}

	cache.err = errors.New("redis down")
	if _, err := cd.Detect(context.Background(), buf); err != nil {
		t.Fatalf("cache errors must be ignored: %v", err)
	}
	if inner.n != 2 {
		t.Fatalf("inner detector should run when cache fails")
	}
}
