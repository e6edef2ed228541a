package tempo

import "sync"

// Status is the detection state of one song inside a session.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInFlight   Status = "in-flight"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

type entry struct {
	status Status
	result Result
}

// Tracker records per-song detection status so detection runs at most once
// per song. Failed is terminal.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Status returns StatusNotStarted for unknown songs.
func (t *Tracker) Status(songID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[songID]; ok {
		return e.status
	}
	return StatusNotStarted
}

// Begin moves a song from not-started to in-flight. It reports false when
// detection already ran, is running, or failed.
func (t *Tracker) Begin(songID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[songID]; ok && e.status != StatusNotStarted {
		return false
	}
	t.entries[songID] = &entry{status: StatusInFlight}
	return true
}

// Done stores a successful result.
func (t *Tracker) Done(songID string, r Result) {
	t.mu.Lock()
	t.entries[songID] = &entry{status: StatusDone, result: r}
	t.mu.Unlock()
}

// Fail stores the fallback result and marks the song failed.
func (t *Tracker) Fail(songID string, fallback Result) {
	t.mu.Lock()
	t.entries[songID] = &entry{status: StatusFailed, result: fallback}
	t.mu.Unlock()
}

// Abandon returns an in-flight song to not-started, used when its detection
// was cancelled before finishing.
func (t *Tracker) Abandon(songID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[songID]; ok && e.status == StatusInFlight {
		delete(t.entries, songID)
	}
}

// Result returns the stored result for a done or failed song.
func (t *Tracker) Result(songID string) (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[songID]
	if !ok || (e.status != StatusDone && e.status != StatusFailed) {
		return Result{}, false
	}
	return e.result, true
}

// Snapshot copies the status map.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Status, len(t.entries))
	for id, e := range t.entries {
		out[id] = e.status
	}
	return out
}
