// Package timeline maps playback time to horizontal pixel positions under a
// zoom factor. One Viewport instance is shared by every renderer of a session.
package timeline

import (
	"fmt"
	"math"
	"sync"
)

// Snapshot is an immutable copy of the viewport state handed to subscribers.
type Snapshot struct {
	Zoom        float64 `json:"zoom"`
	DurationMs  float64 `json:"durationMs"`
	PixelsPerMs float64 `json:"pixelsPerMs"` // at zoom 1
	WidthPx     float64 `json:"widthPx"`     // full timeline width at the current zoom
}

// TimeToX converts milliseconds to a pixel offset.
func (s Snapshot) TimeToX(ms float64) float64 {
	return ms * s.PixelsPerMs * s.Zoom
}

// XToTime converts a pixel offset to milliseconds.
func (s Snapshot) XToTime(px float64) float64 {
	scale := s.PixelsPerMs * s.Zoom
	if scale <= 0 {
		return 0
	}
	return px / scale
}

// Viewport owns zoom and duration. Setters notify subscribers synchronously so
// no renderer ever observes a stale frame.
type Viewport struct {
	mu          sync.RWMutex
	zoom        float64
	durationMs  float64
	pixelsPerMs float64

	nextID      int
	subscribers map[int]func(Snapshot)
}

// NewViewport creates a viewport at zoom 1 with no duration.
func NewViewport(pixelsPerMs float64) *Viewport {
	if pixelsPerMs <= 0 {
		pixelsPerMs = 0.2
	}
	return &Viewport{
		zoom:        1,
		pixelsPerMs: pixelsPerMs,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (v *Viewport) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

func (v *Viewport) snapshotLocked() Snapshot {
	return Snapshot{
		Zoom:        v.zoom,
		DurationMs:  v.durationMs,
		PixelsPerMs: v.pixelsPerMs,
		WidthPx:     v.durationMs * v.pixelsPerMs * v.zoom,
	}
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// DurationMs returns the total timeline duration.
func (v *Viewport) DurationMs() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.durationMs
}

// Width returns the full timeline width in pixels at the current zoom.
func (v *Viewport) Width() float64 {
	return v.Snapshot().WidthPx
}

// TimeToX converts milliseconds to a pixel offset.
func (v *Viewport) TimeToX(ms float64) float64 {
	return v.Snapshot().TimeToX(ms)
}

// XToTime converts a pixel offset to milliseconds.
func (v *Viewport) XToTime(px float64) float64 {
	return v.Snapshot().XToTime(px)
}

// SetZoom accepts any positive, finite factor. Range limits are the caller's
// business, see ClampZoom.
func (v *Viewport) SetZoom(factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return fmt.Errorf("invalid zoom factor %v", factor)
	}
	v.mu.Lock()
	if v.zoom == factor {
		v.mu.Unlock()
		return nil
	}
	v.zoom = factor
	snap, subs := v.snapshotLocked(), v.subscriberList()
	v.mu.Unlock()

	notify(subs, snap)
	return nil
}

// SetDuration sets the timeline length. Negative values are treated as zero.
func (v *Viewport) SetDuration(ms float64) {
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}
	v.mu.Lock()
	if v.durationMs == ms {
		v.mu.Unlock()
		return
	}
	v.durationMs = ms
	snap, subs := v.snapshotLocked(), v.subscriberList()
	v.mu.Unlock()

	notify(subs, snap)
}

// Subscribe registers fn for change notifications and returns a cancel func.
func (v *Viewport) Subscribe(fn func(Snapshot)) (cancel func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subscribers[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subscribers, id)
		v.mu.Unlock()
	}
}

// VisibleRange returns the [start, end] milliseconds covered by a window of
// widthPx pixels scrolled scrollX pixels from the origin.
func (v *Viewport) VisibleRange(scrollX, widthPx float64) (startMs, endMs float64) {
	snap := v.Snapshot()
	if scrollX < 0 {
		scrollX = 0
	}
	startMs = snap.XToTime(scrollX)
	endMs = snap.XToTime(scrollX + widthPx)
	if endMs > snap.DurationMs {
		endMs = snap.DurationMs
	}
	if startMs > endMs {
		startMs = endMs
	}
	return startMs, endMs
}

// subscriberList must be called with mu held. Ordered by registration.
func (v *Viewport) subscriberList() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(v.subscribers))
	for id := 0; id < v.nextID; id++ {
		if fn, ok := v.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// ClampZoom limits z to [min, max].
func ClampZoom(z, min, max float64) float64 {
	if z < min {
		return min
	}
	if z > max {
		return max
	}
	return z
}
