// Package waveform turns a decoded buffer into per-column amplitude peaks for
// the visible part of the timeline.
package waveform

import (
	"math"

	"BeatStudio/core/audio"
	"BeatStudio/core/editorerr"
	"BeatStudio/core/timeline"
)

// State of the waveform area.
type State string

const (
	StateEmpty   State = "empty" // no song selected
	StateLoading State = "loading"
	StateError   State = "error"
	StateReady   State = "ready"
)

// Column is the sample range covered by one pixel column.
type Column struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// Frame is one rendered view of the waveform.
type Frame struct {
	State     State    `json:"state"`
	Message   string   `json:"message,omitempty"`
	ScrollX   float64  `json:"scrollX"`
	WidthPx   int      `json:"widthPx"`
	StartMs   float64  `json:"startMs"`
	EndMs     float64  `json:"endMs"`
	Columns   []Column `json:"columns,omitempty"`
	PlayheadX float64  `json:"playheadX"` // relative to ScrollX; may fall outside [0, WidthPx)
}

type peakKey struct {
	snap    timeline.Snapshot
	scrollX float64
	width   int
	version uint64
}

// Renderer keeps the waveform source and caches the last computed peaks, so
// playhead-only updates skip the sample scan.
type Renderer struct {
	state   State
	message string
	buf     *audio.Buffer
	version uint64

	cacheKey peakKey
	cached   []Column
}

func NewRenderer() *Renderer {
	return &Renderer{state: StateEmpty}
}

func (r *Renderer) State() State { return r.state }

func (r *Renderer) Buffer() *audio.Buffer { return r.buf }

// SetLoading drops the current buffer.
func (r *Renderer) SetLoading() {
	r.state, r.message, r.buf = StateLoading, "", nil
	r.version++
}

// SetError enters the error state with the user-facing message of err.
func (r *Renderer) SetError(err error) {
	r.state, r.message, r.buf = StateError, editorerr.Message(err), nil
	r.version++
}

func (r *Renderer) SetBuffer(buf *audio.Buffer) {
	r.state, r.message, r.buf = StateReady, "", buf
	r.version++
}

// Reset returns to the empty state.
func (r *Renderer) Reset() {
	r.state, r.message, r.buf = StateEmpty, "", nil
	r.version++
}

// Render computes the frame for [scrollX, scrollX+widthPx). It never fails;
// without a buffer the frame carries only state and playhead.
func (r *Renderer) Render(snap timeline.Snapshot, currentMs, scrollX float64, widthPx int) Frame {
	if widthPx < 0 {
		widthPx = 0
	}
	f := Frame{
		State:     r.state,
		Message:   r.message,
		ScrollX:   scrollX,
		WidthPx:   widthPx,
		StartMs:   snap.XToTime(scrollX),
		EndMs:     snap.XToTime(scrollX + float64(widthPx)),
		PlayheadX: snap.TimeToX(currentMs) - scrollX,
	}
	if r.state != StateReady || r.buf == nil || widthPx == 0 {
		return f
	}

	key := peakKey{snap: snap, scrollX: scrollX, width: widthPx, version: r.version}
	if key != r.cacheKey || r.cached == nil {
		r.cached = peaks(r.buf, snap, scrollX, widthPx)
		r.cacheKey = key
	}
	f.Columns = r.cached
	return f
}

func peaks(buf *audio.Buffer, snap timeline.Snapshot, scrollX float64, widthPx int) []Column {
	mono := buf.Mono()
	cols := make([]Column, widthPx)
	perMs := float64(buf.SampleRate) / 1000
	for c := 0; c < widthPx; c++ {
		from := int(math.Floor(snap.XToTime(scrollX+float64(c)) * perMs))
		to := int(math.Ceil(snap.XToTime(scrollX+float64(c+1)) * perMs))
		if from < 0 {
			from = 0
		}
		if to > len(mono) {
			to = len(mono)
		}
		if from >= to {
			continue
		}
		lo, hi := mono[from], mono[from]
		for _, s := range mono[from+1 : to] {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		cols[c] = Column{Min: lo, Max: hi}
	}
	return cols
}

// PointerSeek converts a pointer x within the rendered region to a seek time
// clamped to the song.
func PointerSeek(snap timeline.Snapshot, scrollX, x float64) float64 {
	t := snap.XToTime(scrollX + x)
	if t < 0 {
		return 0
	}
	if t > snap.DurationMs {
		return snap.DurationMs
	}
	return t
}
