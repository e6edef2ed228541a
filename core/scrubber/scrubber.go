// Package scrubber is the horizontal progress bar under the timeline.
package scrubber

// State is what the client draws.
type State struct {
	Progress float64 `json:"progress"` // 0..1
	KnobX    float64 `json:"knobX"`
	WidthPx  float64 `json:"widthPx"`
}

// Scrubber maps its width onto [0, durationMs]. Pointer handlers return the
// seek target and whether a seek should be issued.
type Scrubber struct {
	width      float64
	durationMs float64
	dragging   bool
}

func New(widthPx float64) *Scrubber {
	s := &Scrubber{}
	s.SetWidth(widthPx)
	return s
}

func (s *Scrubber) SetWidth(widthPx float64) {
	if widthPx < 0 {
		widthPx = 0
	}
	s.width = widthPx
}

func (s *Scrubber) Dragging() bool { return s.dragging }

// Render records the duration used by later drags.
func (s *Scrubber) Render(currentMs, durationMs float64) State {
	s.durationMs = durationMs
	st := State{WidthPx: s.width}
	if durationMs > 0 {
		st.Progress = clamp(currentMs/durationMs, 0, 1)
	}
	st.KnobX = st.Progress * s.width
	return st
}

// Drag converts x into a time in [0, durationMs].
func (s *Scrubber) Drag(x float64) float64 {
	if s.width <= 0 || s.durationMs <= 0 {
		return 0
	}
	return clamp(x/s.width, 0, 1) * s.durationMs
}

func (s *Scrubber) PointerDown(x float64) (float64, bool) {
	s.dragging = true
	return s.Drag(x), true
}

func (s *Scrubber) PointerMove(x float64) (float64, bool) {
	if !s.dragging {
		return 0, false
	}
	return s.Drag(x), true
}

func (s *Scrubber) PointerUp(x float64) (float64, bool) {
	if !s.dragging {
		return 0, false
	}
	s.dragging = false
	return s.Drag(x), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
