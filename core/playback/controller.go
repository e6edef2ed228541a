// Package playback owns the playback clock. Time flows one way from the
// media element's events; Seek is the only external write.
package playback

import (
	"math"

	"BeatStudio/core/editorerr"
)

// MediaElement is the audio primitive being controlled.
type MediaElement interface {
	Play() error
	Pause()
	CurrentTime() float64 // seconds
	SetCurrentTime(sec float64)
	SetVolume(v float64)
	Duration() float64 // seconds, 0 when unknown
}

// EventType is a media element event.
type EventType string

const (
	EventTimeUpdate     EventType = "timeupdate"
	EventLoadedMetadata EventType = "loadedmetadata"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventEnded          EventType = "ended"
)

// Event carries the element's reported position and duration in seconds.
type Event struct {
	Type        EventType `json:"type"`
	CurrentTime float64   `json:"currentTime"`
	Duration    float64   `json:"duration"`
}

// State 播放状态
type State struct {
	CurrentTimeMs float64 `json:"currentTimeMs"`
	DurationMs    float64 `json:"durationMs"`
	IsPlaying     bool    `json:"isPlaying"`
	Volume        float64 `json:"volume"`
}

// Controller is not safe for concurrent use; the session loop is its only
// caller.
type Controller struct {
	el        MediaElement
	state     State
	listeners []func(prev, next State)
}

func NewController(el MediaElement) *Controller {
	c := &Controller{el: el, state: State{Volume: 1}}
	el.SetVolume(1)
	return c
}

func (c *Controller) State() State { return c.state }

// OnChange registers fn for every state change.
func (c *Controller) OnChange(fn func(prev, next State)) {
	c.listeners = append(c.listeners, fn)
}

// TogglePlay pauses when playing, otherwise starts playback. A rejected start
// leaves IsPlaying false and returns a playback error.
func (c *Controller) TogglePlay() error {
	if c.state.IsPlaying {
		c.el.Pause()
		c.set(func(s *State) { s.IsPlaying = false })
		return nil
	}

	c.set(func(s *State) { s.IsPlaying = true })
	if err := c.el.Play(); err != nil {
		return c.HandlePlayRejected(err)
	}
	return nil
}

// HandlePlayRejected rolls back IsPlaying after an asynchronous play failure.
func (c *Controller) HandlePlayRejected(cause error) error {
	c.set(func(s *State) { s.IsPlaying = false })
	return editorerr.Wrap(cause, editorerr.KindPlayback,
		"Playback could not start. Click play again to allow audio.")
}

// Stop pauses and rewinds to 0.
func (c *Controller) Stop() {
	c.el.Pause()
	c.el.SetCurrentTime(0)
	c.set(func(s *State) {
		s.IsPlaying = false
		s.CurrentTimeMs = 0
	})
}

// Seek moves to ms clamped to [0, duration] and returns the applied time.
func (c *Controller) Seek(ms float64) float64 {
	if math.IsNaN(ms) {
		ms = 0
	}
	ms = math.Max(0, math.Min(ms, c.state.DurationMs))
	c.el.SetCurrentTime(ms / 1000)
	c.set(func(s *State) { s.CurrentTimeMs = ms })
	return ms
}

// SetVolume clamps v to [0, 1].
func (c *Controller) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = math.Max(0, math.Min(v, 1))
	c.el.SetVolume(v)
	c.set(func(s *State) { s.Volume = v })
}

// SetDuration is used when the decoded buffer knows the length before the
// element reports metadata.
func (c *Controller) SetDuration(ms float64) {
	if ms < 0 {
		ms = 0
	}
	c.set(func(s *State) {
		s.DurationMs = ms
		if s.CurrentTimeMs > ms {
			s.CurrentTimeMs = ms
		}
	})
}

// Reset is used on song switch.
func (c *Controller) Reset() {
	if c.state.IsPlaying {
		c.el.Pause()
	}
	vol := c.state.Volume
	c.set(func(s *State) { *s = State{Volume: vol} })
}

// HandleEvent applies a media element event.
func (c *Controller) HandleEvent(ev Event) {
	switch ev.Type {
	case EventTimeUpdate:
		c.set(func(s *State) { s.CurrentTimeMs = ev.CurrentTime * 1000 })
	case EventLoadedMetadata:
		if ev.Duration > 0 && !math.IsInf(ev.Duration, 0) {
			c.set(func(s *State) { s.DurationMs = ev.Duration * 1000 })
		}
	case EventPlay:
		c.set(func(s *State) { s.IsPlaying = true })
	case EventPause:
		c.set(func(s *State) {
			s.IsPlaying = false
			s.CurrentTimeMs = ev.CurrentTime * 1000
		})
	case EventEnded:
		c.set(func(s *State) {
			s.IsPlaying = false
			s.CurrentTimeMs = s.DurationMs
		})
	}
}

func (c *Controller) set(mut func(*State)) {
	prev := c.state
	mut(&c.state)
	if prev == c.state {
		return
	}
	for _, fn := range c.listeners {
		fn(prev, c.state)
	}
}
