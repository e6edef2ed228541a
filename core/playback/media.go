package playback

import (
	"errors"
	"sync"
)

// Command is sent to the client that owns the real media element.
type Command struct {
	Action string  `json:"action"` // play, pause, seek, volume, load
	Value  float64 `json:"value,omitempty"`
	URL    string  `json:"url,omitempty"`
}

// ErrNoClient is returned by Play when no client is attached.
var ErrNoClient = errors.New("no client attached to play audio")

// RemoteElement mirrors a client-side media element. Commands go out
// through send; the element's state is refreshed from the client's events.
// Play rejection arrives later as a separate client message.
type RemoteElement struct {
	mu       sync.Mutex
	send     func(Command) bool
	current  float64
	duration float64
}

// NewRemoteElement takes a send function that reports whether any client
// received the command.
func NewRemoteElement(send func(Command) bool) *RemoteElement {
	return &RemoteElement{send: send}
}

func (r *RemoteElement) Play() error {
	if !r.send(Command{Action: "play"}) {
		return ErrNoClient
	}
	return nil
}

func (r *RemoteElement) Pause() { r.send(Command{Action: "pause"}) }

func (r *RemoteElement) CurrentTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *RemoteElement) SetCurrentTime(sec float64) {
	r.mu.Lock()
	r.current = sec
	r.mu.Unlock()
	r.send(Command{Action: "seek", Value: sec})
}

func (r *RemoteElement) SetVolume(v float64) { r.send(Command{Action: "volume", Value: v}) }

func (r *RemoteElement) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

// Load asks the client to switch its source.
func (r *RemoteElement) Load(url string) {
	r.mu.Lock()
	r.current, r.duration = 0, 0
	r.mu.Unlock()
	r.send(Command{Action: "load", URL: url})
}

// Observe records the position and duration reported by a client event.
func (r *RemoteElement) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ev.CurrentTime
	if ev.Duration > 0 {
		r.duration = ev.Duration
	}
}
