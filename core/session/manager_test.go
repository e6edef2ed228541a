package session

import (
	"encoding/json"
	"testing"
	"time"

	"BeatStudio/core/editorerr"
)

type fixedCounter int

func (c fixedCounter) ClientCount(string) int { return int(c) }

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(Deps{}, testOptions(), time.Minute)
	defer m.Stop()

	s := m.Create()
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if ids := m.IDs(); len(ids) != 1 || ids[0] != s.ID {
		t.Fatalf("IDs = %v", ids)
	}
	if err := m.Close(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID); !editorerr.Is(err, editorerr.KindNotFound) {
		t.Fatalf("Get after close: %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("closed session loop still running")
	}
}

func TestManagerReapsIdleSessions(t *testing.T) {
	m := NewManager(Deps{}, testOptions(), time.Minute)
	defer m.Stop()

	s := m.Create()
	if n := m.reap(time.Now()); n != 0 {
		t.Fatalf("fresh session reaped")
	}

	m.SetClientCounter(fixedCounter(1))
	if n := m.reap(time.Now().Add(time.Hour)); n != 0 {
		t.Fatalf("attached session reaped")
	}

	m.SetClientCounter(fixedCounter(0))
	if n := m.reap(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if _, err := m.Get(s.ID); err == nil {
		t.Fatal("reaped session still registered")
	}
}

func TestHubFansOutSessionEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	s := newTestSession(t, Deps{})
	c := NewClient(hub, nil, s)
	hub.Register(c)

	if hub.ClientCount(s.ID) != 1 || s.SubscriberCount() != 1 {
		t.Fatalf("clients=%d subscribers=%d", hub.ClientCount(s.ID), s.SubscriberCount())
	}

	if err := s.SetSFX(true); err != nil {
		t.Fatal(err)
	}
	select {
	case raw := <-c.Send:
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MsgTypeState || msg.SessionID != s.ID {
			t.Fatalf("message = %+v", msg)
		}
		var st State
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			t.Fatal(err)
		}
		if !st.SFXEnabled {
			t.Fatal("state should carry sfxEnabled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message fanned out")
	}

	hub.Unregister(c)
	for range c.Send {
	}
	if hub.ClientCount(s.ID) != 0 {
		t.Fatal("client still registered")
	}
}

func TestKeyEventInTextInput(t *testing.T) {
	tests := []struct {
		ev   KeyEvent
		want bool
	}{
		{KeyEvent{Target: "INPUT"}, true},
		{KeyEvent{Target: "textarea"}, true},
		{KeyEvent{Target: "Select"}, true},
		{KeyEvent{Target: "DIV", ContentEditable: true}, true},
		{KeyEvent{Target: "CANVAS"}, false},
		{KeyEvent{}, false},
	}
	for _, tt := range tests {
		if got := tt.ev.InTextInput(); got != tt.want {
			t.Errorf("InTextInput(%+v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
	if !(KeyEvent{Key: " "}).IsSpace() || !(KeyEvent{Code: "Space"}).IsSpace() || (KeyEvent{Key: "a"}).IsSpace() {
		t.Fatal("IsSpace mismatch")
	}
}
