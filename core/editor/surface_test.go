package editor

import (
	"fmt"
	"math"
	"testing"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/timeline"
	"BeatStudio/model"
)

// newTestSurface returns a surface over a 10s song at 0.2 px/ms (zoom 1),
// 4 lanes of 40px, bpm 180, with deterministic ids.
func newTestSurface(t *testing.T, snapOn bool) (*Surface, *[][]model.Note) {
	t.Helper()
	vp := timeline.NewViewport(0.2)
	vp.SetDuration(10000)
	s := NewSurface(vp, DefaultLayout(), SnapConfig{Enabled: snapOn, Division: 4}, 1)
	s.SetTempo(180, 0)
	n := 0
	s.newID = func() string { n++; return fmt.Sprintf("n%d", n) }

	var changes [][]model.Note
	s.OnChange(func(notes []model.Note) { changes = append(changes, notes) })
	return s, &changes
}

func TestGridSnap(t *testing.T) {
	g := Grid{BPM: 180, Division: 4}
	cases := []struct {
		in, want float64
	}{
		{510, 500},
		{500, 500},
		{0, 0},
		{41, 0},
		{42, 83.333},
		{1000, 1000},
	}
	for _, tc := range cases {
		if got := g.Snap(tc.in); got != tc.want {
			t.Errorf("Snap(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}

	withOffset := Grid{BPM: 120, OffsetMs: 50, Division: 1}
	if got := withOffset.Snap(560); got != 550 {
		t.Errorf("offset grid Snap(560) = %v, want 550", got)
	}
	if (Grid{}).Snap(123) != 123 {
		t.Error("undefined grid should not move times")
	}
}

func TestPlaceSnapped(t *testing.T) {
	s, changes := newTestSurface(t, true)
	if _, err := s.PointerDown(102, 50, ButtonPrimary); err != nil { // 510ms, lane 1
		t.Fatal(err)
	}
	notes := s.Notes()
	if len(notes) != 1 {
		t.Fatalf("notes = %v", notes)
	}
	n := notes[0]
	if n.Time != 500 || n.Lane != 1 || n.Type != model.NoteTap || n.ID != "n1" {
		t.Fatalf("placed note = %+v", n)
	}
	if len(*changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(*changes))
	}
}

func TestPlaceUnsnapped(t *testing.T) {
	s, _ := newTestSurface(t, false)
	s.PointerDown(102, 10, ButtonPrimary)
	if n := s.Notes()[0]; n.Time != 510 || n.Lane != 0 {
		t.Fatalf("placed note = %+v", n)
	}
}

func TestPlaceClampsLaneAndTime(t *testing.T) {
	s, _ := newTestSurface(t, false)
	n, err := s.AddNote(12000, 9, model.NoteTap)
	if err != nil {
		t.Fatal(err)
	}
	if n.Time != 10000 || n.Lane != 3 {
		t.Fatalf("note = %+v", n)
	}
	if n, _ = s.AddNote(-40, -1, model.NoteTap); n.Time != 0 || n.Lane != 0 {
		t.Fatalf("note = %+v", n)
	}
}

func TestHoldToolDefaultsToOneStep(t *testing.T) {
	s, _ := newTestSurface(t, true)
	s.SetTool(model.NoteHold)
	s.PointerDown(200, 10, ButtonPrimary) // 1000ms
	n := s.Notes()[0]
	if n.Type != model.NoteHold || math.Abs(n.Duration-60000.0/180/4) > 1e-9 {
		t.Fatalf("hold note = %+v", n)
	}
}

func TestDragCommitsOnce(t *testing.T) {
	s, changes := newTestSurface(t, true)
	s.AddNote(1000, 0, model.NoteTap) // x = 200
	*changes = nil

	hit, err := s.PointerDown(201, 10, ButtonPrimary)
	if err != nil || hit.Kind != HitBody || hit.NoteID != "n1" {
		t.Fatalf("hit = %+v, %v", hit, err)
	}
	if s.Gesture() != GestureDragging {
		t.Fatalf("gesture = %s", s.Gesture())
	}
	for x := 210.0; x < 300; x += 10 {
		s.PointerMove(x, 90)
	}
	if len(*changes) != 0 {
		t.Fatal("moves must not commit")
	}
	if p, ok := s.Preview(); !ok || p.Lane != 2 {
		t.Fatalf("preview = %+v", p)
	}
	if err := s.PointerUp(301, 90); err != nil { // grabbed 5ms right of the note
		t.Fatal(err)
	}
	if len(*changes) != 1 {
		t.Fatalf("changes = %d, want exactly 1", len(*changes))
	}
	n, _ := s.Note("n1")
	if n.Time != 1500 || n.Lane != 2 {
		t.Fatalf("moved note = %+v", n)
	}
	if s.Gesture() != GestureIdle {
		t.Fatal("gesture not reset")
	}
}

func TestDragClampsToSong(t *testing.T) {
	s, _ := newTestSurface(t, false)
	s.AddNote(9000, 0, model.NoteTap) // x = 1800
	s.PointerDown(1800, 5, ButtonPrimary)
	s.PointerUp(5000, 5)
	if n, _ := s.Note("n1"); n.Time != 10000 {
		t.Fatalf("dragged past end: %+v", n)
	}
	s.PointerDown(2000, 5, ButtonPrimary)
	s.PointerUp(-300, 5)
	if n, _ := s.Note("n1"); n.Time != 0 {
		t.Fatalf("dragged past start: %+v", n)
	}
}

func TestResizeHold(t *testing.T) {
	s, changes := newTestSurface(t, false)
	n, _ := s.AddNote(1000, 0, model.NoteHold)
	s.ResizeNote(n.ID, 500) // tail at x = 300
	*changes = nil

	hit, _ := s.PointerDown(300, 10, ButtonPrimary)
	if hit.Kind != HitTail || s.Gesture() != GestureResizing {
		t.Fatalf("hit = %+v, gesture = %s", hit, s.Gesture())
	}
	if err := s.PointerUp(400, 10); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Note(n.ID); got.Duration != 1000 {
		t.Fatalf("duration = %v", got.Duration)
	}

	// Dragging the tail before the head is rejected.
	s.PointerDown(400, 10, ButtonPrimary)
	err := s.PointerUp(150, 10)
	if !editorerr.Is(err, editorerr.KindInvalid) {
		t.Fatalf("err = %v", err)
	}
	if got, _ := s.Note(n.ID); got.Duration != 1000 {
		t.Fatalf("rejected resize changed duration to %v", got.Duration)
	}
	if len(*changes) != 1 {
		t.Fatalf("changes = %d", len(*changes))
	}
	if err := s.ResizeNote(n.ID, 0); err == nil {
		t.Fatal("zero duration accepted")
	}
}

func TestResizeTapRejected(t *testing.T) {
	s, _ := newTestSurface(t, false)
	n, _ := s.AddNote(1000, 0, model.NoteTap)
	if err := s.ResizeNote(n.ID, 300); err == nil {
		t.Fatal("tap resize accepted")
	}
}

func TestDeleteAndChangeType(t *testing.T) {
	s, changes := newTestSurface(t, true)
	a, _ := s.AddNote(1000, 0, model.NoteTap)
	b, _ := s.AddNote(2000, 1, model.NoteTap)

	if _, err := s.PointerDown(200, 5, ButtonSecondary); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Note(a.ID); ok {
		t.Fatal("note not deleted")
	}
	if err := s.DeleteNote(a.ID); !editorerr.Is(err, editorerr.KindNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	if err := s.ChangeType(b.ID, model.NoteHold); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Note(b.ID); n.Type != model.NoteHold || n.Duration <= 0 {
		t.Fatalf("changed note = %+v", n)
	}
	s.ChangeType(b.ID, model.NoteTap)
	if n, _ := s.Note(b.ID); n.Duration != 0 {
		t.Fatalf("tap kept duration %v", n.Duration)
	}
	if got := len(*changes); got != 5 {
		t.Fatalf("changes = %d, want 5", got)
	}
}

func TestNotesStaySorted(t *testing.T) {
	s, _ := newTestSurface(t, false)
	s.AddNote(3000, 0, model.NoteTap)
	s.AddNote(1000, 0, model.NoteTap)
	s.AddNote(2000, 0, model.NoteTap)
	notes := s.Notes()
	for i := 1; i < len(notes); i++ {
		if notes[i-1].Time > notes[i].Time {
			t.Fatalf("unsorted: %+v", notes)
		}
	}
}

func TestSetNotesClampsLanes(t *testing.T) {
	cases := []struct {
		lane, want int
	}{
		{-2, 0},
		{0, 0},
		{3, 3},
		{4, 3},
		{9, 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.lane), func(t *testing.T) {
			s, _ := newTestSurface(t, false)
			s.SetNotes([]model.Note{{ID: "x", Type: model.NoteTap, Time: 1000, Lane: tc.lane}})
			n, _ := s.Note("x")
			if n.Lane != tc.want {
				t.Fatalf("lane = %d, want %d", n.Lane, tc.want)
			}
			// the note must stay reachable by pointer: 1000ms is x 200
			y := float64(tc.want)*40 + 5
			if _, err := s.PointerDown(200, y, ButtonSecondary); err != nil {
				t.Fatal(err)
			}
			if _, ok := s.Note("x"); ok {
				t.Fatal("note could not be deleted by pointer")
			}
		})
	}
}

func TestSetSnapValidation(t *testing.T) {
	s, _ := newTestSurface(t, true)
	if err := s.SetSnap(SnapConfig{Enabled: true, Division: 3}); err == nil {
		t.Fatal("division 3 accepted")
	}
	if err := s.SetSnap(SnapConfig{Enabled: true, Division: 16}); err != nil {
		t.Fatal(err)
	}
	if s.Grid().Division != 16 {
		t.Fatal("grid division not updated")
	}
}
