// Package editor implements the note editing surface: hit-testing, the
// per-gesture state machine and committed note-list mutations.
package editor

import (
	"math"
	"sort"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/timeline"
	"BeatStudio/model"

	"github.com/google/uuid"
)

// Gesture is the surface's current pointer interaction.
type Gesture string

const (
	GestureIdle     Gesture = "idle"
	GestureDragging Gesture = "dragging"
	GestureResizing Gesture = "resizing"
)

// Button identifies the pointer button of a press.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// Layout is the geometry of the lanes.
type Layout struct {
	LaneCount    int
	LaneHeightPx float64
	HitRadiusPx  float64 // half-width of a note body
	HandlePx     float64 // half-width of a hold note's tail handle
}

// DefaultLayout 默认布局
func DefaultLayout() Layout {
	return Layout{LaneCount: 4, LaneHeightPx: 40, HitRadiusPx: 6, HandlePx: 5}
}

// HitKind says what part of a note a pointer landed on.
type HitKind int

const (
	HitNone HitKind = iota
	HitBody
	HitTail
)

// Hit is the result of HitTest.
type Hit struct {
	Kind   HitKind
	NoteID string
}

// Surface owns the note list. It is not safe for concurrent use; the session
// loop is its only caller.
type Surface struct {
	vp      *timeline.Viewport
	layout  Layout
	minHold float64

	notes    []model.Note
	snap     SnapConfig
	grid     Grid
	tool     model.NoteType
	onChange []func([]model.Note)
	newID    func() string

	gesture Gesture
	active  string
	grabMs  float64
	preview model.Note
}

// NewSurface 创建编辑面
func NewSurface(vp *timeline.Viewport, layout Layout, snap SnapConfig, minHoldMs float64) *Surface {
	if layout.LaneCount <= 0 {
		layout.LaneCount = 4
	}
	if layout.LaneHeightPx <= 0 {
		layout.LaneHeightPx = 40
	}
	if !ValidDivision(snap.Division) {
		snap.Division = 4
	}
	if minHoldMs <= 0 {
		minHoldMs = 1
	}
	return &Surface{
		vp:      vp,
		layout:  layout,
		minHold: minHoldMs,
		notes:   []model.Note{},
		snap:    snap,
		grid:    Grid{BPM: 120, Division: snap.Division},
		tool:    model.NoteTap,
		newID:   uuid.NewString,
		gesture: GestureIdle,
	}
}

// OnChange registers fn to receive the full list after every committed mutation.
func (s *Surface) OnChange(fn func([]model.Note)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Surface) Notes() []model.Note { return model.CloneNotes(s.notes) }
func (s *Surface) Gesture() Gesture { return s.gesture }
func (s *Surface) Snap() SnapConfig { return s.snap }
func (s *Surface) Grid() Grid { return s.grid }
func (s *Surface) Tool() model.NoteType { return s.tool }
func (s *Surface) Layout() Layout { return s.layout }
func (s *Surface) OffsetMs() float64 { return s.grid.OffsetMs }

func (s *Surface) Note(id string) (model.Note, bool) {
	if i := s.index(id); i >= 0 {
		return s.notes[i], true
	}
	return model.Note{}, false
}

// SetSnap changes snapping. An invalid division is rejected.
func (s *Surface) SetSnap(cfg SnapConfig) error {
	if !ValidDivision(cfg.Division) {
		return editorerr.New(editorerr.KindInvalid, "invalid snap division",
			"Snap division must be 1, 2, 4, 8 or 16.")
	}
	s.snap = cfg
	s.grid.Division = cfg.Division
	return nil
}

// SetTempo updates the grid's bpm and beat offset.
func (s *Surface) SetTempo(bpm, offsetMs float64) {
	if bpm > 0 {
		s.grid.BPM = bpm
	}
	s.grid.OffsetMs = offsetMs
}

// SetOffset adopts a new beat offset, keeping the bpm.
func (s *Surface) SetOffset(offsetMs float64) {
	s.grid.OffsetMs = offsetMs
}

// SetTool selects the type of notes placed on empty space.
func (s *Surface) SetTool(t model.NoteType) error {
	if !t.Valid() {
		return editorerr.New(editorerr.KindInvalid, "invalid note type", "Unknown note type.")
	}
	s.tool = t
	return nil
}

// quantize applies snap (when enabled) then clamps to the song.
func (s *Surface) quantize(t float64) float64 {
	if s.snap.Enabled {
		t = s.grid.Snap(t)
	}
	return s.clampTime(t)
}

func (s *Surface) clampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	if d := s.vp.DurationMs(); t > d {
		return d
	}
	return t
}

func (s *Surface) laneAt(y float64) int {
	lane := int(math.Floor(y / s.layout.LaneHeightPx))
	if lane < 0 {
		return 0
	}
	if lane >= s.layout.LaneCount {
		return s.layout.LaneCount - 1
	}
	return lane
}

// defaultHold is one grid step, never less than the minimum hold length.
func (s *Surface) defaultHold() float64 {
	return math.Max(s.grid.Step(), s.minHold)
}

// HitTest maps a pointer position to a note body or hold tail handle. Later
// notes are on top.
func (s *Surface) HitTest(x, y float64) Hit {
	lane := int(math.Floor(y / s.layout.LaneHeightPx))
	for i := len(s.notes) - 1; i >= 0; i-- {
		n := s.notes[i]
		if n.Lane != lane {
			continue
		}
		start := s.vp.TimeToX(n.Time)
		if n.Type == model.NoteHold {
			end := s.vp.TimeToX(n.End())
			if math.Abs(x-end) <= s.layout.HandlePx {
				return Hit{Kind: HitTail, NoteID: n.ID}
			}
			if x >= start-s.layout.HitRadiusPx && x <= end {
				return Hit{Kind: HitBody, NoteID: n.ID}
			}
			continue
		}
		if math.Abs(x-start) <= s.layout.HitRadiusPx {
			return Hit{Kind: HitBody, NoteID: n.ID}
		}
	}
	return Hit{Kind: HitNone}
}

// PointerDown starts a gesture. On empty space a primary press places a note
// immediately; a secondary press on a note deletes it.
func (s *Surface) PointerDown(x, y float64, button Button) (Hit, error) {
	if s.gesture != GestureIdle {
		s.Cancel()
	}
	hit := s.HitTest(x, y)
	switch {
	case hit.Kind == HitNone && button == ButtonPrimary:
		_, err := s.AddNote(s.vp.XToTime(x), s.laneAt(y), s.tool)
		return hit, err
	case hit.Kind == HitNone:
		return hit, nil
	case button == ButtonSecondary:
		return hit, s.DeleteNote(hit.NoteID)
	}

	n := s.notes[s.index(hit.NoteID)]
	s.active = n.ID
	s.preview = n
	if hit.Kind == HitTail {
		s.gesture = GestureResizing
	} else {
		s.gesture = GestureDragging
		s.grabMs = s.vp.XToTime(x) - n.Time
	}
	return hit, nil
}

// PointerMove updates the preview of the active gesture. Nothing is
// committed.
func (s *Surface) PointerMove(x, y float64) (model.Note, bool) {
	switch s.gesture {
	case GestureDragging:
		s.preview.Time = s.quantize(s.vp.XToTime(x) - s.grabMs)
		s.preview.Lane = s.laneAt(y)
	case GestureResizing:
		end := s.vp.XToTime(x)
		if s.snap.Enabled {
			end = s.grid.Snap(end)
		}
		s.preview.Duration = end - s.preview.Time
	default:
		return model.Note{}, false
	}
	return s.preview, true
}

// PointerUp commits the gesture as a single mutation. A resize to less than
// the minimum hold length is rejected and the note keeps its duration.
func (s *Surface) PointerUp(x, y float64) error {
	if s.gesture == GestureIdle {
		return nil
	}
	s.PointerMove(x, y)
	gesture, id, p := s.gesture, s.active, s.preview
	s.resetGesture()

	switch gesture {
	case GestureDragging:
		return s.MoveNote(id, p.Time, p.Lane)
	case GestureResizing:
		return s.ResizeNote(id, p.Duration)
	}
	return nil
}

// Preview returns the in-progress note of a drag or resize.
func (s *Surface) Preview() (model.Note, bool) {
	if s.gesture == GestureIdle {
		return model.Note{}, false
	}
	return s.preview, true
}

// Cancel abandons the current gesture without committing.
func (s *Surface) Cancel() { s.resetGesture() }

func (s *Surface) resetGesture() {
	s.gesture, s.active, s.grabMs, s.preview = GestureIdle, "", 0, model.Note{}
}

// AddNote places a note at t (snapped and clamped) in lane.
func (s *Surface) AddNote(t float64, lane int, typ model.NoteType) (model.Note, error) {
	if !typ.Valid() {
		return model.Note{}, editorerr.New(editorerr.KindInvalid, "invalid note type", "Unknown note type.")
	}
	n := model.Note{
		ID:   s.newID(),
		Type: typ,
		Time: s.quantize(t),
		Lane: s.clampLane(lane),
	}
	if typ == model.NoteHold {
		n.Duration = s.defaultHold()
	}
	s.notes = append(s.notes, n)
	s.commit()
	return n, nil
}

// MoveNote sets a note's time (snapped and clamped) and lane.
func (s *Surface) MoveNote(id string, t float64, lane int) error {
	i := s.index(id)
	if i < 0 {
		return errNoteNotFound(id)
	}
	t, lane = s.quantize(t), s.clampLane(lane)
	if s.notes[i].Time == t && s.notes[i].Lane == lane {
		return nil
	}
	s.notes[i].Time, s.notes[i].Lane = t, lane
	s.commit()
	return nil
}

// ResizeNote sets a hold note's duration.
func (s *Surface) ResizeNote(id string, duration float64) error {
	i := s.index(id)
	if i < 0 {
		return errNoteNotFound(id)
	}
	if s.notes[i].Type != model.NoteHold {
		return editorerr.New(editorerr.KindInvalid, "resize of non-hold note",
			"Only hold notes can be resized.")
	}
	if duration < s.minHold || math.IsNaN(duration) {
		return editorerr.New(editorerr.KindInvalid, "hold duration below minimum",
			"A hold note must end after it starts.")
	}
	if s.notes[i].Duration == duration {
		return nil
	}
	s.notes[i].Duration = duration
	s.commit()
	return nil
}

// ChangeType toggles a note between tap and hold.
func (s *Surface) ChangeType(id string, typ model.NoteType) error {
	if !typ.Valid() {
		return editorerr.New(editorerr.KindInvalid, "invalid note type", "Unknown note type.")
	}
	i := s.index(id)
	if i < 0 {
		return errNoteNotFound(id)
	}
	if s.notes[i].Type == typ {
		return nil
	}
	s.notes[i].Type = typ
	if typ == model.NoteHold {
		s.notes[i].Duration = s.defaultHold()
	} else {
		s.notes[i].Duration = 0
	}
	s.commit()
	return nil
}

// DeleteNote removes a note by id.
func (s *Surface) DeleteNote(id string) error {
	i := s.index(id)
	if i < 0 {
		return errNoteNotFound(id)
	}
	if s.active == id {
		s.resetGesture()
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	s.commit()
	return nil
}

// SetNotes replaces the whole list, used by import and song switches.
func (s *Surface) SetNotes(notes []model.Note) {
	s.resetGesture()
	s.notes = model.CloneNotes(notes)
	for i := range s.notes {
		s.notes[i].Lane = s.clampLane(s.notes[i].Lane)
	}
	s.commit()
}

func (s *Surface) clampLane(lane int) int {
	if lane < 0 {
		return 0
	}
	if lane >= s.layout.LaneCount {
		return s.layout.LaneCount - 1
	}
	return lane
}

func (s *Surface) index(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Surface) commit() {
	sort.SliceStable(s.notes, func(i, j int) bool { return s.notes[i].Time < s.notes[j].Time })
	for _, fn := range s.onChange {
		fn(model.CloneNotes(s.notes))
	}
}

func errNoteNotFound(id string) error {
	return editorerr.New(editorerr.KindNotFound, "note "+id+" not found", "That note no longer exists.")
}
