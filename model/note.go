package model

// NoteType 音符类型
type NoteType string

const (
	NoteTap  NoteType = "tap"
	NoteHold NoteType = "hold"
)

// Valid reports whether t is one of the supported note types.
func (t NoteType) Valid() bool {
	return t == NoteTap || t == NoteHold
}

// Note is the fundamental editable unit of a chart.
// Time and Duration are milliseconds; Duration is only meaningful for holds.
type Note struct {
	ID       string   `json:"id"`
	Type     NoteType `json:"type"`
	Time     float64  `json:"time"`
	Lane     int      `json:"lane"`
	Duration float64  `json:"duration,omitempty"`
}

// End 返回音符结束时间（tap 音符等于开始时间）
func (n Note) End() float64 {
	if n.Type == NoteHold {
		return n.Time + n.Duration
	}
	return n.Time
}

// CloneNotes 复制音符列表，避免调用方共享底层数组
func CloneNotes(notes []Note) []Note {
	if notes == nil {
		return []Note{}
	}
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}
