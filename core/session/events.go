package session

import (
	"time"

	"BeatStudio/core/editor"
	"BeatStudio/core/playback"
	"BeatStudio/core/scrubber"
	"BeatStudio/core/tempo"
	"BeatStudio/core/timeline"
	"BeatStudio/core/waveform"
	"BeatStudio/model"
)

// MessageType 消息类型
type MessageType string

const (
	// 系统消息
	MsgTypePing  MessageType = "ping"
	MsgTypePong  MessageType = "pong"
	MsgTypeError MessageType = "error"

	// 服务端 -> 客户端
	MsgTypeState        MessageType = "state"        // 完整会话状态
	MsgTypeNotes        MessageType = "notes"        // 音符列表变更
	MsgTypeFrame        MessageType = "frame"        // 波形/进度条重绘
	MsgTypeViewport     MessageType = "viewport"     // 缩放或时长变化
	MsgTypePlayback     MessageType = "playback"     // 播放状态变化
	MsgTypeTempo        MessageType = "tempo"        // BPM/偏移变化
	MsgTypeNotification MessageType = "notification" // 提示消息
	MsgTypeMedia        MessageType = "media"        // 媒体元素指令
	MsgTypeSFX          MessageType = "sfx"          // 音效触发

	// 客户端 -> 服务端
	MsgTypeSelectSong       MessageType = "select_song"
	MsgTypeSelectDifficulty MessageType = "select_difficulty"
	MsgTypeRetry            MessageType = "retry"
	MsgTypeZoom             MessageType = "zoom"
	MsgTypeView             MessageType = "view"
	MsgTypePointer          MessageType = "pointer"
	MsgTypeKey              MessageType = "key"
	MsgTypeMediaEvent       MessageType = "media_event"
	MsgTypePlayRejected     MessageType = "play_rejected"
	MsgTypeTogglePlay       MessageType = "toggle_play"
	MsgTypeStop             MessageType = "stop"
	MsgTypeSeek             MessageType = "seek"
	MsgTypeVolume           MessageType = "volume"
	MsgTypeSnap             MessageType = "snap"
	MsgTypeTool             MessageType = "tool"
	MsgTypeNoteDelete       MessageType = "note_delete"
	MsgTypeNoteType         MessageType = "note_type"
	MsgTypeSFXToggle        MessageType = "sfx_toggle"
	MsgTypeImport           MessageType = "import"
)

// Event is emitted by a session to its subscribers.
type Event struct {
	Type MessageType
	Data interface{}
}

// Level 提示级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing message. Kind is the error kind when the
// notification comes from an error.
type Notification struct {
	Level          Level     `json:"level"`
	Kind           string    `json:"kind,omitempty"`
	Message        string    `json:"message"`
	ResetFileInput bool      `json:"resetFileInput,omitempty"`
	At             time.Time `json:"at"`
}

// Tempo sources.
const (
	TempoNominal  = "nominal"
	TempoDetected = "detected"
	TempoFallback = "fallback"
	TempoImported = "imported"
)

// TempoData is the payload of MsgTypeTempo.
type TempoData struct {
	BPM      float64      `json:"bpm"`
	OffsetMs float64      `json:"offsetMs"`
	Source   string       `json:"source"`
	Status   tempo.Status `json:"status"`
}

// FrameData is the payload of MsgTypeFrame.
type FrameData struct {
	Waveform waveform.Frame `json:"waveform"`
	Scrubber scrubber.State `json:"scrubber"`
	Preview  *model.Note    `json:"preview,omitempty"`
}

// SFXData is the payload of MsgTypeSFX.
type SFXData struct {
	URL    string `json:"url"`
	NoteID string `json:"noteId"`
	Lane   int    `json:"lane"`
}

// State is a full copy of the session, sent on connect and by Snapshot.
type State struct {
	SessionID   string            `json:"sessionId"`
	Song        *model.Song       `json:"song,omitempty"`
	Difficulty  string            `json:"difficulty"`
	BeatmapID   int64             `json:"beatmapId"`
	Generation  uint64            `json:"generation"`
	Notes       []model.Note      `json:"notes"`
	Playback    playback.State    `json:"playback"`
	Viewport    timeline.Snapshot `json:"viewport"`
	Tempo       TempoData         `json:"tempo"`
	Waveform    waveform.State    `json:"waveform"`
	LoadError   string            `json:"loadError,omitempty"`
	Snap        editor.SnapConfig `json:"snap"`
	Tool        model.NoteType    `json:"tool"`
	SFXEnabled  bool              `json:"sfxEnabled"`
	SFXURL      string            `json:"sfxUrl,omitempty"`
	HasAudio    bool              `json:"hasAudio"`
	Warnings    []Notification    `json:"warnings,omitempty"`
	ScrollX     float64           `json:"scrollX"`
	ViewWidthPx float64           `json:"viewWidthPx"`
}

// PointerTarget names the component a pointer event is aimed at.
type PointerTarget string

const (
	TargetSurface  PointerTarget = "surface"
	TargetWaveform PointerTarget = "waveform"
	TargetScrubber PointerTarget = "scrubber"
)

// PointerEvent carries window-relative coordinates; the session adds the
// scroll offset for timeline targets.
type PointerEvent struct {
	Target PointerTarget `json:"target"`
	Phase  string        `json:"phase"` // down, move, up, cancel
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Button int           `json:"button"`
}
