package server

import (
	"context"
	"encoding/json"
	"net/http"

	"BeatStudio/core/editor"
	"BeatStudio/core/editorerr"
	"BeatStudio/core/playback"
	"BeatStudio/core/session"
	"BeatStudio/logger"
	"BeatStudio/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// EditorWSHandler 编辑器 WebSocket 处理器
type EditorWSHandler struct {
	app      *App
	upgrader websocket.Upgrader
}

// NewEditorWSHandler 创建 WebSocket 处理器
func NewEditorWSHandler(app *App) *EditorWSHandler {
	return &EditorWSHandler{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ========== 客户端消息负载 ==========

type songPayload struct {
	SongID string `json:"songId"`
}

type difficultyPayload struct {
	Difficulty string `json:"difficulty"`
}

type zoomPayload struct {
	Factor float64 `json:"factor"`
}

type viewPayload struct {
	ScrollX    float64 `json:"scrollX"`
	WidthPx    float64 `json:"widthPx"`
	ScrubberPx float64 `json:"scrubberPx"`
}

type seekPayload struct {
	TimeMs float64 `json:"timeMs"`
}

type volumePayload struct {
	Volume float64 `json:"volume"`
}

type rejectedPayload struct {
	Reason string `json:"reason"`
}

type toolPayload struct {
	Tool model.NoteType `json:"tool"`
}

type notePayload struct {
	ID   string         `json:"id"`
	Type model.NoteType `json:"type"`
}

type sfxPayload struct {
	Enabled bool `json:"enabled"`
}

type importPayload struct {
	Content string `json:"content"`
}

type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WebSocketHandler 升级连接并绑定到会话
func (h *EditorWSHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	client := session.NewClient(h.app.Hub, conn, s)
	h.app.Hub.Register(client)

	go client.WritePump()

	// 新连接先收到完整状态
	if err := s.Redraw(); err != nil {
		logger.Warn("发送初始状态失败", logger.String("sessionId", s.ID), logger.ErrorField(err))
	}

	client.ReadPump(r.Context(), h.handleMessage)
}

func (h *EditorWSHandler) handleMessage(ctx context.Context, client *session.Client, msg *session.WSMessage) {
	if err := dispatch(ctx, client.Session, msg); err != nil {
		data, _ := json.Marshal(errorPayload{Error: editorerr.Message(err), Kind: string(editorerr.KindOf(err))})
		client.SendMessage(&session.WSMessage{Type: session.MsgTypeError, SessionID: client.Session.ID, Data: data})
		if statusFor(err) >= http.StatusInternalServerError {
			logger.Warn("处理客户端消息失败",
				logger.String("sessionId", client.Session.ID),
				logger.String("type", string(msg.Type)),
				logger.ErrorField(err))
		}
	}
}

// dispatch applies one client message to the session. Results reach the
// client through session events.
func dispatch(ctx context.Context, s *session.Session, msg *session.WSMessage) error {
	switch msg.Type {
	case session.MsgTypeSelectSong:
		var p songPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := s.SelectSong(ctx, p.SongID)
		return err

	case session.MsgTypeSelectDifficulty:
		var p difficultyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SelectDifficulty(p.Difficulty)

	case session.MsgTypeRetry:
		return s.RetryLoad()

	case session.MsgTypeZoom:
		var p zoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := s.SetZoom(p.Factor)
		return err

	case session.MsgTypeView:
		var p viewPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetView(p.ScrollX, p.WidthPx, p.ScrubberPx)

	case session.MsgTypePointer:
		var p session.PointerEvent
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Pointer(p)

	case session.MsgTypeKey:
		var p session.KeyEvent
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := s.HandleKey(p)
		return err

	case session.MsgTypeMediaEvent:
		var p playback.Event
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.HandleMedia(p)

	case session.MsgTypePlayRejected:
		var p rejectedPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.PlayRejected(p.Reason)

	case session.MsgTypeTogglePlay:
		err := s.TogglePlay()
		if editorerr.Is(err, editorerr.KindPlayback) {
			// 已通过通知告知用户
			return nil
		}
		return err

	case session.MsgTypeStop:
		return s.Stop()

	case session.MsgTypeSeek:
		var p seekPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := s.Seek(p.TimeMs)
		return err

	case session.MsgTypeVolume:
		var p volumePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetVolume(p.Volume)

	case session.MsgTypeSnap:
		var p editor.SnapConfig
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetSnap(p)

	case session.MsgTypeTool:
		var p toolPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetTool(p.Tool)

	case session.MsgTypeNoteDelete:
		var p notePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.DeleteNote(p.ID)

	case session.MsgTypeNoteType:
		var p notePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.ChangeNoteType(p.ID, p.Type)

	case session.MsgTypeSFXToggle:
		var p sfxPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetSFX(p.Enabled)

	case session.MsgTypeImport:
		var p importPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := s.Import([]byte(p.Content))
		if editorerr.Is(err, editorerr.KindValidation) {
			// 会话已发送带 resetFileInput 的通知
			return nil
		}
		return err

	default:
		return badRequest("Unknown message type " + string(msg.Type) + ".")
	}
}

func decode(msg *session.WSMessage, v interface{}) error {
	if len(msg.Data) == 0 {
		return badRequest("Message " + string(msg.Type) + " needs a payload.")
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return editorerr.Wrap(err, editorerr.KindInvalid, "Malformed "+string(msg.Type)+" message.")
	}
	return nil
}
