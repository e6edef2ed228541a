package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/session"
	"BeatStudio/logger"
	"BeatStudio/repository"
	"BeatStudio/storage"

	"github.com/gorilla/mux"
)

const maxImportSize = 10 << 20

// SessionHandler 编辑会话 HTTP 处理器
type SessionHandler struct {
	app *App
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(app *App) *SessionHandler {
	return &SessionHandler{app: app}
}

// CreateSessionRequest 创建会话请求，SongID 可选
type CreateSessionRequest struct {
	SongID string `json:"songId"`
}

// SelectDifficultyRequest 选择难度请求
type SelectDifficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

// SaveResponse 保存谱面响应
type SaveResponse struct {
	BeatmapID int64  `json:"beatmapId"`
	NoteCount int    `json:"noteCount"`
	ObjectKey string `json:"objectKey,omitempty"`
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.app.Manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

// CreateHandler 创建会话，可同时选择歌曲
func (h *SessionHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, badRequest("Invalid request body."))
			return
		}
	}

	s := h.app.Manager.Create()
	if req.SongID != "" {
		if _, err := s.SelectSong(r.Context(), req.SongID); err != nil {
			h.app.Manager.Close(s.ID)
			writeError(w, err)
			return
		}
	}

	st, err := s.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// GetHandler 返回会话完整状态
func (h *SessionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := s.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CloseHandler 关闭会话
func (h *SessionHandler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Manager.Close(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectSongHandler 切换歌曲
func (h *SessionHandler) SelectSongHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SongID == "" {
		writeError(w, badRequest("A songId is required."))
		return
	}
	song, err := s.SelectSong(r.Context(), req.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// SelectDifficultyHandler 切换难度，已有谱面时自动导入
func (h *SessionHandler) SelectDifficultyHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("Invalid request body."))
		return
	}
	if err := s.SelectDifficulty(req.Difficulty); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// NotesHandler 返回当前音符列表
func (h *SessionHandler) NotesHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	notes, err := s.Notes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// ExportHandler 下载谱面文件
func (h *SessionHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	data, filename, err := s.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportHandler 导入谱面，支持 JSON 请求体或 multipart 的 file 字段
func (h *SessionHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			writeError(w, badRequest("Choose a beatmap file to import."))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeError(w, badRequest("The beatmap file could not be read."))
		return
	}

	n, err := s.Import(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// SaveHandler 保存谱面到数据库和对象存储
func (h *SessionHandler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.app.Beatmaps == nil {
		writeError(w, editorerr.New(editorerr.KindNetwork, "beatmap repository not configured",
			"Saving is unavailable right now. Export the file instead."))
		return
	}

	file, err := s.ExportFile()
	if err != nil {
		writeError(w, err)
		return
	}
	if file.Beatmap.SongID == 0 {
		writeError(w, badRequest("Only catalogued songs can be saved. Export the file instead."))
		return
	}
	tp, err := s.Tempo()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	rec := repository.NewBeatmapRecord(file, tp.BPM, tp.OffsetMs)
	if err := h.app.Beatmaps.Save(ctx, rec); err != nil {
		writeError(w, editorerr.Wrap(err, editorerr.KindNetwork, "The beatmap could not be saved."))
		return
	}
	file.Beatmap.ID = rec.ID

	resp := SaveResponse{BeatmapID: rec.ID, NoteCount: rec.NoteCount}
	if h.app.Store != nil {
		key := storage.BeatmapKey(rec.SongID, rec.Difficulty)
		data, err := json.MarshalIndent(file, "", "  ")
		if err == nil {
			err = h.app.Store.PutObjectBytes(ctx, key, data, "application/json")
		}
		if err != nil {
			logger.Warn("谱面上传对象存储失败", logger.String("key", key), logger.ErrorField(err))
		} else {
			resp.ObjectKey = key
		}
	}

	if err := s.SetBeatmapID(rec.ID); err != nil {
		writeError(w, err)
		return
	}
	logger.Info("谱面已保存",
		logger.Int64("beatmapId", rec.ID),
		logger.Int64("songId", rec.SongID),
		logger.String("difficulty", rec.Difficulty),
		logger.Int("notes", rec.NoteCount))
	writeJSON(w, http.StatusOK, resp)
}
