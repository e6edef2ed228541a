package server

import (
	"net/http"
	"strconv"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/songapi"
	"BeatStudio/model"

	"github.com/gorilla/mux"
)

const defaultSongListLimit = 200

// SongHandler 歌曲和已保存谱面查询
type SongHandler struct {
	app *App
}

// NewSongHandler 创建歌曲处理器
func NewSongHandler(app *App) *SongHandler {
	return &SongHandler{app: app}
}

// ListHandler merges the static catalog with the song table. Catalog entries
// win on id collisions.
func (h *SongHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultSongListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, badRequest("limit must be a positive integer."))
			return
		}
		limit = n
	}

	songs := []model.Song{}
	seen := make(map[string]bool)
	if h.app.Catalog != nil {
		for _, s := range h.app.Catalog.List() {
			seen[s.ID] = true
			songs = append(songs, s)
		}
	}
	if h.app.SongRepo != nil {
		details, err := h.app.SongRepo.ListSongs(r.Context(), limit)
		if err != nil {
			writeError(w, editorerr.Wrap(err, editorerr.KindNetwork, "The song list could not be loaded."))
			return
		}
		for _, d := range details {
			s := songapi.ToSong(d, h.app.Defaults)
			if !seen[s.ID] {
				seen[s.ID] = true
				songs = append(songs, *s)
			}
		}
	}
	if len(songs) > limit {
		songs = songs[:limit]
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetHandler 获取单首歌曲
func (h *SongHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if h.app.Songs == nil {
		writeError(w, editorerr.New(editorerr.KindNotFound, "no song source", "That song does not exist."))
		return
	}
	song, err := h.app.Songs.GetSong(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// ListBeatmapsHandler 列出某首歌已保存的谱面
func (h *SongHandler) ListBeatmapsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireBeatmaps(w) {
		return
	}
	songID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, badRequest("Song id must be numeric."))
		return
	}
	recs, err := h.app.Beatmaps.ListBySong(r.Context(), songID)
	if err != nil {
		writeError(w, editorerr.Wrap(err, editorerr.KindNetwork, "Saved beatmaps could not be loaded."))
		return
	}
	if recs == nil {
		recs = []*model.BeatmapRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetBeatmapHandler 按 id 获取谱面，响应为导出格式
func (h *SongHandler) GetBeatmapHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireBeatmaps(w) {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, badRequest("Beatmap id must be numeric."))
		return
	}
	rec, err := h.app.Beatmaps.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, editorerr.Wrap(err, editorerr.KindNetwork, "The beatmap could not be loaded."))
		return
	}
	if rec == nil {
		writeError(w, editorerr.New(editorerr.KindNotFound, "beatmap not found", "That beatmap does not exist."))
		return
	}
	writeJSON(w, http.StatusOK, model.BeatmapFile{Beatmap: model.BeatmapPayload{
		ID:         rec.ID,
		SongID:     rec.SongID,
		Difficulty: rec.Difficulty,
		Items:      []model.BeatmapItem(rec.Items),
	}})
}

// DeleteBeatmapHandler 删除已保存的谱面
func (h *SongHandler) DeleteBeatmapHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireBeatmaps(w) {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, badRequest("Beatmap id must be numeric."))
		return
	}
	if err := h.app.Beatmaps.Delete(r.Context(), id); err != nil {
		writeError(w, editorerr.Wrap(err, editorerr.KindNetwork, "The beatmap could not be deleted."))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SongHandler) requireBeatmaps(w http.ResponseWriter) bool {
	if h.app.Beatmaps == nil {
		writeError(w, editorerr.New(editorerr.KindNetwork, "beatmap repository not configured",
			"Saved beatmaps are unavailable right now."))
		return false
	}
	return true
}
