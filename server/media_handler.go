package server

import (
	"net/http"
	"path"
	"strings"

	"BeatStudio/storage"
)

// MediaHandler 从 MinIO 提供音频和谱面文件，支持 Range 请求
type MediaHandler struct {
	store *storage.Store
}

// NewMediaHandler 创建 MediaHandler 实例
func NewMediaHandler(store *storage.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

// ServeHTTP 实现 http.Handler 接口
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, "/media/")), "/")
	if key == "" || key == "." {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	obj, info, err := h.store.OpenObject(r.Context(), key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", detectContentType(key, info.ContentType))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, key, info.LastModified, obj)
}

// detectContentType 优先使用对象元数据，其次按类型推断
func detectContentType(key, stored string) string {
	if stored != "" && stored != "application/octet-stream" {
		return stored
	}
	switch storage.InferKind(key) {
	case "beatmap", "catalog":
		if strings.HasSuffix(key, ".toml") {
			return "application/toml"
		}
		return "application/json"
	case "audio":
		switch strings.ToLower(path.Ext(key)) {
		case ".ogg":
			return "audio/ogg"
		case ".wav":
			return "audio/wav"
		case ".flac":
			return "audio/flac"
		default:
			return "audio/mpeg"
		}
	default:
		return "application/octet-stream"
	}
}
