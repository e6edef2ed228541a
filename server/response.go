package server

import (
	"encoding/json"
	"net/http"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HealthHandler 健康检查
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

// writeError maps the error kind to a status and writes the user-facing text.
func writeError(w http.ResponseWriter, err error) {
	kind := editorerr.KindOf(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("请求处理失败", logger.String("kind", string(kind)), logger.ErrorField(err))
	}
	writeJSON(w, status, ErrorResponse{Error: editorerr.Message(err), Kind: string(kind)})
}

func statusFor(err error) int {
	switch editorerr.KindOf(err) {
	case editorerr.KindNotFound:
		return http.StatusNotFound
	case editorerr.KindInvalid, editorerr.KindValidation:
		return http.StatusBadRequest
	case editorerr.KindNetwork, editorerr.KindDecode:
		return http.StatusBadGateway
	case editorerr.KindPlayback:
		return http.StatusConflict
	case editorerr.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(msg string) error {
	return editorerr.New(editorerr.KindInvalid, msg, msg)
}
