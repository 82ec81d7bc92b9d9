package models

import (
	"encoding/json"
	"net/http"
)

// WriteJSON — единый JSON-ответ.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError пишет {"success":false,"message":...}; текст внутренних ошибок
// наружу не отдаём, только короткое message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"success": false, "message": message})
}

func WriteSuccess(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}
