package intrusion

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
)

type HTTP struct {
	repo     *Repo
	sessions *auth.Manager
}

func NewHTTP(repo *Repo, sessions *auth.Manager) *HTTP {
	return &HTTP{repo: repo, sessions: sessions}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.sessions.Require)

	api.HandleFunc("/attempts", h.list).Methods(http.MethodGet)
	api.HandleFunc("/attempts", h.create).Methods(http.MethodPost)
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			models.WriteError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}

	as, total, err := h.repo.List(ListFilter{
		SourceIP:    q.Get("source_ip"),
		AttemptType: q.Get("attempt_type"),
		Since:       since,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to list blocked attempts")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"attempts": as, "total": total})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SourceIP       string         `json:"source_ip"`
		TargetDeviceID *uint          `json:"target_device_id"`
		AttemptType    string         `json:"attempt_type"`
		UserAgent      string         `json:"user_agent"`
		RequestDetails map[string]any `json:"request_details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.SourceIP == "" {
		in.SourceIP = auth.ClientIP(r)
	}
	a := &models.BlockedAttempt{
		SourceIP:       in.SourceIP,
		TargetDeviceID: in.TargetDeviceID,
		AttemptType:    models.AttemptType(in.AttemptType),
		UserAgent:      in.UserAgent,
		RequestDetails: datatypes.JSONMap(in.RequestDetails),
	}
	if err := h.repo.Create(a); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, a)
}
