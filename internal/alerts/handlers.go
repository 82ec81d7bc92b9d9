package alerts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"
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

	api.HandleFunc("/alerts", h.list).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.create).Methods(http.MethodPost)
	api.HandleFunc("/alerts/stats/summary", h.stats).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/resolve", h.resolve).Methods(http.MethodPut)

	adm := api.NewRoute().Subrouter()
	adm.Use(auth.RequireAdmin)
	adm.HandleFunc("/alerts/{id}", h.delete).Methods(http.MethodDelete)
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	deviceID, _ := strconv.ParseUint(q.Get("device_id"), 10, 64)
	as, total, err := h.repo.List(ListFilter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		DeviceID: uint(deviceID),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"alerts": as, "total": total})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DeviceID    *uint          `json:"device_id"`
		AlertType   string         `json:"alert_type"`
		Severity    string         `json:"severity"`
		Description string         `json:"description"`
		SourceIP    string         `json:"source_ip"`
		Metadata    map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.AlertType == "" {
		models.WriteError(w, http.StatusBadRequest, "alert_type required")
		return
	}
	a := &models.SecurityAlert{
		DeviceID:    in.DeviceID,
		AlertType:   in.AlertType,
		Severity:    models.AlertSeverity(in.Severity),
		Description: in.Description,
		SourceIP:    in.SourceIP,
		Metadata:    datatypes.JSONMap(in.Metadata),
	}
	if a.Severity == "" {
		a.Severity = models.SeverityLow
	}
	if err := h.repo.Create(a); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, a)
}

func (h *HTTP) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}
	var in struct {
		ResolutionNote string `json:"resolution_note"`
	}
	// тело опционально
	_ = json.NewDecoder(r.Body).Decode(&in)

	p, _ := auth.FromRequest(r)
	a, err := h.repo.Resolve(uint(id), p.UserID, in.ResolutionNote)
	switch {
	case err == nil:
		models.WriteJSON(w, http.StatusOK, a)
	case errors.Is(err, gorm.ErrRecordNotFound):
		models.WriteError(w, http.StatusNotFound, "Alert not found")
	case errors.Is(err, ErrNotActive):
		models.WriteError(w, http.StatusConflict, "Alert is not active and cannot be resolved")
	default:
		models.WriteError(w, http.StatusInternalServerError, "Failed to resolve alert")
	}
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}
	if err := h.repo.Delete(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			models.WriteError(w, http.StatusNotFound, "Alert not found")
			return
		}
		models.WriteError(w, http.StatusInternalServerError, "Failed to delete alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTP) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Stats()
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to compute alert stats")
		return
	}
	models.WriteJSON(w, http.StatusOK, s)
}
