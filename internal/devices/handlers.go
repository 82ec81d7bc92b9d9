package devices

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
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

	api.HandleFunc("/devices", h.list).Methods(http.MethodGet)
	api.HandleFunc("/devices", h.create).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/devices/{id}/logs", h.logs).Methods(http.MethodGet)

	// heartbeat шлют сами устройства, без сессии
	r.HandleFunc("/api/v1/devices/{id}/heartbeat", h.heartbeat).Methods(http.MethodPost)

	adm := api.NewRoute().Subrouter()
	adm.Use(auth.RequireAdmin)
	adm.HandleFunc("/devices/{id}", h.delete).Methods(http.MethodDelete)
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	ds, total, err := h.repo.List(q.Get("status"), q.Get("type"), limit, offset)
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"devices": ds, "total": total})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	var in models.Device
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name == "" {
		models.WriteError(w, http.StatusBadRequest, "name required")
		return
	}
	if err := h.repo.Create(&in); err != nil {
		if errors.Is(err, ErrDuplicateMAC) {
			models.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, in)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	d, err := h.repo.Get(id)
	if err != nil {
		models.WriteError(w, http.StatusNotFound, "Device not found")
		return
	}
	models.WriteJSON(w, http.StatusOK, d)
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	var in struct {
		Name            *string `json:"name"`
		DeviceType      *string `json:"device_type"`
		IPAddress       *string `json:"ip_address"`
		Status          *string `json:"status"`
		Location        *string `json:"location"`
		FirmwareVersion *string `json:"firmware_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.DeviceType != nil {
		fields["device_type"] = *in.DeviceType
	}
	if in.IPAddress != nil {
		fields["ip_address"] = *in.IPAddress
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}
	if in.FirmwareVersion != nil {
		fields["firmware_version"] = *in.FirmwareVersion
	}
	d, err := h.repo.Update(id, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			models.WriteError(w, http.StatusNotFound, "Device not found")
			return
		}
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, d)
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	if err := h.repo.Delete(id); err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTP) heartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	if err := h.repo.Heartbeat(id, auth.ClientIP(r)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			models.WriteError(w, http.StatusNotFound, "Device not found")
			return
		}
		models.WriteError(w, http.StatusInternalServerError, "Failed to record heartbeat")
		return
	}
	models.WriteSuccess(w, "Heartbeat recorded", nil)
}

func (h *HTTP) logs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ls, err := h.repo.Logs(id, limit)
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to list device logs")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"logs": ls})
}
