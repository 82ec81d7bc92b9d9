package access

import (
	"errors"
	"net/http"
	"strconv"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
)

type HTTP struct {
	engine   *Engine
	sessions *auth.Manager
}

func NewHTTP(engine *Engine, sessions *auth.Manager) *HTTP {
	return &HTTP{engine: engine, sessions: sessions}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	da := r.PathPrefix("/device-access").Subrouter()
	da.Use(h.sessions.Require)
	da.HandleFunc("/connect/{deviceId}", h.connect).Methods(http.MethodPost)
	da.HandleFunc("/disconnect/{deviceId}", h.disconnect).Methods(http.MethodPost)
}

func parseDeviceID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["deviceId"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *HTTP) connect(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseDeviceID(r)
	if !ok {
		// кривой id — без записи аудита
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	p, _ := auth.FromRequest(r)

	dev, err := h.engine.Connect(ConnectRequest{
		SessionToken: p.Token,
		UserID:       p.UserID,
		DeviceID:     deviceID,
		SourceIP:     auth.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	switch {
	case err == nil:
		models.WriteSuccess(w, "Connected to device", map[string]any{"device": dev})
	case errors.Is(err, ErrDeviceNotFound):
		models.WriteError(w, http.StatusNotFound, "Device not found")
	case errors.Is(err, ErrDeviceOffline):
		models.WriteError(w, http.StatusBadRequest, "Device is currently offline")
	case errors.Is(err, ErrAccessDenied):
		models.WriteError(w, http.StatusForbidden, "Access denied: no permission for this device")
	default:
		models.WriteError(w, http.StatusInternalServerError, "An error occurred while connecting to the device")
	}
}

func (h *HTTP) disconnect(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseDeviceID(r)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}
	p, _ := auth.FromRequest(r)

	if err := h.engine.Disconnect(p.Token, p.UserID, deviceID); err != nil {
		models.WriteError(w, http.StatusBadRequest, "You are not connected to this device")
		return
	}
	models.WriteSuccess(w, "Disconnected from device", nil)
}
