package rules

import (
	"encoding/json"
	"net/http"
	"strconv"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Справочник security_rules. Движок доступа его не читает (политика
// фиксированная), правила видны только в дашборде.
type HTTP struct {
	db       *gorm.DB
	sessions *auth.Manager
}

func NewHTTP(db *gorm.DB, sessions *auth.Manager) *HTTP {
	return &HTTP{db: db, sessions: sessions}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.sessions.Require)
	api.HandleFunc("/rules", h.list).Methods(http.MethodGet)

	adm := api.NewRoute().Subrouter()
	adm.Use(auth.RequireAdmin)
	adm.HandleFunc("/rules", h.create).Methods(http.MethodPost)
	adm.HandleFunc("/rules/{id}", h.update).Methods(http.MethodPut, http.MethodPatch)
	adm.HandleFunc("/rules/{id}", h.delete).Methods(http.MethodDelete)
}

func (h *HTTP) list(w http.ResponseWriter, _ *http.Request) {
	var out []models.SecurityRule
	if err := h.db.Order("id").Find(&out).Error; err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"rules": out})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name       string         `json:"name"`
		RuleType   string         `json:"rule_type"`
		Enabled    *bool          `json:"enabled"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name == "" {
		models.WriteError(w, http.StatusBadRequest, "name required")
		return
	}
	rule := &models.SecurityRule{
		Name:       in.Name,
		RuleType:   in.RuleType,
		Enabled:    true,
		Parameters: datatypes.JSONMap(in.Parameters),
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	if err := h.db.Create(rule).Error; err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, rule)
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}
	var rule models.SecurityRule
	if err := h.db.First(&rule, uint(id)).Error; err != nil {
		models.WriteError(w, http.StatusNotFound, "Rule not found")
		return
	}
	var in struct {
		Name       *string        `json:"name"`
		RuleType   *string        `json:"rule_type"`
		Enabled    *bool          `json:"enabled"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name != nil {
		rule.Name = *in.Name
	}
	if in.RuleType != nil {
		rule.RuleType = *in.RuleType
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	if in.Parameters != nil {
		rule.Parameters = datatypes.JSONMap(in.Parameters)
	}
	if err := h.db.Save(&rule).Error; err != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}
	models.WriteJSON(w, http.StatusOK, rule)
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}
	res := h.db.Delete(&models.SecurityRule{}, uint(id))
	if res.Error != nil {
		models.WriteError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}
	if res.RowsAffected == 0 {
		models.WriteError(w, http.StatusNotFound, "Rule not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
