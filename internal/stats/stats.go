package stats

import (
	"net/http"
	"strconv"
	"time"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Service считает агрегаты для дашборда и снапшоты system_metrics.
type Service struct {
	db       *gorm.DB
	sessions *auth.Manager
}

func NewService(db *gorm.DB, sessions *auth.Manager) *Service {
	return &Service{db: db, sessions: sessions}
}

type Summary struct {
	DevicesTotal   int64            `json:"devices_total"`
	DevicesByState map[string]int64 `json:"devices_by_status"`
	AlertsActive   int64            `json:"alerts_active"`
	AlertsBySev    map[string]int64 `json:"active_alerts_by_severity"`
	BlockedLastDay int64            `json:"blocked_last_24h"`
	ActiveSessions int64            `json:"active_sessions"`
}

func (s *Service) Summary() (*Summary, error) {
	out := &Summary{DevicesByState: map[string]int64{}, AlertsBySev: map[string]int64{}}

	if err := s.db.Model(&models.Device{}).Count(&out.DevicesTotal).Error; err != nil {
		return nil, err
	}
	devRows := []struct {
		Status string
		N      int64
	}{}
	if err := s.db.Model(&models.Device{}).Select("status, count(*) as n").Group("status").Scan(&devRows).Error; err != nil {
		return nil, err
	}
	for _, r := range devRows {
		out.DevicesByState[r.Status] = r.N
	}

	if err := s.db.Model(&models.SecurityAlert{}).Where("status = ?", models.AlertStatusActive).Count(&out.AlertsActive).Error; err != nil {
		return nil, err
	}
	sevRows := []struct {
		Severity string
		N        int64
	}{}
	if err := s.db.Model(&models.SecurityAlert{}).
		Select("severity, count(*) as n").
		Where("status = ?", models.AlertStatusActive).
		Group("severity").Scan(&sevRows).Error; err != nil {
		return nil, err
	}
	for _, r := range sevRows {
		out.AlertsBySev[r.Severity] = r.N
	}

	if err := s.db.Model(&models.BlockedAttempt{}).
		Where("blocked_at > ?", time.Now().Add(-24*time.Hour)).
		Count(&out.BlockedLastDay).Error; err != nil {
		return nil, err
	}

	n, err := s.sessions.ActiveCount()
	if err != nil {
		return nil, err
	}
	out.ActiveSessions = n
	return out, nil
}

// Collect сохраняет снапшот агрегатов в system_metrics.
func (s *Service) Collect() (*models.SystemMetric, error) {
	sum, err := s.Summary()
	if err != nil {
		return nil, err
	}
	m := &models.SystemMetric{
		DevicesTotal:   int(sum.DevicesTotal),
		DevicesOnline:  int(sum.DevicesByState[string(models.DeviceStatusOnline)]),
		AlertsActive:   int(sum.AlertsActive),
		BlockedLastDay: int(sum.BlockedLastDay),
		CollectedAt:    time.Now(),
	}
	if err := s.db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) History(limit int) ([]models.SystemMetric, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.SystemMetric
	err := s.db.Order("collected_at desc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Service) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/stats").Subrouter()
	api.Use(s.sessions.Require)

	api.HandleFunc("/summary", func(w http.ResponseWriter, _ *http.Request) {
		sum, err := s.Summary()
		if err != nil {
			models.WriteError(w, http.StatusInternalServerError, "Failed to compute summary")
			return
		}
		models.WriteJSON(w, http.StatusOK, sum)
	}).Methods(http.MethodGet)

	api.HandleFunc("/collect", func(w http.ResponseWriter, _ *http.Request) {
		m, err := s.Collect()
		if err != nil {
			models.WriteError(w, http.StatusInternalServerError, "Failed to collect metrics")
			return
		}
		models.WriteJSON(w, http.StatusCreated, m)
	}).Methods(http.MethodPost)

	api.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		ms, err := s.History(limit)
		if err != nil {
			models.WriteError(w, http.StatusInternalServerError, "Failed to list metrics")
			return
		}
		models.WriteJSON(w, http.StatusOK, map[string]any{"metrics": ms})
	}).Methods(http.MethodGet)
}
