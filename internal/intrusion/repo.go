package intrusion

import (
	"errors"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

type ListFilter struct {
	SourceIP    string
	AttemptType string
	Since       time.Time
	Limit       int
	Offset      int
}

func (r *Repo) List(f ListFilter) ([]models.BlockedAttempt, int64, error) {
	q := r.db.Model(&models.BlockedAttempt{})
	if f.SourceIP != "" {
		q = q.Where("source_ip = ?", f.SourceIP)
	}
	if f.AttemptType != "" {
		q = q.Where("attempt_type = ?", f.AttemptType)
	}
	if !f.Since.IsZero() {
		q = q.Where("blocked_at > ?", f.Since)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var out []models.BlockedAttempt
	err := q.Order("blocked_at desc").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

// Create — публичная точка создания; строка неизменяемая, как и у движка.
func (r *Repo) Create(a *models.BlockedAttempt) error {
	if a.AttemptType == "" {
		return errors.New("attempt_type required")
	}
	if a.BlockedAt.IsZero() {
		a.BlockedAt = time.Now()
	}
	if a.AttemptCount < 1 {
		a.AttemptCount = 1
	}
	return r.db.Create(a).Error
}

// CountSince — число заблокированных попыток с момента t (для дашборда).
func (r *Repo) CountSince(t time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.BlockedAttempt{}).Where("blocked_at > ?", t).Count(&n).Error
	return n, err
}
