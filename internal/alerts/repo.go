package alerts

import (
	"errors"
	"time"

	"warden/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotActive = errors.New("alert is not active")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

type ListFilter struct {
	Status   string
	Severity string
	DeviceID uint
	Limit    int
	Offset   int
}

func (r *Repo) List(f ListFilter) ([]models.SecurityAlert, int64, error) {
	q := r.db.Model(&models.SecurityAlert{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.DeviceID != 0 {
		q = q.Where("device_id = ?", f.DeviceID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var out []models.SecurityAlert
	err := q.Order("detected_at desc").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

func (r *Repo) Get(id uint) (*models.SecurityAlert, error) {
	var a models.SecurityAlert
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) Create(a *models.SecurityAlert) error {
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}
	if a.DetectedAt.IsZero() {
		a.DetectedAt = time.Now()
	}
	if !a.Severity.Valid() {
		return errors.New("invalid severity")
	}
	return r.db.Create(a).Error
}

// Resolve — единственный разрешённый переход: active -> resolved.
// resolved_at и resolved_by выставляются одной записью; resolution_note
// подмешивается в metadata. Повторный resolve ничего не меняет.
func (r *Repo) Resolve(id, resolvedBy uint, note string) (*models.SecurityAlert, error) {
	var a models.SecurityAlert
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, id).Error; err != nil {
			return err
		}
		if a.Status != models.AlertStatusActive {
			return ErrNotActive
		}
		now := time.Now()
		a.Status = models.AlertStatusResolved
		a.ResolvedAt = &now
		a.ResolvedBy = &resolvedBy
		if note != "" {
			if a.Metadata == nil {
				a.Metadata = datatypes.JSONMap{}
			}
			a.Metadata["resolution_note"] = note
		}
		return tx.Save(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) Delete(id uint) error {
	res := r.db.Delete(&models.SecurityAlert{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type Summary struct {
	Total      int64            `json:"total"`
	Active     int64            `json:"active"`
	Resolved   int64            `json:"resolved"`
	BySeverity map[string]int64 `json:"by_severity"`
	Last24h    int64            `json:"last_24h"`
}

func (r *Repo) Stats() (*Summary, error) {
	s := &Summary{BySeverity: map[string]int64{}}
	if err := r.db.Model(&models.SecurityAlert{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.SecurityAlert{}).Where("status = ?", models.AlertStatusActive).Count(&s.Active).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.SecurityAlert{}).Where("status = ?", models.AlertStatusResolved).Count(&s.Resolved).Error; err != nil {
		return nil, err
	}
	rows := []struct {
		Severity string
		N        int64
	}{}
	if err := r.db.Model(&models.SecurityAlert{}).
		Select("severity, count(*) as n").
		Where("status = ?", models.AlertStatusActive).
		Group("severity").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.BySeverity[row.Severity] = row.N
	}
	if err := r.db.Model(&models.SecurityAlert{}).
		Where("detected_at > ?", time.Now().Add(-24*time.Hour)).
		Count(&s.Last24h).Error; err != nil {
		return nil, err
	}
	return s, nil
}
