package devices

import (
	"errors"
	"strings"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

var ErrDuplicateMAC = errors.New("mac address already registered")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// List — постраничный список с фильтром по статусу и типу.
func (r *Repo) List(status, deviceType string, limit, offset int) ([]models.Device, int64, error) {
	q := r.db.Model(&models.Device{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if deviceType != "" {
		q = q.Where("device_type = ?", deviceType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Device
	err := q.Order("id").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}

func (r *Repo) Get(id uint) (*models.Device, error) {
	var d models.Device
	if err := r.db.First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Create регистрирует устройство; MAC, если задан, должен быть уникален.
func (r *Repo) Create(d *models.Device) error {
	d.MACAddress = strings.ToLower(strings.TrimSpace(d.MACAddress))
	if d.Status == "" {
		d.Status = models.DeviceStatusOffline
	}
	if !d.Status.Valid() {
		return errors.New("invalid device status")
	}
	if d.MACAddress != "" {
		var n int64
		if err := r.db.Model(&models.Device{}).Where("mac_address = ?", d.MACAddress).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateMAC
		}
	}
	return r.db.Create(d).Error
}

// Update — частичное обновление изменяемых полей.
func (r *Repo) Update(id uint, fields map[string]any) (*models.Device, error) {
	if st, ok := fields["status"]; ok {
		if !models.DeviceStatus(st.(string)).Valid() {
			return nil, errors.New("invalid device status")
		}
	}
	var d models.Device
	if err := r.db.First(&d, id).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&d).Updates(fields).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete — soft delete. Аудит-строки (alerts/attempts) не трогаем:
// они остаются как история даже для удалённого устройства.
func (r *Repo) Delete(id uint) error {
	return r.db.Delete(&models.Device{}, id).Error
}

// Heartbeat отмечает устройство живым: last_seen + status=online + журнальная
// строка, одной транзакцией.
func (r *Repo) Heartbeat(id uint, sourceIP string) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Device{}).
			Where("id = ?", id).
			Updates(map[string]any{"last_seen": now, "status": models.DeviceStatusOnline, "ip_address": sourceIP})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		h := models.DeviceLog{DeviceID: id, Event: "heartbeat", Message: "heartbeat from " + sourceIP}
		return tx.Create(&h).Error
	})
}

func (r *Repo) Logs(deviceID uint, limit int) ([]models.DeviceLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.DeviceLog
	err := r.db.Where("device_id = ?", deviceID).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}
