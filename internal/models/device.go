package models

import (
	"time"

	"gorm.io/gorm"
)

type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusAlert   DeviceStatus = "alert"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusAlert:
		return true
	}
	return false
}

// Device — зарегистрированное IoT-устройство.
type Device struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	DeviceType      string         `gorm:"type:varchar(64);index" json:"device_type"`
	MACAddress      string         `gorm:"column:mac_address;type:varchar(17);index" json:"mac_address,omitempty"`
	IPAddress       string         `gorm:"column:ip_address;type:varchar(45)" json:"ip_address,omitempty"`
	Status          DeviceStatus   `gorm:"type:varchar(16);default:'offline';index" json:"status"`
	Location        string         `gorm:"type:varchar(255)" json:"location,omitempty"`
	FirmwareVersion string         `gorm:"type:varchar(64)" json:"firmware_version,omitempty"`
	LastSeen        *time.Time     `json:"last_seen,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// SecurityEnabled — эвристика security posture: непустая прошивка означает,
// что устройство само контролирует доступ.
func (d *Device) SecurityEnabled() bool {
	return d.FirmwareVersion != ""
}

// DeviceLog — журнальная строка по устройству (connect/disconnect/heartbeat).
type DeviceLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  uint      `gorm:"index;not null" json:"device_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Event     string    `gorm:"type:varchar(64);index" json:"event"`
	Message   string    `gorm:"type:varchar(512)" json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
