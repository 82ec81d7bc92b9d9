package models

import (
	"time"

	"gorm.io/datatypes"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusActive        AlertStatus = "active"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusFalsePositive AlertStatus = "false_positive"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusInvestigating, AlertStatusResolved, AlertStatusFalsePositive:
		return true
	}
	return false
}

// SecurityAlert мутируется только через resolve-переход (active -> resolved).
// Инвариант: ResolvedAt != nil <=> Status == resolved.
type SecurityAlert struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	DeviceID    *uint         `gorm:"index" json:"device_id,omitempty"`
	AlertType   string        `gorm:"type:varchar(128);not null" json:"alert_type"`
	Severity    AlertSeverity `gorm:"type:varchar(16);index;not null" json:"severity"`
	Description string        `gorm:"type:varchar(512)" json:"description,omitempty"`
	SourceIP    string        `gorm:"column:source_ip;type:varchar(45)" json:"source_ip,omitempty"`
	DetectedAt  time.Time     `gorm:"index" json:"detected_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	Status      AlertStatus   `gorm:"type:varchar(20);default:'active';index" json:"status"`
	ResolvedBy  *uint         `json:"resolved_by,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
}

type AttemptType string

const (
	AttemptBruteForce   AttemptType = "brute_force"
	AttemptPortScan     AttemptType = "port_scan"
	AttemptMalware      AttemptType = "malware"
	AttemptUnauthorized AttemptType = "unauthorized_access"
	AttemptInvalidDev   AttemptType = "invalid_device"
	AttemptOfflineDev   AttemptType = "offline_device"
)

// BlockedAttempt — неизменяемая аудит-строка заблокированного доступа.
// Никогда не обновляется и не удаляется движком.
type BlockedAttempt struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	SourceIP       string      `gorm:"column:source_ip;type:varchar(45);index" json:"source_ip"`
	TargetDeviceID *uint       `gorm:"index" json:"target_device_id,omitempty"`
	AttemptType    AttemptType `gorm:"type:varchar(32);index;not null" json:"attempt_type"`
	BlockedAt      time.Time   `gorm:"index" json:"blocked_at"`
	AttemptCount   int         `gorm:"default:1" json:"attempt_count"`
	UserAgent      string      `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	RequestDetails datatypes.JSONMap `gorm:"type:json" json:"request_details,omitempty"`
}

type SecurityRule struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	RuleType   string `gorm:"type:varchar(64)" json:"rule_type"`
	Enabled    bool   `gorm:"default:true" json:"enabled"`
	Parameters datatypes.JSONMap `gorm:"type:json" json:"parameters,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SystemMetric — снапшот агрегатов для дашборда.
type SystemMetric struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DevicesTotal    int       `json:"devices_total"`
	DevicesOnline   int       `json:"devices_online"`
	AlertsActive    int       `json:"alerts_active"`
	BlockedLastDay  int       `gorm:"column:blocked_last_day" json:"blocked_last_day"`
	CollectedAt     time.Time `gorm:"index" json:"collected_at"`
}
