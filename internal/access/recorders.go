package access

import (
	"time"

	"warden/internal/logs"
	"warden/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorders — append-only писатели аудита. Ошибки записи глотаются и
// логируются: решение движка важнее полноты аудита, ответ уже определён.
type Recorders struct {
	db *gorm.DB
}

func NewRecorders(db *gorm.DB) *Recorders {
	return &Recorders{db: db}
}

// BlockedAttempt пишет строку blocked_attempts. AttemptCount всегда 1:
// коалесинг повторов с одного IP в пределах часа здесь не делается.
// request_details всегда содержит user_id и blocked_reason.
func (r *Recorders) BlockedAttempt(userID uint, sourceIP string, targetDeviceID *uint, attemptType models.AttemptType, reason, userAgent string, details map[string]any) {
	payload := datatypes.JSONMap{
		"user_id":        userID,
		"blocked_reason": reason,
	}
	for k, v := range details {
		payload[k] = v
	}
	row := &models.BlockedAttempt{
		SourceIP:       sourceIP,
		TargetDeviceID: targetDeviceID,
		AttemptType:    attemptType,
		BlockedAt:      time.Now(),
		AttemptCount:   1,
		UserAgent:      userAgent,
		RequestDetails: payload,
	}
	if err := r.db.Create(row).Error; err != nil {
		logs.Logger.WithFields(map[string]any{
			"user_id":      userID,
			"source_ip":    sourceIP,
			"attempt_type": attemptType,
		}).Errorf("record blocked attempt: %v", err)
	}
}

// SecurityAlert пишет строку security_alerts со status=active.
func (r *Recorders) SecurityAlert(deviceID *uint, alertType string, severity models.AlertSeverity, description, sourceIP string, metadata map[string]any) {
	row := &models.SecurityAlert{
		DeviceID:    deviceID,
		AlertType:   alertType,
		Severity:    severity,
		Description: description,
		SourceIP:    sourceIP,
		DetectedAt:  time.Now(),
		Status:      models.AlertStatusActive,
		Metadata:    datatypes.JSONMap(metadata),
	}
	if err := r.db.Create(row).Error; err != nil {
		logs.Logger.WithFields(map[string]any{
			"alert_type": alertType,
			"source_ip":  sourceIP,
		}).Errorf("record security alert: %v", err)
	}
}

// DeviceLog — журнальная строка device_logs, тоже best-effort.
func (r *Recorders) DeviceLog(deviceID uint, userID *uint, event, message string) {
	row := &models.DeviceLog{DeviceID: deviceID, UserID: userID, Event: event, Message: message}
	if err := r.db.Create(row).Error; err != nil {
		logs.Logger.WithFields(map[string]any{
			"device_id": deviceID,
			"event":     event,
		}).Errorf("record device log: %v", err)
	}
}
