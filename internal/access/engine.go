package access

import (
	"errors"
	"fmt"

	"warden/internal/logs"
	"warden/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceOffline  = errors.New("device is offline")
	ErrAccessDenied   = errors.New("access denied")
	ErrNotConnected   = errors.New("not connected to device")
)

// ConnectRequest — вход движка. UserID и SessionToken приходят из
// аутентифицированной сессии, SourceIP/UserAgent — только для аудита.
type ConnectRequest struct {
	SessionToken string
	UserID       uint
	DeviceID     uint
	SourceIP     string
	UserAgent    string
}

// Engine решает исход попытки подключения к устройству и выполняет
// побочные записи аудита. Порядок фиксированный: lookup устройства ->
// статус -> posture -> права -> запись аудита -> состояние сессии.
type Engine struct {
	db      *gorm.DB
	perms   PermissionResolver
	rec     *Recorders
	tracker *Tracker
}

func NewEngine(db *gorm.DB, perms PermissionResolver, rec *Recorders, tracker *Tracker) *Engine {
	return &Engine{db: db, perms: perms, rec: rec, tracker: tracker}
}

func (e *Engine) Tracker() *Tracker { return e.tracker }

// Connect прогоняет таблицу решений; первое сработавшее правило выигрывает.
// Ошибки записи аудита не меняют уже принятое решение.
func (e *Engine) Connect(req ConnectRequest) (*models.Device, error) {
	var dev models.Device
	if err := e.db.First(&dev, req.DeviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			id := req.DeviceID
			e.rec.BlockedAttempt(req.UserID, req.SourceIP, &id,
				models.AttemptInvalidDev, "device_not_found", req.UserAgent, nil)
			return nil, ErrDeviceNotFound
		}
		logs.Logger.WithFields(map[string]any{
			"user_id":   req.UserID,
			"device_id": req.DeviceID,
			"source_ip": req.SourceIP,
		}).Errorf("device lookup: %v", err)
		return nil, fmt.Errorf("device lookup: %w", err)
	}

	if dev.Status != models.DeviceStatusOnline {
		e.rec.BlockedAttempt(req.UserID, req.SourceIP, &dev.ID,
			models.AttemptOfflineDev, "device_offline", req.UserAgent,
			map[string]any{"device_status": string(dev.Status)})
		return nil, ErrDeviceOffline
	}

	secured := dev.SecurityEnabled()

	permitted, err := e.perms.HasPermission(req.UserID, req.DeviceID)
	if err != nil {
		// fail closed: ошибка поиска прав валит запрос, а не пропускает
		logs.Logger.WithFields(map[string]any{
			"user_id":   req.UserID,
			"device_id": req.DeviceID,
			"source_ip": req.SourceIP,
		}).Errorf("permission resolve: %v", err)
		return nil, fmt.Errorf("permission resolve: %w", err)
	}

	if !permitted && secured {
		e.rec.BlockedAttempt(req.UserID, req.SourceIP, &dev.ID,
			models.AttemptUnauthorized, "no_permission_secured_device", req.UserAgent,
			map[string]any{"device_name": dev.Name, "security_enabled": true})
		return nil, ErrAccessDenied
	}

	if !permitted && !secured {
		// доступ даём, но фиксируем алерт: устройство без своей защиты
		e.rec.SecurityAlert(&dev.ID, "Unauthorized Device Access", models.SeverityMedium,
			fmt.Sprintf("User %d connected to unsecured device %q without explicit permission", req.UserID, dev.Name),
			req.SourceIP,
			map[string]any{
				"reason":           "unsecured_device_access",
				"user_id":          req.UserID,
				"device_name":      dev.Name,
				"security_enabled": false,
			})
	}

	e.tracker.Set(req.SessionToken, snapshot(&dev))
	uid := req.UserID
	e.rec.DeviceLog(dev.ID, &uid, "connect", fmt.Sprintf("user %d connected from %s", req.UserID, req.SourceIP))
	return &dev, nil
}

// Disconnect требует активного подключения именно к этому устройству.
// Ничего в БД не меняет, кроме журнальной строки.
func (e *Engine) Disconnect(sessionToken string, userID, deviceID uint) error {
	conn, ok := e.tracker.Get(sessionToken)
	if !ok || conn.DeviceID != deviceID {
		return ErrNotConnected
	}
	e.tracker.Clear(sessionToken)
	uid := userID
	e.rec.DeviceLog(deviceID, &uid, "disconnect", fmt.Sprintf("user %d disconnected", userID))
	return nil
}
