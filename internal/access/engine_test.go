package access

import (
	"path/filepath"
	"testing"

	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "warden_test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserSession{},
		&models.Device{}, &models.DeviceLog{},
		&models.SecurityAlert{}, &models.BlockedAttempt{},
	))
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) *Engine {
	t.Helper()
	return NewEngine(db, NewRoleResolver(db), NewRecorders(db), NewTracker())
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedDevice(t *testing.T, db *gorm.DB, name string, status models.DeviceStatus, firmware string) *models.Device {
	t.Helper()
	d := &models.Device{Name: name, DeviceType: "sensor", Status: status, FirmwareVersion: firmware}
	require.NoError(t, db.Create(d).Error)
	return d
}

func countAttempts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.BlockedAttempt{}).Count(&n).Error)
	return n
}

func countAlerts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.SecurityAlert{}).Count(&n).Error)
	return n
}

func TestConnectUnknownDevice(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "alice", models.RoleUser)

	_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: 999, SourceIP: "10.0.0.9"})
	require.ErrorIs(t, err, ErrDeviceNotFound)

	var a models.BlockedAttempt
	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, models.AttemptInvalidDev, a.AttemptType)
	require.NotNil(t, a.TargetDeviceID)
	assert.Equal(t, uint(999), *a.TargetDeviceID)
	assert.Equal(t, "device_not_found", a.RequestDetails["blocked_reason"])
	assert.EqualValues(t, 1, countAttempts(t, db))

	_, connected := e.Tracker().Get("s1")
	assert.False(t, connected)
}

func TestConnectOfflineDevice(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "alice", models.RoleUser)
	d := seedDevice(t, db, "cam-1", models.DeviceStatusOffline, "1.0")

	_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: d.ID, SourceIP: "10.0.0.9"})
	require.ErrorIs(t, err, ErrDeviceOffline)

	var a models.BlockedAttempt
	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, models.AttemptOfflineDev, a.AttemptType)
	assert.Equal(t, "device_offline", a.RequestDetails["blocked_reason"])
	assert.Equal(t, "offline", a.RequestDetails["device_status"])
	assert.EqualValues(t, 1, countAttempts(t, db))
	assert.EqualValues(t, 0, countAlerts(t, db))
}

func TestConnectAdminAlwaysAllowed(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	admin := seedUser(t, db, "root", models.RoleAdmin)

	secured := seedDevice(t, db, "lock-1", models.DeviceStatusOnline, "2.1.0")
	unsecured := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")

	for _, d := range []*models.Device{secured, unsecured} {
		got, err := e.Connect(ConnectRequest{SessionToken: "adm", UserID: admin.ID, DeviceID: d.ID, SourceIP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	}

	// полностью разрешённое подключение не оставляет аудит-строк
	assert.EqualValues(t, 0, countAttempts(t, db))
	assert.EqualValues(t, 0, countAlerts(t, db))
}

func TestConnectSecuredDeviceDenied(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "bob", models.RoleUser)
	d := seedDevice(t, db, "lock-1", models.DeviceStatusOnline, "1.0")

	_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: d.ID, SourceIP: "10.0.0.9", UserAgent: "curl/8"})
	require.ErrorIs(t, err, ErrAccessDenied)

	var a models.BlockedAttempt
	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, models.AttemptUnauthorized, a.AttemptType)
	assert.Equal(t, "no_permission_secured_device", a.RequestDetails["blocked_reason"])
	assert.Equal(t, "curl/8", a.UserAgent)
	assert.EqualValues(t, 1, countAttempts(t, db))
	assert.EqualValues(t, 0, countAlerts(t, db))

	_, connected := e.Tracker().Get("s1")
	assert.False(t, connected)
}

func TestConnectUnsecuredDeviceAllowedWithAlert(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "bob", models.RoleUser)
	d := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")

	got, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: d.ID, SourceIP: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	var alert models.SecurityAlert
	require.NoError(t, db.First(&alert).Error)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, "Unauthorized Device Access", alert.AlertType)
	assert.Equal(t, "unsecured_device_access", alert.Metadata["reason"])
	require.NotNil(t, alert.DeviceID)
	assert.Equal(t, d.ID, *alert.DeviceID)
	assert.EqualValues(t, 1, countAlerts(t, db))
	assert.EqualValues(t, 0, countAttempts(t, db))

	conn, connected := e.Tracker().Get("s1")
	require.True(t, connected)
	assert.Equal(t, d.ID, conn.DeviceID)
}

func TestBlockedAttemptCountIsAlwaysOne(t *testing.T) {
	// бизнес-правило про "инкремент счётчика в пределах часа" движком
	// сознательно не реализовано: каждая попытка = отдельная строка с count=1
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "bob", models.RoleUser)
	d := seedDevice(t, db, "lock-1", models.DeviceStatusOnline, "1.0")

	for i := 0; i < 3; i++ {
		_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: d.ID, SourceIP: "10.0.0.9"})
		require.ErrorIs(t, err, ErrAccessDenied)
	}

	var rows []models.BlockedAttempt
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 1, r.AttemptCount)
	}
}

func TestDisconnect(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	u := seedUser(t, db, "bob", models.RoleUser)
	d := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")

	// без подключения — всегда ErrNotConnected, паник нет
	require.ErrorIs(t, e.Disconnect("s1", u.ID, d.ID), ErrNotConnected)

	_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: u.ID, DeviceID: d.ID, SourceIP: "10.0.0.9"})
	require.NoError(t, err)

	// чужое устройство — тоже NotConnected
	require.ErrorIs(t, e.Disconnect("s1", u.ID, d.ID+1), ErrNotConnected)

	require.NoError(t, e.Disconnect("s1", u.ID, d.ID))
	_, connected := e.Tracker().Get("s1")
	assert.False(t, connected)

	// повторный disconnect после очистки
	require.ErrorIs(t, e.Disconnect("s1", u.ID, d.ID), ErrNotConnected)
}

func TestPermissionResolverFailsClosed(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	d := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")

	// пользователя нет в БД — ошибка, не тихий allow
	_, err := e.Connect(ConnectRequest{SessionToken: "s1", UserID: 4242, DeviceID: d.ID, SourceIP: "10.0.0.9"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
	assert.NotErrorIs(t, err, ErrDeviceNotFound)

	_, connected := e.Tracker().Get("s1")
	assert.False(t, connected)
}
