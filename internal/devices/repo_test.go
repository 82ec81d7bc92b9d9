package devices

import (
	"path/filepath"
	"testing"
	"time"

	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (*Repo, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "devices_test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Device{}, &models.DeviceLog{}, &models.SecurityAlert{}, &models.BlockedAttempt{}))
	return NewRepo(db), db
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	r, _ := newTestRepo(t)
	d := &models.Device{Name: "cam-1", MACAddress: " AA:BB:CC:DD:EE:FF "}
	require.NoError(t, r.Create(d))
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", d.MACAddress)
	assert.Equal(t, models.DeviceStatusOffline, d.Status)
}

func TestCreateRejectsDuplicateMAC(t *testing.T) {
	r, _ := newTestRepo(t)
	require.NoError(t, r.Create(&models.Device{Name: "a", MACAddress: "aa:bb:cc:dd:ee:ff"}))
	err := r.Create(&models.Device{Name: "b", MACAddress: "AA:BB:CC:DD:EE:FF"})
	require.ErrorIs(t, err, ErrDuplicateMAC)

	// пустой MAC дубликатом не считается
	require.NoError(t, r.Create(&models.Device{Name: "c"}))
	require.NoError(t, r.Create(&models.Device{Name: "d"}))
}

func TestHeartbeatMarksOnlineAndLogs(t *testing.T) {
	r, db := newTestRepo(t)
	d := &models.Device{Name: "cam-1", Status: models.DeviceStatusOffline}
	require.NoError(t, r.Create(d))

	require.NoError(t, r.Heartbeat(d.ID, "192.168.1.50"))

	got, err := r.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusOnline, got.Status)
	require.NotNil(t, got.LastSeen)
	assert.WithinDuration(t, time.Now(), *got.LastSeen, 5*time.Second)

	var logRow models.DeviceLog
	require.NoError(t, db.Where("device_id = ?", d.ID).First(&logRow).Error)
	assert.Equal(t, "heartbeat", logRow.Event)

	// неизвестное устройство
	require.ErrorIs(t, r.Heartbeat(9999, "192.168.1.50"), gorm.ErrRecordNotFound)
}

func TestListFilters(t *testing.T) {
	r, _ := newTestRepo(t)
	require.NoError(t, r.Create(&models.Device{Name: "a", DeviceType: "camera", Status: models.DeviceStatusOnline}))
	require.NoError(t, r.Create(&models.Device{Name: "b", DeviceType: "lock", Status: models.DeviceStatusOnline}))
	require.NoError(t, r.Create(&models.Device{Name: "c", DeviceType: "camera", Status: models.DeviceStatusOffline}))

	ds, total, err := r.List("online", "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, ds, 2)

	ds, total, err = r.List("", "camera", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	ds, total, err = r.List("online", "camera", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "a", ds[0].Name)
}

func TestDeletePreservesAuditRows(t *testing.T) {
	r, db := newTestRepo(t)
	d := &models.Device{Name: "cam-1", Status: models.DeviceStatusOnline}
	require.NoError(t, r.Create(d))

	id := d.ID
	require.NoError(t, db.Create(&models.SecurityAlert{DeviceID: &id, AlertType: "t", Severity: models.SeverityLow, Status: models.AlertStatusActive, DetectedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&models.BlockedAttempt{TargetDeviceID: &id, AttemptType: models.AttemptOfflineDev, BlockedAt: time.Now(), AttemptCount: 1}).Error)

	require.NoError(t, r.Delete(id))
	_, err := r.Get(id)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// аудит остаётся историей даже после удаления устройства
	var alerts, attempts int64
	require.NoError(t, db.Model(&models.SecurityAlert{}).Where("device_id = ?", id).Count(&alerts).Error)
	require.NoError(t, db.Model(&models.BlockedAttempt{}).Where("target_device_id = ?", id).Count(&attempts).Error)
	assert.EqualValues(t, 1, alerts)
	assert.EqualValues(t, 1, attempts)
}

func TestUpdateValidatesStatus(t *testing.T) {
	r, _ := newTestRepo(t)
	d := &models.Device{Name: "cam-1"}
	require.NoError(t, r.Create(d))

	_, err := r.Update(d.ID, map[string]any{"status": "sleeping"})
	require.Error(t, err)

	got, err := r.Update(d.ID, map[string]any{"status": "alert", "location": "roof"})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusAlert, got.Status)
	assert.Equal(t, "roof", got.Location)
}
