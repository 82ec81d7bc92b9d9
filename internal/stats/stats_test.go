package stats

import (
	"path/filepath"
	"testing"
	"time"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "stats_test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserSession{},
		&models.Device{}, &models.SecurityAlert{},
		&models.BlockedAttempt{}, &models.SystemMetric{},
	))
	return NewService(db, auth.NewManager(db, time.Hour)), db
}

func TestSummaryAndCollect(t *testing.T) {
	s, db := newTestService(t)

	require.NoError(t, db.Create(&models.Device{Name: "a", Status: models.DeviceStatusOnline}).Error)
	require.NoError(t, db.Create(&models.Device{Name: "b", Status: models.DeviceStatusOffline}).Error)
	require.NoError(t, db.Create(&models.SecurityAlert{AlertType: "t", Severity: models.SeverityHigh, Status: models.AlertStatusActive, DetectedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&models.BlockedAttempt{SourceIP: "1.2.3.4", AttemptType: models.AttemptPortScan, BlockedAt: time.Now(), AttemptCount: 1}).Error)
	require.NoError(t, db.Create(&models.BlockedAttempt{SourceIP: "1.2.3.4", AttemptType: models.AttemptPortScan, BlockedAt: time.Now().Add(-48 * time.Hour), AttemptCount: 1}).Error)

	sum, err := s.Summary()
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.DevicesTotal)
	assert.EqualValues(t, 1, sum.DevicesByState["online"])
	assert.EqualValues(t, 1, sum.AlertsActive)
	assert.EqualValues(t, 1, sum.AlertsBySev["high"])
	assert.EqualValues(t, 1, sum.BlockedLastDay) // старая попытка не в счёте

	m, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, m.DevicesTotal)
	assert.Equal(t, 1, m.DevicesOnline)
	assert.Equal(t, 1, m.AlertsActive)
	assert.Equal(t, 1, m.BlockedLastDay)

	hist, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
}
