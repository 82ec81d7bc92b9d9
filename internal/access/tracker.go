package access

import (
	"sync"
	"time"

	"warden/internal/models"
)

// Connection — эфемерная привязка "сессия работает с устройством".
// Не сетевой сокет и не строка БД: живёт только в памяти процесса.
type Connection struct {
	DeviceID        uint                `json:"device_id"`
	Name            string              `json:"name"`
	DeviceType      string              `json:"device_type"`
	IPAddress       string              `json:"ip_address,omitempty"`
	Location        string              `json:"location,omitempty"`
	FirmwareVersion string              `json:"firmware_version,omitempty"`
	Status          models.DeviceStatus `json:"status"`
	ConnectedAt     time.Time           `json:"connected_at"`
}

func snapshot(d *models.Device) Connection {
	return Connection{
		DeviceID:        d.ID,
		Name:            d.Name,
		DeviceType:      d.DeviceType,
		IPAddress:       d.IPAddress,
		Location:        d.Location,
		FirmwareVersion: d.FirmwareVersion,
		Status:          d.Status,
		ConnectedAt:     time.Now(),
	}
}

// Tracker держит не более одного подключения на сессию.
// Set молча перезаписывает предыдущее подключение: reconnect на другое
// устройство не требует явного disconnect (задокументированное поведение).
type Tracker struct {
	mu      sync.Mutex
	byToken map[string]Connection
}

func NewTracker() *Tracker {
	return &Tracker{byToken: make(map[string]Connection)}
}

func (t *Tracker) Set(sessionToken string, c Connection) {
	t.mu.Lock()
	t.byToken[sessionToken] = c
	t.mu.Unlock()
}

func (t *Tracker) Get(sessionToken string) (Connection, bool) {
	t.mu.Lock()
	c, ok := t.byToken[sessionToken]
	t.mu.Unlock()
	return c, ok
}

func (t *Tracker) Clear(sessionToken string) {
	t.mu.Lock()
	delete(t.byToken, sessionToken)
	t.mu.Unlock()
}
