package auth

import (
	"sync"
	"time"

	"warden/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Principal — аутентифицированный пользователь текущего запроса.
type Principal struct {
	UserID uint
	Role   models.Role
	Token  string
}

type cachedSession struct {
	userID    uint
	role      models.Role
	expiresAt time.Time
}

// Manager хранит логин-сессии: строка в user_sessions + кэш в памяти.
// Подключённое устройство сессии живёт отдельно (access.Tracker), в БД не пишется.
type Manager struct {
	db  *gorm.DB
	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSession
}

func NewManager(db *gorm.DB, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{db: db, ttl: ttl, cache: make(map[string]cachedSession)}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Create выдаёт новый токен и сохраняет сессию.
func (m *Manager) Create(user *models.User, sourceIP, userAgent string) (*models.UserSession, error) {
	s := &models.UserSession{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		SourceIP:  sourceIP,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.db.Create(s).Error; err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[s.Token] = cachedSession{userID: user.ID, role: user.Role, expiresAt: s.ExpiresAt}
	m.mu.Unlock()
	return s, nil
}

// Lookup резолвит токен в Principal; просроченные сессии не отдаёт.
func (m *Manager) Lookup(token string) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}
	m.mu.RLock()
	c, ok := m.cache[token]
	m.mu.RUnlock()
	if ok {
		if time.Now().After(c.expiresAt) {
			m.Destroy(token)
			return Principal{}, false
		}
		return Principal{UserID: c.userID, Role: c.role, Token: token}, true
	}

	// кэш-промах (рестарт процесса) — поднимаем из БД
	var s models.UserSession
	if err := m.db.Where("token = ?", token).First(&s).Error; err != nil {
		return Principal{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		m.Destroy(token)
		return Principal{}, false
	}
	var u models.User
	if err := m.db.First(&u, s.UserID).Error; err != nil {
		return Principal{}, false
	}
	m.mu.Lock()
	m.cache[token] = cachedSession{userID: u.ID, role: u.Role, expiresAt: s.ExpiresAt}
	m.mu.Unlock()
	return Principal{UserID: u.ID, Role: u.Role, Token: token}, true
}

// Destroy удаляет сессию из кэша и БД.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.cache, token)
	m.mu.Unlock()
	_ = m.db.Where("token = ?", token).Delete(&models.UserSession{}).Error
}

// ActiveCount — число живых сессий (для дашборда).
func (m *Manager) ActiveCount() (int64, error) {
	var n int64
	err := m.db.Model(&models.UserSession{}).Where("expires_at > ?", time.Now()).Count(&n).Error
	return n, err
}

// EnsureAdmin создаёт bootstrap-администратора, если пользователей ещё нет.
func EnsureAdmin(db *gorm.DB, username, password string) error {
	if password == "" {
		return nil
	}
	var n int64
	if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{Username: username, PasswordHash: hash, Role: models.RoleAdmin}
	return db.Create(u).Error
}
