package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(128);not null" json:"-"`
	Role         Role   `gorm:"type:varchar(16);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserSession — строка логин-сессии (cookie token -> user).
// Подключённое устройство сюда НЕ пишется: это эфемерное состояние в памяти.
type UserSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"type:char(36);uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	SourceIP  string    `gorm:"type:varchar(45)" json:"source_ip,omitempty"`
	UserAgent string    `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
