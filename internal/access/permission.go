package access

import (
	"fmt"

	"warden/internal/models"

	"gorm.io/gorm"
)

// PermissionResolver отвечает на вопрос "есть ли у пользователя явное
// право доступа к устройству".
type PermissionResolver interface {
	HasPermission(userID, deviceID uint) (bool, error)
}

// RoleResolver — текущая политика: admin имеет доступ ко всем устройствам,
// остальные роли явных прав не имеют (место под будущий per-device ACL).
// Ошибка поиска пользователя = fail closed.
type RoleResolver struct {
	db *gorm.DB
}

func NewRoleResolver(db *gorm.DB) *RoleResolver {
	return &RoleResolver{db: db}
}

func (r *RoleResolver) HasPermission(userID, _ uint) (bool, error) {
	var u models.User
	if err := r.db.First(&u, userID).Error; err != nil {
		return false, fmt.Errorf("permission lookup for user %d: %w", userID, err)
	}
	return u.Role == models.RoleAdmin, nil
}
