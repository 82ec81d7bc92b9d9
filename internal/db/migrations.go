// internal/db/migrations.go
package db

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateAuditIndexes — составные индексы под типовые выборки аудита,
// AutoMigrate такие не создаёт.
func MigrateAuditIndexes(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	dialect := db.Dialector.Name()

	switch dialect {
	case "mysql":
		if !db.Migrator().HasIndex("blocked_attempts", "idx_attempts_ip_time") {
			if err := db.Exec("CREATE INDEX `idx_attempts_ip_time` ON `blocked_attempts` (`source_ip`, `blocked_at`)").Error; err != nil {
				return fmt.Errorf("blocked_attempts index: %w", err)
			}
		}
		if !db.Migrator().HasIndex("security_alerts", "idx_alerts_status_sev") {
			if err := db.Exec("CREATE INDEX `idx_alerts_status_sev` ON `security_alerts` (`status`, `severity`)").Error; err != nil {
				return fmt.Errorf("security_alerts index: %w", err)
			}
		}
		return nil

	case "postgres":
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_ip_time ON "blocked_attempts" ("source_ip", "blocked_at")`).Error; err != nil {
			return fmt.Errorf("blocked_attempts index: %w", err)
		}
		return db.Exec(`CREATE INDEX IF NOT EXISTS idx_alerts_status_sev ON "security_alerts" ("status", "severity")`).Error

	case "sqlite":
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_ip_time ON blocked_attempts (source_ip, blocked_at)`).Error; err != nil {
			return fmt.Errorf("blocked_attempts index: %w", err)
		}
		return db.Exec(`CREATE INDEX IF NOT EXISTS idx_alerts_status_sev ON security_alerts (status, severity)`).Error

	default:
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}
}
