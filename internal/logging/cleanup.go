package logging

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Purge deletes system logs older than cutoff.
func Purge(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge system logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartCleanup schedules a daily purge of system logs older than
// retentionDays. Stop the returned scheduler on shutdown.
func StartCleanup(db *gorm.DB, retentionDays int) (*cron.Cron, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}

	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		deleted, err := Purge(db, time.Now().AddDate(0, 0, -retentionDays))
		if err != nil {
			slog.Error("log cleanup failed", "error", err)
			return
		}
		if deleted > 0 {
			slog.Info("log cleanup completed", "deleted", deleted)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule log cleanup: %w", err)
	}

	c.Start()
	return c, nil
}
