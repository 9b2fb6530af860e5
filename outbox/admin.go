package outbox

import (
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status models.OutboxStatus
	Count  int64
}

func Counts(db *gorm.DB) ([]StatusCount, error) {
	var counts []StatusCount
	err := db.Model(&models.OutboxMessage{}).
		Select("status, count(*) as count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}

func Failed(db *gorm.DB, limit int) ([]models.OutboxMessage, error) {
	var msgs []models.OutboxMessage
	err := db.Where("status = ?", models.OutboxFailed).Order("updated_at DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// Requeue resets FAILED messages to PENDING. No ids means all of them.
func Requeue(db *gorm.DB, ids ...uint) (int64, error) {
	q := db.Model(&models.OutboxMessage{}).Where("status = ?", models.OutboxFailed)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Updates(map[string]any{
		"status":          models.OutboxPending,
		"attempts":        0,
		"next_attempt_at": time.Now(),
		"last_error":      "",
	})
	return res.RowsAffected, res.Error
}
