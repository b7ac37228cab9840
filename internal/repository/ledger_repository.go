package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

// LedgerRepository persists milestone-notification dedup keys. The unique
// index on (notification_type, entity_id, milestone) is the real
// mutual-exclusion point for milestone alerts; the scheduler only reduces
// how often it is exercised.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Exists(
	ctx context.Context,
	notificationType model.NotificationType,
	entityID uuid.UUID,
	milestone int,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM notification_ledger
		WHERE notification_type = ? AND entity_id = ? AND milestone = ?
	`, notificationType, entityID, milestone).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record inserts the dedup row. Returns false without error when the triple
// already exists, so concurrent or repeated runs collapse to one send.
func (r *LedgerRepository) Record(
	ctx context.Context,
	notificationType model.NotificationType,
	entityID uuid.UUID,
	milestone int,
) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO notification_ledger (notification_type, entity_id, milestone)
		VALUES (?, ?, ?)
		ON CONFLICT (notification_type, entity_id, milestone) DO NOTHING
	`, notificationType, entityID, milestone)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
