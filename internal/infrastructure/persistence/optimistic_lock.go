package persistence

import (
	"context"
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// updateWithVersionLock applies updates to the row guarded by its
// optimistic-lock version. The version bump rides in the same UPDATE,
// so a concurrent writer's bump makes this statement match zero rows.
func updateWithVersionLock(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, expectedVersion int, updates map[string]any) error {
	updates["version"] = expectedVersion + 1
	updates["updated_at"] = time.Now()

	result := db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return translateError(err)
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}
