package facilities

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// AdjustOccupancy applies a signed occupancy delta to an area. It is designed
// to run inside the caller's transaction so the occupancy change commits or
// rolls back together with the placement change that caused it.
//
// The update is a single guarded statement: the row only changes when the
// resulting occupancy stays within 0..max_capacity, so concurrent adjustments
// serialize on the row without an explicit lock.
func AdjustOccupancy(tx *gorm.DB, areaID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}

	result := tx.Model(&Area{}).
		Where("id = ?", areaID).
		Where("current_occupancy + ? >= 0", delta).
		Where("max_capacity IS NULL OR current_occupancy + ? <= max_capacity", delta).
		Update("current_occupancy", gorm.Expr("current_occupancy + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to update occupancy: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Guard rejected the update; read the row to report why.
	var area Area
	err := tx.First(&area, "id = ?", areaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("area %s: %w", areaID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read area: %w", err)
	}
	if area.CurrentOccupancy+delta < 0 {
		return fmt.Errorf("occupancy of area %s would become %d: %w",
			areaID, area.CurrentOccupancy+delta, domain.ErrInvariantViolation)
	}
	return fmt.Errorf("area %s occupancy %d+%d exceeds capacity %d: %w",
		areaID, area.CurrentOccupancy, delta, *area.MaxCapacity, domain.ErrCapacityExceeded)
}
