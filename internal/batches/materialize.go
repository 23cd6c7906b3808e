package batches

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/facilities"
)

// MaterializeParams describes one physical batch to create
type MaterializeParams struct {
	OrderID           *uuid.UUID
	CropTypeID        uuid.UUID
	CultivarID        *uuid.UUID
	CultivarPrefix    string
	AreaID            uuid.UUID
	PhaseName         string
	Quantity          int
	TracksIndividuals bool
	CreatedBy         uuid.UUID
	Date              time.Time
}

// Materialize creates a batch, increments the target area's occupancy by the
// batch quantity, and bulk-creates plant rows when individual tracking is on.
// Runs inside the caller's transaction; this is the point where planned
// quantities become real inventory with capacity consequences.
func Materialize(tx *gorm.DB, p MaterializeParams) (*Batch, error) {
	code, err := NextBatchCode(tx, p.CultivarPrefix, p.Date)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:                uuid.New(),
		BatchCode:         code,
		OrderID:           p.OrderID,
		CropTypeID:        p.CropTypeID,
		CultivarID:        p.CultivarID,
		AreaID:            p.AreaID,
		CurrentPhase:      p.PhaseName,
		Status:            BatchStatusActive,
		InitialQuantity:   p.Quantity,
		CurrentQuantity:   p.Quantity,
		LostQuantity:      0,
		MortalityRate:     0,
		TracksIndividuals: p.TracksIndividuals,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := tx.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	if err := facilities.AdjustOccupancy(tx, p.AreaID, p.Quantity); err != nil {
		return nil, err
	}

	if p.TracksIndividuals {
		if err := bulkCreatePlants(tx, batch, p.Quantity); err != nil {
			return nil, err
		}
	}

	return batch, nil
}

// bulkCreatePlants creates one plant row per unit in the batch
func bulkCreatePlants(tx *gorm.DB, batch *Batch, quantity int) error {
	plants := make([]Plant, quantity)
	for i := range plants {
		plants[i] = Plant{
			ID:           uuid.New(),
			BatchID:      batch.ID,
			PlantTag:     fmt.Sprintf("%s-P%04d", batch.BatchCode, i+1),
			Stage:        StageSeedling,
			HealthStatus: "healthy",
			Status:       PlantStatusActive,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}
	if err := tx.CreateInBatches(plants, 100).Error; err != nil {
		return fmt.Errorf("failed to bulk-create plants: %w", err)
	}
	return nil
}

// ArchiveForOrder archives every still-active batch of an order, releasing
// the occupancy each batch held. Used by order cancellation.
func ArchiveForOrder(tx *gorm.DB, orderID uuid.UUID) (int, error) {
	var active []Batch
	if err := tx.Where("order_id = ? AND status = ?", orderID, BatchStatusActive).
		Find(&active).Error; err != nil {
		return 0, fmt.Errorf("failed to load batches for order: %w", err)
	}

	for _, batch := range active {
		if batch.CurrentQuantity > 0 {
			if err := facilities.AdjustOccupancy(tx, batch.AreaID, -batch.CurrentQuantity); err != nil {
				return 0, err
			}
		}
		if err := tx.Model(&Batch{}).Where("id = ?", batch.ID).
			Updates(map[string]interface{}{
				"status":     BatchStatusArchived,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return 0, fmt.Errorf("failed to archive batch %s: %w", batch.ID, err)
		}
	}
	return len(active), nil
}
