package batches

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
	"verdant/cultivation-portal/cultivation-backend/internal/facilities"
	"verdant/cultivation-portal/cultivation-backend/pkg/workflows"
)

// Service is the quantity ledger: every operation that mutates batch/plant
// counts or area occupancy goes through it, one transaction per operation, so
// quantities and occupancy can never be observed out of sync.
type Service struct {
	db      *gorm.DB
	batchSM *workflows.StateMachine
	logger  *zap.Logger
}

// NewService creates the batch ledger service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		batchSM: workflows.NewBatchStateMachine(),
		logger:  logger,
	}
}

// GetBatch retrieves a batch by ID
func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return s.getBatch(s.db.WithContext(ctx), id)
}

// ListBatches lists batches, optionally filtered by order or area
func (s *Service) ListBatches(ctx context.Context, orderID, areaID *uuid.UUID) ([]*Batch, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}
	if areaID != nil {
		query = query.Where("area_id = ?", *areaID)
	}
	var result []*Batch
	if err := query.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return result, nil
}

// ListPlants lists plants in a batch
func (s *Service) ListPlants(ctx context.Context, batchID uuid.UUID) ([]*Plant, error) {
	var plants []*Plant
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("plant_tag").
		Find(&plants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	return plants, nil
}

// RecordLoss decrements a batch's current quantity, increments its lost
// quantity, recomputes the mortality rate and releases the same count from
// the owning area's occupancy. A loss exceeding the current quantity is an
// invariant violation, not a clamp.
func (s *Service) RecordLoss(ctx context.Context, batchID uuid.UUID, performedBy uuid.UUID, req *RecordLossRequest) (*Batch, error) {
	var result *Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.getActiveBatch(tx, batchID)
		if err != nil {
			return err
		}
		if req.Quantity > batch.CurrentQuantity {
			return fmt.Errorf("loss of %d exceeds current quantity %d: %w",
				req.Quantity, batch.CurrentQuantity, domain.ErrInvariantViolation)
		}

		batch.CurrentQuantity -= req.Quantity
		batch.LostQuantity += req.Quantity
		batch.MortalityRate = mortalityRate(batch.LostQuantity, batch.InitialQuantity)
		if batch.CurrentQuantity == 0 {
			batch.Status = BatchStatusLost
		}
		batch.UpdatedAt = time.Now()

		if err := s.saveQuantities(tx, batch); err != nil {
			return err
		}
		if err := facilities.AdjustOccupancy(tx, batch.AreaID, -req.Quantity); err != nil {
			return err
		}
		if batch.TracksIndividuals {
			if err := markPlantsLost(tx, batch.ID, req.Quantity); err != nil {
				return err
			}
		}

		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loss recorded",
		zap.String("batch_id", batchID.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int("mortality_rate", result.MortalityRate),
		zap.String("performed_by", performedBy.String()))
	return result, nil
}

// MoveBatch relocates a batch to another area. Source and destination
// occupancy and the batch's area reference change in one transaction.
func (s *Service) MoveBatch(ctx context.Context, batchID uuid.UUID, performedBy uuid.UUID, req *MoveBatchRequest) (*Batch, error) {
	var result *Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.getActiveBatch(tx, batchID)
		if err != nil {
			return err
		}

		if batch.AreaID != req.DestinationAreaID && batch.CurrentQuantity > 0 {
			if err := facilities.AdjustOccupancy(tx, batch.AreaID, -batch.CurrentQuantity); err != nil {
				return err
			}
			if err := facilities.AdjustOccupancy(tx, req.DestinationAreaID, batch.CurrentQuantity); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"area_id":    req.DestinationAreaID,
			"updated_at": time.Now(),
		}
		if req.NewPhaseName != nil {
			updates["current_phase"] = *req.NewPhaseName
		}
		if err := tx.Model(&Batch{}).Where("id = ?", batch.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to move batch: %w", err)
		}

		batch.AreaID = req.DestinationAreaID
		if req.NewPhaseName != nil {
			batch.CurrentPhase = *req.NewPhaseName
		}
		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Batch moved",
		zap.String("batch_id", batchID.String()),
		zap.String("destination_area_id", req.DestinationAreaID.String()),
		zap.String("performed_by", performedBy.String()))
	return result, nil
}

// TransferPlants moves units from one batch to another. Both batches must
// share the same cultivar. The destination's initial quantity grows with the
// transfer, since transferred units were never part of its original count.
// On a tracked source the plant rows follow: either the requested IDs, or
// when none are given the lowest-tagged active plants, so the plant count
// stays equal to the current quantity.
func (s *Service) TransferPlants(ctx context.Context, sourceBatchID uuid.UUID, performedBy uuid.UUID, req *TransferPlantsRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := s.getActiveBatch(tx, sourceBatchID)
		if err != nil {
			return err
		}
		dest, err := s.getActiveBatch(tx, req.DestinationBatchID)
		if err != nil {
			return err
		}

		if !sameCultivar(source, dest) {
			return fmt.Errorf("batches %s and %s: %w",
				source.BatchCode, dest.BatchCode, domain.ErrIncompatibleCultivar)
		}
		if req.Quantity > source.CurrentQuantity {
			return fmt.Errorf("transfer of %d exceeds current quantity %d: %w",
				req.Quantity, source.CurrentQuantity, domain.ErrInvariantViolation)
		}

		source.CurrentQuantity -= req.Quantity
		source.UpdatedAt = time.Now()
		if err := s.saveQuantities(tx, source); err != nil {
			return err
		}

		dest.CurrentQuantity += req.Quantity
		dest.InitialQuantity += req.Quantity
		dest.MortalityRate = mortalityRate(dest.LostQuantity, dest.InitialQuantity)
		dest.UpdatedAt = time.Now()
		if err := s.saveQuantities(tx, dest); err != nil {
			return err
		}

		if source.AreaID != dest.AreaID {
			if err := facilities.AdjustOccupancy(tx, source.AreaID, -req.Quantity); err != nil {
				return err
			}
			if err := facilities.AdjustOccupancy(tx, dest.AreaID, req.Quantity); err != nil {
				return err
			}
		}

		if source.TracksIndividuals {
			ids := req.PlantIDs
			if len(ids) == 0 {
				err := tx.Model(&Plant{}).
					Where("batch_id = ? AND status = ?", source.ID, PlantStatusActive).
					Order("plant_tag").
					Limit(req.Quantity).
					Pluck("id", &ids).Error
				if err != nil {
					return fmt.Errorf("failed to select plants for transfer: %w", err)
				}
			} else if len(ids) != req.Quantity {
				return fmt.Errorf("plant id count %d does not match quantity %d: %w",
					len(ids), req.Quantity, domain.ErrInvariantViolation)
			}
			result := tx.Model(&Plant{}).
				Where("id IN ? AND batch_id = ? AND status = ?", ids, source.ID, PlantStatusActive).
				Updates(map[string]interface{}{
					"batch_id":   dest.ID,
					"updated_at": time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to reassign plants: %w", result.Error)
			}
			if result.RowsAffected != int64(req.Quantity) {
				return fmt.Errorf("only %d of %d plants were active in source batch: %w",
					result.RowsAffected, req.Quantity, domain.ErrInvariantViolation)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Plants transferred",
		zap.String("source_batch_id", sourceBatchID.String()),
		zap.String("destination_batch_id", req.DestinationBatchID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("performed_by", performedBy.String()))
	return nil
}

// Clone creates clone units from a mother plant, incrementing its clone
// counter. Clones land in an existing same-cultivar batch or in a fresh batch
// in the given area; either way the destination area's occupancy grows by the
// clone count.
func (s *Service) Clone(ctx context.Context, performedBy uuid.UUID, req *CloneRequest) (*Batch, error) {
	var result *Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mother Plant
		err := tx.First(&mother, "id = ? AND status = ?", req.MotherPlantID, PlantStatusActive).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("mother plant %s: %w", req.MotherPlantID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to load mother plant: %w", err)
		}
		motherBatch, err := s.getBatch(tx, mother.BatchID)
		if err != nil {
			return err
		}

		if err := tx.Model(&Plant{}).Where("id = ?", mother.ID).
			Updates(map[string]interface{}{
				"clone_count": gorm.Expr("clone_count + ?", req.CloneCount),
				"updated_at":  time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to increment clone counter: %w", err)
		}

		var dest *Batch
		switch {
		case req.DestinationBatchID != nil:
			dest, err = s.getActiveBatch(tx, *req.DestinationBatchID)
			if err != nil {
				return err
			}
			if !sameCultivar(motherBatch, dest) {
				return fmt.Errorf("clone destination %s: %w", dest.BatchCode, domain.ErrIncompatibleCultivar)
			}
			dest.CurrentQuantity += req.CloneCount
			dest.InitialQuantity += req.CloneCount
			dest.MortalityRate = mortalityRate(dest.LostQuantity, dest.InitialQuantity)
			dest.UpdatedAt = time.Now()
			if err := s.saveQuantities(tx, dest); err != nil {
				return err
			}
			if err := facilities.AdjustOccupancy(tx, dest.AreaID, req.CloneCount); err != nil {
				return err
			}
			if dest.TracksIndividuals {
				if err := createClonePlants(tx, dest, mother.ID, req.CloneCount); err != nil {
					return err
				}
			}

		case req.DestinationAreaID != nil:
			dest, err = Materialize(tx, MaterializeParams{
				CropTypeID:        motherBatch.CropTypeID,
				CultivarID:        motherBatch.CultivarID,
				CultivarPrefix:    clonePrefix(motherBatch),
				AreaID:            *req.DestinationAreaID,
				PhaseName:         StageSeedling,
				Quantity:          req.CloneCount,
				TracksIndividuals: motherBatch.TracksIndividuals,
				CreatedBy:         performedBy,
				Date:              time.Now(),
			})
			if err != nil {
				return err
			}
			if dest.TracksIndividuals {
				if err := tx.Model(&Plant{}).Where("batch_id = ?", dest.ID).
					Update("mother_plant_id", mother.ID).Error; err != nil {
					return fmt.Errorf("failed to link clones to mother: %w", err)
				}
			}

		default:
			return fmt.Errorf("clone request needs a destination batch or area: %w", domain.ErrMissingTargetArea)
		}

		result = dest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Clones created",
		zap.String("mother_plant_id", req.MotherPlantID.String()),
		zap.Int("clone_count", req.CloneCount),
		zap.String("destination_batch_id", result.ID.String()),
		zap.String("performed_by", performedBy.String()))
	return result, nil
}

// HarvestBatch marks a batch harvested, records weight and quality, and
// releases the occupancy it held. Occupancy reflects active placement;
// harvested material no longer occupies a growing slot.
func (s *Service) HarvestBatch(ctx context.Context, batchID uuid.UUID, performedBy uuid.UUID, req *HarvestRequest) (*Batch, error) {
	var result *Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.getBatch(tx, batchID)
		if err != nil {
			return err
		}
		if !s.batchSM.CanTransition(batch.Status, BatchStatusHarvested) {
			return fmt.Errorf("batch %s is %s: %w", batch.BatchCode, batch.Status, domain.ErrInvalidStateTransition)
		}

		now := time.Now()
		quality := req.Quality
		updates := map[string]interface{}{
			"status":            BatchStatusHarvested,
			"harvest_weight_kg": req.WeightKg,
			"harvested_at":      now,
			"updated_at":        now,
		}
		if quality != "" {
			updates["harvest_quality"] = quality
		}
		if err := tx.Model(&Batch{}).Where("id = ? AND status = ?", batch.ID, BatchStatusActive).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to harvest batch: %w", err)
		}

		if batch.CurrentQuantity > 0 {
			if err := facilities.AdjustOccupancy(tx, batch.AreaID, -batch.CurrentQuantity); err != nil {
				return err
			}
		}
		if batch.TracksIndividuals {
			if err := tx.Model(&Plant{}).
				Where("batch_id = ? AND status = ?", batch.ID, PlantStatusActive).
				Updates(map[string]interface{}{
					"status":       PlantStatusHarvested,
					"harvested_at": now,
					"updated_at":   now,
				}).Error; err != nil {
				return fmt.Errorf("failed to harvest plants: %w", err)
			}
		}

		batch.Status = BatchStatusHarvested
		batch.HarvestWeightKg = &req.WeightKg
		batch.HarvestedAt = &now
		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Batch harvested",
		zap.String("batch_id", batchID.String()),
		zap.Float64("weight_kg", req.WeightKg),
		zap.String("performed_by", performedBy.String()))
	return result, nil
}

// HarvestPlant marks a single tracked plant harvested with its weight and
// quality, shrinking its batch's current quantity and the area occupancy by
// one.
func (s *Service) HarvestPlant(ctx context.Context, plantID uuid.UUID, performedBy uuid.UUID, req *HarvestRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plant Plant
		err := tx.First(&plant, "id = ? AND status = ?", plantID, PlantStatusActive).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("plant %s: %w", plantID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to load plant: %w", err)
		}
		batch, err := s.getActiveBatch(tx, plant.BatchID)
		if err != nil {
			return err
		}
		if batch.CurrentQuantity < 1 {
			return fmt.Errorf("batch %s has no active units: %w", batch.BatchCode, domain.ErrInvariantViolation)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":            PlantStatusHarvested,
			"harvest_weight_kg": req.WeightKg,
			"harvested_at":      now,
			"updated_at":        now,
		}
		if req.Quality != "" {
			updates["harvest_quality"] = req.Quality
		}
		if err := tx.Model(&Plant{}).Where("id = ?", plant.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to harvest plant: %w", err)
		}

		batch.CurrentQuantity--
		batch.UpdatedAt = now
		if err := s.saveQuantities(tx, batch); err != nil {
			return err
		}
		return facilities.AdjustOccupancy(tx, batch.AreaID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Plant harvested",
		zap.String("plant_id", plantID.String()),
		zap.Float64("weight_kg", req.WeightKg),
		zap.String("performed_by", performedBy.String()))
	return nil
}

// ----- internals -----

func (s *Service) getBatch(tx *gorm.DB, id uuid.UUID) (*Batch, error) {
	var batch Batch
	err := tx.First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

func (s *Service) getActiveBatch(tx *gorm.DB, id uuid.UUID) (*Batch, error) {
	batch, err := s.getBatch(tx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status != BatchStatusActive {
		return nil, fmt.Errorf("batch %s is %s: %w", batch.BatchCode, batch.Status, domain.ErrInvalidStateTransition)
	}
	return batch, nil
}

// saveQuantities writes quantity fields with an optimistic guard on the
// previous updated_at value having been loaded in this transaction.
func (s *Service) saveQuantities(tx *gorm.DB, batch *Batch) error {
	err := tx.Model(&Batch{}).Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"initial_quantity": batch.InitialQuantity,
			"current_quantity": batch.CurrentQuantity,
			"lost_quantity":    batch.LostQuantity,
			"mortality_rate":   batch.MortalityRate,
			"status":           batch.Status,
			"updated_at":       batch.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update batch quantities: %w", err)
	}
	return nil
}

func markPlantsLost(tx *gorm.DB, batchID uuid.UUID, quantity int) error {
	var ids []uuid.UUID
	err := tx.Model(&Plant{}).
		Where("batch_id = ? AND status = ?", batchID, PlantStatusActive).
		Order("plant_tag").
		Limit(quantity).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to select plants for loss: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&Plant{}).Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     PlantStatusLost,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to mark plants lost: %w", err)
	}
	return nil
}

func createClonePlants(tx *gorm.DB, dest *Batch, motherID uuid.UUID, count int) error {
	var existing int64
	if err := tx.Model(&Plant{}).Where("batch_id = ?", dest.ID).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count plants: %w", err)
	}
	plants := make([]Plant, count)
	for i := range plants {
		plants[i] = Plant{
			ID:            uuid.New(),
			BatchID:       dest.ID,
			PlantTag:      fmt.Sprintf("%s-P%04d", dest.BatchCode, int(existing)+i+1),
			Stage:         StageSeedling,
			HealthStatus:  "healthy",
			MotherPlantID: &motherID,
			Status:        PlantStatusActive,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
	}
	if err := tx.CreateInBatches(plants, 100).Error; err != nil {
		return fmt.Errorf("failed to create clone plants: %w", err)
	}
	return nil
}

func sameCultivar(a, b *Batch) bool {
	if a.CultivarID == nil || b.CultivarID == nil {
		return false
	}
	return *a.CultivarID == *b.CultivarID
}

func clonePrefix(motherBatch *Batch) string {
	// Reuse the cultivar prefix embedded in the mother's batch code.
	for i, r := range motherBatch.BatchCode {
		if r == '-' {
			return motherBatch.BatchCode[:i]
		}
	}
	return "CLN"
}

// mortalityRate computes round(100 * lost / initial)
func mortalityRate(lost, initial int) int {
	if initial <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(lost) / float64(initial)))
}
