package batches

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
	"verdant/cultivation-portal/cultivation-backend/internal/facilities"
)

func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&facilities.Area{}, &Batch{}, &Plant{}, &BatchCodeCounter{}))
	return db
}

func createArea(t *testing.T, db *gorm.DB, name string, maxCapacity *int) *facilities.Area {
	t.Helper()
	area := &facilities.Area{
		ID:       uuid.New(),
		Name:     name,
		AreaType: facilities.AreaTypeVegetative,
		MaxCapacity: maxCapacity,
		IsActive: true,
	}
	require.NoError(t, db.Create(area).Error)
	return area
}

func createBatch(t *testing.T, db *gorm.DB, area *facilities.Area, quantity int, tracked bool) *Batch {
	t.Helper()
	var batch *Batch
	err := db.Transaction(func(tx *gorm.DB) error {
		cultivarID := uuid.New()
		var err error
		batch, err = Materialize(tx, MaterializeParams{
			CropTypeID:        uuid.New(),
			CultivarID:        &cultivarID,
			CultivarPrefix:    "BSL",
			AreaID:            area.ID,
			PhaseName:         "Vegetative",
			Quantity:          quantity,
			TracksIndividuals: tracked,
			CreatedBy:         uuid.New(),
			Date:              time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		})
		return err
	})
	require.NoError(t, err)
	return batch
}

func areaOccupancy(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var area facilities.Area
	require.NoError(t, db.First(&area, "id = ?", id).Error)
	return area.CurrentOccupancy
}

func TestRecordLoss(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Veg Room 1", nil)
	batch := createBatch(t, db, area, 100, false)
	assert.Equal(t, 100, areaOccupancy(t, db, area.ID))

	updated, err := svc.RecordLoss(context.Background(), batch.ID, uuid.New(), &RecordLossRequest{Quantity: 10, Reason: "damping off"})
	require.NoError(t, err)

	assert.Equal(t, 90, updated.CurrentQuantity)
	assert.Equal(t, 10, updated.LostQuantity)
	assert.Equal(t, 10, updated.MortalityRate)
	assert.Equal(t, BatchStatusActive, updated.Status)
	assert.Equal(t, 90, areaOccupancy(t, db, area.ID))
}

func TestRecordLossExceedingCurrentQuantity(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Veg Room 1", nil)
	batch := createBatch(t, db, area, 20, false)

	_, err := svc.RecordLoss(context.Background(), batch.ID, uuid.New(), &RecordLossRequest{Quantity: 21})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	// nothing changed
	reloaded, err := svc.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.CurrentQuantity)
	assert.Equal(t, 20, areaOccupancy(t, db, area.ID))
}

func TestRecordLossTotalMarksBatchLost(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Veg Room 1", nil)
	batch := createBatch(t, db, area, 15, true)

	updated, err := svc.RecordLoss(context.Background(), batch.ID, uuid.New(), &RecordLossRequest{Quantity: 15})
	require.NoError(t, err)

	assert.Equal(t, BatchStatusLost, updated.Status)
	assert.Equal(t, 0, updated.CurrentQuantity)
	assert.Equal(t, 100, updated.MortalityRate)
	assert.Equal(t, 0, areaOccupancy(t, db, area.ID))

	var lostPlants int64
	require.NoError(t, db.Model(&Plant{}).Where("batch_id = ? AND status = ?", batch.ID, PlantStatusLost).Count(&lostPlants).Error)
	assert.EqualValues(t, 15, lostPlants)
}

func TestMoveBatchSwapsOccupancy(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	src := createArea(t, db, "Veg Room 1", nil)
	dst := createArea(t, db, "Flower Room 1", nil)
	batch := createBatch(t, db, src, 40, false)

	phase := "Flowering"
	moved, err := svc.MoveBatch(context.Background(), batch.ID, uuid.New(), &MoveBatchRequest{
		DestinationAreaID: dst.ID,
		NewPhaseName:      &phase,
	})
	require.NoError(t, err)

	assert.Equal(t, dst.ID, moved.AreaID)
	assert.Equal(t, "Flowering", moved.CurrentPhase)
	assert.Equal(t, 0, areaOccupancy(t, db, src.ID))
	assert.Equal(t, 40, areaOccupancy(t, db, dst.ID))

	// moving back restores the original occupancy exactly
	_, err = svc.MoveBatch(context.Background(), batch.ID, uuid.New(), &MoveBatchRequest{DestinationAreaID: src.ID})
	require.NoError(t, err)
	assert.Equal(t, 40, areaOccupancy(t, db, src.ID))
	assert.Equal(t, 0, areaOccupancy(t, db, dst.ID))
}

func TestMoveBatchRespectsDestinationCapacity(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	src := createArea(t, db, "Veg Room 1", nil)
	cap := 30
	dst := createArea(t, db, "Small Room", &cap)
	batch := createBatch(t, db, src, 40, false)

	_, err := svc.MoveBatch(context.Background(), batch.ID, uuid.New(), &MoveBatchRequest{DestinationAreaID: dst.ID})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// rollback left both areas untouched
	assert.Equal(t, 40, areaOccupancy(t, db, src.ID))
	assert.Equal(t, 0, areaOccupancy(t, db, dst.ID))
}

func TestTransferPlantsRejectsCultivarMismatch(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Veg Room 1", nil)
	src := createBatch(t, db, area, 30, false)
	dst := createBatch(t, db, area, 30, false)

	err := svc.TransferPlants(context.Background(), src.ID, uuid.New(), &TransferPlantsRequest{
		DestinationBatchID: dst.ID,
		Quantity:           5,
	})
	assert.ErrorIs(t, err, domain.ErrIncompatibleCultivar)
}

func TestTransferPlantsBetweenAreas(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	srcArea := createArea(t, db, "Veg Room 1", nil)
	dstArea := createArea(t, db, "Veg Room 2", nil)
	src := createBatch(t, db, srcArea, 30, false)
	dst := createBatch(t, db, dstArea, 20, false)

	// give both batches the same cultivar
	require.NoError(t, db.Model(&Batch{}).Where("id = ?", dst.ID).Update("cultivar_id", *src.CultivarID).Error)

	err := svc.TransferPlants(context.Background(), src.ID, uuid.New(), &TransferPlantsRequest{
		DestinationBatchID: dst.ID,
		Quantity:           10,
	})
	require.NoError(t, err)

	srcReloaded, err := svc.GetBatch(context.Background(), src.ID)
	require.NoError(t, err)
	dstReloaded, err := svc.GetBatch(context.Background(), dst.ID)
	require.NoError(t, err)

	assert.Equal(t, 20, srcReloaded.CurrentQuantity)
	assert.Equal(t, 30, dstReloaded.CurrentQuantity)
	assert.Equal(t, 30, dstReloaded.InitialQuantity)
	assert.Equal(t, 20, areaOccupancy(t, db, srcArea.ID))
	assert.Equal(t, 30, areaOccupancy(t, db, dstArea.ID))
}

func TestTransferPlantsMovesTrackedRows(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Veg Room 1", nil)
	src := createBatch(t, db, area, 10, true)
	dst := createBatch(t, db, area, 6, true)
	require.NoError(t, db.Model(&Batch{}).Where("id = ?", dst.ID).Update("cultivar_id", *src.CultivarID).Error)

	// no explicit plant IDs: the ledger picks the units itself
	err := svc.TransferPlants(context.Background(), src.ID, uuid.New(), &TransferPlantsRequest{
		DestinationBatchID: dst.ID,
		Quantity:           4,
	})
	require.NoError(t, err)

	srcReloaded, err := svc.GetBatch(context.Background(), src.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, srcReloaded.CurrentQuantity)

	// plant rows followed the quantity, keeping counts in step
	var srcPlants, dstPlants int64
	require.NoError(t, db.Model(&Plant{}).Where("batch_id = ? AND status = ?", src.ID, PlantStatusActive).Count(&srcPlants).Error)
	require.NoError(t, db.Model(&Plant{}).Where("batch_id = ? AND status = ?", dst.ID, PlantStatusActive).Count(&dstPlants).Error)
	assert.EqualValues(t, 6, srcPlants)
	assert.EqualValues(t, 10, dstPlants)

	// the lowest-tagged plants moved
	var moved []Plant
	require.NoError(t, db.Where("batch_id = ? AND plant_tag LIKE ?", dst.ID, src.BatchCode+"%").
		Order("plant_tag").Find(&moved).Error)
	require.Len(t, moved, 4)
	assert.Equal(t, src.BatchCode+"-P0001", moved[0].PlantTag)
	assert.Equal(t, src.BatchCode+"-P0004", moved[3].PlantTag)
}

func TestCloneIntoNewBatch(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	motherArea := createArea(t, db, "Mother Room", nil)
	cloneArea := createArea(t, db, "Propagation Room", nil)
	motherBatch := createBatch(t, db, motherArea, 3, true)

	var mother Plant
	require.NoError(t, db.First(&mother, "batch_id = ?", motherBatch.ID).Error)

	cloneBatch, err := svc.Clone(context.Background(), uuid.New(), &CloneRequest{
		MotherPlantID:     mother.ID,
		CloneCount:        12,
		DestinationAreaID: &cloneArea.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, cloneBatch.InitialQuantity)
	assert.Equal(t, 12, cloneBatch.CurrentQuantity)
	assert.Equal(t, motherBatch.CultivarID, cloneBatch.CultivarID)
	assert.Equal(t, 12, areaOccupancy(t, db, cloneArea.ID))
	assert.Equal(t, 3, areaOccupancy(t, db, motherArea.ID))

	var reloadedMother Plant
	require.NoError(t, db.First(&reloadedMother, "id = ?", mother.ID).Error)
	assert.Equal(t, 12, reloadedMother.CloneCount)

	var linked int64
	require.NoError(t, db.Model(&Plant{}).Where("batch_id = ? AND mother_plant_id = ?", cloneBatch.ID, mother.ID).Count(&linked).Error)
	assert.EqualValues(t, 12, linked)
}

func TestCloneIntoExistingBatch(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Propagation Room", nil)
	motherBatch := createBatch(t, db, area, 2, true)
	dest := createBatch(t, db, area, 10, false)
	require.NoError(t, db.Model(&Batch{}).Where("id = ?", dest.ID).Update("cultivar_id", *motherBatch.CultivarID).Error)

	var mother Plant
	require.NoError(t, db.First(&mother, "batch_id = ?", motherBatch.ID).Error)

	updated, err := svc.Clone(context.Background(), uuid.New(), &CloneRequest{
		MotherPlantID:      mother.ID,
		CloneCount:         5,
		DestinationBatchID: &dest.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, updated.CurrentQuantity)
	assert.Equal(t, 15, updated.InitialQuantity)
	assert.Equal(t, 2+10+5, areaOccupancy(t, db, area.ID))
}

func TestHarvestBatchReleasesOccupancy(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Flower Room 1", nil)
	batch := createBatch(t, db, area, 25, true)

	harvested, err := svc.HarvestBatch(context.Background(), batch.ID, uuid.New(), &HarvestRequest{WeightKg: 12.5, Quality: "A"})
	require.NoError(t, err)

	assert.Equal(t, BatchStatusHarvested, harvested.Status)
	require.NotNil(t, harvested.HarvestWeightKg)
	assert.Equal(t, 12.5, *harvested.HarvestWeightKg)
	assert.NotNil(t, harvested.HarvestedAt)
	assert.Equal(t, 0, areaOccupancy(t, db, area.ID))

	var activePlants int64
	require.NoError(t, db.Model(&Plant{}).Where("batch_id = ? AND status = ?", batch.ID, PlantStatusActive).Count(&activePlants).Error)
	assert.EqualValues(t, 0, activePlants)

	// a harvested batch cannot be harvested again
	_, err = svc.HarvestBatch(context.Background(), batch.ID, uuid.New(), &HarvestRequest{WeightKg: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestHarvestPlant(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewService(db, zap.NewNop())
	area := createArea(t, db, "Flower Room 1", nil)
	batch := createBatch(t, db, area, 5, true)

	var plant Plant
	require.NoError(t, db.First(&plant, "batch_id = ?", batch.ID).Error)

	err := svc.HarvestPlant(context.Background(), plant.ID, uuid.New(), &HarvestRequest{WeightKg: 0.4, Quality: "B"})
	require.NoError(t, err)

	reloaded, err := svc.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.CurrentQuantity)
	assert.Equal(t, 4, areaOccupancy(t, db, area.ID))

	// weight and quality landed on the plant record
	var harvested Plant
	require.NoError(t, db.First(&harvested, "id = ?", plant.ID).Error)
	assert.Equal(t, PlantStatusHarvested, harvested.Status)
	require.NotNil(t, harvested.HarvestWeightKg)
	assert.Equal(t, 0.4, *harvested.HarvestWeightKg)
	require.NotNil(t, harvested.HarvestQuality)
	assert.Equal(t, "B", *harvested.HarvestQuality)
	assert.NotNil(t, harvested.HarvestedAt)
}

func TestNextBatchCodeSequencesPerDay(t *testing.T) {
	db := setupLedgerDB(t)
	area := createArea(t, db, "Veg Room 1", nil)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	first := createBatch(t, db, area, 1, false)
	assert.Equal(t, "BSL-20260302-01", first.BatchCode)
	second := createBatch(t, db, area, 1, false)
	assert.Equal(t, "BSL-20260302-02", second.BatchCode)

	var code string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = NextBatchCode(tx, "BSL", day.AddDate(0, 0, 1))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "BSL-20260303-01", code)
}
