package facilities

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

func setupAreaDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Area{}))
	return db
}

func occupancy(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var area Area
	require.NoError(t, db.First(&area, "id = ?", id).Error)
	return area.CurrentOccupancy
}

func TestAdjustOccupancyWithinCapacity(t *testing.T) {
	db := setupAreaDB(t)
	cap := 100
	area := &Area{ID: uuid.New(), Name: "Veg Room 1", AreaType: AreaTypeVegetative, MaxCapacity: &cap, IsActive: true}
	require.NoError(t, db.Create(area).Error)

	require.NoError(t, AdjustOccupancy(db, area.ID, 60))
	assert.Equal(t, 60, occupancy(t, db, area.ID))

	require.NoError(t, AdjustOccupancy(db, area.ID, 40))
	assert.Equal(t, 100, occupancy(t, db, area.ID))

	require.NoError(t, AdjustOccupancy(db, area.ID, -100))
	assert.Equal(t, 0, occupancy(t, db, area.ID))
}

func TestAdjustOccupancyExceedingCapacity(t *testing.T) {
	db := setupAreaDB(t)
	cap := 100
	area := &Area{ID: uuid.New(), Name: "Veg Room 1", AreaType: AreaTypeVegetative, MaxCapacity: &cap, CurrentOccupancy: 60, IsActive: true}
	require.NoError(t, db.Create(area).Error)

	err := AdjustOccupancy(db, area.ID, 41)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 60, occupancy(t, db, area.ID))

	// an exact fit is allowed
	require.NoError(t, AdjustOccupancy(db, area.ID, 40))
	assert.Equal(t, 100, occupancy(t, db, area.ID))
}

func TestAdjustOccupancyBelowZero(t *testing.T) {
	db := setupAreaDB(t)
	area := &Area{ID: uuid.New(), Name: "Veg Room 1", AreaType: AreaTypeVegetative, CurrentOccupancy: 10, IsActive: true}
	require.NoError(t, db.Create(area).Error)

	err := AdjustOccupancy(db, area.ID, -11)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, 10, occupancy(t, db, area.ID))
}

func TestAdjustOccupancyUnboundedArea(t *testing.T) {
	db := setupAreaDB(t)
	area := &Area{ID: uuid.New(), Name: "Storage", AreaType: AreaTypeStorage, IsActive: true}
	require.NoError(t, db.Create(area).Error)

	require.NoError(t, AdjustOccupancy(db, area.ID, 100000))
	assert.Equal(t, 100000, occupancy(t, db, area.ID))
}

func TestAdjustOccupancyUnknownArea(t *testing.T) {
	db := setupAreaDB(t)
	err := AdjustOccupancy(db, uuid.New(), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustOccupancyZeroDelta(t *testing.T) {
	db := setupAreaDB(t)
	// zero delta never touches the database, even for unknown areas
	assert.NoError(t, AdjustOccupancy(db, uuid.New(), 0))
}
