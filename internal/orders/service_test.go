package orders

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/batches"
	"verdant/cultivation-portal/cultivation-backend/internal/catalog"
	"verdant/cultivation-portal/cultivation-backend/internal/domain"
	"verdant/cultivation-portal/cultivation-backend/internal/facilities"
	"verdant/cultivation-portal/cultivation-backend/internal/scheduling"
	"verdant/cultivation-portal/cultivation-backend/internal/templates"
)

type orderFixture struct {
	db       *gorm.DB
	service  *Service
	template *templates.ProductionTemplate
	cultivar *catalog.Cultivar
	area     *facilities.Area
	actor    uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	// A file-backed database: the service intentionally reads the cultivar on
	// the catalog service's own connection, and a ":memory:" DSN gives every
	// pooled connection its own empty database.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalog.CropType{}, &catalog.Cultivar{},
		&facilities.Area{},
		&templates.ProductionTemplate{}, &templates.TemplatePhase{}, &templates.TemplateActivity{},
		&batches.Batch{}, &batches.Plant{}, &batches.BatchCodeCounter{},
		&ProductionOrder{}, &OrderPhase{}, &ScheduledActivity{}, &OrderCounter{},
	))

	crop := &catalog.CropType{ID: uuid.New(), Name: "Leafy Greens", IsActive: true}
	require.NoError(t, db.Create(crop).Error)
	cultivar := &catalog.Cultivar{
		ID:         uuid.New(),
		CropTypeID: crop.ID,
		Name:       "Butterhead Select",
		CodePrefix: "BSL",
		IsActive:   true,
	}
	require.NoError(t, db.Create(cultivar).Error)

	area := &facilities.Area{
		ID:       uuid.New(),
		Name:     "Veg Room 1",
		AreaType: facilities.AreaTypeVegetative,
		IsActive: true,
	}
	require.NoError(t, db.Create(area).Error)

	wateringRule, err := scheduling.EncodeRule(scheduling.DailyRange{StartDay: 1, EndDay: 5})
	require.NoError(t, err)
	inspectionRule, err := scheduling.EncodeRule(scheduling.OneTime{PhaseDay: 3})
	require.NoError(t, err)

	template := &templates.ProductionTemplate{
		ID:                uuid.New(),
		Name:              "Lettuce Standard Run",
		CropTypeID:        crop.ID,
		DefaultCultivarID: &cultivar.ID,
		DefaultBatchSize:  50,
		Status:            templates.StatusActive,
		CreatedBy:         uuid.New(),
		Phases: []templates.TemplatePhase{
			{
				ID:             uuid.New(),
				Name:           "Propagation",
				PhaseOrder:     1,
				DurationDays:   7,
				TargetAreaType: facilities.AreaTypePropagation,
				Activities: []templates.TemplateActivity{
					{
						ID:           uuid.New(),
						Name:         "Morning watering",
						ActivityType: templates.ActivityWatering,
						TimingRule:   datatypes.JSON(wateringRule),
					},
				},
			},
			{
				ID:             uuid.New(),
				Name:           "Vegetative",
				PhaseOrder:     2,
				DurationDays:   14,
				TargetAreaType: facilities.AreaTypeVegetative,
				Activities: []templates.TemplateActivity{
					{
						ID:           uuid.New(),
						Name:         "Growth inspection",
						ActivityType: templates.ActivityInspection,
						TimingRule:   datatypes.JSON(inspectionRule),
					},
				},
			},
			{
				ID:           uuid.New(),
				Name:         "Harvest",
				PhaseOrder:   3,
				DurationDays: 2,
			},
		},
	}
	require.NoError(t, db.Create(template).Error)

	repo := templates.NewRepository(db)
	catalogSvc := catalog.NewService(catalog.NewRepository(db), zap.NewNop())
	service := NewService(db, repo, catalogSvc, nil, zap.NewNop(), "MAIN", 25)

	return &orderFixture{
		db:       db,
		service:  service,
		template: template,
		cultivar: cultivar,
		area:     area,
		actor:    uuid.New(),
	}
}

func (f *orderFixture) createOrder(t *testing.T, quantity int) *ProductionOrder {
	t.Helper()
	order, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		RequestedQuantity: quantity,
		DefaultAreaID:     &f.area.ID,
		StartDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return order
}

func (f *orderFixture) areaOccupancy(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var area facilities.Area
	require.NoError(t, f.db.First(&area, "id = ?", id).Error)
	return area.CurrentOccupancy
}

func TestCreateOrderInstantiatesPhasesAndActivities(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 120)

	assert.Equal(t, "ORD-2026-0001", order.OrderNumber)
	assert.Equal(t, OrderStatusPlanning, order.Status)
	assert.Equal(t, 50, order.BatchSize)
	require.Equal(t, f.cultivar.ID, *order.CultivarID)

	require.Len(t, order.Phases, 3)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, order.Phases[0].PlannedStartDate)
	assert.Equal(t, start.AddDate(0, 0, 7), order.Phases[0].PlannedEndDate)
	// each phase starts where the previous one ends
	assert.Equal(t, order.Phases[0].PlannedEndDate, order.Phases[1].PlannedStartDate)
	assert.Equal(t, order.Phases[1].PlannedEndDate, order.Phases[2].PlannedStartDate)
	assert.Equal(t, start.AddDate(0, 0, 7+14+2), order.PlannedEndDate)
	assert.Equal(t, order.PlannedEndDate, order.Phases[2].PlannedEndDate)

	activities, err := f.service.ListActivities(context.Background(), order.ID, nil)
	require.NoError(t, err)
	require.Len(t, activities, 6)

	var waterings, inspections []*ScheduledActivity
	for _, a := range activities {
		switch a.ActivityType {
		case templates.ActivityWatering:
			waterings = append(waterings, a)
		case templates.ActivityInspection:
			inspections = append(inspections, a)
		}
	}
	require.Len(t, waterings, 5)
	sort.Slice(waterings, func(i, j int) bool { return waterings[i].ScheduledDate.Before(waterings[j].ScheduledDate) })
	for i, w := range waterings {
		assert.Equal(t, start.AddDate(0, 0, i), w.ScheduledDate)
		assert.True(t, w.IsRecurring)
	}
	require.Len(t, inspections, 1)
	assert.Equal(t, order.Phases[1].PlannedStartDate.AddDate(0, 0, 2), inspections[0].ScheduledDate)
	assert.False(t, inspections[0].IsRecurring)
}

func TestCreateOrderSequencesNumbers(t *testing.T) {
	f := newOrderFixture(t)
	first := f.createOrder(t, 10)
	second := f.createOrder(t, 10)

	assert.Equal(t, "ORD-2026-0001", first.OrderNumber)
	assert.Equal(t, "ORD-2026-0002", second.OrderNumber)
}

func TestCreateOrderRejectsIncompatibleCultivar(t *testing.T) {
	f := newOrderFixture(t)

	otherCrop := &catalog.CropType{ID: uuid.New(), Name: "Herbs", IsActive: true}
	require.NoError(t, f.db.Create(otherCrop).Error)
	stranger := &catalog.Cultivar{
		ID:         uuid.New(),
		CropTypeID: otherCrop.ID,
		Name:       "Genovese Basil",
		CodePrefix: "GNB",
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		CultivarID:        &stranger.ID,
		RequestedQuantity: 10,
		StartDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrIncompatibleCultivar)

	// nothing was created and no order number was burned
	next, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		RequestedQuantity: 10,
		StartDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", next.OrderNumber)
}

func TestCreateOrderRejectsArchivedTemplate(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&templates.ProductionTemplate{}).
		Where("id = ?", f.template.ID).
		Update("status", templates.StatusArchived).Error)

	_, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		RequestedQuantity: 10,
		StartDate:         time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCreateOrderFallsBackToConfiguredBatchSize(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&templates.ProductionTemplate{}).
		Where("id = ?", f.template.ID).
		Update("default_batch_size", 0).Error)

	order := f.createOrder(t, 60)
	assert.Equal(t, 25, order.BatchSize)

	// an explicit request size still wins over both defaults
	size := 30
	explicit, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		RequestedQuantity: 60,
		BatchSize:         &size,
		DefaultAreaID:     &f.area.ID,
		StartDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, explicit.BatchSize)
}

func TestActivatePartitionsIntoBatches(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 120)

	activated, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusActive, activated.Status)
	require.NotNil(t, activated.ActualStartDate)
	require.NotNil(t, activated.ApprovedBy)
	assert.Equal(t, f.actor, *activated.ApprovedBy)
	require.NotNil(t, activated.CurrentPhaseID)
	assert.Equal(t, activated.Phases[0].ID, *activated.CurrentPhaseID)
	assert.Equal(t, PhaseStatusInProgress, activated.Phases[0].Status)

	var created []batches.Batch
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Order("batch_code").Find(&created).Error)
	require.Len(t, created, 3)
	sizes := []int{created[0].InitialQuantity, created[1].InitialQuantity, created[2].InitialQuantity}
	assert.Equal(t, []int{50, 50, 20}, sizes)
	for _, b := range created {
		assert.Equal(t, batches.BatchStatusActive, b.Status)
		assert.Equal(t, "Propagation", b.CurrentPhase)
		assert.Contains(t, b.BatchCode, "BSL-")
	}

	assert.Equal(t, 120, f.areaOccupancy(t, f.area.ID))

	// pending activities are bound to the first batch
	activities, err := f.service.ListActivities(context.Background(), order.ID, nil)
	require.NoError(t, err)
	for _, a := range activities {
		require.NotNil(t, a.BatchID)
		assert.Equal(t, created[0].ID, *a.BatchID)
	}
}

func TestActivateTwiceFailsWithoutSideEffects(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 100)

	_, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	require.NoError(t, err)

	_, err = f.service.Activate(context.Background(), order.ID, f.actor, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	var count int64
	require.NoError(t, f.db.Model(&batches.Batch{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 100, f.areaOccupancy(t, f.area.ID))
}

func TestActivateWithoutAreaFails(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.service.Create(context.Background(), f.actor, &CreateOrderRequest{
		TemplateID:        f.template.ID,
		RequestedQuantity: 30,
		StartDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = f.service.Activate(context.Background(), order.ID, f.actor, nil)
	assert.ErrorIs(t, err, domain.ErrMissingTargetArea)

	// the rolled-back activation left the order plannable
	reloaded, err := f.service.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPlanning, reloaded.Status)

	_, err = f.service.Activate(context.Background(), order.ID, f.actor, &ActivateOrderRequest{TargetAreaID: &f.area.ID})
	require.NoError(t, err)
}

func TestActivateRespectsAreaCapacity(t *testing.T) {
	f := newOrderFixture(t)
	cap := 80
	require.NoError(t, f.db.Model(&facilities.Area{}).
		Where("id = ?", f.area.ID).
		Update("max_capacity", cap).Error)
	order := f.createOrder(t, 120)

	_, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// full rollback: no batches, no occupancy, order still planning
	var count int64
	require.NoError(t, f.db.Model(&batches.Batch{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 0, f.areaOccupancy(t, f.area.ID))

	reloaded, err := f.service.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPlanning, reloaded.Status)
}

func TestPhaseProgressionToCompletion(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 50)
	order, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, order.CompletionPct)

	// completing a pending phase out of order is rejected
	_, err = f.service.CompletePhase(context.Background(), order.ID, order.Phases[1].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidPhaseState)

	order, err = f.service.CompletePhase(context.Background(), order.ID, order.Phases[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 33, order.CompletionPct)
	assert.Equal(t, PhaseStatusCompleted, order.Phases[0].Status)
	assert.Equal(t, PhaseStatusInProgress, order.Phases[1].Status)
	assert.Equal(t, order.Phases[1].ID, *order.CurrentPhaseID)

	order, err = f.service.CompletePhase(context.Background(), order.ID, order.Phases[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 67, order.CompletionPct)

	order, err = f.service.CompletePhase(context.Background(), order.ID, order.Phases[2].ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, order.Status)
	assert.Equal(t, 100, order.CompletionPct)
	assert.Nil(t, order.CurrentPhaseID)
	assert.NotNil(t, order.ActualCompletionDate)

	// a completed phase cannot be completed again
	_, err = f.service.CompletePhase(context.Background(), order.ID, order.Phases[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCancelArchivesBatchesAndActivities(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 60)
	_, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	require.NoError(t, err)
	require.Equal(t, 60, f.areaOccupancy(t, f.area.ID))

	cancelled, err := f.service.Cancel(context.Background(), order.ID, f.actor, &CancelOrderRequest{
		Reason:         "customer withdrew",
		ArchiveBatches: true,
	})
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "customer withdrew", *cancelled.CancelReason)
	assert.Equal(t, 0, f.areaOccupancy(t, f.area.ID))

	var archived int64
	require.NoError(t, f.db.Model(&batches.Batch{}).
		Where("order_id = ? AND status = ?", order.ID, batches.BatchStatusArchived).
		Count(&archived).Error)
	assert.EqualValues(t, 2, archived)

	var pending int64
	require.NoError(t, f.db.Model(&ScheduledActivity{}).
		Where("order_id = ? AND status = ?", order.ID, ActivityStatusPending).
		Count(&pending).Error)
	assert.EqualValues(t, 0, pending)

	// a cancelled order cannot be cancelled again
	_, err = f.service.Cancel(context.Background(), order.ID, f.actor, &CancelOrderRequest{Reason: "again"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCancelCompletedOrderRejected(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 50)
	order, err := f.service.Activate(context.Background(), order.ID, f.actor, nil)
	require.NoError(t, err)
	for _, phase := range order.Phases {
		order, err = f.service.CompletePhase(context.Background(), order.ID, phase.ID)
		require.NoError(t, err)
	}
	require.Equal(t, OrderStatusCompleted, order.Status)

	_, err = f.service.Cancel(context.Background(), order.ID, f.actor, &CancelOrderRequest{Reason: "too late"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCompleteActivity(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 50)

	activities, err := f.service.ListActivities(context.Background(), order.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	target := activities[0]

	notes := "done early"
	completed, err := f.service.CompleteActivity(context.Background(), target.ID, f.actor, &CompleteActivityRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, ActivityStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, f.actor, *completed.CompletedBy)
	assert.NotNil(t, completed.CompletedAt)

	_, err = f.service.CompleteActivity(context.Background(), target.ID, f.actor, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestFlagOverdueActivities(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t, 50)

	// the order starts 2026-03-02; weeks later the five waterings and the
	// inspection are still pending and past due
	asOf := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	flagged, err := f.service.FlagOverdueActivities(context.Background(), asOf, 100)
	require.NoError(t, err)
	assert.Equal(t, 6, flagged)

	// second scan finds nothing new
	flagged, err = f.service.FlagOverdueActivities(context.Background(), asOf, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)

	// overdue activities remain completable
	overdue := ActivityStatusOverdue
	list, err := f.service.ListActivities(context.Background(), order.ID, &overdue)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	_, err = f.service.CompleteActivity(context.Background(), list[0].ID, f.actor, nil)
	require.NoError(t, err)
}

func TestPartitionQuantity(t *testing.T) {
	assert.Equal(t, []int{50, 50, 20}, partitionQuantity(120, 50))
	assert.Equal(t, []int{50}, partitionQuantity(50, 50))
	assert.Equal(t, []int{30}, partitionQuantity(30, 50))
	assert.Equal(t, []int{50, 50}, partitionQuantity(100, 50))
	assert.Equal(t, []int{1}, partitionQuantity(1, 1))
}
