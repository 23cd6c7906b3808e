package templates

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

func newTemplateService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ProductionTemplate{}, &TemplatePhase{}, &TemplateActivity{}))
	return NewService(NewRepository(db), zap.NewNop()), db
}

func validRequest() *CreateTemplateRequest {
	return &CreateTemplateRequest{
		Name:             "Lettuce Standard Run",
		CropTypeID:       uuid.New(),
		DefaultBatchSize: 50,
		Phases: []CreatePhaseRequest{
			{
				Name:         "Propagation",
				PhaseOrder:   1,
				DurationDays: 7,
				Activities: []CreateActivityRequest{
					{
						Name:         "Morning watering",
						ActivityType: ActivityWatering,
						TimingRule: map[string]any{
							"type":      "recurring",
							"frequency": "daily_range",
							"start_day": 1,
							"end_day":   7,
						},
					},
					{
						Name:         "Germination check",
						ActivityType: ActivityInspection,
						TimingRule: map[string]any{
							"type":      "one_time",
							"phase_day": 3,
						},
					},
				},
			},
			{
				Name:         "Vegetative",
				PhaseOrder:   2,
				DurationDays: 14,
			},
		},
	}
}

func TestCreateTemplate(t *testing.T) {
	svc, _ := newTemplateService(t)

	created, err := svc.CreateTemplate(context.Background(), uuid.New(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, created.Status)

	loaded, err := svc.GetTemplate(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Phases, 2)
	assert.Equal(t, "Propagation", loaded.Phases[0].Name)
	require.Len(t, loaded.Phases[0].Activities, 2)

	var watering, inspection *TemplateActivity
	for i := range loaded.Phases[0].Activities {
		a := &loaded.Phases[0].Activities[i]
		switch a.ActivityType {
		case ActivityWatering:
			watering = a
		case ActivityInspection:
			inspection = a
		}
	}
	require.NotNil(t, watering)
	require.NotNil(t, inspection)
	assert.True(t, watering.IsRecurring)
	assert.False(t, inspection.IsRecurring)
}

func TestCreateTemplateRejectsNonContiguousPhases(t *testing.T) {
	svc, _ := newTemplateService(t)

	req := validRequest()
	req.Phases[1].PhaseOrder = 3
	_, err := svc.CreateTemplate(context.Background(), uuid.New(), req)
	assert.ErrorContains(t, err, "contiguous")

	req = validRequest()
	req.Phases[1].PhaseOrder = 1
	_, err = svc.CreateTemplate(context.Background(), uuid.New(), req)
	assert.ErrorContains(t, err, "duplicate")
}

func TestCreateTemplateRejectsUnknownTimingRule(t *testing.T) {
	svc, _ := newTemplateService(t)

	req := validRequest()
	req.Phases[0].Activities[0].TimingRule = map[string]any{
		"type": "lunar_cycle",
	}
	_, err := svc.CreateTemplate(context.Background(), uuid.New(), req)
	assert.Error(t, err)

	req = validRequest()
	req.Phases[0].Activities[0].TimingRule = map[string]any{
		"type":      "recurring",
		"frequency": "fortnightly",
	}
	_, err = svc.CreateTemplate(context.Background(), uuid.New(), req)
	assert.Error(t, err)
}

func TestArchiveTemplate(t *testing.T) {
	svc, _ := newTemplateService(t)
	created, err := svc.CreateTemplate(context.Background(), uuid.New(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.ArchiveTemplate(context.Background(), created.ID))

	// archived templates disappear from the default listing but stay loadable
	listed, err := svc.ListTemplates(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, listed)

	all, err := svc.ListTemplates(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusArchived, all[0].Status)

	err = svc.ArchiveTemplate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
