package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verdant/cultivation-portal/cultivation-backend/internal/scheduling"
)

// Service provides template catalog operations
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a template service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateTemplate validates and persists a production template. Phase orders
// must be unique and contiguous starting at 1; every timing rule must decode
// to a known variant.
func (s *Service) CreateTemplate(ctx context.Context, createdBy uuid.UUID, req *CreateTemplateRequest) (*ProductionTemplate, error) {
	if err := validatePhaseOrders(req.Phases); err != nil {
		return nil, err
	}

	template := &ProductionTemplate{
		ID:                uuid.New(),
		Name:              req.Name,
		Description:       req.Description,
		CropTypeID:        req.CropTypeID,
		DefaultCultivarID: req.DefaultCultivarID,
		DefaultBatchSize:  req.DefaultBatchSize,
		TracksIndividuals: req.TracksIndividuals,
		Status:            StatusActive,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	for _, phaseReq := range req.Phases {
		phase := TemplatePhase{
			ID:             uuid.New(),
			TemplateID:     template.ID,
			Name:           phaseReq.Name,
			PhaseOrder:     phaseReq.PhaseOrder,
			DurationDays:   phaseReq.DurationDays,
			TargetAreaType: phaseReq.TargetAreaType,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		for _, actReq := range phaseReq.Activities {
			activity, err := buildActivity(phase.ID, &actReq)
			if err != nil {
				return nil, fmt.Errorf("phase %q activity %q: %w", phaseReq.Name, actReq.Name, err)
			}
			phase.Activities = append(phase.Activities, *activity)
		}

		template.Phases = append(template.Phases, phase)
	}

	if err := s.repo.Create(ctx, template); err != nil {
		return nil, err
	}

	s.logger.Info("Production template created",
		zap.String("template_id", template.ID.String()),
		zap.String("name", template.Name),
		zap.Int("phases", len(template.Phases)))
	return template, nil
}

// GetTemplate retrieves a template with phases and activities
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*ProductionTemplate, error) {
	return s.repo.Get(ctx, id)
}

// ListTemplates lists templates
func (s *Service) ListTemplates(ctx context.Context, includeArchived bool) ([]*ProductionTemplate, error) {
	return s.repo.List(ctx, includeArchived)
}

// ArchiveTemplate archives a template
func (s *Service) ArchiveTemplate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Production template archived", zap.String("template_id", id.String()))
	return nil
}

func buildActivity(phaseID uuid.UUID, req *CreateActivityRequest) (*TemplateActivity, error) {
	activity := &TemplateActivity{
		ID:                     uuid.New(),
		PhaseID:                phaseID,
		Name:                   req.Name,
		ActivityType:           req.ActivityType,
		DurationEstimateMins:   req.DurationEstimateMins,
		IsQualityCheck:         req.IsQualityCheck,
		QualityCheckTemplateID: req.QualityCheckTemplateID,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}

	if req.TimingRule != nil {
		raw, err := json.Marshal(req.TimingRule)
		if err != nil {
			return nil, fmt.Errorf("failed to encode timing rule: %w", err)
		}
		rule, err := scheduling.ParseRule(raw)
		if err != nil {
			return nil, err
		}
		encoded, err := scheduling.EncodeRule(rule)
		if err != nil {
			return nil, err
		}
		activity.TimingRule = encoded
		switch rule.(type) {
		case scheduling.DailyRange, scheduling.SpecificDays, scheduling.EveryNDays:
			activity.IsRecurring = true
		}
	}

	return activity, nil
}

func validatePhaseOrders(phases []CreatePhaseRequest) error {
	orders := make([]int, 0, len(phases))
	seen := make(map[int]bool, len(phases))
	for _, p := range phases {
		if seen[p.PhaseOrder] {
			return fmt.Errorf("duplicate phase order %d", p.PhaseOrder)
		}
		seen[p.PhaseOrder] = true
		orders = append(orders, p.PhaseOrder)
	}
	sort.Ints(orders)
	for i, order := range orders {
		if order != i+1 {
			return fmt.Errorf("phase orders must be contiguous starting at 1, got %v", orders)
		}
	}
	return nil
}
