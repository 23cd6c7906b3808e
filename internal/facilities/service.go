package facilities

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides area directory operations. Occupancy bookkeeping itself is
// performed by AdjustOccupancy inside the transactions of the operations that
// move plants around; this service only owns the area records.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a facilities service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateArea registers a new physical area
func (s *Service) CreateArea(ctx context.Context, req *CreateAreaRequest) (*Area, error) {
	area := &Area{
		ID:          uuid.New(),
		Name:        req.Name,
		AreaType:    req.AreaType,
		MaxCapacity: req.MaxCapacity,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, area); err != nil {
		return nil, err
	}

	s.logger.Info("Area created",
		zap.String("area_id", area.ID.String()),
		zap.String("name", area.Name),
		zap.String("area_type", area.AreaType))
	return area, nil
}

// GetArea retrieves an area by ID
func (s *Service) GetArea(ctx context.Context, id uuid.UUID) (*Area, error) {
	return s.repo.Get(ctx, id)
}

// ListAreas lists areas, optionally filtered by type
func (s *Service) ListAreas(ctx context.Context, areaType *string) ([]*Area, error) {
	return s.repo.List(ctx, areaType)
}

// Utilization computes the occupancy view for all areas
func (s *Service) Utilization(ctx context.Context) ([]*AreaUtilization, error) {
	areas, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := make([]*AreaUtilization, 0, len(areas))
	for _, a := range areas {
		u := &AreaUtilization{
			AreaID:           a.ID,
			Name:             a.Name,
			AreaType:         a.AreaType,
			CurrentOccupancy: a.CurrentOccupancy,
			MaxCapacity:      a.MaxCapacity,
		}
		if a.MaxCapacity != nil && *a.MaxCapacity > 0 {
			pct := 100 * float64(a.CurrentOccupancy) / float64(*a.MaxCapacity)
			u.UtilizationPct = &pct
		}
		result = append(result, u)
	}
	return result, nil
}
