package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// Service provides crop and cultivar catalog operations
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a catalog service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateCropType registers a new crop type
func (s *Service) CreateCropType(ctx context.Context, req *CreateCropTypeRequest) (*CropType, error) {
	crop := &CropType{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.CreateCropType(ctx, crop); err != nil {
		return nil, err
	}

	s.logger.Info("Crop type created",
		zap.String("crop_type_id", crop.ID.String()),
		zap.String("name", crop.Name))
	return crop, nil
}

// CreateCultivar registers a new cultivar under an existing crop type
func (s *Service) CreateCultivar(ctx context.Context, req *CreateCultivarRequest) (*Cultivar, error) {
	if _, err := s.repo.GetCropType(ctx, req.CropTypeID); err != nil {
		return nil, err
	}

	cultivar := &Cultivar{
		ID:         uuid.New(),
		CropTypeID: req.CropTypeID,
		Name:       req.Name,
		CodePrefix: strings.ToUpper(req.CodePrefix),
		IsActive:   true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.repo.CreateCultivar(ctx, cultivar); err != nil {
		return nil, err
	}

	s.logger.Info("Cultivar created",
		zap.String("cultivar_id", cultivar.ID.String()),
		zap.String("crop_type_id", cultivar.CropTypeID.String()),
		zap.String("name", cultivar.Name))
	return cultivar, nil
}

// GetCropType retrieves a crop type by ID
func (s *Service) GetCropType(ctx context.Context, id uuid.UUID) (*CropType, error) {
	return s.repo.GetCropType(ctx, id)
}

// GetCultivar retrieves a cultivar by ID
func (s *Service) GetCultivar(ctx context.Context, id uuid.UUID) (*Cultivar, error) {
	return s.repo.GetCultivar(ctx, id)
}

// ListCropTypes lists all crop types
func (s *Service) ListCropTypes(ctx context.Context) ([]*CropType, error) {
	return s.repo.ListCropTypes(ctx)
}

// ListCultivars lists cultivars, optionally filtered by crop type
func (s *Service) ListCultivars(ctx context.Context, cropTypeID *uuid.UUID) ([]*Cultivar, error) {
	return s.repo.ListCultivars(ctx, cropTypeID)
}

// CheckCompatibility verifies that a cultivar belongs to the given crop type.
func (s *Service) CheckCompatibility(ctx context.Context, cultivarID, cropTypeID uuid.UUID) (*Cultivar, error) {
	cultivar, err := s.repo.GetCultivar(ctx, cultivarID)
	if err != nil {
		return nil, err
	}
	if cultivar.CropTypeID != cropTypeID {
		return nil, fmt.Errorf("cultivar %s does not belong to crop type %s: %w",
			cultivarID, cropTypeID, domain.ErrIncompatibleCultivar)
	}
	return cultivar, nil
}
