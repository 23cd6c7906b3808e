package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// Repository defines catalog data access
type Repository interface {
	CreateCropType(ctx context.Context, crop *CropType) error
	GetCropType(ctx context.Context, id uuid.UUID) (*CropType, error)
	ListCropTypes(ctx context.Context) ([]*CropType, error)
	CreateCultivar(ctx context.Context, cultivar *Cultivar) error
	GetCultivar(ctx context.Context, id uuid.UUID) (*Cultivar, error)
	ListCultivars(ctx context.Context, cropTypeID *uuid.UUID) ([]*Cultivar, error)
}

// GormRepository implements Repository on gorm
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateCropType(ctx context.Context, crop *CropType) error {
	if err := r.db.WithContext(ctx).Create(crop).Error; err != nil {
		return fmt.Errorf("failed to create crop type: %w", err)
	}
	return nil
}

func (r *GormRepository) GetCropType(ctx context.Context, id uuid.UUID) (*CropType, error) {
	var crop CropType
	err := r.db.WithContext(ctx).First(&crop, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("crop type %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get crop type: %w", err)
	}
	return &crop, nil
}

func (r *GormRepository) ListCropTypes(ctx context.Context) ([]*CropType, error) {
	var crops []*CropType
	if err := r.db.WithContext(ctx).Order("name").Find(&crops).Error; err != nil {
		return nil, fmt.Errorf("failed to list crop types: %w", err)
	}
	return crops, nil
}

func (r *GormRepository) CreateCultivar(ctx context.Context, cultivar *Cultivar) error {
	if err := r.db.WithContext(ctx).Create(cultivar).Error; err != nil {
		return fmt.Errorf("failed to create cultivar: %w", err)
	}
	return nil
}

func (r *GormRepository) GetCultivar(ctx context.Context, id uuid.UUID) (*Cultivar, error) {
	var cultivar Cultivar
	err := r.db.WithContext(ctx).First(&cultivar, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cultivar %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cultivar: %w", err)
	}
	return &cultivar, nil
}

func (r *GormRepository) ListCultivars(ctx context.Context, cropTypeID *uuid.UUID) ([]*Cultivar, error) {
	query := r.db.WithContext(ctx).Order("name")
	if cropTypeID != nil {
		query = query.Where("crop_type_id = ?", *cropTypeID)
	}
	var cultivars []*Cultivar
	if err := query.Find(&cultivars).Error; err != nil {
		return nil, fmt.Errorf("failed to list cultivars: %w", err)
	}
	return cultivars, nil
}
