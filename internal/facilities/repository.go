package facilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// Repository defines area data access
type Repository interface {
	Create(ctx context.Context, area *Area) error
	Get(ctx context.Context, id uuid.UUID) (*Area, error)
	List(ctx context.Context, areaType *string) ([]*Area, error)
}

// GormRepository implements Repository on gorm
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates an area repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, area *Area) error {
	if err := r.db.WithContext(ctx).Create(area).Error; err != nil {
		return fmt.Errorf("failed to create area: %w", err)
	}
	return nil
}

func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (*Area, error) {
	var area Area
	err := r.db.WithContext(ctx).First(&area, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("area %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	return &area, nil
}

func (r *GormRepository) List(ctx context.Context, areaType *string) ([]*Area, error) {
	query := r.db.WithContext(ctx).Order("name")
	if areaType != nil {
		query = query.Where("area_type = ?", *areaType)
	}
	var areas []*Area
	if err := query.Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	return areas, nil
}
