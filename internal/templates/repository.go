package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// Repository defines template data access
type Repository interface {
	Create(ctx context.Context, template *ProductionTemplate) error
	Get(ctx context.Context, id uuid.UUID) (*ProductionTemplate, error)
	List(ctx context.Context, includeArchived bool) ([]*ProductionTemplate, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

// GormRepository implements Repository on gorm
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a template repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create persists a template with its phases and activities in one transaction.
func (r *GormRepository) Create(ctx context.Context, template *ProductionTemplate) error {
	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Get loads a template with phases ordered by phase_order and their activities.
func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (*ProductionTemplate, error) {
	var template ProductionTemplate
	err := r.db.WithContext(ctx).
		Preload("Phases", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase_order ASC")
		}).
		Preload("Phases.Activities").
		First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (r *GormRepository) List(ctx context.Context, includeArchived bool) ([]*ProductionTemplate, error) {
	query := r.db.WithContext(ctx).Order("name")
	if !includeArchived {
		query = query.Where("status = ?", StatusActive)
	}
	var result []*ProductionTemplate
	if err := query.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return result, nil
}

// Archive marks a template archived. Templates referenced by orders are never
// hard-deleted.
func (r *GormRepository) Archive(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&ProductionTemplate{}).
		Where("id = ?", id).
		Update("status", StatusArchived)
	if result.Error != nil {
		return fmt.Errorf("failed to archive template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
