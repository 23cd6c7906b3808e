package catalog

import (
	"time"

	"github.com/google/uuid"
)

// CropType represents a cultivated crop category (e.g. leafy greens, herbs)
type CropType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Cultivar represents a named variety of a crop type. CodePrefix seeds the
// human-readable batch codes generated at order activation.
type Cultivar struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CropTypeID uuid.UUID `gorm:"type:uuid;not null;index" json:"crop_type_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	CodePrefix string    `gorm:"size:10;not null" json:"code_prefix"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	CropType CropType `gorm:"foreignKey:CropTypeID" json:"-"`
}

// CreateCropTypeRequest is the payload for creating a crop type
type CreateCropTypeRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description,omitempty"`
}

// CreateCultivarRequest is the payload for creating a cultivar
type CreateCultivarRequest struct {
	CropTypeID uuid.UUID `json:"crop_type_id" binding:"required"`
	Name       string    `json:"name" binding:"required,min=1,max=100"`
	CodePrefix string    `json:"code_prefix" binding:"required,min=1,max=10"`
}
