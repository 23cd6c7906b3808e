package facilities

import (
	"time"

	"github.com/google/uuid"
)

// Area types mirror the stages a template phase can target.
const (
	AreaTypePropagation = "propagation"
	AreaTypeVegetative  = "vegetative"
	AreaTypeFlowering   = "flowering"
	AreaTypeDrying      = "drying"
	AreaTypeStorage     = "storage"
)

// Area represents a physical space with finite capacity. CurrentOccupancy
// counts living plant units currently placed in the area and is mutated only
// inside the same transaction as the placement change that causes it.
type Area struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	AreaType         string    `gorm:"size:20;not null" json:"area_type"`
	MaxCapacity      *int      `json:"max_capacity,omitempty"`
	CurrentOccupancy int       `gorm:"not null;default:0" json:"current_occupancy"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateAreaRequest is the payload for registering an area
type CreateAreaRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	AreaType    string `json:"area_type" binding:"required"`
	MaxCapacity *int   `json:"max_capacity,omitempty"`
}

// AreaUtilization is a read-side view of occupancy against capacity
type AreaUtilization struct {
	AreaID           uuid.UUID `json:"area_id"`
	Name             string    `json:"name"`
	AreaType         string    `json:"area_type"`
	CurrentOccupancy int       `json:"current_occupancy"`
	MaxCapacity      *int      `json:"max_capacity,omitempty"`
	UtilizationPct   *float64  `json:"utilization_pct,omitempty"`
}
