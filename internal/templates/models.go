package templates

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Template status
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Activity types
const (
	ActivityWatering     = "watering"
	ActivityFeeding      = "feeding"
	ActivityInspection   = "inspection"
	ActivityPruning      = "pruning"
	ActivityTransplant   = "transplant"
	ActivityQualityCheck = "quality_check"
	ActivityHarvest      = "harvest"
)

// ProductionTemplate is a reusable production recipe: ordered phases, each
// carrying activities with timing rules. Once an order has been instantiated
// from a template the template is only ever archived, never hard-deleted.
type ProductionTemplate struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string     `gorm:"size:200;not null" json:"name"`
	Description       string     `gorm:"type:text" json:"description"`
	CropTypeID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"crop_type_id"`
	DefaultCultivarID *uuid.UUID `gorm:"type:uuid" json:"default_cultivar_id,omitempty"`
	DefaultBatchSize  int        `gorm:"not null" json:"default_batch_size"`
	TracksIndividuals bool      `gorm:"default:false" json:"tracks_individuals"`
	Status            string     `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedBy         uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Phases []TemplatePhase `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"phases,omitempty"`
}

// TemplatePhase is an ordered stage of a template. PhaseOrder is unique and
// contiguous (1..N) within its template.
type TemplatePhase struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID     uuid.UUID `gorm:"type:uuid;not null;index" json:"template_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	PhaseOrder     int       `gorm:"not null" json:"phase_order"`
	DurationDays   int       `gorm:"not null" json:"duration_days"`
	TargetAreaType string    `gorm:"size:20" json:"target_area_type"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Activities []TemplateActivity `gorm:"foreignKey:PhaseID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

// TemplateActivity is a unit of work within a phase. TimingRule holds the
// JSON-encoded rule decoded by the scheduling package.
type TemplateActivity struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PhaseID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"phase_id"`
	Name                   string         `gorm:"size:200;not null" json:"name"`
	ActivityType           string         `gorm:"size:30;not null" json:"activity_type"`
	TimingRule             datatypes.JSON `json:"timing_rule,omitempty"`
	DurationEstimateMins   int            `json:"duration_estimate_mins"`
	IsRecurring            bool           `gorm:"default:false" json:"is_recurring"`
	IsQualityCheck         bool           `gorm:"default:false" json:"is_quality_check"`
	QualityCheckTemplateID *string        `gorm:"size:64" json:"quality_check_template_id,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// CreateTemplateRequest is the payload for creating a production template
type CreateTemplateRequest struct {
	Name              string                `json:"name" binding:"required,min=1,max=200"`
	Description       string                `json:"description,omitempty"`
	CropTypeID        uuid.UUID             `json:"crop_type_id" binding:"required"`
	DefaultCultivarID *uuid.UUID            `json:"default_cultivar_id,omitempty"`
	DefaultBatchSize  int                   `json:"default_batch_size" binding:"required,min=1"`
	TracksIndividuals bool                  `json:"tracks_individuals,omitempty"`
	Phases            []CreatePhaseRequest  `json:"phases" binding:"required,min=1,dive"`
}

// CreatePhaseRequest describes one template phase
type CreatePhaseRequest struct {
	Name           string                  `json:"name" binding:"required,min=1,max=100"`
	PhaseOrder     int                     `json:"phase_order" binding:"required,min=1"`
	DurationDays   int                     `json:"duration_days" binding:"required,min=1"`
	TargetAreaType string                  `json:"target_area_type,omitempty"`
	Activities     []CreateActivityRequest `json:"activities,omitempty"`
}

// CreateActivityRequest describes one template activity
type CreateActivityRequest struct {
	Name                   string          `json:"name" binding:"required,min=1,max=200"`
	ActivityType           string          `json:"activity_type" binding:"required"`
	TimingRule             map[string]any  `json:"timing_rule,omitempty"`
	DurationEstimateMins   int             `json:"duration_estimate_mins,omitempty"`
	IsQualityCheck         bool            `json:"is_quality_check,omitempty"`
	QualityCheckTemplateID *string         `json:"quality_check_template_id,omitempty"`
}
