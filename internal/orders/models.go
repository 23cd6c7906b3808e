package orders

import (
	"time"

	"github.com/google/uuid"
)

// Order status values. Transitions are one-directional except cancellation.
const (
	OrderStatusPlanning  = "planning"
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Phase status values
const (
	PhaseStatusPending    = "pending"
	PhaseStatusInProgress = "in_progress"
	PhaseStatusCompleted  = "completed"
)

// Scheduled activity status values
const (
	ActivityStatusPending   = "pending"
	ActivityStatusCompleted = "completed"
	ActivityStatusCancelled = "cancelled"
	ActivityStatusOverdue   = "overdue"
)

// Order priority
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ProductionOrder is a concrete, dated production run instantiated from a
// template. CompletionPct is recomputed after every phase completion and is
// monotonically non-decreasing.
type ProductionOrder struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber          string     `gorm:"size:20;not null;uniqueIndex" json:"order_number"`
	CompanyCode          string     `gorm:"size:20;not null" json:"company_code"`
	TemplateID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"template_id"`
	CropTypeID           uuid.UUID  `gorm:"type:uuid;not null" json:"crop_type_id"`
	CultivarID           *uuid.UUID `gorm:"type:uuid" json:"cultivar_id,omitempty"`
	RequestedQuantity    int        `gorm:"not null" json:"requested_quantity"`
	BatchSize            int        `gorm:"not null" json:"batch_size"`
	TracksIndividuals    bool       `gorm:"default:false" json:"tracks_individuals"`
	Status               string     `gorm:"size:20;not null;default:'planning'" json:"status"`
	Priority             string     `gorm:"size:10;not null;default:'normal'" json:"priority"`
	CompletionPct        int        `gorm:"not null;default:0" json:"completion_pct"`
	DefaultAreaID        *uuid.UUID `gorm:"type:uuid" json:"default_area_id,omitempty"`
	CurrentPhaseID       *uuid.UUID `gorm:"type:uuid" json:"current_phase_id,omitempty"`
	PlannedStartDate     time.Time  `gorm:"not null" json:"planned_start_date"`
	PlannedEndDate       time.Time  `gorm:"not null" json:"planned_end_date"`
	ActualStartDate      *time.Time `json:"actual_start_date,omitempty"`
	ActualCompletionDate *time.Time `json:"actual_completion_date,omitempty"`
	ApprovedBy           *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	CancelReason         *string    `gorm:"type:text" json:"cancel_reason,omitempty"`
	CreatedBy            uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Phases     []OrderPhase        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"phases,omitempty"`
	Activities []ScheduledActivity `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

// OrderPhase is a template phase bound to concrete dates for one order.
// Exactly one phase is in_progress at a time per active order; phases complete
// strictly in phase order.
type OrderPhase struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	TemplatePhaseID  uuid.UUID  `gorm:"type:uuid;not null" json:"template_phase_id"`
	Name             string     `gorm:"size:100;not null" json:"name"`
	PhaseOrder       int        `gorm:"not null" json:"phase_order"`
	TargetAreaType   string     `gorm:"size:20" json:"target_area_type"`
	Status           string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	PlannedStartDate time.Time  `gorm:"not null" json:"planned_start_date"`
	PlannedEndDate   time.Time  `gorm:"not null" json:"planned_end_date"`
	ActualStartDate  *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time `json:"actual_end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ScheduledActivity is a single dated occurrence of a template activity.
// Created bound to the order at instantiation; rebound to the first batch at
// activation. Completed or cancelled, never deleted.
type ScheduledActivity struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	PhaseID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"phase_id"`
	TemplateActivityID     uuid.UUID  `gorm:"type:uuid;not null" json:"template_activity_id"`
	BatchID                *uuid.UUID `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	Name                   string     `gorm:"size:200;not null" json:"name"`
	ActivityType           string     `gorm:"size:30;not null" json:"activity_type"`
	ScheduledDate          time.Time  `gorm:"not null;index" json:"scheduled_date"`
	Status                 string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	IsRecurring            bool       `gorm:"default:false" json:"is_recurring"`
	RecurringEndDate       *time.Time `json:"recurring_end_date,omitempty"`
	IsQualityCheck         bool       `gorm:"default:false" json:"is_quality_check"`
	QualityCheckTemplateID *string    `gorm:"size:64" json:"quality_check_template_id,omitempty"`
	CompletedBy            *uuid.UUID `gorm:"type:uuid" json:"completed_by,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	Notes                  *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// OrderCounter backs sequential order numbering, one row per company and
// year, incremented inside the order-creating transaction.
type OrderCounter struct {
	CompanyCode string `gorm:"size:20;primaryKey"`
	Year        int    `gorm:"primaryKey"`
	LastValue   int    `gorm:"not null"`
}

// CreateOrderRequest is the payload for instantiating an order from a template
type CreateOrderRequest struct {
	TemplateID        uuid.UUID  `json:"template_id" binding:"required"`
	CultivarID        *uuid.UUID `json:"cultivar_id,omitempty"`
	RequestedQuantity int        `json:"requested_quantity" binding:"required,min=1"`
	BatchSize         *int       `json:"batch_size,omitempty"`
	Priority          string     `json:"priority,omitempty"`
	DefaultAreaID     *uuid.UUID `json:"default_area_id,omitempty"`
	StartDate         time.Time  `json:"start_date" binding:"required"`
}

// ActivateOrderRequest is the payload for activating a planned order
type ActivateOrderRequest struct {
	TargetAreaID *uuid.UUID `json:"target_area_id,omitempty"`
}

// CancelOrderRequest is the payload for cancelling an order
type CancelOrderRequest struct {
	Reason         string `json:"reason" binding:"required"`
	ArchiveBatches bool   `json:"archive_batches,omitempty"`
}

// CompleteActivityRequest is the payload for completing a scheduled activity
type CompleteActivityRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// OrderFilters narrows order listings
type OrderFilters struct {
	Status     *string    `json:"status,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// OrderListResponse pages order listings
type OrderListResponse struct {
	Orders     []*ProductionOrder `json:"orders"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	HasMore    bool               `json:"has_more"`
}
