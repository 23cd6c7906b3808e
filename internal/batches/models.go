package batches

import (
	"time"

	"github.com/google/uuid"
)

// Batch status values
const (
	BatchStatusActive    = "active"
	BatchStatusHarvested = "harvested"
	BatchStatusLost      = "lost"
	BatchStatusArchived  = "archived"
)

// Plant status values
const (
	PlantStatusActive      = "active"
	PlantStatusLost        = "lost"
	PlantStatusHarvested   = "harvested"
	PlantStatusTransferred = "transferred"
)

// Plant stages
const (
	StageSeedling   = "seedling"
	StageVegetative = "vegetative"
	StageFlowering  = "flowering"
	StageMother     = "mother"
)

// Batch is a physical group of plants sharing cultivar, area and lifecycle
// state. Invariant: current_quantity = initial_quantity - lost_quantity,
// adjusted by transfers, and never negative.
type Batch struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BatchCode         string     `gorm:"size:40;not null;uniqueIndex" json:"batch_code"`
	OrderID           *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	CropTypeID        uuid.UUID  `gorm:"type:uuid;not null" json:"crop_type_id"`
	CultivarID        *uuid.UUID `gorm:"type:uuid" json:"cultivar_id,omitempty"`
	AreaID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"area_id"`
	CurrentPhase      string     `gorm:"size:100" json:"current_phase"`
	Status            string     `gorm:"size:20;not null;default:'active'" json:"status"`
	InitialQuantity   int        `gorm:"not null" json:"initial_quantity"`
	CurrentQuantity   int        `gorm:"not null" json:"current_quantity"`
	LostQuantity      int        `gorm:"not null;default:0" json:"lost_quantity"`
	MortalityRate     int        `gorm:"not null;default:0" json:"mortality_rate"`
	TracksIndividuals bool       `gorm:"default:false" json:"tracks_individuals"`
	HarvestWeightKg   *float64   `json:"harvest_weight_kg,omitempty"`
	HarvestQuality    *string    `gorm:"size:20" json:"harvest_quality,omitempty"`
	HarvestedAt       *time.Time `json:"harvested_at,omitempty"`
	CreatedBy         uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Plants []Plant `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"plants,omitempty"`
}

// Plant is an individually tracked unit within a batch. Rows exist only when
// the owning batch tracks individuals.
type Plant struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	PlantTag        string     `gorm:"size:50;not null" json:"plant_tag"`
	Stage           string     `gorm:"size:20;not null;default:'seedling'" json:"stage"`
	HealthStatus    string     `gorm:"size:20;not null;default:'healthy'" json:"health_status"`
	Position        *string    `gorm:"size:50" json:"position,omitempty"`
	MotherPlantID   *uuid.UUID `gorm:"type:uuid" json:"mother_plant_id,omitempty"`
	CloneCount      int        `gorm:"not null;default:0" json:"clone_count"`
	Status          string     `gorm:"size:20;not null;default:'active'" json:"status"`
	HarvestWeightKg *float64   `json:"harvest_weight_kg,omitempty"`
	HarvestQuality  *string    `gorm:"size:20" json:"harvest_quality,omitempty"`
	HarvestedAt     *time.Time `json:"harvested_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BatchCodeCounter allocates the sequence suffix for batch codes, one row per
// cultivar prefix and day. Incremented with a guarded update inside the
// transaction that inserts the batch.
type BatchCodeCounter struct {
	Prefix    string `gorm:"size:20;primaryKey" json:"prefix"`
	DateStamp string `gorm:"size:8;primaryKey" json:"date_stamp"`
	LastValue int    `gorm:"not null" json:"last_value"`
}

// RecordLossRequest is the payload for recording plant loss on a batch
type RecordLossRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason,omitempty"`
}

// MoveBatchRequest is the payload for moving a batch to another area
type MoveBatchRequest struct {
	DestinationAreaID uuid.UUID `json:"destination_area_id" binding:"required"`
	NewPhaseName      *string   `json:"new_phase_name,omitempty"`
}

// TransferPlantsRequest is the payload for moving units between batches
type TransferPlantsRequest struct {
	DestinationBatchID uuid.UUID   `json:"destination_batch_id" binding:"required"`
	Quantity           int         `json:"quantity" binding:"required,min=1"`
	PlantIDs           []uuid.UUID `json:"plant_ids,omitempty"`
}

// CloneRequest is the payload for cloning from a mother plant
type CloneRequest struct {
	MotherPlantID      uuid.UUID  `json:"mother_plant_id" binding:"required"`
	CloneCount         int        `json:"clone_count" binding:"required,min=1"`
	DestinationBatchID *uuid.UUID `json:"destination_batch_id,omitempty"`
	DestinationAreaID  *uuid.UUID `json:"destination_area_id,omitempty"`
}

// HarvestRequest is the payload for harvesting a batch or plant
type HarvestRequest struct {
	WeightKg float64 `json:"weight_kg" binding:"required,min=0"`
	Quality  string  `json:"quality,omitempty"`
}
