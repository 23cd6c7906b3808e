package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event types emitted by the order lifecycle
const (
	EventOrderActivated  = "order.activated"
	EventPhaseCompleted  = "order.phase_completed"
	EventOrderCompleted  = "order.completed"
	EventOrderCancelled  = "order.cancelled"
	EventActivityOverdue = "activity.overdue"
)

// Event is a persisted lifecycle notification. Events are written after the
// transaction that caused them commits, so readers never see an event for a
// rolled-back change.
type Event struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType string         `gorm:"size:40;not null;index" json:"event_type"`
	OrderID   *uuid.UUID     `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Message   string         `gorm:"size:500;not null" json:"message"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// WebSocketMessage is the frame pushed to connected dashboard clients
type WebSocketMessage struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
