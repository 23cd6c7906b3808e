package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// Broadcaster pushes messages to connected clients. Implemented by the
// websocket manager; must not block.
type Broadcaster interface {
	Broadcast(message WebSocketMessage)
}

// Service persists lifecycle events and pushes them to connected clients. It
// implements the order service's event publisher; callers invoke it only after
// their own transaction has committed, so an event never describes a change
// that was rolled back.
type Service struct {
	db          *gorm.DB
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewService creates a notification service. broadcaster may be nil in
// contexts with no connected clients, such as the worker binary.
func NewService(db *gorm.DB, broadcaster Broadcaster, logger *zap.Logger) *Service {
	return &Service{db: db, broadcaster: broadcaster, logger: logger}
}

// OrderActivated records an order activation event
func (s *Service) OrderActivated(orderID uuid.UUID, orderNumber string) {
	s.record(EventOrderActivated, &orderID,
		fmt.Sprintf("Order %s activated", orderNumber),
		map[string]interface{}{"order_number": orderNumber})
}

// PhaseCompleted records a phase completion event
func (s *Service) PhaseCompleted(orderID uuid.UUID, orderNumber, phaseName string) {
	s.record(EventPhaseCompleted, &orderID,
		fmt.Sprintf("Order %s completed phase %q", orderNumber, phaseName),
		map[string]interface{}{"order_number": orderNumber, "phase": phaseName})
}

// OrderCompleted records an order completion event
func (s *Service) OrderCompleted(orderID uuid.UUID, orderNumber string) {
	s.record(EventOrderCompleted, &orderID,
		fmt.Sprintf("Order %s completed", orderNumber),
		map[string]interface{}{"order_number": orderNumber})
}

// OrderCancelled records an order cancellation event
func (s *Service) OrderCancelled(orderID uuid.UUID, orderNumber, reason string) {
	s.record(EventOrderCancelled, &orderID,
		fmt.Sprintf("Order %s cancelled: %s", orderNumber, reason),
		map[string]interface{}{"order_number": orderNumber, "reason": reason})
}

// ActivitiesOverdue records an overdue scan result. Emitted by the worker
// once per scan that flagged anything, not once per activity.
func (s *Service) ActivitiesOverdue(count int) {
	s.record(EventActivityOverdue, nil,
		fmt.Sprintf("%d scheduled activities are overdue", count),
		map[string]interface{}{"count": count})
}

func (s *Service) record(eventType string, orderID *uuid.UUID, message string, payload map[string]interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode event payload", zap.Error(err))
		raw = []byte("{}")
	}

	event := &Event{
		ID:        uuid.New(),
		EventType: eventType,
		OrderID:   orderID,
		Message:   message,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(event).Error; err != nil {
		// Event loss is tolerable; the underlying state change already
		// committed.
		s.logger.Error("Failed to persist event",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(WebSocketMessage{
			Type:      eventType,
			Data:      payload,
			Timestamp: event.CreatedAt,
		})
	}
}

// ListEvents pages events newest first, optionally only unread ones
func (s *Service) ListEvents(ctx context.Context, unreadOnly bool, limit int) ([]*Event, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var events []*Event
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// MarkRead marks one event as read
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to mark event read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var existing Event
		if err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
			return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}
