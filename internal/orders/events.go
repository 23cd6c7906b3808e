package orders

import "github.com/google/uuid"

// EventPublisher receives lifecycle notifications after the transaction that
// caused them has committed. Implementations must not block the caller.
type EventPublisher interface {
	OrderActivated(orderID uuid.UUID, orderNumber string)
	PhaseCompleted(orderID uuid.UUID, orderNumber, phaseName string)
	OrderCompleted(orderID uuid.UUID, orderNumber string)
	OrderCancelled(orderID uuid.UUID, orderNumber, reason string)
}

// NopPublisher discards all events
type NopPublisher struct{}

func (NopPublisher) OrderActivated(uuid.UUID, string)         {}
func (NopPublisher) PhaseCompleted(uuid.UUID, string, string) {}
func (NopPublisher) OrderCompleted(uuid.UUID, string)         {}
func (NopPublisher) OrderCancelled(uuid.UUID, string, string) {}
