package notifications

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

type captureBroadcaster struct {
	messages []WebSocketMessage
}

func (c *captureBroadcaster) Broadcast(message WebSocketMessage) {
	c.messages = append(c.messages, message)
}

func newEventService(t *testing.T) (*Service, *captureBroadcaster) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Event{}))
	broadcaster := &captureBroadcaster{}
	return NewService(db, broadcaster, zap.NewNop()), broadcaster
}

func TestEventsPersistedAndBroadcast(t *testing.T) {
	svc, broadcaster := newEventService(t)
	orderID := uuid.New()

	svc.OrderActivated(orderID, "ORD-2026-0001")
	svc.PhaseCompleted(orderID, "ORD-2026-0001", "Propagation")
	svc.OrderCompleted(orderID, "ORD-2026-0001")

	events, err := svc.ListEvents(context.Background(), false, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// newest first
	assert.Equal(t, EventOrderCompleted, events[0].EventType)
	assert.Equal(t, EventPhaseCompleted, events[1].EventType)
	assert.Equal(t, EventOrderActivated, events[2].EventType)
	require.NotNil(t, events[1].OrderID)
	assert.Equal(t, orderID, *events[1].OrderID)
	assert.Contains(t, events[1].Message, "Propagation")

	require.Len(t, broadcaster.messages, 3)
	assert.Equal(t, EventOrderActivated, broadcaster.messages[0].Type)
}

func TestMarkRead(t *testing.T) {
	svc, _ := newEventService(t)
	svc.OrderCancelled(uuid.New(), "ORD-2026-0002", "weather damage")

	events, err := svc.ListEvents(context.Background(), true, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, svc.MarkRead(context.Background(), events[0].ID))

	unread, err := svc.ListEvents(context.Background(), true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// marking twice is a no-op, unknown IDs are not found
	require.NoError(t, svc.MarkRead(context.Background(), events[0].ID))
	assert.ErrorIs(t, svc.MarkRead(context.Background(), uuid.New()), domain.ErrNotFound)
}

func TestNilBroadcaster(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Event{}))
	svc := NewService(db, nil, zap.NewNop())

	svc.ActivitiesOverdue(4)

	events, err := svc.ListEvents(context.Background(), false, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventActivityOverdue, events[0].EventType)
	assert.Nil(t, events[0].OrderID)
}
