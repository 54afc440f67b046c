package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID, time.Now().UTC()),
		Data:            "test data",
	}
}

// testHandler records the events it receives
type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                              { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	submitted := newTestHandler("Submitted")
	bus.Subscribe(submitted)
	all := newTestHandler()
	bus.Subscribe(all, []string{}...)

	e1 := newTestEvent("Submitted", uuid.New())
	e2 := newTestEvent("Approved", uuid.New())
	require.NoError(t, bus.Publish(context.Background(), e1, e2))

	assert.Equal(t, []shared.DomainEvent{e1}, submitted.getHandled())
	assert.Equal(t, []shared.DomainEvent{e1, e2}, all.getHandled())
}

func TestInMemoryEventBus_FailuresAreJoined(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("Submitted")
	failing.setError(errors.New("smtp down"))
	healthy := newTestHandler("Submitted")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)
	bus.Subscribe(panicHandler{}, "Submitted")

	err := bus.Publish(context.Background(), newTestEvent("Submitted", uuid.New()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "panicked: boom")
	assert.Len(t, healthy.getHandled(), 1, "a failing handler must not starve the others")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("Submitted", "Approved")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Submitted", uuid.New())))
	assert.Empty(t, handler.getHandled())
	assert.Empty(t, bus.registry.GetHandlers("Approved"))
}

func TestInMemoryEventBus_SubscribeTwiceDeliversOnce(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("Submitted")
	bus.Subscribe(handler)
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Submitted", uuid.New())))
	assert.Len(t, handler.getHandled(), 1)
	assert.Len(t, bus.registry.GetHandlers("Submitted"), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.IsRunning())
}
