package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventHandler is a mock implementation of shared.EventHandler
type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent("Submitted", uuid.New())
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, "notify", time.Hour, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
}

func TestIdempotentHandler_KeysAreScopedPerHandler(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	event := newTestEvent("Submitted", uuid.New())
	first := newTestHandler("Submitted")
	second := newTestHandler("Submitted")

	require.NoError(t, NewIdempotentHandler(first, store, "notify", time.Hour, zap.NewNop()).Handle(context.Background(), event))
	require.NoError(t, NewIdempotentHandler(second, store, "archive", time.Hour, zap.NewNop()).Handle(context.Background(), event))

	assert.Len(t, first.getHandled(), 1)
	assert.Len(t, second.getHandled(), 1)
}

func TestIdempotentHandler_FailureIsRetried(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newTestHandler("Submitted")
	inner.setError(errors.New("archive unavailable"))
	h := NewIdempotentHandler(inner, store, "archive", time.Hour, zap.NewNop())
	event := newTestEvent("Submitted", uuid.New())

	require.Error(t, h.Handle(context.Background(), event))
	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsFailed: 1}, h.Stats())
}

func TestIdempotentHandler_StoreErrorsDoNotDropEvents(t *testing.T) {
	store := new(MockIdempotencyStore)
	event := newTestEvent("Submitted", uuid.New())
	key := "event:notify:" + event.EventID().String()
	store.On("IsProcessed", mock.Anything, key).Return(false, errors.New("redis down"))
	store.On("MarkProcessed", mock.Anything, key, 2*time.Hour).Return(false, errors.New("redis down"))

	inner := newTestHandler("Submitted")
	h := NewIdempotentHandler(inner, store, "notify", 2*time.Hour, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 1)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_EventTypes(t *testing.T) {
	inner := new(MockEventHandler)
	inner.On("EventTypes").Return([]string{"A", "B"})
	h := NewIdempotentHandler(inner, new(MockIdempotencyStore), "x", 0, zap.NewNop())
	assert.Equal(t, []string{"A", "B"}, h.EventTypes())
	assert.Equal(t, shared.DefaultIdempotencyConfig().TTL, h.ttl)
}
