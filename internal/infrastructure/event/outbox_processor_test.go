package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type processorFixture struct {
	db        *gorm.DB
	repo      *GormOutboxRepository
	bus       *InMemoryEventBus
	processor *OutboxProcessor
	order     *trade.PurchaseOrder
}

func newProcessorFixture(t *testing.T, maxRetries int) *processorFixture {
	t.Helper()
	db := setupOutboxDB(t)
	serializer := NewPurchaseOrderSerializer()
	bus := NewInMemoryEventBus(zap.NewNop())
	repo := NewGormOutboxRepository(db)

	order := newSubmittedOrder(t)
	publisher := NewOutboxPublisher(serializer, maxRetries)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(context.Background(), tx, order.GetDomainEvents()...)
	}))

	return &processorFixture{
		db:        db,
		repo:      repo,
		bus:       bus,
		processor: NewOutboxProcessor(repo, bus, serializer, OutboxProcessorConfig{BatchSize: 10}, zap.NewNop()),
		order:     order,
	}
}

func (f *processorFixture) statuses(t *testing.T) map[string]models.OutboxEntryModel {
	t.Helper()
	var rows []models.OutboxEntryModel
	require.NoError(t, f.db.Find(&rows).Error)
	out := make(map[string]models.OutboxEntryModel, len(rows))
	for _, row := range rows {
		out[row.EventType] = row
	}
	return out
}

func TestOutboxProcessor_DeliversCommittedEvents(t *testing.T) {
	f := newProcessorFixture(t, 5)
	handler := newTestHandler()
	f.bus.Subscribe(handler, []string{}...)

	f.processor.ProcessOnce(context.Background())

	handled := handler.getHandled()
	require.Len(t, handled, 2)
	types := []string{handled[0].EventType(), handled[1].EventType()}
	assert.ElementsMatch(t, []string{trade.EventTypePurchaseOrderCreated, trade.EventTypePurchaseOrderSubmitted}, types)
	for _, e := range handled {
		assert.Equal(t, f.order.ID, e.AggregateID())
	}

	for _, row := range f.statuses(t) {
		assert.Equal(t, shared.OutboxStatusSent, row.Status)
		assert.NotNil(t, row.ProcessedAt)
	}

	// a second pass finds nothing to deliver
	f.processor.ProcessOnce(context.Background())
	assert.Len(t, handler.getHandled(), 2)
}

func TestOutboxProcessor_FailedDeliveryIsRetriedThenDead(t *testing.T) {
	f := newProcessorFixture(t, 2)
	handler := newTestHandler(trade.EventTypePurchaseOrderSubmitted)
	handler.setError(errors.New("webhook timeout"))
	f.bus.Subscribe(handler)

	ctx := context.Background()
	f.processor.ProcessOnce(ctx)

	row := f.statuses(t)[trade.EventTypePurchaseOrderSubmitted]
	assert.Equal(t, shared.OutboxStatusFailed, row.Status)
	assert.Equal(t, 1, row.RetryCount)
	assert.Contains(t, row.LastError, "webhook timeout")
	require.NotNil(t, row.NextRetryAt)
	assert.Equal(t, shared.OutboxStatusSent, f.statuses(t)[trade.EventTypePurchaseOrderCreated].Status)

	// make the retry due now
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).
		Where("id = ?", row.ID).
		Update("next_retry_at", time.Now().UTC().Add(-time.Second)).Error)
	f.processor.ProcessOnce(ctx)

	row = f.statuses(t)[trade.EventTypePurchaseOrderSubmitted]
	assert.Equal(t, shared.OutboxStatusDead, row.Status)
	assert.Equal(t, 2, row.RetryCount)
	assert.Nil(t, row.NextRetryAt)
	assert.Len(t, handler.getHandled(), 2)
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	f := newProcessorFixture(t, 5)
	unknown := shared.NewOutboxEntry(newTestEvent("LegacyEvent", uuid.New()), []byte(`{}`))
	require.NoError(t, f.repo.Save(context.Background(), unknown))

	f.processor.ProcessOnce(context.Background())

	row := f.statuses(t)["LegacyEvent"]
	assert.Equal(t, shared.OutboxStatusFailed, row.Status)
	assert.Contains(t, row.LastError, "unknown event type")
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(t, 5)
	handler := newTestHandler()
	f.bus.Subscribe(handler, []string{}...)

	p := NewOutboxProcessor(f.repo, f.bus, NewPurchaseOrderSerializer(), OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(handler.getHandled()) == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
