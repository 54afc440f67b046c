package event

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/config"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "outbox.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func newEntry(t *testing.T, eventType string) *shared.OutboxEntry {
	t.Helper()
	return shared.NewOutboxEntry(newTestEvent(eventType, uuid.New()), []byte(`{"data":"x"}`))
}

func TestGormOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	first := newEntry(t, "Submitted")
	second := newEntry(t, "Approved")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, []byte(`{"data":"x"}`), pending[0].Payload)

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, e := range claimed {
		assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
	}

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "a processing entry cannot be claimed twice")

	claimed[0].MarkSent()
	require.NoError(t, repo.Update(ctx, claimed[0]))
	claimed[1].MarkFailed("bus down")
	require.NoError(t, repo.Update(ctx, claimed[1]))

	retryable, err := repo.FindRetryable(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, 1, retryable[0].RetryCount)
	assert.Equal(t, "bus down", retryable[0].LastError)

	notYet, err := repo.FindRetryable(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	counts, err := repo.CountByStatus(ctx, first.TenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Zero(t, counts[shared.OutboxStatusFailed], "counts are scoped to the tenant")

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestGormOutboxRepository_DeadLetters(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	tenantID := uuid.New()

	entries := make([]*shared.OutboxEntry, 3)
	for i := range entries {
		entries[i] = shared.NewOutboxEntry(newTestEvent("Approved", tenantID), []byte(`{}`))
		entries[i].MaxRetries = 1
	}
	other := newEntry(t, "Approved")
	other.MaxRetries = 1
	require.NoError(t, repo.Save(ctx, append(entries, other)...))

	for _, e := range []*shared.OutboxEntry{entries[0], entries[1], other} {
		e.MarkFailed("handler down")
		require.True(t, e.IsDead())
		require.NoError(t, repo.Update(ctx, e))
	}

	dead, total, err := repo.FindDead(ctx, tenantID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, dead, 1)

	counts, err := repo.CountByStatus(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])

	found, err := repo.FindByID(ctx, tenantID, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "handler down", found.LastError)

	_, err = repo.FindByID(ctx, tenantID, other.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, found.ResetForRetry())
	require.NoError(t, repo.Update(ctx, found))
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	ctx := context.Background()
	db := setupOutboxDB(t)
	publisher := NewOutboxPublisher(NewPurchaseOrderSerializer(), 3)
	order := newSubmittedOrder(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx, order.GetDomainEvents()...)
	})
	require.NoError(t, err)

	var rows []models.OutboxEntryModel
	require.NoError(t, db.Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, order.TenantID, row.TenantID)
		assert.Equal(t, order.ID, row.AggregateID)
		assert.Equal(t, 3, row.MaxRetries)
		assert.Equal(t, shared.OutboxStatusPending, row.Status)
	}
}

func TestOutboxPublisher_RequiresGormTx(t *testing.T) {
	publisher := NewOutboxPublisher(NewPurchaseOrderSerializer(), 0)
	err := publisher.SaveEvents(context.Background(), "not a tx", newTestEvent("X", uuid.New()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "*gorm.DB")

	assert.NoError(t, publisher.SaveEvents(context.Background(), nil))
	assert.Equal(t, shared.DefaultOutboxMaxRetries, publisher.maxRetries)
}
