package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockDeadLetterRepo struct {
	mock.Mock
}

func (m *mockDeadLetterRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, tenantID, id)
	entry, _ := args.Get(0).(*shared.OutboxEntry)
	return entry, args.Error(1)
}

func (m *mockDeadLetterRepo) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	entries, _ := args.Get(0).([]*shared.OutboxEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockDeadLetterRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx, tenantID)
	counts, _ := args.Get(0).(map[shared.OutboxStatus]int64)
	return counts, args.Error(1)
}

func (m *mockDeadLetterRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func deadEntry(tenantID uuid.UUID) *shared.OutboxEntry {
	event := shared.NewBaseDomainEvent("PurchaseOrderApproved", "PurchaseOrder", uuid.New(), tenantID, time.Now())
	entry := shared.NewOutboxEntry(&event, []byte(`{}`))
	entry.MaxRetries = 1
	entry.MarkFailed("notifier down")
	return entry
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	tests := []struct {
		name     string
		filter   OutboxFilter
		page     int
		pageSize int
	}{
		{"defaults", OutboxFilter{}, 1, 20},
		{"explicit", OutboxFilter{Page: 3, PageSize: 5}, 3, 5},
		{"clamped", OutboxFilter{Page: 1, PageSize: 1000}, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockDeadLetterRepo)
			entry := deadEntry(tenantID)
			repo.On("FindDead", ctx, tenantID, tt.page, tt.pageSize).
				Return([]*shared.OutboxEntry{entry}, int64(7), nil)

			svc := NewOutboxService(repo, zap.NewNop())
			entries, total, err := svc.GetDeadLetterEntries(ctx, tenantID, tt.filter)

			require.NoError(t, err)
			assert.Equal(t, int64(7), total)
			require.Len(t, entries, 1)
			assert.Equal(t, entry.ID, entries[0].ID)
			assert.Equal(t, "DEAD", entries[0].Status)
			assert.Equal(t, "notifier down", entries[0].LastError)
			repo.AssertExpectations(t)
		})
	}
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("resets dead entry", func(t *testing.T) {
		repo := new(mockDeadLetterRepo)
		entry := deadEntry(tenantID)
		repo.On("FindByID", ctx, tenantID, entry.ID).Return(entry, nil)
		repo.On("Update", ctx, entry).Return(nil)

		dto, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, tenantID, entry.ID)

		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		assert.Zero(t, dto.RetryCount)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockDeadLetterRepo)
		id := uuid.New()
		repo.On("FindByID", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, tenantID, id)

		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("entry not dead", func(t *testing.T) {
		repo := new(mockDeadLetterRepo)
		event := shared.NewBaseDomainEvent("PurchaseOrderApproved", "PurchaseOrder", uuid.New(), tenantID, time.Now())
		entry := shared.NewOutboxEntry(&event, nil)
		repo.On("FindByID", ctx, tenantID, entry.ID).Return(entry, nil)

		_, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, tenantID, entry.ID)

		assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("update failure", func(t *testing.T) {
		repo := new(mockDeadLetterRepo)
		entry := deadEntry(tenantID)
		repo.On("FindByID", ctx, tenantID, entry.ID).Return(entry, nil)
		repo.On("Update", ctx, entry).Return(errors.New("db down"))

		_, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, tenantID, entry.ID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestOutboxService_GetStats(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(mockDeadLetterRepo)
	repo.On("CountByStatus", ctx, tenantID).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 2,
		shared.OutboxStatusSent:    10,
		shared.OutboxStatusDead:    1,
	}, nil)

	stats, err := NewOutboxService(repo, zap.NewNop()).GetStats(ctx, tenantID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(10), stats.Sent)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(13), stats.Total)
}
