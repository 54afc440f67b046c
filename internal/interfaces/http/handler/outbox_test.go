package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/application/event"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDeadLetters struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func (s *stubDeadLetters) FindByID(_ context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := s.entries[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubDeadLetters) FindDead(_ context.Context, tenantID uuid.UUID, _, _ int) ([]*shared.OutboxEntry, int64, error) {
	var out []*shared.OutboxEntry
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.IsDead() {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubDeadLetters) CountByStatus(_ context.Context, tenantID uuid.UUID) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (s *stubDeadLetters) Update(_ context.Context, entry *shared.OutboxEntry) error {
	s.entries[entry.ID] = entry
	return nil
}

func TestOutboxHandler(t *testing.T) {
	tenantID := uuid.New()
	otherTenant := uuid.New()

	newEntry := func(tenant uuid.UUID, dead bool) *shared.OutboxEntry {
		evt := shared.NewBaseDomainEvent("PurchaseOrderSubmitted", "PurchaseOrder", uuid.New(), tenant, time.Now())
		e := shared.NewOutboxEntry(&evt, []byte(`{}`))
		if dead {
			e.MaxRetries = 1
			e.MarkFailed("boom")
		}
		return e
	}
	dead := newEntry(tenantID, true)
	pending := newEntry(tenantID, false)
	foreign := newEntry(otherTenant, true)
	repo := &stubDeadLetters{entries: map[uuid.UUID]*shared.OutboxEntry{
		dead.ID: dead, pending.ID: pending, foreign.ID: foreign,
	}}

	h := NewOutboxHandler(event.NewOutboxService(repo, zap.NewNop()))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		setAuthContext(c, tenantID, "admin")
		c.Next()
	})
	r.GET("/outbox/stats", h.GetStats)
	r.GET("/outbox/dead", h.GetDeadLetterEntries)
	r.POST("/outbox/dead/:id/retry", h.RetryDeadEntry)

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	t.Run("stats are tenant scoped", func(t *testing.T) {
		w := serve(http.MethodGet, "/outbox/stats")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.EqualValues(t, 2, data["total"])
		assert.EqualValues(t, 1, data["dead"])
	})

	t.Run("dead list", func(t *testing.T) {
		w := serve(http.MethodGet, "/outbox/dead")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Len(t, resp.Data, 1)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("retry other tenant's entry", func(t *testing.T) {
		w := serve(http.MethodPost, "/outbox/dead/"+foreign.ID.String()+"/retry")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("retry pending entry", func(t *testing.T) {
		w := serve(http.MethodPost, "/outbox/dead/"+pending.ID.String()+"/retry")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidTransition, errorCode(t, w))
	})

	t.Run("retry dead entry", func(t *testing.T) {
		w := serve(http.MethodPost, "/outbox/dead/"+dead.ID.String()+"/retry")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, shared.OutboxStatusPending, repo.entries[dead.ID].Status)
	})
}
