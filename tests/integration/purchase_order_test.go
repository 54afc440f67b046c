package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	tradeapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/auth"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/config"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/event"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/storage"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/handler"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/middleware"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func ladder() *trade.ApprovalLadder {
	limit := decimal.NewFromInt(1000)
	return trade.MustApprovalLadder([]trade.ApprovalLevel{
		{Level: 1, Name: "manager", Approvers: []string{"manager"}, MaxAmount: &limit},
		{Level: 2, Name: "cfo", Approvers: []string{"cfo"}, MinAmount: &limit},
	})
}

func newOrder(t *testing.T, repo trade.PurchaseOrderRepository, tenantID uuid.UUID) *trade.PurchaseOrder {
	t.Helper()
	number, err := repo.GenerateOrderNumber(context.Background(), tenantID)
	require.NoError(t, err)
	order, err := trade.NewPurchaseOrder(tenantID, number, uuid.New(), "Acme Supplies", valueobject.EUR, "author")
	require.NoError(t, err)
	warehouseID := uuid.New()
	order.WarehouseID = &warehouseID
	_, err = order.AddItem(trade.LineItemInput{
		ProductID:   uuid.New(),
		ProductCode: "SKU-1",
		ProductName: "Widget",
		Quantity:    10,
		UnitPrice:   decimal.RequireFromString("12.50"),
		TaxPercent:  decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	return order
}

func countOutbox(t *testing.T, db *TestDB, aggregateID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.DB.Table("outbox_events").Where("aggregate_id = ?", aggregateID).Count(&count).Error)
	return count
}

func TestPurchaseOrderRepository_Postgres(t *testing.T) {
	db := NewTestDB(t)
	db.CleanTables()
	ctx := context.Background()

	repo := persistence.NewGormPurchaseOrderRepository(db.DB)
	repo.SetOutboxEventSaver(event.NewOutboxPublisher(event.NewPurchaseOrderSerializer(), 0))
	tenantID := uuid.New()

	t.Run("order numbers are sequential per tenant", func(t *testing.T) {
		first := newOrder(t, repo, tenantID)
		require.NoError(t, repo.Create(ctx, first))
		second, err := repo.GenerateOrderNumber(ctx, tenantID)
		require.NoError(t, err)
		assert.NotEqual(t, first.OrderNumber, second)
		assert.Regexp(t, `^PO-\d{4}-\d{5}$`, second)
	})

	t.Run("compare and swap on version", func(t *testing.T) {
		order := newOrder(t, repo, tenantID)
		require.NoError(t, repo.Create(ctx, order))
		assert.Equal(t, int64(1), countOutbox(t, db, order.ID), "created event")

		a, version, err := repo.Load(ctx, tenantID, order.ID)
		require.NoError(t, err)
		b, _, err := repo.Load(ctx, tenantID, order.ID)
		require.NoError(t, err)

		l := ladder()
		require.NoError(t, a.Submit(l, trade.NewActor("author")))
		require.NoError(t, repo.Save(ctx, a, version))
		assert.Equal(t, version+1, a.Version)

		require.NoError(t, b.Cancel(trade.NewActor("author"), "duplicate"))
		err = repo.Save(ctx, b, version)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeConcurrencyConflict))

		stored, storedVersion, err := repo.Load(ctx, tenantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, version+1, storedVersion)
		assert.Equal(t, trade.PurchaseOrderStatusPending, stored.Status())
		assert.Equal(t, int64(2), countOutbox(t, db, order.ID), "the losing write leaves no events")
	})

	t.Run("fractional amounts reload without drift", func(t *testing.T) {
		order := newOrder(t, repo, tenantID)
		_, err := order.AddItem(trade.LineItemInput{
			ProductID:       uuid.New(),
			ProductCode:     "SKU-2",
			ProductName:     "Gasket",
			Quantity:        1,
			UnitPrice:       decimal.RequireFromString("9.99"),
			DiscountPercent: decimal.NewFromInt(15),
			TaxPercent:      decimal.NewFromInt(7),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, order))

		stored, version, err := repo.Load(ctx, tenantID, order.ID)
		require.NoError(t, err)
		_, consistent, err := stored.VerifyTotals()
		require.NoError(t, err)
		assert.True(t, consistent)
		assert.True(t, stored.Total.Amount().Equal(decimal.RequireFromString("159.0859")), "total %s", stored.Total)

		require.NoError(t, stored.Submit(ladder(), trade.NewActor("author")))
		require.NoError(t, repo.Save(ctx, stored, version))
	})

	t.Run("tenant isolation", func(t *testing.T) {
		order := newOrder(t, repo, tenantID)
		require.NoError(t, repo.Create(ctx, order))

		_, _, err := repo.Load(ctx, uuid.New(), order.ID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

// apiEnv is the HTTP stack wired the way the server wires it, on postgres with the outbox
type apiEnv struct {
	engine    *gin.Engine
	jwt       *auth.JWTService
	tenantID  uuid.UUID
	snapshots *storage.MemorySnapshotStore
}

func newAPIEnv(t *testing.T, db *TestDB) *apiEnv {
	t.Helper()
	log := zap.NewNop()
	l := ladder()

	repo := persistence.NewGormPurchaseOrderRepository(db.DB)
	serializer := event.NewPurchaseOrderSerializer()
	repo.SetOutboxEventSaver(event.NewOutboxPublisher(serializer, 0))

	snapshots := storage.NewMemorySnapshotStore()
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(tradeapp.NewSnapshotArchiveHandler(repo, l, snapshots, log))
	require.NoError(t, bus.Start(context.Background()))

	processor := event.NewOutboxProcessor(event.NewGormOutboxRepository(db.DB), bus, serializer,
		event.OutboxProcessorConfig{BatchSize: 50, PollInterval: 100 * time.Millisecond}, log)
	require.NoError(t, processor.Start(context.Background()))
	t.Cleanup(func() {
		_ = processor.Stop(context.Background())
		_ = bus.Stop(context.Background())
	})

	svc := tradeapp.NewPurchaseOrderService(repo, l, tradeapp.NewLadderActorResolver(l, false))
	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "integration-secret", Issuer: "po-engine"})

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine).Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{JWTService: jwtService, Logger: log}),
		middleware.TenantMiddleware(),
	)
	h := handler.NewPurchaseOrderHandler(svc)
	r.Register(router.PurchaseOrderRoutes(h)).Register(router.ApprovalLadderRoutes(h))
	r.Setup()

	return &apiEnv{engine: engine, jwt: jwtService, tenantID: uuid.New(), snapshots: snapshots}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (e *apiEnv) call(t *testing.T, user, method, path string, body any) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, _, err := e.jwt.GenerateToken(auth.GenerateTokenInput{TenantID: e.tenantID, UserID: user}, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (e *apiEnv) order(t *testing.T, resp apiResponse) tradeapp.PurchaseOrderResponse {
	t.Helper()
	var order tradeapp.PurchaseOrderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	return order
}

func receiveBody(lineID uuid.UUID, quantity int64) map[string]any {
	return map[string]any{"items": []map[string]any{{"line_id": lineID, "quantity": quantity}}}
}

func TestPurchaseOrderAPI_Postgres(t *testing.T) {
	db := NewTestDB(t)
	db.CleanTables()
	env := newAPIEnv(t, db)

	code, _ := env.call(t, "", http.MethodGet, "/purchase-orders", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	warehouseID := uuid.New()
	code, resp := env.call(t, "author", http.MethodPost, "/purchase-orders", map[string]any{
		"supplier_id":   uuid.New(),
		"supplier_name": "Acme Supplies",
		"warehouse_id":  warehouseID,
		"items": []map[string]any{
			{"product_id": uuid.New(), "product_code": "SKU-1", "product_name": "Widget", "quantity": 10, "unit_price": "150", "tax_percent": "20"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	created := env.order(t, resp)
	assert.True(t, decimal.NewFromInt(1800).Equal(created.Total), created.Total.String())
	base := "/purchase-orders/" + created.ID.String()
	lineID := created.Items[0].ID

	steps := []struct {
		user, path string
		body       any
		code       int
		status     string
	}{
		{"author", "/submit", nil, http.StatusOK, "pending"},
		{"cfo", "/approve", map[string]any{"level": 2}, http.StatusUnprocessableEntity, ""},
		{"manager", "/approve", map[string]any{"level": 1}, http.StatusOK, "partially_approved"},
		{"cfo", "/approve", map[string]any{"level": 2}, http.StatusOK, "approved"},
		{"buyer", "/dispatch", nil, http.StatusOK, "sent"},
		{"clerk", "/receive", receiveBody(lineID, 6), http.StatusOK, "partially_received"},
		{"clerk", "/receive", receiveBody(lineID, 5), http.StatusUnprocessableEntity, ""},
		{"clerk", "/receive", receiveBody(lineID, 4), http.StatusOK, "received"},
		{"buyer", "/close", nil, http.StatusOK, "closed"},
	}
	for _, step := range steps {
		code, resp := env.call(t, step.user, http.MethodPost, base+step.path, step.body)
		require.Equal(t, step.code, code, "%s %s", step.user, step.path)
		if step.code != http.StatusOK {
			require.NotNil(t, resp.Error)
			continue
		}
		assert.Equal(t, step.status, env.order(t, resp).Status, step.path)
	}

	code, resp = env.call(t, "auditor", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	final := env.order(t, resp)
	assert.True(t, final.LedgerConsistent)
	assert.True(t, final.TotalsConsistent)
	assert.Len(t, final.ApprovalHistory, 2)
	assert.Len(t, final.Receipts, 2)

	// the closed event reaches the archive through the outbox
	require.Eventually(t, func() bool {
		return len(env.snapshots.Keys()) == 1
	}, 10*time.Second, 100*time.Millisecond)

	var pending int64
	require.NoError(t, db.DB.Table("outbox_events").Where("status <> ?", shared.OutboxStatusSent).Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestPurchaseOrderAPI_ConcurrentApprovals_Postgres(t *testing.T) {
	db := NewTestDB(t)
	db.CleanTables()
	env := newAPIEnv(t, db)

	code, resp := env.call(t, "author", http.MethodPost, "/purchase-orders", map[string]any{
		"supplier_id":   uuid.New(),
		"supplier_name": "Acme Supplies",
		"warehouse_id":  uuid.New(),
		"items": []map[string]any{
			{"product_id": uuid.New(), "product_code": "SKU-1", "product_name": "Widget", "quantity": 1, "unit_price": "10"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	order := env.order(t, resp)
	base := "/purchase-orders/" + order.ID.String()

	code, resp = env.call(t, "author", http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	version := env.order(t, resp).Version

	// both approvals claim the same version; only one may win
	codes := make(chan int, 2)
	for range 2 {
		go func() {
			code, _ := env.call(t, "manager", http.MethodPost, base+"/approve",
				map[string]any{"level": 1, "expected_version": version})
			codes <- code
		}()
	}
	got := []int{<-codes, <-codes}
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, got)
}
