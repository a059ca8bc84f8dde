package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-service/internal/common/logger"
	"table-service/internal/domain"
)

type fakeSync struct {
	mu        sync.Mutex
	published []domain.SyncMessage
	handler   func(domain.SyncMessage)
}

func (f *fakeSync) PublishSync(ctx context.Context, msg domain.SyncMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeSync) Subscribe(ctx context.Context, h func(domain.SyncMessage)) error {
	f.handler = h
	return nil
}

type fakeNotify struct {
	mu        sync.Mutex
	published []domain.NotifyMessage
}

func (f *fakeNotify) PublishNotify(ctx context.Context, msg domain.NotifyMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeNotify) Subscribe(ctx context.Context, h func(domain.NotifyMessage)) error {
	return nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[string]domain.Tables
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: make(map[string]domain.Tables)}
}

func (f *fakeSnapshots) Save(ctx context.Context, deviceID string, tables domain.Tables) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[deviceID] = tables.Clone()
	return nil
}

func (f *fakeSnapshots) Load(ctx context.Context, deviceID string) (domain.Tables, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.saved[deviceID]
	return t, ok, nil
}

func newTestClient(role Role) (*Client, *fakeSync, *fakeNotify, *fakeSnapshots) {
	fs := &fakeSync{}
	fn := &fakeNotify{}
	snaps := newFakeSnapshots()
	c := New(role, "dev-1", fs, fn, snaps, logger.New("test"))
	return c, fs, fn, snaps
}

func TestLocalMutationPersistsThenBroadcasts(t *testing.T) {
	c, fs, _, snaps := newTestClient(RoleCustomer)

	c.Store().AddOrder(context.Background(), "4", []domain.OrderLine{
		{ProductID: "beer", Name: "Beer", Price: 2.0, Qty: 1},
	})

	require.Len(t, fs.published, 1)
	assert.Equal(t, domain.EventNewOrder, fs.published[0].EventKind)

	saved, ok := snaps.saved["dev-1"]
	require.True(t, ok, "own mutations must reach the durable copy")
	assert.Len(t, saved["4"].Items, 1)
}

func TestRemoteSnapshotReplacesAndPersists(t *testing.T) {
	c, _, _, snaps := newTestClient(RoleWaiter)

	c.Store().AddOrder(context.Background(), "4", []domain.OrderLine{
		{ProductID: "beer", Name: "Beer", Price: 2.0, Qty: 3},
	})

	remote := domain.Tables{"4": {BillRequested: true}}
	c.handleSync(domain.SyncMessage{Tables: remote, EventKind: domain.EventBill, TableID: "4"})

	// wholesale replace: the three local items are gone, the remote truth won
	tab := c.Store().Table("4")
	assert.Empty(t, tab.Items)
	assert.True(t, tab.BillRequested)

	saved := snaps.saved["dev-1"]
	assert.True(t, saved["4"].BillRequested)
}

func TestSeedRestoresDurableCopy(t *testing.T) {
	c, _, _, snaps := newTestClient(RoleCashier)
	snaps.saved["dev-1"] = domain.Tables{
		"9": {Items: []domain.OrderItem{{ID: "beer", UnitPrice: 2.0, InstanceKey: 1, Served: true}}},
	}

	c.seed(context.Background())

	tab := c.Store().Table("9")
	require.Len(t, tab.Items, 1)
	assert.InDelta(t, 2.0, tab.ServedSubtotal(), 1e-9)
}

func TestNotifyCueIsStateFree(t *testing.T) {
	c, _, _, _ := newTestClient(RoleCustomer)

	c.handleNotify(domain.NotifyMessage{TableID: "4", Message: domain.NotifyOrderServed})

	assert.Empty(t, c.Store().Table("4").Items)
	assert.True(t, c.Store().Table("4").Empty())
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAddOrderValidation(t *testing.T) {
	c, fs, _, _ := newTestClient(RoleCustomer)
	mux := c.routes()

	rec := doJSON(t, mux, http.MethodPost, "/tables/4/orders", domain.AddOrderRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/tables/4/orders", domain.AddOrderRequest{
		Items: []domain.OrderLine{{ProductID: "beer", Name: "Beer", Price: -1, Qty: 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// nothing invalid reaches the store
	assert.Empty(t, fs.published)

	rec = doJSON(t, mux, http.MethodPost, "/tables/4/orders", domain.AddOrderRequest{
		Items: []domain.OrderLine{{ProductID: "beer", Name: "Beer", Price: 2.0, Qty: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view domain.TableView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 2, view.PendingCounts["beer"])
}

func TestCustomProductPriceValidation(t *testing.T) {
	c, fs, _, _ := newTestClient(RoleWaiter)
	mux := c.routes()

	rec := doJSON(t, mux, http.MethodPost, "/tables/4/custom-products",
		domain.AddCustomProductRequest{Name: "Cake", Price: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fs.published, "the store trusts its inputs; rejection happens here")

	rec = doJSON(t, mux, http.MethodPost, "/tables/4/custom-products",
		domain.AddCustomProductRequest{Name: "Cake", Price: 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod domain.CustomProduct
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
	assert.NotEmpty(t, prod.ID)
}

func TestKitchenStateValidation(t *testing.T) {
	c, _, _, _ := newTestClient(RoleKitchen)
	mux := c.routes()

	rec := doJSON(t, mux, http.MethodPost, "/tables/4/items/1/state",
		domain.UpdateItemStateRequest{State: "served"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/tables/4/items/notanumber/state",
		domain.UpdateItemStateRequest{State: domain.StatePreparing})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleScopedRoutes(t *testing.T) {
	customer, _, _, _ := newTestClient(RoleCustomer)
	mux := customer.routes()

	// customers cannot settle a table
	rec := doJSON(t, mux, http.MethodPost, "/tables/4/settle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// but can always read their own table
	rec = doJSON(t, mux, http.MethodGet, "/tables/4", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCashierBillView(t *testing.T) {
	c, _, _, _ := newTestClient(RoleCashier)
	ctx := context.Background()

	c.Store().AddOrder(ctx, "4", []domain.OrderLine{
		{ProductID: "beer", Name: "Beer", Price: 2.0, Qty: 2},
	})
	key := c.Store().Table("4").Items[0].InstanceKey
	c.Store().MarkServed(ctx, "4", key)
	c.Store().RequestBill(ctx, "4")

	rec := doJSON(t, c.routes(), http.MethodGet, "/tables/4/bill", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var bill struct {
		BillRequested  bool    `json:"bill_requested"`
		ServedSubtotal float64 `json:"served_subtotal"`
		BillSubtotal   float64 `json:"bill_subtotal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bill))
	assert.True(t, bill.BillRequested)
	assert.InDelta(t, 2.0, bill.ServedSubtotal, 1e-9)
	assert.InDelta(t, 4.0, bill.BillSubtotal, 1e-9)
}
