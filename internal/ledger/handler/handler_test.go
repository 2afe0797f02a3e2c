package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/internal/ledger/events"
	"github.com/stockline/stockline-backend/internal/ledger/handler"
	"github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/internal/ledger/service"
	warehouserepo "github.com/stockline/stockline-backend/internal/warehouse/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

type fakeStore struct {
	batches   map[string]*repository.InventoryBatch
	movements []*repository.StockMovement
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{batches: map[string]*repository.InventoryBatch{}}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(context.Context, repository.TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) CreateBatch(ctx context.Context, batch *repository.InventoryBatch) error {
	f.seq++
	batch.ID = fmt.Sprintf("batch-%d", f.seq)
	f.batches[batch.ID] = batch
	return nil
}

func (f *fakeStore) GetBatch(ctx context.Context, id string) (*repository.InventoryBatch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, errors.NotFound("batch")
	}
	return batch, nil
}

func (f *fakeStore) GetBatchForUpdate(ctx context.Context, id string) (*repository.InventoryBatch, error) {
	return f.GetBatch(ctx, id)
}

func (f *fakeStore) BatchesForDeduction(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	out := []*repository.InventoryBatch{}
	for _, b := range f.batches {
		if b.ItemID == itemID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, b := range f.batches {
		if b.ItemID == itemID {
			total = total.Add(b.QuantityAvailable)
		}
	}
	return total, nil
}

func (f *fakeStore) UpdateBatchQuantity(ctx context.Context, batchID string, quantity decimal.Decimal) error {
	f.batches[batchID].QuantityAvailable = quantity
	return nil
}

func (f *fakeStore) CreateMovement(ctx context.Context, mov *repository.StockMovement) error {
	f.seq++
	mov.ID = fmt.Sprintf("mov-%d", f.seq)
	f.movements = append(f.movements, mov)
	return nil
}

func (f *fakeStore) ListBatchesByItem(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	return f.BatchesForDeduction(ctx, itemID)
}

func (f *fakeStore) ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]*repository.StockMovement, error) {
	return f.movements, nil
}

func (f *fakeStore) ListMovementsByTx(ctx context.Context, txID string) ([]*repository.StockMovement, error) {
	return f.movements, nil
}

type fakeItems struct {
	items map[string]*catalogrepo.Item
}

func (f *fakeItems) GetByID(ctx context.Context, id string) (*catalogrepo.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	return item, nil
}

type fakeRooms struct {
	rooms map[string]*warehouserepo.Room
}

func (f *fakeRooms) GetRoom(ctx context.Context, id string) (*warehouserepo.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, errors.NotFound("room")
	}
	return room, nil
}

type fakeAlerts struct{}

func (f *fakeAlerts) Create(ctx context.Context, alert *repository.Alert) error { return nil }
func (f *fakeAlerts) ExistsOpen(ctx context.Context, alertType, itemID string) (bool, error) {
	return false, nil
}
func (f *fakeAlerts) List(ctx context.Context, status string, limit int) ([]*repository.Alert, error) {
	return nil, nil
}
func (f *fakeAlerts) Resolve(ctx context.Context, id string) error { return nil }

type testServer struct {
	store  *fakeStore
	router chi.Router
	itemID string
	roomID string
}

func newTestServer() *testServer {
	store := newFakeStore()
	itemID := uuid.New().String()
	roomID := uuid.New().String()

	items := &fakeItems{items: map[string]*catalogrepo.Item{
		itemID: {ID: itemID, Name: "Gloves"},
	}}
	rooms := &fakeRooms{rooms: map[string]*warehouserepo.Room{
		roomID: {ID: roomID, WarehouseID: uuid.New().String(), Name: "Main"},
	}}
	alerts := &fakeAlerts{}

	engine := service.NewEngine(store, items, rooms, alerts, events.NewPublisher(nil), logger.Nop())
	h := handler.NewHandler(engine, alerts, logger.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	return &testServer{store: store, router: r, itemID: itemID, roomID: roomID}
}

func (s *testServer) post(t *testing.T, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestAddStockCarriesReference(t *testing.T) {
	srv := newTestServer()

	rec := srv.post(t, "/stock/add", map[string]interface{}{
		"item_id":        srv.itemID,
		"room_id":        srv.roomID,
		"quantity":       "10",
		"reference_type": repository.ReferenceBillIn,
		"reference_id":   "order-42",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, srv.store.movements, 1)
	mov := srv.store.movements[0]
	assert.Equal(t, repository.ReferenceBillIn, mov.ReferenceType)
	require.NotNil(t, mov.ReferenceID)
	assert.Equal(t, "order-42", *mov.ReferenceID)
}

func TestAddStockDefaultsToManualReference(t *testing.T) {
	srv := newTestServer()

	rec := srv.post(t, "/stock/add", map[string]interface{}{
		"item_id":  srv.itemID,
		"room_id":  srv.roomID,
		"quantity": "10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, srv.store.movements, 1)
	assert.Equal(t, repository.ReferenceManual, srv.store.movements[0].ReferenceType)
}

func TestDeductStockCarriesReference(t *testing.T) {
	srv := newTestServer()

	rec := srv.post(t, "/stock/add", map[string]interface{}{
		"item_id":  srv.itemID,
		"room_id":  srv.roomID,
		"quantity": "10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.post(t, "/stock/deduct", map[string]interface{}{
		"item_id":        srv.itemID,
		"quantity":       "4",
		"reference_type": repository.ReferenceBillOut,
		"reference_id":   "sale-7",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, srv.store.movements, 2)
	mov := srv.store.movements[1]
	assert.Equal(t, repository.MovementTypeOUT, mov.MovementType)
	assert.Equal(t, repository.ReferenceBillOut, mov.ReferenceType)
	require.NotNil(t, mov.ReferenceID)
	assert.Equal(t, "sale-7", *mov.ReferenceID)
}
