package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/internal/ledger/events"
	"github.com/stockline/stockline-backend/internal/ledger/repository"
	warehouserepo "github.com/stockline/stockline-backend/internal/warehouse/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStore is an in-memory Store with snapshot-based rollback
type fakeStore struct {
	batches   map[string]*repository.InventoryBatch
	movements []*repository.StockMovement
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{batches: map[string]*repository.InventoryBatch{}}
}

func (s *fakeStore) nextTime() time.Time {
	s.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

func (s *fakeStore) addBatch(b *repository.InventoryBatch) *repository.InventoryBatch {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CreatedAt = s.nextTime()
	s.batches[b.ID] = b
	return b
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, repository.TxRepository) error) error {
	snapshot := map[string]*repository.InventoryBatch{}
	for id, b := range s.batches {
		copied := *b
		snapshot[id] = &copied
	}
	movementCount := len(s.movements)

	if err := fn(ctx, &fakeTx{store: s}); err != nil {
		s.batches = snapshot
		s.movements = s.movements[:movementCount]
		return err
	}
	return nil
}

func (s *fakeStore) GetBatch(ctx context.Context, id string) (*repository.InventoryBatch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, errors.NotFound("batch")
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, b := range s.batches {
		if b.ItemID == itemID {
			total = total.Add(b.QuantityAvailable)
		}
	}
	return total, nil
}

func (s *fakeStore) ListBatchesByItem(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	return s.fifoBatches(itemID, false), nil
}

func (s *fakeStore) ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]*repository.StockMovement, error) {
	out := []*repository.StockMovement{}
	for _, m := range s.movements {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListMovementsByTx(ctx context.Context, txID string) ([]*repository.StockMovement, error) {
	out := []*repository.StockMovement{}
	for _, m := range s.movements {
		if m.TxID == txID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) fifoBatches(itemID string, onlyAvailable bool) []*repository.InventoryBatch {
	out := []*repository.InventoryBatch{}
	for _, b := range s.batches {
		if b.ItemID != itemID {
			continue
		}
		if onlyAvailable && !b.QuantityAvailable.IsPositive() {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return out
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) CreateBatch(ctx context.Context, batch *repository.InventoryBatch) error {
	t.store.addBatch(batch)
	return nil
}

func (t *fakeTx) GetBatchForUpdate(ctx context.Context, id string) (*repository.InventoryBatch, error) {
	return t.store.GetBatch(ctx, id)
}

func (t *fakeTx) BatchesForDeduction(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	return t.store.fifoBatches(itemID, true), nil
}

func (t *fakeTx) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return t.store.TotalAvailable(ctx, itemID)
}

func (t *fakeTx) UpdateBatchQuantity(ctx context.Context, batchID string, quantity decimal.Decimal) error {
	b, ok := t.store.batches[batchID]
	if !ok {
		return errors.NotFound("batch")
	}
	b.QuantityAvailable = quantity
	return nil
}

func (t *fakeTx) CreateMovement(ctx context.Context, mov *repository.StockMovement) error {
	if mov.ID == "" {
		mov.ID = uuid.New().String()
	}
	mov.CreatedAt = t.store.nextTime()
	t.store.movements = append(t.store.movements, mov)
	return nil
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

type fakeAlerts struct {
	created []*repository.Alert
}

func (f *fakeAlerts) Create(ctx context.Context, alert *repository.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = repository.AlertStatusOpen
	}
	f.created = append(f.created, alert)
	return nil
}

func (f *fakeAlerts) ExistsOpen(ctx context.Context, alertType, itemID string) (bool, error) {
	for _, a := range f.created {
		if a.AlertType == alertType && a.ItemID == itemID && a.Status == repository.AlertStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	engine *Engine
	store  *fakeStore
	items  *fakeItems
	rooms  *fakeRooms
	alerts *fakeAlerts
}

func newFixture() *fixture {
	store := newFakeStore()
	items := &fakeItems{items: map[string]*catalogrepo.Item{}}
	rooms := &fakeRooms{rooms: map[string]*warehouserepo.Room{}}
	alerts := &fakeAlerts{}
	log := logger.Nop()
	engine := NewEngine(store, items, rooms, alerts, events.NewPublisher(nil), log)
	return &fixture{engine: engine, store: store, items: items, rooms: rooms, alerts: alerts}
}

func (f *fixture) addItem(name string, threshold *decimal.Decimal) *catalogrepo.Item {
	item := &catalogrepo.Item{ID: uuid.New().String(), Name: name, SKU: "SKU-" + name}
	if threshold != nil {
		item.ReorderThreshold = decimal.NewNullDecimal(*threshold)
	}
	f.items.items[item.ID] = item
	return item
}

func (f *fixture) addRoom(warehouseID string) *warehouserepo.Room {
	room := &warehouserepo.Room{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		Name:        "room",
		RoomType:    warehouserepo.RoomTypeNormal,
	}
	f.rooms.rooms[room.ID] = room
	return room
}

func (f *fixture) seedBatch(itemID string, room *warehouserepo.Room, qty string, expiry *time.Time) *repository.InventoryBatch {
	return f.store.addBatch(&repository.InventoryBatch{
		ItemID:            itemID,
		RoomID:            room.ID,
		WarehouseID:       room.WarehouseID,
		QuantityTotal:     dec(qty),
		QuantityAvailable: dec(qty),
		ExpiryDate:        expiry,
	})
}

func daysFromNow(days int) *time.Time {
	t := time.Now().UTC().AddDate(0, 0, days)
	return &t
}

func TestAddStock(t *testing.T) {
	f := newFixture()
	item := f.addItem("syringes", nil)
	room := f.addRoom("wh-1")

	batch, err := f.engine.AddStock(context.Background(), AddStockInput{
		ItemID:   item.ID,
		RoomID:   room.ID,
		Quantity: dec("25"),
	})
	require.NoError(t, err)

	assert.Equal(t, room.WarehouseID, batch.WarehouseID)
	assert.True(t, batch.QuantityTotal.Equal(dec("25")))
	assert.True(t, batch.QuantityAvailable.Equal(dec("25")))

	require.Len(t, f.store.movements, 1)
	mov := f.store.movements[0]
	assert.Equal(t, repository.MovementTypeIN, mov.MovementType)
	assert.Equal(t, repository.ReferenceManual, mov.ReferenceType)
	assert.True(t, mov.Quantity.Equal(dec("25")))
	assert.Equal(t, batch.ID, *mov.BatchID)
	assert.NotEmpty(t, mov.TxID)
}

func TestAddStockRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture()
	item := f.addItem("syringes", nil)
	room := f.addRoom("wh-1")

	for _, qty := range []string{"0", "-3"} {
		_, err := f.engine.AddStock(context.Background(), AddStockInput{
			ItemID:   item.ID,
			RoomID:   room.ID,
			Quantity: dec(qty),
		})
		assert.ErrorIs(t, err, errors.ErrInvalidQuantity)
	}
	assert.Empty(t, f.store.movements)
}

func TestAddStockUnknownItem(t *testing.T) {
	f := newFixture()
	room := f.addRoom("wh-1")

	_, err := f.engine.AddStock(context.Background(), AddStockInput{
		ItemID:   uuid.New().String(),
		RoomID:   room.ID,
		Quantity: dec("5"),
	})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeductStockFIFO(t *testing.T) {
	f := newFixture()
	item := f.addItem("gloves", nil)
	room := f.addRoom("wh-1")

	first := f.seedBatch(item.ID, room, "5", daysFromNow(10))
	second := f.seedBatch(item.ID, room, "10", daysFromNow(30))

	movements, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("7"),
	})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, first.ID, *movements[0].BatchID)
	assert.True(t, movements[0].Quantity.Equal(dec("5")))
	assert.Equal(t, second.ID, *movements[1].BatchID)
	assert.True(t, movements[1].Quantity.Equal(dec("2")))

	assert.Equal(t, movements[0].TxID, movements[1].TxID)
	for _, m := range movements {
		assert.Equal(t, repository.MovementTypeOUT, m.MovementType)
	}

	assert.True(t, f.store.batches[first.ID].QuantityAvailable.IsZero())
	assert.True(t, f.store.batches[second.ID].QuantityAvailable.Equal(dec("8")))
}

func TestDeductStockPrefersEarliestExpiryOverArrival(t *testing.T) {
	f := newFixture()
	item := f.addItem("gloves", nil)
	room := f.addRoom("wh-1")

	older := f.seedBatch(item.ID, room, "5", daysFromNow(60))
	urgent := f.seedBatch(item.ID, room, "5", daysFromNow(3))
	undated := f.seedBatch(item.ID, room, "5", nil)

	movements, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("12"),
	})
	require.NoError(t, err)
	require.Len(t, movements, 3)

	assert.Equal(t, urgent.ID, *movements[0].BatchID)
	assert.Equal(t, older.ID, *movements[1].BatchID)
	assert.Equal(t, undated.ID, *movements[2].BatchID)
	assert.True(t, f.store.batches[undated.ID].QuantityAvailable.Equal(dec("3")))
}

func TestDeductStockSkipsExpiredBatches(t *testing.T) {
	f := newFixture()
	item := f.addItem("saline", nil)
	room := f.addRoom("wh-1")

	expired := f.seedBatch(item.ID, room, "5", daysFromNow(-2))
	fresh := f.seedBatch(item.ID, room, "10", daysFromNow(30))

	movements, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("6"),
	})
	require.NoError(t, err)
	require.Len(t, movements, 1)

	assert.Equal(t, fresh.ID, *movements[0].BatchID)
	assert.True(t, f.store.batches[expired.ID].QuantityAvailable.Equal(dec("5")))
	assert.True(t, f.store.batches[fresh.ID].QuantityAvailable.Equal(dec("4")))
}

func TestDeductStockInsufficient(t *testing.T) {
	f := newFixture()
	item := f.addItem("saline", nil)
	room := f.addRoom("wh-1")
	batch := f.seedBatch(item.ID, room, "3", daysFromNow(30))

	_, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("5"),
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("3")))
	assert.Empty(t, f.store.movements)
}

func TestDeductStockExpiredOnlyStockRollsBack(t *testing.T) {
	f := newFixture()
	item := f.addItem("saline", nil)
	room := f.addRoom("wh-1")

	expired := f.seedBatch(item.ID, room, "5", daysFromNow(-2))
	partial := f.seedBatch(item.ID, room, "2", daysFromNow(30))

	// Pre-check passes on the raw sum, consumption cannot cover the request.
	_, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("4"),
	})
	assert.ErrorIs(t, err, errors.ErrStockInconsistency)

	assert.True(t, f.store.batches[expired.ID].QuantityAvailable.Equal(dec("5")))
	assert.True(t, f.store.batches[partial.ID].QuantityAvailable.Equal(dec("2")))
	assert.Empty(t, f.store.movements)
}

func TestAdjustStockPositiveDelta(t *testing.T) {
	f := newFixture()
	item := f.addItem("masks", nil)
	room := f.addRoom("wh-1")
	batch := f.seedBatch(item.ID, room, "10", nil)

	reason := "cycle count surplus"
	mov, err := f.engine.AdjustStock(context.Background(), AdjustStockInput{
		BatchID: batch.ID,
		Delta:   dec("3"),
		Reason:  &reason,
	})
	require.NoError(t, err)

	assert.Equal(t, repository.MovementTypeIN, mov.MovementType)
	assert.Equal(t, repository.ReferenceAdjustment, mov.ReferenceType)
	assert.True(t, mov.Quantity.Equal(dec("3")))
	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("13")))
}

func TestAdjustStockNegativeDelta(t *testing.T) {
	f := newFixture()
	item := f.addItem("masks", nil)
	room := f.addRoom("wh-1")
	batch := f.seedBatch(item.ID, room, "10", nil)

	mov, err := f.engine.AdjustStock(context.Background(), AdjustStockInput{
		BatchID: batch.ID,
		Delta:   dec("-4"),
	})
	require.NoError(t, err)

	assert.Equal(t, repository.MovementTypeADJUSTMENT, mov.MovementType)
	assert.True(t, mov.Quantity.Equal(dec("4")), "ledger stores the magnitude")
	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("6")))
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	f := newFixture()
	item := f.addItem("masks", nil)
	room := f.addRoom("wh-1")
	batch := f.seedBatch(item.ID, room, "2", nil)

	_, err := f.engine.AdjustStock(context.Background(), AdjustStockInput{
		BatchID: batch.ID,
		Delta:   dec("-5"),
	})
	assert.ErrorIs(t, err, errors.ErrNegativeStock)
	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("2")))
	assert.Empty(t, f.store.movements)
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	f := newFixture()

	_, err := f.engine.AdjustStock(context.Background(), AdjustStockInput{
		BatchID: uuid.New().String(),
		Delta:   decimal.Zero,
	})
	assert.ErrorIs(t, err, errors.ErrInvalidQuantity)
}

func TestTransferStock(t *testing.T) {
	f := newFixture()
	item := f.addItem("gauze", nil)
	source := f.addRoom("wh-1")
	target := f.addRoom("wh-1")

	batchNumber := "LOT-42"
	batch := f.store.addBatch(&repository.InventoryBatch{
		ItemID:            item.ID,
		RoomID:            source.ID,
		WarehouseID:       source.WarehouseID,
		BatchNumber:       &batchNumber,
		QuantityTotal:     dec("10"),
		QuantityAvailable: dec("10"),
		ExpiryDate:        daysFromNow(90),
	})

	created, err := f.engine.TransferStock(context.Background(), TransferStockInput{
		BatchID:      batch.ID,
		TargetRoomID: target.ID,
		Quantity:     dec("4"),
	})
	require.NoError(t, err)

	assert.Equal(t, target.ID, created.RoomID)
	assert.Equal(t, source.WarehouseID, created.WarehouseID)
	assert.Equal(t, batchNumber, *created.BatchNumber)
	assert.True(t, created.QuantityAvailable.Equal(dec("4")))
	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("6")))

	// Total stock is conserved across the transfer.
	total, err := f.store.TotalAvailable(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10")))

	require.Len(t, f.store.movements, 2)
	out, in := f.store.movements[0], f.store.movements[1]
	assert.Equal(t, repository.ReferenceTransferOut, out.ReferenceType)
	assert.Equal(t, repository.ReferenceTransferIn, in.ReferenceType)
	assert.Equal(t, out.TxID, in.TxID)
	assert.Equal(t, repository.MovementTypeTRANSFER, out.MovementType)
	assert.Equal(t, repository.MovementTypeTRANSFER, in.MovementType)
}

func TestTransferStockRejectsCrossWarehouse(t *testing.T) {
	f := newFixture()
	item := f.addItem("gauze", nil)
	source := f.addRoom("wh-1")
	other := f.addRoom("wh-2")
	batch := f.seedBatch(item.ID, source, "10", nil)

	_, err := f.engine.TransferStock(context.Background(), TransferStockInput{
		BatchID:      batch.ID,
		TargetRoomID: other.ID,
		Quantity:     dec("4"),
	})
	assert.ErrorIs(t, err, errors.ErrCrossWarehouseTransfer)

	assert.True(t, f.store.batches[batch.ID].QuantityAvailable.Equal(dec("10")))
	assert.Len(t, f.store.batches, 1)
	assert.Empty(t, f.store.movements)
}

func TestTransferStockInsufficient(t *testing.T) {
	f := newFixture()
	item := f.addItem("gauze", nil)
	source := f.addRoom("wh-1")
	target := f.addRoom("wh-1")
	batch := f.seedBatch(item.ID, source, "3", nil)

	_, err := f.engine.TransferStock(context.Background(), TransferStockInput{
		BatchID:      batch.ID,
		TargetRoomID: target.ID,
		Quantity:     dec("5"),
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)
	assert.Len(t, f.store.batches, 1)
}

func TestDeductStockTriggersReorderAlert(t *testing.T) {
	f := newFixture()
	threshold := dec("5")
	item := f.addItem("syringes", &threshold)
	room := f.addRoom("wh-1")
	f.seedBatch(item.ID, room, "10", nil)

	_, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("6"),
	})
	require.NoError(t, err)

	require.Len(t, f.alerts.created, 1)
	alert := f.alerts.created[0]
	assert.Equal(t, repository.AlertTypeReorder, alert.AlertType)
	assert.Equal(t, item.ID, alert.ItemID)
	assert.True(t, alert.CurrentStock.Decimal.Equal(dec("4")))
	assert.True(t, alert.Threshold.Decimal.Equal(dec("5")))

	// A second breach while the alert is open does not duplicate it.
	_, err = f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("1"),
	})
	require.NoError(t, err)
	assert.Len(t, f.alerts.created, 1)
}

func TestDeductStockAtThresholdNoAlert(t *testing.T) {
	f := newFixture()
	threshold := dec("5")
	item := f.addItem("syringes", &threshold)
	room := f.addRoom("wh-1")
	f.seedBatch(item.ID, room, "10", nil)

	// Landing exactly on the threshold is not yet a breach.
	_, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("5"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.alerts.created)
}

func TestDeductStockAboveThresholdNoAlert(t *testing.T) {
	f := newFixture()
	threshold := dec("5")
	item := f.addItem("syringes", &threshold)
	room := f.addRoom("wh-1")
	f.seedBatch(item.ID, room, "20", nil)

	_, err := f.engine.DeductStock(context.Background(), DeductStockInput{
		ItemID:   item.ID,
		Quantity: dec("6"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.alerts.created)
}
