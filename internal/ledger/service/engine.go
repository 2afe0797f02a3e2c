package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/internal/ledger/events"
	"github.com/stockline/stockline-backend/internal/ledger/repository"
	warehouserepo "github.com/stockline/stockline-backend/internal/warehouse/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Store is the persistence surface the engine needs
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, repository.TxRepository) error) error
	GetBatch(ctx context.Context, id string) (*repository.InventoryBatch, error)
	TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error)
	ListBatchesByItem(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error)
	ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]*repository.StockMovement, error)
	ListMovementsByTx(ctx context.Context, txID string) ([]*repository.StockMovement, error)
}

// ItemDirectory resolves catalog items
type ItemDirectory interface {
	GetByID(ctx context.Context, id string) (*catalogrepo.Item, error)
}

// RoomDirectory resolves rooms and their owning warehouse
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (*warehouserepo.Room, error)
}

// AlertStore persists and deduplicates operational alerts
type AlertStore interface {
	Create(ctx context.Context, alert *repository.Alert) error
	ExistsOpen(ctx context.Context, alertType, itemID string) (bool, error)
}

// Engine implements all stock mutations. Every mutation runs in one database
// transaction and appends ledger rows sharing a tx_id; events and alerts are
// emitted only after commit.
type Engine struct {
	store  Store
	items  ItemDirectory
	rooms  RoomDirectory
	alerts AlertStore
	events *events.Publisher
	logger *logger.Logger
}

// NewEngine creates a new stock engine
func NewEngine(store Store, items ItemDirectory, rooms RoomDirectory, alerts AlertStore, ev *events.Publisher, log *logger.Logger) *Engine {
	return &Engine{
		store:  store,
		items:  items,
		rooms:  rooms,
		alerts: alerts,
		events: ev,
		logger: log,
	}
}

// AddStockInput describes an incoming stock receipt
type AddStockInput struct {
	ItemID        string
	RoomID        string
	Quantity      decimal.Decimal
	BatchNumber   *string
	ExpiryDate    *time.Time
	PurchasePrice decimal.NullDecimal
	ReferenceType string
	ReferenceID   *string
	CreatedBy     *string
}

// DeductStockInput describes an outgoing stock request
type DeductStockInput struct {
	ItemID        string
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   *string
	CreatedBy     *string
}

// AdjustStockInput corrects a single batch by a signed delta
type AdjustStockInput struct {
	BatchID   string
	Delta     decimal.Decimal
	Reason    *string
	CreatedBy *string
}

// TransferStockInput moves quantity from a batch into another room of the
// same warehouse
type TransferStockInput struct {
	BatchID      string
	TargetRoomID string
	Quantity     decimal.Decimal
	CreatedBy    *string
}

// AddStock creates a batch and its IN ledger row, then publishes the
// committed movements.
func (e *Engine) AddStock(ctx context.Context, in AddStockInput) (*repository.InventoryBatch, error) {
	var (
		batch     *repository.InventoryBatch
		movements []*repository.StockMovement
	)

	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.TxRepository) error {
		var err error
		batch, movements, err = e.AddStockInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.events.MovementsRecorded(ctx, movements)
	return batch, nil
}

// AddStockInTx performs the receipt inside a caller-managed transaction.
// Billing uses this to post incoming lines atomically with the document
// update. The caller is responsible for publishing the returned movements
// after its transaction commits.
func (e *Engine) AddStockInTx(ctx context.Context, tx repository.TxRepository, in AddStockInput) (*repository.InventoryBatch, []*repository.StockMovement, error) {
	if !in.Quantity.IsPositive() {
		return nil, nil, errors.InvalidQuantity("quantity must be greater than zero")
	}

	if _, err := e.items.GetByID(ctx, in.ItemID); err != nil {
		return nil, nil, err
	}
	room, err := e.rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, nil, err
	}

	batch := &repository.InventoryBatch{
		ItemID:            in.ItemID,
		RoomID:            room.ID,
		WarehouseID:       room.WarehouseID,
		BatchNumber:       in.BatchNumber,
		QuantityTotal:     in.Quantity,
		QuantityAvailable: in.Quantity,
		ExpiryDate:        in.ExpiryDate,
		PurchasePrice:     in.PurchasePrice,
	}
	if err := tx.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	referenceType := in.ReferenceType
	if referenceType == "" {
		referenceType = repository.ReferenceManual
	}

	mov := &repository.StockMovement{
		ItemID:        in.ItemID,
		BatchID:       &batch.ID,
		WarehouseID:   &room.WarehouseID,
		RoomID:        &room.ID,
		MovementType:  repository.MovementTypeIN,
		Quantity:      in.Quantity,
		ReferenceType: referenceType,
		ReferenceID:   in.ReferenceID,
		TxID:          uuid.New().String(),
		CreatedBy:     in.CreatedBy,
	}
	if err := tx.CreateMovement(ctx, mov); err != nil {
		return nil, nil, err
	}

	e.logger.Info().
		Str("item_id", in.ItemID).
		Str("batch_id", batch.ID).
		Str("quantity", in.Quantity.String()).
		Msg("stock added")

	return batch, []*repository.StockMovement{mov}, nil
}

// DeductStock removes quantity from an item across its batches in FIFO order,
// then publishes the committed movements and runs the reorder check.
func (e *Engine) DeductStock(ctx context.Context, in DeductStockInput) ([]*repository.StockMovement, error) {
	var movements []*repository.StockMovement

	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.TxRepository) error {
		var err error
		movements, err = e.DeductStockInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.events.MovementsRecorded(ctx, movements)
	e.CheckReorder(ctx, in.ItemID)
	return movements, nil
}

// DeductStockInTx performs a FIFO deduction inside a caller-managed
// transaction. Batches expiring earliest are drained first; batches without
// an expiry date come last. Expired batches count toward the availability
// pre-check but are skipped during consumption, so an item whose remaining
// stock is entirely expired fails with a stock inconsistency and the
// transaction rolls back.
func (e *Engine) DeductStockInTx(ctx context.Context, tx repository.TxRepository, in DeductStockInput) ([]*repository.StockMovement, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.InvalidQuantity("quantity must be greater than zero")
	}

	if _, err := e.items.GetByID(ctx, in.ItemID); err != nil {
		return nil, err
	}

	total, err := tx.TotalAvailable(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if total.LessThan(in.Quantity) {
		return nil, errors.InsufficientStock(fmt.Sprintf(
			"requested %s but only %s available", in.Quantity, total,
		))
	}

	batches, err := tx.BatchesForDeduction(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	referenceType := in.ReferenceType
	if referenceType == "" {
		referenceType = repository.ReferenceManual
	}

	txID := uuid.New().String()
	today := time.Now().UTC()
	remaining := in.Quantity
	movements := []*repository.StockMovement{}

	for _, batch := range batches {
		if remaining.IsZero() {
			break
		}
		if batch.Expired(today) {
			continue
		}

		take := decimal.Min(batch.QuantityAvailable, remaining)
		if err := tx.UpdateBatchQuantity(ctx, batch.ID, batch.QuantityAvailable.Sub(take)); err != nil {
			return nil, err
		}

		mov := &repository.StockMovement{
			ItemID:        in.ItemID,
			BatchID:       &batch.ID,
			WarehouseID:   &batch.WarehouseID,
			RoomID:        &batch.RoomID,
			MovementType:  repository.MovementTypeOUT,
			Quantity:      take,
			ReferenceType: referenceType,
			ReferenceID:   in.ReferenceID,
			TxID:          txID,
			CreatedBy:     in.CreatedBy,
		}
		if err := tx.CreateMovement(ctx, mov); err != nil {
			return nil, err
		}

		movements = append(movements, mov)
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		e.logger.Error().
			Str("item_id", in.ItemID).
			Str("remaining", remaining.String()).
			Msg("stock inconsistency detected during deduction")
		return nil, errors.StockInconsistency(fmt.Sprintf(
			"stock inconsistency detected: %s of item %s could not be deducted", remaining, in.ItemID,
		))
	}

	e.logger.Info().
		Str("item_id", in.ItemID).
		Str("quantity", in.Quantity.String()).
		Int("batches_touched", len(movements)).
		Msg("stock deducted")

	return movements, nil
}

// AdjustStock corrects one batch by a signed delta. A positive delta records
// an IN movement, a negative delta an ADJUSTMENT movement; the stored
// quantity is always the magnitude.
func (e *Engine) AdjustStock(ctx context.Context, in AdjustStockInput) (*repository.StockMovement, error) {
	if in.Delta.IsZero() {
		return nil, errors.InvalidQuantity("adjustment delta must be non-zero")
	}

	var mov *repository.StockMovement

	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.TxRepository) error {
		batch, err := tx.GetBatchForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}

		newQuantity := batch.QuantityAvailable.Add(in.Delta)
		if newQuantity.IsNegative() {
			return errors.NegativeStock(fmt.Sprintf(
				"batch has %s available, adjustment of %s would go negative",
				batch.QuantityAvailable, in.Delta,
			))
		}
		if err := tx.UpdateBatchQuantity(ctx, batch.ID, newQuantity); err != nil {
			return err
		}

		movementType := repository.MovementTypeADJUSTMENT
		if in.Delta.IsPositive() {
			movementType = repository.MovementTypeIN
		}

		mov = &repository.StockMovement{
			ItemID:        batch.ItemID,
			BatchID:       &batch.ID,
			WarehouseID:   &batch.WarehouseID,
			RoomID:        &batch.RoomID,
			MovementType:  movementType,
			Quantity:      in.Delta.Abs(),
			ReferenceType: repository.ReferenceAdjustment,
			ReferenceID:   in.Reason,
			TxID:          uuid.New().String(),
			CreatedBy:     in.CreatedBy,
		}
		return tx.CreateMovement(ctx, mov)
	})
	if err != nil {
		return nil, err
	}

	e.events.MovementsRecorded(ctx, []*repository.StockMovement{mov})
	if in.Delta.IsNegative() {
		e.CheckReorder(ctx, mov.ItemID)
	}
	return mov, nil
}

// TransferStock moves quantity from a batch into another room of the same
// warehouse. The source batch keeps its remainder and a new batch is created
// in the target room carrying the same batch number, expiry and price. Both
// ledger legs share one tx_id.
func (e *Engine) TransferStock(ctx context.Context, in TransferStockInput) (*repository.InventoryBatch, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.InvalidQuantity("quantity must be greater than zero")
	}

	var (
		target    *repository.InventoryBatch
		movements []*repository.StockMovement
	)

	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.TxRepository) error {
		source, err := tx.GetBatchForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if source.QuantityAvailable.LessThan(in.Quantity) {
			return errors.InsufficientStock(fmt.Sprintf(
				"batch has %s available, cannot transfer %s",
				source.QuantityAvailable, in.Quantity,
			))
		}

		room, err := e.rooms.GetRoom(ctx, in.TargetRoomID)
		if err != nil {
			return err
		}
		if room.WarehouseID != source.WarehouseID {
			return errors.CrossWarehouseTransfer(fmt.Sprintf(
				"room %s belongs to warehouse %s, batch is in warehouse %s",
				room.ID, room.WarehouseID, source.WarehouseID,
			))
		}

		if err := tx.UpdateBatchQuantity(ctx, source.ID, source.QuantityAvailable.Sub(in.Quantity)); err != nil {
			return err
		}

		target = &repository.InventoryBatch{
			ItemID:            source.ItemID,
			RoomID:            room.ID,
			WarehouseID:       source.WarehouseID,
			BatchNumber:       source.BatchNumber,
			QuantityTotal:     in.Quantity,
			QuantityAvailable: in.Quantity,
			ExpiryDate:        source.ExpiryDate,
			PurchasePrice:     source.PurchasePrice,
		}
		if err := tx.CreateBatch(ctx, target); err != nil {
			return err
		}

		txID := uuid.New().String()
		out := &repository.StockMovement{
			ItemID:        source.ItemID,
			BatchID:       &source.ID,
			WarehouseID:   &source.WarehouseID,
			RoomID:        &source.RoomID,
			MovementType:  repository.MovementTypeTRANSFER,
			Quantity:      in.Quantity,
			ReferenceType: repository.ReferenceTransferOut,
			ReferenceID:   &target.ID,
			TxID:          txID,
			CreatedBy:     in.CreatedBy,
		}
		if err := tx.CreateMovement(ctx, out); err != nil {
			return err
		}

		inMov := &repository.StockMovement{
			ItemID:        source.ItemID,
			BatchID:       &target.ID,
			WarehouseID:   &target.WarehouseID,
			RoomID:        &target.RoomID,
			MovementType:  repository.MovementTypeTRANSFER,
			Quantity:      in.Quantity,
			ReferenceType: repository.ReferenceTransferIn,
			ReferenceID:   &source.ID,
			TxID:          txID,
			CreatedBy:     in.CreatedBy,
		}
		if err := tx.CreateMovement(ctx, inMov); err != nil {
			return err
		}

		movements = []*repository.StockMovement{out, inMov}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.MovementsRecorded(ctx, movements)
	return target, nil
}

// CheckReorder records a deduplicated alert when an item's total available
// stock drops strictly below its reorder threshold. Runs after commit;
// failures are logged and never propagate to the caller.
func (e *Engine) CheckReorder(ctx context.Context, itemID string) {
	item, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		e.logger.Warn().Err(err).Str("item_id", itemID).Msg("reorder check skipped")
		return
	}
	if !item.ReorderThreshold.Valid {
		return
	}

	total, err := e.store.TotalAvailable(ctx, itemID)
	if err != nil {
		e.logger.Warn().Err(err).Str("item_id", itemID).Msg("reorder check skipped")
		return
	}
	if total.GreaterThanOrEqual(item.ReorderThreshold.Decimal) {
		return
	}

	exists, err := e.alerts.ExistsOpen(ctx, repository.AlertTypeReorder, itemID)
	if err != nil {
		e.logger.Warn().Err(err).Str("item_id", itemID).Msg("reorder check skipped")
		return
	}
	if exists {
		return
	}

	alert := &repository.Alert{
		AlertType: repository.AlertTypeReorder,
		ItemID:    itemID,
		Message: fmt.Sprintf("stock for %s is %s, below reorder threshold %s",
			item.Name, total, item.ReorderThreshold.Decimal),
		CurrentStock: decimal.NewNullDecimal(total),
		Threshold:    item.ReorderThreshold,
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.Error().Err(err).Str("item_id", itemID).Msg("failed to create reorder alert")
		return
	}

	e.logger.Warn().
		Str("item_id", itemID).
		Str("current_stock", total.String()).
		Str("threshold", item.ReorderThreshold.Decimal.String()).
		Msg("reorder threshold breached")

	e.events.ReorderAlert(ctx, alert, item.Name)
}

// GetBatch returns a single batch
func (e *Engine) GetBatch(ctx context.Context, id string) (*repository.InventoryBatch, error) {
	return e.store.GetBatch(ctx, id)
}

// ListBatches returns an item's batches in FIFO order
func (e *Engine) ListBatches(ctx context.Context, itemID string) ([]*repository.InventoryBatch, error) {
	return e.store.ListBatchesByItem(ctx, itemID)
}

// ListMovements returns an item's ledger rows, newest first
func (e *Engine) ListMovements(ctx context.Context, itemID string, limit int) ([]*repository.StockMovement, error) {
	return e.store.ListMovementsByItem(ctx, itemID, limit)
}

// ListMovementsByTx returns every ledger row of one logical operation
func (e *Engine) ListMovementsByTx(ctx context.Context, txID string) ([]*repository.StockMovement, error) {
	return e.store.ListMovementsByTx(ctx, txID)
}

// TotalAvailable returns an item's total available stock
func (e *Engine) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return e.store.TotalAvailable(ctx, itemID)
}
