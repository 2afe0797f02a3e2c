package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// Repository persists batches and movements in PostgreSQL.
type Repository struct {
	db *database.DB
	queries
}

// NewRepository creates a new ledger repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, queries: queries{ext: db.DB}}
}

// TxRepository exposes the operations available inside one ledger
// transaction. Batch rows loaded through it are locked until commit.
type TxRepository interface {
	CreateBatch(ctx context.Context, batch *InventoryBatch) error
	GetBatchForUpdate(ctx context.Context, id string) (*InventoryBatch, error)
	BatchesForDeduction(ctx context.Context, itemID string) ([]*InventoryBatch, error)
	TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error)
	UpdateBatchQuantity(ctx context.Context, batchID string, quantity decimal.Decimal) error
	CreateMovement(ctx context.Context, mov *StockMovement) error
}

type txRepo struct {
	queries
}

// WithTx executes fn inside one database transaction. All writes issued
// through the TxRepository commit or roll back together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &txRepo{queries{ext: tx}})
	})
}

// TxFrom binds a TxRepository to an externally managed transaction. Used by
// bill posting, which spans billing and ledger tables in one transaction.
func TxFrom(ext sqlx.ExtContext) TxRepository {
	return &txRepo{queries{ext: ext}}
}

// queries holds the statements shared between pooled and transactional use.
type queries struct {
	ext sqlx.ExtContext
}

// CreateBatch inserts a new batch row
func (q queries) CreateBatch(ctx context.Context, batch *InventoryBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_batches (
			id, item_id, room_id, warehouse_id, batch_number,
			quantity_total, quantity_available, expiry_date, purchase_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return q.ext.QueryRowxContext(ctx, query,
		batch.ID, batch.ItemID, batch.RoomID, batch.WarehouseID, batch.BatchNumber,
		batch.QuantityTotal, batch.QuantityAvailable, batch.ExpiryDate, batch.PurchasePrice,
	).Scan(&batch.CreatedAt)
}

// GetBatch gets a batch by ID
func (q queries) GetBatch(ctx context.Context, id string) (*InventoryBatch, error) {
	var batch InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE id = $1`
	if err := sqlx.GetContext(ctx, q.ext, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatchForUpdate loads a batch and locks its row for the duration of the
// surrounding transaction.
func (q queries) GetBatchForUpdate(ctx context.Context, id string) (*InventoryBatch, error) {
	var batch InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q.ext, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// BatchesForDeduction loads an item's non-empty batches in FIFO order
// (earliest expiry first, missing expiry last, then oldest received) and
// locks every returned row.
func (q queries) BatchesForDeduction(ctx context.Context, itemID string) ([]*InventoryBatch, error) {
	batches := []*InventoryBatch{}
	query := `
		SELECT * FROM inventory_batches
		WHERE item_id = $1 AND quantity_available > 0
		ORDER BY expiry_date ASC NULLS LAST, created_at ASC
		FOR UPDATE
	`
	if err := sqlx.SelectContext(ctx, q.ext, &batches, query, itemID); err != nil {
		return nil, err
	}
	return batches, nil
}

// TotalAvailable sums the available quantity across all of an item's batches
func (q queries) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(quantity_available), 0) FROM inventory_batches
		WHERE item_id = $1
	`
	if err := sqlx.GetContext(ctx, q.ext, &total, query, itemID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// UpdateBatchQuantity persists a new available quantity for a batch.
// QuantityTotal is never touched after creation.
func (q queries) UpdateBatchQuantity(ctx context.Context, batchID string, quantity decimal.Decimal) error {
	query := `UPDATE inventory_batches SET quantity_available = $2 WHERE id = $1`
	res, err := q.ext.ExecContext(ctx, query, batchID, quantity)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("batch")
	}
	return nil
}

// CreateMovement appends one row to the movement ledger. There is no update
// or delete counterpart anywhere in the codebase.
func (q queries) CreateMovement(ctx context.Context, mov *StockMovement) error {
	if mov.ID == "" {
		mov.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (
			id, item_id, batch_id, warehouse_id, room_id, movement_type,
			quantity, reference_type, reference_id, tx_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	return q.ext.QueryRowxContext(ctx, query,
		mov.ID, mov.ItemID, mov.BatchID, mov.WarehouseID, mov.RoomID, mov.MovementType,
		mov.Quantity, mov.ReferenceType, mov.ReferenceID, mov.TxID, mov.CreatedBy,
	).Scan(&mov.CreatedAt)
}

// ListBatchesByItem lists an item's batches, newest expiry risk first
func (r *Repository) ListBatchesByItem(ctx context.Context, itemID string) ([]*InventoryBatch, error) {
	batches := []*InventoryBatch{}
	query := `
		SELECT * FROM inventory_batches
		WHERE item_id = $1
		ORDER BY expiry_date ASC NULLS LAST, created_at ASC
	`
	if err := sqlx.SelectContext(ctx, r.ext, &batches, query, itemID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListMovementsByItem lists ledger rows for an item, newest first
func (r *Repository) ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]*StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	movements := []*StockMovement{}
	query := `
		SELECT * FROM stock_movements
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := sqlx.SelectContext(ctx, r.ext, &movements, query, itemID, limit); err != nil {
		return nil, err
	}
	return movements, nil
}

// ListMovementsByTx lists every ledger row produced by one logical operation
func (r *Repository) ListMovementsByTx(ctx context.Context, txID string) ([]*StockMovement, error) {
	movements := []*StockMovement{}
	query := `
		SELECT * FROM stock_movements
		WHERE tx_id = $1
		ORDER BY created_at ASC
	`
	if err := sqlx.SelectContext(ctx, r.ext, &movements, query, txID); err != nil {
		return nil, err
	}
	return movements, nil
}

// RoomHasStock reports whether any batch in the room still has available
// quantity. Used by the warehouse module's safe-delete rule.
func (r *Repository) RoomHasStock(ctx context.Context, roomID string) (bool, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(quantity_available), 0) FROM inventory_batches
		WHERE room_id = $1
	`
	if err := sqlx.GetContext(ctx, r.ext, &total, query, roomID); err != nil {
		return false, err
	}
	return total.IsPositive(), nil
}
