package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/pkg/database"
)

// ItemQuantity is a per-item aggregate row
type ItemQuantity struct {
	ItemID   string          `db:"item_id" json:"item_id"`
	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
}

// DailySale is one day of an item's sales series
type DailySale struct {
	Date     time.Time       `db:"date" json:"date"`
	Quantity decimal.Decimal `db:"qty_sold" json:"qty_sold"`
}

// Repository runs read-only aggregates over the movement ledger and batches
type Repository struct {
	db *database.DB
}

// NewRepository creates a new analytics repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SoldSince sums OUT movements per item since the given time
func (r *Repository) SoldSince(ctx context.Context, since time.Time) ([]*ItemQuantity, error) {
	rows := []*ItemQuantity{}
	query := `
		SELECT item_id, SUM(quantity) AS quantity
		FROM stock_movements
		WHERE movement_type = 'OUT' AND created_at >= $1
		GROUP BY item_id
		ORDER BY quantity DESC
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}

// TopSelling returns the items with the highest OUT volume since the given time
func (r *Repository) TopSelling(ctx context.Context, since time.Time, limit int) ([]*ItemQuantity, error) {
	rows := []*ItemQuantity{}
	query := `
		SELECT item_id, SUM(quantity) AS quantity
		FROM stock_movements
		WHERE movement_type = 'OUT' AND created_at >= $1
		GROUP BY item_id
		ORDER BY quantity DESC
		LIMIT $2
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, since, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// LeastSelling returns the items with the lowest OUT volume since the given
// time. Items with no movements at all do not appear; DeadStock covers those.
func (r *Repository) LeastSelling(ctx context.Context, since time.Time, limit int) ([]*ItemQuantity, error) {
	rows := []*ItemQuantity{}
	query := `
		SELECT item_id, SUM(quantity) AS quantity
		FROM stock_movements
		WHERE movement_type = 'OUT' AND created_at >= $1
		GROUP BY item_id
		ORDER BY quantity ASC
		LIMIT $2
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, since, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpiringWithin returns non-empty batches whose expiry date falls inside the
// window, soonest first.
func (r *Repository) ExpiringWithin(ctx context.Context, from, to time.Time) ([]*ledgerrepo.InventoryBatch, error) {
	batches := []*ledgerrepo.InventoryBatch{}
	query := `
		SELECT * FROM inventory_batches
		WHERE quantity_available > 0
		  AND expiry_date IS NOT NULL
		  AND expiry_date BETWEEN $1 AND $2
		ORDER BY expiry_date ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &batches, query, from, to); err != nil {
		return nil, err
	}
	return batches, nil
}

// StockLevels sums available quantity per item
func (r *Repository) StockLevels(ctx context.Context) ([]*ItemQuantity, error) {
	rows := []*ItemQuantity{}
	query := `
		SELECT item_id, SUM(quantity_available) AS quantity
		FROM inventory_batches
		GROUP BY item_id
		ORDER BY quantity DESC
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeadStock returns items holding stock with no ledger activity since the
// given time.
func (r *Repository) DeadStock(ctx context.Context, since time.Time) ([]*ItemQuantity, error) {
	rows := []*ItemQuantity{}
	query := `
		SELECT b.item_id, SUM(b.quantity_available) AS quantity
		FROM inventory_batches b
		WHERE NOT EXISTS (
			SELECT 1 FROM stock_movements m
			WHERE m.item_id = b.item_id AND m.created_at >= $1
		)
		GROUP BY b.item_id
		HAVING SUM(b.quantity_available) > 0
		ORDER BY quantity DESC
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}

// DailySalesHistory returns an item's daily sold quantities since the given
// date, oldest first. Days without sales have no row.
func (r *Repository) DailySalesHistory(ctx context.Context, itemID string, since time.Time) ([]*DailySale, error) {
	rows := []*DailySale{}
	query := `
		SELECT date, qty_sold
		FROM time_series_sales
		WHERE item_id = $1 AND date >= $2
		ORDER BY date ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, itemID, since); err != nil {
		return nil, err
	}
	return rows, nil
}

// SoldForItem sums an item's OUT movements since the given time
func (r *Repository) SoldForItem(ctx context.Context, itemID string, since time.Time) (decimal.Decimal, error) {
	var sold decimal.Decimal
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE item_id = $1 AND movement_type = 'OUT' AND created_at >= $2
	`
	if err := sqlx.GetContext(ctx, r.db, &sold, query, itemID, since); err != nil {
		return decimal.Zero, err
	}
	return sold, nil
}

// CurrentStockForItem sums an item's available quantity
func (r *Repository) CurrentStockForItem(ctx context.Context, itemID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(quantity_available), 0)
		FROM inventory_batches
		WHERE item_id = $1
	`
	if err := sqlx.GetContext(ctx, r.db, &total, query, itemID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
