package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/pkg/database"
)

// DailySale is one day's aggregated sales for an item
type DailySale struct {
	Date     time.Time       `db:"date" json:"date"`
	Quantity decimal.Decimal `db:"qty_sold" json:"quantity"`
}

// Repository reads the per-item daily sales series
type Repository struct {
	db *database.DB
}

// NewRepository creates a new forecast repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// DailySales returns an item's daily sales since the given date, oldest
// first. Days without a row sold nothing.
func (r *Repository) DailySales(ctx context.Context, itemID string, since time.Time) ([]*DailySale, error) {
	sales := []*DailySale{}
	query := `
		SELECT date, qty_sold
		FROM time_series_sales
		WHERE item_id = $1 AND date >= $2
		ORDER BY date ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &sales, query, itemID, since); err != nil {
		return nil, err
	}
	return sales, nil
}
