package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// Item is a catalog entry. ReorderThreshold and LeadTimeDays are read-only
// inputs to forecasting and the reorder check.
type Item struct {
	ID               string              `db:"id" json:"id"`
	Name             string              `db:"name" json:"name"`
	SKU              string              `db:"sku" json:"sku"`
	CategoryID       *string             `db:"category_id" json:"category_id,omitempty"`
	Unit             *string             `db:"unit" json:"unit,omitempty"`
	ReorderThreshold decimal.NullDecimal `db:"reorder_threshold" json:"reorder_threshold,omitempty"`
	LeadTimeDays     *int                `db:"lead_time_days" json:"lead_time_days,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// ItemRepository handles item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO items (id, name, sku, category_id, unit, reorder_threshold, lead_time_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		item.ID, item.Name, item.SKU, item.CategoryID, item.Unit,
		item.ReorderThreshold, item.LeadTimeDays,
	).Scan(&item.CreatedAt)
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*Item, error) {
	var item Item
	query := `SELECT * FROM items WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// List lists all items
func (r *ItemRepository) List(ctx context.Context) ([]*Item, error) {
	items := []*Item{}
	query := `SELECT * FROM items ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, r.db, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByIDs fetches the given items in one query
func (r *ItemRepository) ListByIDs(ctx context.Context, ids []string) ([]*Item, error) {
	if len(ids) == 0 {
		return []*Item{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	items := []*Item{}
	if err := sqlx.SelectContext(ctx, r.db, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// SKUExists reports whether an item with the given SKU already exists
func (r *ItemRepository) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM items WHERE sku = $1)`
	if err := sqlx.GetContext(ctx, r.db, &exists, query, sku); err != nil {
		return false, err
	}
	return exists, nil
}
