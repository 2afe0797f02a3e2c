package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// Category groups catalog items
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	query := `INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, query, category.ID, category.Name).Scan(&category.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return errors.Conflict("category name already exists")
	}
	return err
}

// GetByID gets a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*Category, error) {
	var category Category
	query := `SELECT * FROM categories WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("category")
		}
		return nil, err
	}
	return &category, nil
}

// List lists all categories
func (r *CategoryRepository) List(ctx context.Context) ([]*Category, error) {
	categories := []*Category{}
	query := `SELECT * FROM categories ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, r.db, &categories, query); err != nil {
		return nil, err
	}
	return categories, nil
}
