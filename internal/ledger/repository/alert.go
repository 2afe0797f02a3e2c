package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// AlertRepository handles alert persistence. Alerts are written outside the
// stock transaction; losing one never rolls back a stock mutation.
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = AlertStatusOpen
	}

	query := `
		INSERT INTO alerts (id, alert_type, item_id, message, current_stock, threshold, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.AlertType, alert.ItemID, alert.Message,
		alert.CurrentStock, alert.Threshold, alert.Status,
	).Scan(&alert.CreatedAt)
}

// ExistsOpen reports whether an unresolved alert of the given type already
// exists for the item. Used to deduplicate repeated threshold breaches.
func (r *AlertRepository) ExistsOpen(ctx context.Context, alertType, itemID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE alert_type = $1 AND item_id = $2 AND status = $3
		)
	`
	if err := sqlx.GetContext(ctx, r.db, &exists, query, alertType, itemID, AlertStatusOpen); err != nil {
		return false, err
	}
	return exists, nil
}

// List lists alerts filtered by status, newest first
func (r *AlertRepository) List(ctx context.Context, status string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	alerts := []*Alert{}
	query := `SELECT * FROM alerts WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
	if err := sqlx.SelectContext(ctx, r.db, &alerts, query, status, limit); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Resolve marks an alert resolved
func (r *AlertRepository) Resolve(ctx context.Context, id string) error {
	query := `UPDATE alerts SET status = $2, resolved_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, AlertStatusResolved)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("alert")
	}
	return nil
}
