package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// Repository persists billing documents and lines
type Repository struct {
	db *database.DB
	billQueries
}

// NewRepository creates a new billing repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, billQueries: billQueries{ext: db.DB}}
}

// BillTx is the billing transaction surface. Ledger exposes the stock engine
// bound to the same database transaction, so a bill's document update and its
// stock mutations commit or roll back as one unit.
type BillTx interface {
	CreateBill(ctx context.Context, bill *BillingDocument) error
	CreateLine(ctx context.Context, line *BillingLine) error
	GetBillForUpdate(ctx context.Context, id string) (*BillingDocument, error)
	GetLines(ctx context.Context, billID string) ([]*BillingLine, error)
	SetPosted(ctx context.Context, billID, invoiceFilePath string, postedAt time.Time) error
	Ledger() ledgerrepo.TxRepository
}

type billTx struct {
	billQueries
	ledger ledgerrepo.TxRepository
}

func (t *billTx) Ledger() ledgerrepo.TxRepository {
	return t.ledger
}

// WithTx executes fn inside one database transaction
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, BillTx) error) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &billTx{
			billQueries: billQueries{ext: tx},
			ledger:      ledgerrepo.TxFrom(tx),
		})
	})
}

type billQueries struct {
	ext sqlx.ExtContext
}

// CreateBill inserts a new billing document
func (q billQueries) CreateBill(ctx context.Context, bill *BillingDocument) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.Status == "" {
		bill.Status = StatusDraft
	}

	query := `
		INSERT INTO billing_documents (
			id, bill_number, billing_type, warehouse_id, counterpart_info, total_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return q.ext.QueryRowxContext(ctx, query,
		bill.ID, bill.BillNumber, bill.BillingType, bill.WarehouseID,
		bill.CounterpartInfo, bill.TotalAmount, bill.Status,
	).Scan(&bill.CreatedAt)
}

// CreateLine inserts a billing line
func (q billQueries) CreateLine(ctx context.Context, line *BillingLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}

	query := `
		INSERT INTO billing_lines (id, bill_id, item_id, room_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ext.ExecContext(ctx, query,
		line.ID, line.BillID, line.ItemID, line.RoomID,
		line.Quantity, line.UnitPrice, line.TotalPrice,
	)
	return err
}

// GetBill gets a bill by ID
func (q billQueries) GetBill(ctx context.Context, id string) (*BillingDocument, error) {
	var bill BillingDocument
	query := `SELECT * FROM billing_documents WHERE id = $1`
	if err := sqlx.GetContext(ctx, q.ext, &bill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("bill")
		}
		return nil, err
	}
	return &bill, nil
}

// GetBillForUpdate loads a bill and locks its row, serializing concurrent
// posting attempts on the same document.
func (q billQueries) GetBillForUpdate(ctx context.Context, id string) (*BillingDocument, error) {
	var bill BillingDocument
	query := `SELECT * FROM billing_documents WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q.ext, &bill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("bill")
		}
		return nil, err
	}
	return &bill, nil
}

// GetLines gets the lines of a bill
func (q billQueries) GetLines(ctx context.Context, billID string) ([]*BillingLine, error) {
	lines := []*BillingLine{}
	query := `SELECT * FROM billing_lines WHERE bill_id = $1 ORDER BY id ASC`
	if err := sqlx.SelectContext(ctx, q.ext, &lines, query, billID); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetPosted transitions a bill to POSTED and records the invoice file
func (q billQueries) SetPosted(ctx context.Context, billID, invoiceFilePath string, postedAt time.Time) error {
	query := `
		UPDATE billing_documents
		SET status = $2, invoice_file_path = $3, posted_at = $4
		WHERE id = $1
	`
	res, err := q.ext.ExecContext(ctx, query, billID, StatusPosted, invoiceFilePath, postedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("bill")
	}
	return nil
}

// ListBills lists bills, newest first, optionally filtered by status
func (r *Repository) ListBills(ctx context.Context, status string, limit int) ([]*BillingDocument, error) {
	if limit <= 0 {
		limit = 100
	}

	bills := []*BillingDocument{}
	if status != "" {
		query := `SELECT * FROM billing_documents WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		if err := sqlx.SelectContext(ctx, r.ext, &bills, query, status, limit); err != nil {
			return nil, err
		}
		return bills, nil
	}

	query := `SELECT * FROM billing_documents ORDER BY created_at DESC LIMIT $1`
	if err := sqlx.SelectContext(ctx, r.ext, &bills, query, limit); err != nil {
		return nil, err
	}
	return bills, nil
}

// BillNumberExists reports whether a bill number is taken
func (r *Repository) BillNumberExists(ctx context.Context, billNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM billing_documents WHERE bill_number = $1)`
	if err := sqlx.GetContext(ctx, r.ext, &exists, query, billNumber); err != nil {
		return false, err
	}
	return exists, nil
}

// TotalForLines sums line totals
func TotalForLines(lines []*BillingLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.TotalPrice)
	}
	return total
}
