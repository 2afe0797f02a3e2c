package repository

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Billing directions and statuses. A bill mutates stock exactly once, on the
// DRAFT to POSTED transition.
const (
	BillingTypeIncoming = "INCOMING"
	BillingTypeOutgoing = "OUTGOING"

	StatusDraft  = "DRAFT"
	StatusPosted = "POSTED"
)

// BillingDocument is a draft or posted bill
type BillingDocument struct {
	ID              string              `db:"id" json:"id"`
	BillNumber      string              `db:"bill_number" json:"bill_number"`
	BillingType     string              `db:"billing_type" json:"billing_type"`
	WarehouseID     string              `db:"warehouse_id" json:"warehouse_id"`
	CounterpartInfo types.JSONText      `db:"counterpart_info" json:"counterpart_info,omitempty"`
	TotalAmount     decimal.NullDecimal `db:"total_amount" json:"total_amount,omitempty"`
	Status          string              `db:"status" json:"status"`
	InvoiceFilePath *string             `db:"invoice_file_path" json:"invoice_file_path,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	PostedAt        *time.Time          `db:"posted_at" json:"posted_at,omitempty"`
}

// BillingLine is one item position on a bill. RoomID is required on incoming
// bills, where it decides which room receives the new batch.
type BillingLine struct {
	ID         string          `db:"id" json:"id"`
	BillID     string          `db:"bill_id" json:"bill_id"`
	ItemID     string          `db:"item_id" json:"item_id"`
	RoomID     *string         `db:"room_id" json:"room_id,omitempty"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
}
