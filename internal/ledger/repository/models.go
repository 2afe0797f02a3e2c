package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement types. One canonical closed set; transfers use MovementTypeTRANSFER
// for both legs and are directed by their reference type.
const (
	MovementTypeIN         = "IN"
	MovementTypeOUT        = "OUT"
	MovementTypeADJUSTMENT = "ADJUSTMENT"
	MovementTypeTRANSFER   = "TRANSFER"
)

// Reference types record the origin of a quantity change.
const (
	ReferenceManual      = "MANUAL"
	ReferenceBillIn      = "BILL_IN"
	ReferenceBillOut     = "BILL_OUT"
	ReferenceAdjustment  = "ADJUSTMENT"
	ReferenceTransferIn  = "TRANSFER_IN"
	ReferenceTransferOut = "TRANSFER_OUT"
)

// Alert types and statuses
const (
	AlertTypeReorder    = "reorder_threshold"
	AlertStatusOpen     = "OPEN"
	AlertStatusResolved = "RESOLVED"
)

// InventoryBatch is the atomic unit of stock: a dated, room-scoped quantity
// of one item. QuantityTotal is immutable after creation; QuantityAvailable
// only changes through the ledger engine. Batches are drained, never deleted.
type InventoryBatch struct {
	ID                string              `db:"id" json:"id"`
	ItemID            string              `db:"item_id" json:"item_id"`
	RoomID            string              `db:"room_id" json:"room_id"`
	WarehouseID       string              `db:"warehouse_id" json:"warehouse_id"`
	BatchNumber       *string             `db:"batch_number" json:"batch_number,omitempty"`
	QuantityTotal     decimal.Decimal     `db:"quantity_total" json:"quantity_total"`
	QuantityAvailable decimal.Decimal     `db:"quantity_available" json:"quantity_available"`
	ExpiryDate        *time.Time          `db:"expiry_date" json:"expiry_date,omitempty"`
	PurchasePrice     decimal.NullDecimal `db:"purchase_price" json:"purchase_price,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// Expired reports whether the batch expiry date lies strictly before the
// given day. Batches without an expiry date never expire.
func (b *InventoryBatch) Expired(today time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return b.ExpiryDate.Before(day)
}

// StockMovement is one immutable ledger row. Quantity is always a positive
// magnitude; direction follows from MovementType and ReferenceType. Rows
// sharing a TxID were produced by one logical operation.
type StockMovement struct {
	ID            string          `db:"id" json:"id"`
	ItemID        string          `db:"item_id" json:"item_id"`
	BatchID       *string         `db:"batch_id" json:"batch_id,omitempty"`
	WarehouseID   *string         `db:"warehouse_id" json:"warehouse_id,omitempty"`
	RoomID        *string         `db:"room_id" json:"room_id,omitempty"`
	MovementType  string          `db:"movement_type" json:"movement_type"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
	ReferenceType string          `db:"reference_type" json:"reference_type"`
	ReferenceID   *string         `db:"reference_id" json:"reference_id,omitempty"`
	TxID          string          `db:"tx_id" json:"tx_id"`
	CreatedBy     *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Alert is a persisted operational alert, currently only reorder-threshold
// breaches. Open alerts are deduplicated per item and type.
type Alert struct {
	ID           string              `db:"id" json:"id"`
	AlertType    string              `db:"alert_type" json:"alert_type"`
	ItemID       string              `db:"item_id" json:"item_id"`
	Message      string              `db:"message" json:"message"`
	CurrentStock decimal.NullDecimal `db:"current_stock" json:"current_stock,omitempty"`
	Threshold    decimal.NullDecimal `db:"threshold" json:"threshold,omitempty"`
	Status       string              `db:"status" json:"status"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time          `db:"resolved_at" json:"resolved_at,omitempty"`
}
