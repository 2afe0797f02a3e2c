package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the stock service
const (
	EventMovementRecorded = "stock.movement.recorded"
	EventReorderAlert     = "stock.alert.reorder"
	EventBillPosted       = "billing.bill.posted"
)

// Exchange names
const (
	ExchangeStockEvents   = "stock.events"
	ExchangeBillingEvents = "billing.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// MovementRecordedEvent announces one ledger row. A multi-batch deduction
// produces one event per row, all sharing the transaction id.
type MovementRecordedEvent struct {
	MovementID    string `json:"movement_id"`
	TransactionID string `json:"transaction_id"`
	ItemID        string `json:"item_id"`
	BatchID       string `json:"batch_id,omitempty"`
	MovementType  string `json:"movement_type"`
	Quantity      string `json:"quantity"`
	ReferenceType string `json:"reference_type"`
}

// ReorderAlertEvent is emitted when available stock drops below an item's
// reorder threshold after a deduction.
type ReorderAlertEvent struct {
	AlertID        string `json:"alert_id"`
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	CurrentStock   string `json:"current_stock"`
	ReorderLevel   string `json:"reorder_level"`
	TriggeredBy    string `json:"triggered_by,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// BillPostedEvent announces a successful DRAFT to POSTED transition.
type BillPostedEvent struct {
	BillID      string `json:"bill_id"`
	BillNumber  string `json:"bill_number"`
	BillingType string `json:"billing_type"`
	WarehouseID string `json:"warehouse_id"`
	TotalAmount string `json:"total_amount"`
	InvoiceFile string `json:"invoice_file"`
}
