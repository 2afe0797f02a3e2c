package events

import (
	"context"

	"github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/pkg/messaging"
)

// Publisher emits stock events to the message broker. A nil Publisher is
// valid and drops everything, which keeps the broker optional in tests and
// local development.
type Publisher struct {
	publisher *messaging.Publisher
}

// NewPublisher creates a new stock event publisher
func NewPublisher(publisher *messaging.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// MovementsRecorded publishes one event per committed ledger row
func (p *Publisher) MovementsRecorded(ctx context.Context, movements []*repository.StockMovement) {
	if p == nil || p.publisher == nil {
		return
	}

	for _, mov := range movements {
		event := messaging.MovementRecordedEvent{
			MovementID:    mov.ID,
			TransactionID: mov.TxID,
			ItemID:        mov.ItemID,
			MovementType:  mov.MovementType,
			Quantity:      mov.Quantity.String(),
			ReferenceType: mov.ReferenceType,
		}
		if mov.BatchID != nil {
			event.BatchID = *mov.BatchID
		}
		p.publisher.Publish(ctx, messaging.EventMovementRecorded, event)
	}
}

// ReorderAlert publishes a reorder threshold breach
func (p *Publisher) ReorderAlert(ctx context.Context, alert *repository.Alert, itemName string) {
	if p == nil || p.publisher == nil {
		return
	}

	event := messaging.ReorderAlertEvent{
		AlertID:      alert.ID,
		ItemID:       alert.ItemID,
		ItemName:     itemName,
		CurrentStock: alert.CurrentStock.Decimal.String(),
		ReorderLevel: alert.Threshold.Decimal.String(),
	}
	p.publisher.Publish(ctx, messaging.EventReorderAlert, event)
}
