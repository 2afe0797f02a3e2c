package events

import (
	"context"

	"github.com/stockline/stockline-backend/internal/billing/repository"
	"github.com/stockline/stockline-backend/pkg/messaging"
)

// Publisher emits billing events. A nil Publisher is valid and drops
// everything.
type Publisher struct {
	publisher *messaging.Publisher
}

// NewPublisher creates a new billing event publisher
func NewPublisher(publisher *messaging.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// BillPosted announces a committed DRAFT to POSTED transition
func (p *Publisher) BillPosted(ctx context.Context, bill *repository.BillingDocument) {
	if p == nil || p.publisher == nil {
		return
	}

	event := messaging.BillPostedEvent{
		BillID:      bill.ID,
		BillNumber:  bill.BillNumber,
		BillingType: bill.BillingType,
		WarehouseID: bill.WarehouseID,
	}
	if bill.TotalAmount.Valid {
		event.TotalAmount = bill.TotalAmount.Decimal.String()
	}
	if bill.InvoiceFilePath != nil {
		event.InvoiceFile = *bill.InvoiceFilePath
	}
	p.publisher.Publish(ctx, messaging.EventBillPosted, event)
}
