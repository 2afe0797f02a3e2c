package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/billing/events"
	"github.com/stockline/stockline-backend/internal/billing/invoice"
	"github.com/stockline/stockline-backend/internal/billing/repository"
	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	ledgerevents "github.com/stockline/stockline-backend/internal/ledger/events"
	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	ledgerservice "github.com/stockline/stockline-backend/internal/ledger/service"
	warehouserepo "github.com/stockline/stockline-backend/internal/warehouse/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// billNumberAttempts bounds the random bill number retry loop before falling
// back to a timestamp-derived number.
const billNumberAttempts = 5

// Store persists bills
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, repository.BillTx) error) error
	GetBill(ctx context.Context, id string) (*repository.BillingDocument, error)
	GetLines(ctx context.Context, billID string) ([]*repository.BillingLine, error)
	ListBills(ctx context.Context, status string, limit int) ([]*repository.BillingDocument, error)
	BillNumberExists(ctx context.Context, billNumber string) (bool, error)
}

// StockEngine is the transactional stock surface used during posting
type StockEngine interface {
	AddStockInTx(ctx context.Context, tx ledgerrepo.TxRepository, in ledgerservice.AddStockInput) (*ledgerrepo.InventoryBatch, []*ledgerrepo.StockMovement, error)
	DeductStockInTx(ctx context.Context, tx ledgerrepo.TxRepository, in ledgerservice.DeductStockInput) ([]*ledgerrepo.StockMovement, error)
	CheckReorder(ctx context.Context, itemID string)
}

// ItemDirectory resolves catalog items for invoice rendering
type ItemDirectory interface {
	ListByIDs(ctx context.Context, ids []string) ([]*catalogrepo.Item, error)
}

// WarehouseDirectory resolves warehouses
type WarehouseDirectory interface {
	GetWarehouse(ctx context.Context, id string) (*warehouserepo.Warehouse, error)
}

// Service implements bill creation and posting. Posting is the only path
// from a bill into the stock ledger.
type Service struct {
	store        Store
	engine       StockEngine
	items        ItemDirectory
	warehouses   WarehouseDirectory
	renderer     invoice.Renderer
	billEvents   *events.Publisher
	ledgerEvents *ledgerevents.Publisher
	logger       *logger.Logger
}

// NewService creates a new billing service
func NewService(
	store Store,
	engine StockEngine,
	items ItemDirectory,
	warehouses WarehouseDirectory,
	renderer invoice.Renderer,
	billEvents *events.Publisher,
	ledgerEvents *ledgerevents.Publisher,
	log *logger.Logger,
) *Service {
	return &Service{
		store:        store,
		engine:       engine,
		items:        items,
		warehouses:   warehouses,
		renderer:     renderer,
		billEvents:   billEvents,
		ledgerEvents: ledgerEvents,
		logger:       log,
	}
}

// LineInput is one position on a new bill
type LineInput struct {
	ItemID    string
	RoomID    *string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// CreateBillInput describes a new draft bill
type CreateBillInput struct {
	BillingType     string
	WarehouseID     string
	CounterpartInfo json.RawMessage
	Lines           []LineInput
}

// CreateBill creates a DRAFT bill with its lines. Drafts never touch stock.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (*repository.BillingDocument, []*repository.BillingLine, error) {
	if in.BillingType != repository.BillingTypeIncoming && in.BillingType != repository.BillingTypeOutgoing {
		return nil, nil, errors.BadRequest("billing_type must be INCOMING or OUTGOING")
	}
	if len(in.Lines) == 0 {
		return nil, nil, errors.EmptyBill()
	}

	for i, line := range in.Lines {
		if !line.Quantity.IsPositive() {
			return nil, nil, errors.InvalidQuantity(fmt.Sprintf("line %d: quantity must be greater than zero", i))
		}
		if line.UnitPrice.IsNegative() {
			return nil, nil, errors.BadRequest(fmt.Sprintf("line %d: unit price cannot be negative", i))
		}
		if in.BillingType == repository.BillingTypeIncoming && line.RoomID == nil {
			return nil, nil, errors.BadRequest(fmt.Sprintf("line %d: incoming lines require room_id", i))
		}
	}

	if _, err := s.warehouses.GetWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, nil, err
	}

	billNumber, err := s.generateBillNumber(ctx)
	if err != nil {
		return nil, nil, err
	}

	bill := &repository.BillingDocument{
		BillNumber:      billNumber,
		BillingType:     in.BillingType,
		WarehouseID:     in.WarehouseID,
		CounterpartInfo: []byte(in.CounterpartInfo),
		Status:          repository.StatusDraft,
	}

	lines := make([]*repository.BillingLine, 0, len(in.Lines))
	total := decimal.Zero
	for _, li := range in.Lines {
		lineTotal := li.Quantity.Mul(li.UnitPrice)
		lines = append(lines, &repository.BillingLine{
			ItemID:     li.ItemID,
			RoomID:     li.RoomID,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			TotalPrice: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	bill.TotalAmount = decimal.NewNullDecimal(total)

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.BillTx) error {
		if err := tx.CreateBill(ctx, bill); err != nil {
			return err
		}
		for _, line := range lines {
			line.BillID = bill.ID
			if err := tx.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("bill_id", bill.ID).
		Str("bill_number", bill.BillNumber).
		Str("billing_type", bill.BillingType).
		Int("lines", len(lines)).
		Msg("bill created")

	return bill, lines, nil
}

// generateBillNumber builds BILL-<8 digits>, retrying on collision a bounded
// number of times before deriving the digits from the clock.
func (s *Service) generateBillNumber(ctx context.Context) (string, error) {
	for i := 0; i < billNumberAttempts; i++ {
		candidate := fmt.Sprintf("BILL-%08d", rand.Intn(100000000))
		exists, err := s.store.BillNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return fmt.Sprintf("BILL-%08d", time.Now().UTC().UnixNano()%100000000), nil
}

// PostBill transitions a DRAFT bill to POSTED. All stock mutations, the
// status flip and the invoice rendering happen in one transaction; events and
// reorder checks run only after it commits.
func (s *Service) PostBill(ctx context.Context, billID string) (*repository.BillingDocument, error) {
	var (
		bill      *repository.BillingDocument
		movements []*ledgerrepo.StockMovement
		outItems  = map[string]struct{}{}
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.BillTx) error {
		var err error
		bill, err = tx.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Status != repository.StatusDraft {
			return errors.InvalidState(fmt.Sprintf("bill %s is %s, only DRAFT bills can be posted", bill.BillNumber, bill.Status))
		}

		lines, err := tx.GetLines(ctx, billID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return errors.EmptyBill()
		}

		ledger := tx.Ledger()
		for _, line := range lines {
			switch bill.BillingType {
			case repository.BillingTypeIncoming:
				_, movs, err := s.engine.AddStockInTx(ctx, ledger, ledgerservice.AddStockInput{
					ItemID:        line.ItemID,
					RoomID:        *line.RoomID,
					Quantity:      line.Quantity,
					PurchasePrice: decimal.NewNullDecimal(line.UnitPrice),
					ReferenceType: ledgerrepo.ReferenceBillIn,
					ReferenceID:   &bill.ID,
				})
				if err != nil {
					return err
				}
				movements = append(movements, movs...)
			case repository.BillingTypeOutgoing:
				movs, err := s.engine.DeductStockInTx(ctx, ledger, ledgerservice.DeductStockInput{
					ItemID:        line.ItemID,
					Quantity:      line.Quantity,
					ReferenceType: ledgerrepo.ReferenceBillOut,
					ReferenceID:   &bill.ID,
				})
				if err != nil {
					return err
				}
				movements = append(movements, movs...)
				outItems[line.ItemID] = struct{}{}
			}
		}

		invoicePath, err := s.renderInvoice(ctx, bill, lines)
		if err != nil {
			return err
		}

		postedAt := time.Now().UTC()
		if err := tx.SetPosted(ctx, bill.ID, invoicePath, postedAt); err != nil {
			return err
		}
		bill.Status = repository.StatusPosted
		bill.InvoiceFilePath = &invoicePath
		bill.PostedAt = &postedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("bill_id", bill.ID).
		Str("bill_number", bill.BillNumber).
		Int("movements", len(movements)).
		Msg("bill posted")

	s.ledgerEvents.MovementsRecorded(ctx, movements)
	s.billEvents.BillPosted(ctx, bill)
	for itemID := range outItems {
		s.engine.CheckReorder(ctx, itemID)
	}

	return bill, nil
}

// renderInvoice resolves item names and renders the invoice artifact
func (s *Service) renderInvoice(ctx context.Context, bill *repository.BillingDocument, lines []*repository.BillingLine) (string, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	items, err := s.items.ListByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	names := map[string]string{}
	for _, item := range items {
		names[item.ID] = item.Name
	}

	views := make([]invoice.Line, 0, len(lines))
	for _, line := range lines {
		name := names[line.ItemID]
		if name == "" {
			name = line.ItemID
		}
		views = append(views, invoice.Line{
			ItemName:   name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.TotalPrice,
		})
	}
	return s.renderer.Render(bill, views)
}

// GetBill returns a bill with its lines
func (s *Service) GetBill(ctx context.Context, id string) (*repository.BillingDocument, []*repository.BillingLine, error) {
	bill, err := s.store.GetBill(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.GetLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return bill, lines, nil
}

// ListBills lists bills, newest first
func (s *Service) ListBills(ctx context.Context, status string, limit int) ([]*repository.BillingDocument, error) {
	return s.store.ListBills(ctx, status, limit)
}
