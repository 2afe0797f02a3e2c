package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/analytics/repository"
	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Defaults for the trailing windows
const (
	DefaultWindowDays    = 30
	DefaultDeadStockDays = 90
	DefaultLimit         = 10
)

// Stats is the aggregate query surface
type Stats interface {
	SoldSince(ctx context.Context, since time.Time) ([]*repository.ItemQuantity, error)
	TopSelling(ctx context.Context, since time.Time, limit int) ([]*repository.ItemQuantity, error)
	LeastSelling(ctx context.Context, since time.Time, limit int) ([]*repository.ItemQuantity, error)
	ExpiringWithin(ctx context.Context, from, to time.Time) ([]*ledgerrepo.InventoryBatch, error)
	StockLevels(ctx context.Context) ([]*repository.ItemQuantity, error)
	DeadStock(ctx context.Context, since time.Time) ([]*repository.ItemQuantity, error)
	SoldForItem(ctx context.Context, itemID string, since time.Time) (decimal.Decimal, error)
	CurrentStockForItem(ctx context.Context, itemID string) (decimal.Decimal, error)
	DailySalesHistory(ctx context.Context, itemID string, since time.Time) ([]*repository.DailySale, error)
}

// ItemDirectory resolves item names for aggregate rows
type ItemDirectory interface {
	GetByID(ctx context.Context, id string) (*catalogrepo.Item, error)
	ListByIDs(ctx context.Context, ids []string) ([]*catalogrepo.Item, error)
}

// Service implements the analytics read models
type Service struct {
	stats  Stats
	items  ItemDirectory
	logger *logger.Logger
}

// NewService creates a new analytics service
func NewService(stats Stats, items ItemDirectory, log *logger.Logger) *Service {
	return &Service{stats: stats, items: items, logger: log}
}

// Entry is one named per-item aggregate
type Entry struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TurnoverResult relates an item's sales to its current stock
type TurnoverResult struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	WindowDays   int             `json:"window_days"`
	Sold         decimal.Decimal `json:"sold"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Turnover     decimal.Decimal `json:"turnover"`
}

// SoldTodayResult reports today's OUT volume, overall and per item
type SoldTodayResult struct {
	Date      string          `json:"date"`
	TotalSold decimal.Decimal `json:"total_sold"`
	Items     []*Entry        `json:"items"`
}

// SoldToday sums OUT movements since midnight UTC, overall and per item
func (s *Service) SoldToday(ctx context.Context) (*SoldTodayResult, error) {
	today := startOfDay(time.Now().UTC())
	rows, err := s.stats.SoldSince(ctx, today)
	if err != nil {
		return nil, err
	}

	entries, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity)
	}

	return &SoldTodayResult{
		Date:      today.Format("2006-01-02"),
		TotalSold: total,
		Items:     entries,
	}, nil
}

// TopSelling returns today's highest-volume items. A positive days widens
// the scope to a trailing window.
func (s *Service) TopSelling(ctx context.Context, days, limit int) ([]*Entry, error) {
	rows, err := s.stats.TopSelling(ctx, sinceWindow(days), limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// LeastSelling returns today's lowest-volume items. A positive days widens
// the scope to a trailing window.
func (s *Service) LeastSelling(ctx context.Context, days, limit int) ([]*Entry, error) {
	rows, err := s.stats.LeastSelling(ctx, sinceWindow(days), limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// Expiring returns non-empty batches expiring within the next days
func (s *Service) Expiring(ctx context.Context, days int) ([]*ledgerrepo.InventoryBatch, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	from := startOfDay(time.Now().UTC())
	return s.stats.ExpiringWithin(ctx, from, from.AddDate(0, 0, days))
}

// StockLevels returns total available stock per item
func (s *Service) StockLevels(ctx context.Context) ([]*Entry, error) {
	rows, err := s.stats.StockLevels(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// DeadStock returns items holding stock with no ledger activity over a
// trailing window.
func (s *Service) DeadStock(ctx context.Context, days int) ([]*Entry, error) {
	if days <= 0 {
		days = DefaultDeadStockDays
	}
	rows, err := s.stats.DeadStock(ctx, daysAgo(days))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// Turnover computes sold quantity divided by current stock over a trailing
// window. Items without stock report zero turnover rather than dividing by
// zero.
func (s *Service) Turnover(ctx context.Context, itemID string, days int) (*TurnoverResult, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	sold, err := s.stats.SoldForItem(ctx, itemID, daysAgo(days))
	if err != nil {
		return nil, err
	}
	current, err := s.stats.CurrentStockForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	turnover := decimal.Zero
	if current.IsPositive() {
		turnover = sold.Div(current).Round(4)
	}

	return &TurnoverResult{
		ItemID:       itemID,
		ItemName:     item.Name,
		WindowDays:   days,
		Sold:         sold,
		CurrentStock: current,
		Turnover:     turnover,
	}, nil
}

// SalesHistoryResult is an item's daily sales series over a trailing window
type SalesHistoryResult struct {
	ItemID   string                  `json:"item_id"`
	ItemName string                  `json:"item_name"`
	Days     int                     `json:"days"`
	Data     []*repository.DailySale `json:"data"`
}

// SalesHistory returns an item's daily sold quantities over a trailing window
func (s *Service) SalesHistory(ctx context.Context, itemID string, days int) (*SalesHistoryResult, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	rows, err := s.stats.DailySalesHistory(ctx, itemID, daysAgo(days))
	if err != nil {
		return nil, err
	}

	return &SalesHistoryResult{
		ItemID:   itemID,
		ItemName: item.Name,
		Days:     days,
		Data:     rows,
	}, nil
}

// enrich attaches item names to aggregate rows in one lookup
func (s *Service) enrich(ctx context.Context, rows []*repository.ItemQuantity) ([]*Entry, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ItemID)
	}
	items, err := s.items.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for _, item := range items {
		names[item.ID] = item.Name
	}

	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &Entry{
			ItemID:   row.ItemID,
			ItemName: names[row.ItemID],
			Quantity: row.Quantity,
		})
	}
	return entries, nil
}

// sinceWindow scopes an aggregate to today unless a trailing window is
// requested.
func sinceWindow(days int) time.Time {
	if days > 0 {
		return daysAgo(days)
	}
	return startOfDay(time.Now().UTC())
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysAgo(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}
