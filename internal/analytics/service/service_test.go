package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockline/stockline-backend/internal/analytics/repository"
	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStats struct {
	sold      []*repository.ItemQuantity
	levels    []*repository.ItemQuantity
	dead      []*repository.ItemQuantity
	history   []*repository.DailySale
	itemSold  decimal.Decimal
	itemStock decimal.Decimal
	lastSince time.Time
}

func (f *fakeStats) SoldSince(ctx context.Context, since time.Time) ([]*repository.ItemQuantity, error) {
	f.lastSince = since
	return f.sold, nil
}

func (f *fakeStats) TopSelling(ctx context.Context, since time.Time, limit int) ([]*repository.ItemQuantity, error) {
	f.lastSince = since
	if limit < len(f.sold) {
		return f.sold[:limit], nil
	}
	return f.sold, nil
}

func (f *fakeStats) LeastSelling(ctx context.Context, since time.Time, limit int) ([]*repository.ItemQuantity, error) {
	f.lastSince = since
	return f.sold, nil
}

func (f *fakeStats) ExpiringWithin(ctx context.Context, from, to time.Time) ([]*ledgerrepo.InventoryBatch, error) {
	return nil, nil
}

func (f *fakeStats) StockLevels(ctx context.Context) ([]*repository.ItemQuantity, error) {
	return f.levels, nil
}

func (f *fakeStats) DeadStock(ctx context.Context, since time.Time) ([]*repository.ItemQuantity, error) {
	return f.dead, nil
}

func (f *fakeStats) SoldForItem(ctx context.Context, itemID string, since time.Time) (decimal.Decimal, error) {
	return f.itemSold, nil
}

func (f *fakeStats) CurrentStockForItem(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return f.itemStock, nil
}

func (f *fakeStats) DailySalesHistory(ctx context.Context, itemID string, since time.Time) ([]*repository.DailySale, error) {
	f.lastSince = since
	return f.history, nil
}

type fakeItems struct {
	items map[string]*catalogrepo.Item
}

func (f *fakeItems) GetByID(ctx context.Context, id string) (*catalogrepo.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	return item, nil
}

func (f *fakeItems) ListByIDs(ctx context.Context, ids []string) ([]*catalogrepo.Item, error) {
	out := []*catalogrepo.Item{}
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestTurnover(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
	}}
	stats := &fakeStats{itemSold: dec("30"), itemStock: dec("12")}
	svc := NewService(stats, items, logger.Nop())

	result, err := svc.Turnover(context.Background(), "item-1", 0)
	require.NoError(t, err)

	assert.Equal(t, "Gloves", result.ItemName)
	assert.Equal(t, DefaultWindowDays, result.WindowDays)
	assert.True(t, result.Turnover.Equal(dec("2.5")))
}

func TestTurnoverZeroStock(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
	}}
	stats := &fakeStats{itemSold: dec("30"), itemStock: decimal.Zero}
	svc := NewService(stats, items, logger.Nop())

	result, err := svc.Turnover(context.Background(), "item-1", 30)
	require.NoError(t, err)
	assert.True(t, result.Turnover.IsZero())
}

func TestTurnoverUnknownItem(t *testing.T) {
	svc := NewService(&fakeStats{}, &fakeItems{items: map[string]*catalogrepo.Item{}}, logger.Nop())

	_, err := svc.Turnover(context.Background(), "missing", 30)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSoldTodayTotalsAndEnrichesNames(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
		"item-2": {ID: "item-2", Name: "Masks"},
	}}
	stats := &fakeStats{sold: []*repository.ItemQuantity{
		{ItemID: "item-1", Quantity: dec("8")},
		{ItemID: "item-2", Quantity: dec("3")},
	}}
	svc := NewService(stats, items, logger.Nop())

	result, err := svc.SoldToday(context.Background())
	require.NoError(t, err)

	assert.True(t, result.TotalSold.Equal(dec("11")))
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Gloves", result.Items[0].ItemName)
	assert.True(t, result.Items[0].Quantity.Equal(dec("8")))
	assert.Equal(t, "Masks", result.Items[1].ItemName)

	// The aggregate is scoped to today, not a trailing window.
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), result.Date)
	assert.Equal(t, result.Date, stats.lastSince.Format("2006-01-02"))
}

func TestTopSellingDefaultsToToday(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
	}}
	stats := &fakeStats{sold: []*repository.ItemQuantity{
		{ItemID: "item-1", Quantity: dec("8")},
	}}
	svc := NewService(stats, items, logger.Nop())

	entries, err := svc.TopSelling(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, today, stats.lastSince.Format("2006-01-02"))
	assert.True(t, stats.lastSince.Equal(stats.lastSince.Truncate(24*time.Hour)))

	// An explicit window widens the scope instead.
	_, err = svc.TopSelling(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.True(t, stats.lastSince.Before(time.Now().UTC().AddDate(0, 0, -6)))
}

func TestSalesHistory(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
	}}
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	stats := &fakeStats{history: []*repository.DailySale{
		{Date: day, Quantity: dec("4")},
		{Date: day.AddDate(0, 0, 1), Quantity: dec("6")},
	}}
	svc := NewService(stats, items, logger.Nop())

	result, err := svc.SalesHistory(context.Background(), "item-1", 0)
	require.NoError(t, err)

	assert.Equal(t, "Gloves", result.ItemName)
	assert.Equal(t, DefaultWindowDays, result.Days)
	require.Len(t, result.Data, 2)
	assert.True(t, result.Data[1].Quantity.Equal(dec("6")))
}

func TestSalesHistoryUnknownItem(t *testing.T) {
	svc := NewService(&fakeStats{}, &fakeItems{items: map[string]*catalogrepo.Item{}}, logger.Nop())

	_, err := svc.SalesHistory(context.Background(), "missing", 30)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeadStockDefaultsWindow(t *testing.T) {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves"},
	}}
	stats := &fakeStats{dead: []*repository.ItemQuantity{
		{ItemID: "item-1", Quantity: dec("50")},
	}}
	svc := NewService(stats, items, logger.Nop())

	entries, err := svc.DeadStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Gloves", entries[0].ItemName)
}
