package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/internal/forecast/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeHistory struct {
	sales []*repository.DailySale
}

func (f *fakeHistory) DailySales(ctx context.Context, itemID string, since time.Time) ([]*repository.DailySale, error) {
	return f.sales, nil
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

type fakeStock struct {
	total decimal.Decimal
}

func (f *fakeStock) TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return f.total, nil
}

func salesOf(quantities ...string) []*repository.DailySale {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*repository.DailySale, len(quantities))
	for i, q := range quantities {
		out[i] = &repository.DailySale{Date: base.AddDate(0, 0, i), Quantity: dec(q)}
	}
	return out
}

func newTestService(sales []*repository.DailySale, stock string, leadTime *int) *Service {
	items := &fakeItems{items: map[string]*catalogrepo.Item{
		"item-1": {ID: "item-1", Name: "Gloves", LeadTimeDays: leadTime},
	}}
	return NewService(&fakeHistory{sales: sales}, items, &fakeStock{total: dec(stock)}, logger.Nop())
}

func TestForecastFlatSeries(t *testing.T) {
	svc := newTestService(salesOf("10", "12", "9", "11", "13"), "0", nil)

	result, err := svc.Forecast(context.Background(), "item-1", 3, 30)
	require.NoError(t, err)
	require.False(t, result.InsufficientData)

	// First half [10,12] and second half [9,11,13] both average 11.
	assert.True(t, result.Average.Equal(dec("11")), "average was %s", result.Average)
	assert.True(t, result.Trend.IsZero(), "trend was %s", result.Trend)

	require.Len(t, result.Forecast, 3)
	for _, day := range result.Forecast {
		assert.True(t, day.Quantity.Equal(dec("11")), "day %s predicted %s", day.Date, day.Quantity)
	}
}

func TestForecastRisingSeries(t *testing.T) {
	svc := newTestService(salesOf("1", "2", "3", "4"), "0", nil)

	result, err := svc.Forecast(context.Background(), "item-1", 2, 30)
	require.NoError(t, err)

	// Halves average 1.5 and 3.5, trend is 2/4 = 0.5 per day.
	assert.True(t, result.Average.Equal(dec("2.5")))
	assert.True(t, result.Trend.Equal(dec("0.5")))

	require.Len(t, result.Forecast, 2)
	assert.True(t, result.Forecast[0].Quantity.Equal(dec("3")))
	assert.True(t, result.Forecast[1].Quantity.Equal(dec("3.5")))
}

func TestForecastClampsNegativePredictions(t *testing.T) {
	svc := newTestService(salesOf("9", "6", "3"), "0", nil)

	result, err := svc.Forecast(context.Background(), "item-1", 5, 30)
	require.NoError(t, err)

	// Trend is (4.5 - 9) / 3 = -1.5 per day; day 4 onward would go negative.
	assert.True(t, result.Trend.Equal(dec("-1.5")))
	require.Len(t, result.Forecast, 5)
	assert.True(t, result.Forecast[3].Quantity.IsZero())
	assert.True(t, result.Forecast[4].Quantity.IsZero())
}

func TestForecastInsufficientData(t *testing.T) {
	svc := newTestService(salesOf("5", "7"), "0", nil)

	result, err := svc.Forecast(context.Background(), "item-1", 7, 30)
	require.NoError(t, err)

	assert.True(t, result.InsufficientData)
	assert.Equal(t, 2, result.DataPoints)
	assert.Empty(t, result.Forecast)
}

func TestForecastUnknownItem(t *testing.T) {
	svc := newTestService(nil, "0", nil)

	_, err := svc.Forecast(context.Background(), "missing", 7, 30)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSuggestReorderQuantity(t *testing.T) {
	lead := 5
	svc := newTestService(salesOf("10", "10", "10", "10"), "0", &lead)

	suggestion, err := svc.SuggestReorderQuantity(context.Background(), "item-1", 7)
	require.NoError(t, err)

	// Flat demand of 10/day over 7 days is 70; safety stock adds 10 percent
	// and the lead-time buffer covers 5 more days of average sales.
	assert.Equal(t, 7, suggestion.ForecastDays)
	assert.Equal(t, 5, suggestion.LeadTimeDays)
	assert.True(t, suggestion.PredictedDemand.Equal(dec("70")), "demand was %s", suggestion.PredictedDemand)
	assert.True(t, suggestion.SafetyStockBuffer.Equal(dec("7")))
	assert.True(t, suggestion.LeadTimeBuffer.Equal(dec("50")))
	assert.True(t, suggestion.RecommendedQuantity.Equal(dec("127")), "got %s", suggestion.RecommendedQuantity)
}

func TestSuggestReorderQuantityNoLeadTime(t *testing.T) {
	svc := newTestService(salesOf("10", "12", "9", "11", "13"), "10", nil)

	suggestion, err := svc.SuggestReorderQuantity(context.Background(), "item-1", 7)
	require.NoError(t, err)

	// 77 forecast demand plus the 7.7 safety buffer, no lead-time buffer,
	// minus 10 on hand.
	assert.Equal(t, 0, suggestion.LeadTimeDays)
	assert.True(t, suggestion.LeadTimeBuffer.IsZero())
	assert.True(t, suggestion.RecommendedQuantity.Equal(dec("74.7")), "got %s", suggestion.RecommendedQuantity)
}

func TestSuggestReorderQuantityCoveredByStock(t *testing.T) {
	lead := 7
	svc := newTestService(salesOf("10", "12", "9", "11", "13"), "200", &lead)

	suggestion, err := svc.SuggestReorderQuantity(context.Background(), "item-1", 7)
	require.NoError(t, err)
	assert.True(t, suggestion.RecommendedQuantity.IsZero())
}

func TestSuggestReorderQuantityInsufficientData(t *testing.T) {
	svc := newTestService(salesOf("5"), "10", nil)

	suggestion, err := svc.SuggestReorderQuantity(context.Background(), "item-1", 0)
	require.NoError(t, err)
	assert.True(t, suggestion.InsufficientData)
	assert.Equal(t, DefaultHorizonDays, suggestion.ForecastDays)
	assert.True(t, suggestion.RecommendedQuantity.IsZero())
}
