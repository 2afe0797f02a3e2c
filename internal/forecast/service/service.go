package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/internal/forecast/repository"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Forecast parameters. Fewer than minDataPoints history days cannot support
// a trend estimate, so those items report insufficient data instead of a
// misleading number.
const (
	DefaultHorizonDays = 7
	DefaultHistoryDays = 30
	minDataPoints      = 3
)

// safetyRate sizes the safety stock buffer at 10 percent of forecast demand
var safetyRate = decimal.RequireFromString("0.1")

// SalesHistory reads the daily sales series
type SalesHistory interface {
	DailySales(ctx context.Context, itemID string, since time.Time) ([]*repository.DailySale, error)
}

// ItemDirectory resolves items and their lead times
type ItemDirectory interface {
	GetByID(ctx context.Context, id string) (*catalogrepo.Item, error)
}

// StockReader reports current available stock
type StockReader interface {
	TotalAvailable(ctx context.Context, itemID string) (decimal.Decimal, error)
}

// Service implements moving-average demand forecasting with a linear trend
// correction.
type Service struct {
	history SalesHistory
	items   ItemDirectory
	stock   StockReader
	logger  *logger.Logger
}

// NewService creates a new forecast service
func NewService(history SalesHistory, items ItemDirectory, stock StockReader, log *logger.Logger) *Service {
	return &Service{history: history, items: items, stock: stock, logger: log}
}

// DayForecast is the predicted demand for one future day
type DayForecast struct {
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Result is a demand forecast for one item
type Result struct {
	ItemID           string          `json:"item_id"`
	ItemName         string          `json:"item_name"`
	DataPoints       int             `json:"data_points"`
	Average          decimal.Decimal `json:"average"`
	Trend            decimal.Decimal `json:"trend"`
	Forecast         []DayForecast   `json:"forecast"`
	InsufficientData bool            `json:"insufficient_data"`
}

// ReorderSuggestion recommends an order quantity covering forecast demand
// over the requested horizon plus safety stock and a lead-time buffer.
type ReorderSuggestion struct {
	ItemID              string          `json:"item_id"`
	ItemName            string          `json:"item_name"`
	ForecastDays        int             `json:"forecast_days"`
	LeadTimeDays        int             `json:"lead_time_days"`
	CurrentStock        decimal.Decimal `json:"current_stock"`
	PredictedDemand     decimal.Decimal `json:"predicted_demand"`
	SafetyStockBuffer   decimal.Decimal `json:"safety_stock_buffer"`
	LeadTimeBuffer      decimal.Decimal `json:"lead_time_buffer"`
	RecommendedQuantity decimal.Decimal `json:"recommended_reorder_quantity"`
	InsufficientData    bool            `json:"insufficient_data"`
}

// Forecast predicts daily demand for the next horizon days from the trailing
// sales history.
func (s *Service) Forecast(ctx context.Context, itemID string, horizonDays, historyDays int) (*Result, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -historyDays)
	sales, err := s.history.DailySales(ctx, itemID, since)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ItemID:     itemID,
		ItemName:   item.Name,
		DataPoints: len(sales),
		Forecast:   []DayForecast{},
	}

	if len(sales) < minDataPoints {
		result.InsufficientData = true
		return result, nil
	}

	series := make([]decimal.Decimal, len(sales))
	for i, sale := range sales {
		series[i] = sale.Quantity
	}

	avg, trend := averageAndTrend(series)
	result.Average = avg
	result.Trend = trend

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 1; i <= horizonDays; i++ {
		predicted := avg.Add(trend.Mul(decimal.NewFromInt(int64(i))))
		if predicted.IsNegative() {
			predicted = decimal.Zero
		}
		result.Forecast = append(result.Forecast, DayForecast{
			Date:     today.AddDate(0, 0, i),
			Quantity: predicted.Round(2),
		})
	}

	return result, nil
}

// averageAndTrend computes the series mean and a per-day trend estimated as
// the difference between the second-half and first-half means, spread over
// the series length. Odd-length series put the extra point in the second
// half.
func averageAndTrend(series []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	n := len(series)
	avg := mean(series)

	half := n / 2
	firstMean := mean(series[:half])
	secondMean := mean(series[half:])
	trend := secondMean.Sub(firstMean).Div(decimal.NewFromInt(int64(n)))

	return avg, trend
}

func mean(series []decimal.Decimal) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range series {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(series))))
}

// SuggestReorderQuantity recommends an order covering predicted demand over
// the next forecastDays, padded with a 10 percent safety buffer and with
// average daily sales over the item's lead time, net of current stock. Items
// without a lead time get no lead-time buffer.
func (s *Service) SuggestReorderQuantity(ctx context.Context, itemID string, forecastDays int) (*ReorderSuggestion, error) {
	if forecastDays <= 0 {
		forecastDays = DefaultHorizonDays
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	forecast, err := s.Forecast(ctx, itemID, forecastDays, DefaultHistoryDays)
	if err != nil {
		return nil, err
	}

	current, err := s.stock.TotalAvailable(ctx, itemID)
	if err != nil {
		return nil, err
	}

	leadTime := 0
	if item.LeadTimeDays != nil && *item.LeadTimeDays > 0 {
		leadTime = *item.LeadTimeDays
	}

	suggestion := &ReorderSuggestion{
		ItemID:       itemID,
		ItemName:     item.Name,
		ForecastDays: forecastDays,
		LeadTimeDays: leadTime,
		CurrentStock: current,
	}

	if forecast.InsufficientData {
		suggestion.InsufficientData = true
		return suggestion, nil
	}

	demand := decimal.Zero
	for _, day := range forecast.Forecast {
		demand = demand.Add(day.Quantity)
	}
	safety := demand.Mul(safetyRate)
	leadBuffer := forecast.Average.Mul(decimal.NewFromInt(int64(leadTime)))

	suggestion.PredictedDemand = demand.Round(2)
	suggestion.SafetyStockBuffer = safety.Round(2)
	suggestion.LeadTimeBuffer = leadBuffer.Round(2)

	recommended := demand.Add(safety).Add(leadBuffer).Sub(current)
	if recommended.IsNegative() {
		recommended = decimal.Zero
	}
	suggestion.RecommendedQuantity = recommended.Round(2)

	return suggestion, nil
}
