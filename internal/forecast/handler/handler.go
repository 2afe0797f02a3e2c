package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockline/stockline-backend/internal/forecast/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Handler exposes demand forecasting over HTTP
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new forecast handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// RegisterRoutes registers the forecast routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Get("/{itemID}", h.Forecast)
		r.Get("/{itemID}/reorder-suggestion", h.ReorderSuggestion)
	})
}

// Forecast predicts daily demand for an item
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	horizon, _ := strconv.Atoi(r.URL.Query().Get("days"))
	history, _ := strconv.Atoi(r.URL.Query().Get("history_days"))

	result, err := h.service.Forecast(r.Context(), chi.URLParam(r, "itemID"), horizon, history)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ReorderSuggestion recommends an order quantity for an item
func (h *Handler) ReorderSuggestion(w http.ResponseWriter, r *http.Request) {
	forecastDays, _ := strconv.Atoi(r.URL.Query().Get("days"))

	suggestion, err := h.service.SuggestReorderQuantity(r.Context(), chi.URLParam(r, "itemID"), forecastDays)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suggestion)
}
