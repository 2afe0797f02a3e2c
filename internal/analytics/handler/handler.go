package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockline/stockline-backend/internal/analytics/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Handler exposes the analytics read models over HTTP
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// RegisterRoutes registers the analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/sold-today", h.SoldToday)
		r.Get("/top-selling", h.TopSelling)
		r.Get("/least-selling", h.LeastSelling)
		r.Get("/expiring", h.Expiring)
		r.Get("/stock-levels", h.StockLevels)
		r.Get("/dead-stock", h.DeadStock)
		r.Get("/turnover/{itemID}", h.Turnover)
		r.Get("/sales-history/{itemID}", h.SalesHistory)
	})
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// SoldToday returns today's OUT volume, overall and per item
func (h *Handler) SoldToday(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SoldToday(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// TopSelling returns the highest-volume items
func (h *Handler) TopSelling(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.TopSelling(r.Context(), queryInt(r, "days"), queryInt(r, "limit"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// LeastSelling returns the lowest-volume items
func (h *Handler) LeastSelling(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.LeastSelling(r.Context(), queryInt(r, "days"), queryInt(r, "limit"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// Expiring returns batches expiring soon
func (h *Handler) Expiring(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.Expiring(r.Context(), queryInt(r, "days"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, batches)
}

// StockLevels returns total stock per item
func (h *Handler) StockLevels(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.StockLevels(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// DeadStock returns items with stock but no recent movements
func (h *Handler) DeadStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.DeadStock(r.Context(), queryInt(r, "days"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// Turnover returns sold versus current stock for one item
func (h *Handler) Turnover(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Turnover(r.Context(), chi.URLParam(r, "itemID"), queryInt(r, "days"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// SalesHistory returns an item's daily sales series
func (h *Handler) SalesHistory(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SalesHistory(r.Context(), chi.URLParam(r, "itemID"), queryInt(r, "days"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
