package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/ledger/repository"
	"github.com/stockline/stockline-backend/internal/ledger/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// AlertDirectory lists and resolves persisted alerts
type AlertDirectory interface {
	List(ctx context.Context, status string, limit int) ([]*repository.Alert, error)
	Resolve(ctx context.Context, id string) error
}

// Handler exposes the stock engine over HTTP
type Handler struct {
	engine *service.Engine
	alerts AlertDirectory
	logger *logger.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(engine *service.Engine, alerts AlertDirectory, log *logger.Logger) *Handler {
	return &Handler{engine: engine, alerts: alerts, logger: log}
}

// RegisterRoutes registers the ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Post("/add", h.AddStock)
		r.Post("/deduct", h.DeductStock)
		r.Post("/adjust", h.AdjustStock)
		r.Post("/transfer", h.TransferStock)
	})

	r.Get("/items/{itemID}/batches", h.ListBatches)
	r.Get("/items/{itemID}/movements", h.ListMovements)
	r.Get("/items/{itemID}/stock", h.GetTotalStock)
	r.Get("/batches/{batchID}", h.GetBatch)
	r.Get("/movements/tx/{txID}", h.ListMovementsByTx)

	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.ListAlerts)
		r.Post("/{alertID}/resolve", h.ResolveAlert)
	})
}

type addStockRequest struct {
	ItemID        string              `json:"item_id" validate:"required,uuid"`
	RoomID        string              `json:"room_id" validate:"required,uuid"`
	Quantity      decimal.Decimal     `json:"quantity" validate:"required"`
	BatchNumber   *string             `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time          `json:"expiry_date,omitempty"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price,omitempty"`
	ReferenceType string              `json:"reference_type,omitempty"`
	ReferenceID   *string             `json:"reference_id,omitempty"`
	CreatedBy     *string             `json:"created_by,omitempty"`
}

// AddStock receives stock into a room as a new batch
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.engine.AddStock(r.Context(), service.AddStockInput{
		ItemID:        req.ItemID,
		RoomID:        req.RoomID,
		Quantity:      req.Quantity,
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    req.ExpiryDate,
		PurchasePrice: req.PurchasePrice,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

type deductStockRequest struct {
	ItemID        string          `json:"item_id" validate:"required,uuid"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   *string         `json:"reference_id,omitempty"`
	CreatedBy     *string         `json:"created_by,omitempty"`
}

// DeductStock removes stock from an item in FIFO order
func (h *Handler) DeductStock(w http.ResponseWriter, r *http.Request) {
	var req deductStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	movements, err := h.engine.DeductStock(r.Context(), service.DeductStockInput{
		ItemID:        req.ItemID,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movements)
}

type adjustStockRequest struct {
	BatchID   string          `json:"batch_id" validate:"required,uuid"`
	Delta     decimal.Decimal `json:"delta" validate:"required"`
	Reason    *string         `json:"reason,omitempty"`
	CreatedBy *string         `json:"created_by,omitempty"`
}

// AdjustStock corrects a batch quantity by a signed delta
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	mov, err := h.engine.AdjustStock(r.Context(), service.AdjustStockInput{
		BatchID:   req.BatchID,
		Delta:     req.Delta,
		Reason:    req.Reason,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, mov)
}

type transferStockRequest struct {
	BatchID      string          `json:"batch_id" validate:"required,uuid"`
	TargetRoomID string          `json:"target_room_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	CreatedBy    *string         `json:"created_by,omitempty"`
}

// TransferStock moves quantity from a batch into another room
func (h *Handler) TransferStock(w http.ResponseWriter, r *http.Request) {
	var req transferStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.engine.TransferStock(r.Context(), service.TransferStockInput{
		BatchID:      req.BatchID,
		TargetRoomID: req.TargetRoomID,
		Quantity:     req.Quantity,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// ListBatches lists an item's batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.engine.ListBatches(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, batches)
}

// ListMovements lists an item's ledger rows, newest first
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	movements, err := h.engine.ListMovements(r.Context(), chi.URLParam(r, "itemID"), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, movements)
}

// GetTotalStock returns an item's total available quantity
func (h *Handler) GetTotalStock(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	total, err := h.engine.TotalAvailable(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"item_id":         itemID,
		"total_available": total,
	})
}

// GetBatch returns a single batch
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.engine.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, batch)
}

// ListMovementsByTx lists every ledger row sharing one tx_id
func (h *Handler) ListMovementsByTx(w http.ResponseWriter, r *http.Request) {
	movements, err := h.engine.ListMovementsByTx(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, movements)
}

// ListAlerts lists alerts, open by default
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = repository.AlertStatusOpen
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	alerts, err := h.alerts.List(r.Context(), status, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alerts)
}

// ResolveAlert marks an alert resolved
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Resolve(r.Context(), chi.URLParam(r, "alertID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
