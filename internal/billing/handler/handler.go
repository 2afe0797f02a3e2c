package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/billing/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Handler exposes billing over HTTP
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new billing handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// RegisterRoutes registers the billing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.Post("/", h.CreateBill)
		r.Get("/", h.ListBills)
		r.Get("/{billID}", h.GetBill)
		r.Post("/{billID}/post", h.PostBill)
	})
}

type billLineRequest struct {
	ItemID    string          `json:"item_id" validate:"required,uuid"`
	RoomID    *string         `json:"room_id,omitempty" validate:"omitempty,uuid"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createBillRequest struct {
	BillingType     string            `json:"billing_type" validate:"required,oneof=INCOMING OUTGOING"`
	WarehouseID     string            `json:"warehouse_id" validate:"required,uuid"`
	CounterpartInfo json.RawMessage   `json:"counterpart_info,omitempty"`
	Lines           []billLineRequest `json:"lines" validate:"required,dive"`
}

type billResponse struct {
	Bill  interface{} `json:"bill"`
	Lines interface{} `json:"lines"`
}

// CreateBill creates a draft bill
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	lines := make([]service.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.LineInput{
			ItemID:    line.ItemID,
			RoomID:    line.RoomID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	bill, billLines, err := h.service.CreateBill(r.Context(), service.CreateBillInput{
		BillingType:     req.BillingType,
		WarehouseID:     req.WarehouseID,
		CounterpartInfo: req.CounterpartInfo,
		Lines:           lines,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, billResponse{Bill: bill, Lines: billLines})
}

// GetBill returns a bill with its lines
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, lines, err := h.service.GetBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, billResponse{Bill: bill, Lines: lines})
}

// ListBills lists bills, optionally filtered by status
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	bills, err := h.service.ListBills(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bills)
}

// PostBill transitions a draft bill to POSTED, applying its stock effects
func (h *Handler) PostBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.PostBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bill)
}
