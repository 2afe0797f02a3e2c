package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/catalog/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Handler exposes the catalog over HTTP
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// RegisterRoutes registers the catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.CreateItem)
		r.Get("/", h.ListItems)
		r.Get("/{itemID}", h.GetItem)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Get("/{categoryID}", h.GetCategory)
	})
}

type createItemRequest struct {
	Name             string              `json:"name" validate:"required,min=1,max=255"`
	SKU              *string             `json:"sku,omitempty"`
	CategoryID       *string             `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Unit             *string             `json:"unit,omitempty"`
	ReorderThreshold decimal.NullDecimal `json:"reorder_threshold,omitempty"`
	LeadTimeDays     *int                `json:"lead_time_days,omitempty" validate:"omitempty,min=0"`
}

// CreateItem creates a catalog item
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		Name:             req.Name,
		SKU:              req.SKU,
		CategoryID:       req.CategoryID,
		Unit:             req.Unit,
		ReorderThreshold: req.ReorderThreshold,
		LeadTimeDays:     req.LeadTimeDays,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// GetItem returns a single item
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, item)
}

// ListItems returns all items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, items)
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CreateCategory creates a category
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, category)
}

// GetCategory returns a single category
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, category)
}

// ListCategories returns all categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, categories)
}
