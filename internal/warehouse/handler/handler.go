package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockline/stockline-backend/internal/warehouse/service"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// Handler exposes warehouses and rooms over HTTP
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new warehouse handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// RegisterRoutes registers the warehouse routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/warehouses", func(r chi.Router) {
		r.Post("/", h.CreateWarehouse)
		r.Get("/", h.ListWarehouses)
		r.Get("/{warehouseID}", h.GetWarehouse)
		r.Delete("/{warehouseID}", h.DeleteWarehouse)
		r.Get("/{warehouseID}/rooms", h.ListRooms)
		r.Post("/{warehouseID}/rooms", h.CreateRoom)
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/{roomID}", h.GetRoom)
		r.Put("/{roomID}", h.UpdateRoom)
		r.Delete("/{roomID}", h.DeleteRoom)
	})
}

type createWarehouseRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=255"`
	Address *string `json:"address,omitempty"`
}

// CreateWarehouse creates a warehouse
func (h *Handler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	wh, err := h.service.CreateWarehouse(r.Context(), req.Name, req.Address)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, wh)
}

// GetWarehouse returns a single warehouse
func (h *Handler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	wh, err := h.service.GetWarehouse(r.Context(), chi.URLParam(r, "warehouseID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, wh)
}

// ListWarehouses returns all warehouses
func (h *Handler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, warehouses)
}

// DeleteWarehouse deletes an empty warehouse
func (h *Handler) DeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWarehouse(r.Context(), chi.URLParam(r, "warehouseID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

type createRoomRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	FloorNo  *int   `json:"floor_no,omitempty"`
	RoomType string `json:"room_type,omitempty" validate:"omitempty,oneof=NORMAL COLD_STORAGE PACKING OTHER"`
}

// CreateRoom creates a room inside a warehouse
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), service.CreateRoomInput{
		WarehouseID: chi.URLParam(r, "warehouseID"),
		Name:        req.Name,
		FloorNo:     req.FloorNo,
		RoomType:    req.RoomType,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, room)
}

// GetRoom returns a single room
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, room)
}

// ListRooms returns a warehouse's rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context(), chi.URLParam(r, "warehouseID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rooms)
}

type updateRoomRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	FloorNo  *int   `json:"floor_no,omitempty"`
	RoomType string `json:"room_type,omitempty" validate:"omitempty,oneof=NORMAL COLD_STORAGE PACKING OTHER"`
}

// UpdateRoom updates a room's name, floor and type
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req updateRoomRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	room, err := h.service.UpdateRoom(r.Context(), chi.URLParam(r, "roomID"), service.UpdateRoomInput{
		Name:     req.Name,
		FloorNo:  req.FloorNo,
		RoomType: req.RoomType,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, room)
}

// DeleteRoom deletes a room without stock
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRoom(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
