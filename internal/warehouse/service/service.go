package service

import (
	"context"

	"github.com/stockline/stockline-backend/internal/warehouse/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// WarehouseStore persists warehouses and rooms
type WarehouseStore interface {
	CreateWarehouse(ctx context.Context, wh *repository.Warehouse) error
	GetWarehouse(ctx context.Context, id string) (*repository.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]*repository.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
	CountRooms(ctx context.Context, warehouseID string) (int, error)
	CreateRoom(ctx context.Context, room *repository.Room) error
	GetRoom(ctx context.Context, id string) (*repository.Room, error)
	ListRooms(ctx context.Context, warehouseID string) ([]*repository.Room, error)
	UpdateRoom(ctx context.Context, room *repository.Room) error
	DeleteRoom(ctx context.Context, id string) error
}

// StockChecker reports whether a room still holds available stock
type StockChecker interface {
	RoomHasStock(ctx context.Context, roomID string) (bool, error)
}

// Service implements warehouse and room operations, including the
// safe-delete rules that keep stock from being orphaned.
type Service struct {
	store  WarehouseStore
	stock  StockChecker
	logger *logger.Logger
}

// NewService creates a new warehouse service
func NewService(store WarehouseStore, stock StockChecker, log *logger.Logger) *Service {
	return &Service{store: store, stock: stock, logger: log}
}

// CreateWarehouse creates a warehouse
func (s *Service) CreateWarehouse(ctx context.Context, name string, address *string) (*repository.Warehouse, error) {
	wh := &repository.Warehouse{Name: name, Address: address}
	if err := s.store.CreateWarehouse(ctx, wh); err != nil {
		return nil, err
	}
	s.logger.Info().Str("warehouse_id", wh.ID).Msg("warehouse created")
	return wh, nil
}

// GetWarehouse returns a single warehouse
func (s *Service) GetWarehouse(ctx context.Context, id string) (*repository.Warehouse, error) {
	return s.store.GetWarehouse(ctx, id)
}

// ListWarehouses returns all warehouses
func (s *Service) ListWarehouses(ctx context.Context) ([]*repository.Warehouse, error) {
	return s.store.ListWarehouses(ctx)
}

// DeleteWarehouse deletes a warehouse. Warehouses that still contain rooms
// cannot be deleted.
func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	if _, err := s.store.GetWarehouse(ctx, id); err != nil {
		return err
	}

	count, err := s.store.CountRooms(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Conflict("warehouse still contains rooms, delete them first")
	}

	return s.store.DeleteWarehouse(ctx, id)
}

// CreateRoomInput describes a new room
type CreateRoomInput struct {
	WarehouseID string
	Name        string
	FloorNo     *int
	RoomType    string
}

// CreateRoom creates a room inside a warehouse
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*repository.Room, error) {
	if _, err := s.store.GetWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}

	room := &repository.Room{
		WarehouseID: in.WarehouseID,
		Name:        in.Name,
		FloorNo:     in.FloorNo,
		RoomType:    in.RoomType,
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom returns a single room
func (s *Service) GetRoom(ctx context.Context, id string) (*repository.Room, error) {
	return s.store.GetRoom(ctx, id)
}

// ListRooms returns a warehouse's rooms
func (s *Service) ListRooms(ctx context.Context, warehouseID string) ([]*repository.Room, error) {
	if _, err := s.store.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	return s.store.ListRooms(ctx, warehouseID)
}

// UpdateRoomInput updates a room's mutable fields
type UpdateRoomInput struct {
	Name     string
	FloorNo  *int
	RoomType string
}

// UpdateRoom updates a room. The owning warehouse never changes; moving stock
// between warehouses is not a rename.
func (s *Service) UpdateRoom(ctx context.Context, id string, in UpdateRoomInput) (*repository.Room, error) {
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	room.Name = in.Name
	room.FloorNo = in.FloorNo
	if in.RoomType != "" {
		room.RoomType = in.RoomType
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// DeleteRoom deletes a room. Rooms that still hold available stock cannot be
// deleted; the stock must be transferred or deducted first.
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	if _, err := s.store.GetRoom(ctx, id); err != nil {
		return err
	}

	hasStock, err := s.stock.RoomHasStock(ctx, id)
	if err != nil {
		return err
	}
	if hasStock {
		return errors.Conflict("room still holds stock, transfer or deduct it first")
	}

	return s.store.DeleteRoom(ctx, id)
}
