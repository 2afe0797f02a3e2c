package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/errors"
)

// Room types
const (
	RoomTypeNormal      = "NORMAL"
	RoomTypeColdStorage = "COLD_STORAGE"
	RoomTypePacking     = "PACKING"
	RoomTypeOther       = "OTHER"
)

// Warehouse is a physical site holding rooms
type Warehouse struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Room is the unit stock is physically placed in. Every room belongs to
// exactly one warehouse.
type Room struct {
	ID          string    `db:"id" json:"id"`
	WarehouseID string    `db:"warehouse_id" json:"warehouse_id"`
	Name        string    `db:"name" json:"name"`
	FloorNo     *int      `db:"floor_no" json:"floor_no,omitempty"`
	RoomType    string    `db:"room_type" json:"room_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WarehouseRepository handles warehouse and room persistence
type WarehouseRepository struct {
	db *database.DB
}

// NewWarehouseRepository creates a new warehouse repository
func NewWarehouseRepository(db *database.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// CreateWarehouse creates a new warehouse
func (r *WarehouseRepository) CreateWarehouse(ctx context.Context, wh *Warehouse) error {
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}

	query := `INSERT INTO warehouses (id, name, address) VALUES ($1, $2, $3) RETURNING created_at`
	return r.db.QueryRowxContext(ctx, query, wh.ID, wh.Name, wh.Address).Scan(&wh.CreatedAt)
}

// GetWarehouse gets a warehouse by ID
func (r *WarehouseRepository) GetWarehouse(ctx context.Context, id string) (*Warehouse, error) {
	var wh Warehouse
	query := `SELECT * FROM warehouses WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &wh, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("warehouse")
		}
		return nil, err
	}
	return &wh, nil
}

// ListWarehouses lists all warehouses
func (r *WarehouseRepository) ListWarehouses(ctx context.Context) ([]*Warehouse, error) {
	warehouses := []*Warehouse{}
	query := `SELECT * FROM warehouses ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, r.db, &warehouses, query); err != nil {
		return nil, err
	}
	return warehouses, nil
}

// DeleteWarehouse deletes a warehouse
func (r *WarehouseRepository) DeleteWarehouse(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("warehouse")
	}
	return nil
}

// CountRooms counts the rooms of a warehouse
func (r *WarehouseRepository) CountRooms(ctx context.Context, warehouseID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM rooms WHERE warehouse_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &count, query, warehouseID); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateRoom creates a new room
func (r *WarehouseRepository) CreateRoom(ctx context.Context, room *Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.RoomType == "" {
		room.RoomType = RoomTypeNormal
	}

	query := `
		INSERT INTO rooms (id, warehouse_id, name, floor_no, room_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		room.ID, room.WarehouseID, room.Name, room.FloorNo, room.RoomType,
	).Scan(&room.CreatedAt)
}

// GetRoom gets a room by ID
func (r *WarehouseRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	var room Room
	query := `SELECT * FROM rooms WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("room")
		}
		return nil, err
	}
	return &room, nil
}

// ListRooms lists the rooms of a warehouse
func (r *WarehouseRepository) ListRooms(ctx context.Context, warehouseID string) ([]*Room, error) {
	rooms := []*Room{}
	query := `SELECT * FROM rooms WHERE warehouse_id = $1 ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, r.db, &rooms, query, warehouseID); err != nil {
		return nil, err
	}
	return rooms, nil
}

// UpdateRoom updates a room's name and floor number
func (r *WarehouseRepository) UpdateRoom(ctx context.Context, room *Room) error {
	query := `UPDATE rooms SET name = $2, floor_no = $3, room_type = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, room.ID, room.Name, room.FloorNo, room.RoomType)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("room")
	}
	return nil
}

// DeleteRoom deletes a room
func (r *WarehouseRepository) DeleteRoom(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("room")
	}
	return nil
}
