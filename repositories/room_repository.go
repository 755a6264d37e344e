package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/debate-system/models"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepository interface {
	GetByID(ctx context.Context, id int) (*models.Room, error)
}

type postgresRoomRepository struct {
	db *sql.DB
}

func NewPostgresRoomRepository(db *sql.DB) RoomRepository {
	return &postgresRoomRepository{db: db}
}

func (r *postgresRoomRepository) GetByID(ctx context.Context, id int) (*models.Room, error) {
	query := `SELECT id, name, default_start_time FROM rooms WHERE id = $1`

	room := &models.Room{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&room.ID, &room.Name, &room.DefaultStartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to scan room by id %d: %w", id, err)
	}
	return room, nil
}
