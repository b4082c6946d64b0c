package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_home/internal/models"
)

// EventRepo is the append-only audit log of device and weather events.
type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error)
}

type Repository struct {
	State     *StateStore
	EventRepo EventRepo
}

// NewRepository builds a fresh in-memory state store and the SQLite event log.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		State:     NewStateStore(),
		EventRepo: NewEventSQLite(db),
	}
}
