// Package store persists named levels.
package store

import (
	"context"
	"errors"

	"elemental-td/internal/tilemap"
)

// ErrLevelNotFound is returned when no level is stored under a name.
var ErrLevelNotFound = errors.New("level not found")

// Storage saves and loads level snapshots by name.
type Storage interface {
	SaveLevel(ctx context.Context, s *tilemap.Snapshot) error
	LoadLevel(ctx context.Context, name string) (*tilemap.Snapshot, error)
	ListLevels(ctx context.Context) ([]string, error)
	Close() error
}
