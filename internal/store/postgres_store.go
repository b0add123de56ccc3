package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"elemental-td/internal/tilemap"
)

const levelSchema = `
CREATE TABLE IF NOT EXISTS levels (
	name TEXT PRIMARY KEY,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	entry_x INTEGER NOT NULL,
	entry_y INTEGER NOT NULL,
	exit_x INTEGER NOT NULL,
	exit_y INTEGER NOT NULL,
	tiles JSONB NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`

// PostgresStore keeps levels in a Postgres "levels" table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database and creates the schema if needed.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, levelSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// SaveLevel upserts s keyed on its name.
func (ps *PostgresStore) SaveLevel(ctx context.Context, s *tilemap.Snapshot) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("save level: missing name: %w", tilemap.ErrInvalidOperation)
	}
	tiles, err := json.Marshal(s.Tiles)
	if err != nil {
		return fmt.Errorf("marshal tiles for %q: %w", s.Name, err)
	}
	const query = `
	INSERT INTO levels (name, width, height, entry_x, entry_y, exit_x, exit_y, tiles)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (name)
	DO UPDATE SET
		width = $2, height = $3,
		entry_x = $4, entry_y = $5, exit_x = $6, exit_y = $7,
		tiles = $8, updated_at = NOW()
	`
	_, err = ps.db.ExecContext(ctx, query,
		s.Name, s.Width, s.Height,
		s.Entry.X, s.Entry.Y, s.Exit.X, s.Exit.Y,
		string(tiles))
	if err != nil {
		return fmt.Errorf("save level %q: %w", s.Name, err)
	}
	return nil
}

// LoadLevel reads the level stored under name.
func (ps *PostgresStore) LoadLevel(ctx context.Context, name string) (*tilemap.Snapshot, error) {
	const query = `SELECT name, width, height, entry_x, entry_y, exit_x, exit_y, tiles FROM levels WHERE name = $1`
	var s tilemap.Snapshot
	var tiles []byte
	err := ps.db.QueryRowContext(ctx, query, name).Scan(
		&s.Name, &s.Width, &s.Height,
		&s.Entry.X, &s.Entry.Y, &s.Exit.X, &s.Exit.Y,
		&tiles,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrLevelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load level %q: %w", name, err)
	}
	if err := json.Unmarshal(tiles, &s.Tiles); err != nil {
		return nil, fmt.Errorf("unmarshal tiles for %q: %w", name, err)
	}
	return &s, nil
}

// ListLevels returns every stored level name in order.
func (ps *PostgresStore) ListLevels(ctx context.Context) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT name FROM levels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list levels: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
