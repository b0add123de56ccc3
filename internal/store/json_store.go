package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"elemental-td/internal/tilemap"
)

// JSONStore keeps every level in a single indented JSON file.
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	levels   map[string]*tilemap.Snapshot
}

type jsonData struct {
	Levels map[string]*tilemap.Snapshot `json:"levels"`
}

// NewJSONStore opens filePath, creating it when it does not exist.
func NewJSONStore(filePath string) (*JSONStore, error) {
	js := &JSONStore{
		filePath: filePath,
		levels:   make(map[string]*tilemap.Snapshot),
	}
	raw, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := js.saveToFile(); err != nil {
			return nil, fmt.Errorf("create level file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read level file: %w", err)
	default:
		var data jsonData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse level file %s: %w", filePath, err)
		}
		for name, s := range data.Levels {
			if s != nil {
				js.levels[name] = s
			}
		}
	}
	return js, nil
}

// saveToFile must be called with the mutex held for writing, or before the
// store is shared.
func (js *JSONStore) saveToFile() error {
	data, err := json.MarshalIndent(jsonData{Levels: js.levels}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(js.filePath, data, 0o644)
}

// SaveLevel stores s under s.Name, replacing any level of the same name.
func (js *JSONStore) SaveLevel(ctx context.Context, s *tilemap.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.Name == "" {
		return fmt.Errorf("save level: missing name: %w", tilemap.ErrInvalidOperation)
	}
	js.mutex.Lock()
	defer js.mutex.Unlock()
	prev, had := js.levels[s.Name]
	js.levels[s.Name] = cloneSnapshot(s)
	if err := js.saveToFile(); err != nil {
		if had {
			js.levels[s.Name] = prev
		} else {
			delete(js.levels, s.Name)
		}
		return fmt.Errorf("save level %q: %w", s.Name, err)
	}
	return nil
}

// LoadLevel returns a copy of the level stored under name.
func (js *JSONStore) LoadLevel(ctx context.Context, name string) (*tilemap.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	js.mutex.RLock()
	defer js.mutex.RUnlock()
	s, ok := js.levels[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrLevelNotFound)
	}
	return cloneSnapshot(s), nil
}

// ListLevels returns the stored level names in order.
func (js *JSONStore) ListLevels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	js.mutex.RLock()
	defer js.mutex.RUnlock()
	names := make([]string, 0, len(js.levels))
	for name := range js.levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; every save is flushed immediately.
func (js *JSONStore) Close() error { return nil }

func cloneSnapshot(s *tilemap.Snapshot) *tilemap.Snapshot {
	out := *s
	out.Tiles = make([]tilemap.TileRecord, len(s.Tiles))
	for i, rec := range s.Tiles {
		rec.Affliction = rec.Affliction.Clone()
		out.Tiles[i] = rec
	}
	return &out
}
