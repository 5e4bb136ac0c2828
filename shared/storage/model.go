package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"yt-analytics/internal/predictor"
)

// ErrModelNotFound is returned when no model has been trained yet.
var ErrModelNotFound = errors.New("model not found")

// ModelStore persists the trained predictor as JSON.
type ModelStore struct {
	path string
}

// NewModelStore returns a store writing into outputDir.
func NewModelStore(outputDir string) *ModelStore {
	return &ModelStore{path: filepath.Join(outputDir, ModelFile)}
}

// Path is the artifact location.
func (s *ModelStore) Path() string { return s.path }

// Save replaces the stored model.
func (s *ModelStore) Save(m *predictor.Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save model: %w", err)
	}
	return writeJSONAtomic(s.path, m)
}

// Load reads and validates the stored model.
func (s *ModelStore) Load() (*predictor.Model, error) {
	var m predictor.Model
	if err := readJSON(s.path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.path, err)
	}
	return &m, nil
}
