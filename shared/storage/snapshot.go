package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/shared/logger"
)

// State is one immutable view of the published artifacts. Readers must not
// modify it.
type State struct {
	Dataset  models.Dataset
	Model    *predictor.Model
	LoadedAt time.Time
}

// Snapshot publishes the latest artifacts to concurrent readers. Reload
// builds a complete new State and swaps it in, so a reader sees either the
// old artifacts or the new ones, never a mix.
type Snapshot struct {
	datasets *DatasetStore
	models   *ModelStore
	log      logger.Logger
	state    atomic.Pointer[State]
	onReload func(*State)
}

// NewSnapshot returns a snapshot holding an empty state until Reload.
func NewSnapshot(datasets *DatasetStore, modelStore *ModelStore, log logger.Logger) *Snapshot {
	s := &Snapshot{datasets: datasets, models: modelStore, log: log}
	s.state.Store(&State{})
	return s
}

// OnReload registers fn to be called with every newly published state. It
// must be set before the first Reload.
func (s *Snapshot) OnReload(fn func(*State)) {
	s.onReload = fn
}

// Current returns the published state.
func (s *Snapshot) Current() *State {
	return s.state.Load()
}

// Reload reads the artifacts from disk and publishes them. A missing dataset
// publishes an empty one and a missing model leaves Model nil. On any other
// error the previous state stays published.
func (s *Snapshot) Reload() error {
	ds, err := s.datasets.Load()
	switch {
	case errors.Is(err, ErrDatasetNotFound):
		s.log.Warn("Dataset not built yet", logger.String("path", s.datasets.Path()))
		ds = models.Dataset{}
	case err != nil:
		return fmt.Errorf("failed to reload dataset: %w", err)
	}

	m, err := s.models.Load()
	switch {
	case errors.Is(err, ErrModelNotFound):
		s.log.Warn("Model not trained yet", logger.String("path", s.models.Path()))
		m = nil
	case err != nil:
		return fmt.Errorf("failed to reload model: %w", err)
	}

	state := &State{Dataset: ds, Model: m, LoadedAt: time.Now().UTC()}
	s.state.Store(state)
	if s.onReload != nil {
		s.onReload(state)
	}
	s.log.Info("Snapshot reloaded",
		logger.Int("videos", len(ds)),
		logger.Bool("model_loaded", m != nil),
	)
	return nil
}

// Watch reloads the snapshot whenever the dataset or model file changes.
// Bursts of events within debounce trigger a single reload. It blocks until
// ctx is done.
func (s *Snapshot) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{
		filepath.Clean(s.datasets.Path()): true,
		filepath.Clean(s.models.Path()):   true,
	}
	dirs := map[string]bool{}
	for path := range targets {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] || strings.HasPrefix(filepath.Base(event.Name), ".tmp-") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", logger.Error(err))

		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.log.Error("Failed to reload snapshot", logger.Error(err))
			}
		}
	}
}
