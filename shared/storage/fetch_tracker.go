package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FetchTracker remembers when the comments of each video were last fetched
// so a refresh can reuse recent comments instead of spending API quota.
type FetchTracker struct {
	filePath  string
	fetchedAt map[string]time.Time
	mu        sync.RWMutex
	maxAge    time.Duration
	now       func() time.Time
}

// FetchRecord is the persisted form of one tracked video.
type FetchRecord struct {
	VideoID   string    `json:"video_id"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewFetchTracker loads the tracker state from dataDir, dropping entries
// older than maxAge. A maxAge of zero treats every entry as stale.
func NewFetchTracker(dataDir string, maxAge time.Duration) (*FetchTracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tracker := &FetchTracker{
		filePath:  filepath.Join(dataDir, FetchStateFile),
		fetchedAt: make(map[string]time.Time),
		maxAge:    maxAge,
		now:       time.Now,
	}

	if err := tracker.load(); err != nil {
		return nil, fmt.Errorf("failed to load fetch tracker: %w", err)
	}
	tracker.prune()

	return tracker, nil
}

// IsFresh reports whether the video's comments were fetched within maxAge.
func (ft *FetchTracker) IsFresh(videoID string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	at, ok := ft.fetchedAt[videoID]
	if !ok {
		return false
	}
	return ft.now().Sub(at) < ft.maxAge
}

// MarkFetched records the videos as fetched now and persists the state.
func (ft *FetchTracker) MarkFetched(videoIDs ...string) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	now := ft.now()
	for _, id := range videoIDs {
		ft.fetchedAt[id] = now
	}
	return ft.save()
}

// Count returns the number of tracked videos.
func (ft *FetchTracker) Count() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.fetchedAt)
}

func (ft *FetchTracker) prune() {
	cutoff := ft.now().Add(-ft.maxAge)
	for id, at := range ft.fetchedAt {
		if at.Before(cutoff) {
			delete(ft.fetchedAt, id)
		}
	}
}

func (ft *FetchTracker) load() error {
	var records []FetchRecord
	if err := readJSON(ft.filePath, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, r := range records {
		ft.fetchedAt[r.VideoID] = r.FetchedAt
	}
	return nil
}

// save must be called with mu held.
func (ft *FetchTracker) save() error {
	records := make([]FetchRecord, 0, len(ft.fetchedAt))
	for id, at := range ft.fetchedAt {
		records = append(records, FetchRecord{VideoID: id, FetchedAt: at})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].VideoID < records[j].VideoID })
	return writeJSONAtomic(ft.filePath, records)
}
