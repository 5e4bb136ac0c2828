package storage

import (
	"path/filepath"

	"yt-analytics/internal/models"
)

// RawStore holds the ingestion output: the video payloads and the comments
// fetched for them.
type RawStore struct {
	dir string
}

// NewRawStore returns a store rooted at dataDir.
func NewRawStore(dataDir string) *RawStore {
	return &RawStore{dir: dataDir}
}

// VideosPath is the location of the raw video payloads.
func (s *RawStore) VideosPath() string { return filepath.Join(s.dir, RawVideosFile) }

// CommentsPath is the location of the fetched comments.
func (s *RawStore) CommentsPath() string { return filepath.Join(s.dir, CommentsFile) }

// SaveVideos replaces the raw video payloads.
func (s *RawStore) SaveVideos(videos []models.RawVideo) error {
	if videos == nil {
		videos = []models.RawVideo{}
	}
	return writeJSONAtomic(s.VideosPath(), videos)
}

// LoadVideos reads the raw video payloads.
func (s *RawStore) LoadVideos() ([]models.RawVideo, error) {
	var videos []models.RawVideo
	if err := readJSON(s.VideosPath(), &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// SaveComments replaces the fetched comments.
func (s *RawStore) SaveComments(comments models.CommentSet) error {
	if comments == nil {
		comments = models.CommentSet{}
	}
	return writeJSONAtomic(s.CommentsPath(), comments)
}

// LoadComments reads the fetched comments.
func (s *RawStore) LoadComments() (models.CommentSet, error) {
	comments := models.CommentSet{}
	if err := readJSON(s.CommentsPath(), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
