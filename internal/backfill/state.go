package backfill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStatePath is where progress is kept when no path is given.
const DefaultStatePath = "~/.legalintel/backfill-state.json"

// BackfillState tracks progress for resumable backfill runs.
type BackfillState struct {
	StartedAt          time.Time         `json:"started_at"`
	LastProcessedAt    time.Time         `json:"last_processed_at"`
	FilesProcessed     []string          `json:"files_processed"`
	FilesRemaining     int               `json:"files_remaining"`
	DocumentsExtracted int               `json:"documents_extracted"`
	DocumentsStored    int               `json:"documents_stored"`
	DuplicatesSkipped  int               `json:"duplicates_skipped"`
	ContentHashes      map[string]string `json:"content_hashes"` // [document id:]hash -> first path
	Errors             []string          `json:"errors"`

	path      string // not serialized
	processed map[string]struct{}
}

// LoadState loads the backfill state from path, or creates a new one.
func LoadState(path string) (*BackfillState, error) {
	if path == "" {
		path = DefaultStatePath
	}
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			s := &BackfillState{
				StartedAt: time.Now().UTC(),
				path:      p,
			}
			s.index()
			return s, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s BackfillState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	s.index()
	return &s, nil
}

func (s *BackfillState) index() {
	s.processed = make(map[string]struct{}, len(s.FilesProcessed))
	for _, f := range s.FilesProcessed {
		s.processed[f] = struct{}{}
	}
	if s.ContentHashes == nil {
		s.ContentHashes = make(map[string]string)
	}
}

// Path is the resolved location of the state file.
func (s *BackfillState) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *BackfillState) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// IsProcessed returns true if the given file has already been processed.
func (s *BackfillState) IsProcessed(path string) bool {
	if s.processed == nil {
		s.index()
	}
	_, ok := s.processed[path]
	return ok
}

// MarkProcessed records a file as processed.
func (s *BackfillState) MarkProcessed(path string) {
	if s.IsProcessed(path) {
		return
	}
	s.FilesProcessed = append(s.FilesProcessed, path)
	s.processed[path] = struct{}{}
}

// SeenContent records key for path and returns the first path recorded under
// the same key, if any. Keys are content hashes, prefixed with the document ID
// for files named after one.
func (s *BackfillState) SeenContent(key, path string) (string, bool) {
	if s.ContentHashes == nil {
		s.ContentHashes = make(map[string]string)
	}
	if first, ok := s.ContentHashes[key]; ok && first != path {
		return first, true
	}
	s.ContentHashes[key] = path
	return "", false
}

// AddError records a processing error.
func (s *BackfillState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
