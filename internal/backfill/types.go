package backfill

import (
	"github.com/baznta/legal-intel-dashboard/internal/extractor"
)

// FileResult is one line of the backfill JSONL report.
type FileResult struct {
	Path        string            `json:"path"`
	DocumentID  string            `json:"document_id,omitempty"`
	ContentHash string            `json:"content_hash"`
	DuplicateOf string            `json:"duplicate_of,omitempty"`
	Stored      bool              `json:"stored"`
	Metadata    *extractor.Result `json:"metadata,omitempty"`
}

// Summary totals a backfill run.
type Summary struct {
	FilesProcessed int
	Extracted      int
	Stored         int
	Duplicates     int
	Errors         int
}
