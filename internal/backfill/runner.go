// Package backfill runs the extractor over a directory of document text
// files, for corpora that predate the event pipeline.
package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baznta/legal-intel-dashboard/internal/dedup"
	"github.com/baznta/legal-intel-dashboard/internal/extractor"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
)

// Config holds the backfill command configuration.
type Config struct {
	Dir        string
	StatePath  string
	Extensions []string // default: .txt
	BatchSize  int      // files between state saves (default: 25)
	DryRun     bool     // extract and report, never write to the store
}

// Saver persists extraction results for known documents.
type Saver interface {
	SaveMetadata(ctx context.Context, documentID uuid.UUID, r extractor.Result, extractedAt time.Time) error
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg    Config
	store  Saver
	out    io.Writer
	logger *slog.Logger
}

// NewRunner creates a backfill runner. s may be nil, in which case results
// are only written to out.
func NewRunner(cfg Config, s Saver, out io.Writer, logger *slog.Logger) *Runner {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".txt"}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	return &Runner{cfg: cfg, store: s, out: out, logger: logger}
}

// Run extracts every unprocessed file under the configured directory,
// writing one JSON line per file to out. Progress is saved so an
// interrupted run resumes where it stopped.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return sum, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return sum, fmt.Errorf("discover files: %w", err)
	}

	var pending []string
	for _, f := range files {
		if !state.IsProcessed(f) {
			pending = append(pending, f)
		}
	}
	state.FilesRemaining = len(pending)
	r.logger.Info("files to process",
		"total", len(files),
		"pending", len(pending),
		"dry_run", r.cfg.DryRun,
	)

	enc := json.NewEncoder(r.out)
	sinceSave := 0

	for _, path := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted, saving state")
			r.saveState(state)
			return sum, ctx.Err()
		default:
		}

		res, err := r.processFile(ctx, state, path)
		if err != nil {
			r.logger.Warn("failed to process file", "path", path, "error", err)
			state.AddError(fmt.Sprintf("%s: %v", path, err))
			sum.Errors++
		} else {
			if err := enc.Encode(res); err != nil {
				r.saveState(state)
				return sum, fmt.Errorf("write report: %w", err)
			}
			switch {
			case res.DuplicateOf != "":
				state.DuplicatesSkipped++
				sum.Duplicates++
			default:
				state.DocumentsExtracted++
				sum.Extracted++
			}
			if res.Stored {
				state.DocumentsStored++
				sum.Stored++
			}
			// Failed files stay unprocessed so the next run retries them.
			state.MarkProcessed(path)
		}

		state.FilesRemaining--
		sum.FilesProcessed++

		sinceSave++
		if sinceSave >= r.cfg.BatchSize {
			r.saveState(state)
			sinceSave = 0
		}
	}

	if err := state.Save(); err != nil {
		return sum, fmt.Errorf("save state: %w", err)
	}

	r.logger.Info("backfill complete",
		"files_processed", sum.FilesProcessed,
		"extracted", sum.Extracted,
		"stored", sum.Stored,
		"duplicates", sum.Duplicates,
		"errors", sum.Errors,
		"state_file", state.Path(),
	)
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, state *BackfillState, path string) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	text, err := objectstore.ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	res := &FileResult{
		Path:        path,
		ContentHash: dedup.ContentHash(text),
	}

	// Identical text under two document IDs is still two documents, so the
	// seen-set is scoped per ID. Only unnamed copies collapse into one.
	seenKey := res.ContentHash
	docID, hasID := documentID(path)
	if hasID {
		res.DocumentID = docID.String()
		seenKey = res.DocumentID + ":" + res.ContentHash
	}
	if first, dup := state.SeenContent(seenKey, path); dup {
		res.DuplicateOf = first
		return res, nil
	}

	result := extractor.ExtractWithFilename(filepath.Base(path), text)
	res.Metadata = &result

	if hasID && r.store != nil && !r.cfg.DryRun {
		if err := r.store.SaveMetadata(ctx, docID, result, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("save metadata: %w", err)
		}
		res.Stored = true
	}
	return res, nil
}

func (r *Runner) saveState(state *BackfillState) {
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save state", "path", state.Path(), "error", err)
	}
}

// documentID parses a file named "<uuid>.<ext>".
func documentID(path string) (uuid.UUID, bool) {
	base := filepath.Base(path)
	id, err := uuid.Parse(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (r *Runner) discoverFiles() ([]string, error) {
	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("error walking dir", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() && r.wanted(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) wanted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range r.cfg.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
