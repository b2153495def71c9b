package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Document processing statuses, in pipeline order.
const (
	StatusUploaded           = "uploaded"
	StatusExtractingText     = "extracting_text"
	StatusTextExtracted      = "text_extracted"
	StatusExtractingMetadata = "extracting_metadata"
	StatusCompleted          = "completed"
	StatusFailed             = "failed"
)

var statuses = []string{
	StatusUploaded, StatusExtractingText, StatusTextExtracted,
	StatusExtractingMetadata, StatusCompleted, StatusFailed,
}

// ValidStatus reports whether status is a known document status.
func ValidStatus(status string) bool {
	return slices.Contains(statuses, status)
}

// UpdateStatus moves a document to status. message is stored as the error
// message and should be empty unless status is StatusFailed.
func (s *Store) UpdateStatus(ctx context.Context, documentID uuid.UUID, status, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $1, error_message = NULLIF($2, ''), updated_at = now()
		WHERE id = $3`,
		status, message, documentID,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Document is a document row with the headline fields of its metadata.
// Metadata fields are nil until extraction has completed.
type Document struct {
	ID                   uuid.UUID `json:"id"`
	Filename             string    `json:"filename"`
	Status               string    `json:"status"`
	ErrorMessage         *string   `json:"error_message,omitempty"`
	UploadedAt           time.Time `json:"uploaded_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	HasMetadata          bool      `json:"has_metadata"`
	AgreementType        *string   `json:"agreement_type"`
	Jurisdiction         *string   `json:"jurisdiction"`
	IndustrySector       *string   `json:"industry_sector"`
	Geography            *string   `json:"geography"`
	ExtractionConfidence *float64  `json:"extraction_confidence"`
}

// DocumentFilter narrows ListDocuments. Status matches exactly. The metadata
// filters are case-insensitive substring matches, and Jurisdiction also
// matches governing_law.
type DocumentFilter struct {
	Status         string
	AgreementType  string
	Jurisdiction   string
	IndustrySector string
	Geography      string
	Limit          int // default DefaultListLimit, capped at MaxListLimit
	Offset         int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

func (f DocumentFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

const documentSelect = `
	SELECT d.id, d.filename, d.status, d.error_message, d.uploaded_at, d.updated_at,
		m.document_id IS NOT NULL, m.agreement_type, m.jurisdiction, m.industry_sector,
		m.geography, m.extraction_confidence
	FROM documents d
	LEFT JOIN document_metadata m ON m.document_id = d.id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

// ListDocuments returns documents matching f, newest upload first.
func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]Document, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("d.status = $%d", f.Status)
	}
	if f.AgreementType != "" {
		add("m.agreement_type ILIKE $%d", containsPattern(f.AgreementType))
	}
	if f.Jurisdiction != "" {
		add("(m.jurisdiction ILIKE $%[1]d OR m.governing_law ILIKE $%[1]d)", containsPattern(f.Jurisdiction))
	}
	if f.IndustrySector != "" {
		add("m.industry_sector ILIKE $%d", containsPattern(f.IndustrySector))
	}
	if f.Geography != "" {
		add("m.geography ILIKE $%d", containsPattern(f.Geography))
	}

	query := documentSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.limit(), max(f.Offset, 0))
	query += fmt.Sprintf("\n\tORDER BY d.uploaded_at DESC, d.id\n\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocument returns one document, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, documentID uuid.UUID) (*Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx, documentSelect+"\n\tWHERE d.id = $1", documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Filename, &d.Status, &d.ErrorMessage, &d.UploadedAt, &d.UpdatedAt,
		&d.HasMetadata, &d.AgreementType, &d.Jurisdiction, &d.IndustrySector,
		&d.Geography, &d.ExtractionConfidence)
	return d, err
}
