package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
)

// MetadataRecord is a stored extraction result for one document.
type MetadataRecord struct {
	DocumentID  uuid.UUID        `json:"document_id"`
	Filename    string           `json:"filename"`
	Result      extractor.Result `json:"metadata"`
	ExtractedAt time.Time        `json:"extracted_at"`
}

// SaveMetadata upserts the metadata row for a document and marks the document
// completed, in one transaction.
func (s *Store) SaveMetadata(ctx context.Context, documentID uuid.UUID, r extractor.Result, extractedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO document_metadata (
			document_id, agreement_type, jurisdiction, governing_law, geography, industry_sector,
			parties, effective_date, expiration_date, contract_value, currency, keywords, tags,
			extraction_confidence, extraction_method, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (document_id) DO UPDATE SET
			agreement_type = EXCLUDED.agreement_type,
			jurisdiction = EXCLUDED.jurisdiction,
			governing_law = EXCLUDED.governing_law,
			geography = EXCLUDED.geography,
			industry_sector = EXCLUDED.industry_sector,
			parties = EXCLUDED.parties,
			effective_date = EXCLUDED.effective_date,
			expiration_date = EXCLUDED.expiration_date,
			contract_value = EXCLUDED.contract_value,
			currency = EXCLUDED.currency,
			keywords = EXCLUDED.keywords,
			tags = EXCLUDED.tags,
			extraction_confidence = EXCLUDED.extraction_confidence,
			extraction_method = EXCLUDED.extraction_method,
			extracted_at = EXCLUDED.extracted_at`,
		documentID, r.AgreementType, r.Jurisdiction, r.GoverningLaw, r.Geography, r.IndustrySector,
		r.Parties, dateArg(r.EffectiveDate), dateArg(r.ExpirationDate), decimalArg(r.ContractValue),
		r.Currency, r.Keywords, r.Tags, r.ExtractionConfidence, r.ExtractionMethod, extractedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE documents SET status = $1, error_message = NULL, updated_at = now()
		WHERE id = $2`,
		StatusCompleted, documentID,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetMetadata returns the stored metadata for a document, or ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, documentID uuid.UUID) (*MetadataRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT d.id, d.filename, m.agreement_type, m.jurisdiction, m.governing_law, m.geography,
			m.industry_sector, m.parties, m.effective_date, m.expiration_date, m.contract_value::text,
			m.currency, m.keywords, m.tags, m.extraction_confidence, m.extraction_method, m.extracted_at
		FROM document_metadata m
		JOIN documents d ON d.id = m.document_id
		WHERE m.document_id = $1`,
		documentID,
	)

	var (
		rec                 MetadataRecord
		effective, expiring *time.Time
		value               *string
	)
	r := &rec.Result
	err := row.Scan(&rec.DocumentID, &rec.Filename, &r.AgreementType, &r.Jurisdiction, &r.GoverningLaw,
		&r.Geography, &r.IndustrySector, &r.Parties, &effective, &expiring, &value,
		&r.Currency, &r.Keywords, &r.Tags, &r.ExtractionConfidence, &r.ExtractionMethod, &rec.ExtractedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	r.EffectiveDate = dateFromDB(effective)
	r.ExpirationDate = dateFromDB(expiring)
	if value != nil {
		d, err := decimal.NewFromString(*value)
		if err != nil {
			return nil, fmt.Errorf("parse contract value: %w", err)
		}
		r.ContractValue = &d
	}
	if r.Parties == nil {
		r.Parties = []string{}
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return &rec, nil
}

func dateArg(d *extractor.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateFromDB(t *time.Time) *extractor.Date {
	if t == nil {
		return nil
	}
	d := extractor.NewDate(*t)
	return &d
}

func decimalArg(v *decimal.Decimal) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
