package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
	"github.com/baznta/legal-intel-dashboard/internal/hermes"
	"github.com/baznta/legal-intel-dashboard/internal/metrics"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
	"github.com/baznta/legal-intel-dashboard/internal/store"
)

// handleTimeout bounds the I/O done for a single event.
const handleTimeout = 30 * time.Second

// Failure stages reported in hermes.ExtractionFailed.
const (
	StageFetch   = "fetch"
	StagePersist = "persist"
)

// MetadataStore is the persistence the processor needs.
type MetadataStore interface {
	UpdateStatus(ctx context.Context, documentID uuid.UUID, status, message string) error
	SaveMetadata(ctx context.Context, documentID uuid.UUID, r extractor.Result, extractedAt time.Time) error
}

// TextSource loads document text that was too large to travel in the event.
type TextSource interface {
	GetText(ctx context.Context, key string) (string, error)
}

// TextArchive keeps a copy of processed text under the document's canonical
// key so the document can be reprocessed later.
type TextArchive interface {
	PutText(ctx context.Context, key, text string) error
}

// Claimer suppresses redelivered events for text that was already processed.
type Claimer interface {
	Claim(ctx context.Context, documentID, text string) (bool, error)
	Release(ctx context.Context, documentID, text string) error
}

// Reviewer asks a human to check a low-confidence extraction.
type Reviewer interface {
	PostReview(ctx context.Context, documentID, filename string, r extractor.Result) (string, error)
}

// Publisher emits pipeline events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Processor runs the metadata extraction step of the document pipeline.
type Processor struct {
	store   MetadataStore
	text    TextSource
	archive TextArchive
	guard   Claimer
	pub     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	reviewer        Reviewer
	reviewThreshold float64
}

// Option configures optional Processor dependencies.
type Option func(*Processor)

// WithTextSource enables loading text by object key.
func WithTextSource(ts TextSource) Option {
	return func(p *Processor) { p.text = ts }
}

// WithTextArchive stores processed text at objectstore.TextKey.
func WithTextArchive(a TextArchive) Option {
	return func(p *Processor) { p.archive = a }
}

// WithClaimer enables duplicate suppression.
func WithClaimer(c Claimer) Option {
	return func(p *Processor) { p.guard = c }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithReviewer posts extractions scoring below threshold for review.
func WithReviewer(r Reviewer, threshold float64) Option {
	return func(p *Processor) {
		p.reviewer = r
		p.reviewThreshold = threshold
	}
}

func New(s MetadataStore, pub Publisher, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{store: s, pub: pub, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleTextExtracted is the NATS handler for legalintel.document.text_extracted.
func (p *Processor) HandleTextExtracted(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	var evt extractor.TextExtractedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse text extracted event", "subject", subject, "error", err)
		return
	}

	docID, err := uuid.Parse(evt.DocumentID)
	if err != nil {
		p.logger.Error("invalid document id", "document_id", evt.DocumentID, "error", err)
		return
	}

	p.logger.Info("processing document",
		"document_id", evt.DocumentID,
		"filename", evt.Filename,
		"inline", evt.Text != "",
	)

	text, err := p.fetchText(ctx, evt)
	if err != nil {
		p.fail(ctx, docID, StageFetch, err)
		return
	}

	if evt.Reprocess {
		p.logger.Info("reprocess requested, skipping dedup check", "document_id", evt.DocumentID)
	} else if p.guard != nil {
		claimed, err := p.guard.Claim(ctx, evt.DocumentID, text)
		if err != nil {
			p.logger.Warn("dedup check failed, processing anyway", "document_id", evt.DocumentID, "error", err)
		} else if !claimed {
			p.logger.Info("skipping duplicate document event", "document_id", evt.DocumentID)
			p.metrics.Processed(metrics.ResultDuplicate)
			return
		}
	}

	if err := p.store.UpdateStatus(ctx, docID, store.StatusExtractingMetadata, ""); err != nil {
		p.release(ctx, evt.DocumentID, text)
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Warn("document not found, dropping event", "document_id", evt.DocumentID)
			return
		}
		p.fail(ctx, docID, StagePersist, err)
		return
	}

	start := time.Now()
	result := extractor.ExtractWithFilename(evt.Filename, text)
	elapsed := time.Since(start)
	extractedAt := time.Now().UTC()

	if err := p.store.SaveMetadata(ctx, docID, result, extractedAt); err != nil {
		p.release(ctx, evt.DocumentID, text)
		p.fail(ctx, docID, StagePersist, err)
		return
	}

	p.archiveText(ctx, evt, text)

	p.metrics.Processed(metrics.ResultCompleted)
	p.metrics.Extracted(result.ExtractionConfidence, elapsed.Seconds(), extractor.PopulatedFields(&result))

	if err := p.pub.Publish(hermes.SubjectMetadataExtracted, hermes.MetadataExtracted{
		DocumentID:           evt.DocumentID,
		AgreementType:        result.AgreementType,
		Jurisdiction:         result.Jurisdiction,
		ExtractionConfidence: result.ExtractionConfidence,
		ExtractedAt:          extractedAt,
	}); err != nil {
		p.logger.Error("failed to publish metadata extracted", "document_id", evt.DocumentID, "error", err)
	}

	if p.reviewer != nil && result.ExtractionConfidence < p.reviewThreshold {
		if _, err := p.reviewer.PostReview(ctx, evt.DocumentID, evt.Filename, result); err != nil {
			p.logger.Error("failed to post review", "document_id", evt.DocumentID, "error", err)
		}
	}

	p.logger.Info("document processed",
		"document_id", evt.DocumentID,
		"agreement_type", deref(result.AgreementType),
		"confidence", result.ExtractionConfidence,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (p *Processor) fetchText(ctx context.Context, evt extractor.TextExtractedEvent) (string, error) {
	// Prefer text embedded in the event payload.
	if evt.Text != "" {
		return evt.Text, nil
	}
	if evt.TextObject == "" {
		return "", fmt.Errorf("no text in event payload for document %s", evt.DocumentID)
	}
	if p.text == nil {
		return "", fmt.Errorf("text object %s referenced but object storage not configured", evt.TextObject)
	}
	text, err := p.text.GetText(ctx, evt.TextObject)
	if err != nil {
		return "", fmt.Errorf("fetch text object: %w", err)
	}
	return text, nil
}

// archiveText copies text to the document's canonical key unless it was
// read from there. A failure only costs the ability to reprocess.
func (p *Processor) archiveText(ctx context.Context, evt extractor.TextExtractedEvent, text string) {
	if p.archive == nil {
		return
	}
	key := objectstore.TextKey(evt.DocumentID)
	if evt.TextObject == key {
		return
	}
	if err := p.archive.PutText(ctx, key, text); err != nil {
		p.logger.Warn("failed to archive document text", "document_id", evt.DocumentID, "key", key, "error", err)
	}
}

// fail marks the document failed and announces it. Errors here are logged
// only; there is nobody left to report them to.
func (p *Processor) fail(ctx context.Context, docID uuid.UUID, stage string, cause error) {
	p.logger.Error("document processing failed", "document_id", docID, "stage", stage, "error", cause)
	p.metrics.Processed(metrics.ResultFailed)

	if err := p.store.UpdateStatus(ctx, docID, store.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("failed to mark document failed", "document_id", docID, "error", err)
	}
	if err := p.pub.Publish(hermes.SubjectExtractionFailed, hermes.ExtractionFailed{
		DocumentID: docID.String(),
		Stage:      stage,
		Error:      cause.Error(),
	}); err != nil {
		p.logger.Error("failed to publish extraction failed", "document_id", docID, "error", err)
	}
}

// release lets a redelivery of the same event retry after a failure.
func (p *Processor) release(ctx context.Context, documentID, text string) {
	if p.guard == nil {
		return
	}
	if err := p.guard.Release(ctx, documentID, text); err != nil {
		p.logger.Warn("failed to release dedup claim", "document_id", documentID, "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
