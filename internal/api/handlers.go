package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
	"github.com/baznta/legal-intel-dashboard/internal/hermes"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
	"github.com/baznta/legal-intel-dashboard/internal/store"
)

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
}

// extract handles POST /api/v1/extract. It runs the engine without touching
// the store.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, objectstore.MaxTextBytes)

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extractor.ExtractWithFilename(req.Filename, req.Text))
}

// metadata handles GET /api/v1/documents/{id}/metadata.
func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	rec, err := s.db.GetMetadata(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "metadata not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load metadata", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load metadata")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DocumentList is the response of GET /api/v1/documents.
type DocumentList struct {
	Documents []store.Document `json:"documents"`
	Count     int              `json:"count"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// listDocuments handles GET /api/v1/documents. Query parameters status,
// agreement_type, jurisdiction, industry_sector and geography filter the
// list; limit and offset page through it.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.DocumentFilter{
		Status:         q.Get("status"),
		AgreementType:  q.Get("agreement_type"),
		Jurisdiction:   q.Get("jurisdiction"),
		IndustrySector: q.Get("industry_sector"),
		Geography:      q.Get("geography"),
	}
	if f.Status != "" && !store.ValidStatus(f.Status) {
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(f.Status))
		return
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit"), store.DefaultListLimit); err != nil || f.Limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	f.Limit = min(f.Limit, store.MaxListLimit)
	if f.Offset, err = intParam(q.Get("offset"), 0); err != nil || f.Offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	docs, err := s.db.ListDocuments(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, DocumentList{
		Documents: docs,
		Count:     len(docs),
		Limit:     f.Limit,
		Offset:    f.Offset,
	})
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DocumentStatus is the response of GET /api/v1/documents/{id}/status.
type DocumentStatus struct {
	DocumentID   uuid.UUID `json:"document_id"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	HasMetadata  bool      `json:"has_metadata"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// documentStatus handles GET /api/v1/documents/{id}/status.
func (s *Server) documentStatus(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DocumentStatus{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		HasMetadata:  doc.HasMetadata,
		UploadedAt:   doc.UploadedAt,
		UpdatedAt:    doc.UpdatedAt,
	})
}

// ReprocessResponse is the response of POST /api/v1/documents/{id}/reprocess.
type ReprocessResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	TextObject string    `json:"text_object"`
}

// reprocess handles POST /api/v1/documents/{id}/reprocess. It resets the
// document to text_extracted and republishes the event for its archived
// text, bypassing the dedup guard.
func (s *Server) reprocess(w http.ResponseWriter, r *http.Request) {
	if s.pub == nil {
		writeError(w, http.StatusServiceUnavailable, "reprocessing not configured")
		return
	}
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.Status == store.StatusExtractingMetadata {
		writeError(w, http.StatusConflict, "document is being processed")
		return
	}

	if err := s.db.UpdateStatus(r.Context(), doc.ID, store.StatusTextExtracted, ""); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("failed to reset document status", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset document status")
		return
	}

	key := objectstore.TextKey(doc.ID.String())
	if err := s.pub.Publish(hermes.SubjectTextExtracted, extractor.TextExtractedEvent{
		DocumentID: doc.ID.String(),
		Filename:   doc.Filename,
		TextObject: key,
		Reprocess:  true,
	}); err != nil {
		s.logger.Error("failed to publish reprocess event", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to publish reprocess event")
		return
	}

	s.logger.Info("document queued for reprocessing", "document_id", doc.ID, "text_object", key)
	writeJSON(w, http.StatusAccepted, ReprocessResponse{
		DocumentID: doc.ID,
		Status:     store.StatusTextExtracted,
		TextObject: key,
	})
}

// dashboard handles GET /api/v1/dashboard.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.db.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("failed to build dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// breakdown serves the full distribution of one metadata field.
func (s *Server) breakdown(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := s.db.Breakdown(r.Context(), field)
		if err != nil {
			s.logger.Error("failed to build breakdown", "field", field, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to build breakdown")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// trends handles GET /api/v1/dashboard/trends?days=N.
func (s *Server) trends(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), store.DefaultTrendDays)
	if err != nil || days < 1 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	t, err := s.db.UploadTrends(r.Context(), min(days, store.MaxTrendDays))
	if err != nil {
		s.logger.Error("failed to build upload trends", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build upload trends")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// loadDocument resolves the {id} route parameter to a stored document,
// writing the error response when it cannot.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	id, ok := documentID(w, r)
	if !ok {
		return nil, false
	}
	doc, err := s.db.GetDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to load document", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return nil, false
	}
	return doc, true
}

func documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
