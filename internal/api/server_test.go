package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
	"github.com/baznta/legal-intel-dashboard/internal/hermes"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
	"github.com/baznta/legal-intel-dashboard/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*store.MetadataRecord
	docs      map[uuid.UUID]*store.Document
	dash      *store.Dashboard
	breakdown *store.Breakdown
	err       error

	lastFilter store.DocumentFilter
	lastField  string
	lastDays   int
	statuses   []string
}

func (f *fakeStore) GetMetadata(_ context.Context, id uuid.UUID) (*store.MetadataRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id uuid.UUID) (*store.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) ListDocuments(_ context.Context, filter store.DocumentFilter) ([]store.Document, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := []store.Document{}
	for _, d := range f.docs {
		if filter.AgreementType != "" && (d.AgreementType == nil || !strings.EqualFold(*d.AgreementType, filter.AgreementType)) {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) Dashboard(_ context.Context) (*store.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dash, nil
}

func (f *fakeStore) Breakdown(_ context.Context, field string) (*store.Breakdown, error) {
	f.lastField = field
	if f.err != nil {
		return nil, f.err
	}
	return f.breakdown, nil
}

func (f *fakeStore) UploadTrends(_ context.Context, days int) (*store.Trends, error) {
	f.lastDays = days
	if f.err != nil {
		return nil, f.err
	}
	return &store.Trends{PeriodDays: days}, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.err
}

type fakePublisher struct {
	subjects []string
	events   []extractor.TextExtractedEvent
	err      error
}

func (f *fakePublisher) Publish(subject string, data any) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	if evt, ok := data.(extractor.TextExtractedEvent); ok {
		f.events = append(f.events, evt)
	}
	return nil
}

type fakeBroker bool

func (b fakeBroker) Connected() bool { return bool(b) }

func strPtr(s string) *string { return &s }

func newTestServer(token string, db DocumentStore, opts ...Option) *Server {
	return NewServer(8760, token, db, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func do(srv *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "decode response")
	return v
}

func TestHealthEndpoint(t *testing.T) {
	w := do(newTestServer("", nil), "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name string
		db   DocumentStore
		opts []Option
		want int
	}{
		{"no store", nil, nil, http.StatusServiceUnavailable},
		{"db down", &fakeStore{err: errors.New("connection refused")}, nil, http.StatusServiceUnavailable},
		{"ready", &fakeStore{}, nil, http.StatusOK},
		{"nats connected", &fakeStore{}, []Option{WithBroker(fakeBroker(true))}, http.StatusOK},
		{"nats disconnected", &fakeStore{}, []Option{WithBroker(fakeBroker(false))}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestServer("secret", tt.db, tt.opts...), "GET", "/ready", "", nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestReadyEndpoint_ReportsBroker(t *testing.T) {
	w := do(newTestServer("", &fakeStore{}, WithBroker(fakeBroker(false))), "GET", "/ready", "", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "nats disconnected", decode[map[string]string](t, w)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(newTestServer("secret", nil), "GET", "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines", "expected default Go collectors")
}

func TestNotFoundEndpoint(t *testing.T) {
	w := do(newTestServer("", nil), "GET", "/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExtractEndpoint(t *testing.T) {
	srv := newTestServer("", nil)
	body := `{"text":"This Non-Disclosure Agreement is governed by the laws of the United Arab Emirates.","filename":"x.pdf"}`

	w := do(srv, "POST", "/api/v1/extract", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	r := decode[extractor.Result](t, w)
	require.NotNil(t, r.AgreementType)
	assert.Equal(t, "NDA", *r.AgreementType)
	require.NotNil(t, r.Jurisdiction)
	assert.Equal(t, "UAE", *r.Jurisdiction)
	assert.Equal(t, extractor.MethodRuleBased, r.ExtractionMethod)
}

func TestExtractEndpoint_EmptyText(t *testing.T) {
	w := do(newTestServer("", nil), "POST", "/api/v1/extract", `{"text":""}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"extraction_confidence":0`)
}

func TestExtractEndpoint_InvalidJSON(t *testing.T) {
	w := do(newTestServer("", nil), "POST", "/api/v1/extract", `{"text":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer("secret", nil)
	body := `{"text":"hello"}`

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
		{"valid", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, "POST", "/api/v1/extract", body, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	// Health stays open.
	assert.Equal(t, http.StatusOK, do(srv, "GET", "/health", "", nil).Code)
	// Document routes sit behind the same check.
	assert.Equal(t, http.StatusUnauthorized, do(srv, "GET", "/api/v1/documents", "", nil).Code)
}

func TestMetadataEndpoint(t *testing.T) {
	id := uuid.New()
	r := extractor.Extract("This Lease Agreement is made.")
	db := &fakeStore{records: map[uuid.UUID]*store.MetadataRecord{
		id: {DocumentID: id, Filename: "lease.pdf", Result: r, ExtractedAt: time.Now()},
	}}
	srv := newTestServer("", db)

	w := do(srv, "GET", "/api/v1/documents/"+id.String()+"/metadata", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[store.MetadataRecord](t, w)
	assert.Equal(t, id, rec.DocumentID)
	require.NotNil(t, rec.Result.AgreementType)
	assert.Equal(t, "Tenancy Agreement", *rec.Result.AgreementType)

	assert.Equal(t, http.StatusNotFound, do(srv, "GET", "/api/v1/documents/"+uuid.NewString()+"/metadata", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, "GET", "/api/v1/documents/not-a-uuid/metadata", "", nil).Code)
}

func testDocuments() (uuid.UUID, uuid.UUID, map[uuid.UUID]*store.Document) {
	nda, lease := uuid.New(), uuid.New()
	uploaded := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return nda, lease, map[uuid.UUID]*store.Document{
		nda: {
			ID:            nda,
			Filename:      "acme_nda.pdf",
			Status:        store.StatusCompleted,
			UploadedAt:    uploaded,
			UpdatedAt:     uploaded,
			HasMetadata:   true,
			AgreementType: strPtr("NDA"),
			Jurisdiction:  strPtr("UAE"),
		},
		lease: {
			ID:           lease,
			Filename:     "lease.pdf",
			Status:       store.StatusFailed,
			ErrorMessage: strPtr("text object missing"),
			UploadedAt:   uploaded,
			UpdatedAt:    uploaded,
		},
	}
}

func TestListDocumentsEndpoint(t *testing.T) {
	nda, _, docs := testDocuments()
	db := &fakeStore{docs: docs}
	srv := newTestServer("", db)

	w := do(srv, "GET", "/api/v1/documents?agreement_type=nda&jurisdiction=uae&industry_sector=Technology&geography=Middle+East&limit=20&offset=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[DocumentList](t, w)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, nda, list.Documents[0].ID)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 20, list.Limit)
	assert.Equal(t, 5, list.Offset)

	assert.Equal(t, store.DocumentFilter{
		AgreementType:  "nda",
		Jurisdiction:   "uae",
		IndustrySector: "Technology",
		Geography:      "Middle East",
		Limit:          20,
		Offset:         5,
	}, db.lastFilter)
}

func TestListDocumentsEndpoint_Defaults(t *testing.T) {
	_, _, docs := testDocuments()
	db := &fakeStore{docs: docs}

	w := do(newTestServer("", db), "GET", "/api/v1/documents", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[DocumentList](t, w).Documents, 2)
	assert.Equal(t, store.DefaultListLimit, db.lastFilter.Limit)

	w = do(newTestServer("", db), "GET", "/api/v1/documents?limit=100000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.MaxListLimit, db.lastFilter.Limit)
}

func TestListDocumentsEndpoint_BadParams(t *testing.T) {
	srv := newTestServer("", &fakeStore{})

	for _, q := range []string{"limit=abc", "limit=0", "offset=-1", "status=archived"} {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(srv, "GET", "/api/v1/documents?"+q, "", nil).Code)
		})
	}
}

func TestGetDocumentEndpoint(t *testing.T) {
	nda, _, docs := testDocuments()
	srv := newTestServer("", &fakeStore{docs: docs})

	w := do(srv, "GET", "/api/v1/documents/"+nda.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[store.Document](t, w)
	assert.Equal(t, "acme_nda.pdf", doc.Filename)
	assert.True(t, doc.HasMetadata)

	assert.Equal(t, http.StatusNotFound, do(srv, "GET", "/api/v1/documents/"+uuid.NewString(), "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, "GET", "/api/v1/documents/nope", "", nil).Code)
}

func TestDocumentStatusEndpoint(t *testing.T) {
	_, lease, docs := testDocuments()
	srv := newTestServer("", &fakeStore{docs: docs})

	w := do(srv, "GET", "/api/v1/documents/"+lease.String()+"/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := decode[DocumentStatus](t, w)
	assert.Equal(t, lease, st.DocumentID)
	assert.Equal(t, store.StatusFailed, st.Status)
	require.NotNil(t, st.ErrorMessage)
	assert.Equal(t, "text object missing", *st.ErrorMessage)
	assert.False(t, st.HasMetadata)

	assert.Equal(t, http.StatusNotFound, do(srv, "GET", "/api/v1/documents/"+uuid.NewString()+"/status", "", nil).Code)
}

func TestReprocessEndpoint(t *testing.T) {
	_, lease, docs := testDocuments()
	db := &fakeStore{docs: docs}
	pub := &fakePublisher{}
	srv := newTestServer("", db, WithPublisher(pub))

	w := do(srv, "POST", "/api/v1/documents/"+lease.String()+"/reprocess", "", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	resp := decode[ReprocessResponse](t, w)
	assert.Equal(t, lease, resp.DocumentID)
	assert.Equal(t, store.StatusTextExtracted, resp.Status)
	assert.Equal(t, objectstore.TextKey(lease.String()), resp.TextObject)

	assert.Equal(t, []string{store.StatusTextExtracted}, db.statuses)
	require.Equal(t, []string{hermes.SubjectTextExtracted}, pub.subjects)
	assert.Equal(t, extractor.TextExtractedEvent{
		DocumentID: lease.String(),
		Filename:   "lease.pdf",
		TextObject: objectstore.TextKey(lease.String()),
		Reprocess:  true,
	}, pub.events[0])
}

func TestReprocessEndpoint_Errors(t *testing.T) {
	nda, _, docs := testDocuments()
	docs[nda].Status = store.StatusExtractingMetadata

	t.Run("no publisher", func(t *testing.T) {
		srv := newTestServer("", &fakeStore{docs: docs})
		w := do(srv, "POST", "/api/v1/documents/"+nda.String()+"/reprocess", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
	t.Run("unknown document", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer("", &fakeStore{docs: docs}, WithPublisher(pub))
		w := do(srv, "POST", "/api/v1/documents/"+uuid.NewString()+"/reprocess", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, pub.subjects)
	})
	t.Run("in progress", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer("", &fakeStore{docs: docs}, WithPublisher(pub))
		w := do(srv, "POST", "/api/v1/documents/"+nda.String()+"/reprocess", "", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Empty(t, pub.subjects)
	})
	t.Run("publish fails", func(t *testing.T) {
		_, lease, docs := testDocuments()
		srv := newTestServer("", &fakeStore{docs: docs}, WithPublisher(&fakePublisher{err: errors.New("nats down")}))
		w := do(srv, "POST", "/api/v1/documents/"+lease.String()+"/reprocess", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	db := &fakeStore{dash: &store.Dashboard{
		TotalDocuments: 3,
		AgreementTypes: []store.Count{{Label: "NDA", Count: 2}},
	}}
	w := do(newTestServer("", db), "GET", "/api/v1/dashboard", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	d := decode[store.Dashboard](t, w)
	assert.Equal(t, 3, d.TotalDocuments)
	assert.Len(t, d.AgreementTypes, 1)
}

func TestBreakdownEndpoints(t *testing.T) {
	tests := []struct {
		path  string
		field string
	}{
		{"/api/v1/dashboard/agreement-types", "agreement_type"},
		{"/api/v1/dashboard/jurisdictions", "jurisdiction"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			db := &fakeStore{breakdown: &store.Breakdown{
				Field: tt.field,
				Total: 4,
				Items: []store.Share{{Label: "x", Count: 4, Percentage: 100}},
			}}
			w := do(newTestServer("", db), "GET", tt.path, "", nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.field, db.lastField)
			b := decode[store.Breakdown](t, w)
			assert.Equal(t, 4, b.Total)
			assert.Equal(t, 100.0, b.Items[0].Percentage)
		})
	}
}

func TestTrendsEndpoint(t *testing.T) {
	db := &fakeStore{}
	srv := newTestServer("", db)

	w := do(srv, "GET", "/api/v1/dashboard/trends", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.DefaultTrendDays, db.lastDays)

	w = do(srv, "GET", "/api/v1/dashboard/trends?days=7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[store.Trends](t, w).PeriodDays)

	do(srv, "GET", "/api/v1/dashboard/trends?days=5000", "", nil)
	assert.Equal(t, store.MaxTrendDays, db.lastDays)

	assert.Equal(t, http.StatusBadRequest, do(srv, "GET", "/api/v1/dashboard/trends?days=zero", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, "GET", "/api/v1/dashboard/trends?days=-1", "", nil).Code)
}

func TestStoreRoutes_Errors(t *testing.T) {
	id := uuid.NewString()
	paths := []string{
		"/api/v1/dashboard",
		"/api/v1/dashboard/agreement-types",
		"/api/v1/dashboard/trends",
		"/api/v1/documents",
		"/api/v1/documents/" + id,
		"/api/v1/documents/" + id + "/status",
		"/api/v1/documents/" + id + "/metadata",
	}

	noStore := newTestServer("", nil)
	for _, path := range paths {
		assert.Equal(t, http.StatusServiceUnavailable, do(noStore, "GET", path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusServiceUnavailable, do(noStore, "POST", "/api/v1/documents/"+id+"/reprocess", "", nil).Code)

	broken := newTestServer("", &fakeStore{err: errors.New("db down")})
	for _, path := range paths {
		assert.Equal(t, http.StatusInternalServerError, do(broken, "GET", path, "", nil).Code, path)
	}
}
