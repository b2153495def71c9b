package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Count is one bucket of a grouped count.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RecentDocument is a row of the recent uploads list.
type RecentDocument struct {
	ID            uuid.UUID `json:"id"`
	Filename      string    `json:"filename"`
	Status        string    `json:"status"`
	AgreementType *string   `json:"agreement_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// Dashboard holds the aggregate statistics shown on the dashboard.
type Dashboard struct {
	TotalDocuments    int              `json:"total_documents"`
	ByStatus          []Count          `json:"by_status"`
	AverageConfidence float64          `json:"average_confidence"`
	AgreementTypes    []Count          `json:"agreement_types"`
	Jurisdictions     []Count          `json:"jurisdictions"`
	Industries        []Count          `json:"industries"`
	Geographies       []Count          `json:"geographies"`
	RecentUploads     []RecentDocument `json:"recent_uploads"`
}

const (
	topLimit    = 10
	recentLimit = 10
)

// groupedColumns are the metadata columns the dashboard breaks down by.
// Values are interpolated into SQL and must stay constant.
var groupedColumns = []string{"agreement_type", "jurisdiction", "industry_sector", "geography"}

func (s *Store) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&d.TotalDocuments); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(avg(extraction_confidence), 0) FROM document_metadata`,
	).Scan(&d.AverageConfidence); err != nil {
		return nil, fmt.Errorf("average confidence: %w", err)
	}

	var err error
	d.ByStatus, err = s.counts(ctx, `
		SELECT status, count(*) FROM documents
		GROUP BY status ORDER BY count(*) DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	targets := []*[]Count{&d.AgreementTypes, &d.Jurisdictions, &d.Industries, &d.Geographies}
	for i, col := range groupedColumns {
		*targets[i], err = s.counts(ctx, fmt.Sprintf(`
			SELECT %[1]s, count(*) FROM document_metadata
			WHERE %[1]s IS NOT NULL
			GROUP BY %[1]s ORDER BY count(*) DESC, %[1]s
			LIMIT %[2]d`, col, topLimit))
		if err != nil {
			return nil, fmt.Errorf("count by %s: %w", col, err)
		}
	}

	d.RecentUploads, err = s.recentUploads(ctx)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) counts(ctx context.Context, query string) ([]Count, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) recentUploads(ctx context.Context) ([]RecentDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.filename, d.status, m.agreement_type, d.uploaded_at
		FROM documents d
		LEFT JOIN document_metadata m ON m.document_id = d.id
		ORDER BY d.uploaded_at DESC
		LIMIT $1`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent uploads: %w", err)
	}
	defer rows.Close()

	out := []RecentDocument{}
	for rows.Next() {
		var r RecentDocument
		if err := rows.Scan(&r.ID, &r.Filename, &r.Status, &r.AgreementType, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan recent upload: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Share is one bucket of a breakdown, with its share of the total.
type Share struct {
	Label             string  `json:"label"`
	Count             int     `json:"count"`
	Percentage        float64 `json:"percentage"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Breakdown is the full distribution of one metadata field.
type Breakdown struct {
	Field string  `json:"field"`
	Total int     `json:"total_documents"`
	Items []Share `json:"items"`
}

// ErrUnknownField is returned by Breakdown for a field it cannot group by.
var ErrUnknownField = errors.New("unknown breakdown field")

// Breakdown counts documents by every value of field, which must be one of
// agreement_type, jurisdiction, industry_sector or geography. Documents
// without a value are left out of the total.
func (s *Store) Breakdown(ctx context.Context, field string) (*Breakdown, error) {
	if !slices.Contains(groupedColumns, field) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %[1]s, count(*), COALESCE(avg(extraction_confidence), 0)
		FROM document_metadata
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s ORDER BY count(*) DESC, %[1]s`, field))
	if err != nil {
		return nil, fmt.Errorf("breakdown by %s: %w", field, err)
	}
	defer rows.Close()

	b := &Breakdown{Field: field, Items: []Share{}}
	for rows.Next() {
		var sh Share
		if err := rows.Scan(&sh.Label, &sh.Count, &sh.AverageConfidence); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		b.Total += sh.Count
		b.Items = append(b.Items, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("breakdown by %s: %w", field, err)
	}
	b.fillPercentages()
	return b, nil
}

func (b *Breakdown) fillPercentages() {
	if b.Total == 0 {
		return
	}
	total := decimal.NewFromInt(int64(b.Total))
	for i := range b.Items {
		b.Items[i].Percentage = decimal.NewFromInt(int64(b.Items[i].Count * 100)).
			DivRound(total, 2).InexactFloat64()
		b.Items[i].AverageConfidence = decimal.NewFromFloat(b.Items[i].AverageConfidence).
			Round(2).InexactFloat64()
	}
}

// DailyCount is the number of uploads on one UTC day.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Trends is the daily upload series for the last PeriodDays days, today
// included. Days without uploads are present with a zero count.
type Trends struct {
	PeriodDays   int          `json:"period_days"`
	StartDate    string       `json:"start_date"`
	EndDate      string       `json:"end_date"`
	Daily        []DailyCount `json:"daily"`
	TotalUploads int          `json:"total_uploads"`
	AverageDaily float64      `json:"average_daily_uploads"`
}

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

// UploadTrends counts uploads per UTC day over the last days days. days is
// clamped to [1, MaxTrendDays]; zero means DefaultTrendDays.
func (s *Store) UploadTrends(ctx context.Context, days int) (*Trends, error) {
	days = clampDays(days)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	rows, err := s.pool.Query(ctx, `
		SELECT (uploaded_at AT TIME ZONE 'UTC')::date AS day, count(*)
		FROM documents
		WHERE uploaded_at >= $1
		GROUP BY day ORDER BY day`, start)
	if err != nil {
		return nil, fmt.Errorf("upload trends: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day time.Time
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scan upload trend: %w", err)
		}
		counts[day.Format(time.DateOnly)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upload trends: %w", err)
	}
	return buildTrends(start, days, counts), nil
}

func clampDays(days int) int {
	switch {
	case days == 0:
		return DefaultTrendDays
	case days < 1:
		return 1
	case days > MaxTrendDays:
		return MaxTrendDays
	}
	return days
}

func buildTrends(start time.Time, days int, counts map[string]int) *Trends {
	t := &Trends{
		PeriodDays: days,
		StartDate:  start.Format(time.DateOnly),
		EndDate:    start.AddDate(0, 0, days-1).Format(time.DateOnly),
		Daily:      make([]DailyCount, 0, days),
	}
	for i := range days {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		t.Daily = append(t.Daily, DailyCount{Date: day, Count: counts[day]})
		t.TotalUploads += counts[day]
	}
	t.AverageDaily = decimal.NewFromInt(int64(t.TotalUploads)).
		DivRound(decimal.NewFromInt(int64(days)), 2).InexactFloat64()
	return t
}
