package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MethodRuleBased is the extraction_method recorded for every Result.
const MethodRuleBased = "rule_based"

// TextExtractedEvent is the NATS event payload from the text extraction step.
type TextExtractedEvent struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text,omitempty"`
	TextObject string `json:"text_object,omitempty"` // object key when the text is too large to inline
	Reprocess  bool   `json:"reprocess,omitempty"`   // requested again by an operator; skips the dedup guard
}

// Result is the metadata record produced for a single document.
// Optional scalars are nil when nothing was found.
type Result struct {
	AgreementType        *string          `json:"agreement_type"`
	Jurisdiction         *string          `json:"jurisdiction"`
	GoverningLaw         *string          `json:"governing_law"`
	Geography            *string          `json:"geography"`
	IndustrySector       *string          `json:"industry_sector"`
	Parties              []string         `json:"parties"`
	EffectiveDate        *Date            `json:"effective_date"`
	ExpirationDate       *Date            `json:"expiration_date"`
	ContractValue        *decimal.Decimal `json:"contract_value"`
	Currency             *string          `json:"currency"`
	Keywords             []string         `json:"keywords"`
	Tags                 []string         `json:"tags"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	ExtractionMethod     string           `json:"extraction_method"`
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to midnight UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func emptyResult() Result {
	return Result{
		Parties:          []string{},
		Keywords:         []string{},
		Tags:             []string{},
		ExtractionMethod: MethodRuleBased,
	}
}

func strPtr(s string) *string {
	return &s
}
