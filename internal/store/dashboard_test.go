package store

import (
	"testing"
	"time"
)

func TestBuildTrends_FillsMissingDays(t *testing.T) {
	start := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	trends := buildTrends(start, 4, map[string]int{
		"2025-02-27": 2,
		"2025-03-02": 3,
	})

	if trends.StartDate != "2025-02-27" || trends.EndDate != "2025-03-02" {
		t.Errorf("range = %s..%s", trends.StartDate, trends.EndDate)
	}
	want := []DailyCount{
		{"2025-02-27", 2},
		{"2025-02-28", 0},
		{"2025-03-01", 0},
		{"2025-03-02", 3},
	}
	if len(trends.Daily) != len(want) {
		t.Fatalf("got %d days, want %d", len(trends.Daily), len(want))
	}
	for i, d := range want {
		if trends.Daily[i] != d {
			t.Errorf("day %d = %+v, want %+v", i, trends.Daily[i], d)
		}
	}
	if trends.TotalUploads != 5 {
		t.Errorf("TotalUploads = %d, want 5", trends.TotalUploads)
	}
	if trends.AverageDaily != 1.25 {
		t.Errorf("AverageDaily = %v, want 1.25", trends.AverageDaily)
	}
}

func TestClampDays(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultTrendDays},
		{-3, 1},
		{7, 7},
		{1000, MaxTrendDays},
	}
	for _, tt := range tests {
		if got := clampDays(tt.in); got != tt.want {
			t.Errorf("clampDays(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBreakdown_Percentages(t *testing.T) {
	b := &Breakdown{
		Total: 3,
		Items: []Share{
			{Label: "NDA", Count: 2, AverageConfidence: 0.456},
			{Label: "MSA", Count: 1, AverageConfidence: 0.3},
		},
	}
	b.fillPercentages()

	if b.Items[0].Percentage != 66.67 || b.Items[1].Percentage != 33.33 {
		t.Errorf("percentages = %v, %v", b.Items[0].Percentage, b.Items[1].Percentage)
	}
	if b.Items[0].AverageConfidence != 0.46 {
		t.Errorf("AverageConfidence = %v, want 0.46", b.Items[0].AverageConfidence)
	}

	empty := &Breakdown{Items: []Share{}}
	empty.fillPercentages()
}

func TestDocumentFilter_Limit(t *testing.T) {
	if got := (DocumentFilter{}).limit(); got != DefaultListLimit {
		t.Errorf("default limit = %d", got)
	}
	if got := (DocumentFilter{Limit: 10}).limit(); got != 10 {
		t.Errorf("limit = %d, want 10", got)
	}
	if got := (DocumentFilter{Limit: 10_000}).limit(); got != MaxListLimit {
		t.Errorf("limit = %d, want %d", got, MaxListLimit)
	}
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	if got := containsPattern("NDA"); got != "%NDA%" {
		t.Errorf("containsPattern(NDA) = %q", got)
	}
	if got := containsPattern(`50%_off\`); got != `%50\%\_off\\%` {
		t.Errorf("containsPattern = %q", got)
	}
}
