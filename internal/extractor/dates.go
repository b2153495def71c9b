package extractor

import (
	"regexp"
	"strings"
	"time"
)

var (
	effectiveLabel  = regexp.MustCompile(`(?i)\b(?:(?:effective|commencement|start|execution|signing)\s+date|effective\s+as\s+of)\b\s*(?:[:\-–]\s*|(?:is|of|shall\s+be)\s+)?`)
	expirationLabel = regexp.MustCompile(`(?i)\b(?:expiration|expiry|end|termination)\s+date\b\s*(?:[:\-–]\s*|(?:is|of|shall\s+be)\s+)?`)

	ordinalSuffix = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
)

// dateShape recognises one textual date format. The first shape that matches
// the text after a label decides the layouts tried; if none of them parse,
// the date is treated as missing.
type dateShape struct {
	re        *regexp.Regexp
	layouts   []string
	normalize func(string) string
}

var dateShapes = []dateShape{
	{
		re:      regexp.MustCompile(`^\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
		layouts: []string{"2006/1/2"},
		normalize: func(s string) string {
			return strings.ReplaceAll(s, "-", "/")
		},
	},
	{
		re:      regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\b`),
		layouts: []string{"1/2/2006", "2/1/2006"},
	},
	{
		re:      regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}\b`),
		layouts: []string{"1-2-2006", "2-1-2006"},
	},
	{
		re:        regexp.MustCompile(`(?i)^\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?[a-z]{3,9}\.?,?\s+\d{4}\b`),
		layouts:   []string{"2 Jan 2006", "2 January 2006"},
		normalize: normalizeWordDate,
	},
	{
		re:        regexp.MustCompile(`(?i)^[a-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		layouts:   []string{"Jan 2 2006", "January 2 2006"},
		normalize: normalizeWordDate,
	},
	{
		// Two-digit years are read as MM/DD/20YY.
		re:      regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2}\b`),
		layouts: []string{"1/2/2006"},
		normalize: func(s string) string {
			s = strings.ReplaceAll(s, "-", "/")
			i := strings.LastIndexByte(s, '/')
			return s[:i+1] + "20" + s[i+1:]
		},
	},
}

func extractDate(text string, label *regexp.Regexp) (Date, bool) {
	for _, loc := range label.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		for _, shape := range dateShapes {
			raw := shape.re.FindString(rest)
			if raw == "" {
				continue
			}
			return shape.parse(raw)
		}
	}
	return Date{}, false
}

func (s dateShape) parse(raw string) (Date, bool) {
	if s.normalize != nil {
		raw = s.normalize(raw)
	}
	for _, layout := range s.layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewDate(t), true
		}
	}
	return Date{}, false
}

// normalizeWordDate reduces "1st of Sept., 2024" to "1 Sep 2024".
func normalizeWordDate(s string) string {
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(".", "", ",", " ").Replace(s)
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		switch strings.ToLower(f) {
		case "of":
			continue
		case "sept":
			f = "Sep"
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
