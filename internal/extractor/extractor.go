// Package extractor derives legal-document metadata from plain text using
// ordered pattern lists and lookup tables. It performs no I/O and holds no
// mutable state, so it is safe for concurrent use.
package extractor

import (
	"strings"
)

// Extract derives metadata from document text. It never fails: fields that
// cannot be found are left nil or empty. Blank input yields an empty Result
// with zero confidence.
func Extract(text string) Result {
	return ExtractWithFilename("", text)
}

// ExtractWithFilename is Extract with the document's file name consulted
// first for the agreement type.
func ExtractWithFilename(filename, text string) Result {
	text = strings.ToValidUTF8(text, " ")
	r := emptyResult()
	if strings.TrimSpace(text) == "" {
		return r
	}

	if v, ok := agreementType(filenameText(filename)); ok {
		r.AgreementType = strPtr(v)
	} else if v, ok := agreementType(text); ok {
		r.AgreementType = strPtr(v)
	}
	if v, ok := extractJurisdiction(text); ok {
		r.Jurisdiction = strPtr(v)
		r.GoverningLaw = strPtr(v)
	}
	if v, ok := extractGeography(text); ok {
		r.Geography = strPtr(v)
	}
	if v, ok := industrySector(text); ok {
		r.IndustrySector = strPtr(v)
	}
	r.Parties = extractParties(text)
	if d, ok := extractDate(text, effectiveLabel); ok {
		r.EffectiveDate = &d
	}
	if d, ok := extractDate(text, expirationLabel); ok {
		r.ExpirationDate = &d
	}
	if value, code, ok := extractMoney(text); ok {
		r.ContractValue = &value
		r.Currency = strPtr(code)
	}
	r.Keywords = keywords(text)
	r.Tags = tags(&r)
	r.ExtractionConfidence = Confidence(&r)
	return r
}

// filenameText turns "acme_nda-2024.pdf" into "acme nda 2024 pdf".
func filenameText(filename string) string {
	return strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(filename)
}

func agreementType(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, g := range agreementTypes {
		if g.matches(text) {
			return g.Label, true
		}
	}
	return "", false
}

func industrySector(text string) (string, bool) {
	for _, s := range sectors {
		if s.re.MatchString(text) {
			return s.Name, true
		}
	}
	return "", false
}

// keywords returns vocabulary terms present in text, in vocabulary order.
func keywords(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, k := range keywordVocabulary {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

func tags(r *Result) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, v := range []*string{r.AgreementType, r.IndustrySector, r.Jurisdiction, r.Geography} {
		if v == nil {
			continue
		}
		if _, ok := seen[*v]; ok {
			continue
		}
		seen[*v] = struct{}{}
		out = append(out, *v)
	}
	return out
}
