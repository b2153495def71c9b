package extractor

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// prefixNoise marks words that end the leading junk of a prefix capture,
// e.g. "this agreement and english" keeps "english".
var prefixNoise = func() map[string]struct{} {
	m := wordSet(
		"and", "or", "by", "of", "with", "under", "in", "to", "be", "shall", "is",
		"are", "hereby", "will", "construed", "accordance", "governed", "laws", "law",
		"exclusive", "non", "whereas", "where",
	)
	for w := range jurisdictionNoise {
		m[w] = struct{}{}
	}
	return m
}()

func extractJurisdiction(text string) (string, bool) {
	for _, p := range jurisdictionPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			words := strings.Fields(strings.ToLower(m[1]))
			if p.prefix {
				words = wordsAfterLast(words, prefixNoise)
			} else {
				words = trimLeading(words, "the")
			}
			if len(words) == 0 || allIn(words, jurisdictionNoise) {
				continue
			}
			return canonicalJurisdiction(strings.Join(words, " ")), true
		}
	}
	return "", false
}

func canonicalJurisdiction(candidate string) string {
	if v, ok := jurisdictionAliases.lookup(candidate); ok {
		return v
	}
	if v, ok := jurisdictionAliases.lookupContained(candidate); ok {
		return v
	}
	return titleCase(candidate)
}

func extractGeography(text string) (string, bool) {
	for _, m := range geographyPattern.FindAllStringSubmatch(text, -1) {
		words := wordsAfterLast(strings.Fields(strings.ToLower(m[1])), geographyStoplist)
		if len(words) == 0 {
			continue
		}
		candidate := strings.Join(words, " ")
		suffix := strings.ToLower(m[2])
		if v, ok := canonicalGeography(candidate, suffix); ok {
			return v, true
		}
		if len(candidate) <= 3 {
			continue
		}
		return titleCase(candidate + " " + suffix), true
	}
	return "", false
}

func canonicalGeography(candidate, suffix string) (string, bool) {
	full := candidate + " " + suffix
	if v, ok := geographyAliases.lookup(full); ok {
		return v, true
	}
	if v, ok := geographyAliases.lookup(candidate); ok {
		return v, true
	}
	return geographyAliases.lookupContained(full)
}

// wordsAfterLast returns the words following the last one found in stop.
func wordsAfterLast(words []string, stop map[string]struct{}) []string {
	for i := len(words) - 1; i >= 0; i-- {
		if _, ok := stop[words[i]]; ok {
			return words[i+1:]
		}
	}
	return words
}

func trimLeading(words []string, w string) []string {
	for len(words) > 0 && words[0] == w {
		words = words[1:]
	}
	return words
}

func allIn(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// titleCase builds a new Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
