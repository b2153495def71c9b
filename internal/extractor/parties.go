package extractor

import "strings"

func extractParties(text string) []string {
	parties := []string{}
	seen := make(map[string]struct{})

	for _, re := range partyPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			for _, raw := range m[1:] {
				name, ok := cleanParty(raw)
				if !ok {
					continue
				}
				key := strings.ToLower(name)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				parties = append(parties, name)
			}
		}
	}
	return parties
}

// cleanParty strips boilerplate from a captured party name.
func cleanParty(raw string) (string, bool) {
	s := parenthetical.ReplaceAllString(raw, " ")
	s = hereinafter.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), " ")
	s = leadingThe.ReplaceAllString(s, "")
	s = strings.Trim(s, ` "'.,;:“”‘’`)

	if len(s) <= 2 || len(s) > 120 {
		return "", false
	}
	if _, ok := genericParties[strings.ToLower(s)]; ok {
		return "", false
	}
	return s, true
}
