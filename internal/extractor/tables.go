package extractor

import (
	"regexp"
	"sort"
	"strings"
)

// Lookup tables and compiled patterns. Everything in this file is built once
// at package init and only read afterwards.

// phraseGroup maps any of its patterns to a single canonical label.
type phraseGroup struct {
	Label    string
	patterns []*regexp.Regexp
}

func newPhraseGroup(label string, exprs ...string) phraseGroup {
	g := phraseGroup{Label: label}
	for _, e := range exprs {
		g.patterns = append(g.patterns, regexp.MustCompile(`(?i)`+e))
	}
	return g
}

func (g phraseGroup) matches(text string) bool {
	for _, re := range g.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// agreementTypes is checked in order; the first group with a hit wins.
var agreementTypes = []phraseGroup{
	newPhraseGroup("NDA",
		`\bnon[\s-]?disclosure\s+(?:and\s+confidentiality\s+)?agreement\b`,
		`\bconfidentiality\s+agreement\b`,
		`\bnda\b`,
	),
	newPhraseGroup("MSA",
		`\bmaster\s+(?:services?\s+)?agreement\b`,
		`\bmsa\b`,
	),
	newPhraseGroup("Franchise Agreement", `\bfranchise\s+agreement\b`),
	newPhraseGroup("Employment Agreement", `\bemployment\s+(?:agreement|contract)\b`),
	newPhraseGroup("Tenancy Agreement", `\b(?:tenancy|lease|rental)\s+agreement\b`),
	newPhraseGroup("Service Agreement", `\b(?:services?|consulting|professional\s+services)\s+agreement\b`),
	newPhraseGroup("License Agreement", `\b(?:licen[cs]e|licensing)\s+agreement\b`),
	newPhraseGroup("Partnership Agreement", `\b(?:partnership|joint\s+venture|collaboration)\s+agreement\b`),
	newPhraseGroup("Purchase Agreement", `\b(?:purchase|sales?|acquisition)\s+agreement\b`),
}

// alias maps a lower-case surface form to a canonical label.
type alias struct {
	Surface   string
	Canonical string
}

// aliasTable supports exact lookup and a longest-first contained lookup.
type aliasTable struct {
	exact   map[string]string
	ordered []alias // longest surface first
}

func newAliasTable(entries []alias) aliasTable {
	t := aliasTable{exact: make(map[string]string, len(entries))}
	for _, a := range entries {
		t.exact[a.Surface] = a.Canonical
	}
	t.ordered = append(t.ordered, entries...)
	sort.SliceStable(t.ordered, func(i, j int) bool {
		return len(t.ordered[i].Surface) > len(t.ordered[j].Surface)
	})
	return t
}

func (t aliasTable) lookup(candidate string) (string, bool) {
	v, ok := t.exact[candidate]
	return v, ok
}

// lookupContained finds the longest alias that appears in candidate on word
// boundaries.
func (t aliasTable) lookupContained(candidate string) (string, bool) {
	padded := " " + candidate + " "
	for _, a := range t.ordered {
		if strings.Contains(padded, " "+a.Surface+" ") {
			return a.Canonical, true
		}
	}
	return "", false
}

var jurisdictionAliases = newAliasTable([]alias{
	{"uae", "UAE"},
	{"united arab emirates", "UAE"},
	{"emirates", "UAE"},
	{"dubai", "Dubai, UAE"},
	{"abu dhabi", "Abu Dhabi, UAE"},
	{"difc", "DIFC, UAE"},
	{"dubai international financial centre", "DIFC, UAE"},
	{"uk", "UK"},
	{"united kingdom", "UK"},
	{"england", "UK"},
	{"wales", "UK"},
	{"england and wales", "UK"},
	{"english", "UK"},
	{"usa", "USA"},
	{"us", "USA"},
	{"united states", "USA"},
	{"united states of america", "USA"},
	{"delaware", "Delaware, USA"},
	{"state of delaware", "Delaware, USA"},
	{"california", "California, USA"},
	{"state of california", "California, USA"},
	{"new york", "New York, USA"},
	{"state of new york", "New York, USA"},
	{"texas", "Texas, USA"},
	{"state of texas", "Texas, USA"},
	{"singapore", "Singapore"},
	{"republic of singapore", "Singapore"},
	{"hong kong", "Hong Kong"},
	{"germany", "Germany"},
	{"german", "Germany"},
	{"france", "France"},
	{"french", "France"},
	{"netherlands", "Netherlands"},
	{"holland", "Netherlands"},
	{"dutch", "Netherlands"},
	{"australia", "Australia"},
	{"canada", "Canada"},
	{"japan", "Japan"},
	{"india", "India"},
	{"switzerland", "Switzerland"},
	{"swiss", "Switzerland"},
	{"ireland", "Ireland"},
})

// jurisdictionNoise rejects captures made only of generic words, e.g.
// "jurisdiction of any competent court".
var jurisdictionNoise = wordSet(
	"a", "an", "any", "the", "competent", "court", "courts", "appropriate",
	"such", "said", "relevant", "applicable", "country", "state", "jurisdiction",
	"this", "that", "its", "their", "arbitration", "arbitrator", "tribunal",
	"other", "each", "party", "parties", "agreement",
)

const (
	// captured location: up to five words, shortest first.
	locCapture = `([a-z]+(?:[ \t]+[a-z]+){0,4}?)`
	// a location ending in a word before an anchor phrase.
	locPrefix = `\b([a-z]+(?:[ \t]+[a-z]+){0,3})`
	locEnd    = `(?:[ \t]*[,.;:()\n]|[ \t]+(?:and|or|shall|without|in|with|to|as|which|that|for|applicable|excluding|including|govern|governs|will|is|are)\b|[ \t]*$)`
)

// locationPattern is one surface form capturing a candidate location.
// Prefix patterns capture words that precede an anchor and need their
// leading noise trimmed.
type locationPattern struct {
	re     *regexp.Regexp
	prefix bool
}

func forwardLoc(anchor string) locationPattern {
	return locationPattern{re: regexp.MustCompile(`(?i)` + anchor + `(?:the[ \t]+)?` + locCapture + locEnd)}
}

func prefixLoc(anchor string) locationPattern {
	return locationPattern{re: regexp.MustCompile(`(?i)` + locPrefix + anchor), prefix: true}
}

// jurisdictionPatterns are tried in order; the first one yielding an accepted
// candidate wins.
var jurisdictionPatterns = []locationPattern{
	forwardLoc(`\bgoverned\s+by\s+(?:and\s+construed\s+in\s+accordance\s+with\s+)?(?:the\s+)?laws?\s+of\s+`),
	forwardLoc(`\b(?:exclusive\s+|non-exclusive\s+)?jurisdiction\s+of\s+(?:the\s+)?(?:courts?\s+of\s+)?`),
	prefixLoc(`[ \t]+law\s+shall\s+govern\b`),
	{re: regexp.MustCompile(`(?i)\bsubject\s+to\s+(?:the\s+)?` + locCapture + `[ \t]+laws?\b`)},
	{re: regexp.MustCompile(`(?i)\bgoverned\s+by\s+(?:the\s+)?` + locCapture + `[ \t]+laws?\b`)},
	prefixLoc(`[ \t]+courts\s+shall\s+have\s+(?:exclusive\s+|non-exclusive\s+)?jurisdiction\b`),
	forwardLoc(`\bvenue\s+shall\s+be\s+(?:in\s+)?(?:the\s+)?`),
	prefixLoc(`[ \t]+venue\b`),
	prefixLoc(`[ \t]+governing\s+law\b`),
	forwardLoc(`\blaws\s+of\s+`),
	forwardLoc(`\bcourts\s+of\s+`),
}

var geographyAliases = newAliasTable([]alias{
	{"middle east", "Middle East"},
	{"gulf region", "Middle East"},
	{"gulf", "Middle East"},
	{"gcc", "Middle East"},
	{"gcc region", "Middle East"},
	{"mena", "Middle East"},
	{"europe", "Europe"},
	{"european union", "Europe"},
	{"eu", "Europe"},
	{"asia", "Asia"},
	{"asia pacific", "Asia Pacific"},
	{"apac", "Asia Pacific"},
	{"north america", "North America"},
	{"south america", "South America"},
	{"latin america", "South America"},
	{"africa", "Africa"},
	{"australia", "Australia"},
	{"oceania", "Oceania"},
	{"silicon valley", "Silicon Valley, USA"},
})

// geographyPattern captures up to three words before a region-like suffix.
var geographyPattern = regexp.MustCompile(`(?i)\b([a-z]+(?:[ \t]+[a-z]+){0,2})[ \t]+(region|territory|state|country|zone|area|district|province|county|valley)\b`)

// geographyStoplist holds section-header words and generic legal terms. A
// candidate keeps only the words after its last stoplisted word.
var geographyStoplist = wordSet(
	"governing", "law", "and", "jurisdiction", "this", "agreement", "shall",
	"be", "governed", "by", "construed", "accordance", "with", "laws", "of",
	"the", "state", "united", "states", "america", "disputes", "arising", "out",
	"relating", "subject", "exclusive", "courts", "parties", "concerning",
	"matter", "hereof", "supersedes", "prior", "contemporaneous", "agreements",
	"understandings", "whether", "written", "oral", "such",
	"a", "an", "any", "each", "every", "all", "no", "in", "on", "at", "to",
	"for", "from", "into", "within", "throughout", "across", "its", "their",
	"our", "your", "other", "said", "same", "whole", "entire", "relevant",
	"respective", "applicable", "section", "article", "clause", "schedule",
	"exhibit", "heading", "definitions", "annex", "appendix", "part", "chapter",
	"or", "is", "are", "as", "which", "that", "defined", "designated", "named",
	"party", "member", "home", "host", "origin", "third", "contract",
	"services", "service", "operate", "operates", "operating", "located",
	"based", "sales", "delivery", "territory", "region", "zone", "area",
)

// sector maps a canonical industry to the keywords that identify it.
type sector struct {
	Name     string
	Keywords []string
	re       *regexp.Regexp
}

func newSector(name string, keywords ...string) sector {
	alts := make([]string, len(keywords))
	for i, k := range keywords {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return sector{
		Name:     name,
		Keywords: keywords,
		re:       regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
	}
}

// sectors is scanned in declared order; the first sector with a keyword wins.
var sectors = []sector{
	newSector("Oil & Gas",
		"oil and gas", "oil & gas", "petroleum", "hydrocarbon", "hydrocarbons", "drilling",
		"upstream", "downstream", "midstream", "refinery", "petrochemical", "petrochemicals"),
	newSector("Healthcare",
		"healthcare", "health care", "medical", "pharmaceutical", "pharmaceuticals", "biotech",
		"biotechnology", "clinical", "hospital", "diagnostic", "diagnostics", "therapeutic",
		"medical device"),
	newSector("Technology",
		"technology", "software", "hardware", "it services", "saas", "digital", "cybersecurity",
		"artificial intelligence", "machine learning", "cloud"),
	newSector("Finance",
		"finance", "banking", "investment", "asset management", "private equity",
		"venture capital", "fintech", "wealth management"),
	newSector("Real Estate",
		"real estate", "real property", "commercial property", "residential property",
		"property development", "construction", "premises"),
	newSector("Manufacturing",
		"manufacturing", "manufacturer", "industrial", "factory", "supply chain", "logistics",
		"automotive", "aerospace"),
	newSector("Retail",
		"retail", "e-commerce", "ecommerce", "consumer goods", "fashion", "apparel",
		"food and beverage", "hospitality", "tourism"),
	newSector("Energy",
		"energy", "renewable", "renewables", "solar", "wind farm", "nuclear", "electricity",
		"power generation", "utilities"),
}

var (
	roleLabels = []string{
		"landlord", "tenant", "lessor", "lessee", "buyer", "seller", "purchaser", "vendor",
		"licensor", "licensee", "employer", "employee", "franchisor", "franchisee",
		"disclosing party", "receiving party", "client", "customer", "contractor",
		"service provider", "supplier",
	}

	partyEnd = `(?:[ \t]*[,;(\n]|\.(?:\s|$)|$)`

	// partyPatterns are applied in order and every match contributes names.
	partyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbetween\s+([^\n:]+?)\s+and\s+([^\n:]+?)` + partyEnd),
		regexp.MustCompile(`(?i)\bparties\s+(?:to\s+this\s+agreement\s+)?are\s+([^\n:]+?)\s+and\s+([^\n:]+?)` + partyEnd),
		// Name shapes are case-sensitive: a run of capitalised words.
		regexp.MustCompile(`((?:[A-Z][\w&.'-]*[ \t]+){0,5}[A-Z][\w&.'-]*),?[ \t]*\([ \t]*(?i:hereinafter|the[ \t]+["“]|["“])`),
		regexp.MustCompile(`(?i)\b(?:` + strings.Join(roleLabels, "|") + `)\s*:[ \t]*([^\n,;(]+)`),
	}

	parenthetical = regexp.MustCompile(`\([^)]*\)?`)
	hereinafter   = regexp.MustCompile(`(?i)\bhereinafter\b.*$`)
	leadingThe    = regexp.MustCompile(`(?i)^the\s+`)
)

// genericParties are role words that a loose pattern can capture in place of
// a name.
var genericParties = wordSet(
	"the parties", "parties", "both parties", "party", "the party", "each party",
	"the company", "company", "us", "you", "we",
)

// currencyCodes maps a normalized currency marker to its ISO code.
var currencyCodes = map[string]string{
	"$":               "USD",
	"us$":             "USD",
	"usd":             "USD",
	"us dollar":       "USD",
	"us dollars":      "USD",
	"dollar":          "USD",
	"dollars":         "USD",
	"€":               "EUR",
	"eur":             "EUR",
	"euro":            "EUR",
	"euros":           "EUR",
	"£":               "GBP",
	"gbp":             "GBP",
	"pound":           "GBP",
	"pounds":          "GBP",
	"pound sterling":  "GBP",
	"pounds sterling": "GBP",
	"sterling":        "GBP",
	"aed":             "AED",
	"dirham":          "AED",
	"dirhams":         "AED",
	"uae dirham":      "AED",
	"uae dirhams":     "AED",
	"sgd":             "SGD",
	"chf":             "CHF",
	"jpy":             "JPY",
	"inr":             "INR",
}

const amountExpr = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

// moneyPatterns capture a currency marker and an amount. The bool reports
// whether the marker comes first.
var moneyPatterns = []struct {
	re          *regexp.Regexp
	markerFirst bool
}{
	{regexp.MustCompile(`(?i)(us\$|\$|€|£|\b(?:usd|eur|gbp|aed|sgd|chf|jpy|inr)\b)[ \t]*` + amountExpr), true},
	{regexp.MustCompile(`(?i)` + amountExpr + `[ \t]*(u\.?s\.?[ \t]+dollars?|dollars?|usd|euros?|eur|pounds?[ \t]+sterling|pounds?|sterling|gbp|uae[ \t]+dirhams?|dirhams?|aed|sgd|chf|jpy|inr)\b`), false},
}

// coreKeywords and advancedKeywords form the keyword vocabulary, matched as
// plain phrases.
var (
	coreKeywords = []string{
		"confidentiality", "termination", "liability", "indemnification", "force majeure",
		"governing law", "dispute resolution", "breach", "remedies", "waiver", "severability",
		"entire agreement", "non-compete", "non-solicitation", "intellectual property",
		"data protection", "privacy", "compliance", "regulatory", "audit", "inspection",
		"default", "cure period", "assignment", "amendment", "notice", "representation",
		"warranty", "covenant", "condition precedent", "material adverse effect",
	}
	advancedKeywords = []string{
		"arbitration", "mediation", "liquidated damages", "limitation of liability",
		"change of control", "most favored nation", "most favoured nation", "exclusivity",
		"escrow", "set-off", "step-in rights", "subcontracting", "insurance",
		"service level", "key performance indicator", "anti-bribery", "anti-corruption",
		"sanctions", "export control", "source code", "trade secret", "personal data",
		"gdpr", "right of first refusal", "drag-along", "tag-along", "earn-out",
		"retention of title", "time is of the essence", "counterparts",
		"third party beneficiary", "survival",
	}
	keywordVocabulary = append(append([]string{}, coreKeywords...), advancedKeywords...)
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
