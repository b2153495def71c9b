package extractor

// fieldWeight is a field's share of the confidence score, in hundredths.
// Weights are kept as integers so that sums like 20+15 stay exact.
type fieldWeight struct {
	Field     string
	Weight    int
	populated func(r *Result) bool
}

var fieldWeights = []fieldWeight{
	{"agreement_type", 20, func(r *Result) bool { return r.AgreementType != nil }},
	{"jurisdiction", 15, func(r *Result) bool { return r.Jurisdiction != nil }},
	{"industry_sector", 15, func(r *Result) bool { return r.IndustrySector != nil }},
	{"geography", 10, func(r *Result) bool { return r.Geography != nil }},
	{"parties", 10, func(r *Result) bool { return len(r.Parties) > 0 }},
	{"effective_date", 10, func(r *Result) bool { return r.EffectiveDate != nil }},
	{"expiration_date", 5, func(r *Result) bool { return r.ExpirationDate != nil }},
	{"contract_value", 5, func(r *Result) bool { return r.ContractValue != nil }},
	{"currency", 5, func(r *Result) bool { return r.Currency != nil }},
	{"keywords", 5, func(r *Result) bool { return len(r.Keywords) > 0 }},
}

// Confidence scores r by the weights of its populated fields.
func Confidence(r *Result) float64 {
	total := 0
	for _, fw := range fieldWeights {
		if fw.populated(r) {
			total += fw.Weight
		}
	}
	return clamp(float64(total) / 100)
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// PopulatedFields lists the scored fields that r has populated, in weight order.
func PopulatedFields(r *Result) []string {
	out := []string{}
	for _, fw := range fieldWeights {
		if fw.populated(r) {
			out = append(out, fw.Field)
		}
	}
	return out
}

// ScoredFields lists every field that contributes to confidence, in weight order.
func ScoredFields() []string {
	out := make([]string, len(fieldWeights))
	for i, fw := range fieldWeights {
		out[i] = fw.Field
	}
	return out
}
