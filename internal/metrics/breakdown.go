package metrics

// CostByModel returns cost breakdown by model.
func (r *Recorder) CostByModel(f Filter) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range r.List(f, 0) {
		breakdown[m.Model] += m.CostUSD
	}
	return breakdown
}

// CostByProvider returns cost breakdown by provider.
func (r *Recorder) CostByProvider(f Filter) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range r.List(f, 0) {
		breakdown[m.Provider] += m.CostUSD
	}
	return breakdown
}

// CountByErrorType counts failed calls by error type.
func (r *Recorder) CountByErrorType(f Filter) map[string]int {
	counts := make(map[string]int)
	for _, m := range r.List(f, 0) {
		if !m.Success {
			counts[m.ErrorType]++
		}
	}
	return counts
}

// CountByDocumentType counts successful calls by classified document type.
func (r *Recorder) CountByDocumentType(f Filter) map[string]int {
	counts := make(map[string]int)
	for _, m := range r.List(f, 0) {
		if m.Success && m.DocumentType != "" {
			counts[m.DocumentType]++
		}
	}
	return counts
}
