package metrics

import "time"

// Filter specifies query filters.
type Filter struct {
	RequestID string
	Mode      string
	Provider  string
	Model     string
	After     time.Time
	Before    time.Time
	Success   *bool // nil = any, true = success only, false = errors only
}

// List returns metrics matching the filter, newest first.
// limit <= 0 returns all matches.
func (r *Recorder) List(f Filter, limit int) []Metric {
	all := r.snapshot()
	var out []Metric
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].matches(f) {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Get returns the metric with the given ID.
func (r *Recorder) Get(id string) (*Metric, bool) {
	for _, m := range r.snapshot() {
		if m.ID == id {
			return &m, true
		}
	}
	return nil, false
}

// ForRequest returns all metrics recorded for a request, oldest first.
func (r *Recorder) ForRequest(requestID string) []Metric {
	var out []Metric
	for _, m := range r.snapshot() {
		if m.RequestID == requestID {
			out = append(out, m)
		}
	}
	return out
}
