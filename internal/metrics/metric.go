// Package metrics provides cost and usage tracking for oracle calls.
package metrics

import "time"

// Metric represents a single recorded oracle call.
// Metrics are append-only and live in memory for the lifetime of the process.
type Metric struct {
	ID string `json:"id"`

	// Attribution (for filtering/aggregation)
	RequestID string `json:"request_id,omitempty"`
	Mode      string `json:"mode,omitempty"` // "TEXT" or "VISION"
	Filename  string `json:"filename,omitempty"`

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Cost and tokens
	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`

	// Timing
	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`
	TotalSeconds     float64 `json:"total_seconds,omitempty"`

	// Outcome
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`    // oracle, malformed_response, schema_violation
	DocumentType string `json:"document_type,omitempty"` // CI, CV, NO_IDENTIFICADO

	CreatedAt time.Time `json:"created_at"`
}

// matches reports whether m satisfies every set field of f.
func (m *Metric) matches(f Filter) bool {
	if f.RequestID != "" && m.RequestID != f.RequestID {
		return false
	}
	if f.Mode != "" && m.Mode != f.Mode {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Model != "" && m.Model != f.Model {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !m.CreatedAt.Before(f.Before) {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}
