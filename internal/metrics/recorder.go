package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/intake/internal/providers"
)

// DefaultCapacity is the number of metrics a Recorder keeps before
// overwriting the oldest.
const DefaultCapacity = 1000

// Recorder keeps the most recent metrics in a fixed-size ring.
// A nil *Recorder discards everything.
type Recorder struct {
	mu    sync.RWMutex
	buf   []Metric
	next  int
	count int
}

// NewRecorder creates a recorder holding up to capacity metrics.
// capacity <= 0 uses DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{buf: make([]Metric, capacity)}
}

// RecordOpts provides context for a metric recording.
type RecordOpts struct {
	RequestID    string
	Mode         string
	Filename     string
	ErrorType    string // overrides the chat result's error type
	DocumentType string
}

// Record stores a single metric and returns its ID.
func (r *Recorder) Record(m Metric) string {
	if r == nil {
		return ""
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = m
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	return m.ID
}

// RecordLLMCall records metrics from an LLM chat result. The call counts as
// successful only if the chat succeeded and opts carries no error type.
func (r *Recorder) RecordLLMCall(opts RecordOpts, result *providers.ChatResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil chat result")
	}

	m := Metric{
		// Attribution
		RequestID: opts.RequestID,
		Mode:      opts.Mode,
		Filename:  opts.Filename,

		// Provider info
		Provider: result.Provider,
		Model:    result.ModelUsed,

		// Cost and tokens
		CostUSD:          result.CostUSD,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,

		// Timing
		ExecutionSeconds: result.ExecutionTime.Seconds(),
		TotalSeconds:     result.ExecutionTime.Seconds(),

		// Outcome
		Success:      result.Success && opts.ErrorType == "",
		ErrorType:    result.ErrorType,
		DocumentType: opts.DocumentType,
	}
	if opts.ErrorType != "" {
		m.ErrorType = opts.ErrorType
	}

	return r.Record(m), nil
}

// RecordError records a failed operation that produced no chat result.
func (r *Recorder) RecordError(opts RecordOpts, provider, model, errorType string, duration time.Duration) string {
	return r.Record(Metric{
		RequestID:    opts.RequestID,
		Mode:         opts.Mode,
		Filename:     opts.Filename,
		Provider:     provider,
		Model:        model,
		TotalSeconds: duration.Seconds(),
		Success:      false,
		ErrorType:    errorType,
	})
}

// Len returns the number of metrics currently held.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// snapshot returns held metrics, oldest first.
func (r *Recorder) snapshot() []Metric {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metric, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
