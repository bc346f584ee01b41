package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/imaging"
	"github.com/jackzampolin/intake/internal/metrics"
	"github.com/jackzampolin/intake/internal/prompts"
	"github.com/jackzampolin/intake/internal/prompts/analyze"
	"github.com/jackzampolin/intake/internal/providers"
)

// Attempt is one orchestrator invocation. It lives for a single request.
type Attempt struct {
	Mode     Mode
	Filename string
	Payload  []byte // extracted text (TEXT) or normalized image (VISION)
	Raw      string // oracle answer
	Record   *document.Record
	Err      error
	Usage    *providers.ChatResult
	Elapsed  time.Duration
}

// OK reports whether the attempt produced a validated record.
func (a *Attempt) OK() bool {
	return a.Err == nil && a.Record != nil
}

// Orchestrator builds the mode-specific instruction, calls the oracle once
// and validates the answer. It never retries.
type Orchestrator struct {
	Oracle  Oracle
	Prompts *prompts.Resolver
	Metrics *metrics.Recorder // optional
	Logger  *slog.Logger
}

// New creates an orchestrator. A nil resolver gets the embedded analyze
// prompts with no override directory.
func New(oracle Oracle, resolver *prompts.Resolver, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = prompts.NewResolver("", logger)
	}
	if _, ok := resolver.GetEmbedded(analyze.TextSystemKey); !ok {
		analyze.RegisterPrompts(resolver)
	}
	return &Orchestrator{
		Oracle:  oracle,
		Prompts: resolver,
		Logger:  logger,
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func promptKeys(mode Mode) (system, user string) {
	if mode == ModeVision {
		return analyze.VisionSystemKey, analyze.VisionUserKey
	}
	return analyze.TextSystemKey, analyze.TextUserKey
}

// instructions renders the system instruction and the user message for mode.
func (o *Orchestrator) instructions(mode Mode, filename string, payload []byte) (string, string, error) {
	systemKey, userKey := promptKeys(mode)

	system, _, err := o.Prompts.RenderKey(systemKey, analyze.NewSystemData())
	if err != nil {
		return "", "", err
	}
	data := analyze.UserData{Filename: filename}
	if mode == ModeText {
		data.Text = string(payload)
	}
	user, _, err := o.Prompts.RenderKey(userKey, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// Extract asks the oracle to classify and extract payload in the given mode.
// The returned Attempt is never nil; its Err equals the returned error.
// Oracle, parse and validation failures are *Error values.
func (o *Orchestrator) Extract(ctx context.Context, payload []byte, filename string, mode Mode) (*Attempt, error) {
	start := time.Now()
	attempt := &Attempt{Mode: mode, Filename: filename, Payload: payload}
	logger := o.logger().With("mode", string(mode), "filename", filename)
	if id := providers.RequestIDFrom(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	if !mode.Valid() {
		attempt.Err = fmt.Errorf("%w: %q", ErrUnknownMode, mode)
		return attempt, attempt.Err
	}
	if o.Oracle == nil {
		attempt.Err = &Error{Mode: mode, Kind: ErrOracle, Err: errors.New("no oracle configured")}
		return attempt, attempt.Err
	}

	system, user, err := o.instructions(mode, filename, payload)
	if err != nil {
		attempt.Err = fmt.Errorf("failed to build %s instructions: %w", mode, err)
		return attempt, attempt.Err
	}

	req := Payload{Text: user}
	if mode == ModeVision {
		req.Image = payload
		req.ImageMIME = imaging.MIMEType
	}

	logger.Info("extraction.start", "payload_bytes", len(payload))
	resp, err := o.Oracle.Generate(ctx, system, req)
	attempt.Raw = resp.Text
	attempt.Usage = resp.Usage
	if err != nil {
		attempt.Err = &Error{Mode: mode, Kind: ErrOracle, Err: err}
	} else {
		attempt.Record, attempt.Err = decodeRecord(mode, resp.Text)
	}
	attempt.Elapsed = time.Since(start)
	o.record(ctx, attempt)

	if attempt.Err != nil {
		attrs := []any{"kind", KindName(attempt.Err), "elapsed_ms", attempt.Elapsed.Milliseconds(), "error", attempt.Err}
		var xe *Error
		if errors.As(attempt.Err, &xe) && len(xe.Diagnostics) > 0 {
			attrs = append(attrs, "violations", len(xe.Diagnostics))
		}
		logger.Warn("extraction.failed", attrs...)
		return attempt, attempt.Err
	}

	logger.Info("extraction.done",
		"document_type", string(attempt.Record.Type),
		"elapsed_ms", attempt.Elapsed.Milliseconds(),
	)
	return attempt, nil
}

func (o *Orchestrator) record(ctx context.Context, a *Attempt) {
	if o.Metrics == nil {
		return
	}
	opts := metrics.RecordOpts{
		RequestID: providers.RequestIDFrom(ctx),
		Mode:      string(a.Mode),
		Filename:  a.Filename,
		ErrorType: KindName(a.Err),
	}
	if a.Record != nil {
		opts.DocumentType = string(a.Record.Type)
	}

	if a.Usage != nil {
		if _, err := o.Metrics.RecordLLMCall(opts, a.Usage); err != nil {
			o.logger().Debug("failed to record metric", "error", err)
		}
		return
	}
	if a.Err != nil {
		o.Metrics.RecordError(opts, "", "", opts.ErrorType, a.Elapsed)
		return
	}
	o.Metrics.Record(metrics.Metric{
		RequestID:    opts.RequestID,
		Mode:         opts.Mode,
		Filename:     opts.Filename,
		TotalSeconds: a.Elapsed.Seconds(),
		Success:      true,
		DocumentType: opts.DocumentType,
	})
}
