// Package pipeline sequences one document through the fast text path and
// the vision fallback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/extraction"
	"github.com/jackzampolin/intake/internal/imaging"
	"github.com/jackzampolin/intake/internal/render"
	"github.com/jackzampolin/intake/internal/textextract"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .pdf, .jpg,
	// .jpeg and .png. No extraction is attempted.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyOrUnreadable is returned when the file is missing, empty, or
	// cannot be decoded into text or an image.
	ErrEmptyOrUnreadable = errors.New("empty or unreadable file")
)

// SupportedExtensions lists the accepted extensions, lowercase.
var SupportedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

type fileKind int

const (
	kindUnsupported fileKind = iota
	kindPDF
	kindImage
)

func classify(name string) fileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return kindPDF
	case ".jpg", ".jpeg", ".png":
		return kindImage
	default:
		return kindUnsupported
	}
}

// Supported reports whether filename has a supported extension.
func Supported(filename string) bool {
	return classify(filename) != kindUnsupported
}

// TextSource is the fast-path text extractor.
type TextSource interface {
	Extract(path string) (string, bool)
}

// PageRenderer rasterizes page 1 of a PDF.
type PageRenderer interface {
	FirstPage(ctx context.Context, path string) ([]byte, error)
}

// ImageNormalizer prepares a bitmap for the oracle.
type ImageNormalizer interface {
	Normalize(raw []byte) ([]byte, error)
}

// Extractor runs one extraction attempt.
type Extractor interface {
	Extract(ctx context.Context, payload []byte, filename string, mode extraction.Mode) (*extraction.Attempt, error)
}

// Controller processes one document per Process call. It holds no
// per-request state and is safe for concurrent use.
type Controller struct {
	Text       TextSource
	Renderer   PageRenderer
	Normalizer ImageNormalizer
	Extractor  Extractor
	Policy     Policy
	Logger     *slog.Logger
}

// New wires a Controller from the default collaborators.
func New(extractor Extractor, logger *slog.Logger) *Controller {
	return &Controller{
		Text:       textextract.New(logger),
		Renderer:   render.New(logger),
		Normalizer: imaging.New(),
		Extractor:  extractor,
		Policy:     PolicyAuto,
		Logger:     logger,
	}
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Result is the outcome of one Process call.
type Result struct {
	Record   *document.Record      `json:"record,omitempty"`
	Mode     extraction.Mode       `json:"mode,omitempty"` // mode that produced Record
	Attempts []*extraction.Attempt `json:"-"`
	Trace    []State               `json:"trace"`
	Elapsed  time.Duration         `json:"elapsed"`
}

// run is the mutable state of one request.
type run struct {
	c        *Controller
	path     string
	filename string
	kind     fileKind
	res      *Result
	err      error
	terminal bool
}

// Process classifies the document at path and returns the first validated
// record. filename is the original upload name; it selects the file kind
// and is passed to the oracle as a hint. The returned Result is never nil.
//
// Text mode runs at most once, and only for PDFs. Vision mode runs at most
// once, and only if text mode produced no record and did not hit a
// terminal error. When both modes fail, the vision failure is returned.
func (c *Controller) Process(ctx context.Context, path, filename string) (*Result, error) {
	start := time.Now()
	if filename == "" {
		filename = filepath.Base(path)
	}
	r := &run{
		c:        c,
		path:     path,
		filename: filename,
		kind:     classify(filename),
		res:      &Result{Trace: []State{StateStart}},
	}
	logger := c.logger().With("filename", filename)

	state := StateStart
	for state != StateDone {
		next := r.step(ctx, state)
		if err := checkTransition(state, next); err != nil {
			return r.res, err
		}
		logger.Debug("pipeline.transition", "from", string(state), "to", string(next))
		state = next
		r.res.Trace = append(r.res.Trace, state)
	}
	r.res.Elapsed = time.Since(start)

	if r.err != nil {
		logger.Warn("pipeline.failed",
			"attempts", len(r.res.Attempts),
			"elapsed_ms", r.res.Elapsed.Milliseconds(),
			"error", r.err,
		)
		return r.res, r.err
	}
	logger.Info("pipeline.done",
		"mode", string(r.res.Mode),
		"document_type", string(r.res.Record.Type),
		"attempts", len(r.res.Attempts),
		"elapsed_ms", r.res.Elapsed.Milliseconds(),
	)
	return r.res, nil
}

func (r *run) step(ctx context.Context, state State) State {
	policy := r.c.Policy
	switch state {
	case StateStart:
		if err := r.checkInput(); err != nil {
			r.err = err
			return StateDone
		}
		if r.kind == kindPDF && policy != PolicyVisionOnly {
			r.tryText(ctx)
			return StateTextAttempted
		}
		if policy == PolicyTextOnly {
			r.err = fmt.Errorf("%w: text mode requires a PDF", ErrUnsupportedFormat)
			return StateDone
		}
		r.tryVision(ctx)
		return StateVisionAttempted

	case StateTextAttempted:
		if r.res.Record != nil || r.terminal || policy == PolicyTextOnly {
			return StateDone
		}
		r.tryVision(ctx)
		return StateVisionAttempted

	default:
		return StateDone
	}
}

func (r *run) checkInput() error {
	if r.kind == kindUnsupported {
		ext := filepath.Ext(r.filename)
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyOrUnreadable, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrEmptyOrUnreadable, r.filename)
	}
	return nil
}

func (r *run) tryText(ctx context.Context) {
	text, ok := r.c.Text.Extract(r.path)
	if !ok {
		r.err = fmt.Errorf("%w: no usable text layer", ErrEmptyOrUnreadable)
		return
	}
	r.attempt(ctx, []byte(text), extraction.ModeText)
}

func (r *run) tryVision(ctx context.Context) {
	raw, err := r.bitmap(ctx)
	if err != nil {
		r.visionUnavailable(err)
		return
	}
	img, err := r.c.Normalizer.Normalize(raw)
	if err != nil {
		r.visionUnavailable(fmt.Errorf("%w: %v", ErrEmptyOrUnreadable, err))
		return
	}
	r.attempt(ctx, img, extraction.ModeVision)
}

// visionUnavailable records a failure to produce an image. A failed text
// attempt keeps its kind; the image error is added as context.
func (r *run) visionUnavailable(err error) {
	var xe *extraction.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !errors.As(r.err, &xe) {
		r.err = err
		return
	}
	r.err = fmt.Errorf("%w (vision fallback unavailable: %v)", r.err, err)
}

// bitmap returns the raw image to normalize: page 1 for PDFs, the file
// itself for images.
func (r *run) bitmap(ctx context.Context) ([]byte, error) {
	if r.kind == kindImage {
		data, err := os.ReadFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyOrUnreadable, err)
		}
		return data, nil
	}
	data, err := r.c.Renderer.FirstPage(ctx, r.path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrEmptyOrUnreadable, err)
	}
	return data, nil
}

func (r *run) attempt(ctx context.Context, payload []byte, mode extraction.Mode) {
	a, err := r.c.Extractor.Extract(ctx, payload, r.filename, mode)
	if a != nil {
		r.res.Attempts = append(r.res.Attempts, a)
	}
	if err != nil {
		r.err = err
		// Oracle-contract failures fall back; transport failures and
		// cancellation end the request.
		if !errors.Is(err, extraction.ErrMalformedResponse) && !errors.Is(err, extraction.ErrSchemaViolation) {
			r.terminal = true
		}
		return
	}
	r.err = nil
	r.res.Record = a.Record
	r.res.Mode = mode
}
