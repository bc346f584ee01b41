// Package render rasterizes the first page of a PDF for vision mode.
//
// Pages are rendered with pdftoppm (poppler-utils). When pdftoppm is missing
// or fails, the largest image embedded in page 1 is used instead, which is
// what a scanned PDF usually consists of.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// DefaultDPI is the resolution page 1 is rendered at.
	DefaultDPI = 200

	// DefaultPdftoppm is the pdftoppm binary looked up on PATH.
	DefaultPdftoppm = "pdftoppm"
)

var (
	// ErrNoPages is returned for PDFs that parse but contain no pages.
	ErrNoPages = errors.New("pdf has no pages")

	// ErrUnreadable is returned when the PDF cannot be parsed or no image
	// could be produced from it.
	ErrUnreadable = errors.New("pdf is unreadable")
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	slog.Debug("exec",
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	return out.Bytes(), errb.Bytes(), err
}

// ExecRunner runs commands with os/exec.
func ExecRunner() Runner { return execRunner{} }

// Renderer produces a PNG or JPEG of page 1 of a PDF.
type Renderer struct {
	Runner   Runner
	Pdftoppm string
	DPI      int
	Logger   *slog.Logger

	// countPages defaults to pdfcpu; tests replace it.
	countPages func(path string) (int, error)
}

// New returns a Renderer that shells out to pdftoppm.
func New(logger *slog.Logger) *Renderer {
	return &Renderer{
		Runner:   ExecRunner(),
		Pdftoppm: DefaultPdftoppm,
		DPI:      DefaultDPI,
		Logger:   logger,
	}
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, pdfConfig())
}

// FirstPage returns an encoded bitmap of page 1.
func (r *Renderer) FirstPage(ctx context.Context, path string) ([]byte, error) {
	count := r.countPages
	if count == nil {
		count = PageCount
	}
	n, err := count(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if n < 1 {
		return nil, ErrNoPages
	}

	tmpDir, err := os.MkdirTemp("", "intake-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	data, renderErr := r.pdftoppm(ctx, path, tmpDir)
	if renderErr == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.logger().Warn("pdftoppm failed, falling back to embedded images", "path", path, "error", renderErr)

	data, err = largestEmbeddedImage(path, filepath.Join(tmpDir, "images"))
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v; embedded images: %v", ErrUnreadable, renderErr, err)
	}
	return data, nil
}

func (r *Renderer) pdftoppm(ctx context.Context, path, dir string) ([]byte, error) {
	runner := r.Runner
	if runner == nil {
		runner = ExecRunner()
	}
	bin := r.Pdftoppm
	if bin == "" {
		bin = DefaultPdftoppm
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	prefix := filepath.Join(dir, "page")
	_, stderr, err := runner.Run(ctx, bin,
		"-png",
		"-f", "1",
		"-l", "1",
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		path,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (stderr: %s)", err, strings.TrimSpace(string(stderr)))
	}

	// -singlefile writes <prefix>.png
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pdftoppm wrote an empty image")
	}
	return data, nil
}

// largestEmbeddedImage extracts the images of page 1 and returns the
// biggest file.
func largestEmbeddedImage(path, outDir string) ([]byte, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	if err := api.ExtractImagesFile(path, outDir, []string{"1"}, pdfConfig()); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}

	var best string
	var bestSize int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = e.Name(), info.Size()
		}
	}
	if best == "" {
		return nil, fmt.Errorf("page 1 has no embedded images")
	}
	return os.ReadFile(filepath.Join(outDir, best))
}
