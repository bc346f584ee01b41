// Package textextract pulls the embedded text layer out of born-digital PDFs.
//
// A PDF with too little text on its first pages is treated as a scan. That
// is reported as ok == false, never as an error: the caller falls through to
// vision mode.
package textextract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMinChars is the minimum stripped text length for a PDF to count
	// as machine readable.
	DefaultMinChars = 50

	// DefaultMaxPages is how many leading pages are read.
	DefaultMaxPages = 2

	// PageSeparator joins the text of consecutive pages.
	PageSeparator = "\n\n"
)

// Extractor reads the text layer of the first pages of a PDF.
type Extractor struct {
	MinChars int
	MaxPages int
	Logger   *slog.Logger
}

// New returns an Extractor with the default thresholds.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{MinChars: DefaultMinChars, MaxPages: DefaultMaxPages, Logger: logger}
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Extract returns the text of the PDF at path and whether it is usable.
func (e *Extractor) Extract(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		e.logger().Debug("text layer unavailable", "path", path, "error", err)
		return "", false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		e.logger().Debug("text layer unavailable", "path", path, "error", err)
		return "", false
	}
	return e.ExtractReader(f, info.Size())
}

// ExtractReader is Extract for an open PDF.
func (e *Extractor) ExtractReader(r io.ReaderAt, size int64) (string, bool) {
	pages, err := e.readPages(r, size)
	if err != nil {
		e.logger().Debug("text layer unavailable", "error", err)
		return "", false
	}
	text := strings.Join(pages, PageSeparator)
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < e.minChars() {
		e.logger().Debug("text layer too short, treating as scan", "chars", n, "min_chars", e.minChars())
		return "", false
	}
	return text, true
}

func (e *Extractor) minChars() int {
	if e.MinChars <= 0 {
		return DefaultMinChars
	}
	return e.MinChars
}

func (e *Extractor) maxPages() int {
	if e.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return e.MaxPages
}

// readPages returns the plain text of up to maxPages leading pages. The pdf
// package panics on some malformed inputs; those become errors.
func (e *Extractor) readPages(r io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	limit := reader.NumPage()
	if limit > e.maxPages() {
		limit = e.maxPages()
	}
	for i := 1; i <= limit; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger().Debug("skipping unreadable page", "page", i, "error", err)
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
