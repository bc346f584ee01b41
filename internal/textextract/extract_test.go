package textextract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(t *testing.T, pages ...string) string {
	t.Helper()

	var objects []string
	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

const longLine = "Experiencia profesional Desarrollador backend en Acme desde 2021 Educacion Ingenieria de Sistemas"

func TestExtract_TextLayer(t *testing.T) {
	path := buildPDF(t, longLine)
	text, ok := New(nil).Extract(path)
	if !ok {
		t.Fatal("Extract() ok = false, want true")
	}
	if !strings.Contains(text, "Desarrollador") {
		t.Errorf("Extract() text = %q", text)
	}
}

func TestExtract_ShortTextIsScan(t *testing.T) {
	path := buildPDF(t, "Hola")
	if text, ok := New(nil).Extract(path); ok || text != "" {
		t.Errorf("Extract() = (%q, %v), want empty signal", text, ok)
	}
}

func TestExtract_OnlyLeadingPagesCount(t *testing.T) {
	// Text on page 3 is never read.
	path := buildPDF(t, "", "", longLine)
	if _, ok := New(nil).Extract(path); ok {
		t.Error("Extract() ok = true, want false when text is past the page limit")
	}

	e := New(nil)
	e.MaxPages = 3
	if _, ok := e.Extract(path); !ok {
		t.Error("Extract() ok = false with MaxPages = 3")
	}
}

func TestExtract_JoinsPages(t *testing.T) {
	path := buildPDF(t, "Primera pagina del curriculum vitae", "Segunda pagina con mas detalles")
	text, ok := New(nil).Extract(path)
	if !ok {
		t.Fatal("Extract() ok = false")
	}
	first := strings.Index(text, "Primera")
	second := strings.Index(text, "Segunda")
	if first < 0 || second < 0 || first > second {
		t.Errorf("Extract() text = %q, want both pages in order", text)
	}
}

func TestExtract_UnreadableInputs(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{garbage, empty, filepath.Join(dir, "missing.pdf")} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if text, ok := New(nil).Extract(path); ok || text != "" {
				t.Errorf("Extract() = (%q, %v), want empty signal", text, ok)
			}
		})
	}
}
