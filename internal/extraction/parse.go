package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/intake/internal/document"
)

// decodeRecord parses raw as a JSON object and validates it.
func decodeRecord(mode Mode, raw string) (*document.Record, error) {
	doc, err := parseStructuredJSON(raw)
	if err != nil {
		return nil, &Error{Mode: mode, Kind: ErrMalformedResponse, Raw: raw, Err: err}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, &Error{Mode: mode, Kind: ErrMalformedResponse, Raw: raw, Err: fmt.Errorf("expected a JSON object, got %T", doc)}
	}

	rec, err := document.ValidateValue(doc)
	if err != nil {
		var ve *document.ValidationError
		if errors.As(err, &ve) {
			return nil, &Error{Mode: mode, Kind: ErrSchemaViolation, Diagnostics: ve.Fields, Raw: raw, Err: ve}
		}
		return nil, err
	}
	return rec, nil
}

// parseStructuredJSON decodes content as one JSON value. A single markdown
// code fence around the value is tolerated; any other prose makes the
// answer malformed.
func parseStructuredJSON(content string) (any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}
	if stripped := stripCodeFences(content); stripped != "" {
		content = stripped
	}

	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return parsed, nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
