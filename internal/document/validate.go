package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidJSON is returned when the input is not a JSON document.
var ErrInvalidJSON = errors.New("invalid JSON")

// FieldError is one validator diagnostic.
type FieldError struct {
	Field   string `json:"field"`   // JSON pointer into the record, "" for the root
	Keyword string `json:"keyword"` // schema keyword that failed, e.g. "pattern"
	Message string `json:"message"`
}

func (e FieldError) String() string {
	field := e.Field
	if field == "" {
		field = "/"
	}
	return field + ": " + e.Message
}

// ValidationError reports every field that violated the schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "record does not match schema"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "record does not match schema: " + strings.Join(parts, "; ")
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(Schema())
		if err != nil {
			compileErr = fmt.Errorf("failed to serialize record schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to load record schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("failed to compile record schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate normalizes a raw extraction result, checks it against Schema and
// decodes it into a Record. Schema failures are returned as
// *ValidationError.
func Validate(raw []byte) (*Record, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return ValidateValue(doc)
}

// ValidateValue is Validate for an already-decoded JSON value.
func ValidateValue(doc any) (*Record, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	doc = Normalize(doc)
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ValidationError{Fields: diagnostics(ve)}
		}
		return nil, err
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(normalized, &rec); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	if rec.Type == TypeUnrecognized {
		rec.Summary = UnrecognizedSummary
	}
	return &rec, nil
}

// diagnostics flattens the validator's error tree into its leaves.
func diagnostics(ve *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	seen := make(map[string]bool)
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			fe := FieldError{
				Field:   e.InstanceLocation,
				Keyword: lastSegment(e.KeywordLocation),
				Message: e.Message,
			}
			key := fe.Field + "|" + fe.Message
			if !seen[key] {
				seen[key] = true
				out = append(out, fe)
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func lastSegment(ptr string) string {
	if i := strings.LastIndex(ptr, "/"); i >= 0 {
		return ptr[i+1:]
	}
	return ptr
}

// Normalize cleans model output before validation: strings are trimmed and
// NFC-normalized, and the identity document number is reduced to its
// digits. A null document number becomes "". Unrecognized documents get
// the fixed summary whatever the model wrote.
func Normalize(doc any) any {
	doc = cleanStrings(doc)
	root, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	if root["tipo_documento"] == string(TypeUnrecognized) {
		root["resumen"] = UnrecognizedSummary
	}
	if ci, ok := root["datos_ci"].(map[string]any); ok {
		switch n := ci["numero_documento"].(type) {
		case string:
			ci["numero_documento"] = DigitsOnly(n)
		case float64:
			ci["numero_documento"] = DigitsOnly(fmt.Sprintf("%.0f", n))
		case nil:
			if _, present := ci["numero_documento"]; present {
				ci["numero_documento"] = ""
			}
		}
	}
	return root
}

func cleanStrings(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(strings.TrimSpace(t))
	case map[string]any:
		for k, child := range t {
			t[k] = cleanStrings(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = cleanStrings(child)
		}
		return t
	}
	return v
}

// DigitsOnly strips every non-digit rune, e.g. "I23-45678O" -> "2345678".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
