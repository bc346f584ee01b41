package extraction

import (
	"errors"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, false},
		{"fenced", "```json\n{\"a\": 1}\n```", false},
		{"fence without language", "```\n{\"a\": 1}\n```", false},
		{"prose around object", "Aquí está el JSON:\n{\"a\": 1}\nGracias.", true},
		{"prose after fence", "```json\n{\"a\": 1}\n```\nEspero que sirva.", true},
		{"empty", "   ", true},
		{"not json", "no puedo ayudar con eso", true},
		{"truncated", `{"a": `, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStructuredJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			m, ok := got.(map[string]any)
			if !ok || m["a"] != float64(1) {
				t.Errorf("parseStructuredJSON() = %#v", got)
			}
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	t.Run("array is malformed", func(t *testing.T) {
		_, err := decodeRecord(ModeText, `[1, 2]`)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("decodeRecord() error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("prose-wrapped object is malformed", func(t *testing.T) {
		_, err := decodeRecord(ModeText, "Claro, aquí está:\n"+resumeJSON)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("decodeRecord() error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("schema violation carries diagnostics", func(t *testing.T) {
		_, err := decodeRecord(ModeVision, `{"tipo_documento": "CI", "resumen": "x", "datos_ci": {"nombre_completo": "Ana", "numero_documento": "12"}}`)
		var xe *Error
		if !errors.As(err, &xe) {
			t.Fatalf("decodeRecord() error = %v, want *Error", err)
		}
		if !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("Kind = %v, want ErrSchemaViolation", xe.Kind)
		}
		if xe.Mode != ModeVision || len(xe.Diagnostics) == 0 {
			t.Errorf("Error = %+v", xe)
		}
		if xe.Raw == "" {
			t.Error("Raw not preserved")
		}
	})

	t.Run("valid record", func(t *testing.T) {
		rec, err := decodeRecord(ModeText, "```json\n"+resumeJSON+"\n```")
		if err != nil {
			t.Fatalf("decodeRecord() error = %v", err)
		}
		if _, ok := rec.Resume(); !ok {
			t.Errorf("record type = %s, want CV", rec.Type)
		}
	})
}

func TestKindName(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("boom"), ""},
		{&Error{Mode: ModeText, Kind: ErrOracle}, "oracle"},
		{&Error{Mode: ModeText, Kind: ErrMalformedResponse}, "malformed_response"},
		{&Error{Mode: ModeVision, Kind: ErrSchemaViolation}, "schema_violation"},
	}
	for _, tt := range tests {
		if got := KindName(tt.err); got != tt.want {
			t.Errorf("KindName(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
