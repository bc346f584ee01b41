// Package document defines the validated output of the intake pipeline.
//
// A Record is a tagged variant: the document type decides which payload, if
// any, is legal. Identity cards carry an IdentityPayload, résumés carry a
// ResumePayload, and unrecognized documents carry neither. The JSON field
// names are part of the contract with the extraction model and must not be
// renamed.
package document

import (
	"encoding/json"
	"fmt"
)

// DocumentType is the discriminant of a Record.
type DocumentType string

const (
	TypeIdentityCard DocumentType = "CI"
	TypeResume       DocumentType = "CV"
	TypeUnrecognized DocumentType = "NO_IDENTIFICADO"
)

// Types lists every valid discriminant value.
var Types = []DocumentType{TypeIdentityCard, TypeResume, TypeUnrecognized}

// Valid reports whether t is a known discriminant.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeIdentityCard, TypeResume, TypeUnrecognized:
		return true
	}
	return false
}

// Label returns a human-readable name for logs and CLI output.
func (t DocumentType) Label() string {
	switch t {
	case TypeIdentityCard:
		return "IDENTITY_CARD"
	case TypeResume:
		return "RESUME"
	case TypeUnrecognized:
		return "UNRECOGNIZED"
	}
	return string(t)
}

const (
	// UnrecognizedSummary is the summary of every UNRECOGNIZED record.
	UnrecognizedSummary = "Documento no reconocido como CV o CI válido."

	// LowQualitySummary is what the vision quality gate asks the model to
	// answer for illegible or unrelated images. It is folded into
	// UnrecognizedSummary on validation.
	LowQualitySummary = "Documento/imagen no relacionada o de muy baja calidad."
)

// Payload is implemented by the per-type extraction payloads.
type Payload interface {
	documentType() DocumentType
}

// IdentityPayload holds the fields extracted from an identity card.
type IdentityPayload struct {
	FullName       string  `json:"nombre_completo" yaml:"nombre_completo"`
	DocumentNumber string  `json:"numero_documento" yaml:"numero_documento"` // digits only, empty when unverified
	BirthDate      *string `json:"fecha_nacimiento" yaml:"fecha_nacimiento"`
	PlaceOfIssue   *string `json:"lugar_emision" yaml:"lugar_emision"`
}

func (*IdentityPayload) documentType() DocumentType { return TypeIdentityCard }

// ResumePayload holds the fields extracted from a résumé.
type ResumePayload struct {
	FullName         string   `json:"nombre" yaml:"nombre"`
	Email            string   `json:"email" yaml:"email"`
	Phone            *string  `json:"telefono" yaml:"telefono"`
	Education        string   `json:"educacion_principal" yaml:"educacion_principal"`
	LatestExperience string   `json:"ultima_experiencia" yaml:"ultima_experiencia"`
	KeySkills        []string `json:"habilidades_clave" yaml:"habilidades_clave"`
}

func (*ResumePayload) documentType() DocumentType { return TypeResume }

// Record is the final validated output of one request.
type Record struct {
	Type    DocumentType
	Summary string
	Payload Payload // nil iff Type is TypeUnrecognized
}

// NewIdentityRecord builds an identity-card record.
func NewIdentityRecord(summary string, p IdentityPayload) *Record {
	return &Record{Type: TypeIdentityCard, Summary: summary, Payload: &p}
}

// NewResumeRecord builds a résumé record.
func NewResumeRecord(summary string, p ResumePayload) *Record {
	return &Record{Type: TypeResume, Summary: summary, Payload: &p}
}

// NewUnrecognizedRecord builds the fixed record for unrecognized documents.
func NewUnrecognizedRecord() *Record {
	return &Record{Type: TypeUnrecognized, Summary: UnrecognizedSummary}
}

// Identity returns the identity payload when the record is an identity card.
func (r *Record) Identity() (*IdentityPayload, bool) {
	p, ok := r.Payload.(*IdentityPayload)
	return p, ok
}

// Resume returns the résumé payload when the record is a résumé.
func (r *Record) Resume() (*ResumePayload, bool) {
	p, ok := r.Payload.(*ResumePayload)
	return p, ok
}

// Check verifies the discriminant/payload correspondence.
func (r *Record) Check() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown document type %q", r.Type)
	}
	if r.Summary == "" {
		return fmt.Errorf("summary is empty")
	}
	switch r.Type {
	case TypeUnrecognized:
		if r.Payload != nil {
			return fmt.Errorf("%s record must not carry a payload", r.Type)
		}
	default:
		if r.Payload == nil {
			return fmt.Errorf("%s record is missing its payload", r.Type)
		}
		if got := r.Payload.documentType(); got != r.Type {
			return fmt.Errorf("%s record carries a %s payload", r.Type, got)
		}
	}
	return nil
}

// wireRecord is the serialized shape. Both payload keys are always present,
// the inactive one as null.
type wireRecord struct {
	Type     DocumentType     `json:"tipo_documento" yaml:"tipo_documento"`
	Summary  string           `json:"resumen" yaml:"resumen"`
	Resume   *ResumePayload   `json:"datos_cv" yaml:"datos_cv"`
	Identity *IdentityPayload `json:"datos_ci" yaml:"datos_ci"`
}

func (r *Record) wire() wireRecord {
	w := wireRecord{Type: r.Type, Summary: r.Summary}
	switch p := r.Payload.(type) {
	case *IdentityPayload:
		w.Identity = p
	case *ResumePayload:
		w.Resume = p
	}
	return w
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML lets CLI output use the same field names as the JSON form.
func (r Record) MarshalYAML() (any, error) {
	return r.wire(), nil
}

// UnmarshalJSON implements json.Unmarshaler. It rejects records whose
// payloads do not match the discriminant.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec := Record{Type: w.Type, Summary: w.Summary}
	switch {
	case w.Identity != nil && w.Resume != nil:
		return fmt.Errorf("record carries both datos_ci and datos_cv")
	case w.Identity != nil:
		rec.Payload = w.Identity
	case w.Resume != nil:
		rec.Payload = w.Resume
	}
	if err := rec.Check(); err != nil {
		return err
	}
	*r = rec
	return nil
}
