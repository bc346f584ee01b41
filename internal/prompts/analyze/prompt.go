// Package analyze holds the classification and extraction instructions sent
// to the oracle in TEXT and VISION mode.
package analyze

import (
	_ "embed"

	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/prompts"
)

//go:embed text_system.tmpl
var textSystemPrompt string

//go:embed text_user.tmpl
var textUserPrompt string

//go:embed vision_system.tmpl
var visionSystemPrompt string

//go:embed vision_user.tmpl
var visionUserPrompt string

// Prompt keys
const (
	TextSystemKey   = "analyze.text.system"
	TextUserKey     = "analyze.text.user"
	VisionSystemKey = "analyze.vision.system"
	VisionUserKey   = "analyze.vision.user"
)

// SystemData is the template data of both system prompts.
type SystemData struct {
	Schema              string
	MinSkills           int
	MaxSkills           int
	UnrecognizedSummary string
	LowQualitySummary   string
}

// NewSystemData fills SystemData from the document package.
func NewSystemData() SystemData {
	return SystemData{
		Schema:              document.SchemaJSON(),
		MinSkills:           document.MinSkills,
		MaxSkills:           document.MaxSkills,
		UnrecognizedSummary: document.UnrecognizedSummary,
		LowQualitySummary:   document.LowQualitySummary,
	}
}

// UserData is the template data of both user prompts. Text is empty in
// VISION mode.
type UserData struct {
	Filename string
	Text     string
}

// RegisterPrompts registers the analyze prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         TextSystemKey,
		Text:        textSystemPrompt,
		Description: "Text mode system prompt - classifies CV/CI from extracted PDF text",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         TextUserKey,
		Text:        textUserPrompt,
		Description: "Text mode user prompt - carries the extracted text and filename",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         VisionSystemKey,
		Text:        visionSystemPrompt,
		Description: "Vision mode system prompt - quality gate, mental crop, front/back number check",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         VisionUserKey,
		Text:        visionUserPrompt,
		Description: "Vision mode user prompt - filename and digit-by-digit check instruction",
	})
}
