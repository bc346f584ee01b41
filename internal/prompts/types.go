// Package prompts provides instruction templates with embedded defaults and
// file overrides.
//
// Embedded .tmpl files are the source of truth. An operator can replace any
// of them without rebuilding by dropping <key>.tmpl into the override
// directory (prompts.override_dir).
//
// Resolution order:
//  1. <override_dir>/<key>.tmpl, if it exists
//  2. Embedded default
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   `json:"key"`         // Hierarchical key: analyze.vision.system
	Text        string   `json:"text"`        // The prompt text (Go template)
	Description string   `json:"description"` // Human-readable description
	Variables   []string `json:"variables"`   // Extracted template variables
	Hash        string   `json:"hash"`        // SHA256 of Text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Source     string   `json:"source"` // "embedded" or the override file path
	Hash       string   `json:"hash"`
}
