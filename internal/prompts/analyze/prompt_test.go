package analyze

import (
	"strings"
	"testing"

	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/prompts"
)

func TestSystemPromptsRender(t *testing.T) {
	r := prompts.NewResolver("", nil)
	RegisterPrompts(r)
	data := NewSystemData()

	for _, key := range []string{TextSystemKey, VisionSystemKey} {
		t.Run(key, func(t *testing.T) {
			text, _, err := r.RenderKey(key, data)
			if err != nil {
				t.Fatalf("RenderKey() error = %v", err)
			}
			for _, want := range []string{`"tipo_documento"`, `"datos_ci"`, `"datos_cv"`, document.UnrecognizedSummary} {
				if !strings.Contains(text, want) {
					t.Errorf("%s missing %q", key, want)
				}
			}
			if strings.Contains(text, "<no value>") {
				t.Errorf("%s has unrendered variables", key)
			}
		})
	}
}

func TestVisionPromptHasQualityGate(t *testing.T) {
	r := prompts.NewResolver("", nil)
	RegisterPrompts(r)
	text, _, err := r.RenderKey(VisionSystemKey, NewSystemData())
	if err != nil {
		t.Fatalf("RenderKey() error = %v", err)
	}
	if !strings.Contains(text, document.LowQualitySummary) {
		t.Error("vision prompt does not carry the low-quality answer")
	}
	if !strings.Contains(text, "anverso y reverso") {
		t.Error("vision prompt does not carry the front/back cross-check")
	}

	textMode, _, _ := r.RenderKey(TextSystemKey, NewSystemData())
	if strings.Contains(textMode, document.LowQualitySummary) {
		t.Error("text prompt carries the vision quality gate")
	}
}

func TestUserPrompts(t *testing.T) {
	r := prompts.NewResolver("", nil)
	RegisterPrompts(r)

	text, _, err := r.RenderKey(TextUserKey, UserData{Filename: "cv.pdf", Text: "Experiencia laboral"})
	if err != nil {
		t.Fatalf("RenderKey() error = %v", err)
	}
	if !strings.Contains(text, "cv.pdf") || !strings.Contains(text, "Experiencia laboral") {
		t.Errorf("text user prompt = %q", text)
	}

	vision, _, err := r.RenderKey(VisionUserKey, UserData{Filename: "ci.png"})
	if err != nil {
		t.Fatalf("RenderKey() error = %v", err)
	}
	if !strings.Contains(vision, "'ci.png'") {
		t.Errorf("vision user prompt = %q", vision)
	}
}
