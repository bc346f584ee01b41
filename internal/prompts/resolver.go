package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned for unregistered keys.
var ErrNotFound = errors.New("prompt not found")

// Resolver resolves prompts with file overrides.
// Resolution order: override file > embedded default
type Resolver struct {
	overrideDir string
	embedded    map[string]EmbeddedPrompt
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewResolver creates a new prompt resolver. An empty overrideDir disables
// overrides.
func NewResolver(overrideDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		overrideDir: overrideDir,
		embedded:    make(map[string]EmbeddedPrompt),
		logger:      logger,
	}
}

// SetOverrideDir changes the override directory, e.g. after a config reload.
func (r *Resolver) SetOverrideDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrideDir = dir
}

// OverrideDir returns the current override directory.
func (r *Resolver) OverrideDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrideDir
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if one exists, otherwise the embedded
// default. An unreadable override is logged and skipped.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	embedded, ok := r.embedded[key]
	dir := r.overrideDir
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if dir != "" {
		path := filepath.Join(dir, key+".tmpl")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := string(data)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
				Source:     path,
				Hash:       HashText(text),
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.Warn("failed to read prompt override", "key", key, "path", path, "error", err)
		}
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Source:    "embedded",
		Hash:      embedded.Hash,
	}, nil
}

// RenderKey resolves key and executes it against data.
func (r *Resolver) RenderKey(key string, data any) (string, *ResolvedPrompt, error) {
	p, err := r.Resolve(key)
	if err != nil {
		return "", nil, err
	}
	text, err := Render(key, p.Text, data)
	if err != nil {
		return "", p, err
	}
	return text, p, nil
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// ResolveAll resolves every registered key, for listing.
func (r *Resolver) ResolveAll() []ResolvedPrompt {
	var out []ResolvedPrompt
	for _, p := range r.AllEmbedded() {
		resolved, err := r.Resolve(p.Key)
		if err != nil {
			continue
		}
		out = append(out, *resolved)
	}
	return out
}
