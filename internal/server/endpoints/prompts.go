package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/prompts"
	"github.com/jackzampolin/intake/internal/svcctx"
)

// PromptResponse represents a single prompt as the oracle will see it.
type PromptResponse struct {
	Key         string   `json:"key"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	IsOverride  bool     `json:"is_override"`
	Source      string   `json:"source"`
}

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	OverrideDir string           `json:"override_dir,omitempty"`
	Prompts     []PromptResponse `json:"prompts"`
}

func promptResponse(resolver *prompts.Resolver, p *prompts.ResolvedPrompt) PromptResponse {
	resp := PromptResponse{
		Key:        p.Key,
		Text:       p.Text,
		Variables:  p.Variables,
		Hash:       p.Hash,
		IsOverride: p.IsOverride,
		Source:     p.Source,
	}
	if embedded, ok := resolver.GetEmbedded(p.Key); ok {
		resp.Description = embedded.Description
	}
	return resp
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

func (e *ListPromptsEndpoint) Group() string { return "prompts" }

func (e *ListPromptsEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:     "List all prompts",
		Description: "All registered prompts with file overrides applied",
		Tags:        []string{"prompts"},
		Responses:   map[int]string{200: "Prompts", 500: "Prompt resolver unavailable"},
	}
}

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}

	resolved := resolver.ResolveAll()
	resp := PromptsListResponse{
		OverrideDir: resolver.OverrideDir(),
		Prompts:     make([]PromptResponse, len(resolved)),
	}
	for i := range resolved {
		resp.Prompts[i] = promptResponse(resolver, &resolved[i])
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(ctx, "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{key...}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{key...}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) Group() string { return "prompts" }

func (e *GetPromptEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:   "Get a prompt",
		Tags:      []string{"prompts"},
		Responses: map[int]string{200: "The prompt", 404: "Unknown prompt key"},
	}
}

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid prompt key")
		return
	}

	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}

	resolved, err := resolver.Resolve(key)
	if errors.Is(err, prompts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "prompt not found: "+key)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, promptResponse(resolver, resolved))
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if err := client.Get(ctx, "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
