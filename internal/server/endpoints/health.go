package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/svcctx"
	"github.com/jackzampolin/intake/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Oracle string `json:"oracle,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// Doc describes the endpoint for /openapi.json.
func (e *HealthEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:   "Liveness check",
		Tags:      []string{"health"},
		Responses: map[int]string{200: "Server is up"},
	}
}

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:     "Readiness check",
		Description: "Ready only when the configured oracle provider is registered",
		Tags:        []string{"health"},
		Responses:   map[int]string{200: "Oracle provider available", 503: "No oracle provider configured"},
	}
}

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.ServicesFrom(r.Context())
	if s == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Oracle: "not_initialized"})
		return
	}
	if !s.OracleReady() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Oracle: "not_configured"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Oracle: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes oracle provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Oracle != "" {
				fmt.Printf("Oracle: %s\n", resp.Oracle)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Providers ProvidersStatus `json:"providers"`
	Pipeline  PipelineStatus  `json:"pipeline"`
	Requests  int             `json:"recorded_calls"`
}

// ProvidersStatus shows registered LLM providers and the active oracle.
type ProvidersStatus struct {
	LLM    []string `json:"llm"`
	Oracle string   `json:"oracle"`
	Model  string   `json:"model,omitempty"`
}

// PipelineStatus shows the active pipeline settings.
type PipelineStatus struct {
	Mode         string `json:"mode"`
	MinTextChars int    `json:"min_text_chars"`
	RenderDPI    int    `json:"render_dpi"`
	MaxUploadMB  int    `json:"max_upload_mb"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:   "Server status",
		Tags:      []string{"health"},
		Responses: map[int]string{200: "Providers and pipeline settings"},
	}
}

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
	}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil {
		resp.Providers.Oracle = cfg.Defaults.LLMProvider
		resp.Providers.Model = cfg.Defaults.Model
		resp.Pipeline = PipelineStatus{
			Mode:         cfg.Pipeline.Mode,
			MinTextChars: cfg.Pipeline.MinTextChars,
			RenderDPI:    cfg.Pipeline.RenderDPI,
			MaxUploadMB:  cfg.Server.MaxUploadMB,
		}
	}
	resp.Requests = svcctx.MetricsFrom(r.Context()).Len()

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server:  %s (%s)\n", resp.Server, resp.Version)
			fmt.Printf("Oracle:  %s %s\n", resp.Providers.Oracle, resp.Providers.Model)
			fmt.Printf("Providers:\n")
			fmt.Printf("  LLM: %v\n", resp.Providers.LLM)
			fmt.Printf("Pipeline:\n")
			fmt.Printf("  Mode:           %s\n", resp.Pipeline.Mode)
			fmt.Printf("  Min text chars: %d\n", resp.Pipeline.MinTextChars)
			fmt.Printf("  Render DPI:     %d\n", resp.Pipeline.RenderDPI)
			fmt.Printf("  Max upload MB:  %d\n", resp.Pipeline.MaxUploadMB)
			fmt.Printf("Recorded oracle calls: %d\n", resp.Requests)
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
