package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/home"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/server/endpoints"
	"github.com/jackzampolin/intake/internal/svcctx"
)

const identityJSON = `{
  "tipo_documento": "CI",
  "resumen": "Cédula de Identidad de Alejandro Olguin.",
  "datos_cv": null,
  "datos_ci": {"nombre_completo": "Alejandro Olguin", "numero_documento": "1234-5678"}
}`

type testEnv struct {
	srv     *Server
	handler http.Handler
	mock    *providers.MockClient
	home    *home.Dir
}

// newTestEnv builds a server whose oracle is a mock registered under the
// default provider name. withProvider=false leaves the registry empty.
func newTestEnv(t *testing.T, withProvider bool, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.LLMProviders = map[string]config.LLMProviderCfg{}
	cfg.Server.MaxUploadMB = 1
	if mutate != nil {
		mutate(cfg)
	}

	h, err := home.New(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	services := svcctx.New(nil, cfg, h, nil)

	env := &testEnv{home: h}
	if withProvider {
		env.mock = providers.NewMockClient()
		env.mock.ResponseText = identityJSON
		services.Registry.RegisterLLM(cfg.Defaults.LLMProvider, env.mock)
	}

	srv, err := New(Config{Port: "0", Services: services})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.srv = srv
	env.handler = srv.Handler()
	return env
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), 90, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path, field, filename string, content []byte, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		mw.WriteField(k, v)
	}
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) endpoints.AnalyzeErrorResponse {
	t.Helper()
	var resp endpoints.AnalyzeErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHealthAndReady(t *testing.T) {
	t.Run("ready with provider", func(t *testing.T) {
		env := newTestEnv(t, true, nil)

		rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("health status = %d, want %d", rec.Code, http.StatusOK)
		}

		rec = env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("ready status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("not ready without provider", func(t *testing.T) {
		env := newTestEnv(t, false, nil)

		rec := env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("ready status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var resp endpoints.HealthResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Oracle != "not_configured" {
			t.Errorf("resp.Oracle = %q, want not_configured", resp.Oracle)
		}
	})
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp endpoints.StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Providers.Oracle != "openai" {
		t.Errorf("oracle = %q, want openai", resp.Providers.Oracle)
	}
	if len(resp.Providers.LLM) != 1 {
		t.Errorf("expected 1 registered provider, got %v", resp.Providers.LLM)
	}
	if resp.Pipeline.Mode != "auto" {
		t.Errorf("pipeline mode = %q, want auto", resp.Pipeline.Mode)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get(endpoints.HeaderRequestID) == "" {
		t.Error("expected generated request ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(endpoints.HeaderRequestID, "caller-id")
	rec = env.do(req)
	if got := rec.Header().Get(endpoints.HeaderRequestID); got != "caller-id" {
		t.Errorf("request ID = %q, want caller-id", got)
	}
}

func TestAnalyze_Success(t *testing.T) {
	for _, path := range []string{"/api/analyze", "/analyze"} {
		t.Run(path, func(t *testing.T) {
			env := newTestEnv(t, true, nil)

			req := uploadRequest(t, path, endpoints.UploadField, "cedula.png", testPNG(t), nil)
			req.Header.Set(endpoints.HeaderRequestID, "req-1")
			rec := env.do(req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			if got := rec.Header().Get(endpoints.HeaderMode); got != "VISION" {
				t.Errorf("mode header = %q, want VISION", got)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["tipo_documento"] != "CI" {
				t.Errorf("tipo_documento = %v, want CI", body["tipo_documento"])
			}
			ci, _ := body["datos_ci"].(map[string]any)
			if ci["numero_documento"] != "12345678" {
				t.Errorf("numero_documento = %v, want 12345678", ci["numero_documento"])
			}
			if _, ok := body["datos_cv"]; !ok {
				t.Error("expected datos_cv key to be present")
			}

			if env.mock.RequestCount() != 1 {
				t.Errorf("oracle calls = %d, want 1", env.mock.RequestCount())
			}
			calls := env.srv.Services().Metrics.ForRequest("req-1")
			if len(calls) != 1 || calls[0].Mode != "VISION" {
				t.Errorf("expected one VISION metric for req-1, got %+v", calls)
			}

			entries, _ := os.ReadDir(env.home.ScratchPath())
			if len(entries) != 0 {
				t.Errorf("expected scratch dir to be cleaned up, found %d entries", len(entries))
			}
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name         string
		withProvider bool
		setup        func(*providers.MockClient)
		field        string
		filename     string
		content      []byte
		values       map[string]string
		wantStatus   int
		wantKind     string
	}{
		{
			name:         "missing field",
			withProvider: true,
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "unsupported extension",
			withProvider: true,
			field:        endpoints.UploadField,
			filename:     "notes.txt",
			content:      []byte("hello"),
			wantStatus:   http.StatusUnsupportedMediaType,
			wantKind:     "unsupported_format",
		},
		{
			name:         "empty file",
			withProvider: true,
			field:        endpoints.UploadField,
			filename:     "scan.png",
			wantStatus:   http.StatusUnprocessableEntity,
			wantKind:     "empty_or_unreadable",
		},
		{
			name:         "corrupt image",
			withProvider: true,
			field:        endpoints.UploadField,
			filename:     "scan.jpg",
			content:      []byte("not an image"),
			wantStatus:   http.StatusUnprocessableEntity,
			wantKind:     "empty_or_unreadable",
		},
		{
			name:         "no provider",
			withProvider: false,
			field:        endpoints.UploadField,
			filename:     "scan.png",
			wantStatus:   http.StatusServiceUnavailable,
			wantKind:     "oracle_unavailable",
		},
		{
			name:         "oracle failure",
			withProvider: true,
			setup:        func(m *providers.MockClient) { m.ShouldFail = true },
			field:        endpoints.UploadField,
			filename:     "scan.png",
			wantStatus:   http.StatusBadGateway,
			wantKind:     "oracle",
		},
		{
			name:         "malformed response",
			withProvider: true,
			setup:        func(m *providers.MockClient) { m.ResponseText = "sorry, I cannot help" },
			field:        endpoints.UploadField,
			filename:     "scan.png",
			wantStatus:   http.StatusBadGateway,
			wantKind:     "malformed_response",
		},
		{
			name:         "schema violation",
			withProvider: true,
			setup:        func(m *providers.MockClient) { m.ResponseText = `{"tipo_documento": "CV", "resumen": "x"}` },
			field:        endpoints.UploadField,
			filename:     "scan.png",
			wantStatus:   http.StatusBadGateway,
			wantKind:     "schema_violation",
		},
		{
			name:         "bad mode",
			withProvider: true,
			field:        endpoints.UploadField,
			filename:     "scan.png",
			values:       map[string]string{"mode": "ocr"},
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "text mode on image",
			withProvider: true,
			field:        endpoints.UploadField,
			filename:     "scan.png",
			values:       map[string]string{"mode": "text"},
			wantStatus:   http.StatusUnsupportedMediaType,
			wantKind:     "unsupported_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.withProvider, nil)
			if tt.setup != nil {
				tt.setup(env.mock)
			}
			content := tt.content
			if content == nil && tt.filename == "scan.png" && tt.name != "empty file" {
				content = testPNG(t)
			}

			rec := env.do(uploadRequest(t, "/api/analyze", tt.field, tt.filename, content, tt.values))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantKind == "" {
				return
			}
			resp := decodeError(t, rec)
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q (%s)", resp.Kind, tt.wantKind, resp.Error)
			}
			if tt.wantKind == "schema_violation" && len(resp.Violations) == 0 {
				t.Error("expected schema violations in response")
			}
		})
	}
}

func TestAnalyze_TooLarge(t *testing.T) {
	env := newTestEnv(t, true, nil)

	big := bytes.Repeat([]byte{0xff}, 2<<20)
	rec := env.do(uploadRequest(t, "/api/analyze", endpoints.UploadField, "scan.png", big, nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if env.mock.RequestCount() != 0 {
		t.Error("expected no oracle call for oversized upload")
	}
}

func TestMetricsEndpoints(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := env.do(uploadRequest(t, "/api/analyze", endpoints.UploadField, "cedula.png", testPNG(t), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var summary endpoints.MetricsSummaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Count != 1 || summary.SuccessCount != 1 {
		t.Errorf("summary = %+v, want one successful call", summary)
	}
	if summary.ByDocumentType["CI"] != 1 {
		t.Errorf("by_document_type = %v, want CI:1", summary.ByDocumentType)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?mode=VISION", nil))
	var list endpoints.ListMetricsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("list count = %d, want 1", list.Count)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics/"+list.Metrics[0].ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get metric status = %d", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing metric status = %d, want 404", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?success=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want 400", rec.Code)
	}
}

func TestPromptsEndpoints(t *testing.T) {
	overrides := t.TempDir()
	if err := os.WriteFile(filepath.Join(overrides, "analyze.vision.user.tmpl"), []byte("custom {{.Filename}}"), 0o644); err != nil {
		t.Fatalf("failed to write override: %v", err)
	}
	env := newTestEnv(t, true, func(c *config.Config) { c.Prompts.OverrideDir = overrides })

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/prompts", nil))
	var list endpoints.PromptsListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode prompts: %v", err)
	}
	if len(list.Prompts) != 4 {
		t.Errorf("expected 4 prompts, got %d", len(list.Prompts))
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/prompts/analyze.vision.user", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get prompt status = %d", rec.Code)
	}
	var p endpoints.PromptResponse
	json.NewDecoder(rec.Body).Decode(&p)
	if !p.IsOverride || p.Text != "custom {{.Filename}}" {
		t.Errorf("expected override prompt, got %+v", p)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/prompts/analyze.nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing prompt status = %d, want 404", rec.Code)
	}
}

func TestOpenAPI(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi status = %d, want %d", rec.Code, http.StatusOK)
	}
	var doc struct {
		OpenAPI string                               `json:"openapi"`
		Paths   map[string]map[string]map[string]any `json:"paths"`
		Components struct {
			Schemas map[string]map[string]any `json:"schemas"`
		} `json:"components"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode openapi: %v", err)
	}
	if doc.OpenAPI != endpoints.OpenAPIVersion {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}

	analyze, ok := doc.Paths["/api/analyze"]["post"]
	if !ok {
		t.Fatalf("POST /api/analyze missing from paths: %v", doc.Paths)
	}
	if _, ok := analyze["requestBody"]; !ok {
		t.Error("analyze operation has no request body")
	}
	raw, _ := json.Marshal(analyze["responses"])
	for _, want := range []string{`"#/components/schemas/Record"`, `"#/components/schemas/AnalyzeError"`, `"415"`, `"422"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("analyze responses missing %s: %s", want, raw)
		}
	}

	metric, ok := doc.Paths["/api/metrics/{id}"]["get"]
	if !ok {
		t.Fatal("GET /api/metrics/{id} missing")
	}
	raw, _ = json.Marshal(metric["parameters"])
	if !strings.Contains(string(raw), `"in":"path"`) || !strings.Contains(string(raw), `"name":"id"`) {
		t.Errorf("metric parameters = %s", raw)
	}

	defs, _ := doc.Components.Schemas["Record"]["$defs"].(map[string]any)
	if _, ok := defs["datos_ci"]; !ok {
		t.Errorf("Record schema lacks payload definitions: %v", doc.Components.Schemas["Record"])
	}
	if _, ok := doc.Paths["/openapi.json"]; ok {
		t.Error("the docs endpoints should not describe themselves")
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/openapi.json") {
		t.Errorf("docs page status = %d", rec.Code)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	env := newTestEnv(t, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.srv.Start(ctx) }()

	baseURL := ""
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if env.srv.IsRunning() && !strings.HasSuffix(env.srv.Addr(), ":0") {
			baseURL = fmt.Sprintf("http://%s", env.srv.Addr())
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if baseURL == "" {
		cancel()
		t.Fatal("server did not start")
	}

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		cancel()
		t.Fatalf("health check failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if err := env.srv.Start(ctx); err == nil {
		t.Error("expected error starting a running server")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(35 * time.Second):
		t.Fatal("server did not shut down")
	}
	if env.srv.IsRunning() {
		t.Error("expected server to be stopped")
	}
}
