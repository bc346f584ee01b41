package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/extraction"
	"github.com/jackzampolin/intake/internal/pipeline"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/svcctx"
)

// UploadField is the multipart field carrying the document.
const UploadField = "document"

// Response headers set on successful analyses.
const (
	HeaderMode      = "X-Intake-Mode"
	HeaderRequestID = "X-Request-ID"
)

// AnalyzeErrorResponse is returned when a document cannot be analyzed.
type AnalyzeErrorResponse struct {
	Error      string                `json:"error"`
	Kind       string                `json:"kind"`
	Mode       string                `json:"mode,omitempty"`
	Violations []document.FieldError `json:"violations,omitempty"`
}

// AnalyzeEndpoint handles POST /api/analyze. Path overrides the route,
// which lets the server mount the same handler at /analyze.
type AnalyzeEndpoint struct {
	Path string
}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	path := e.Path
	if path == "" {
		path = "/api/analyze"
	}
	return "POST", path, e.handler
}

// RequiresInit is false so a missing provider surfaces as a 503 from the
// pipeline with an error kind, not from the init middleware.
func (e *AnalyzeEndpoint) RequiresInit() bool { return false }

// Doc describes the JSON responses. The multipart request body and the
// record schema are added by the OpenAPI builder.
func (e *AnalyzeEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:     "Classify and extract a document",
		Description: "Upload a résumé or ID card (PDF, JPG or PNG) and receive the validated record",
		Tags:        []string{"analyze"},
		Responses: map[int]string{
			200: "Validated record",
			400: "Missing document field or invalid mode",
			413: "Upload too large",
			415: "Unsupported file format",
			422: "Empty or unreadable file",
			502: "Oracle failed, answered malformed JSON or violated the record schema",
			503: "No oracle provider configured",
			504: "Deadline exceeded",
		},
	}
}

func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	controller := svcctx.ControllerFrom(ctx)
	if controller == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	cfg := svcctx.ConfigFrom(ctx)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	limit := cfg.MaxUploadBytes()
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", limit>>20))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	// Small forms stay in memory; larger files spill to disk and are
	// removed with the form.
	const maxMemory = 8 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", limit>>20))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[UploadField]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "missing form field: "+UploadField)
		return
	}
	fh := files[0]
	filename := filepath.Base(fh.Filename)

	if m := r.FormValue("mode"); m != "" {
		policy, err := pipeline.ParsePolicy(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c := *controller
		c.Policy = policy
		controller = &c
	}

	tempDir, err := scratchDir(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(tempDir)

	path, err := saveUpload(fh, tempDir, filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := controller.Process(ctx, path, filename)
	if err != nil {
		status, resp := classifyError(err)
		if logger := svcctx.LoggerFrom(ctx); logger != nil {
			logger.Warn("analyze failed",
				"request_id", providers.RequestIDFrom(ctx),
				"filename", filename,
				"status", status,
				"kind", resp.Kind,
				"error", err,
			)
		}
		writeJSON(w, status, resp)
		return
	}

	w.Header().Set(HeaderMode, string(res.Mode))
	writeJSON(w, http.StatusOK, res.Record)
}

// scratchDir creates the per-request directory under the home scratch
// path, or the system temp dir when no home is configured.
func scratchDir(ctx context.Context) (string, error) {
	if h := svcctx.HomeFrom(ctx); h != nil {
		return h.NewScratchDir("upload-*")
	}
	dir, err := os.MkdirTemp("", "intake-upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, nil
}

// saveUpload copies the uploaded file into dir, keeping its extension.
func saveUpload(fh *multipart.FileHeader, dir, filename string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(dir, "upload"+strings.ToLower(filepath.Ext(filename)))
	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return destPath, nil
}

// classifyError maps a pipeline failure to an HTTP status and body.
func classifyError(err error) (int, AnalyzeErrorResponse) {
	resp := AnalyzeErrorResponse{Error: err.Error()}

	var xe *extraction.Error
	if errors.As(err, &xe) {
		resp.Mode = string(xe.Mode)
		resp.Violations = xe.Diagnostics
	}

	switch {
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		resp.Kind = "unsupported_format"
		return http.StatusUnsupportedMediaType, resp
	case errors.Is(err, pipeline.ErrEmptyOrUnreadable):
		resp.Kind = "empty_or_unreadable"
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, providers.ErrNotFound):
		resp.Kind = "oracle_unavailable"
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, context.DeadlineExceeded):
		resp.Kind = "timeout"
		return http.StatusGatewayTimeout, resp
	}
	if kind := extraction.KindName(err); kind != "" {
		resp.Kind = kind
		return http.StatusBadGateway, resp
	}
	resp.Kind = "internal"
	return http.StatusInternalServerError, resp
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	if e.Path != "" && e.Path != "/api/analyze" {
		return nil
	}
	var mode string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Upload a document to the server for classification and extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			values := map[string]string{}
			if mode != "" {
				values["mode"] = mode
			}
			var rec document.Record
			if err := client.PostFile(cmd.Context(), "/api/analyze", UploadField, args[0], values, &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Extraction mode: auto, text or vision")
	return cmd
}
