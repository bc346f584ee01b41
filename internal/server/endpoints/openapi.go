package endpoints

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/document"
	"github.com/jackzampolin/intake/internal/pipeline"
	"github.com/jackzampolin/intake/version"
)

// OpenAPIVersion is the OpenAPI release the document targets. 3.1 embeds
// JSON Schema 2020-12, so the record schema is served unchanged.
const OpenAPIVersion = "3.1.0"

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

// OpenAPIEndpoint serves an OpenAPI document built from the registered
// endpoints, with the record schema the oracle is held to.
type OpenAPIEndpoint struct {
	Endpoints []api.Endpoint
}

func (e *OpenAPIEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/openapi.json", e.handler
}

func (e *OpenAPIEndpoint) RequiresInit() bool { return false }

func (e *OpenAPIEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, BuildOpenAPI(e.Endpoints))
}

func (e *OpenAPIEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Fetch the OpenAPI document from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var doc map[string]any
			if err := client.Get(cmd.Context(), "/openapi.json", &doc); err != nil {
				return err
			}
			if outputFile != "" {
				return api.OutputToFile(doc, outputFile)
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write to file (.json or .yaml)")
	return cmd
}

// BuildOpenAPI describes every documented endpoint. Endpoints without a
// Doc method are left out.
func BuildOpenAPI(eps []api.Endpoint) map[string]any {
	paths := map[string]any{}
	for _, ep := range eps {
		d, ok := ep.(api.Documented)
		if !ok {
			continue
		}
		method, path, _ := ep.Route()
		item, _ := paths[path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[path] = item
		}
		doc := d.Doc()
		var refs map[int]string
		if _, isAnalyze := ep.(*AnalyzeEndpoint); isAnalyze {
			refs = analyzeRefs(doc)
		}
		op := operation(path, doc, refs)
		if refs != nil {
			op["requestBody"] = analyzeRequestBody()
		}
		item[strings.ToLower(method)] = op
	}

	return map[string]any{
		"openapi": OpenAPIVersion,
		"info": map[string]any{
			"title":       "Intake API",
			"version":     version.GitRelease,
			"description": "Classifies résumés and ID cards and extracts validated records.",
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": map[string]any{
				"Record": document.Schema(),
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
						"kind":  map[string]any{"type": "string"},
					},
					"required": []string{"error"},
				},
				"AnalyzeError": analyzeErrorSchema(),
			},
		},
	}
}

// operation renders one OperationDoc. refs maps a status code to the schema
// of its JSON body; error codes default to Error.
func operation(path string, d api.OperationDoc, refs map[int]string) map[string]any {
	op := map[string]any{"summary": d.Summary}
	if d.Description != "" {
		op["description"] = d.Description
	}
	if len(d.Tags) > 0 {
		op["tags"] = d.Tags
	}

	var params []any
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		params = append(params, map[string]any{
			"name":     m[1],
			"in":       "path",
			"required": true,
			"schema":   map[string]any{"type": "string"},
		})
	}
	for _, p := range d.Params {
		schema := map[string]any{"type": p.Type}
		if len(p.Enum) > 0 {
			schema["enum"] = p.Enum
		}
		params = append(params, map[string]any{
			"name":        p.Name,
			"in":          "query",
			"description": p.Description,
			"schema":      schema,
		})
	}
	if len(params) > 0 {
		op["parameters"] = params
	}

	codes := make([]int, 0, len(d.Responses))
	for code := range d.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	responses := map[string]any{}
	for _, code := range codes {
		resp := map[string]any{"description": d.Responses[code]}
		ref, ok := refs[code]
		if !ok && code >= 400 {
			ref = "Error"
		}
		if ref != "" {
			resp["content"] = jsonContent("#/components/schemas/" + ref)
		}
		responses[strconv.Itoa(code)] = resp
	}
	op["responses"] = responses
	return op
}

// analyzeRefs points the success body at the record schema and pipeline
// failures at AnalyzeError.
func analyzeRefs(d api.OperationDoc) map[int]string {
	refs := map[int]string{}
	for code := range d.Responses {
		switch {
		case code == http.StatusOK:
			refs[code] = "Record"
		case code == http.StatusUnsupportedMediaType, code == http.StatusUnprocessableEntity, code >= 500:
			refs[code] = "AnalyzeError"
		}
	}
	return refs
}

func analyzeRequestBody() map[string]any {
	return map[string]any{
		"required": true,
		"content": map[string]any{
			"multipart/form-data": map[string]any{
				"schema": map[string]any{
					"type":     "object",
					"required": []string{UploadField},
					"properties": map[string]any{
						UploadField: map[string]any{
							"type":        "string",
							"format":      "binary",
							"description": "Document file: " + strings.Join(pipeline.SupportedExtensions, ", "),
						},
						"mode": map[string]any{
							"type": "string",
							"enum": []string{string(pipeline.PolicyAuto), string(pipeline.PolicyTextOnly), string(pipeline.PolicyVisionOnly)},
						},
					},
				},
			},
		},
	}
}

func analyzeErrorSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error": map[string]any{"type": "string"},
			"kind": map[string]any{
				"type": "string",
				"enum": []string{
					"unsupported_format", "empty_or_unreadable", "oracle_unavailable", "timeout",
					"oracle", "malformed_response", "schema_violation", "internal",
				},
			},
			"mode": map[string]any{"type": "string", "enum": []string{"TEXT", "VISION"}},
			"violations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field":   map[string]any{"type": "string"},
						"keyword": map[string]any{"type": "string"},
						"message": map[string]any{"type": "string"},
					},
				},
			},
		},
		"required": []string{"error", "kind"},
	}
}

func jsonContent(ref string) map[string]any {
	return map[string]any{
		"application/json": map[string]any{
			"schema": map[string]any{"$ref": ref},
		},
	}
}

// DocsUIEndpoint serves a Swagger UI page for /openapi.json.
type DocsUIEndpoint struct{}

func (e *DocsUIEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/docs", e.handler
}

func (e *DocsUIEndpoint) RequiresInit() bool { return false }

func (e *DocsUIEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const page = `<!DOCTYPE html>
<html>
<head>
  <title>Intake API</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '/openapi.json', dom_id: '#swagger-ui'});
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (e *DocsUIEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "docs",
		Hidden: true,
		Short:  "Print the API docs URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("Open in browser:", getServerURL()+"/docs")
			return nil
		},
	}
}
