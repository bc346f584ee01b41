package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint defines both an HTTP route and its corresponding CLI command.
// This provides a single source of truth for API operations.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit returns true if this endpoint requires an oracle
	// provider to be registered.
	RequiresInit() bool

	// Command returns a Cobra command that calls this endpoint via HTTP,
	// or nil when the endpoint has no CLI form.
	// getServerURL is called at runtime to get the server URL (deferred evaluation).
	Command(getServerURL func() string) *cobra.Command
}

// Documented is implemented by endpoints that appear in the OpenAPI
// document served at /openapi.json.
type Documented interface {
	Doc() OperationDoc
}

// OperationDoc describes one HTTP operation.
type OperationDoc struct {
	Summary     string
	Description string
	Tags        []string
	Params      []ParamDoc
	Responses   map[int]string // status code -> description
}

// ParamDoc is a query parameter. Path parameters are derived from the route.
type ParamDoc struct {
	Name        string
	Type        string // "string", "integer" or "boolean"
	Description string
	Enum        []string
}
