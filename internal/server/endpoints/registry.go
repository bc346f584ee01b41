package endpoints

import (
	"github.com/jackzampolin/intake/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	eps := []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Document analysis; /analyze is kept for older clients
		&AnalyzeEndpoint{},
		&AnalyzeEndpoint{Path: "/analyze"},

		// Metrics endpoints
		&ListMetricsEndpoint{},
		&MetricsSummaryEndpoint{},
		&GetMetricEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
	}

	// API docs describe everything registered above.
	docs := &OpenAPIEndpoint{Endpoints: eps}
	return append(eps, docs, &DocsUIEndpoint{})
}
