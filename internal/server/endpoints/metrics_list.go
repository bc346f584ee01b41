package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/metrics"
	"github.com/jackzampolin/intake/internal/svcctx"
)

// ListMetricsResponse is the response for listing metrics.
type ListMetricsResponse struct {
	Metrics []metrics.Metric `json:"metrics"`
	Count   int              `json:"count"`
}

// ListMetricsEndpoint handles GET /api/metrics.
type ListMetricsEndpoint struct{}

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return false }

func (e *ListMetricsEndpoint) Group() string { return "metrics" }

func (e *ListMetricsEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:     "List metrics",
		Description: "List recorded oracle calls, newest first",
		Tags:        []string{"metrics"},
		Params: append(metricFilterParams(),
			api.ParamDoc{Name: "request_id", Type: "string", Description: "Filter by request ID"},
			api.ParamDoc{Name: "success", Type: "boolean", Description: "Only successful (true) or failed (false) calls"},
			api.ParamDoc{Name: "limit", Type: "integer", Description: "Maximum results (default 100)"},
		),
		Responses: map[int]string{200: "Recorded calls", 400: "Invalid filter"},
	}
}

func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	list := svcctx.MetricsFrom(r.Context()).List(f, limit)
	if list == nil {
		list = []metrics.Metric{}
	}
	writeJSON(w, http.StatusOK, ListMetricsResponse{
		Metrics: list,
		Count:   len(list),
	})
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var requestID, mode string
	var failed bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded oracle calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			q := url.Values{}
			if requestID != "" {
				q.Set("request_id", requestID)
			}
			if mode != "" {
				q.Set("mode", mode)
			}
			if failed {
				q.Set("success", "false")
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/metrics"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var resp ListMetricsResponse
			if err := client.Get(ctx, path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&requestID, "request", "", "Filter by request ID")
	cmd.Flags().StringVar(&mode, "mode", "", "Filter by mode (TEXT or VISION)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed calls")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results")

	return cmd
}

// GetMetricEndpoint handles GET /api/metrics/{id}.
type GetMetricEndpoint struct{}

func (e *GetMetricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/{id}", e.handler
}

func (e *GetMetricEndpoint) RequiresInit() bool { return false }

func (e *GetMetricEndpoint) Group() string { return "metrics" }

func (e *GetMetricEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:   "Get a metric",
		Tags:      []string{"metrics"},
		Responses: map[int]string{200: "The metric", 404: "Unknown metric ID"},
	}
}

func (e *GetMetricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := svcctx.MetricsFrom(r.Context()).Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("metric not found: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (e *GetMetricEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a recorded oracle call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var m metrics.Metric
			if err := client.Get(cmd.Context(), "/api/metrics/"+url.PathEscape(args[0]), &m); err != nil {
				return err
			}
			return api.Output(m)
		},
	}
}
