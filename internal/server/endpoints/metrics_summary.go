package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/metrics"
	"github.com/jackzampolin/intake/internal/svcctx"
)

// MetricsSummaryResponse is the response for summary queries.
type MetricsSummaryResponse struct {
	Count            int     `json:"count"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	TotalTokens      int     `json:"total_tokens"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	SuccessCount     int     `json:"success_count"`
	ErrorCount       int     `json:"error_count"`
	AvgCostUSD       float64 `json:"avg_cost_usd"`
	AvgTokens        float64 `json:"avg_tokens"`
	AvgTimeSeconds   float64 `json:"avg_time_seconds"`

	ByMode         map[string]*metrics.DetailedStats `json:"by_mode,omitempty"`
	ByErrorType    map[string]int                    `json:"by_error_type,omitempty"`
	ByDocumentType map[string]int                    `json:"by_document_type,omitempty"`
	CostByModel    map[string]float64                `json:"cost_by_model,omitempty"`
	CostByProvider map[string]float64                `json:"cost_by_provider,omitempty"`
}

// filterFromQuery builds a metrics filter from request query params.
func filterFromQuery(q url.Values) (metrics.Filter, error) {
	f := metrics.Filter{
		RequestID: q.Get("request_id"),
		Mode:      q.Get("mode"),
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
	}
	if s := q.Get("success"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("invalid success value %q", s)
		}
		f.Success = &b
	}
	if s := q.Get("since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return f, fmt.Errorf("invalid since value %q", s)
		}
		f.After = time.Now().Add(-d)
	}
	return f, nil
}

// metricFilterParams documents the filters shared by the metrics endpoints.
func metricFilterParams() []api.ParamDoc {
	return []api.ParamDoc{
		{Name: "mode", Type: "string", Description: "Extraction mode", Enum: []string{"TEXT", "VISION"}},
		{Name: "provider", Type: "string", Description: "Filter by provider"},
		{Name: "model", Type: "string", Description: "Filter by model"},
		{Name: "since", Type: "string", Description: "Only calls newer than this duration, e.g. 1h"},
	}
}

// filterQuery is the client-side inverse of filterFromQuery.
func filterQuery(mode, provider, model, since string) string {
	q := url.Values{}
	for k, v := range map[string]string{"mode": mode, "provider": provider, "model": model, "since": since} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return false }

func (e *MetricsSummaryEndpoint) Group() string { return "metrics" }

func (e *MetricsSummaryEndpoint) Doc() api.OperationDoc {
	return api.OperationDoc{
		Summary:     "Oracle usage summary",
		Description: "Totals and averages over recorded oracle calls",
		Tags:        []string{"metrics"},
		Params:      metricFilterParams(),
		Responses:   map[int]string{200: "Summary", 400: "Invalid filter"},
	}
}

func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.MetricsFrom(r.Context())

	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := rec.Summary(f)
	resp := MetricsSummaryResponse{
		Count:            summary.Count,
		TotalCostUSD:     summary.TotalCostUSD,
		TotalTokens:      summary.TotalTokens,
		TotalTimeSeconds: summary.TotalTime.Seconds(),
		SuccessCount:     summary.SuccessCount,
		ErrorCount:       summary.ErrorCount,
		AvgCostUSD:       summary.AvgCostUSD,
		AvgTokens:        summary.AvgTokens,
		AvgTimeSeconds:   summary.AvgTimeSeconds,
	}
	if summary.Count > 0 {
		resp.ByErrorType = rec.CountByErrorType(f)
		resp.ByDocumentType = rec.CountByDocumentType(f)
		resp.CostByModel = rec.CostByModel(f)
		resp.CostByProvider = rec.CostByProvider(f)
		if f.Mode == "" {
			resp.ByMode = rec.ModeDetailedStats()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mode, provider, model, since string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Get oracle usage summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var resp MetricsSummaryResponse
			if err := client.Get(ctx, "/api/metrics/summary"+filterQuery(mode, provider, model, since), &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}

			fmt.Printf("Metrics Summary\n")
			fmt.Printf("===============\n")
			fmt.Printf("  Count:       %d\n", resp.Count)
			fmt.Printf("  Success:     %d\n", resp.SuccessCount)
			fmt.Printf("  Errors:      %d\n", resp.ErrorCount)
			for kind, n := range resp.ByErrorType {
				fmt.Printf("    %-18s %d\n", kind+":", n)
			}
			fmt.Println()
			fmt.Printf("  Total Cost:  $%.4f\n", resp.TotalCostUSD)
			fmt.Printf("  Avg Cost:    $%.6f\n", resp.AvgCostUSD)
			fmt.Println()
			fmt.Printf("  Total Tokens: %d\n", resp.TotalTokens)
			fmt.Printf("  Avg Tokens:   %.1f\n", resp.AvgTokens)
			fmt.Println()
			fmt.Printf("  Total Time:   %s\n", time.Duration(resp.TotalTimeSeconds*float64(time.Second)))
			fmt.Printf("  Avg Time:     %.2fs\n", resp.AvgTimeSeconds)
			for m, st := range resp.ByMode {
				fmt.Printf("\n  %s: %d calls, p50 %.2fs, p95 %.2fs\n", m, st.Count, st.LatencyP50, st.LatencyP95)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Filter by mode (TEXT or VISION)")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model")
	cmd.Flags().StringVar(&since, "since", "", "Only calls newer than this duration, e.g. 1h")

	return cmd
}
