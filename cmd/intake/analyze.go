package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/extraction"
	"github.com/jackzampolin/intake/internal/metrics"
	"github.com/jackzampolin/intake/internal/pipeline"
	"github.com/jackzampolin/intake/internal/providers"
)

// cliRequestID tags oracle calls made by the local runner.
const cliRequestID = "cli"

var (
	analyzeMode    string
	analyzeVerbose bool
)

// analyzeOutput is the local runner's report.
type analyzeOutput struct {
	Record   any      `json:"record" yaml:"record"`
	Mode     string   `json:"mode" yaml:"mode"`
	Trace    []string `json:"trace" yaml:"trace"`
	Attempts int      `json:"attempts" yaml:"attempts"`
	Elapsed  string   `json:"elapsed" yaml:"elapsed"`
	CostUSD  float64  `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify and extract a document locally",
	Long: `Run the pipeline in-process on a local file and print the record.

No server is needed; the oracle provider comes from config.

Examples:
  intake analyze cv.pdf
  intake analyze cedula.jpg --mode vision
  intake analyze cv.pdf -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := providers.WithRequestID(cmd.Context(), cliRequestID)
		path := args[0]

		// Pipeline logs go to stderr so stdout stays parseable.
		rt, err := loadApp(os.Stderr)
		if err != nil {
			return err
		}

		controller := rt.services.Controller()
		if analyzeMode != "" {
			policy, err := pipeline.ParsePolicy(analyzeMode)
			if err != nil {
				return err
			}
			c := *controller
			c.Policy = policy
			controller = &c
		}

		res, err := controller.Process(ctx, path, "")
		if err != nil {
			return explainFailure(err)
		}

		if !analyzeVerbose {
			return api.Output(res.Record)
		}

		out := analyzeOutput{
			Record:   res.Record,
			Mode:     string(res.Mode),
			Attempts: len(res.Attempts),
			Elapsed:  res.Elapsed.Round(time.Millisecond).String(),
			CostUSD:  rt.services.Metrics.Summary(metrics.Filter{RequestID: cliRequestID}).TotalCostUSD,
		}
		for _, s := range res.Trace {
			out.Trace = append(out.Trace, string(s))
		}
		return api.Output(out)
	},
}

// explainFailure adds field diagnostics to schema violations.
func explainFailure(err error) error {
	var xe *extraction.Error
	if !errors.As(err, &xe) || len(xe.Diagnostics) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString(err.Error())
	for _, fe := range xe.Diagnostics {
		fmt.Fprintf(&b, "\n  - %s", fe.String())
	}
	return errors.New(b.String())
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "Extraction mode: auto, text or vision (default from config)")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Include mode, state trace and cost")

	rootCmd.AddCommand(analyzeCmd)
}
