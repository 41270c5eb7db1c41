package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
	"featuremap/internal/export"
	"featuremap/internal/output"
	"featuremap/internal/scoring"
)

var (
	healthPromFile     string
	healthHistoryLimit int
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Score every feature into .feature_map/health.json",
	Long: `Collect metrics, read .feature_map/test-coverage.yml when present and score
each feature on test coverage, cyclomatic complexity and encapsulation.

Examples:
  featuremap health
  featuremap health --prom-file /var/lib/node_exporter/featuremap.prom`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

var healthHistoryCmd = &cobra.Command{
	Use:   "history <feature>",
	Short: "Show recorded overall health scores of a feature",
	Args:  cobra.ExactArgs(1),
	RunE:  runHealthHistory,
}

func init() {
	healthCmd.Flags().StringVar(&healthPromFile, "prom-file", "", "Also write Prometheus textfile gauges to this path")
	healthHistoryCmd.Flags().IntVar(&healthHistoryLimit, "limit", 20, "Maximum number of records")
	healthCmd.AddCommand(healthHistoryCmd)
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		doc, err := s.Health(ctx)
		if err != nil {
			return err
		}
		if healthPromFile != "" {
			exp := export.NewExporter()
			exp.Observe(doc.Features)
			if err := exp.WriteTextfile(healthPromFile); err != nil {
				return fmt.Errorf("writing %s: %w", healthPromFile, err)
			}
			s.Logger().Info("Prometheus textfile written", "path", healthPromFile)
		}
		return printResult(os.Stdout, doc, func(w io.Writer) {
			humanHealth(w, doc.Features)
		})
	})
}

func humanHealth(w io.Writer, features map[string]scoring.FeatureHealth) {
	rows := make([]output.HealthRow, 0, len(features))
	for name, h := range features {
		rows = append(rows, output.HealthRow{Feature: name, Overall: h.Overall})
	}
	output.SortHealthRows(rows)

	_, _ = fmt.Fprintf(w, "%-30s %8s %8s %8s %8s\n", "FEATURE", "OVERALL", "COVERAGE", "CC", "ENCAPS")
	for _, r := range rows {
		h := features[r.Feature]
		_, _ = fmt.Fprintf(w, "%-30s %8s %8s %8s %8s\n", r.Feature,
			output.FormatFloat(h.Overall),
			output.FormatFloat(h.TestCoverage.HealthScore),
			output.FormatFloat(h.CyclomaticComplexity.HealthScore),
			output.FormatFloat(h.Encapsulation.HealthScore))
	}
}

func runHealthHistory(cmd *cobra.Command, args []string) error {
	return withSession(func(_ context.Context, s *engine.Session) error {
		points, err := s.HealthHistory(args[0], healthHistoryLimit)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]interface{}{"feature": args[0], "history": points}, func(w io.Writer) {
			if len(points) == 0 {
				_, _ = fmt.Fprintf(w, "No health history for %s\n", args[0])
				return
			}
			for _, p := range points {
				_, _ = fmt.Fprintf(w, "%s  %8s  %s\n", p.RecordedAt, output.FormatFloat(p.Overall), p.RunID)
			}
		})
	})
}
