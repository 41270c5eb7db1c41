package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
	"featuremap/internal/pyramid"
)

var pyramidReports engine.PyramidReports

var testPyramidCmd = &cobra.Command{
	Use:   "test-pyramid",
	Short: "Map test reports onto features into .feature_map/test-pyramid.yml",
	Long: `Count test outcomes and pending tests per feature for each pyramid level.
Reports may be a list of {id, status} examples or a list of
{name, assertionResults} suites.

Examples:
  featuremap test-pyramid --unit tmp/rspec.json --integration tmp/jest.json`,
	Args: cobra.NoArgs,
	RunE: runTestPyramid,
}

func init() {
	testPyramidCmd.Flags().StringVar(&pyramidReports.Unit, "unit", "", "Unit test report")
	testPyramidCmd.Flags().StringVar(&pyramidReports.Integration, "integration", "", "Integration test report")
	testPyramidCmd.Flags().StringVar(&pyramidReports.Regression, "regression", "", "Regression test report")
	testPyramidCmd.MarkFlagsOneRequired("unit", "integration", "regression")
	rootCmd.AddCommand(testPyramidCmd)
}

func runTestPyramid(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		built, err := s.TestPyramid(ctx, pyramidReports)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]interface{}{"features": built}, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "%-30s %12s %12s %12s\n", "FEATURE", "UNIT", "INTEGRATION", "REGRESSION")
			for _, name := range pyramid.Features(built) {
				p := built[name]
				_, _ = fmt.Fprintf(w, "%-30s %12s %12s %12s\n", name,
					countCell(p[pyramid.Unit]), countCell(p[pyramid.Integration]), countCell(p[pyramid.Regression]))
			}
		})
	})
}

func countCell(c pyramid.Count) string {
	if c.Pending == 0 {
		return fmt.Sprintf("%d", c.Count)
	}
	return fmt.Sprintf("%d (%dp)", c.Count, c.Pending)
}
