package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
)

var forFileCmd = &cobra.Command{
	Use:   "for-file <path>",
	Short: "Show the feature a file belongs to",
	Long: `Resolve a single file without building the full resolution cache.

Examples:
  featuremap for-file app/models/invoice.rb
  featuremap for-file app/models/invoice.rb --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runForFile,
}

var forFeatureCmd = &cobra.Command{
	Use:   "for-feature <name>",
	Short: "List the files and owning teams of a feature",
	Args:  cobra.ExactArgs(1),
	RunE:  runForFeature,
}

func init() {
	rootCmd.AddCommand(forFileCmd)
	rootCmd.AddCommand(forFeatureCmd)
}

func runForFile(cmd *cobra.Command, args []string) error {
	return withSession(func(_ context.Context, s *engine.Session) error {
		res, err := s.ForFile(args[0])
		if err != nil {
			return err
		}
		return printResult(os.Stdout, res, func(w io.Writer) {
			if res.Feature == nil {
				_, _ = fmt.Fprintf(w, "%s: no feature\n", res.File)
				return
			}
			_, _ = fmt.Fprintf(w, "%s: %s\n", res.File, res.Feature.Name)
			_, _ = fmt.Fprintf(w, "  Mapper: %s\n", res.Description)
			_, _ = fmt.Fprintf(w, "  Definition: %s\n", res.Feature.DefinitionPath)
		})
	})
}

func runForFeature(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		res, err := s.ForFeature(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(os.Stdout, res, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "%s (%d files)\n", res.Feature.Name, len(res.Files))
			if res.Feature.Description != "" {
				_, _ = fmt.Fprintf(w, "  %s\n", res.Feature.Description)
			}
			if len(res.Teams) > 0 {
				_, _ = fmt.Fprintf(w, "  Teams: %s\n", strings.Join(res.Teams, ", "))
			}
			for _, f := range res.Files {
				_, _ = fmt.Fprintf(w, "  - %s\n", f)
			}
		})
	})
}
