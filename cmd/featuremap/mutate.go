package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
)

var applyAssignmentsCmd = &cobra.Command{
	Use:   "apply-assignments <csv>",
	Short: "Annotate files listed as path,feature rows",
	Long: `Read a CSV of path,feature rows and add a feature annotation to each file
that does not resolve to a feature yet. Unknown features, missing files and
already assigned files are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runApplyAssignments,
}

var newFeatureGlobs []string

var newFeatureCmd = &cobra.Command{
	Use:   "new-feature <name>",
	Short: "Create a feature definition file",
	Long: `Write a TOML definition for a new feature under definitions_dir.

Examples:
  featuremap new-feature "Order Management"
  featuremap new-feature Search --glob 'app/search/**/*.rb'`,
	Args: cobra.ExactArgs(1),
	RunE: runNewFeature,
}

var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "Manage feature annotations in files",
}

var annotationsRemoveCmd = &cobra.Command{
	Use:   "remove <file>...",
	Short: "Remove feature annotations from files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnnotationsRemove,
}

func init() {
	newFeatureCmd.Flags().StringSliceVar(&newFeatureGlobs, "glob", nil, "Assigned glob (repeatable)")
	annotationsCmd.AddCommand(annotationsRemoveCmd)
	rootCmd.AddCommand(applyAssignmentsCmd)
	rootCmd.AddCommand(newFeatureCmd)
	rootCmd.AddCommand(annotationsCmd)
}

func runApplyAssignments(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		result, err := s.ApplyAssignments(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(os.Stdout, result, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "Applied %d assignments, skipped %d rows\n", result.Applied, result.Skipped)
		})
	})
}

func runNewFeature(cmd *cobra.Command, args []string) error {
	return withSession(func(_ context.Context, s *engine.Session) error {
		rel, err := s.NewFeature(args[0], newFeatureGlobs)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]string{"feature": args[0], "path": rel}, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "Created %s\n", rel)
		})
	})
}

func runAnnotationsRemove(cmd *cobra.Command, args []string) error {
	return withSession(func(_ context.Context, s *engine.Session) error {
		changed := []string{}
		for _, file := range args {
			ok, err := s.RemoveAnnotation(file)
			if err != nil {
				return err
			}
			if ok {
				changed = append(changed, file)
			}
		}
		return printResult(os.Stdout, map[string]interface{}{"changed": changed}, func(w io.Writer) {
			for _, f := range changed {
				_, _ = fmt.Fprintf(w, "Removed annotation from %s\n", f)
			}
			if len(changed) == 0 {
				_, _ = fmt.Fprintln(w, "No annotations found")
			}
		})
	})
}
