package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
	"featuremap/internal/snapshot"
)

var (
	validateAutocorrect bool
	validateDiff        bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every file has exactly one feature and the snapshot is current",
	Long: `Resolve the repository and run every consistency check: unassigned files,
files assigned in more than one way, overlapping assigned_globs and a stale
.feature_map/assignments.yml. All violations are reported together.

With --autocorrect the snapshot is rewritten whenever it changed, even when
other checks fail.

Examples:
  featuremap validate
  featuremap validate --autocorrect --diff`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateAutocorrect, "autocorrect", false, "Rewrite .feature_map/assignments.yml when it changed")
	validateCmd.Flags().BoolVar(&validateDiff, "diff", false, "Print the lines an autocorrect rewrite changed")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		result, err := s.Validate(ctx, engine.ValidateOptions{Autocorrect: validateAutocorrect})
		if result != nil {
			if !validateDiff {
				result.Diff = snapshot.Diff{}
			}
			if printErr := printResult(os.Stdout, result, func(w io.Writer) {
				humanValidate(w, result)
			}); printErr != nil {
				return printErr
			}
		}
		return err
	})
}

func humanValidate(w io.Writer, r *engine.ValidateResult) {
	_, _ = fmt.Fprintf(w, "%d files, %d assigned\n", r.Files, r.Assigned)
	if r.Written {
		_, _ = fmt.Fprintf(w, "Updated %s\n", r.SnapshotPath)
		_, _ = fmt.Fprint(w, r.Diff.String())
	}
}
