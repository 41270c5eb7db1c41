package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Write the documentation site configuration blob",
	Long: `Merge the feature definitions with every generated document under
.feature_map into the JavaScript blob read by the documentation site
(documentation_site.output).`,
	Args: cobra.NoArgs,
	RunE: runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		target, err := s.Docs(ctx)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]string{"path": target}, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "Wrote %s\n", target)
		})
	})
}
