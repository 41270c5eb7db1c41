package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persisted resolution cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the resolution cache and health history",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withSession(func(_ context.Context, s *engine.Session) error {
		if err := s.ClearCache(); err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]bool{"cleared": true}, func(w io.Writer) {
			_, _ = fmt.Fprintln(w, "Cache cleared")
		})
	})
}
