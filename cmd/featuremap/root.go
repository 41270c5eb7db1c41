package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"featuremap/internal/config"
	"featuremap/internal/engine"
	"featuremap/internal/version"
)

var (
	repoFlag    string
	verboseFlag int
	quietFlag   bool
	logFileFlag string
	formatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "featuremap",
	Short: "featuremap - feature attribution and health metrics",
	Long: `featuremap assigns every file of a repository to a product feature using
annotations, .feature marker files, assigned globs and feature definitions,
and rolls code metrics, test coverage and test results up to those features.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
}

func init() {
	rootCmd.SetVersionTemplate("featuremap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: working directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress console logging")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also append logs to this file")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "", "Output format (json, human); defaults to logging.format")
}

type runState struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	closer func()
}

var current *runState

// setupRun resolves the repository, loads its config and builds the logger
// shared by every command.
func setupRun(cmd *cobra.Command, _ []string) error {
	root := repoFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	if formatFlag == "" {
		formatFlag = cfg.Logging.Format
	}
	if _, err := parseFormat(formatFlag); err != nil {
		return err
	}

	logger, closer, err := newLogger(os.Stderr, verboseFlag, quietFlag, logFileFlag, cfg.Logging.Level)
	if err != nil {
		return err
	}
	current = &runState{root: root, cfg: cfg, logger: logger, closer: closer}
	cobra.OnFinalize(closer)
	return nil
}

// openSession creates the engine session for the current run. Callers close it.
func openSession() (*engine.Session, error) {
	return engine.New(engine.Options{
		Root:   current.root,
		Config: current.cfg,
		Logger: current.logger,
	})
}

// withSession runs fn against a fresh session and a context cancelled on
// SIGINT or SIGTERM.
func withSession(fn func(ctx context.Context, s *engine.Session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			current.logger.Warn("Failed to close cache", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, s)
}
