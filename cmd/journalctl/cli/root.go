// Package cli implements the journalctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkordes/travel-journal/internal/app"
	"github.com/pkordes/travel-journal/internal/config"
	"github.com/pkordes/travel-journal/internal/logging"
)

// VersionInfo identifies the build.
type VersionInfo struct {
	Version string
	Commit  string
}

// session holds the dependencies opened by the root command for a single
// invocation.
type session struct {
	logLevel string
	app      *app.App
	closeLog io.Closer
}

func (s *session) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}

	// stdout carries command output, so logs go to stderr.
	log, closer := logging.New(cfg.LogLevel, cfg.LogFile, os.Stderr)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		closer.Close()
		return err
	}
	s.app, s.closeLog = a, closer
	return nil
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
	}
	if s.closeLog != nil {
		s.closeLog.Close()
	}
}

// run adapts fn to cobra.RunE and releases the session when fn returns,
// whether or not it failed.
func (s *session) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer s.close()
		return fn(cmd, args)
	}
}

// NewRootCommand builds journalctl with every subcommand attached.
func NewRootCommand(info VersionInfo) *cobra.Command {
	s := &session{}

	cmd := &cobra.Command{
		Use:           "journalctl",
		Short:         "Travel journal archive tool",
		Long:          "Export, measure and restore trip archives, and migrate the journal database. Configuration is read from the same environment variables as the API server.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       fmt.Sprintf("%s.%s", info.Version, info.Commit),

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(
		newExportCommand(s),
		newEstimateCommand(s),
		newRestoreCommand(s),
		newMigrateCommand(s),
	)
	return cmd
}

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
