package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			applied, err := s.app.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"applied": applied})
		}),
	}
}
