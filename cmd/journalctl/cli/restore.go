package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
)

func newRestoreCommand(s *session) *cobra.Command {
	var opts domain.RestoreOptions

	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Validate or restore a trip archive",
		Long:  "Validate a trip archive and report conflicts with --dry-run, or restore it as a new trip owned by --owner.",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			src, err := archive.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			sum, err := s.app.Restores.Restore(cmd.Context(), src, opts)
			if errors.Is(err, domain.ErrAlreadyImported) {
				_ = printJSON(cmd, sum)
				return errors.New("archive was already restored as trip " + sum.PreviousImportTripID + "; pass --force to restore it again")
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		}),
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate and report conflicts without writing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "restore an archive that was already imported")
	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "user that owns the restored trip (required unless --dry-run)")
	return cmd
}
