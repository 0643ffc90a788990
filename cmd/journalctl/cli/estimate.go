package cli

import (
	"github.com/spf13/cobra"
)

func newEstimateCommand(s *session) *cobra.Command {
	var tripID string

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print the size a trip archive would have",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			est, err := s.app.Exports.Estimate(cmd.Context(), operator(""), tripID)
			if err != nil {
				return err
			}
			return printJSON(cmd, est)
		}),
	}

	cmd.Flags().StringVar(&tripID, "trip", "", "id of the trip to measure")
	_ = cmd.MarkFlagRequired("trip")
	return cmd
}
