package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkordes/travel-journal/internal/domain"
)

// operator returns the identity CLI commands act as. Without an owner the
// operator is an administrator and sees every trip.
func operator(owner string) domain.Identity {
	if owner == "" {
		return domain.Identity{UserID: "journalctl", Role: domain.RoleAdmin}
	}
	return domain.Identity{UserID: owner, Role: domain.RoleCreator}
}

func newExportCommand(s *session) *cobra.Command {
	var tripID, owner, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a trip archive to a file",
		Long:  "Write the trip, its entries, tags and media into a ZIP archive. The file only appears once the archive is complete.",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := s.app.Exports.Prepare(ctx, operator(owner), tripID)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = "trip-" + tripID + ".zip"
			}
			n, err := writeFileAtomic(path, func(w io.Writer) error {
				return s.app.Exports.Write(ctx, a, w)
			})
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]any{
				"tripId":     tripID,
				"file":       path,
				"bytes":      n,
				"entryCount": a.Meta.EntryCount,
				"mediaCount": a.Meta.MediaCount,
			})
		}),
	}

	cmd.Flags().StringVar(&tripID, "trip", "", "id of the trip to export")
	cmd.Flags().StringVar(&owner, "owner", "", "export as this user instead of as an administrator")
	cmd.Flags().StringVar(&out, "out", "", "output file (default trip-<id>.zip)")
	_ = cmd.MarkFlagRequired("trip")
	return cmd
}

// countingWriter counts bytes passed to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeFileAtomic runs fn against a temporary file next to path and renames
// it into place only when fn succeeds. It returns the bytes written.
func writeFileAtomic(path string, fn func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".journalctl-*.partial")
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := &countingWriter{w: tmp}
	if err := fn(cw); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move output into place: %w", err)
	}
	return cw.n, nil
}
