package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/moodmap/internal/model"
)

// ResetOptions
type ResetOptions struct {
	Yes bool
}

func addReset(topLevel *cobra.Command, ro *RootOptions) {
	rso := &ResetOptions{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every journal entry",
		Example: `
moodmap reset --yes
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rso.Yes {
				return fmt.Errorf("reset deletes every entry; pass --yes to confirm")
			}
			cfg, logger, err := ro.load(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			device := model.Coords{Lat: cfg.Position.Latitude, Lng: cfg.Position.Longitude}
			s, err := openSession(cmd.Context(), cfg, logger, device, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			n := len(s.ctrl.Entries())
			if err := s.ctrl.Reset(cmd.Context()); err != nil {
				return err
			}
			s.ctrl.Wait()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries.\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&rso.Yes, "yes", "y", false, "Confirm the reset.")

	topLevel.AddCommand(cmd)
}
