package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/model"
)

// AddOptions
type AddOptions struct {
	Type        string
	Description string
	Lat         float64
	Lng         float64
}

func addAdd(topLevel *cobra.Command, ro *RootOptions) {
	ao := &AddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a mood at a location",
		Example: `
moodmap add --type sad --lat 40.0 --lng -73.0 --description "Rainy commute"
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ro.load(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			at := model.Coords{Lat: ao.Lat, Lng: ao.Lng}

			// The map is centred on the configured position when there is
			// one, otherwise on the entry itself.
			device := at
			if cfg.Position.Set {
				device = model.Coords{Lat: cfg.Position.Latitude, Lng: cfg.Position.Longitude}
			}

			s, err := openSession(cmd.Context(), cfg, logger, device, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.mapView.Click(at); err != nil {
				return err
			}
			s.form.Fill(form.Values{Category: ao.Type, Description: ao.Description})
			e, err := s.ctrl.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if e == nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No entry created: %q is not a known mood.\n", ao.Type)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s logged at %s (%s)\n",
				e.Category.Icon(), e.Category.Title(), e.Coords, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ao.Type, "type", "t", string(model.Happy),
		"Mood: happy, sad, anxiety or depression.")
	cmd.Flags().StringVarP(&ao.Description, "description", "d", "",
		"What happened.")
	cmd.Flags().Float64Var(&ao.Lat, "lat", 0, "Latitude of the entry.")
	cmd.Flags().Float64Var(&ao.Lng, "lng", 0, "Longitude of the entry.")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	topLevel.AddCommand(cmd)
}
