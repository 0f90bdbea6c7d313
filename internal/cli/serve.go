package cli

import (
	"github.com/spf13/cobra"

	"github.com/sakif/moodmap/internal/server"
)

// ServeOptions
type ServeOptions struct {
	Port int
}

func addServe(topLevel *cobra.Command, ro *RootOptions) {
	so := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal page",
		Example: `
moodmap serve --port 8080
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ro.load(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = so.Port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			srv, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return srv.Start()
		},
	}
	cmd.Flags().IntVarP(&so.Port, "port", "p", 8080, "Port to listen on.")

	topLevel.AddCommand(cmd)
}
