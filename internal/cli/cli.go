// Package cli implements the moodmap command line: serve the journal page,
// or list, add and reset entries directly against the configured storage.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/geo"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/mapview"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/notify"
	"github.com/sakif/moodmap/internal/service"
	"github.com/sakif/moodmap/internal/storage"
	"github.com/sakif/moodmap/internal/storage/backends"
)

// RootOptions are the flags shared by every command.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
}

// New returns the root command.
func New() *cobra.Command {
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "moodmap",
		Short:         "A map-based mood journal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&ro.ConfigFile, "config", "",
		"Config file (default is ./moodmap.yaml or ~/.moodmap/moodmap.yaml).")
	cmd.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false,
		"Log at the configured level instead of warnings only.")

	addServe(cmd, ro)
	addList(cmd, ro)
	addAdd(cmd, ro)
	addReset(cmd, ro)
	return cmd
}

// load reads the configuration and builds the logger. Commands other than
// serve only log warnings unless --verbose is set.
func (ro *RootOptions) load(stderr io.Writer, quiet bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(ro.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.SlogLevel()
	if quiet && !ro.Verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// session is a headless journal: the same controller the server runs, with
// widgets nobody paints and a fixed device position.
type session struct {
	store   *storage.EntryStore
	ctrl    *service.Controller
	mapView *mapview.View
	form    *form.State
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, at model.Coords, alerts io.Writer) (*session, error) {
	store, err := backends.OpenEntryStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	s := &session{
		store:   store,
		mapView: mapview.New(logger),
		form:    form.New(),
	}
	s.ctrl = service.NewController(service.Deps{
		Map:     s.mapView,
		Form:    s.form,
		List:    listview.New(),
		Store:   store,
		Locator: geo.Fixed{Coords: at},
		Alerter: notify.Writer{W: alerts},
		Logger:  logger,
		Settings: service.Settings{
			Zoom:  cfg.Map.Zoom,
			Tiles: mapview.TileLayer{URL: cfg.Map.TileURL, Attribution: cfg.Map.Attribution},
		},
	})
	if err := s.ctrl.Initialize(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing journal: %w", err)
	}
	s.ctrl.Wait()
	return s, nil
}

func (s *session) Close() error {
	s.ctrl.Close()
	return s.store.Close()
}
