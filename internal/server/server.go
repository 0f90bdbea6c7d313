// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: New opens the configured storage,
// builds the widgets and the controller, and hands them to the handlers.
// Nothing else in the module constructs a collaborator for the controller.
//
// DEPENDENCY FLOW:
//
//	config.Storage → backends.OpenEntryStore → storage.EntryStore ─┐
//	mapview.View, form.State, listview.List, geo.Reported,         ├→ service.Controller
//	notify.Queue ──────────────────────────────────────────────────┘
//	service.Controller + widgets → handler.JournalHandler → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/geo"
	"github.com/sakif/moodmap/internal/handler"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/mapview"
	"github.com/sakif/moodmap/internal/middleware"
	"github.com/sakif/moodmap/internal/notify"
	"github.com/sakif/moodmap/internal/service"
	"github.com/sakif/moodmap/internal/storage"
	"github.com/sakif/moodmap/internal/storage/backends"
)

// Server owns the router, the controller and the storage connection. The
// storage is closed when the server stops.
type Server struct {
	router     *chi.Mux
	config     *config.Config
	logger     *slog.Logger
	store      *storage.EntryStore
	controller *service.Controller

	mapView  *mapview.View
	form     *form.State
	list     *listview.List
	position *geo.Reported
	notices  *notify.Queue
}

// New opens storage and wires the whole application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := backends.OpenEntryStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		mapView:  mapview.New(logger),
		form:     form.New(),
		list:     listview.New(),
		position: geo.NewReported(),
		notices:  notify.NewQueue(),
	}
	s.controller = service.NewController(service.Deps{
		Map:     s.mapView,
		Form:    s.form,
		List:    s.list,
		Store:   store,
		Locator: s.position,
		Alerter: s.notices,
		Logger:  logger,
		Settings: service.Settings{
			Zoom: cfg.Map.Zoom,
			Tiles: mapview.TileLayer{
				URL:         cfg.Map.TileURL,
				Attribution: cfg.Map.Attribution,
			},
		},
	})

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
// GET    /                          → journal page (HTML)
// GET    /static/*                  → static files
// GET    /healthz                   → liveness
// POST   /api/position              → browser geolocation answer
// POST   /api/map/click             → open the form at a location
// GET    /api/entries               → list entries
// POST   /api/entries               → submit the form
// POST   /api/entries/{id}/select   → pan to an entry and show its details
// POST   /api/reload                → start over from storage (page load)
// POST   /api/reset                 → clear storage and reload
// GET    /api/state                 → widget state for repainting
//
// Middleware runs in the order added: request id, real IP, recoverer, then
// our request logger.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	s.router.Get("/healthz", handler.HandleHealth)

	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, s.list, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pageHandler.HandleJournal)

	journal := handler.NewJournalHandler(handler.JournalDeps{
		Journal:  s.controller,
		Map:      s.mapView,
		Form:     s.form,
		List:     s.list,
		Position: s.position,
		Notices:  s.notices,
	}, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/position", journal.HandlePosition)
		r.Post("/map/click", journal.HandleMapClick)
		r.Get("/entries", journal.HandleList)
		r.Post("/entries", journal.HandleCreate)
		r.Post("/entries/{id}/select", journal.HandleSelect)
		r.Post("/reload", journal.HandleReload)
		r.Post("/reset", journal.HandleReset)
		r.Get("/state", journal.HandleState)
	})

	return nil
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Initialize loads the journal and starts waiting for the page to report the
// device position.
func (s *Server) Initialize(ctx context.Context) error {
	return s.controller.Initialize(ctx)
}

// Close stops the controller and closes storage.
func (s *Server) Close() error {
	s.controller.Close()
	return s.store.Close()
}

// Start initializes the journal, serves HTTP and shuts down gracefully on
// SIGINT/SIGTERM: stop accepting connections, give in-flight requests 30
// seconds, then close the controller and storage.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing storage", slog.String("error", err.Error()))
		}
	}()

	if err := s.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initializing journal: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("storage", s.config.Storage.Backend),
			slog.String("key", s.store.Key()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
