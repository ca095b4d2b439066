package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
)

// App assembles the dashboard API: router, middleware and one handler per
// endpoint family, over a shared set of stores and the sync engine.
type App struct {
	router *BasicRouter
	server *http.Server
	logger *log.Logger
}

// AppOpts carries the dependencies for [NewApp]. Scheduler may be nil when
// recurring syncs are disabled.
type AppOpts struct {
	Engine    *tasks.SyncEngine
	Scheduler *tasks.Scheduler
	Jobs      *repositories.JobStore
	Records   *repositories.RecordStore
	Groups    *repositories.GroupStore
	Settings  *repositories.SettingStore
	Logger    *log.Logger
	Host      string
	Port      int
}

// NewApp wires the handlers into a router and prepares the HTTP server.
func NewApp(opts AppOpts) *App {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(Recover(logger), RequestLogger(logger))

	router.Handler(NewSyncHandler(opts.Engine, opts.Jobs, logger))
	router.Handler(NewSettingsHandler(opts.Settings, opts.Scheduler, logger))
	router.Handler(NewGroupsHandler(opts.Groups, opts.Settings, logger))
	router.Handler(NewAccountsHandler(opts.Records))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	return &App{
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Router exposes the assembled handler, mainly for httptest.
func (a *App) Router() http.Handler {
	return a.router
}

// Start runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func (a *App) Start(ctx context.Context) error {
	errs := make(chan error, 1)

	go func() {
		a.logger.Info("dashboard server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("shutting down server")
		return a.server.Shutdown(shutdownCtx)
	}
}
