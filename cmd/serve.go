package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ivymeadows/finmirror/internal/server"
	"github.com/ivymeadows/finmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the dashboard API server with the scheduler armed from the
// stored interval setting. Stops on SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s := newStores(db)
	engine := r.newEngine(s)

	scheduler := tasks.NewScheduler(engine, r.logger)
	defer scheduler.Stop()

	hours, err := s.settings.SyncIntervalHours()
	if err != nil {
		return err
	}
	scheduler.Reschedule(hours)

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = int(cmd.Int("port"))
	}

	app := server.NewApp(server.AppOpts{
		Engine:    engine,
		Scheduler: scheduler,
		Jobs:      s.jobs,
		Records:   s.records,
		Groups:    s.groups,
		Settings:  s.settings,
		Logger:    r.logger,
		Host:      host,
		Port:      port,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Start(runCtx)
}
