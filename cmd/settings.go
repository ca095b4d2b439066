package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// SettingsShow prints the current settings.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hours, err := newStores(db).settings.SyncIntervalHours()
	if err != nil {
		return err
	}

	if hours == 0 {
		return r.writePlain("recurring sync: disabled\n")
	}
	return r.writePlain("recurring sync: every %d hours\n", hours)
}

// SettingsInterval stores a new recurring sync interval. A running server
// picks the change up through its settings endpoint; this command only
// writes the value.
func (r *Runner) SettingsInterval(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hours := int(cmd.IntArg("hours"))
	if err := newStores(db).settings.SetSyncIntervalHours(hours); err != nil {
		return err
	}

	if hours == 0 {
		return r.writePlain("recurring sync disabled\n")
	}
	return r.writePlain("recurring sync set to every %d hours\n", hours)
}
