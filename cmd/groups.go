package main

import (
	"context"
	"strings"

	"github.com/ivymeadows/finmirror/internal/selection"
	"github.com/urfave/cli/v3"
)

// GroupsList prints every group with its members and conflict set.
func (r *Runner) GroupsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	groups, err := newStores(db).groups.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(groups, true)
	}

	conflicts := selection.BuildConflictMap(groups)
	names := make(map[string]string, len(groups))
	for _, group := range groups {
		names[group.ID] = group.Name
	}

	for _, group := range groups {
		r.writePlain("%s (%d accounts)\n", group.Name, len(group.AccountIDs))
		if conflicting := conflicts.Conflicts(group.ID); len(conflicting) > 0 {
			labels := make([]string, len(conflicting))
			for i, id := range conflicting {
				labels[i] = names[id]
			}
			r.writePlain("  conflicts with: %s\n", strings.Join(labels, ", "))
		}
	}
	return nil
}

// GroupsSnapshot prints per-group balance totals from the mirrored data.
func (r *Runner) GroupsSnapshot(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	snapshots, err := newStores(db).groups.Snapshot()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshots, true)
	}

	for _, snapshot := range snapshots {
		r.writePlain("%-24s %12.2f (%d accounts)\n", snapshot.Name, snapshot.Total, snapshot.AccountCount)
	}
	return nil
}
