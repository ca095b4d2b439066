package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for syncing and group selection.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.provider == nil {
		return fmt.Errorf("%w: set provider.token in config.toml", shared.ErrMissingCredentials)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/finmirror-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	s := newStores(db)
	engine := r.newEngine(s)

	model := ui.NewModel(ctx, engine, s.jobs, s.groups)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
