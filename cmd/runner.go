package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/provider"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/ivymeadows/finmirror/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	provider   provider.Provider
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Provider   provider.Provider
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		provider:   opts.Provider,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the Runner's logger, used when the TUI takes over stderr.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openDB opens the configured database with migrations applied. The caller
// owns the handle.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// stores bundles the repositories commands work with.
type stores struct {
	jobs     *repositories.JobStore
	records  *repositories.RecordStore
	groups   *repositories.GroupStore
	settings *repositories.SettingStore
}

func newStores(db *sql.DB) stores {
	return stores{
		jobs:     repositories.NewJobStore(db),
		records:  repositories.NewRecordStore(db),
		groups:   repositories.NewGroupStore(db),
		settings: repositories.NewSettingStore(db),
	}
}

// newEngine builds a sync engine over the runner's provider and the given
// stores, using the configured timeouts and lookback windows.
func (r *Runner) newEngine(s stores) *tasks.SyncEngine {
	return tasks.NewSyncEngine(tasks.EngineOpts{
		Jobs:                 s.jobs,
		Records:              s.records,
		Provider:             r.provider,
		Logger:               r.logger,
		FetchTimeout:         r.config.Provider.FetchTimeout(),
		TxLookbackDays:       r.config.Sync.TransactionLookbackDays,
		BudgetLookbackMonths: r.config.Sync.BudgetLookbackMonths,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
