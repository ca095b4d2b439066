// Package poll implements the client-side status poller for sync jobs.
//
// [Poller] is an explicit state machine (idle → polling → terminal) owned by
// whoever is watching a job: it ticks on a fixed interval, replaces its local
// job snapshot with the server's on every successful fetch, and stops itself
// once the job reaches a terminal status. Poll transport failures are
// transient by design: the poller marks its snapshot stale and retries on
// the next tick, because a failed status request says nothing about the job.
//
// Stopping the poller only stops the timer; the underlying job keeps
// running server-side.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// DefaultInterval is the fixed delay between status fetches.
const DefaultInterval = 2 * time.Second

// State is the poller's lifecycle state.
type State int

const (
	Idle State = iota
	Polling
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Terminal:
		return "terminal"
	default:
		return ""
	}
}

// Source is where the poller reads job state from, typically the dashboard
// API over HTTP. Both calls are read-only.
type Source interface {
	JobStatus(ctx context.Context, jobID string) (*models.SyncJob, error)
	History(ctx context.Context) ([]models.SyncJob, error)
}

// Update is one observation pushed to the poller's consumer.
type Update struct {
	State   State
	Job     *models.SyncJob
	History []models.SyncJob // refreshed when the job reaches a terminal state
	Stale   bool             // last fetch failed; Job may be out of date
}

// Poller tracks one sync job at a time.
type Poller struct {
	source   Source
	logger   *log.Logger
	interval time.Duration
	updates  chan Update

	mu    sync.Mutex
	state State
	job   *models.SyncJob
	stale bool
	stop  chan struct{}
}

// NewPoller creates an idle Poller. interval <= 0 uses [DefaultInterval].
func NewPoller(source Source, logger *log.Logger, interval time.Duration) *Poller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:   source,
		logger:   logger,
		interval: interval,
		updates:  make(chan Update, 16),
		state:    Idle,
	}
}

// Updates returns the channel observations are delivered on. Sends never
// block; a consumer that falls behind misses snapshots and should query
// State and Job directly when it catches up.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

// State returns the poller's current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Job returns the most recent job snapshot, nil when idle.
func (p *Poller) Job() *models.SyncJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job
}

// Stale reports whether the most recent fetch failed, meaning the snapshot
// from Job may lag the server.
func (p *Poller) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale
}

// Track starts polling the given job id. A locally-synthesized placeholder
// record (running, no results) is published immediately so consumers have
// something to render before the first poll response arrives. No-op when
// already polling, so a resumed view can't double up timers.
func (p *Poller) Track(jobID string, entities []models.EntityKind, fullRefresh bool) {
	p.mu.Lock()
	if p.state == Polling {
		p.mu.Unlock()
		return
	}

	placeholder := &models.SyncJob{
		ID:          jobID,
		Status:      models.StatusRunning,
		StartedAt:   time.Now().UTC(),
		Entities:    models.OrderEntities(entities),
		FullRefresh: fullRefresh,
	}
	p.state = Polling
	p.job = placeholder
	p.stale = false
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	p.publish(Update{State: Polling, Job: placeholder})
	go p.loop(jobID, stop)
}

// Resume checks history for an interrupted job: when the most recent entry
// is still running and no poll is active, polling resumes against it. The
// fetched history is returned either way so the caller can render it.
func (p *Poller) Resume(ctx context.Context) ([]models.SyncJob, error) {
	history, err := p.source.History(ctx)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 && history[0].Status == models.StatusRunning && p.State() != Polling {
		p.Track(history[0].ID, history[0].Entities, history[0].FullRefresh)
	}

	return history, nil
}

// Stop halts the poll timer. The tracked job, if any, continues server-side.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.state == Polling {
		p.state = Idle
	}
}

func (p *Poller) loop(jobID string, stop chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.tick(jobID) {
				return
			}
		}
	}
}

// tick performs one status fetch. Returns true once the job is terminal.
func (p *Poller) tick(jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	job, err := p.source.JobStatus(ctx, jobID)
	cancel()

	if err != nil {
		// Transient: the job is not assumed failed because a poll failed.
		p.mu.Lock()
		p.stale = true
		snapshot := p.job
		p.mu.Unlock()

		p.logger.Debug("status poll failed", "job_id", jobID, "error", err)
		p.publish(Update{State: Polling, Job: snapshot, Stale: true})
		return false
	}

	p.mu.Lock()
	p.stale = false
	p.job = job
	p.mu.Unlock()

	if !job.Status.Terminal() {
		p.publish(Update{State: Polling, Job: job})
		return false
	}

	// Terminal: stop ticking and refresh history so the finished job shows
	// up in the list immediately.
	p.mu.Lock()
	p.state = Terminal
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()

	historyCtx, cancel := context.WithTimeout(context.Background(), p.interval)
	history, histErr := p.source.History(historyCtx)
	cancel()
	if histErr != nil {
		p.logger.Debug("history refresh failed", "error", histErr)
	}

	p.publish(Update{State: Terminal, Job: job, History: history})
	return true
}

// publish sends without blocking; the channel is buffered and consumers
// that fall behind drop intermediate snapshots.
func (p *Poller) publish(update Update) {
	select {
	case p.updates <- update:
	default:
	}
}
