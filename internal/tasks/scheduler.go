package tasks

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
)

// Scheduler fires the sync engine on a configurable hour interval. Every
// fire goes through the job store's concurrency gate, so a tick that lands
// while a manual job is running is rejected and logged, never queued.
type Scheduler struct {
	engine *SyncEngine
	logger *log.Logger

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
}

// NewScheduler creates a Scheduler over the given engine. It starts
// disabled; call Reschedule to arm it.
func NewScheduler(engine *SyncEngine, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Scheduler{engine: engine, logger: logger}
}

// Reschedule replaces the current schedule. hours = 0 disables the
// scheduler; any running tick loop is stopped either way.
func (s *Scheduler) Reschedule(hours int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.interval = 0

	if hours <= 0 {
		s.logger.Info("auto-sync disabled")
		return
	}

	s.interval = time.Duration(hours) * time.Hour
	s.stop = make(chan struct{})
	go s.loop(s.interval, s.stop)
	s.logger.Info("auto-sync scheduled", "interval_hours", hours)
}

// Stop halts the scheduler. Safe to call when already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.interval = 0
}

// IntervalHours returns the currently armed interval, 0 when disabled.
func (s *Scheduler) IntervalHours() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.interval / time.Hour)
}

func (s *Scheduler) loop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fire()
		}
	}
}

// fire starts a full sync of every entity. A concurrency rejection means a
// manual job holds the slot; that is expected and only worth a debug line.
func (s *Scheduler) fire() {
	job, err := s.engine.Start(models.EntityRunOrder, false)
	if err != nil {
		if errors.Is(err, shared.ErrSyncInProgress) {
			s.logger.Debug("scheduled sync skipped: job already running")
			return
		}
		s.logger.Warn("scheduled sync failed to start", "error", err)
		return
	}
	s.logger.Info("scheduled sync started", "job_id", job.ID)
}
