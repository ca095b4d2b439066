// Package tasks implements the background sync pipeline.
//
// The core abstraction is [SyncEngine], which executes one sync job: each
// requested entity is fetched from the provider and persisted as a unit, in
// canonical dependency order, with per-entity outcomes recorded as data
// rather than thrown. One entity failing never aborts its siblings; the
// job's terminal status is derived from the full result set afterwards.
//
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers. [Scheduler] re-runs the engine on a
// configurable hour interval through the same concurrency gate as manual
// triggers.
package tasks
