// Package models defines domain entities for the finmirror dashboard.
//
// The package contains two categories of types:
//
// 1. Sync domain: the background job lifecycle mirrored into sqlite
//   - [SyncJob] : One execution attempt covering a chosen set of entities
//   - [EntityResult] : Per-entity outcome of a fetch+persist cycle
//   - [EntityKind] : Enumeration of syncable data categories
//   - [EntitySyncState] : Last-successful-sync summary per entity
//
// 2. Selection domain: account groups and saved dashboard views
//   - [Group] : Named set of account ids with a display color
//   - [SavedConfig] : A saved multi-group selection
//
// Jobs transition running → success | partial | failed exactly once;
// terminal status and finished_at are set together and never mutated after.
package models
