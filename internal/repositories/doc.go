// Package repositories provides the sqlite persistence layer.
//
// Four stores, each a thin struct over *sql.DB:
//   - [JobStore] : sync job lifecycle records. Owns the "at most one running
//     job" invariant: creation is a single conditional insert, never a
//     read-then-write pair, so two near-simultaneous starts cannot both win.
//   - [RecordStore] : mirrored provider data (accounts, history, categories,
//     transactions, budgets) plus the per-entity sync log. All writes are
//     INSERT OR REPLACE keyed on the provider's external id, safe to re-run.
//   - [GroupStore] : account groups and membership rows.
//   - [SettingStore] : plain key/value settings and the saved selection
//     configurations serialized into them.
//
// Everything outside job creation is read-only with respect to the
// running-job invariant, so polling and history queries need no locking.
package repositories
