// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for the dashboard:
//  1. [EntityPickView] : Choose which entities to sync and the refresh mode
//  2. [SyncRunView] : Monitor real-time progress updates while a job runs
//  3. [ResultView] : Display per-entity outcomes from the persisted job record
//  4. [GroupView] : Toggle account-group selection under conflict constraints
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the SyncEngine, providing non-blocking status reporting during syncs.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
