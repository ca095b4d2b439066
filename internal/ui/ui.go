package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/repositories"
	"github.com/ivymeadows/finmirror/internal/selection"
	"github.com/ivymeadows/finmirror/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EntityPickView ViewState = iota
	SyncRunView
	ResultView
	GroupView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.SyncEngine
	jobs         *repositories.JobStore
	groupStore   *repositories.GroupStore
	controller   *selection.Controller
	width        int
	height       int
	cursor       int
	picked       map[models.EntityKind]bool
	fullRefresh  bool
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	entityLines  []string
	job          *models.SyncJob
	groupList    list.Model
	groups       []models.Group
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	toggle  key.Binding
	refresh key.Binding
	groups  key.Binding
	enter   key.Binding
	back    key.Binding
	clear   key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		refresh: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "full refresh"),
		),
		groups: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "groups"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start sync"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear selection"),
		),
		restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "new sync"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.refresh, k.enter, k.groups},
		{k.back, k.clear, k.quit},
	}
}

// groupItem wraps [models.Group] to implement list.Item. Selection and
// conflict state render in the description since the delegate redraws on
// every update.
type groupItem struct {
	group      models.Group
	controller *selection.Controller
}

func (i groupItem) FilterValue() string { return i.group.Name }

func (i groupItem) Title() string {
	marker := "[ ]"
	if i.controller.IsSelected(i.group.ID) {
		marker = "[x]"
	}
	return fmt.Sprintf("%s %s", marker, i.group.Name)
}

func (i groupItem) Description() string {
	desc := fmt.Sprintf("%d accounts", len(i.group.AccountIDs))
	if i.controller.IsBlocked(i.group.ID) {
		desc = fmt.Sprintf("%s • blocked: shares accounts with a selected group", desc)
	}
	return desc
}

type groupsLoadedMsg struct {
	groups []models.Group
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type syncDoneMsg struct {
	job *models.SyncJob
	err error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.SyncEngine, jobs *repositories.JobStore, groups *repositories.GroupStore) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		ctx:        ctx,
		view:       EntityPickView,
		engine:     engine,
		jobs:       jobs,
		groupStore: groups,
		controller: selection.NewController(nil),
		picked:     defaultPick(),
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func defaultPick() map[models.EntityKind]bool {
	picked := make(map[models.EntityKind]bool, len(models.EntityRunOrder))
	for _, entity := range models.EntityRunOrder {
		picked[entity] = true
	}
	return picked
}

// Init starts the spinner; everything else loads on demand.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.groupList.Width() == 0 {
			m.groupList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case EntityPickView:
			return m.handlePickKeys(msg)
		case SyncRunView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case GroupView:
			return m.handleGroupKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case groupsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.groups = msg.groups
		m.controller.SetConflicts(selection.BuildConflictMap(msg.groups))
		m.refreshGroupList()
		m.view = GroupView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if m.progress.Phase == tasks.EntityDone {
			m.entityLines = append(m.entityLines, m.progress.Message)
		}
		if m.progress.Phase == tasks.JobDone {
			return m, m.loadResult()
		}
		return m, m.waitForProgress()

	case syncDoneMsg:
		m.job = msg.job
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	if m.view == GroupView {
		var cmd tea.Cmd
		m.groupList, cmd = m.groupList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case EntityPickView:
		return m.renderPick()
	case SyncRunView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	case GroupView:
		return m.renderGroups()
	default:
		return ""
	}
}

func (m *Model) handlePickKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(models.EntityRunOrder)-1 {
			m.cursor++
		}
	case " ":
		entity := models.EntityRunOrder[m.cursor]
		m.picked[entity] = !m.picked[entity]
	case "f":
		m.fullRefresh = !m.fullRefresh
	case "g":
		return m, m.fetchGroups()
	case "enter":
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		// Quitting the view does not cancel the job; it keeps running and
		// stays queryable through the history commands.
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = EntityPickView
		m.job = nil
		m.err = nil
		m.entityLines = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleGroupKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = EntityPickView
		return m, nil
	case "c":
		m.controller.Clear()
		m.refreshGroupList()
		return m, nil
	case " ":
		if item, ok := m.groupList.SelectedItem().(groupItem); ok {
			m.controller.Toggle(item.group.ID)
			m.refreshGroupList()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.groupList, cmd = m.groupList.Update(msg)
	return m, cmd
}

func (m *Model) refreshGroupList() {
	items := make([]list.Item, len(m.groups))
	for i, group := range m.groups {
		items[i] = groupItem{group: group, controller: m.controller}
	}
	m.groupList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.groupList.Title = "Account Groups"
	m.groupList.SetSize(m.width-4, m.height-8)
}

func (m *Model) fetchGroups() tea.Cmd {
	return func() tea.Msg {
		groups, err := m.groupStore.List()
		return groupsLoadedMsg{groups: groups, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	entities := make([]models.EntityKind, 0, len(m.picked))
	for _, entity := range models.EntityRunOrder {
		if m.picked[entity] {
			entities = append(entities, entity)
		}
	}

	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	job, err := m.engine.StartWithProgress(entities, m.fullRefresh, m.progressChan)
	if err != nil {
		m.err = err
		m.progressChan = nil
		return nil
	}

	m.job = job
	m.entityLines = nil
	m.view = SyncRunView
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncDoneMsg{job: m.job, err: m.err}
		}
		return progressUpdateMsg(<-m.progressChan)
	}
}

// loadResult reads the finished job back from the store so the result view
// shows the persisted record, not the in-flight copy.
func (m *Model) loadResult() tea.Cmd {
	jobID := m.job.ID
	return func() tea.Msg {
		job, err := m.jobs.Get(jobID)
		return syncDoneMsg{job: job, err: err}
	}
}

func (m *Model) renderPick() string {
	title := styles.title.Render("Sync Monarch Money data")

	var rows strings.Builder
	for i, entity := range models.EntityRunOrder {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		marker := "[ ]"
		if m.picked[entity] {
			marker = "[x]"
		}
		rows.WriteString(fmt.Sprintf("%s%s %s\n", cursor, marker, entity.Label()))
	}

	refresh := "incremental"
	if m.fullRefresh {
		refresh = styles.warn.Render("full refresh")
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.refresh, m.keys.enter, m.keys.groups, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\nMode: %s\n\n%s", title, rows.String(), refresh, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Sync in progress")

	var phase string
	switch m.progress.Phase {
	case tasks.JobStart:
		phase = "Starting..."
	case tasks.FetchEntity:
		phase = fmt.Sprintf("Fetching %s (%d/%d)", m.progress.Entity.Label(), m.progress.Step, m.progress.Total)
	case tasks.EntityDone:
		phase = fmt.Sprintf("Finished %s (%d/%d)", m.progress.Entity.Label(), m.progress.Step, m.progress.Total)
	default:
		phase = "Working..."
	}

	done := strings.Join(m.entityLines, "\n")
	if done != "" {
		done += "\n"
	}

	return fmt.Sprintf("%s\n%s%s %s\n\n%s", title, done, m.spinner.View(), phase,
		m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to retry, q to quit", m.err))
	}
	if m.job == nil {
		return styles.err.Render("No job record available\n\nPress r to retry, q to quit")
	}

	var title string
	switch m.job.Status {
	case models.StatusSuccess:
		title = styles.ok.Render("✓ Sync complete")
	case models.StatusPartial:
		title = styles.warn.Render("◐ Sync partially complete")
	default:
		title = styles.err.Render("✗ Sync failed")
	}

	var rows strings.Builder
	for _, entity := range m.job.Entities {
		result, ok := m.job.Results[entity]
		if !ok {
			continue
		}
		if result.Status == models.StatusFailed {
			rows.WriteString(fmt.Sprintf("  %s %s: %s\n", styles.err.Render("✗"), entity.Label(), result.Error))
			continue
		}
		rows.WriteString(fmt.Sprintf("  %s %s: %d stored, %d new\n", styles.ok.Render("✓"), entity.Label(), result.Count, result.New))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n%s", title, rows.String(), helpView)
}

func (m *Model) renderGroups() string {
	selected := m.controller.Selected()
	footer := fmt.Sprintf("%d groups selected", len(selected))

	helpKeys := []key.Binding{m.keys.toggle, m.keys.clear, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n%s", m.groupList.View(), styles.help.Render(footer), helpView)
}
