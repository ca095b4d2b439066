package selection

import (
	"sort"
	"sync"

	"github.com/ivymeadows/finmirror/internal/models"
)

// Controller holds the current multi-select set of group ids under conflict
// constraints. It starts empty; "everything selected" is never implied by an
// empty set, it must be built up by explicit toggles or a restored
// configuration.
type Controller struct {
	mu        sync.Mutex
	conflicts ConflictMap
	selected  map[string]bool
}

// NewController creates an empty selection governed by the given conflicts.
func NewController(conflicts ConflictMap) *Controller {
	if conflicts == nil {
		conflicts = ConflictMap{}
	}
	return &Controller{
		conflicts: conflicts,
		selected:  make(map[string]bool),
	}
}

// SetConflicts swaps in a freshly computed conflict map after the group
// collection changed. The current selection is left untouched.
func (c *Controller) SetConflicts(conflicts ConflictMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conflicts == nil {
		conflicts = ConflictMap{}
	}
	c.conflicts = conflicts
}

// Toggle flips groupID's membership in the selection. Deselection always
// succeeds: a group the user already picked must be removable no matter what
// it conflicts with. Selection is refused while a conflicting group is
// selected. Returns whether the selection changed.
func (c *Controller) Toggle(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected[groupID] {
		delete(c.selected, groupID)
		return true
	}
	if c.blocked(groupID) {
		return false
	}
	c.selected[groupID] = true
	return true
}

// IsBlocked reports whether selecting groupID is currently refused. An
// already-selected group is never blocked; self-state is checked before any
// conflict relation so the user can always undo their own choice.
func (c *Controller) IsBlocked(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked(groupID)
}

// blocked assumes c.mu is held.
func (c *Controller) blocked(groupID string) bool {
	if c.selected[groupID] {
		return false
	}
	for other := range c.conflicts[groupID] {
		if c.selected[other] {
			return true
		}
	}
	return false
}

// SelectConfig replaces the whole selection with the configuration's group
// ids, bypassing conflict checks. Saved configurations were conflict-free
// when saved; ids of since-deleted groups are kept and simply match nothing.
func (c *Controller) SelectConfig(config models.SavedConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = make(map[string]bool, len(config.GroupIDs))
	for _, id := range config.GroupIDs {
		c.selected[id] = true
	}
}

// Clear empties the selection.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]bool)
}

// IsSelected reports whether groupID is in the current selection.
func (c *Controller) IsSelected(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected[groupID]
}

// Selected returns the selected group ids, sorted for stable output.
func (c *Controller) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
