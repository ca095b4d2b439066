// Package selection implements account-group selection under conflict
// constraints: two groups that share an account would double-count it in
// any aggregate view, so they may not be selected together. Conflicts are
// derived from group membership on demand, never stored.
package selection

import (
	"sort"

	"github.com/ivymeadows/finmirror/internal/models"
)

// ConflictMap maps a group id to the set of other group ids that share at
// least one account with it. The relation is symmetric and irreflexive.
type ConflictMap map[string]map[string]bool

// BuildConflictMap derives the conflict relation for a group collection.
//
// It builds a reverse index from account id to owning groups in one pass,
// then unions each group's index entries. Runtime is linear in the total
// number of account references across all groups, so it stays cheap to
// recompute on every group change.
func BuildConflictMap(groups []models.Group) ConflictMap {
	owners := make(map[string][]string)
	for _, group := range groups {
		for _, accountID := range group.AccountIDs {
			owners[accountID] = append(owners[accountID], group.ID)
		}
	}

	conflicts := make(ConflictMap, len(groups))
	for _, group := range groups {
		conflicts[group.ID] = make(map[string]bool)
	}
	for _, group := range groups {
		for _, accountID := range group.AccountIDs {
			for _, other := range owners[accountID] {
				if other != group.ID {
					conflicts[group.ID][other] = true
				}
			}
		}
	}

	return conflicts
}

// InConflict reports whether groups a and b share at least one account.
func (m ConflictMap) InConflict(a, b string) bool {
	return m[a][b]
}

// Conflicts returns the ids conflicting with groupID, sorted for stable
// output. Unknown ids have no conflicts.
func (m ConflictMap) Conflicts(groupID string) []string {
	set := m[groupID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
