package outline

import (
	"sort"

	"chalk-cli/internal/model"
)

// State holds at most one (id, type) selection and the set of expanded
// container ids. Selecting a container expands it; the reverse never holds.
// Structural mutations repair both through the coordinator.
type State struct {
	selID    string
	selType  model.EntityType
	expanded map[string]bool
}

func NewState() *State {
	return &State{expanded: map[string]bool{}}
}

func (s *State) Select(id string, typ model.EntityType) {
	s.selID = id
	s.selType = typ
	if typ.Container() && id != "" {
		s.expanded[id] = true
	}
}

func (s *State) Selection() (string, model.EntityType, bool) {
	if s.selID == "" {
		return "", "", false
	}
	return s.selID, s.selType, true
}

func (s *State) IsSelected(id string, typ model.EntityType) bool {
	return s.selID != "" && s.selID == id && s.selType == typ
}

func (s *State) ClearSelection() {
	s.selID = ""
	s.selType = ""
}

func (s *State) ToggleExpand(id string) {
	if s.expanded[id] {
		delete(s.expanded, id)
	} else {
		s.expanded[id] = true
	}
}

// Expand pre-emptively expands a container, including just-created drafts
// that are not in the cache yet.
func (s *State) Expand(id string) {
	if id != "" {
		s.expanded[id] = true
	}
}

func (s *State) Collapse(id string) {
	delete(s.expanded, id)
}

func (s *State) IsExpanded(id string) bool {
	return s.expanded[id]
}

// ExpandedIDs returns the expansion set sorted, for persistence.
func (s *State) ExpandedIDs() []string {
	out := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *State) SetExpanded(ids []string) {
	s.expanded = make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			s.expanded[id] = true
		}
	}
}

// PurgeExpansion drops the given ids from the expansion set. Called with a
// deleted container and all its descendant container ids.
func (s *State) PurgeExpansion(ids ...string) {
	for _, id := range ids {
		delete(s.expanded, id)
	}
}

// RenameID rewrites a reconciled draft id in both the selection and the
// expansion set, in one step with the cache's own reconciliation.
func (s *State) RenameID(oldID, newID string) {
	if oldID == newID || newID == "" {
		return
	}
	if s.selID == oldID {
		s.selID = newID
	}
	if s.expanded[oldID] {
		delete(s.expanded, oldID)
		s.expanded[newID] = true
	}
}

// StateSnapshot is a full copy of selection and expansion, captured before a
// mutation that may alter either, restored verbatim on rollback.
type StateSnapshot struct {
	selID    string
	selType  model.EntityType
	expanded map[string]bool
}

func (s *State) SnapshotState() StateSnapshot {
	cp := make(map[string]bool, len(s.expanded))
	for id := range s.expanded {
		cp[id] = true
	}
	return StateSnapshot{selID: s.selID, selType: s.selType, expanded: cp}
}

func (s *State) RestoreState(snap StateSnapshot) {
	s.selID = snap.selID
	s.selType = snap.selType
	s.expanded = make(map[string]bool, len(snap.expanded))
	for id := range snap.expanded {
		s.expanded[id] = true
	}
}
