package session

import "sort"

// SetGroups replaces the allow-list for id. Previous groups are discarded.
func (r *Registry) SetGroups(id string, groupIDs []string) {
	set := make(map[string]struct{}, len(groupIDs))
	for _, g := range groupIDs {
		set[g] = struct{}{}
	}

	r.mu.Lock()
	r.groups[id] = set
	r.mu.Unlock()
}

// HasGroup reports whether groupID is allow-listed for id.
func (r *Registry) HasGroup(id, groupID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[id][groupID]
	return ok
}

// Groups returns the allow-list for id, sorted.
func (r *Registry) Groups(id string) []string {
	r.mu.RLock()
	set := r.groups[id]
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// ClearGroups drops the allow-list for id.
func (r *Registry) ClearGroups(id string) {
	r.mu.Lock()
	delete(r.groups, id)
	r.mu.Unlock()
}
