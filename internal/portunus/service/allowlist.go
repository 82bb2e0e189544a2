package service

import (
	"sort"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Allowlist maps every member allowed at an access point to the access
// groups effective for that member: their own memberships followed by the
// organization's open groups, deduplicated.
type Allowlist map[string][]string

// MemberIDs returns the allowed member ids in a stable order.
func (a Allowlist) MemberIDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OpenGroups returns the ids of groups that are active, open to everyone
// and scoped to the whole organization or to locationID, ascending by
// priority.
func OpenGroups(org types.Organization, locationID string) []string {
	var open []types.AccessGroup
	for _, g := range org.AccessGroups {
		if g.Active && g.OpenToEveryone && g.AppliesTo(locationID) {
			open = append(open, g)
		}
	}
	sortGroups(open)

	ids := make([]string, len(open))
	for i, g := range open {
		ids[i] = g.ID
	}
	return ids
}

// ResolveAllowlist combines the access point's always-allowed members and
// the members of its always-allowed groups. Unknown member ids are ignored.
func ResolveAllowlist(org types.Organization, ap types.AccessPoint) Allowlist {
	open := OpenGroups(org, ap.LocationID)
	out := make(Allowlist)

	add := func(m types.Member) {
		if _, done := out[m.ID]; done {
			return
		}
		out[m.ID] = dedupe(m.AccessGroups, open)
	}

	for _, id := range ap.AlwaysAllowed.Members {
		if m, ok := org.Members[id]; ok {
			add(m)
		}
	}

	if len(ap.AlwaysAllowed.Groups) > 0 {
		allowedGroups := toSet(ap.AlwaysAllowed.Groups)
		for _, m := range org.Members {
			if intersects(m.AccessGroups, allowedGroups) {
				add(m)
			}
		}
	}

	return out
}

// effectiveGroups returns the active groups among ids that exist in org,
// ascending by priority. Missing ids contribute nothing.
func effectiveGroups(org types.Organization, ids []string) []types.AccessGroup {
	groups := make([]types.AccessGroup, 0, len(ids))
	for _, id := range ids {
		g, ok := org.AccessGroups[id]
		if !ok || !g.Active {
			continue
		}
		groups = append(groups, g)
	}
	sortGroups(groups)
	return groups
}

// sortGroups orders by ascending priority; ties break on id so the merge
// order never depends on map iteration.
func sortGroups(groups []types.AccessGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Priority != groups[j].Priority {
			return groups[i].Priority < groups[j].Priority
		}
		return groups[i].ID < groups[j].ID
	})
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, v := range l {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func toSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

func intersects(vals []string, set map[string]struct{}) bool {
	for _, v := range vals {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
