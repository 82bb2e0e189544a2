package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

//go:generate mockgen -source=grouprole.go -destination=mocks/role_provider.gen.go -package=mocks

// RoleProvider fetches a presenter's current group roles from the external
// identity provider.
type RoleProvider interface {
	GroupRoles(ctx context.Context, userID string) ([]types.GroupRole, error)
}

// resolveGroupRoles returns the allowlisted external-group members whose
// configured roles the presenter currently holds, in id order.
//
// The provider is called at most once and only when some allowlisted
// member is an external group. A failed call counts as "no roles".
func (s *AccessService) resolveGroupRoles(
	ctx context.Context,
	org types.Organization,
	allowed Allowlist,
	presented string,
) []string {
	if presented == "" || s.roles == nil {
		return nil
	}

	table := make(map[string][]string) // role id -> member ids
	for _, id := range allowed.MemberIDs() {
		m := org.Members[id]
		if m.Type != types.MemberExternalGroup {
			continue
		}
		for _, role := range m.GroupRoles {
			table[role] = append(table[role], id)
		}
	}
	if len(table) == 0 {
		return nil
	}

	roles, err := s.roles.GroupRoles(ctx, presented)
	if err != nil {
		s.metrics.RoleLookupFailed()
		s.logger.Warn(
			"group role lookup failed",
			slog.String("user_id", presented),
			slog.String("error", err.Error()),
		)
		return nil
	}

	matched := make(map[string]struct{})
	for _, r := range roles {
		for _, id := range table[r.RoleID] {
			m := org.Members[id]
			if m.GroupID != "" && m.GroupID != r.GroupID {
				continue
			}
			matched[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(matched))
	for id := range matched {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
