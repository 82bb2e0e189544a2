package service

import (
	"context"
	"log/slog"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// resolveIdentity matches the presented external user id against the
// allowlist. user members are matched through their verified linked
// external id, external-user members by their external id directly.
//
// A failed link lookup only drops the user members; external-user members
// still match.
func (s *AccessService) resolveIdentity(
	ctx context.Context,
	org types.Organization,
	allowed Allowlist,
	presented string,
) (string, bool) {
	if presented == "" {
		return "", false
	}

	ids := allowed.MemberIDs()

	var userIDs []string
	owner := make(map[string]string) // platform user id -> member id
	for _, id := range ids {
		m := org.Members[id]
		if m.Type == types.MemberUser && m.UserID != "" {
			userIDs = append(userIDs, m.UserID)
			if _, taken := owner[m.UserID]; !taken {
				owner[m.UserID] = id
			}
		}
	}

	// external id -> member id; first member in id order wins.
	byExternal := make(map[string]string)
	for _, id := range ids {
		m := org.Members[id]
		if m.Type == types.MemberExternalUser && m.ExternalID != "" {
			if _, taken := byExternal[m.ExternalID]; !taken {
				byExternal[m.ExternalID] = id
			}
		}
	}

	if len(userIDs) > 0 {
		links, err := s.directory.LinkedExternalIDs(ctx, userIDs)
		if err != nil {
			s.logger.Warn(
				"linked identity lookup failed",
				slog.String("organization_id", org.ID),
				slog.String("error", err.Error()),
			)
		}
		for userID, externalID := range links {
			memberID, ok := owner[userID]
			if !ok || externalID == "" {
				continue
			}
			if prev, taken := byExternal[externalID]; !taken || memberID < prev {
				byExternal[externalID] = memberID
			}
		}
	}

	memberID, ok := byExternal[presented]
	return memberID, ok
}
