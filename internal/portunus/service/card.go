package service

import (
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/cardrange"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// matchCards returns the allowlisted card-set members holding any of the
// presented card numbers, in id order. Several members may claim the same
// number; all of them match.
func matchCards(org types.Organization, allowed Allowlist, presented []string) []string {
	if len(presented) == 0 {
		return nil
	}

	var out []string
	for _, id := range allowed.MemberIDs() {
		m := org.Members[id]
		if m.Type != types.MemberCardSet || len(m.CardNumbers) == 0 {
			continue
		}
		if cardrange.Parse(m.CardNumbers).MatchesAny(presented) {
			out = append(out, id)
		}
	}
	return out
}
