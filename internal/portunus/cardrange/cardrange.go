// Package cardrange matches presented card numbers against the tokens held
// by card-set members.
//
// A token is either a literal card number or a "<start>-<end>" range. A
// range stands for every integer in [start, end] written in canonical
// decimal (no leading zeros); a reversed range stands for nothing.
package cardrange

import (
	"math/big"
	"regexp"
	"strings"
)

var rangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

type span struct {
	start, end *big.Int
}

func (s span) contains(n *big.Int) bool {
	return s.start.Cmp(n) <= 0 && n.Cmp(s.end) <= 0
}

// Set is a parsed list of tokens. Ranges are kept as bounds, so matching
// costs the same whatever their width.
type Set struct {
	literals map[string]struct{}
	spans    []span
}

// Parse reads member-held tokens. Blank tokens are dropped and anything
// that is not a range is kept as a trimmed literal.
func Parse(tokens []string) Set {
	s := Set{literals: make(map[string]struct{}, len(tokens))}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		m := rangePattern.FindStringSubmatch(tok)
		if m == nil {
			s.literals[tok] = struct{}{}
			continue
		}
		start, _ := new(big.Int).SetString(m[1], 10)
		end, _ := new(big.Int).SetString(m[2], 10)
		if start.Cmp(end) > 0 {
			continue
		}
		s.spans = append(s.spans, span{start: start, end: end})
	}
	return s
}

// Contains reports whether card is one of the set's numbers.
func (s Set) Contains(card string) bool {
	if _, ok := s.literals[card]; ok {
		return true
	}
	if len(s.spans) == 0 {
		return false
	}
	n, ok := canonicalNumber(card)
	if !ok {
		return false
	}
	for _, sp := range s.spans {
		if sp.contains(n) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any presented number is in the set.
func (s Set) MatchesAny(presented []string) bool {
	for _, p := range presented {
		if s.Contains(p) {
			return true
		}
	}
	return false
}

// canonicalNumber parses an all-digit string without leading zeros, the
// form range members are written in.
func canonicalNumber(card string) (*big.Int, bool) {
	if card == "" || (len(card) > 1 && card[0] == '0') {
		return nil, false
	}
	for i := 0; i < len(card); i++ {
		if card[i] < '0' || card[i] > '9' {
			return nil, false
		}
	}
	return new(big.Int).SetString(card, 10)
}

// Expand materializes every number the tokens stand for. Matching never
// needs this; use Parse and Contains. Ranges are enumerated in full, so
// callers own the size of what they pass.
func Expand(tokens []string) map[string]struct{} {
	s := Parse(tokens)
	out := make(map[string]struct{}, len(s.literals))
	for lit := range s.literals {
		out[lit] = struct{}{}
	}
	one := big.NewInt(1)
	for _, sp := range s.spans {
		for n := new(big.Int).Set(sp.start); n.Cmp(sp.end) <= 0; n.Add(n, one) {
			out[n.String()] = struct{}{}
		}
	}
	return out
}

// SplitPresented splits the comma-separated card numbers from a scan
// request, dropping blanks.
func SplitPresented(csv string) []string {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
