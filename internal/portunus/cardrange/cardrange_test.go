package cardrange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/cardrange"
)

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{
			name:   "inclusive range",
			tokens: []string{"3-5"},
			want:   []string{"3", "4", "5"},
		},
		{
			name:   "single element range",
			tokens: []string{"7-7"},
			want:   []string{"7"},
		},
		{
			name:   "literal passes through",
			tokens: []string{" 123456 "},
			want:   []string{"123456"},
		},
		{
			name:   "non conforming tokens are literal",
			tokens: []string{"A-B", "1-2-3", "10 - 12"},
			want:   []string{"A-B", "1-2-3", "10 - 12"},
		},
		{
			name:   "reversed range is empty",
			tokens: []string{"9-3"},
			want:   []string{},
		},
		{
			name:   "mixed and overlapping",
			tokens: []string{"1-3", "2", "3-4"},
			want:   []string{"1", "2", "3", "4"},
		},
		{
			name:   "blank tokens dropped",
			tokens: []string{"", "  "},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, keys(cardrange.Expand(tt.tokens)))
		})
	}
}

func TestExpand_RangeContainsExactlyItsIntegers(t *testing.T) {
	got := cardrange.Expand([]string{"1000-1099"})
	assert.Len(t, got, 100)
	assert.Contains(t, got, "1000")
	assert.Contains(t, got, "1099")
	assert.NotContains(t, got, "999")
	assert.NotContains(t, got, "1100")
}

func TestExpand_LargeNumbers(t *testing.T) {
	got := cardrange.Expand([]string{"99999999999999999998-99999999999999999999"})
	assert.ElementsMatch(t, []string{"99999999999999999998", "99999999999999999999"}, keys(got))
}

func TestExpand_WideRangeIsComplete(t *testing.T) {
	got := cardrange.Expand([]string{"1000000-1100000"})
	assert.Len(t, got, 100001)
	assert.Contains(t, got, "1050000")
	assert.NotContains(t, got, "1000000-1100000")
}

func TestSet_Contains(t *testing.T) {
	set := cardrange.Parse([]string{"1000000-1100000", "0-0", "9-3", " A-7 ", "0042"})

	tests := []struct {
		card string
		want bool
	}{
		{"1000000", true},
		{"1050000", true},
		{"1100000", true},
		{"999999", false},
		{"1100001", false},
		{"01050000", false},
		{"0", true},
		{"9-3", false},
		{"5", false},
		{"A-7", true},
		{"0042", true},
		{"42", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			assert.Equal(t, tt.want, set.Contains(tt.card))
		})
	}
}

func TestSet_HugeRangeMatchesWithoutEnumerating(t *testing.T) {
	set := cardrange.Parse([]string{"1-99999999999999999999"})
	assert.True(t, set.Contains("54321987654321"))
	assert.False(t, set.Contains("100000000000000000000"))
}

func TestSplitPresented(t *testing.T) {
	assert.Nil(t, cardrange.SplitPresented(""))
	assert.Equal(t, []string{"1", "22", "333"}, cardrange.SplitPresented(" 1, 22,,333 "))
}

func TestMatchesAny(t *testing.T) {
	set := cardrange.Parse([]string{"10-12"})
	assert.True(t, set.MatchesAny([]string{"5", "11"}))
	assert.False(t, set.MatchesAny([]string{"13"}))
	assert.False(t, set.MatchesAny(nil))
}
