package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisions_FirstDecisionWins(t *testing.T) {
	answers := []bool{false, true}
	d := NewDecisions(DeciderFunc(func(Ambiguity) Decision {
		keep := answers[0]
		answers = answers[1:]
		return Decision{Keep: keep}
	}))

	a := Ambiguity{Kind: AmbiguityCompatibility, Field: "compatible_printers_condition", Value: "x"}
	assert.False(t, d.Resolve(a).Keep)
	assert.False(t, d.Resolve(Ambiguity{Kind: AmbiguityCompatibility, Value: "y"}).Keep)
	assert.Len(t, answers, 1, "decider asked only once")

	rec := d.Recorded()
	require.Len(t, rec, 1)
	assert.Equal(t, a, rec[0].Ambiguity)
}

func TestDecisions_KindsAreIndependent(t *testing.T) {
	d := NewDecisions(StaticDecider{DiscardCompatibility: true})

	_, ok := d.Lookup(AmbiguitySupportStyle)
	assert.False(t, ok)

	proposed := SupportStyle{SupportType: "tree(auto)", SupportStyle: "default"}
	dec := d.Resolve(Ambiguity{Kind: AmbiguitySupportStyle, Proposed: proposed})
	assert.Equal(t, proposed, dec.Support)

	dec = d.Resolve(Ambiguity{Kind: AmbiguityCompatibility})
	assert.False(t, dec.Keep)

	assert.Len(t, d.Recorded(), 2)
}

func TestDecisions_SeparateBatchesDoNotShare(t *testing.T) {
	first := NewDecisions(StaticDecider{DiscardCompatibility: true})
	first.Resolve(Ambiguity{Kind: AmbiguityCompatibility})

	second := NewDecisions(nil)
	_, ok := second.Lookup(AmbiguityCompatibility)
	assert.False(t, ok)
	assert.True(t, second.Resolve(Ambiguity{Kind: AmbiguityCompatibility}).Keep)
}

func TestStaticDecider_ZeroValue(t *testing.T) {
	var s StaticDecider
	assert.True(t, s.Decide(Ambiguity{Kind: AmbiguityCompatibility}).Keep)

	proposed, ok := LookupSupportStyle("snug")
	require.True(t, ok)
	assert.Equal(t, proposed, s.Decide(Ambiguity{Kind: AmbiguitySupportStyle, Proposed: proposed}).Support)
}

func TestStripIllegalChars(t *testing.T) {
	assert.Equal(t, "ab", StripIllegalChars("a/b", "linux"))
	assert.Equal(t, "ab", StripIllegalChars("a\x00b", "darwin"))
	assert.Equal(t, "ab", StripIllegalChars("a\tb", "windows"))
	assert.Equal(t, `a:b`, StripIllegalChars("a:b", "freebsd"))
}

func TestSplitValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitValues(" a ,b;; c ,"))
	assert.Empty(t, SplitValues(" , ; "))
}
