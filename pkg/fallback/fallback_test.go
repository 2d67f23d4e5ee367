package fallback

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, seeded(1))
	assert.ErrorIs(t, err, ErrNoTemplates)

	_, err = New([]string{"ok {query}", "no placeholder"}, seeded(1))
	assert.ErrorIs(t, err, ErrMissingPlaceholder)
	assert.Contains(t, err.Error(), "template 1")

	_, err = New([]string{"{query}"}, nil)
	assert.Error(t, err)

	s, err := New(DefaultTemplates, seeded(1))
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates, s.Templates())
}

func TestPick_SubstitutesQuery(t *testing.T) {
	s, err := New(DefaultTemplates, seeded(7))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		got := s.Pick("xyzzy nonsense")
		assert.Contains(t, got, "xyzzy nonsense")
		assert.NotContains(t, got, Placeholder)
	}
}

func TestPick_InjectedSource(t *testing.T) {
	templates := []string{"a:{query}", "b:{query}", "c:{query}"}
	s, err := New(templates, fixedSource(2))
	require.NoError(t, err)

	assert.Equal(t, "c:q", s.Pick("q"))
}

func TestPick_DeterministicForSeed(t *testing.T) {
	templates := []string{"a:{query}", "b:{query}", "c:{query}"}
	s1, err := New(templates, seeded(42))
	require.NoError(t, err)
	s2, err := New(templates, seeded(42))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, s1.Pick("q"), s2.Pick("q"))
	}
}

func TestPick_Uniform(t *testing.T) {
	templates := []string{"a:{query}", "b:{query}", "c:{query}"}
	s, err := New(templates, seeded(3))
	require.NoError(t, err)

	const draws = 30000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		counts[s.Pick("q")]++
	}

	require.Len(t, counts, len(templates))
	expected := float64(draws) / float64(len(templates))
	for tmpl, n := range counts {
		assert.InDelta(t, expected, float64(n), expected*0.05, tmpl)
	}
}

func TestTemplates_ReturnsCopy(t *testing.T) {
	s, err := New([]string{"x {query}"}, seeded(1))
	require.NoError(t, err)

	got := s.Templates()
	got[0] = "mutated"
	assert.Equal(t, "x q", s.Pick("q"))
}
