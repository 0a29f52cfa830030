package politics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpponent(t *testing.T) {
	assert.Equal(t, Purple, Orange.Opponent())
	assert.Equal(t, Orange, Purple.Opponent())
}

func TestParseFaction(t *testing.T) {
	f, err := ParseFaction("Purple")
	require.NoError(t, err)
	assert.Equal(t, Purple, f)

	_, err = ParseFaction("Green")
	assert.Error(t, err)
	assert.False(t, Faction(7).Valid())
}

func TestRosterRotationWraps(t *testing.T) {
	r, err := NewRoster([]string{"A", "B", "C"})
	require.NoError(t, err)

	idx := 0
	for n := 1; n <= 10; n++ {
		idx = r.Next(idx)
		assert.Equal(t, n%3, idx)
	}
	assert.Equal(t, "B", r.Name(4))
	assert.Equal(t, "C", r.Name(-1))
}

func TestEmptyRoster(t *testing.T) {
	_, err := NewRoster(nil)
	assert.ErrorIs(t, err, ErrEmptyRoster)
}
