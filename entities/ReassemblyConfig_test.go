package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOffsetUnit(t *testing.T) {
	u, err := ParseOffsetUnit("")
	assert.NoError(t, err)
	assert.Equal(t, OffsetUnitBytes, u)
	u, err = ParseOffsetUnit(" Octets8 ")
	assert.NoError(t, err)
	assert.Equal(t, OffsetUnitOctets8, u)
	assert.Equal(t, "octets8", u.String())
	_, err = ParseOffsetUnit("words")
	assert.Error(t, err)
}

func TestParseOverlapPolicy(t *testing.T) {
	for _, p := range []OverlapPolicy{OverlapLastWriteWins, OverlapFirstWriteWins, OverlapRejectConflict} {
		parsed, err := ParseOverlapPolicy(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	_, err := ParseOverlapPolicy("random")
	assert.Error(t, err)
	cfg := DefaultReassemblyConfig()
	assert.Equal(t, OverlapLastWriteWins, cfg.OverlapPolicy)
	assert.Equal(t, DefaultReassemblyTimeout, cfg.Timeout)
}
