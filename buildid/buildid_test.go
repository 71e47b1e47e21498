package buildid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_StableWithinProcess(t *testing.T) {
	first := Compute()
	second := Compute()

	assert.Len(t, first.String(), Length)
	assert.Equal(t, first, second, "hash of the same binary must not change")
}

func TestRandom_Unique(t *testing.T) {
	a, b := Random(), Random()
	assert.Len(t, string(a), Length)
	assert.NotEqual(t, a, b)
}
