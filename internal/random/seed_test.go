package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	require.NoError(t, err)
	b, err := NewSeed()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewRandFixedSeedIsDeterministic(t *testing.T) {
	r1 := NewRand(42)
	r2 := NewRand(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, r1.Intn(1000), r2.Intn(1000))
	}
}

func TestNewRandZeroSeed(t *testing.T) {
	assert.NotNil(t, NewRand(0))
}
