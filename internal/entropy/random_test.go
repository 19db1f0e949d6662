package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeedIsPositive(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Greater(t, NewSeed(), int64(0))
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, int64(42), Resolve(42))
	assert.NotZero(t, Resolve(0))
}

func TestSourceIsDeterministic(t *testing.T) {
	a, b := Source(7), Source(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}
