package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededRandomIsReproducible(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestRangesHold(t *testing.T) {
	for _, r := range []Random{New(), NewSeeded(7)} {
		for i := 0; i < 200; i++ {
			n := r.Intn(2)
			assert.True(t, n == 0 || n == 1)
			f := r.Float64()
			assert.GreaterOrEqual(t, f, 0.0)
			assert.Less(t, f, 1.0)
		}
		assert.Equal(t, 0, r.Intn(0))
	}
}
