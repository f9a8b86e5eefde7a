package cluster

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKDTree_WithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 500
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i], ys[i] = rng.Float64(), rng.Float64()
	}
	tree := newKDTree(xs, ys, 8)

	for q := 0; q < 50; q++ {
		qx, qy, r := rng.Float64(), rng.Float64(), rng.Float64()*0.2

		var want []int
		for i := range xs {
			if sqDist(xs[i], ys[i], qx, qy) <= r*r {
				want = append(want, i)
			}
		}
		got := tree.within(qx, qy, r)
		sort.Ints(got)

		assert.Equal(t, want, got)
	}
}

func TestKDTree_Empty(t *testing.T) {
	tree := newKDTree(nil, nil, 64)
	assert.Empty(t, tree.within(0.5, 0.5, 1))
}
