package pipeline

import (
	"sync"
	"unsafe"

	"github.com/couchcryptid/flowmap-core/internal/observability"
)

// sliceID identifies a slice by its backing array and length. Two values are
// equal only when they view the same elements, so a replaced dataset never
// matches a cached key. A nil slice has the zero id.
type sliceID struct {
	ptr unsafe.Pointer
	n   int
}

func idOf[T any](s []T) sliceID {
	return sliceID{ptr: unsafe.Pointer(unsafe.SliceData(s)), n: len(s)}
}

// memo caches the most recent result of one selector.
type memo[K comparable, V any] struct {
	name    string
	metrics *observability.Metrics

	mu    sync.Mutex
	valid bool
	key   K
	value V
}

func newMemo[K comparable, V any](name string, metrics *observability.Metrics) *memo[K, V] {
	return &memo[K, V]{name: name, metrics: metrics}
}

// get returns the cached value for key, computing it on a miss. compute may
// call other memos; the selector graph is acyclic so locks never nest in a
// loop.
func (m *memo[K, V]) get(key K, compute func() V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.key == key {
		m.metrics.DerivationCache.WithLabelValues(m.name, "hit").Inc()
		return m.value
	}
	m.metrics.DerivationCache.WithLabelValues(m.name, "miss").Inc()
	m.value = compute()
	m.key = key
	m.valid = true
	return m.value
}
