package cluster

import "sort"

// kdTree is a static 2-d tree over projected points. Leaves hold up to
// nodeSize points and are scanned linearly.
type kdTree struct {
	ids      []int
	xs, ys   []float64
	nodeSize int
}

func newKDTree(xs, ys []float64, nodeSize int) *kdTree {
	n := len(xs)
	t := &kdTree{
		ids:      make([]int, n),
		xs:       make([]float64, n),
		ys:       make([]float64, n),
		nodeSize: nodeSize,
	}
	copy(t.xs, xs)
	copy(t.ys, ys)
	for i := range t.ids {
		t.ids[i] = i
	}
	t.buildNodes(0, n-1, 0)
	return t
}

func (t *kdTree) buildNodes(start, end, axis int) {
	if end-start <= t.nodeSize {
		return
	}
	median := (start + end) / 2
	sort.Sort(rangeSorter{t: t, start: start, end: end, axis: axis})
	t.buildNodes(start, median-1, 1-axis)
	t.buildNodes(median+1, end, 1-axis)
}

// within returns the indices of all points at most r away from (qx, qy).
func (t *kdTree) within(qx, qy, r float64) []int {
	var result []int
	r2 := r * r
	stack := []int{0, len(t.ids) - 1, 0}

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= t.nodeSize {
			for i := left; i <= right; i++ {
				if sqDist(t.xs[i], t.ys[i], qx, qy) <= r2 {
					result = append(result, t.ids[i])
				}
			}
			continue
		}

		m := (left + right) / 2
		x, y := t.xs[m], t.ys[m]
		if sqDist(x, y, qx, qy) <= r2 {
			result = append(result, t.ids[m])
		}

		q, v := qx, x
		if axis == 1 {
			q, v = qy, y
		}
		if q-r <= v {
			stack = append(stack, left, m-1, 1-axis)
		}
		if q+r >= v {
			stack = append(stack, m+1, right, 1-axis)
		}
	}
	return result
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx, dy := ax-bx, ay-by
	return dx*dx + dy*dy
}

// rangeSorter orders t[start:end+1] along one axis, keeping ids and both
// coordinate slices aligned.
type rangeSorter struct {
	t          *kdTree
	start, end int
	axis       int
}

func (s rangeSorter) Len() int { return s.end - s.start + 1 }

func (s rangeSorter) Less(i, j int) bool {
	i, j = i+s.start, j+s.start
	if s.axis == 0 {
		return s.t.xs[i] < s.t.xs[j]
	}
	return s.t.ys[i] < s.t.ys[j]
}

func (s rangeSorter) Swap(i, j int) {
	i, j = i+s.start, j+s.start
	s.t.ids[i], s.t.ids[j] = s.t.ids[j], s.t.ids[i]
	s.t.xs[i], s.t.xs[j] = s.t.xs[j], s.t.xs[i]
	s.t.ys[i], s.t.ys[j] = s.t.ys[j], s.t.ys[i]
}
