package forest

import (
	"math/rand/v2"
	"sort"
)

// node is either a split (left/right set) or a leaf carrying a class distribution.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	dist      []float64
}

func (n *node) leaf(x []float64) *node {
	for n.left != nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

type builder struct {
	X        [][]float64
	y        []int
	rng      *rand.Rand
	classes  int
	mtry     int
	maxDepth int
	minSplit int
}

func (b *builder) counts(idx []int) []int {
	c := make([]int, b.classes)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *builder) newLeaf(counts []int, total int) *node {
	dist := make([]float64, b.classes)
	for c, n := range counts {
		dist[c] = float64(n) / float64(total)
	}
	return &node{dist: dist}
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		g -= p * p
	}
	return g
}

func pure(counts []int) bool {
	nonZero := 0
	for _, n := range counts {
		if n > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func (b *builder) grow(idx []int, depth int) *node {
	counts := b.counts(idx)
	if pure(counts) || len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.newLeaf(counts, len(idx))
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.newLeaf(counts, len(idx))
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit tries mtry random features and returns the split with the largest
// Gini decrease. If none of them separates the samples, the remaining
// features are tried before giving up.
func (b *builder) bestSplit(idx []int, counts []int) (int, float64, bool) {
	width := len(b.X[0])
	order := b.rng.Perm(width)
	parent := gini(counts, len(idx))

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	for k, feature := range order {
		if k >= b.mtry && bestFeature >= 0 {
			break
		}
		threshold, gain, ok := b.splitOn(idx, feature, parent)
		if ok && gain > bestGain {
			bestFeature, bestThreshold, bestGain = feature, threshold, gain
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *builder) splitOn(idx []int, feature int, parent float64) (float64, float64, bool) {
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][feature] < b.X[sorted[j]][feature] })

	n := len(sorted)
	left := make([]int, b.classes)
	right := b.counts(sorted)
	bestThreshold, bestGain, found := 0.0, 0.0, false
	for k := 0; k < n-1; k++ {
		c := b.y[sorted[k]]
		left[c]++
		right[c]--
		cur, next := b.X[sorted[k]][feature], b.X[sorted[k+1]][feature]
		if cur == next {
			continue
		}
		nl, nr := k+1, n-k-1
		impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
		gain := parent - impurity
		if gain > bestGain {
			bestThreshold, bestGain, found = (cur+next)/2, gain, true
		}
	}
	return bestThreshold, bestGain, found
}
