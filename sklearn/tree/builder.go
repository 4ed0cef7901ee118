package tree

import (
	"math"
	"math/rand"
	"sort"
)

// Values closer than this are treated as equal when placing a threshold.
const featureThreshold = 1e-7

type builder struct {
	tree        *DecisionTreeRegressor
	data        *Data
	rng         *rand.Rand
	features    []int
	importances []float64
	scratch     []int
}

type split struct {
	feature   int
	threshold float64
	proxy     float64
	found     bool
}

// build appends the subtree for idx and returns its root's node id.
func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	y := b.data.y
	n := len(idx)

	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	mean := sum / float64(n)
	var impurity float64
	for _, i := range idx {
		d := y[i] - mean
		impurity += d * d
	}
	impurity /= float64(n)

	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    mean,
		Impurity: impurity,
		NSamples: n,
	})

	if n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) || impurity <= 1e-14*(1+mean*mean) {
		return id
	}

	s := b.findSplit(idx, sum)
	if !s.found {
		return id
	}

	col := b.data.cols[s.feature]
	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if col[i] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return id
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &t.Nodes[id]
	node.Feature = s.feature
	node.Threshold = s.threshold
	node.Left = l
	node.Right = r

	decrease := float64(n)*impurity -
		float64(len(left))*t.Nodes[l].Impurity -
		float64(len(right))*t.Nodes[r].Impurity
	if decrease > 0 {
		b.importances[s.feature] += decrease
	}
	return id
}

// findSplit maximizes sumL²/nL + sumR²/nR, which is equivalent to
// minimizing the weighted child variance.
func (b *builder) findSplit(idx []int, total float64) split {
	best := split{proxy: math.Inf(-1)}
	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})
	limit := len(b.features)
	if k := b.tree.MaxFeatures; k > 0 && k < limit {
		limit = k
	}

	for _, f := range b.features[:limit] {
		var cand split
		if b.tree.Splitter == Random {
			cand = b.randomSplit(f, idx, total)
		} else {
			cand = b.bestSplit(f, idx, total)
		}
		if cand.found && cand.proxy > best.proxy {
			best = cand
		}
	}
	return best
}

func (b *builder) bestSplit(f int, idx []int, total float64) split {
	col := b.data.cols[f]
	y := b.data.y
	minLeaf := b.tree.MinSamplesLeaf

	b.scratch = append(b.scratch[:0], idx...)
	sorted := b.scratch
	sort.Slice(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

	n := len(sorted)
	if col[sorted[n-1]] <= col[sorted[0]]+featureThreshold {
		return split{}
	}

	best := split{feature: f, proxy: math.Inf(-1)}
	var sumL float64
	for i := 0; i < n-1; i++ {
		sumL += y[sorted[i]]
		lo, hi := col[sorted[i]], col[sorted[i+1]]
		if hi <= lo+featureThreshold {
			continue
		}
		nL := i + 1
		nR := n - nL
		if nL < minLeaf || nR < minLeaf {
			continue
		}
		sumR := total - sumL
		proxy := sumL*sumL/float64(nL) + sumR*sumR/float64(nR)
		if proxy > best.proxy {
			threshold := lo/2 + hi/2
			if threshold >= hi || math.IsInf(threshold, 0) {
				threshold = lo
			}
			best.threshold = threshold
			best.proxy = proxy
			best.found = true
		}
	}
	return best
}

func (b *builder) randomSplit(f int, idx []int, total float64) split {
	col := b.data.cols[f]
	y := b.data.y

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		lo = math.Min(lo, col[i])
		hi = math.Max(hi, col[i])
	}
	if hi <= lo+featureThreshold {
		return split{}
	}

	threshold := lo + b.rng.Float64()*(hi-lo)
	if threshold >= hi {
		threshold = lo
	}

	var sumL float64
	nL := 0
	for _, i := range idx {
		if col[i] <= threshold {
			sumL += y[i]
			nL++
		}
	}
	nR := len(idx) - nL
	if nL < b.tree.MinSamplesLeaf || nR < b.tree.MinSamplesLeaf {
		return split{}
	}
	sumR := total - sumL
	return split{
		feature:   f,
		threshold: threshold,
		proxy:     sumL*sumL/float64(nL) + sumR*sumR/float64(nR),
		found:     true,
	}
}
