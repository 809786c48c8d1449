package anomaly

import (
	"errors"
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649015329

// IsolationForest scores rows by how quickly random axis-aligned splits
// isolate them. Fitting is deterministic for a given seed.
type IsolationForest struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64

	trees      []isolationTree
	sampleSize int
	offset     float64
}

// isolationTree is stored as a flat node slice; node 0 is the root
type isolationTree struct {
	nodes []itreeNode
}

type itreeNode struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	size      int
}

// NewIsolationForest configures a forest from the detection config
func NewIsolationForest(cfg Config) *IsolationForest {
	return &IsolationForest{
		Trees:         cfg.Trees,
		MaxSamples:    cfg.MaxSamples,
		Contamination: cfg.Contamination,
		Seed:          cfg.Seed,
	}
}

// Fit grows the forest on x and sets the decision offset so that the
// contamination share of training rows falls below zero.
func (f *IsolationForest) Fit(x [][]float64) error {
	n := len(x)
	if n == 0 {
		return errors.New("isolation forest: no rows to fit")
	}

	f.sampleSize = min(f.MaxSamples, n)
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(f.sampleSize), 2))))

	rng := rand.New(rand.NewSource(f.Seed))
	f.trees = make([]isolationTree, f.Trees)
	for t := range f.trees {
		treeRng := rand.New(rand.NewSource(rng.Int63()))
		sample := sampleWithoutReplacement(treeRng, n, f.sampleSize)
		tree := isolationTree{}
		tree.grow(x, sample, 0, maxDepth, treeRng)
		f.trees[t] = tree
	}

	f.offset = Percentile(f.ScoreSamples(x), 100*f.Contamination)
	return nil
}

// ScoreSamples returns the opposite of the anomaly score of each row:
// -2^(-E[h(x)]/c(sampleSize)). Lower is more anomalous.
func (f *IsolationForest) ScoreSamples(x [][]float64) []float64 {
	scores := make([]float64, len(x))
	if len(f.trees) == 0 {
		return scores
	}
	norm := averagePathLength(f.sampleSize)
	for i, row := range x {
		var depth float64
		for t := range f.trees {
			depth += f.trees[t].pathLength(row)
		}
		mean := depth / float64(len(f.trees))
		if norm == 0 {
			scores[i] = -1
			continue
		}
		scores[i] = -math.Pow(2, -mean/norm)
	}
	return scores
}

// DecisionFunction returns ScoreSamples shifted by the fitted offset.
// Negative values are outliers at the configured contamination.
func (f *IsolationForest) DecisionFunction(x [][]float64) []float64 {
	scores := f.ScoreSamples(x)
	for i := range scores {
		scores[i] -= f.offset
	}
	return scores
}

// Offset returns the fitted decision offset
func (f *IsolationForest) Offset() float64 {
	return f.offset
}

// grow appends the subtree for rows idx and returns its node index
func (t *isolationTree) grow(x [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) int {
	node := len(t.nodes)
	t.nodes = append(t.nodes, itreeNode{size: len(idx)})

	if len(idx) < 2 || depth >= maxDepth {
		t.nodes[node].leaf = true
		return node
	}

	// Candidate features are drawn in random order until a non-constant
	// one is found.
	nFeatures := len(x[idx[0]])
	feature := -1
	var lo, hi float64
	for _, fi := range rng.Perm(nFeatures) {
		lo, hi = x[idx[0]][fi], x[idx[0]][fi]
		for _, r := range idx[1:] {
			v := x[r][fi]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi > lo {
			feature = fi
			break
		}
	}
	if feature < 0 {
		t.nodes[node].leaf = true
		return node
	}

	threshold := lo + rng.Float64()*(hi-lo)
	if threshold >= hi {
		threshold = lo
	}

	var left, right []int
	for _, r := range idx {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	t.nodes[node].feature = feature
	t.nodes[node].threshold = threshold
	l := t.grow(x, left, depth+1, maxDepth, rng)
	r := t.grow(x, right, depth+1, maxDepth, rng)
	t.nodes[node].left = l
	t.nodes[node].right = r
	return node
}

// pathLength is the depth at which row reaches a leaf, plus the expected
// remaining depth of the leaf's unresolved samples.
func (t *isolationTree) pathLength(row []float64) float64 {
	i, depth := 0, 0
	for !t.nodes[i].leaf {
		n := t.nodes[i]
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(t.nodes[i].size)
}

// averagePathLength is the mean path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// sampleWithoutReplacement draws k distinct indices from [0, n)
func sampleWithoutReplacement(rng *rand.Rand, n, k int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
