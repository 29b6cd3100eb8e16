package anomaly

import (
	"math"
	"math/rand"
)

// Ensemble parameters, following the usual isolation-forest defaults: many
// shallow trees over small subsamples isolate outliers in few splits.
const (
	numTrees      = 100
	maxSampleSize = 256
)

// treeNode is one node of a random partition tree. Internal nodes split on
// a random feature at a random point; leaves record how many points they
// absorbed so path lengths can be extended by the expected depth of an
// unbuilt subtree.
type treeNode struct {
	feature int
	split   float64
	left    *treeNode
	right   *treeNode
	size    int // leaf only
}

// buildTree recursively partitions the rows identified by indices.
func buildTree(rng *rand.Rand, data [][]float64, indices []int, depth, maxDepth int) *treeNode {
	if len(indices) <= 1 || depth >= maxDepth {
		return &treeNode{size: len(indices)}
	}

	feature, lo, hi, ok := pickSplittableFeature(rng, data, indices)
	if !ok {
		// Every remaining point is identical; nothing left to isolate.
		return &treeNode{size: len(indices)}
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, idx := range indices {
		if data[idx][feature] < split {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	return &treeNode{
		feature: feature,
		split:   split,
		left:    buildTree(rng, data, left, depth+1, maxDepth),
		right:   buildTree(rng, data, right, depth+1, maxDepth),
	}
}

// pickSplittableFeature selects a random feature with spread among the given
// rows. Returns ok=false when all features are constant on the subset.
func pickSplittableFeature(rng *rand.Rand, data [][]float64, indices []int) (feature int, lo, hi float64, ok bool) {
	nf := len(data[indices[0]])
	order := rng.Perm(nf)
	for _, f := range order {
		fLo, fHi := data[indices[0]][f], data[indices[0]][f]
		for _, idx := range indices[1:] {
			v := data[idx][f]
			if v < fLo {
				fLo = v
			}
			if v > fHi {
				fHi = v
			}
		}
		if fHi > fLo {
			return f, fLo, fHi, true
		}
	}
	return 0, 0, 0, false
}

// pathLength walks a point down the tree and returns its isolation depth,
// extended at leaves by the average depth c(size) of the subtree that was
// not built.
func pathLength(node *treeNode, point []float64, depth float64) float64 {
	if node.left == nil {
		return depth + avgPathLength(node.size)
	}
	if point[node.feature] < node.split {
		return pathLength(node.left, point, depth+1)
	}
	return pathLength(node.right, point, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + 0.5772156649 // harmonic number approximation
		return 2*h - 2*float64(n-1)/float64(n)
	}
}

// anomalyScore converts an average isolation depth into the standard
// isolation-forest score 2^(-E[h]/c(sample)): near 1 for points separable in
// few splits, near 0.5 for typical points.
func anomalyScore(avgDepth float64, sampleSize int) float64 {
	c := avgPathLength(sampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -avgDepth/c)
}
