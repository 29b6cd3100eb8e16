package anomaly

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvgPathLength(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		expected float64
	}{
		{"empty", 0, 0},
		{"single point", 1, 0},
		{"pair", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, avgPathLength(tt.n))
		})
	}

	// c(n) grows with n and stays below log2-depth of a balanced tree.
	assert.Greater(t, avgPathLength(256), avgPathLength(16))
	assert.InDelta(t, 2*(0.5772156649+5.541)-2, avgPathLength(256), 0.5)
}

func TestAnomalyScore(t *testing.T) {
	// Depth equal to the expected average scores 0.5; shallower isolation
	// scores higher.
	c := avgPathLength(256)
	assert.InDelta(t, 0.5, anomalyScore(c, 256), 1e-9)
	assert.Greater(t, anomalyScore(1, 256), anomalyScore(c, 256))
	assert.Less(t, anomalyScore(2*c, 256), 0.5)
}

func TestBuildTree_ConstantDataIsLeaf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := [][]float64{{1, 1}, {1, 1}, {1, 1}}

	tree := buildTree(rng, data, []int{0, 1, 2}, 0, 8)

	require.NotNil(t, tree)
	assert.Nil(t, tree.left)
	assert.Equal(t, 3, tree.size)
}

func TestBuildTree_SeparatesOutlier(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := [][]float64{
		{0.1, 0}, {0.2, 0}, {0.15, 0}, {0.12, 0}, {0.18, 0},
		{0.11, 0}, {0.19, 0}, {0.14, 0},
		{10, 0}, // outlier
	}
	indices := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}

	tree := buildTree(rng, data, indices, 0, 8)

	outlierDepth := pathLength(tree, data[8], 0)
	typicalDepth := pathLength(tree, data[2], 0)
	assert.Less(t, outlierDepth, typicalDepth, "outlier should isolate in fewer splits")
}
