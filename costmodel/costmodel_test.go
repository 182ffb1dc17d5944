package costmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chipletpart/hypergraph"
)

func chainGraph(t *testing.T) *hypergraph.Hypergraph {
	t.Helper()
	// 0 -2- 1 -1- 2 -4- 3, uniform unit areas.
	hg, err := hypergraph.New(1, 1,
		[][]int{{0, 1}, {1, 2}, {2, 3}},
		[][]float32{{1}, {1}, {1}, {1}},
		[][]float32{{2}, {1}, {4}},
		[]float32{10, 10, 10},
		[]float32{1, 1, 1})
	require.NoError(t, err)
	return hg
}

func TestCutEvaluatorWeightedCut(t *testing.T) {
	hg := chainGraph(t)
	eval := NewCutEvaluator(hg)
	eval.ImbalanceWeight = 0

	assert.Equal(t, float32(0), eval.Cost([]int{0, 0, 0, 0}, nil, nil, nil, nil))

	// Splitting between 1 and 2 cuts only the middle net.
	assert.Equal(t, float32(1), eval.Cost([]int{0, 0, 1, 1}, nil, nil, nil, nil))

	// Isolating vertex 0 cuts the weight-2 net.
	assert.Equal(t, float32(2), eval.Cost([]int{1, 0, 0, 0}, nil, nil, nil, nil))

	// Alternating cuts everything.
	assert.Equal(t, float32(7), eval.Cost([]int{0, 1, 0, 1}, nil, nil, nil, nil))
}

func TestCutEvaluatorImbalanceTerm(t *testing.T) {
	hg := chainGraph(t)
	eval := NewCutEvaluator(hg)

	balanced := eval.Cost([]int{0, 0, 1, 1}, nil, nil, nil, nil)
	skewed := eval.Cost([]int{1, 0, 0, 0}, nil, nil, nil, nil)

	// Even split carries no imbalance penalty; 1-vs-3 does.
	assert.Equal(t, float32(1), balanced)
	assert.InDelta(t, 2+0.1*2, skewed, 1e-5)
}

func TestCutEvaluatorSinglePartition(t *testing.T) {
	hg := chainGraph(t)
	eval := NewCutEvaluator(hg)

	// One partition short-circuits the imbalance term.
	assert.Equal(t, float32(0), eval.Cost([]int{0, 0, 0, 0}, nil, nil, nil, nil))
}

func TestCutEvaluatorSkipsSingletonEdges(t *testing.T) {
	hg, err := hypergraph.New(1, 1,
		[][]int{{0}, {0, 1}},
		[][]float32{{1}, {1}},
		[][]float32{{5}, {1}},
		[]float32{10, 10},
		[]float32{1, 1})
	require.NoError(t, err)

	eval := NewCutEvaluator(hg)
	eval.ImbalanceWeight = 0
	assert.Equal(t, float32(1), eval.Cost([]int{0, 1}, nil, nil, nil, nil))
}

func TestCutEvaluatorUnweightedEdgeCountsAsOne(t *testing.T) {
	hg, err := hypergraph.New(1, 0,
		[][]int{{0, 1}},
		[][]float32{{1}, {1}},
		[][]float32{{}},
		[]float32{10},
		[]float32{1})
	require.NoError(t, err)

	eval := NewCutEvaluator(hg)
	eval.ImbalanceWeight = 0
	assert.Equal(t, float32(1), eval.Cost([]int{0, 1}, nil, nil, nil, nil))
}
