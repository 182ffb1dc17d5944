package hypergraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func readFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	return string(raw), err
}

// buildTestGraph wires the 4-vertex fixture used across the refiner tests:
//
//	e0 = {0,1}  e1 = {1,2}  e2 = {2,3}  e3 = {0,1,2,3}
func buildTestGraph(t *testing.T) *Hypergraph {
	t.Helper()
	hg, err := New(1, 1,
		[][]int{{0, 1}, {1, 2}, {2, 3}, {0, 1, 2, 3}},
		[][]float32{{1}, {2}, {3}, {4}},
		[][]float32{{1}, {1}, {1}, {1}},
		[]float32{10, 10, 10, 10},
		[]float32{1, 1, 1, 1})
	require.NoError(t, err)
	return hg
}

func TestNewValidation(t *testing.T) {
	vw := [][]float32{{1}, {1}}
	ew := [][]float32{{1}}

	t.Run("edge count mismatch", func(t *testing.T) {
		_, err := New(1, 1, [][]int{{0, 1}, {0, 1}}, vw, ew, []float32{1}, []float32{1})
		assert.ErrorIs(t, err, ErrEdgeCount)
	})
	t.Run("reach count mismatch", func(t *testing.T) {
		_, err := New(1, 1, [][]int{{0, 1}}, vw, ew, nil, []float32{1})
		assert.ErrorIs(t, err, ErrReachCount)
	})
	t.Run("io size count mismatch", func(t *testing.T) {
		_, err := New(1, 1, [][]int{{0, 1}}, vw, ew, []float32{1}, nil)
		assert.ErrorIs(t, err, ErrIoSizeCount)
	})
	t.Run("vertex out of range", func(t *testing.T) {
		_, err := New(1, 1, [][]int{{0, 7}}, vw, ew, []float32{1}, []float32{1})
		assert.ErrorIs(t, err, ErrVertexRange)
	})
}

func TestDualCSR(t *testing.T) {
	hg := buildTestGraph(t)

	assert.Equal(t, 4, hg.NumVertices())
	assert.Equal(t, 4, hg.NumHyperedges())

	assert.Equal(t, []int{0, 1}, hg.Vertices(0))
	assert.Equal(t, []int{0, 1, 2, 3}, hg.Vertices(3))

	// Vertex 1 sits on e0, e1 and the clique edge e3.
	assert.ElementsMatch(t, []int{0, 1, 3}, hg.Edges(1))
	assert.ElementsMatch(t, []int{2, 3}, hg.Edges(3))
}

func TestNeighbors(t *testing.T) {
	hg := buildTestGraph(t)

	// The clique edge makes everyone a neighbor of everyone.
	assert.Equal(t, []int{1, 2, 3}, hg.Neighbors(0))
	assert.Equal(t, []int{0, 2, 3}, hg.Neighbors(1))
}

func TestReachAndIoSizeSetters(t *testing.T) {
	hg := buildTestGraph(t)

	require.NoError(t, hg.SetReach(1, 42))
	assert.Equal(t, float32(42), hg.Reach(1))
	assert.ErrorIs(t, hg.SetReach(9, 1), ErrEdgeRange)

	require.NoError(t, hg.SetAllReaches([]float32{5, 5, 5, 5}))
	assert.Equal(t, float32(5), hg.Reach(3))
	assert.ErrorIs(t, hg.SetAllReaches([]float32{1}), ErrReachCount)

	require.NoError(t, hg.SetIoSize(0, 2.5))
	assert.Equal(t, float32(2.5), hg.IoSize(0))
	assert.ErrorIs(t, hg.SetIoSize(-1, 1), ErrEdgeRange)
}

func TestBlockBalanceBounds(t *testing.T) {
	hg := buildTestGraph(t)

	total := hg.TotalVertexWeights()
	require.Equal(t, []float32{10}, total)

	upper := hg.UpperBlockBalance(2, 5.0, []float32{0.5, 0.5})
	assert.InDelta(t, 10*(0.5+0.05), upper[0][0], 1e-5)
	assert.InDelta(t, 10*(0.5+0.05), upper[1][0], 1e-5)

	lower := hg.LowerBlockBalance(2, 5.0, []float32{0.5, 0.5})
	assert.InDelta(t, 10*(0.5-0.05), lower[0][0], 1e-5)

	// A base below the slack clamps at zero instead of going negative.
	clamped := hg.LowerBlockBalance(1, 10.0, []float32{0.05})
	assert.Equal(t, float32(0), clamped[0][0])
}

func TestNetlistFileRoundTrip(t *testing.T) {
	hg := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "coarse.hgr")

	require.NoError(t, hg.WriteNetlistFile(path))
	back, err := ReadNetlistFile(path, 1, 1, -1, 1)
	require.NoError(t, err)

	assert.Equal(t, hg.NumVertices(), back.NumVertices())
	assert.Equal(t, hg.NumHyperedges(), back.NumHyperedges())
	for e := 0; e < hg.NumHyperedges(); e++ {
		assert.Equal(t, hg.Vertices(e), back.Vertices(e))
		assert.Equal(t, hg.Reach(e), back.Reach(e))
	}
	for v := 0; v < hg.NumVertices(); v++ {
		assert.Equal(t, hg.VertexWeights(v)[0], back.VertexWeights(v)[0])
	}
}

func TestReadNetlistFileDropsDuplicateEdges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.hgr")
	content := "3 3 1\n1 10 1 1 2\n1 10 1 1 2\n1 10 1 2 3\n"
	require.NoError(t, writeFile(path, content))

	hg, err := ReadNetlistFile(path, 1, 1, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, hg.NumHyperedges())
}

func TestReadNetlistFileKeepsDistinctEdges(t *testing.T) {
	// {0,5} and {3,4} share a sum of squares; the mixed hash must keep both.
	path := filepath.Join(t.TempDir(), "distinct.hgr")
	content := "2 6\n1 6\n4 5\n"
	require.NoError(t, writeFile(path, content))

	hg, err := ReadNetlistFile(path, 1, 1, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, hg.NumHyperedges())
	assert.Equal(t, []int{0, 5}, hg.Vertices(0))
	assert.Equal(t, []int{3, 4}, hg.Vertices(1))
}

func TestReadNetlistFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.hgr")
		require.NoError(t, writeFile(path, ""))
		_, err := ReadNetlistFile(path, 1, 1, -1, 1)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})
	t.Run("bad header", func(t *testing.T) {
		path := filepath.Join(dir, "header.hgr")
		require.NoError(t, writeFile(path, "3\n"))
		_, err := ReadNetlistFile(path, 1, 1, -1, 1)
		assert.ErrorIs(t, err, ErrBadHeader)
	})
	t.Run("truncated", func(t *testing.T) {
		path := filepath.Join(dir, "short.hgr")
		require.NoError(t, writeFile(path, "2 3\n1 2\n"))
		_, err := ReadNetlistFile(path, 1, 1, -1, 1)
		assert.ErrorIs(t, err, ErrShortFile)
	})
}

func TestReadXMLNetlist(t *testing.T) {
	dir := t.TempDir()
	ioPath := filepath.Join(dir, "io.xml")
	netPath := filepath.Join(dir, "netlist.xml")
	blocksPath := filepath.Join(dir, "blocks.txt")

	require.NoError(t, writeFile(ioPath,
		`<ios><io type="UCIe" reach="2.0"/><io type="GPIO" reach="5.5"/></ios>`))
	require.NoError(t, writeFile(netPath,
		`<netlist>
			<net type="UCIe" block0="cpu" block1="gpu" bandwidth="16"/>
			<net type="GPIO" block0="gpu" block1="dram" bandwidth="4"/>
			<net type="unknown" block0="cpu" block1="dram"/>
		</netlist>`))
	require.NoError(t, writeFile(blocksPath,
		"cpu 4.0 1.0 7nm\ngpu 9.0 2.0 7nm\nmalformed\n"))

	hg, names, err := ReadXMLNetlist(ioPath, netPath, blocksPath)
	require.NoError(t, err)

	// Ids follow first appearance in the net list.
	assert.Equal(t, []string{"cpu", "gpu", "dram"}, names)
	assert.Equal(t, 3, hg.NumVertices())
	assert.Equal(t, 3, hg.NumHyperedges())

	assert.Equal(t, float32(2.0), hg.Reach(0))
	assert.Equal(t, float32(5.5), hg.Reach(1))
	assert.Equal(t, float32(-1.0), hg.Reach(2)) // type missing from the io table

	assert.Equal(t, float32(16), hg.EdgeWeights(0)[0])
	assert.Equal(t, float32(1), hg.EdgeWeights(2)[0]) // zero bandwidth defaults to 1

	assert.Equal(t, float32(4.0), hg.VertexWeights(0)[0])
	assert.Equal(t, float32(1.0), hg.VertexWeights(2)[0]) // dram absent from blocks file
}

func TestReadXMLNetlistErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing io file path", func(t *testing.T) {
		_, err := ReadIoDefinitions("")
		assert.ErrorIs(t, err, ErrNoIoFile)
	})
	t.Run("empty netlist", func(t *testing.T) {
		ioPath := filepath.Join(dir, "io.xml")
		netPath := filepath.Join(dir, "net.xml")
		require.NoError(t, writeFile(ioPath, `<ios/>`))
		require.NoError(t, writeFile(netPath, `<netlist/>`))
		_, _, err := ReadXMLNetlist(ioPath, netPath, "unused")
		assert.ErrorIs(t, err, ErrNoNetlist)
	})
}

func TestWriteVertexMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.map")
	require.NoError(t, WriteVertexMap(path, []string{"cpu", "gpu"}))

	raw, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1 cpu\n2 gpu\n", raw)
}
