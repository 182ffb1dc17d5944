package orchestrator

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugawarayuuta/sonnet"
)

// writeFixture lays down a 6-block netlist shaped as two communities joined
// by one wire, and returns a ready-to-run Config rooted in a temp dir.
func writeFixture(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	// output.map and the partition file land here
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	ioPath := filepath.Join(dir, "io.xml")
	netPath := filepath.Join(dir, "netlist.xml")
	blocksPath := filepath.Join(dir, "blocks.txt")

	require.NoError(t, os.WriteFile(ioPath, []byte(
		`<ios><io type="UCIe" reach="1000"/></ios>`), 0o644))
	require.NoError(t, os.WriteFile(netPath, []byte(
		`<netlist>
			<net type="UCIe" block0="a0" block1="a1" bandwidth="2"/>
			<net type="UCIe" block0="a1" block1="a2" bandwidth="2"/>
			<net type="UCIe" block0="a0" block1="a2" bandwidth="2"/>
			<net type="UCIe" block0="b0" block1="b1" bandwidth="2"/>
			<net type="UCIe" block0="b1" block1="b2" bandwidth="2"/>
			<net type="UCIe" block0="b0" block1="b2" bandwidth="2"/>
			<net type="UCIe" block0="a2" block1="b0" bandwidth="1"/>
		</netlist>`), 0o644))
	require.NoError(t, os.WriteFile(blocksPath, []byte(
		"a0 1.0 1.0 7nm\na1 1.0 1.0 7nm\na2 1.0 1.0 7nm\n"+
			"b0 1.0 1.0 7nm\nb1 1.0 1.0 7nm\nb2 1.0 1.0 7nm\n"), 0o644))

	return Config{
		IoFile:        ioPath,
		NetlistFile:   netPath,
		BlocksFile:    blocksPath,
		Seed:          42,
		ChipletCounts: []int{1, 2},
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := writeFixture(t)
	cfg.ChipletCounts = nil

	orch, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 6, orch.Hypergraph().NumVertices())
	assert.Equal(t, 7, orch.Hypergraph().NumHyperedges())
	assert.Equal(t, []string{"a0", "a1", "a2", "b0", "b1", "b2"}, orch.BlockNames())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, orch.ChipletCounts())
	assert.Equal(t, float32(1.2), orch.cfg.UBFactor)
	assert.Equal(t, "7nm", orch.cfg.Tech)
	assert.Equal(t, float32(0.1), orch.cfg.Separation)

	// The id → name map is written next to the working directory.
	_, statErr := os.Stat("output.map")
	assert.NoError(t, statErr)
}

func TestEffortScalesWithGraphSize(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	maxMoves, iters, boundary := orch.effort(false)
	assert.Equal(t, 3, maxMoves) // 50% of six vertices
	assert.Equal(t, 3, iters)
	assert.False(t, boundary)

	maxMoves, iters, boundary = orch.effort(true)
	assert.Equal(t, 6, maxMoves)
	assert.Equal(t, 10, iters)
	assert.False(t, boundary)
}

func TestGenerateCandidates(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	pool := orch.generateCandidates()
	require.NotEmpty(t, pool)

	origins := make(map[string]int)
	for _, c := range pool {
		origins[c.origin]++
		assert.Len(t, c.partition, 6)
		assert.LessOrEqual(t, c.numParts, 2)
	}
	assert.Equal(t, 1, origins["spectral"])
	assert.Equal(t, 1, origins["single"])
	assert.Equal(t, 1, origins["kwaycuts"])
}

func TestFilterCandidatesKeepsSmallPools(t *testing.T) {
	pool := []candidate{
		{origin: "a", cost: 1},
		{origin: "b", cost: 100},
	}
	assert.Equal(t, pool, filterCandidates(pool))
}

func TestFilterCandidatesDropsOutliers(t *testing.T) {
	pool := []candidate{
		{origin: "a", cost: 1.0},
		{origin: "b", cost: 1.1},
		{origin: "c", cost: 1.2},
		{origin: "d", cost: 1.05},
		{origin: "outlier", cost: 50.0},
	}
	kept := filterCandidates(pool)
	require.NotEmpty(t, kept)
	assert.GreaterOrEqual(t, len(kept), 3)
	for _, c := range kept {
		assert.NotEqual(t, "outlier", c.origin)
	}
}

func TestFilterCandidatesRelaxesToKeepMinimum(t *testing.T) {
	// Everything except the cheapest looks like an outlier; the thresholds
	// must relax instead of filtering the pool down to one candidate.
	pool := []candidate{
		{origin: "a", cost: 1.0},
		{origin: "b", cost: 40.0},
		{origin: "c", cost: 41.0},
		{origin: "d", cost: 42.0},
	}
	kept := filterCandidates(pool)
	assert.GreaterOrEqual(t, len(kept), 3)
}

func TestPartitionEndToEnd(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	result, err := orch.Partition()
	require.NoError(t, err)

	require.Len(t, result.Partition, 6)
	assert.GreaterOrEqual(t, result.NumParts, 1)
	assert.LessOrEqual(t, result.NumParts, 2)
	assert.True(t, result.Valid) // reach 1000 makes any placement feasible
	assert.Len(t, result.AspectRatios, result.NumParts)

	// The partition file holds one id per line for every block.
	raw, err := os.ReadFile(cfg.NetlistFile + ".cpart." + strconv.Itoa(result.NumParts))
	require.NoError(t, err)
	saved, err := ReadPartitionFile(cfg.NetlistFile + ".cpart." + strconv.Itoa(result.NumParts))
	require.NoError(t, err)
	assert.Equal(t, result.Partition, saved)
	assert.NotEmpty(t, raw)
}

func TestPartitionPrefersCommunitySplit(t *testing.T) {
	cfg := writeFixture(t)
	cfg.ChipletCounts = []int{2} // force a real split
	orch, err := New(cfg)
	require.NoError(t, err)

	result, err := orch.Partition()
	require.NoError(t, err)

	// The only way to cut a single net is along the bridge, so the two
	// triangles must not be torn apart.
	require.Equal(t, 2, result.NumParts)
	p := result.Partition
	assert.Equal(t, p[0], p[1])
	assert.Equal(t, p[1], p[2])
	assert.Equal(t, p[3], p[4])
	assert.Equal(t, p[4], p[5])
	assert.NotEqual(t, p[0], p[3])
	assert.InDelta(t, 1.0, result.Cost, 1e-4)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// EVALUATION MODE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestReadPartitionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\n0\n\n1\n0\n1\n"), 0o644))

	partition, err := ReadPartitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, partition)
}

func TestReadPartitionFileBadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\nnope\n"), 0o644))

	_, err := ReadPartitionFile(path)
	assert.Error(t, err)
}

func TestReadPartitionFileRejectsNegativeID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "negative.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\n-1\n"), 0o644))

	_, err := ReadPartitionFile(path)
	assert.ErrorIs(t, err, ErrNegativeID)
}

func TestEvaluatePartitionNegativeID(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	// A negative id must surface as an error, never reach the cost model.
	path := filepath.Join(t.TempDir(), "negative.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\n0\n0\n1\n1\n-1\n"), 0o644))

	require.NotPanics(t, func() {
		_, err = orch.EvaluatePartition(path)
	})
	assert.ErrorIs(t, err, ErrNegativeID)
}

func TestEvaluatePartition(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "manual.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\n0\n0\n1\n1\n1\n"), 0o644))

	result, err := orch.EvaluatePartition(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, result.Partition)
	assert.Equal(t, 2, result.NumParts)
	assert.Equal(t, "evaluated", result.Origin)
	assert.True(t, result.Valid)
	assert.Greater(t, result.Cost, float32(0)) // the bridge is always cut
}

func TestEvaluatePartitionSizeMismatch(t *testing.T) {
	cfg := writeFixture(t)
	orch, err := New(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "short.cpart")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\n"), 0o644))

	_, err = orch.EvaluatePartition(path)
	assert.ErrorIs(t, err, ErrPartitionSize)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PERSISTENCE AND REPORTING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestSaveAndLoadBestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	worse := &Result{Partition: []int{0, 1, 0, 1}, NumParts: 2, Cost: 9.5, Valid: false, Origin: "kwaycuts"}
	better := &Result{Partition: []int{0, 0, 1, 1}, NumParts: 2, Cost: 1.5, Valid: true, Origin: "spectral"}

	require.NoError(t, SaveRun(dbPath, "netlist.xml", 42, worse))
	require.NoError(t, SaveRun(dbPath, "netlist.xml", 42, better))
	require.NoError(t, SaveRun(dbPath, "other.xml", 42, worse))

	got, err := LoadBestRun(dbPath, "netlist.xml")
	require.NoError(t, err)
	assert.Equal(t, better.Partition, got.Partition)
	assert.Equal(t, better.Cost, got.Cost)
	assert.Equal(t, better.Origin, got.Origin)
	assert.True(t, got.Valid)
}

func TestLoadBestRunMissingNetlist(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, SaveRun(dbPath, "known.xml", 1, &Result{NumParts: 1, Origin: "single"}))

	_, err := LoadBestRun(dbPath, "unknown.xml")
	assert.Error(t, err)
}

func TestPartitionEncodingRoundTrip(t *testing.T) {
	cases := [][]int{nil, {0}, {0, 1, 2, 1, 0}}
	for _, partition := range cases {
		decoded, err := decodePartition(encodePartition(partition))
		require.NoError(t, err)
		assert.Equal(t, partition, decoded)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	cfg := Config{NetlistFile: "netlist.xml", Tech: "7nm", Seed: 42, UBFactor: 1.2}
	best := &Result{
		Partition: []int{0, 0, 1, 1},
		NumParts:  2,
		Cost:      1.5,
		Valid:     true,
		Origin:    "spectral",
	}
	refined := []Result{*best, {Origin: "kwaycuts", NumParts: 2, Cost: 3.0}}

	require.NoError(t, WriteReport(path, cfg, best, refined))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, sonnet.Unmarshal(raw, &report))
	assert.Equal(t, "netlist.xml", report["netlist"])
	assert.Equal(t, "spectral", report["origin"])
	assert.Len(t, report["candidates"], 2)
	assert.Len(t, report["partition"], 4)
}
