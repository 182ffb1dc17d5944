// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - K-Way Refinement
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: FM Refiner State & Move Primitives
//
// Description:
//   Holds the refiner's configuration and the primitives every pass is built
//   from: incremental balance and net-degree bookkeeping, balance legality,
//   cost-model gain evaluation, and the bit-exact move/rollback pair.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package refiner

import (
	"math/rand"

	"chipletpart/constants"
	"chipletpart/costmodel"
	"chipletpart/debug"
	"chipletpart/gainheap"
	"chipletpart/hypergraph"
	"chipletpart/utils"
)

// ChipletRefiner drives FM passes over one partition at a fixed part count.
// Instances are not safe for concurrent use; the orchestrator runs one per
// candidate.
type ChipletRefiner struct {
	numParts    int
	refineIters int
	maxMove     int

	refineItersDefault int
	maxMoveDefault     int

	boundaryFlag     bool
	floorplanInLoop  bool
	nonBoundaryRatio float32
	separation       float32

	evaluator  costmodel.Evaluator
	legacyCost float32

	techs        []string
	aspectRatios []float32
	xLocs        []float32
	yLocs        []float32

	posSeq []int
	negSeq []int

	seed int64
	rng  *rand.Rand

	warnedNoModel bool
	scratch       []int
}

// New builds a refiner for numParts partitions. A nil evaluator is allowed;
// every move then scores zero gain and a pass degenerates to a balance-legal
// shuffle, so callers normally wire the reference evaluator at minimum.
func New(numParts, refineIters, maxMove int, evaluator costmodel.Evaluator, seed int64) *ChipletRefiner {
	return &ChipletRefiner{
		numParts:           numParts,
		refineIters:        refineIters,
		maxMove:            maxMove,
		refineItersDefault: refineIters,
		maxMoveDefault:     maxMove,
		boundaryFlag:       true,
		nonBoundaryRatio:   constants.RandomNonBoundaryRatio,
		separation:         0.1,
		evaluator:          evaluator,
		seed:               seed,
		rng:                rand.New(rand.NewSource(utils.DeriveSeed(seed, "refine", 0))),
	}
}

// ─────────────────────────────── configuration ───────────────────────────────

func (c *ChipletRefiner) SetMaxMove(n int)        { c.maxMove = n }
func (c *ChipletRefiner) SetRefineIters(n int)    { c.refineIters = n }
func (c *ChipletRefiner) SetNumParts(n int)       { c.numParts = n }
func (c *ChipletRefiner) SetSeparation(s float32) { c.separation = s }

func (c *ChipletRefiner) SetBoundaryFlag(on bool)    { c.boundaryFlag = on }
func (c *ChipletRefiner) SetFloorplanInLoop(on bool) { c.floorplanInLoop = on }

// RestoreDefaultParameters undoes per-run effort overrides.
func (c *ChipletRefiner) RestoreDefaultParameters() {
	c.maxMove = c.maxMoveDefault
	c.refineIters = c.refineItersDefault
}

// SetTechArray fixes the per-partition technology labels the cost model sees.
func (c *ChipletRefiner) SetTechArray(techs []string) { c.techs = techs }
func (c *ChipletRefiner) SetAspectRatios(a []float32) { c.aspectRatios = a }
func (c *ChipletRefiner) SetXLocations(x []float32)   { c.xLocs = x }
func (c *ChipletRefiner) SetYLocations(y []float32)   { c.yLocs = y }

// ─────────────────────────────── bookkeeping ───────────────────────────────

// BlockBalance sums vertex weights per partition per dimension.
func (c *ChipletRefiner) BlockBalance(hg *hypergraph.Hypergraph, partition []int) [][]float32 {
	balance := make([][]float32, c.numParts)
	for p := range balance {
		balance[p] = make([]float32, hg.VertexDims())
	}
	for v, p := range partition {
		row := balance[p]
		for j, w := range hg.VertexWeights(v) {
			if j < len(row) {
				row[j] += w
			}
		}
	}
	return balance
}

// NetDegrees counts, per hyperedge, how many member vertices sit in each
// partition. Both incremental updates below keep this table exact.
func (c *ChipletRefiner) NetDegrees(hg *hypergraph.Hypergraph, partition []int) [][]int {
	degs := make([][]int, hg.NumHyperedges())
	for e := range degs {
		row := make([]int, c.numParts)
		for _, v := range hg.Vertices(e) {
			row[partition[v]]++
		}
		degs[e] = row
	}
	return degs
}

// ─────────────────────────────── cost model ───────────────────────────────

// GetCostFromScratch scores a complete partition through the evaluator,
// padding the technology and placement arrays up to the partition count so a
// candidate with more parts than configured still scores. Never errors; a
// missing evaluator scores zero.
func (c *ChipletRefiner) GetCostFromScratch(partition []int) float32 {
	if c.evaluator == nil {
		return 0
	}
	numParts := 0
	for _, p := range partition {
		if p+1 > numParts {
			numParts = p + 1
		}
	}
	techs := c.techs
	if len(techs) != numParts {
		padded := make([]string, numParts)
		n := copy(padded, techs)
		fill := constants.DefaultTech
		if len(techs) > 0 {
			fill = techs[0]
		}
		for i := n; i < numParts; i++ {
			padded[i] = fill
		}
		techs = padded
	}
	aspects := padFloats(c.aspectRatios, numParts, 1.0)
	xs := padFloats(c.xLocs, numParts, 0.0)
	ys := padFloats(c.yLocs, numParts, 0.0)
	return c.evaluator.Cost(partition, techs, aspects, xs, ys)
}

// singleMoveGain scores one hypothetical move as legacy cost minus the cost
// with the vertex relocated. Positive means the move improves the partition.
func (c *ChipletRefiner) singleMoveGain(partition []int, v, toPid int) float32 {
	if cap(c.scratch) < len(partition) {
		c.scratch = make([]int, len(partition))
	}
	c.scratch = c.scratch[:len(partition)]
	copy(c.scratch, partition)
	c.scratch[v] = toPid
	return c.legacyCost - c.GetCostFromScratch(c.scratch)
}

func padFloats(src []float32, n int, fill float32) []float32 {
	if len(src) == n {
		return src
	}
	out := make([]float32, n)
	m := copy(out, src)
	for i := m; i < n; i++ {
		out[i] = fill
	}
	return out
}

// ─────────────────────────────── move primitives ───────────────────────────────

// CheckVertexMoveLegality accepts a move only when the destination stays at
// or below its upper bound and the source stays at or above its lower bound
// on every weight dimension. Any dimension mismatch rejects the move.
func (c *ChipletRefiner) CheckVertexMoveLegality(hg *hypergraph.Hypergraph,
	v, toPid, fromPid int,
	balance, upper, lower [][]float32) bool {

	w := hg.VertexWeights(v)
	if len(w) != len(balance[toPid]) || len(w) != len(balance[fromPid]) ||
		len(balance[toPid]) != len(upper[toPid]) ||
		len(balance[fromPid]) != len(lower[fromPid]) {
		debug.DropMessage("refiner", "weight dimension mismatch, rejecting move")
		return false
	}
	for j := range w {
		if balance[toPid][j]+w[j] > upper[toPid][j] {
			return false
		}
	}
	for j := range w {
		if balance[fromPid][j]-w[j] < lower[fromPid][j] {
			return false
		}
	}
	return true
}

// AcceptMove commits a move: marks the vertex visited, applies the gain,
// relocates it and updates balance and net degrees incrementally. On a
// weight dimension mismatch the state is left untouched.
func (c *ChipletRefiner) AcceptMove(hg *hypergraph.Hypergraph, cell gainheap.Cell,
	totalGain *float32, visited []bool,
	partition []int, balance [][]float32, netDegs [][]int) {

	w := hg.VertexWeights(cell.Vertex)
	if len(w) != len(balance[cell.From]) || len(w) != len(balance[cell.To]) {
		debug.DropMessage("refiner", "weight dimension mismatch, move not applied")
		return
	}
	visited[cell.Vertex] = true
	*totalGain += cell.Gain
	partition[cell.Vertex] = cell.To
	for j := range w {
		balance[cell.From][j] -= w[j]
		balance[cell.To][j] += w[j]
	}
	for _, e := range hg.Edges(cell.Vertex) {
		netDegs[e][cell.From]--
		netDegs[e][cell.To]++
	}
}

// RollBackMove is the exact inverse of AcceptMove so replaying a trace in
// reverse restores the pre-move state bit for bit.
func (c *ChipletRefiner) RollBackMove(hg *hypergraph.Hypergraph, cell gainheap.Cell,
	visited []bool, partition []int, balance [][]float32, netDegs [][]int) {

	w := hg.VertexWeights(cell.Vertex)
	if len(w) != len(balance[cell.From]) || len(w) != len(balance[cell.To]) {
		debug.DropMessage("refiner", "weight dimension mismatch, rollback not applied")
		return
	}
	visited[cell.Vertex] = false
	partition[cell.Vertex] = cell.From
	for j := range w {
		balance[cell.From][j] += w[j]
		balance[cell.To][j] -= w[j]
	}
	for _, e := range hg.Edges(cell.Vertex) {
		netDegs[e][cell.From]++
		netDegs[e][cell.To]--
	}
}

// ─────────────────────────────── refinement loop ───────────────────────────────

// Refine runs up to refineIters FM passes, stopping early when a pass yields
// no improvement. When in-loop floorplanning is enabled each pass starts
// from a short annealing run so the cost model sees fresh placements.
func (c *ChipletRefiner) Refine(hg *hypergraph.Hypergraph,
	upper, lower [][]float32, partition []int) {

	if c.evaluator != nil {
		c.legacyCost = c.GetCostFromScratch(partition)
	}
	if c.maxMove <= 0 {
		return
	}
	balance := c.BlockBalance(hg, partition)
	netDegs := c.NetDegrees(hg, partition)

	for i := 0; i < c.refineIters; i++ {
		visited := make([]bool, hg.NumVertices())
		if c.floorplanInLoop {
			c.RunFloorplanner(hg, partition, 200, 50, 1.0)
		}
		gain := c.pass(hg, upper, lower, balance, netDegs, partition, visited)
		if gain <= 0 {
			if c.floorplanInLoop {
				c.posSeq, c.negSeq = nil, nil
			}
			return
		}
		if c.evaluator != nil {
			c.legacyCost = c.GetCostFromScratch(partition)
		}
	}
	if c.floorplanInLoop {
		c.posSeq, c.negSeq = nil, nil
	}
}
