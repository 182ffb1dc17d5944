// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Hypergraph Core
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Netlist Hypergraph Model
//
// Description:
//   Immutable-after-construction incidence structure over IP blocks and nets.
//   Incidence is stored both directions in CSR form so the refiner can walk
//   edge→vertices and vertex→edges in O(degree).
//
// Architecture:
//   - eind/eptr: hyperedge → member vertices
//   - vind/vptr: vertex → incident hyperedges
//   - Per-edge reach and io-size ride alongside the weight vectors
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

// Package hypergraph models the block-level netlist as a weighted hypergraph.
//
// A hypergraph is built once per level — the original netlist, or a coarsened
// chiplet-level netlist derived from a partition — and never mutated in place
// except for the reach/io-size knobs, which are scalar per-edge attributes the
// caller may retune between runs.
package hypergraph

import (
	"errors"
	"sort"
)

var (
	ErrVertexRange    = errors.New("hypergraph: vertex id out of range")
	ErrEdgeRange      = errors.New("hypergraph: hyperedge id out of range")
	ErrEdgeCount      = errors.New("hypergraph: hyperedge count mismatch")
	ErrReachCount     = errors.New("hypergraph: reach count mismatch")
	ErrIoSizeCount    = errors.New("hypergraph: io size count mismatch")
	ErrWeightMismatch = errors.New("hypergraph: weight dimension mismatch")
)

// Hypergraph is the dual-CSR incidence structure. All slices are owned by the
// struct after New; callers must not alias them afterwards.
type Hypergraph struct {
	numVertices   int
	numHyperedges int
	vertexDims    int
	edgeDims      int

	// hyperedge → vertices
	eind []int
	eptr []int

	// vertex → hyperedges
	vind []int
	vptr []int

	vertexWeights [][]float32
	edgeWeights   [][]float32
	reaches       []float32
	ioSizes       []float32
}

// New validates and assembles the dual CSR form. Every vertex id referenced
// by a hyperedge must lie in [0, len(vertexWeights)); the weight, reach and
// io-size arrays must all agree on the hyperedge count.
func New(vertexDims, edgeDims int,
	hyperedges [][]int,
	vertexWeights, edgeWeights [][]float32,
	reaches, ioSizes []float32) (*Hypergraph, error) {

	h := &Hypergraph{
		numVertices:   len(vertexWeights),
		numHyperedges: len(edgeWeights),
		vertexDims:    vertexDims,
		edgeDims:      edgeDims,
		vertexWeights: vertexWeights,
		edgeWeights:   edgeWeights,
		reaches:       reaches,
		ioSizes:       ioSizes,
	}

	if len(hyperedges) != h.numHyperedges {
		return nil, ErrEdgeCount
	}
	if len(reaches) != h.numHyperedges {
		return nil, ErrReachCount
	}
	if len(ioSizes) != h.numHyperedges {
		return nil, ErrIoSizeCount
	}

	total := 0
	for _, e := range hyperedges {
		total += len(e)
	}

	h.eptr = make([]int, 1, h.numHyperedges+1)
	h.eind = make([]int, 0, total)
	for _, e := range hyperedges {
		h.eind = append(h.eind, e...)
		h.eptr = append(h.eptr, len(h.eind))
	}

	// Bucket edges per vertex, then flatten.
	degree := make([]int, h.numVertices)
	for _, v := range h.eind {
		if v < 0 || v >= h.numVertices {
			return nil, ErrVertexRange
		}
		degree[v]++
	}
	h.vptr = make([]int, h.numVertices+1)
	for v := 0; v < h.numVertices; v++ {
		h.vptr[v+1] = h.vptr[v] + degree[v]
	}
	h.vind = make([]int, total)
	cursor := make([]int, h.numVertices)
	copy(cursor, h.vptr[:h.numVertices])
	for e := 0; e < h.numHyperedges; e++ {
		for _, v := range hyperedges[e] {
			h.vind[cursor[v]] = e
			cursor[v]++
		}
	}
	return h, nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ACCESSORS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func (h *Hypergraph) NumVertices() int   { return h.numVertices }
func (h *Hypergraph) NumHyperedges() int { return h.numHyperedges }
func (h *Hypergraph) VertexDims() int    { return h.vertexDims }
func (h *Hypergraph) EdgeDims() int      { return h.edgeDims }

// Vertices returns the member vertices of hyperedge e. The slice aliases
// internal storage; callers must not mutate it.
func (h *Hypergraph) Vertices(e int) []int {
	return h.eind[h.eptr[e]:h.eptr[e+1]]
}

// Edges returns the hyperedges incident to vertex v. Aliases internal storage.
func (h *Hypergraph) Edges(v int) []int {
	return h.vind[h.vptr[v]:h.vptr[v+1]]
}

func (h *Hypergraph) VertexWeights(v int) []float32 { return h.vertexWeights[v] }
func (h *Hypergraph) EdgeWeights(e int) []float32   { return h.edgeWeights[e] }

func (h *Hypergraph) Reach(e int) float32  { return h.reaches[e] }
func (h *Hypergraph) IoSize(e int) float32 { return h.ioSizes[e] }

// SetReach overrides the reach of a single hyperedge.
func (h *Hypergraph) SetReach(e int, val float32) error {
	if e < 0 || e >= h.numHyperedges {
		return ErrEdgeRange
	}
	h.reaches[e] = val
	return nil
}

// SetAllReaches overrides every hyperedge reach at once.
func (h *Hypergraph) SetAllReaches(reaches []float32) error {
	if len(reaches) != h.numHyperedges {
		return ErrReachCount
	}
	copy(h.reaches, reaches)
	return nil
}

// SetIoSize overrides the io area of a single hyperedge.
func (h *Hypergraph) SetIoSize(e int, val float32) error {
	if e < 0 || e >= h.numHyperedges {
		return ErrEdgeRange
	}
	h.ioSizes[e] = val
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DERIVED QUERIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Neighbors returns the sorted, deduplicated vertices sharing at least one
// hyperedge with v, excluding v itself.
func (h *Hypergraph) Neighbors(v int) []int {
	seen := make(map[int]struct{})
	for _, e := range h.Edges(v) {
		for _, u := range h.Vertices(e) {
			if u != v {
				seen[u] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Ints(out)
	return out
}

// TotalVertexWeights sums the weight vectors of every vertex.
func (h *Hypergraph) TotalVertexWeights() []float32 {
	total := make([]float32, h.vertexDims)
	for _, w := range h.vertexWeights {
		for j := range total {
			if j < len(w) {
				total[j] += w[j]
			}
		}
	}
	return total
}

// UpperBlockBalance returns, per partition, the maximum tolerated summed
// vertex weight: total × (base + ubFactor/100) per dimension.
func (h *Hypergraph) UpperBlockBalance(numParts int, ubFactor float32, base []float32) [][]float32 {
	total := h.TotalVertexWeights()
	out := make([][]float32, numParts)
	for p := 0; p < numParts; p++ {
		row := make([]float32, len(total))
		copy(row, total)
		if p < len(base) {
			f := base[p] + ubFactor*0.01
			for j := range row {
				row[j] *= f
			}
		}
		out[p] = row
	}
	return out
}

// LowerBlockBalance mirrors UpperBlockBalance with base − ubFactor/100,
// clamped at zero.
func (h *Hypergraph) LowerBlockBalance(numParts int, ubFactor float32, base []float32) [][]float32 {
	total := h.TotalVertexWeights()
	out := make([][]float32, numParts)
	for p := 0; p < numParts; p++ {
		row := make([]float32, len(total))
		copy(row, total)
		if p < len(base) {
			f := base[p] - ubFactor*0.01
			if f < 0 {
				f = 0
			}
			for j := range row {
				row[j] *= f
			}
		}
		out[p] = row
	}
	return out
}
