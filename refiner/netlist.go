// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Chiplet-Level Netlist
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Partition Coarsening & Floorplan Bridge
//
// Description:
//   Collapses a partitioned block-level hypergraph into one vertex per
//   non-empty partition, builds the soft rectangles and bundled nets the
//   annealer consumes, and maps the winning placement back onto partition
//   ids for the cost model.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package refiner

import (
	"math"
	"sort"

	"chipletpart/debug"
	"chipletpart/floorplan"
	"chipletpart/hypergraph"
)

// BuildChipletLevel coarsens hg along the partition: every non-empty
// partition becomes one vertex carrying the summed member weights, hyperedges
// collapsing into a single cluster are dropped, and surviving hyperedges keep
// their weight, reach and io size. The returned map translates partition ids
// to cluster-level vertex ids.
func (c *ChipletRefiner) BuildChipletLevel(hg *hypergraph.Hypergraph,
	partition []int) (*hypergraph.Hypergraph, map[int]int, error) {

	idMap := make(map[int]int)
	clusterOf := make([]int, len(partition))
	for v, p := range partition {
		id, ok := idMap[p]
		if !ok {
			id = len(idMap)
			idMap[p] = id
		}
		clusterOf[v] = id
	}

	weights := make([][]float32, len(idMap))
	for i := range weights {
		weights[i] = make([]float32, hg.VertexDims())
	}
	for v, cid := range clusterOf {
		row := weights[cid]
		for j, w := range hg.VertexWeights(v) {
			if j < len(row) {
				row[j] += w
			}
		}
	}

	var (
		edges       [][]int
		edgeWeights [][]float32
		reaches     []float32
		ioSizes     []float32
	)
	seen := make(map[int]struct{}, len(idMap))
	for e := 0; e < hg.NumHyperedges(); e++ {
		members := hg.Vertices(e)
		if len(members) <= 1 {
			continue
		}
		for k := range seen {
			delete(seen, k)
		}
		for _, v := range members {
			seen[clusterOf[v]] = struct{}{}
		}
		if len(seen) <= 1 {
			continue
		}
		clusterEdge := make([]int, 0, len(seen))
		for cid := range seen {
			clusterEdge = append(clusterEdge, cid)
		}
		sort.Ints(clusterEdge)
		edges = append(edges, clusterEdge)
		ew := make([]float32, len(hg.EdgeWeights(e)))
		copy(ew, hg.EdgeWeights(e))
		edgeWeights = append(edgeWeights, ew)
		reaches = append(reaches, hg.Reach(e))
		ioSizes = append(ioSizes, hg.IoSize(e))
	}

	coarse, err := hypergraph.New(hg.VertexDims(), hg.EdgeDims(),
		edges, weights, edgeWeights, reaches, ioSizes)
	if err != nil {
		return nil, nil, err
	}
	return coarse, idMap, nil
}

// buildChiplets turns the coarse netlist into annealer inputs: one square
// rectangle per cluster sized by its total weight, one bundled net per
// two-terminal hyperedge.
func (c *ChipletRefiner) buildChiplets(coarse *hypergraph.Hypergraph) ([]floorplan.Chiplet, []floorplan.BundledNet) {
	nets := make([]floorplan.BundledNet, 0, coarse.NumHyperedges())
	for e := 0; e < coarse.NumHyperedges(); e++ {
		members := coarse.Vertices(e)
		if len(members) < 2 {
			continue
		}
		weight := float32(1.0)
		if w := coarse.EdgeWeights(e); len(w) > 0 {
			weight = w[0]
		}
		nets = append(nets, floorplan.BundledNet{
			TermA:  members[0],
			TermB:  members[1],
			Weight: weight,
			Reach:  coarse.Reach(e),
			IoArea: coarse.IoSize(e),
		})
	}

	chiplets := make([]floorplan.Chiplet, coarse.NumVertices())
	for v := 0; v < coarse.NumVertices(); v++ {
		var area float32
		for _, w := range coarse.VertexWeights(v) {
			area += w
		}
		width := float32(math.Sqrt(float64(area)))
		height := float32(0)
		if width > 0 {
			height = area / width
		}
		chiplets[v] = floorplan.Chiplet{
			Width:   width,
			Height:  height,
			MinArea: area,
			Halo:    c.separation,
		}
	}
	return chiplets, nets
}

// RunFloorplanner anneals the partition's chiplet-level floorplan and
// refreshes the per-partition aspect ratios and locations the cost model
// consumes. Sequence pairs persist across calls within one Refine so later
// runs start from the previous placement.
func (c *ChipletRefiner) RunFloorplanner(hg *hypergraph.Hypergraph, partition []int,
	maxSteps, perturbations int, accel float32) ([]float32, []float32, []float32, bool) {

	coarse, idMap, err := c.BuildChipletLevel(hg, partition)
	if err != nil {
		debug.DropError("refiner", err)
		return nil, nil, nil, false
	}
	chiplets, nets := c.buildChiplets(coarse)

	p := floorplan.Defaults()
	p.MaxSteps = maxSteps
	p.Perturbations = perturbations
	p.Accel = accel
	p.Seed = c.seed
	res := floorplan.Run(chiplets, nets, c.posSeq, c.negSeq, p)
	c.posSeq = res.PosSeq
	c.negSeq = res.NegSeq

	aspects := make([]float32, c.numParts)
	xs := make([]float32, c.numParts)
	ys := make([]float32, c.numParts)
	for i := range aspects {
		aspects[i] = 1.0
	}
	for pid, cid := range idMap {
		if pid < 0 || pid >= c.numParts || cid >= len(res.AspectRatios) {
			continue
		}
		aspects[pid] = res.AspectRatios[cid]
		xs[pid] = res.XLocs[cid]
		ys[pid] = res.YLocs[cid]
	}
	c.aspectRatios = aspects
	c.xLocs = xs
	c.yLocs = ys
	return aspects, xs, ys, res.Valid
}
