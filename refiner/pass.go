// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - FM Pass
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Gain-Bucket Move Selection
//
// Description:
//   One pass of K-way Fiduccia-Mattheyses: seed a gain bucket per destination
//   partition from the boundary vertices, repeatedly commit the best
//   balance-legal move, refresh neighbor gains, and roll back past the peak
//   of the cumulative gain curve.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package refiner

import (
	"math"

	"chipletpart/constants"
	"chipletpart/debug"
	"chipletpart/gainheap"
	"chipletpart/hypergraph"
)

// pass executes up to maxMove accepted moves and returns the gain at the
// best prefix of the move trace. balance, netDegs and partition leave this
// function reflecting exactly that prefix.
func (c *ChipletRefiner) pass(hg *hypergraph.Hypergraph,
	upper, lower, balance [][]float32, netDegs [][]int,
	partition []int, visited []bool) float32 {

	numVertices := hg.NumVertices()

	buckets := make([]*gainheap.Heap, c.numParts)
	for i := range buckets {
		buckets[i] = gainheap.New(numVertices, constants.MaxTraverseLevel)
	}

	var eligible []int
	if c.boundaryFlag {
		eligible = c.boundaryVertices(hg, netDegs, visited)
	} else {
		eligible = make([]int, numVertices)
		for v := range eligible {
			eligible[v] = v
		}
	}

	for to := 0; to < c.numParts; to++ {
		c.seedBucket(buckets[to], to, eligible, partition)
	}

	movesTrace := make([]gainheap.Cell, 0, c.maxMove)
	var totalGain, bestGain float32
	bestIndex := -1

	neighbors := make([]int, 0, len(eligible))
	for move := 0; move < c.maxMove; move++ {
		cell, ok := c.pickMove(hg, buckets, balance, upper, lower)
		if !ok {
			break
		}

		c.legacyCost -= cell.Gain
		movesTrace = append(movesTrace, cell)
		c.AcceptMove(hg, cell, &totalGain, visited, partition, balance, netDegs)
		for i := range buckets {
			if buckets[i].Contains(cell.Vertex) {
				buckets[i].Remove(cell.Vertex)
			}
		}

		// A mover never returns to its source within one pass, so the
		// source bucket needs no refresh.
		neighbors = neighbors[:0]
		for _, v := range eligible {
			if !visited[v] {
				neighbors = append(neighbors, v)
			}
		}
		for to := 0; to < c.numParts; to++ {
			if to == cell.From {
				continue
			}
			c.updateBucket(buckets[to], to, neighbors, partition)
		}

		if totalGain > bestGain {
			bestGain = totalGain
			bestIndex = move
		}
	}

	// Walk the trace backwards to the cumulative-gain peak.
	for i := len(movesTrace) - 1; i > bestIndex; i-- {
		c.RollBackMove(hg, movesTrace[i], visited, partition, balance, netDegs)
	}

	for i := range buckets {
		buckets[i].Clear()
	}
	return bestGain
}

// seedBucket fills one destination bucket with a proposal per eligible
// vertex not already living there.
func (c *ChipletRefiner) seedBucket(bucket *gainheap.Heap, toPid int,
	eligible []int, partition []int) {

	bucket.SetActive()
	for _, v := range eligible {
		from := partition[v]
		if from == toPid {
			continue
		}
		bucket.Push(c.calculateGain(v, from, toPid, partition))
	}
	if bucket.Empty() {
		bucket.SetDeactive()
	}
}

// calculateGain scores moving v into toPid. Without an evaluator every move
// scores zero, which keeps a pass total but strips its guidance.
func (c *ChipletRefiner) calculateGain(v, fromPid, toPid int, partition []int) gainheap.Cell {
	cell := gainheap.Cell{Vertex: v, From: fromPid, To: toPid}
	if fromPid == toPid {
		return cell
	}
	if c.evaluator == nil {
		if !c.warnedNoModel {
			c.warnedNoModel = true
			debug.DropMessage("refiner", "no cost model wired, all gains are zero")
		}
		return cell
	}
	cell.Gain = c.singleMoveGain(partition, v, toPid)
	return cell
}

// pickMove scans the top of every active bucket for the best balance-legal
// proposal. When every bucket maximum is illegal the strongest bucket is
// drained for a bounded number of corking passes before giving up.
func (c *ChipletRefiner) pickMove(hg *hypergraph.Hypergraph,
	buckets []*gainheap.Heap,
	balance, upper, lower [][]float32) (gainheap.Cell, bool) {

	legal := func(cand gainheap.Cell) bool {
		return c.CheckVertexMoveLegality(hg, cand.Vertex, cand.To, cand.From,
			balance, upper, lower)
	}

	var best gainheap.Cell
	found := false
	corkBucket := -1
	corkGain := float32(math.Inf(-1))

	for i, b := range buckets {
		if !b.Active() || b.Empty() {
			continue
		}
		if top, ok := b.Max(); ok && top.Gain > corkGain {
			corkGain = top.Gain
			corkBucket = i
		}
		if cand, ok := b.BestCandidate(legal); ok {
			if !found || cand.Gain > best.Gain {
				best = cand
				found = true
			}
		}
	}
	if found {
		return best, true
	}

	if corkBucket >= 0 {
		b := buckets[corkBucket]
		for n := 0; n < constants.TotalCorkingPasses && !b.Empty(); n++ {
			cand, ok := b.ExtractMax()
			if !ok {
				break
			}
			if legal(cand) {
				return cand, true
			}
		}
	}
	return gainheap.Cell{}, false
}

// updateBucket recomputes the gain of every still-movable neighbor toward
// one destination after a committed move changed the landscape.
func (c *ChipletRefiner) updateBucket(bucket *gainheap.Heap, toPid int,
	neighbors []int, partition []int) {

	for _, v := range neighbors {
		from := partition[v]
		if from == toPid {
			continue
		}
		cell := c.calculateGain(v, from, toPid, partition)
		if bucket.Contains(v) {
			bucket.ChangePriority(v, cell)
		} else {
			bucket.Push(cell)
			bucket.SetActive()
		}
	}
}

// boundaryVertices collects every unvisited vertex touching a hyperedge that
// spans at least two partitions, mixes in a reservoir-sampled share of
// non-boundary vertices, and shuffles the result.
func (c *ChipletRefiner) boundaryVertices(hg *hypergraph.Hypergraph,
	netDegs [][]int, visited []bool) []int {

	numHyperedges := hg.NumHyperedges()
	numVertices := hg.NumVertices()

	boundaryNet := make([]bool, numHyperedges)
	for e := 0; e < numHyperedges; e++ {
		span := 0
		for p := 0; p < c.numParts; p++ {
			if netDegs[e][p] > 0 {
				span++
				if span >= 2 {
					boundaryNet[e] = true
					break
				}
			}
		}
	}

	isBoundary := make([]bool, numVertices)
	boundary := make([]int, 0, numVertices/5+1)
	for v := 0; v < numVertices; v++ {
		if visited[v] {
			continue
		}
		for _, e := range hg.Edges(v) {
			if boundaryNet[e] {
				boundary = append(boundary, v)
				isBoundary[v] = true
				break
			}
		}
	}

	if c.nonBoundaryRatio > 0 {
		quota := int(float32(numVertices) * c.nonBoundaryRatio)
		if quota > 0 {
			sample := make([]int, 0, quota)
			seen := 0
			for v := 0; v < numVertices; v++ {
				if isBoundary[v] || visited[v] {
					continue
				}
				seen++
				if len(sample) < quota {
					sample = append(sample, v)
				} else if pos := c.rng.Intn(seen); pos < quota {
					sample[pos] = v
				}
			}
			boundary = append(boundary, sample...)
			c.rng.Shuffle(len(boundary), func(i, j int) {
				boundary[i], boundary[j] = boundary[j], boundary[i]
			})
		}
	}
	return boundary
}
