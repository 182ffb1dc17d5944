// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Crossbar Expansion
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Seeded BFS Growth
//
// Description:
//   Grows partitions outward from the highest-degree hub vertices. Each
//   partition absorbs frontier vertices in small batches, a vertex joining
//   only once a clear edge majority points into the partition, and leftover
//   vertices attach to wherever most of their neighbors landed.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package partgen

import (
	"sort"

	"chipletpart/constants"
	"chipletpart/debug"
)

// FindCrossbars returns the vertices whose neighbor count reaches the given
// degree quantile. These are the hubs that seed expansion.
func (g *Generator) FindCrossbars(quantile float32) []int {
	numVertices := g.hg.NumVertices()
	if numVertices == 0 {
		return nil
	}
	degrees := make([]int, numVertices)
	for v := 0; v < numVertices; v++ {
		degrees[v] = len(g.hg.Neighbors(v))
	}
	sorted := make([]int, numVertices)
	copy(sorted, degrees)
	sort.Ints(sorted)

	idx := int(quantile * float32(numVertices))
	if idx >= numVertices {
		idx = numVertices - 1
	}
	threshold := sorted[idx]

	var crossbars []int
	for v, d := range degrees {
		if d >= threshold {
			crossbars = append(crossbars, v)
		}
	}
	return crossbars
}

// CrossBarExpansion grows numParts partitions by simultaneous BFS from the
// highest-degree crossbars. Returns nil when there are fewer crossbars than
// partitions.
func (g *Generator) CrossBarExpansion(crossbars []int) []int {
	if len(crossbars) < g.numParts {
		debug.DropMessage("partgen", "not enough crossbars for requested partitions")
		return nil
	}
	numVertices := g.hg.NumVertices()

	// Seed from the strongest hubs first.
	byDegree := make([]int, len(crossbars))
	copy(byDegree, crossbars)
	sort.Slice(byDegree, func(i, j int) bool {
		return len(g.hg.Neighbors(byDegree[i])) > len(g.hg.Neighbors(byDegree[j]))
	})

	assigned := make([]int, numVertices)
	for v := range assigned {
		assigned[v] = -1
	}
	edgeCounts := make([]map[int]int, numVertices)
	queues := make([][]int, g.numParts)
	for p := 0; p < g.numParts; p++ {
		seed := byDegree[p]
		assigned[seed] = p
		queues[p] = append(queues[p], seed)
	}

	active := true
	for active {
		active = false
		for p := 0; p < g.numParts; p++ {
			processed := 0
			for len(queues[p]) > 0 && processed < constants.ExpansionBatch {
				active = true
				processed++
				current := queues[p][0]
				queues[p] = queues[p][1:]

				for _, nb := range g.hg.Neighbors(current) {
					if assigned[nb] >= 0 {
						continue
					}
					if edgeCounts[nb] == nil {
						edgeCounts[nb] = make(map[int]int)
					}
					edgeCounts[nb][p]++
					if absorb(edgeCounts[nb], p) {
						assigned[nb] = p
						queues[p] = append(queues[p], nb)
					}
				}
			}
		}
	}

	g.assignRemaining(assigned)
	return assigned
}

// absorb reports whether the partition now holds a clear majority of the
// vertex's counted edges.
func absorb(counts map[int]int, partition int) bool {
	total := 0
	maxCount, best := 0, -1
	for p, c := range counts {
		total += c
		if c > maxCount {
			maxCount = c
			best = p
		}
	}
	return best == partition && float32(maxCount) > constants.AbsorbMajority*float32(total)
}

// assignRemaining attaches unassigned vertices to the partition holding most
// of their neighbors, then balances isolated leftovers onto the smallest
// partitions.
func (g *Generator) assignRemaining(partition []int) {
	numVertices := g.hg.NumVertices()
	for {
		changed := false
		for v := 0; v < numVertices; v++ {
			if partition[v] != -1 {
				continue
			}
			counts := make(map[int]int)
			for _, nb := range g.hg.Neighbors(v) {
				if partition[nb] != -1 {
					counts[partition[nb]]++
				}
			}
			best, maxCount := -1, 0
			for p, c := range counts {
				if c > maxCount {
					maxCount = c
					best = p
				}
			}
			if best != -1 {
				partition[v] = best
				changed = true
			}
		}
		if changed {
			continue
		}

		sizes := make([]int, g.numParts)
		done := true
		for _, p := range partition {
			if p != -1 {
				sizes[p]++
			} else {
				done = false
			}
		}
		if done {
			return
		}
		for v := 0; v < numVertices; v++ {
			if partition[v] != -1 {
				continue
			}
			smallest := 0
			for p := 1; p < g.numParts; p++ {
				if sizes[p] < sizes[smallest] {
					smallest = p
				}
			}
			partition[v] = smallest
			sizes[smallest]++
		}
		return
	}
}
