// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Cost Model Contract
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Manufacturing Cost Evaluator Interface
//
// Description:
//   The core never interprets manufacturing economics. It consumes a scalar
//   through the Evaluator contract: lower is better, everything else is the
//   model's business. A connectivity-based reference evaluator ships for
//   model-less runs and tests.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package costmodel

import "chipletpart/hypergraph"

// Evaluator scores a complete partition given the physical attributes the
// floorplanner produced. Implementations must be safe for concurrent use by
// independent refiner instances.
type Evaluator interface {
	Cost(partition []int, techs []string, aspectRatios, xLocs, yLocs []float32) float32
}

// CutEvaluator is the reference model: weighted hyperedge cut plus a mild
// area-imbalance term. It carries none of the wafer economics but gives the
// refiner a real gradient when no external model is wired in.
type CutEvaluator struct {
	hg *hypergraph.Hypergraph

	// ImbalanceWeight scales the spread between the heaviest and lightest
	// partition relative to the total weight. Zero disables the term.
	ImbalanceWeight float32
}

// NewCutEvaluator binds the reference model to a hypergraph level.
func NewCutEvaluator(hg *hypergraph.Hypergraph) *CutEvaluator {
	return &CutEvaluator{hg: hg, ImbalanceWeight: 0.1}
}

func (c *CutEvaluator) Cost(partition []int, _ []string, _, _, _ []float32) float32 {
	var cut float32
	for e := 0; e < c.hg.NumHyperedges(); e++ {
		members := c.hg.Vertices(e)
		if len(members) < 2 {
			continue
		}
		first := partition[members[0]]
		for _, v := range members[1:] {
			if partition[v] != first {
				w := c.hg.EdgeWeights(e)
				if len(w) > 0 {
					cut += w[0]
				} else {
					cut += 1.0
				}
				break
			}
		}
	}
	if c.ImbalanceWeight == 0 {
		return cut
	}

	numParts := 0
	for _, p := range partition {
		if p+1 > numParts {
			numParts = p + 1
		}
	}
	if numParts < 2 {
		return cut
	}
	loads := make([]float32, numParts)
	var total float32
	for v, p := range partition {
		w := c.hg.VertexWeights(v)
		if len(w) > 0 {
			loads[p] += w[0]
			total += w[0]
		}
	}
	minLoad, maxLoad := loads[0], loads[0]
	for _, l := range loads[1:] {
		if l < minLoad {
			minLoad = l
		}
		if l > maxLoad {
			maxLoad = l
		}
	}
	if total == 0 {
		return cut
	}
	return cut + c.ImbalanceWeight*(maxLoad-minLoad)
}
