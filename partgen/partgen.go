// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Initial Partitions
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Candidate Generators
//
// Description:
//   Produces the starting partitions the orchestrator scores and refines.
//   Every generator is deterministic for a fixed seed; every generator
//   returns a complete assignment or nil when it cannot produce one.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package partgen

import (
	"bufio"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"chipletpart/constants"
	"chipletpart/debug"
	"chipletpart/hypergraph"
	"chipletpart/utils"
)

// Generator derives candidate partitions for one hypergraph at a fixed part
// count. Each instance owns its RNG, so two generators with the same seed
// yield the same candidates.
type Generator struct {
	hg       *hypergraph.Hypergraph
	numParts int
	ubFactor float32
	seed     int64
	rng      *rand.Rand
}

// New builds a generator. ubFactor ≤ 0 falls back to the default tolerance.
func New(hg *hypergraph.Hypergraph, numParts int, ubFactor float32, seed int64) *Generator {
	if ubFactor <= 0 {
		ubFactor = constants.DefaultUBFactor
	}
	return &Generator{
		hg:       hg,
		numParts: numParts,
		ubFactor: ubFactor,
		seed:     seed,
		rng:      rand.New(rand.NewSource(utils.DeriveSeed(seed, "partgen", 0))),
	}
}

func (g *Generator) NumParts() int { return g.numParts }

// ─────────────────────────────── k-way cuts ───────────────────────────────

// KWayCuts assigns vertices uniformly at random, then rebalances by moving
// vertices out of over-filled partitions toward under-filled ones. When an
// iteration makes no progress the upper bounds relax geometrically so the
// loop always terminates with a total assignment.
func (g *Generator) KWayCuts() []int {
	numVertices := g.hg.NumVertices()
	if numVertices == 0 {
		return nil
	}
	numParts := g.numParts
	if numParts <= 0 {
		numParts = 1
	}

	partition := make([]int, numVertices)
	sizes := make([]int, numParts)
	for v := range partition {
		p := g.rng.Intn(numParts)
		partition[v] = p
		sizes[p]++
	}

	// Even split with the remainder spread over the leading partitions.
	targets := make([]int, numParts)
	ideal := numVertices / numParts
	remainder := numVertices % numParts
	for p := range targets {
		targets[p] = ideal
		if p < remainder {
			targets[p]++
		}
	}
	upperFor := func(relax float32) []int {
		bounds := make([]int, numParts)
		for p := range bounds {
			bounds[p] = int(math.Ceil(float64(float32(targets[p]) * g.ubFactor * relax)))
		}
		return bounds
	}
	upper := upperFor(1.0)

	for iteration := 1; iteration <= constants.KWayCutsMaxIters; iteration++ {
		var overFilled, underFilled []int
		for p := 0; p < numParts; p++ {
			if sizes[p] > upper[p] {
				overFilled = append(overFilled, p)
			} else if sizes[p] < targets[p] {
				underFilled = append(underFilled, p)
			}
		}
		if len(overFilled) == 0 {
			break
		}

		moved := false
		for _, from := range overFilled {
			if sizes[from] <= upper[from] {
				continue
			}
			var movable []int
			for v := 0; v < numVertices; v++ {
				if partition[v] == from {
					movable = append(movable, v)
				}
			}
			g.rng.Shuffle(len(movable), func(i, j int) {
				movable[i], movable[j] = movable[j], movable[i]
			})
			for _, v := range movable {
				if sizes[from] <= upper[from] {
					break
				}
				for _, to := range underFilled {
					if sizes[to] < targets[to] {
						partition[v] = to
						sizes[from]--
						sizes[to]++
						moved = true
						break
					}
				}
			}
		}
		if !moved && iteration > 2 {
			upper = upperFor(1.0 + 0.05*float32(iteration))
		}
	}
	return partition
}

// ─────────────────────────────── external tool ───────────────────────────────

// ExternalPartition shells out to a graph-partitioner binary that follows
// the usual convention: it reads a netlist file and a part count and writes
// `<file>.part.<numParts>` with one partition id per line. Any failure, from
// a missing binary to a short output file, yields nil so the orchestrator
// simply skips the candidate.
func (g *Generator) ExternalPartition(binary string) []int {
	if binary == "" {
		return nil
	}
	dir, err := os.MkdirTemp("", "chipletpart-*")
	if err != nil {
		debug.DropError("partgen", err)
		return nil
	}
	defer os.RemoveAll(dir)

	graphFile := filepath.Join(dir, "graph.hgr")
	if err := g.hg.WriteNetlistFile(graphFile); err != nil {
		debug.DropError("partgen", err)
		return nil
	}

	cmd := exec.Command(binary, graphFile, strconv.Itoa(g.numParts))
	if err := cmd.Run(); err != nil {
		debug.DropError("partgen", err)
		return nil
	}

	partFile := graphFile + ".part." + strconv.Itoa(g.numParts)
	f, err := os.Open(partFile)
	if err != nil {
		debug.DropError("partgen", err)
		return nil
	}
	defer f.Close()

	partition := make([]int, 0, g.hg.NumVertices())
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		s, e := utils.NextToken(line, 0)
		if s < 0 {
			continue
		}
		id, err := strconv.Atoi(utils.B2s(line[s:e]))
		if err != nil {
			debug.DropError("partgen", err)
			return nil
		}
		partition = append(partition, id)
	}
	if sc.Err() != nil || len(partition) != g.hg.NumVertices() {
		debug.DropMessage("partgen", "external partitioner wrote a short result, discarding")
		return nil
	}
	return partition
}
