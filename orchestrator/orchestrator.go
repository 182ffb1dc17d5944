// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Orchestrator
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: End-to-End Partitioning Pipeline
//
// Description:
//   Drives a full run: ingest the XML netlist, generate candidate partitions
//   across the chiplet-count sweep, score and statistically filter them,
//   refine the survivors in parallel, floorplan the winner and write the
//   partition file plus the run record.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package orchestrator

import (
	"bufio"
	"errors"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"

	"chipletpart/constants"
	"chipletpart/costmodel"
	"chipletpart/debug"
	"chipletpart/hypergraph"
	"chipletpart/partgen"
	"chipletpart/refiner"
	"chipletpart/utils"
)

var ErrNoCandidates = errors.New("orchestrator: no initial partitions generated")

// Config is one run's complete configuration. Zero-value optional fields
// disable the matching feature.
type Config struct {
	IoFile      string
	NetlistFile string
	BlocksFile  string

	Tech       string
	Reach      float32
	Separation float32
	UBFactor   float32
	Seed       int64

	// ChipletCounts is the sweep of target chiplet counts. Empty means 1..8.
	ChipletCounts []int

	// ExternalPartitioner names a graph-partitioner binary to add its
	// candidates to the pool. Empty skips the stage.
	ExternalPartitioner string

	// DBPath persists run records to a sqlite database when set.
	DBPath string

	// ReportPath writes a JSON run report when set.
	ReportPath string
}

// Result is the winning partition with everything the caller needs to
// reproduce or audit it.
type Result struct {
	Partition    []int
	NumParts     int
	Cost         float32
	InitialCost  float32
	Valid        bool
	AspectRatios []float32
	XLocs        []float32
	YLocs        []float32
	Origin       string
}

// Orchestrator owns the hypergraph for one netlist and runs the pipeline
// against it.
type Orchestrator struct {
	cfg   Config
	hg    *hypergraph.Hypergraph
	names []string
}

// New ingests the three primary input files and writes the id→name map the
// downstream tooling expects.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.UBFactor <= 0 {
		cfg.UBFactor = constants.DefaultUBFactor
	}
	if cfg.Tech == "" {
		cfg.Tech = constants.DefaultTech
	}
	if cfg.Separation <= 0 {
		cfg.Separation = 0.1
	}
	if len(cfg.ChipletCounts) == 0 {
		cfg.ChipletCounts = []int{1, 2, 3, 4, 5, 6, 7, 8}
	}
	hg, names, err := hypergraph.ReadXMLNetlist(cfg.IoFile, cfg.NetlistFile, cfg.BlocksFile)
	if err != nil {
		return nil, err
	}
	if err := hypergraph.WriteVertexMap("output.map", names); err != nil {
		debug.DropError("orchestrator", err)
	}
	return &Orchestrator{cfg: cfg, hg: hg, names: names}, nil
}

func (o *Orchestrator) Hypergraph() *hypergraph.Hypergraph { return o.hg }
func (o *Orchestrator) BlockNames() []string               { return o.names }
func (o *Orchestrator) ChipletCounts() []int               { return o.cfg.ChipletCounts }

// effort returns the per-run refinement budget: large graphs get one shallow
// pass over the boundary, small graphs get deeper sweeps over everything.
func (o *Orchestrator) effort(eval bool) (maxMoves, iters int, boundary bool) {
	numVertices := o.hg.NumVertices()
	if numVertices > constants.LargeGraphVertices {
		return int(float32(numVertices) * constants.LargeGraphMoveRatio), 1, true
	}
	if eval {
		return numVertices, 10, false
	}
	return int(float32(numVertices) * constants.SmallGraphMoveRatio), 3, false
}

type candidate struct {
	partition []int
	origin    string
	numParts  int
	cost      float32
}

// generateCandidates runs every generator across the chiplet-count sweep.
// Failed generators contribute nothing; the pool keeps whatever succeeded.
func (o *Orchestrator) generateCandidates() []candidate {
	var pool []candidate
	add := func(p []int, origin string) {
		if len(p) != o.hg.NumVertices() {
			return
		}
		numParts := 0
		for _, id := range p {
			if id < 0 {
				return
			}
			if id+1 > numParts {
				numParts = id + 1
			}
		}
		pool = append(pool, candidate{partition: p, origin: origin, numParts: numParts})
	}

	maxCount := 0
	for _, k := range o.cfg.ChipletCounts {
		if k > maxCount {
			maxCount = k
		}
	}

	spectralGen := partgen.New(o.hg, maxCount, o.cfg.UBFactor,
		utils.DeriveSeed(o.cfg.Seed, "spectral", 0))
	add(spectralGen.Spectral(), "spectral")

	crossbars := spectralGen.FindCrossbars(constants.DegreeQuantile)
	for i, k := range o.cfg.ChipletCounts {
		if k == 1 {
			add(make([]int, o.hg.NumVertices()), "single")
			continue
		}
		gen := partgen.New(o.hg, k, o.cfg.UBFactor,
			utils.DeriveSeed(o.cfg.Seed, "crossbar", i))
		add(gen.CrossBarExpansion(crossbars), "crossbar")
	}
	for i, k := range o.cfg.ChipletCounts {
		if k == 1 {
			continue
		}
		gen := partgen.New(o.hg, k, o.cfg.UBFactor,
			utils.DeriveSeed(o.cfg.Seed, "kwaycuts", i))
		add(gen.KWayCuts(), "kwaycuts")
		if o.cfg.ExternalPartitioner != "" {
			add(gen.ExternalPartition(o.cfg.ExternalPartitioner), "external")
		}
	}
	return pool
}

// filterCandidates drops statistical outliers by cost z-score and by ratio
// to the best candidate, relaxing both thresholds when they would leave
// fewer than the minimum pool size.
func filterCandidates(pool []candidate) []candidate {
	if len(pool) <= constants.MinKeptPartitions {
		return pool
	}

	var total float32
	minCost := float32(math.MaxFloat32)
	for _, c := range pool {
		total += c.cost
		if c.cost < minCost {
			minCost = c.cost
		}
	}
	mean := total / float32(len(pool))
	var variance float32
	for _, c := range pool {
		d := c.cost - mean
		variance += d * d
	}
	variance /= float32(len(pool))
	stdDev := float32(math.Sqrt(float64(variance)))

	zLimit := float32(constants.ZScoreThreshold)
	ratioLimit := float32(constants.RelativeCostThreshold)
	zScore := func(c candidate) float32 {
		if stdDev <= 0 {
			return 0
		}
		return (c.cost - mean) / stdDev
	}
	ratio := func(c candidate) float32 {
		if minCost <= 0 {
			return 1
		}
		return c.cost / minCost
	}

	wouldKeep := 0
	for _, c := range pool {
		if zScore(c) <= zLimit && ratio(c) <= ratioLimit {
			wouldKeep++
		}
	}
	if wouldKeep < constants.MinKeptPartitions {
		sorted := make([]candidate, len(pool))
		copy(sorted, pool)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].cost < sorted[j].cost })
		pivot := sorted[constants.MinKeptPartitions-1]
		if r := ratio(pivot) + 0.1; r > ratioLimit {
			ratioLimit = r
		}
		if z := zScore(pivot) + 0.1; z > zLimit {
			zLimit = z
		}
	}

	kept := make([]candidate, 0, len(pool))
	for _, c := range pool {
		if zScore(c) <= zLimit && ratio(c) <= ratioLimit {
			kept = append(kept, c)
		} else if len(kept) < constants.MinKeptPartitions {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return pool
	}
	return kept
}

// Partition runs the full pipeline and writes the winning partition to
// `<netlist>.cpart.<numParts>`.
func (o *Orchestrator) Partition() (*Result, error) {
	maxMoves, iters, boundary := o.effort(false)
	evaluator := costmodel.NewCutEvaluator(o.hg)

	pool := o.generateCandidates()
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}

	scorer := refiner.New(1, iters, maxMoves, evaluator, o.cfg.Seed)
	scorer.SetTechArray([]string{o.cfg.Tech})
	for i := range pool {
		pool[i].cost = scorer.GetCostFromScratch(pool[i].partition)
	}
	pool = filterCandidates(pool)
	debug.DropMessage("orchestrator", "refining "+strconv.Itoa(len(pool))+" candidate partitions")

	totalWeight := float32(0)
	for _, w := range o.hg.TotalVertexWeights() {
		totalWeight += w
	}

	results := make([]Result, len(pool))
	var wg sync.WaitGroup
	for i := range pool {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cand := pool[idx]
			partition := make([]int, len(cand.partition))
			copy(partition, cand.partition)

			ref := refiner.New(cand.numParts, iters, maxMoves, evaluator,
				utils.DeriveSeed(o.cfg.Seed, "candidate", idx))
			ref.SetBoundaryFlag(boundary)
			// Small graphs refresh placements before each pass so the cost
			// model scores against current geometry; the reduced-effort tier
			// skips the in-loop annealing.
			ref.SetFloorplanInLoop(!boundary)
			ref.SetSeparation(o.cfg.Separation)
			ref.SetTechArray([]string{o.cfg.Tech})

			upper := make([][]float32, cand.numParts)
			lower := make([][]float32, cand.numParts)
			for p := 0; p < cand.numParts; p++ {
				upper[p] = make([]float32, o.hg.VertexDims())
				lower[p] = make([]float32, o.hg.VertexDims())
				for j := range upper[p] {
					upper[p][j] = totalWeight * o.cfg.UBFactor / float32(cand.numParts)
				}
			}
			ref.Refine(o.hg, upper, lower, partition)

			finalParts := 0
			for _, p := range partition {
				if p+1 > finalParts {
					finalParts = p + 1
				}
			}
			results[idx] = Result{
				Partition:   partition,
				NumParts:    finalParts,
				Cost:        ref.GetCostFromScratch(partition),
				InitialCost: cand.cost,
				Origin:      cand.origin,
			}
		}(i)
	}
	wg.Wait()

	best := &results[0]
	for i := range results[1:] {
		if results[i+1].Cost < best.Cost {
			best = &results[i+1]
		}
	}

	// Floorplan the winner once at full effort for the final placement.
	final := refiner.New(best.NumParts, iters, maxMoves, evaluator,
		utils.DeriveSeed(o.cfg.Seed, "final", 0))
	final.SetSeparation(o.cfg.Separation)
	aspects, xs, ys, valid := final.RunFloorplanner(o.hg, best.Partition,
		10000, constants.NumPerturbPerStep, 1.0)
	best.AspectRatios = aspects
	best.XLocs = xs
	best.YLocs = ys
	best.Valid = valid

	if err := writePartitionFile(o.cfg.NetlistFile, best.Partition, best.NumParts); err != nil {
		return nil, err
	}
	if o.cfg.DBPath != "" {
		if err := SaveRun(o.cfg.DBPath, o.cfg.NetlistFile, o.cfg.Seed, best); err != nil {
			debug.DropError("orchestrator", err)
		}
	}
	if o.cfg.ReportPath != "" {
		if err := WriteReport(o.cfg.ReportPath, o.cfg, best, results); err != nil {
			debug.DropError("orchestrator", err)
		}
	}
	return best, nil
}

// writePartitionFile emits one partition id per line next to the netlist.
func writePartitionFile(netlistFile string, partition []int, numParts int) error {
	path := netlistFile + ".cpart." + strconv.Itoa(numParts)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, p := range partition {
		w.WriteString(strconv.Itoa(p))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return err
	}
	debug.DropMessage("orchestrator", "best partition saved to "+path)
	return nil
}
