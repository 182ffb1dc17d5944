// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Main Entry Point & Run Orchestration
//
// Description:
//   Command-line front end with phased execution and clean separation of concerns.
//   Ingest → Candidate Generation → Refinement → Floorplanning → Output
//
// Architecture:
//   - Phase 0: Flag parsing and netlist ingestion
//   - Phase 1: Full partitioning pipeline (or evaluation of an existing partition)
//   - Phase 2: Result reporting and persistence
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"chipletpart/constants"
	"chipletpart/debug"
	"chipletpart/orchestrator"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MAIN ORCHESTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// main drives one complete run. Partition mode sweeps chiplet counts and
// writes the winning assignment; evaluation mode scores a partition file
// produced by an earlier run.
func main() {
	// PHASE 0: Flag parsing and netlist ingestion
	var (
		ioFile     = flag.String("io", "", "XML IO definition file")
		netlist    = flag.String("netlist", "", "XML block-level netlist file")
		blocks     = flag.String("blocks", "", "XML block definition file")
		tech       = flag.String("tech", constants.DefaultTech, "technology node for every chiplet")
		reach      = flag.Float64("reach", 0, "override reach for every connection (0 keeps the netlist values)")
		separation = flag.Float64("separation", 0.1, "inter-chiplet separation halo")
		ubFactor   = flag.Float64("ub-factor", float64(constants.DefaultUBFactor), "balance upper-bound factor")
		seed       = flag.Int64("seed", constants.DefaultSeed, "random seed")
		counts     = flag.String("chiplets", "", "comma-separated chiplet counts to sweep (default 1..8)")
		external   = flag.String("partitioner", "", "external graph-partitioner binary to add candidates")
		dbPath     = flag.String("db", "", "sqlite database to record the run")
		reportPath = flag.String("report", "", "JSON run report path")
		evalFile   = flag.String("evaluate", "", "score an existing partition file instead of partitioning")
	)
	flag.Parse()

	if *ioFile == "" || *netlist == "" || *blocks == "" {
		debug.DropMessage("USAGE", "-io, -netlist and -blocks are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := orchestrator.Config{
		IoFile:              *ioFile,
		NetlistFile:         *netlist,
		BlocksFile:          *blocks,
		Tech:                *tech,
		Reach:               float32(*reach),
		Separation:          float32(*separation),
		UBFactor:            float32(*ubFactor),
		Seed:                *seed,
		ChipletCounts:       parseChipletCounts(*counts),
		ExternalPartitioner: *external,
		DBPath:              *dbPath,
		ReportPath:          *reportPath,
	}

	debug.DropMessage("INIT", "Loading netlist "+*netlist)
	orch, err := orchestrator.New(cfg)
	if err != nil {
		debug.DropError("INIT", err)
		os.Exit(1)
	}
	hg := orch.Hypergraph()
	if cfg.Reach > 0 {
		reaches := make([]float32, hg.NumHyperedges())
		for i := range reaches {
			reaches[i] = cfg.Reach
		}
		if err := hg.SetAllReaches(reaches); err != nil {
			debug.DropError("INIT", err)
		}
	}
	debug.DropMessage("LOADED", strconv.Itoa(hg.NumVertices())+" blocks, "+
		strconv.Itoa(hg.NumHyperedges())+" connections")

	// PHASE 1: Partition or evaluate
	var result *orchestrator.Result
	if *evalFile != "" {
		debug.DropMessage("EVAL", "Scoring partition "+*evalFile)
		result, err = orch.EvaluatePartition(*evalFile)
	} else {
		debug.DropMessage("RUN", "Partitioning across "+strconv.Itoa(len(orch.ChipletCounts()))+" chiplet counts")
		result, err = orch.Partition()
	}
	if err != nil {
		debug.DropError("RUN", err)
		os.Exit(1)
	}

	// PHASE 2: Result reporting
	validity := "infeasible floorplan"
	if result.Valid {
		validity = "feasible floorplan"
	}
	debug.DropMessage("RESULT", strconv.Itoa(result.NumParts)+" chiplets, cost "+
		strconv.FormatFloat(float64(result.Cost), 'f', 4, 32)+", "+validity+
		" (origin "+result.Origin+")")
}

// parseChipletCounts parses "2,3,4" into a sweep list. Bad entries are
// dropped; an empty result falls back to the orchestrator default.
func parseChipletCounts(s string) []int {
	if s == "" {
		return nil
	}
	var counts []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		k, err := strconv.Atoi(field)
		if err != nil || k < 1 {
			debug.DropMessage("FLAGS", "ignoring chiplet count "+field)
			continue
		}
		counts = append(counts, k)
	}
	return counts
}
