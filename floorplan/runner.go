// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Annealing Runner
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Multi-Worker Simulated Annealing Driver
//
// Description:
//   Fans one floorplanning problem out to several annealing cores with cooling
//   rates spread linearly across [MinCoolingRate, MaxCoolingRate]. Worker 0
//   establishes the penalty normalization, every worker reuses it so costs
//   compare across workers, and the best valid result wins. A run degrades to
//   fewer workers rather than aborting when the step budget cannot feed them.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package floorplan

import (
	"runtime"
	"strconv"
	"sync"

	"chipletpart/constants"
	"chipletpart/debug"
	"chipletpart/utils"
)

// Params carries the knobs a caller tunes per floorplanning call. Zero-value
// fields fall back to the package defaults from constants.
type Params struct {
	AreaWeight    float32
	PackageWeight float32
	NetWeight     float32

	PosSwapProb    float32
	NegSwapProb    float32
	DoubleSwapProb float32
	ResizeProb     float32
	ExpandProb     float32

	MaxSteps      int
	Perturbations int
	Accel         float32

	Seed int64
}

// Defaults returns the standard weighting: every penalty equal, every
// perturbation operator equally likely.
func Defaults() Params {
	return Params{
		AreaWeight:     1.0,
		PackageWeight:  1.0,
		NetWeight:      1.0,
		PosSwapProb:    constants.PosSwapProb,
		NegSwapProb:    constants.NegSwapProb,
		DoubleSwapProb: constants.DoubleSwapProb,
		ResizeProb:     constants.ResizeProb,
		ExpandProb:     constants.ExpandProb,
		MaxSteps:       constants.MaxNumStep,
		Perturbations:  constants.NumPerturbPerStep,
		Accel:          1.0,
		Seed:           constants.DefaultSeed,
	}
}

// Result is the winning worker's floorplan, reduced to what the refiner and
// the cost model consume.
type Result struct {
	AspectRatios []float32
	XLocs        []float32
	YLocs        []float32
	Valid        bool
	Cost         float32
	PosSeq       []int
	NegSeq       []int
}

// Run anneals the chiplet set with a small pool of independent workers and
// returns the best floorplan found. Valid results always beat invalid ones;
// ties break on normalized cost. An empty chiplet set yields an invalid
// empty result.
func Run(chiplets []Chiplet, nets []BundledNet, posSeq, negSeq []int, p Params) Result {
	if len(chiplets) == 0 {
		debug.DropMessage("floorplan", "no chiplets to place")
		return Result{}
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = constants.MaxNumStep
	}
	if p.Perturbations <= 0 {
		p.Perturbations = constants.NumPerturbPerStep
	}
	if p.Accel <= 0 {
		p.Accel = 1.0
	}
	if len(posSeq) != len(chiplets) || len(negSeq) != len(chiplets) {
		posSeq, negSeq = nil, nil
	}

	numWorkers := workerCount(p.MaxSteps)
	perWorkerSteps := maxi(10, p.MaxSteps/numWorkers)
	perWorkerPerturbs := maxi(5, p.Perturbations/numWorkers)

	delta := float32(0)
	if numWorkers > 1 {
		delta = (constants.MaxCoolingRate - constants.MinCoolingRate) / float32(numWorkers-1)
	}

	workers := make([]*SACore, 0, numWorkers)
	for id := 0; id < numWorkers; id++ {
		rate := clamp(constants.MinCoolingRate+float32(id)*delta,
			constants.MinCoolingRate, constants.MaxCoolingRate)
		sa := NewSACore(chiplets, nets,
			p.AreaWeight, p.PackageWeight, p.NetWeight,
			p.PosSwapProb, p.NegSwapProb, p.DoubleSwapProb, p.ResizeProb, p.ExpandProb,
			perWorkerSteps, perWorkerPerturbs, rate,
			utils.DeriveSeed(p.Seed, "floorplan", id),
			posSeq, negSeq)
		workers = append(workers, sa)
	}

	// Worker 0 fixes the normalization so every worker's cost lives on the
	// same scale.
	workers[0].Initialize()
	normArea := workers[0].NormAreaPenalty()
	normPackage := workers[0].NormPackagePenalty()
	normNet := workers[0].NormNetPenalty()
	for _, w := range workers {
		w.SetNormAreaPenalty(normArea)
		w.SetNormPackagePenalty(normPackage)
		w.SetNormNetPenalty(normNet)
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(sa *SACore) {
			defer wg.Done()
			sa.Run(p.Accel)
		}(w)
	}
	wg.Wait()

	best := workers[0]
	bestCost := best.Cost()
	bestValid := best.IsValid()
	for _, w := range workers[1:] {
		cost := w.Cost()
		valid := w.IsValid()
		if (valid && !bestValid) || (valid == bestValid && cost < bestCost) {
			best, bestCost, bestValid = w, cost, valid
		}
	}

	macros := best.Macros()
	res := Result{
		AspectRatios: make([]float32, len(macros)),
		XLocs:        make([]float32, len(macros)),
		YLocs:        make([]float32, len(macros)),
		Valid:        bestValid,
		Cost:         bestCost,
		PosSeq:       best.PosSeq(),
		NegSeq:       best.NegSeq(),
	}
	for i := range macros {
		h := macros[i].RealHeight()
		if h < 0.001 {
			h = 0.001
		}
		res.AspectRatios[i] = macros[i].RealWidth() / h
		res.XLocs[i] = macros[i].RealX()
		res.YLocs[i] = macros[i].RealY()
	}
	return res
}

// workerCount sizes the pool: a tenth of the machine, at least two, at most
// four, and never more than the step budget can feed ten steps each.
func workerCount(maxSteps int) int {
	n := runtime.NumCPU() / 10
	if n < 2 {
		n = 2
	}
	if n > 4 {
		n = 4
	}
	if budget := maxSteps / 10; budget < n {
		if budget < 1 {
			budget = 1
		}
		debug.DropMessage("floorplan", "degrading to "+strconv.Itoa(budget)+" annealing workers")
		n = budget
	}
	return n
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}
