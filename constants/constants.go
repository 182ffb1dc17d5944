// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global Partitioner Tunables
//
// Purpose:
//   - Defines compile-time defaults for the refiner, the annealer, and the
//     initial-partition generators.
//   - One place to retune effort knobs without touching algorithm code.
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Refinement ──────────────────────────────

const (
	// DefaultRefineIters bounds FM passes per Refine call on small graphs.
	DefaultRefineIters = 2

	// DefaultMaxMoves bounds accepted moves per FM pass on small graphs.
	DefaultMaxMoves = 50

	// LargeGraphVertices switches the refiner to reduced-effort settings:
	// above this size a pass moves at most 5% of the vertices and Refine
	// runs a single pass with boundary detection on.
	LargeGraphVertices = 200

	// LargeGraphMoveRatio and SmallGraphMoveRatio size the per-pass move
	// budget as a fraction of the vertex count.
	LargeGraphMoveRatio = 0.05
	SmallGraphMoveRatio = 0.5

	// RandomNonBoundaryRatio is the share of non-boundary vertices mixed
	// into the eligible set so a pass can escape a purely local optimum.
	RandomNonBoundaryRatio = 0.05

	// MaxTraverseLevel bounds how deep a gain bucket is scanned for a
	// balance-legal candidate before giving up on that bucket.
	MaxTraverseLevel = 25

	// TotalCorkingPasses bounds fallback selections per pass when every
	// bucket maximum is balance-illegal.
	TotalCorkingPasses = 25
)

// ───────────────────────────── Annealing ──────────────────────────────

const (
	// Outer schedule: MaxNumStep cooling steps, NumPerturbPerStep
	// Metropolis trials each.
	MaxNumStep        = 2000
	NumPerturbPerStep = 500

	// InitTemperature and MinTemperature pin the geometric schedule.
	InitTemperature = 1.0
	MinTemperature  = 1e-12

	// Perturbation draw weights (cumulative thresholds over [0,1)).
	PosSwapProb    = 0.2
	NegSwapProb    = 0.2
	DoubleSwapProb = 0.2
	ResizeProb     = 0.2
	ExpandProb     = 0.2

	// Aspect-ratio clamp for chiplet resizing.
	MinAspectRatio = 0.2
	MaxAspectRatio = 5.0

	// NetPenaltyAcceptance: a run is valid when the final net penalty is
	// at or below this value.
	NetPenaltyAcceptance = 0.01

	// Worker cooling rates are spread linearly across this interval.
	MinCoolingRate = 0.9
	MaxCoolingRate = 0.99
)

// ──────────────────────── Initial Partitions ──────────────────────────

const (
	// DegreeQuantile selects BFS seeds for crossbar expansion.
	DegreeQuantile = 0.99

	// ExpansionBatch is the number of frontier vertices each partition
	// absorbs per round so no seed dominates the growth.
	ExpansionBatch = 5

	// AbsorbMajority is the fraction of a vertex's already-assigned edges
	// that must point into a partition before expansion absorbs it.
	AbsorbMajority = 0.6

	// KWayCutsMaxIters bounds the rebalancing loop; bounds are relaxed
	// geometrically when the loop stalls before this limit.
	KWayCutsMaxIters = 50

	// KMeansMaxIters bounds spectral clustering.
	KMeansMaxIters = 100

	// DefaultUBFactor is the tolerated size inflation over the even split.
	DefaultUBFactor = 1.2
)

// ───────────────────────────── Orchestration ──────────────────────────

const (
	// Candidate filtering: drop initial partitions whose cost z-score or
	// ratio to the best exceeds these, but never below MinKeptPartitions.
	ZScoreThreshold       = 1.5
	RelativeCostThreshold = 2.0
	MinKeptPartitions     = 3

	// DefaultSeed seeds every stochastic stage unless overridden.
	DefaultSeed = 42

	// DefaultTech pads technology arrays when a partition has more parts
	// than the caller configured.
	DefaultTech = "7nm"
)
