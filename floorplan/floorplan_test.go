package floorplan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chipletpart/constants"
)

func squareChiplet(area, halo float32) Chiplet {
	side := float32(math.Sqrt(float64(area)))
	return Chiplet{Width: side, Height: side, MinArea: area, Halo: halo}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// GEOMETRY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestChipletPackExtents(t *testing.T) {
	c := Chiplet{X: 3, Y: 5, Width: 4, Height: 2, Halo: 0.1}

	assert.InDelta(t, 4.2, c.PackWidth(), 1e-6)
	assert.InDelta(t, 2.2, c.PackHeight(), 1e-6)
	assert.InDelta(t, 3.1, c.RealX(), 1e-6)
	assert.InDelta(t, 5.1, c.RealY(), 1e-6)
	assert.InDelta(t, 8.0, c.Area(), 1e-6)
}

func TestSetWidthPreservesArea(t *testing.T) {
	c := squareChiplet(16, 0.1)
	area := c.Area()

	c.SetWidth(8.2) // pack width request, die width 8
	assert.InDelta(t, area, c.Area(), 1e-3)
	assert.InDelta(t, 8.0, c.Width, 1e-3)

	// Requests at or below the halo margin are ignored.
	before := c
	c.SetWidth(0.2)
	assert.Equal(t, before, c)
}

func TestSetWidthClampsAspectRatio(t *testing.T) {
	c := squareChiplet(16, 0)

	// A huge width request is clamped so aspect stays within bounds.
	c.SetWidth(1000)
	aspect := c.Width / c.Height
	assert.LessOrEqual(t, aspect, float32(constants.MaxAspectRatio)*1.01)
	assert.InDelta(t, 16, c.Area(), 1e-3)

	c = squareChiplet(16, 0)
	c.SetHeight(1000)
	aspect = c.Width / c.Height
	assert.GreaterOrEqual(t, aspect, float32(constants.MinAspectRatio)*0.99)
	assert.InDelta(t, 16, c.Area(), 1e-3)
}

func TestResizeRandomlyHitsRequestedAspect(t *testing.T) {
	c := squareChiplet(25, 0)
	c.ResizeRandomly(4.0)

	assert.InDelta(t, 4.0, c.Width/c.Height, 1e-3)
	assert.InDelta(t, 25, c.Area(), 1e-3)
}

func TestSetShapeOnlyExpands(t *testing.T) {
	c := squareChiplet(16, 0)
	before := c

	// Shrinking requests are ignored outright.
	c.SetShape(2, 2)
	assert.Equal(t, before, c)

	// Expansion grows the die into the requested extents.
	c.SetShape(8, 8)
	assert.InDelta(t, 64, c.Area(), 1e-3)
	assert.InDelta(t, 1.0, c.Width/c.Height, 1e-3)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SEQUENCE-PAIR PACKING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func newTestCore(chiplets []Chiplet, nets []BundledNet, posSeq, negSeq []int) *SACore {
	return NewSACore(chiplets, nets,
		1.0, 1.0, 1.0,
		constants.PosSwapProb, constants.NegSwapProb, constants.DoubleSwapProb,
		constants.ResizeProb, constants.ExpandProb,
		10, 10, 0.95, 1, posSeq, negSeq)
}

func TestPackFloorplanRowLayout(t *testing.T) {
	// Identical sequences place chiplets left to right.
	chiplets := []Chiplet{
		{Width: 2, Height: 1},
		{Width: 3, Height: 2},
		{Width: 1, Height: 4},
	}
	sa := newTestCore(chiplets, nil, []int{0, 1, 2}, []int{0, 1, 2})
	sa.packFloorplan()

	m := sa.macros
	assert.Equal(t, float32(0), m[0].X)
	assert.Equal(t, float32(2), m[1].X)
	assert.Equal(t, float32(5), m[2].X)
	for i := range m {
		assert.Equal(t, float32(0), m[i].Y)
	}
	assert.Equal(t, float32(6), sa.width)
	assert.Equal(t, float32(4), sa.height)
}

func TestPackFloorplanColumnLayout(t *testing.T) {
	// Reversed negative sequence stacks chiplets bottom to top.
	chiplets := []Chiplet{
		{Width: 2, Height: 1},
		{Width: 3, Height: 2},
	}
	sa := newTestCore(chiplets, nil, []int{0, 1}, []int{1, 0})
	sa.packFloorplan()

	m := sa.macros
	assert.Equal(t, float32(0), m[0].X)
	assert.Equal(t, float32(0), m[1].X)
	assert.Equal(t, float32(2), m[0].Y)
	assert.Equal(t, float32(0), m[1].Y)
	assert.Equal(t, float32(3), sa.width)
	assert.Equal(t, float32(3), sa.height)
}

func TestPackFloorplanIncludesHalo(t *testing.T) {
	chiplets := []Chiplet{
		{Width: 2, Height: 2, Halo: 0.5},
		{Width: 2, Height: 2, Halo: 0.5},
	}
	sa := newTestCore(chiplets, nil, []int{0, 1}, []int{0, 1})
	sa.packFloorplan()

	assert.Equal(t, float32(6), sa.width) // two 3-wide pack extents
	assert.Equal(t, float32(3), sa.height)
	assert.Equal(t, float32(3), sa.macros[1].X)
	assert.InDelta(t, 3.5, sa.macros[1].RealX(), 1e-6)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// NET PENALTIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestNetViolationZeroWithinReach(t *testing.T) {
	chiplets := []Chiplet{
		{Width: 2, Height: 2},
		{X: 3, Width: 2, Height: 2},
	}
	nets := []BundledNet{{TermA: 0, TermB: 1, Weight: 1, Reach: 100, IoArea: 0.5}}
	sa := newTestCore(chiplets, nets, []int{0, 1}, []int{0, 1})

	assert.Equal(t, float32(0), sa.calNetPenalty())
	assert.True(t, sa.IsValid())
}

func TestNetViolationGrowsWithDistance(t *testing.T) {
	near := []Chiplet{
		{Width: 2, Height: 2},
		{X: 3, Width: 2, Height: 2},
	}
	far := []Chiplet{
		{Width: 2, Height: 2},
		{X: 30, Width: 2, Height: 2},
	}
	nets := []BundledNet{{TermA: 0, TermB: 1, Weight: 2, Reach: 0.1, IoArea: 0.5}}

	nearPenalty := newTestCore(near, nets, []int{0, 1}, []int{0, 1}).calNetPenalty()
	farPenalty := newTestCore(far, nets, []int{0, 1}, []int{0, 1}).calNetPenalty()

	assert.Greater(t, nearPenalty, float32(0))
	assert.Greater(t, farPenalty, nearPenalty)
}

func TestNetViolationMonotonicInReach(t *testing.T) {
	chiplets := []Chiplet{
		{Width: 2, Height: 2},
		{X: 10, Width: 2, Height: 2},
	}
	prev := float32(math.MaxFloat32)
	for _, reach := range []float32{0, 1, 4, 8, 100} {
		nets := []BundledNet{{TermA: 0, TermB: 1, Weight: 1, Reach: reach, IoArea: 0.5}}
		p := newTestCore(chiplets, nets, []int{0, 1}, []int{0, 1}).calNetPenalty()
		assert.LessOrEqual(t, p, prev, "reach %f", reach)
		prev = p
	}
	assert.Equal(t, float32(0), prev)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ANNEALING RUNNER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestRunEmptyInput(t *testing.T) {
	res := Run(nil, nil, nil, nil, Defaults())
	assert.False(t, res.Valid)
	assert.Empty(t, res.AspectRatios)
}

func TestRunGenerousReachIsValid(t *testing.T) {
	chiplets := []Chiplet{squareChiplet(4, 0.1), squareChiplet(9, 0.1)}
	nets := []BundledNet{{TermA: 0, TermB: 1, Weight: 1, Reach: 1000, IoArea: 1}}

	p := Defaults()
	p.MaxSteps = 60
	p.Perturbations = 20
	p.Seed = 42

	res := Run(chiplets, nets, nil, nil, p)
	require.True(t, res.Valid)
	require.Len(t, res.AspectRatios, 2)
	require.Len(t, res.XLocs, 2)
	require.Len(t, res.YLocs, 2)
	for _, a := range res.AspectRatios {
		assert.Greater(t, a, float32(0))
	}
	assert.Len(t, res.PosSeq, 2)
	assert.Len(t, res.NegSeq, 2)
}

func TestRunDeterministicForSeed(t *testing.T) {
	chiplets := []Chiplet{squareChiplet(4, 0.1), squareChiplet(9, 0.1), squareChiplet(1, 0.1)}
	nets := []BundledNet{
		{TermA: 0, TermB: 1, Weight: 1, Reach: 5, IoArea: 1},
		{TermA: 1, TermB: 2, Weight: 2, Reach: 5, IoArea: 1},
	}
	p := Defaults()
	p.MaxSteps = 50
	p.Perturbations = 20
	p.Seed = 7

	a := Run(chiplets, nets, nil, nil, p)
	b := Run(chiplets, nets, nil, nil, p)

	assert.Equal(t, a.Cost, b.Cost)
	assert.Equal(t, a.Valid, b.Valid)
	assert.Equal(t, a.AspectRatios, b.AspectRatios)
	assert.Equal(t, a.XLocs, b.XLocs)
	assert.Equal(t, a.YLocs, b.YLocs)
}

func TestRunResumesFromSequencePair(t *testing.T) {
	chiplets := []Chiplet{squareChiplet(4, 0.1), squareChiplet(4, 0.1)}
	nets := []BundledNet{{TermA: 0, TermB: 1, Weight: 1, Reach: 1000, IoArea: 1}}
	p := Defaults()
	p.MaxSteps = 40
	p.Perturbations = 10

	first := Run(chiplets, nets, nil, nil, p)
	require.Len(t, first.PosSeq, 2)

	// Mismatched sequence lengths fall back to identity rather than failing.
	second := Run(chiplets, nets, first.PosSeq[:1], first.NegSeq, p)
	assert.Len(t, second.PosSeq, 2)
}

func TestWorkerCountBounds(t *testing.T) {
	n := workerCount(10000)
	assert.GreaterOrEqual(t, n, 2)
	assert.LessOrEqual(t, n, 4)

	// A tiny step budget degrades the pool instead of starving workers.
	assert.Equal(t, 1, workerCount(5))
	assert.Equal(t, 2, workerCount(20))
}

func TestSACoreRestoreIsExact(t *testing.T) {
	chiplets := []Chiplet{squareChiplet(4, 0.1), squareChiplet(9, 0.1), squareChiplet(16, 0.1)}
	nets := []BundledNet{{TermA: 0, TermB: 2, Weight: 1, Reach: 2, IoArea: 1}}
	sa := newTestCore(chiplets, nets, nil, nil)
	sa.Initialize()

	// Chiplet positions are derived state, so compare packed against packed.
	for i := 0; i < 200; i++ {
		sa.packFloorplan()
		posBefore := append([]int(nil), sa.posSeq...)
		negBefore := append([]int(nil), sa.negSeq...)
		macrosBefore := append([]Chiplet(nil), sa.macros...)
		widthBefore, heightBefore := sa.width, sa.height

		sa.perturb()
		sa.restore()
		sa.packFloorplan()

		assert.Equal(t, posBefore, sa.posSeq)
		assert.Equal(t, negBefore, sa.negSeq)
		assert.Equal(t, macrosBefore, sa.macros)
		assert.Equal(t, widthBefore, sa.width)
		assert.Equal(t, heightBefore, sa.height)
	}
}
