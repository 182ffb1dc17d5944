// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Sequence-Pair Annealer
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Simulated Annealing Core (SACore)
//
// Description:
//   Encodes a floorplan as a pair of permutations and anneals it with five
//   perturbation operators. Packing is the classic two-pass longest-path
//   sweep over sequence-pair match positions; cost blends area, package and
//   net-reach penalties, each normalized against the initial packing.
//
// State machine:
//   uninitialized → packed → (perturbed ⇄ accepted/restored)* → converged
//   Terminal when the step budget is exhausted; no external cancellation.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package floorplan

import (
	"math"
	"math/rand"
	"sort"

	"chipletpart/constants"
)

// SACore anneals one floorplan. Not safe for concurrent use; the runner
// gives every worker its own core.
type SACore struct {
	nets   []BundledNet
	macros []Chiplet

	// penalty weights
	areaWeight    float32
	packageWeight float32
	netWeight     float32

	// perturbation draw thresholds
	posSwapProb    float32
	negSwapProb    float32
	doubleSwapProb float32
	resizeProb     float32
	expandProb     float32

	// schedule
	maxNumStep        int
	numPerturbPerStep int
	coolingRate       float32
	initTemperature   float32
	minTemperature    float32

	rng *rand.Rand

	posSeq []int
	negSeq []int

	// pre-perturbation snapshot; restore() puts back exactly the sub-state
	// the fired operator touched.
	prePosSeq []int
	preNegSeq []int
	preMacros []Chiplet
	macroID   int
	actionID  int

	width, height       float32
	preWidth, preHeight float32

	areaPenalty    float32
	packagePenalty float32
	netPenalty     float32

	preAreaPenalty    float32
	prePackagePenalty float32
	preNetPenalty     float32

	normAreaPenalty    float32
	normPackagePenalty float32
	normNetPenalty     float32

	costHistory []float32
	tempHistory []float32
}

// NewSACore builds a core over copies of the chiplets and nets. When posSeq
// is empty both sequences start as the identity permutation.
func NewSACore(chiplets []Chiplet, nets []BundledNet,
	areaWeight, packageWeight, netWeight float32,
	posSwapProb, negSwapProb, doubleSwapProb, resizeProb, expandProb float32,
	maxNumStep, numPerturbPerStep int, coolingRate float32,
	seed int64, posSeq, negSeq []int) *SACore {

	n := len(chiplets)
	c := &SACore{
		areaWeight:        areaWeight,
		packageWeight:     packageWeight,
		netWeight:         netWeight,
		posSwapProb:       posSwapProb,
		negSwapProb:       negSwapProb,
		doubleSwapProb:    doubleSwapProb,
		resizeProb:        resizeProb,
		expandProb:        expandProb,
		maxNumStep:        maxNumStep,
		numPerturbPerStep: numPerturbPerStep,
		coolingRate:       coolingRate,
		initTemperature:   constants.InitTemperature,
		minTemperature:    constants.MinTemperature,
		rng:               rand.New(rand.NewSource(seed)),
		macroID:           -1,
		actionID:          -1,
	}

	c.macros = make([]Chiplet, n)
	copy(c.macros, chiplets)
	c.nets = make([]BundledNet, len(nets))
	copy(c.nets, nets)

	if len(posSeq) == 0 {
		c.posSeq = make([]int, n)
		c.negSeq = make([]int, n)
		for i := range c.posSeq {
			c.posSeq[i] = i
			c.negSeq[i] = i
		}
	} else {
		c.posSeq = append([]int(nil), posSeq...)
		c.negSeq = append([]int(nil), negSeq...)
	}
	c.prePosSeq = append([]int(nil), c.posSeq...)
	c.preNegSeq = append([]int(nil), c.negSeq...)
	return c
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PACKING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// packFloorplan derives every chiplet's (x,y) from the sequence pair using
// the longest-path sweep: an X pass over match positions, then a Y pass with
// pos_seq reversed.
func (c *SACore) packFloorplan() {
	n := len(c.macros)
	if n == 0 {
		return
	}
	for i := range c.macros {
		c.macros[i].X = 0
		c.macros[i].Y = 0
	}

	matchNeg := make([]int, n) // macro id → position in negSeq
	for i, b := range c.negSeq {
		matchNeg[b] = i
	}

	length := make([]float32, n)
	for _, b := range c.posSeq {
		if c.macros[b].PackWidth() <= 0 || c.macros[b].PackHeight() <= 0 {
			continue
		}
		p := matchNeg[b]
		c.macros[b].X = length[p]
		right := c.macros[b].X + c.macros[b].PackWidth()
		for j := p; j < n; j++ {
			if right > length[j] {
				length[j] = right
			} else {
				break
			}
		}
	}
	c.width = length[n-1]

	// Y pass walks pos_seq in reverse.
	for i := range length {
		length[i] = 0
	}
	for i := n - 1; i >= 0; i-- {
		b := c.posSeq[i]
		if c.macros[b].PackWidth() <= 0 || c.macros[b].PackHeight() <= 0 {
			continue
		}
		p := matchNeg[b]
		c.macros[b].Y = length[p]
		top := c.macros[b].Y + c.macros[b].PackHeight()
		for j := p; j < n; j++ {
			if top > length[j] {
				length[j] = top
			} else {
				break
			}
		}
	}
	c.height = length[n-1]
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PERTURBATION OPERATORS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func (c *SACore) singleSeqSwap(pos bool) {
	n := len(c.macros)
	if n <= 1 {
		return
	}
	i := c.rng.Intn(n)
	j := i
	for j == i {
		j = c.rng.Intn(n)
	}
	if pos {
		c.posSeq[i], c.posSeq[j] = c.posSeq[j], c.posSeq[i]
	} else {
		c.negSeq[i], c.negSeq[j] = c.negSeq[j], c.negSeq[i]
	}
}

func (c *SACore) doubleSeqSwap() {
	n := len(c.macros)
	if n <= 1 {
		return
	}
	i := c.rng.Intn(n)
	j := i
	for j == i {
		j = c.rng.Intn(n)
	}
	c.posSeq[i], c.posSeq[j] = c.posSeq[j], c.posSeq[i]
	c.negSeq[i], c.negSeq[j] = c.negSeq[j], c.negSeq[i]
}

// resizeOneCluster picks one chiplet and either reshapes it to a random
// aspect ratio (20%) or snaps one edge to the nearest neighboring edge in
// one of four directions.
func (c *SACore) resizeOneCluster() {
	n := len(c.posSeq)
	idx := c.rng.Intn(n)
	c.macroID = idx
	m := &c.macros[idx]

	lx, ly := m.X, m.Y
	ux := lx + m.PackWidth()
	uy := ly + m.PackHeight()

	if c.rng.Float32() < 0.2 {
		aspect := clamp(c.rng.Float32(), constants.MinAspectRatio, constants.MaxAspectRatio)
		m.ResizeRandomly(aspect)
		return
	}

	switch option := c.rng.Float32(); {
	case option <= 0.25:
		// Widen to the nearest right edge beyond our own.
		ex2 := c.width
		for i := range c.macros {
			x2 := c.macros[i].X + c.macros[i].PackWidth()
			if x2 > ux && x2 < ex2 {
				ex2 = x2
			}
		}
		m.SetWidth(ex2 - lx)
	case option <= 0.5:
		// Shrink to the nearest right edge inside our span.
		dx2 := lx
		for i := range c.macros {
			x2 := c.macros[i].X + c.macros[i].PackWidth()
			if x2 < ux && x2 > dx2 {
				dx2 = x2
			}
		}
		if dx2 <= lx {
			return
		}
		m.SetWidth(dx2 - lx)
	case option <= 0.75:
		ay2 := c.height
		for i := range c.macros {
			y2 := c.macros[i].Y + c.macros[i].PackHeight()
			if y2 > uy && y2 < ay2 {
				ay2 = y2
			}
		}
		m.SetHeight(ay2 - ly)
	default:
		cy2 := ly
		for i := range c.macros {
			y2 := c.macros[i].Y + c.macros[i].PackHeight()
			if y2 < uy && y2 > cy2 {
				cy2 = y2
			}
		}
		if cy2 <= ly {
			return
		}
		m.SetHeight(cy2 - ly)
	}
}

// segmentLoc locates the grid cells containing a segment's endpoints.
func segmentLoc(segStart, segEnd float32, grid []float32) (int, int) {
	startID, endID := -1, -1
	for i := 0; i+1 < len(grid); i++ {
		if grid[i] <= segStart && grid[i+1] > segStart {
			startID = i
		}
		if grid[i] <= segEnd && grid[i+1] > segEnd {
			endID = i
		}
	}
	if endID == -1 {
		endID = len(grid) - 1
	}
	return startID, endID
}

// expandClusters grows every chiplet into adjacent deadspace. The floorplan
// is cut into a grid by the unique rectangle edges; each chiplet claims free
// cells in the four directions, and the final growth is capped per direction
// by the reach slack of the nets leaving the seed chiplet.
func (c *SACore) expandClusters() {
	if len(c.macros) == 0 {
		return
	}

	xSet := make(map[float32]struct{})
	ySet := make(map[float32]struct{})
	for _, id := range c.posSeq {
		m := &c.macros[id]
		xSet[m.X] = struct{}{}
		xSet[m.X+m.PackWidth()] = struct{}{}
		ySet[m.Y] = struct{}{}
		ySet[m.Y+m.PackHeight()] = struct{}{}
	}
	xGrid := sortedKeys(xSet)
	yGrid := sortedKeys(ySet)
	numX, numY := len(xGrid)-1, len(yGrid)-1
	if numX <= 0 || numY <= 0 {
		return
	}
	grids := make([][]int, numY)
	for j := range grids {
		grids[j] = make([]int, numX)
		for i := range grids[j] {
			grids[j][i] = -1
		}
	}

	// Per-macro aggregate violation picks the expansion seed; per-net slack
	// caps how far growth may stretch each incident direction.
	netViolation := make([]float32, len(c.macros))
	netExpand := make([]float32, len(c.nets))
	for i := range c.nets {
		penalty := c.netViolation(&c.nets[i])
		if c.nets[i].Weight != 0 {
			netExpand[i] = penalty / c.nets[i].Weight
		}
		netViolation[c.nets[i].TermA] += penalty
		netViolation[c.nets[i].TermB] += penalty
	}
	srcMacro := 0
	for i, v := range netViolation {
		if v < netViolation[srcMacro] {
			srcMacro = i
		}
	}

	var leftMax, rightMax, topMax, downMax float32
	srcLx := c.macros[srcMacro].X
	srcLy := c.macros[srcMacro].Y
	srcUx := srcLx + c.macros[srcMacro].PackWidth()
	srcUy := srcLy + c.macros[srcMacro].PackHeight()
	for i := range c.nets {
		net := &c.nets[i]
		if net.TermA != srcMacro && net.TermB != srcMacro {
			continue
		}
		sink := net.TermB
		if sink == srcMacro {
			sink = net.TermA
		}
		sinkLx := c.macros[sink].X
		sinkLy := c.macros[sink].Y
		sinkUx := sinkLx + c.macros[sink].PackWidth()
		sinkUy := sinkLy + c.macros[sink].PackHeight()

		if srcLx > sinkUx && netExpand[i] > leftMax {
			leftMax = netExpand[i]
		}
		if srcUx < sinkLx && netExpand[i] > rightMax {
			rightMax = netExpand[i]
		}
		if srcLy > sinkUy && netExpand[i] > downMax {
			downMax = netExpand[i]
		}
		if srcUy < sinkLy && netExpand[i] > topMax {
			topMax = netExpand[i]
		}
	}

	markMacro := func(id int) (int, int, int, int) {
		m := &c.macros[id]
		xs, xe := segmentLoc(m.X, m.X+m.PackWidth(), xGrid)
		ys, ye := segmentLoc(m.Y, m.Y+m.PackHeight(), yGrid)
		return xs, xe, ys, ye
	}

	// Seed the grid with the chosen macro before sweeping the sequences.
	{
		xs, xe, ys, ye := markMacro(srcMacro)
		for j := ys; j < ye; j++ {
			for i := xs; i < xe; i++ {
				grids[j][i] = srcMacro
			}
		}
	}

	for order := 0; order <= 1; order++ {
		seq := c.posSeq
		if order == 1 {
			seq = c.negSeq
		}
		for _, id := range seq {
			xStart, xEnd, yStart, yEnd := markMacro(id)
			if xStart < 0 || yStart < 0 {
				continue
			}
			xStartNew, xEndNew := xStart, xEnd
			yStartNew, yEndNew := yStart, yEnd

			// left
			for i := xStart - 1; i >= 0; i-- {
				free := true
				for j := yStart; j < yEnd; j++ {
					if grids[j][i] != -1 {
						free = false
						break
					}
				}
				if !free {
					break
				}
				xStartNew--
				for j := yStart; j < yEnd; j++ {
					grids[j][i] = id
				}
			}
			xStart = xStartNew

			// top
			for j := yEnd; j < numY; j++ {
				free := true
				for i := xStart; i < xEnd; i++ {
					if grids[j][i] != -1 {
						free = false
						break
					}
				}
				if !free {
					break
				}
				yEndNew++
				for i := xStart; i < xEnd; i++ {
					grids[j][i] = id
				}
			}
			yEnd = yEndNew

			// right
			for i := xEnd; i < numX; i++ {
				free := true
				for j := yStart; j < yEnd; j++ {
					if grids[j][i] != -1 {
						free = false
						break
					}
				}
				if !free {
					break
				}
				xEndNew++
				for j := yStart; j < yEnd; j++ {
					grids[j][i] = id
				}
			}
			xEnd = xEndNew

			// down
			for j := yStart - 1; j >= 0; j-- {
				free := true
				for i := xStart; i < xEnd; i++ {
					if grids[j][i] != -1 {
						free = false
						break
					}
				}
				if !free {
					break
				}
				yStartNew--
				for i := xStart; i < xEnd; i++ {
					grids[j][i] = id
				}
			}
			yStart = yStartNew

			m := &c.macros[id]
			leftStart := maxf(xGrid[xStart], m.X-leftMax)
			downStart := maxf(yGrid[yStart], m.Y-downMax)
			rightEnd := minf(xGrid[xEnd], m.X+m.PackWidth()+rightMax)
			topEnd := minf(yGrid[yEnd], m.Y+m.PackHeight()+topMax)

			m.X = leftStart
			m.Y = downStart
			m.SetShape(rightEnd-m.X, topEnd-m.Y)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PENALTIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// netViolation computes weight × max(0, requiredLength − reach) for one net.
// The required length is overlap-aware: rectangles sharing a horizontal or
// vertical band pay the perpendicular gap plus an io-area fringe; disjoint
// rectangles pay a Manhattan center estimate minus half extents plus fringe.
func (c *SACore) netViolation(net *BundledNet) float32 {
	a := &c.macros[net.TermA]
	b := &c.macros[net.TermB]

	lxA, lyA := a.RealX(), a.RealY()
	uxA, uyA := lxA+a.RealWidth(), lyA+a.RealHeight()
	lxB, lyB := b.RealX(), b.RealY()
	uxB, uyB := lxB+b.RealWidth(), lyB+b.RealHeight()

	var length float32
	switch {
	case minf(uyA, uyB) > maxf(lyA, lyB):
		w := minf(uyA, uyB) - maxf(lyA, lyB)
		h := maxf(lxA, lxB) - minf(uxA, uxB)
		length = h + 2*(float32(math.Sqrt(float64(w*w+2*net.IoArea)))-w)
	case minf(uxA, uxB) > maxf(lxA, lxB):
		w := minf(uxA, uxB) - maxf(lxA, lxB)
		h := maxf(lyA, lyB) - minf(uyA, uyB)
		length = h + 2*(float32(math.Sqrt(float64(w*w+2*net.IoArea)))-w)
	default:
		cxA, cyA := (lxA+uxA)/2, (lyA+uyA)/2
		cxB, cyB := (lxB+uxB)/2, (lyB+uyB)/2
		halfW := (uxA - lxA + uxB - lxB) / 2
		halfH := (uyA - lyA + uyB - lyB) / 2
		length = absf(cxA-cxB) + absf(cyA-cyB) - halfW - halfH
		length += 2 * float32(math.Sqrt(float64(2*net.IoArea)))
	}

	violation := length - net.Reach
	if violation < 0 {
		violation = 0
	}
	return net.Weight * violation
}

func (c *SACore) calNetPenalty() float32 {
	var total float32
	for i := range c.nets {
		total += c.netViolation(&c.nets[i])
	}
	return total
}

func (c *SACore) calAreaPenalty() float32 {
	if c.areaWeight <= 0 {
		return 0
	}
	var total float32
	for i := range c.macros {
		over := c.macros[i].Area() - c.macros[i].MinArea
		if over > 0 {
			total += over
		}
	}
	return total
}

func (c *SACore) calPackagePenalty() float32 {
	if c.packageWeight <= 0 {
		return 0
	}
	return c.width * c.height
}

func (c *SACore) calPenalty() {
	c.areaPenalty = c.calAreaPenalty()
	c.packagePenalty = c.calPackagePenalty()
	c.netPenalty = c.calNetPenalty()
}

func (c *SACore) calNormCost() float32 {
	c.calPenalty()
	var cost float32
	if c.normAreaPenalty > 0 {
		cost += c.areaWeight * c.areaPenalty / c.normAreaPenalty
	}
	if c.normPackagePenalty > 0 {
		cost += c.packageWeight * c.packagePenalty / c.normPackagePenalty
	}
	if c.normNetPenalty > 0 {
		cost += c.netWeight * c.netPenalty / c.normNetPenalty
	}
	return cost
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ANNEALING LOOP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func (c *SACore) perturb() {
	if len(c.macros) == 0 {
		return
	}
	copy(c.prePosSeq, c.posSeq)
	copy(c.preNegSeq, c.negSeq)
	c.preWidth = c.width
	c.preHeight = c.height
	c.preAreaPenalty = c.areaPenalty
	c.prePackagePenalty = c.packagePenalty
	c.preNetPenalty = c.netPenalty

	op := c.rng.Float32()
	p1 := c.posSwapProb
	p2 := p1 + c.negSwapProb
	p3 := p2 + c.doubleSwapProb
	p4 := p3 + c.resizeProb

	switch {
	case op <= p1:
		c.actionID = 1
		c.singleSeqSwap(true)
	case op <= p2:
		c.actionID = 2
		c.singleSeqSwap(false)
	case op <= p3:
		c.actionID = 3
		c.doubleSeqSwap()
	case op <= p4:
		c.actionID = 4
		c.preMacros = append(c.preMacros[:0], c.macros...)
		c.resizeOneCluster()
	default:
		c.actionID = 5
		c.preMacros = append(c.preMacros[:0], c.macros...)
		c.expandClusters()
	}
	c.packFloorplan()
}

// restore undoes exactly the sub-state the last operator mutated.
func (c *SACore) restore() {
	if len(c.macros) == 0 {
		return
	}
	switch c.actionID {
	case 1:
		copy(c.posSeq, c.prePosSeq)
	case 2:
		copy(c.negSeq, c.preNegSeq)
	case 3:
		copy(c.posSeq, c.prePosSeq)
		copy(c.negSeq, c.preNegSeq)
	case 4:
		if c.macroID >= 0 {
			c.macros[c.macroID] = c.preMacros[c.macroID]
		}
	case 5:
		copy(c.macros, c.preMacros)
	}
	c.width = c.preWidth
	c.height = c.preHeight
	c.areaPenalty = c.preAreaPenalty
	c.packagePenalty = c.prePackagePenalty
	c.netPenalty = c.preNetPenalty
}

// Initialize packs once via a first perturbation and captures the
// normalization references: package area for the area and package terms,
// half-perimeter for the net term.
func (c *SACore) Initialize() {
	c.perturb()
	c.calPenalty()
	c.normAreaPenalty = c.width * c.height
	c.normPackagePenalty = c.width * c.height
	c.normNetPenalty = c.width + c.height
}

// Run anneals to completion. The cooling factor is derived so the schedule
// lands on minTemperature after maxNumStep steps, compressed by accel.
func (c *SACore) Run(accel float32) {
	c.packFloorplan()

	if c.normAreaPenalty <= 0 {
		c.normAreaPenalty = 1
	}
	if c.normPackagePenalty <= 0 {
		c.normPackagePenalty = 1
	}
	if c.normNetPenalty <= 0 {
		c.normNetPenalty = 1
	}

	cost := c.calNormCost()
	preCost := cost
	temperature := c.initTemperature
	tFactor := float32(math.Exp(math.Log(float64(c.minTemperature/c.initTemperature)) /
		float64(float32(c.maxNumStep)*accel)))

	for step := 1; step <= c.maxNumStep; step++ {
		for i := 0; i < c.numPerturbPerStep; i++ {
			c.perturb()
			cost = c.calNormCost()
			delta := cost - preCost

			accept := float32(1.0)
			if delta > 0 {
				accept = float32(math.Exp(float64(-delta / temperature)))
			}
			if c.rng.Float32() < accept {
				preCost = cost
			} else {
				c.restore()
			}
		}
		temperature *= tFactor
		c.costHistory = append(c.costHistory, preCost)
		c.tempHistory = append(c.tempHistory, temperature)
	}

	c.packFloorplan()
	c.calPenalty()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// QUERIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// IsValid reports whether the final layout meets every net's reach within
// the acceptance threshold.
func (c *SACore) IsValid() bool {
	return c.calNetPenalty() <= constants.NetPenaltyAcceptance
}

func (c *SACore) PackageSize() float32 { return c.width * c.height }
func (c *SACore) Cost() float32        { return c.calNormCost() }
func (c *SACore) NetPenalty() float32  { return c.calNetPenalty() }

func (c *SACore) NormAreaPenalty() float32    { return c.normAreaPenalty }
func (c *SACore) NormPackagePenalty() float32 { return c.normPackagePenalty }
func (c *SACore) NormNetPenalty() float32     { return c.normNetPenalty }
func (c *SACore) CoolingRate() float32        { return c.coolingRate }

func (c *SACore) SetNormAreaPenalty(v float32)    { c.normAreaPenalty = v }
func (c *SACore) SetNormPackagePenalty(v float32) { c.normPackagePenalty = v }
func (c *SACore) SetNormNetPenalty(v float32)     { c.normNetPenalty = v }

// Macros returns a copy of the current chiplet rectangles.
func (c *SACore) Macros() []Chiplet {
	out := make([]Chiplet, len(c.macros))
	copy(out, c.macros)
	return out
}

func (c *SACore) PosSeq() []int { return append([]int(nil), c.posSeq...) }
func (c *SACore) NegSeq() []int { return append([]int(nil), c.negSeq...) }

// ─────────────────────────────── helpers ───────────────────────────────

func sortedKeys(set map[float32]struct{}) []float32 {
	out := make([]float32, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func absf(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}
