// Package gainheap is the gain-bucket priority queue behind the K-way
// refinement pass. A plain max-heap would do, but the refiner must retarget
// and delete arbitrary vertices mid-pass, so every cell's heap slot is
// tracked in a vertex→position map. One heap exists per destination
// partition; the active flag marks buckets that survived seeding.
package gainheap

import "errors"

var (
	ErrVertexUnknown = errors.New("gainheap: vertex not present")
	ErrVertexExists  = errors.New("gainheap: vertex already present")
)

// Cell is an immutable move proposal. Positive gain improves the solution.
type Cell struct {
	Vertex int
	From   int
	To     int
	Gain   float32
}

// Heap is a max-gain binary heap with O(1) vertex lookup.
type Heap struct {
	cells    []Cell
	posOf    []int // vertex id → heap slot, −1 when absent
	maxLevel int   // candidate scan bound for BestCandidate
	active   bool
}

// New sizes the position map for totalVertices and bounds candidate scans
// at maxTraverseLevel entries.
func New(totalVertices, maxTraverseLevel int) *Heap {
	posOf := make([]int, totalVertices)
	for i := range posOf {
		posOf[i] = -1
	}
	return &Heap{posOf: posOf, maxLevel: maxTraverseLevel}
}

func (h *Heap) SetActive()   { h.active = true }
func (h *Heap) SetDeactive() { h.active = false }
func (h *Heap) Active() bool { return h.active }

func (h *Heap) Len() int    { return len(h.cells) }
func (h *Heap) Empty() bool { return len(h.cells) == 0 }

// Contains reports whether the vertex currently has a cell in this bucket.
func (h *Heap) Contains(v int) bool {
	return v >= 0 && v < len(h.posOf) && h.posOf[v] >= 0
}

// Push inserts a new proposal. The vertex must not already be present.
func (h *Heap) Push(c Cell) error {
	if h.Contains(c.Vertex) {
		return ErrVertexExists
	}
	h.cells = append(h.cells, c)
	h.posOf[c.Vertex] = len(h.cells) - 1
	h.up(len(h.cells) - 1)
	return nil
}

// Max returns the best proposal without removing it.
func (h *Heap) Max() (Cell, bool) {
	if len(h.cells) == 0 {
		return Cell{}, false
	}
	return h.cells[0], true
}

// ExtractMax removes and returns the best proposal.
func (h *Heap) ExtractMax() (Cell, bool) {
	if len(h.cells) == 0 {
		return Cell{}, false
	}
	top := h.cells[0]
	h.swap(0, len(h.cells)-1)
	h.posOf[top.Vertex] = -1
	h.cells = h.cells[:len(h.cells)-1]
	if len(h.cells) > 0 {
		h.down(0)
	}
	return top, true
}

// BestCandidate scans the highest-gain region of the heap for the first
// proposal the caller's legality check accepts. The scan is bounded by the
// traverse level so a bucket full of illegal moves cannot stall the pass.
func (h *Heap) BestCandidate(legal func(Cell) bool) (Cell, bool) {
	limit := h.maxLevel
	if limit > len(h.cells) {
		limit = len(h.cells)
	}
	// The slice is heap-ordered, so a prefix scan visits the top levels in
	// near-gain order, which is all the bounded search needs.
	for i := 0; i < limit; i++ {
		if legal(h.cells[i]) {
			return h.cells[i], true
		}
	}
	return Cell{}, false
}

// ChangePriority retargets or re-scores the vertex's cell in place.
func (h *Heap) ChangePriority(v int, c Cell) error {
	if !h.Contains(v) {
		return ErrVertexUnknown
	}
	i := h.posOf[v]
	old := h.cells[i].Gain
	h.cells[i] = c
	if c.Gain > old {
		h.up(i)
	} else if c.Gain < old {
		h.down(i)
	}
	return nil
}

// Remove deletes the vertex's cell outright.
func (h *Heap) Remove(v int) error {
	if !h.Contains(v) {
		return ErrVertexUnknown
	}
	i := h.posOf[v]
	last := len(h.cells) - 1
	h.swap(i, last)
	h.posOf[v] = -1
	h.cells = h.cells[:last]
	if i < last {
		h.down(i)
		h.up(i)
	}
	return nil
}

// Clear drops every cell and deactivates the bucket.
func (h *Heap) Clear() {
	for _, c := range h.cells {
		h.posOf[c.Vertex] = -1
	}
	h.cells = h.cells[:0]
	h.active = false
}

// ─────────────────────────── heap maintenance ───────────────────────────

func (h *Heap) swap(i, j int) {
	h.cells[i], h.cells[j] = h.cells[j], h.cells[i]
	h.posOf[h.cells[i].Vertex] = i
	h.posOf[h.cells[j].Vertex] = j
}

func (h *Heap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.cells[i].Gain <= h.cells[parent].Gain {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap) down(i int) {
	n := len(h.cells)
	for {
		l, r := 2*i+1, 2*i+2
		best := i
		if l < n && h.cells[l].Gain > h.cells[best].Gain {
			best = l
		}
		if r < n && h.cells[r].Gain > h.cells[best].Gain {
			best = r
		}
		if best == i {
			return
		}
		h.swap(i, best)
		i = best
	}
}
