// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Floorplan Geometry
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Chiplet Rectangles & Bundled Nets
//
// Description:
//   Value types for the sequence-pair annealer. A Chiplet is one partition's
//   rectangle with a halo margin; a BundledNet aggregates every surviving
//   hyperedge between two chiplets of the coarsened netlist.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package floorplan

import (
	"math"

	"chipletpart/constants"
)

// BundledNet is a two-terminal chiplet-level connection. Multi-vertex
// hyperedges are invalid at this level; the coarsener guarantees pairs.
type BundledNet struct {
	TermA  int
	TermB  int
	Weight float32
	Reach  float32
	IoArea float32
}

// Chiplet is a soft rectangle. Width and height describe the die itself;
// the effective packing extent adds the halo on all four sides. Resizes
// preserve area and clamp aspect ratio to [MinAspectRatio, MaxAspectRatio].
type Chiplet struct {
	X, Y          float32
	Width, Height float32
	MinArea       float32
	Halo          float32
}

// PackWidth is the extent the packer reserves: die plus both halos.
func (c *Chiplet) PackWidth() float32  { return c.Width + 2*c.Halo }
func (c *Chiplet) PackHeight() float32 { return c.Height + 2*c.Halo }

// RealX is the die origin inside the halo.
func (c *Chiplet) RealX() float32      { return c.X + c.Halo }
func (c *Chiplet) RealY() float32      { return c.Y + c.Halo }
func (c *Chiplet) RealWidth() float32  { return c.Width }
func (c *Chiplet) RealHeight() float32 { return c.Height }

func (c *Chiplet) Area() float32 { return c.Width * c.Height }

// SetWidth reshapes the die to the requested packing width, preserving area
// and respecting the aspect-ratio clamp. Requests smaller than the halo
// margin are ignored.
func (c *Chiplet) SetWidth(w float32) {
	if w <= 2*c.Halo {
		return
	}
	area := c.Width * c.Height
	if c.MinArea > area {
		area = c.MinArea
	}
	minW := float32(math.Sqrt(float64(area / constants.MaxAspectRatio)))
	maxW := float32(math.Sqrt(float64(area / constants.MinAspectRatio)))
	c.Width = clamp(w-2*c.Halo, minW, maxW)
	c.Height = area / c.Width
}

// SetHeight mirrors SetWidth on the other axis.
func (c *Chiplet) SetHeight(h float32) {
	if h <= 2*c.Halo {
		return
	}
	area := c.Width * c.Height
	if c.MinArea > area {
		area = c.MinArea
	}
	maxH := float32(math.Sqrt(float64(area * constants.MaxAspectRatio)))
	minH := float32(math.Sqrt(float64(area * constants.MinAspectRatio)))
	c.Height = clamp(h-2*c.Halo, minH, maxH)
	c.Width = area / c.Height
}

// SetShape grows the die toward a target packing extent, keeping the new
// aspect ratio. The area never drops below the stored minimum. Shrinking
// requests are ignored; only expansion passes through here.
func (c *Chiplet) SetShape(w, h float32) {
	if w <= c.PackWidth() || h <= c.PackHeight() {
		return
	}
	c.Width = w - 2*c.Halo
	c.Height = h - 2*c.Halo
	aspect := c.Width / c.Height
	area := c.Width * c.Height
	if c.MinArea > area {
		area = c.MinArea
	}
	c.Height = float32(math.Sqrt(float64(area / aspect)))
	c.Width = area / c.Height
}

// ResizeRandomly reshapes to the given aspect ratio at preserved area.
func (c *Chiplet) ResizeRandomly(aspect float32) {
	area := c.Width * c.Height
	if c.MinArea > area {
		area = c.MinArea
	}
	c.Height = float32(math.Sqrt(float64(area / aspect)))
	c.Width = area / c.Height
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
