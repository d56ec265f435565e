package mcpserver

import (
	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
)

const (
	GridSize = domain.GridSize
	Padding  = 2 * domain.GridSize // free cells kept around auto-placed blocks
	MaxRowW  = 1200
)

// LayoutEngine handles automatic placement of blocks on the canvas
// so that MCP-created blocks don't overlap existing ones.
type LayoutEngine struct {
	gridSize int
	padding  int
	maxRowW  int
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// rect is a simple axis-aligned bounding box.
type rect struct {
	x, y, w, h int
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

func blockRect(b domain.Block) rect {
	w, h := b.Width, b.Height
	if w == 0 {
		w = domain.BlockWidth
	}
	if h == 0 {
		h = domain.BlockHeight
	}
	return rect{b.X, b.Y, w, h}
}

// NextPosition finds the first grid cell, scanning rows top to bottom, where
// a standard block keeps Padding clear of every existing block.
func (le *LayoutEngine) NextPosition(existing []domain.Block) (int, int) {
	if len(existing) == 0 {
		return 0, 0
	}

	occupied := make([]rect, len(existing))
	maxY := 0
	for i, b := range existing {
		r := blockRect(b)
		occupied[i] = rect{r.x - le.padding, r.y - le.padding, r.w + 2*le.padding, r.h + 2*le.padding}
		if r.y+r.h > maxY {
			maxY = r.y + r.h
		}
	}

	candidate := rect{w: domain.BlockWidth, h: domain.BlockHeight}
	for y := 0; y <= maxY+le.padding; y += le.gridSize {
		for x := 0; x+candidate.w <= le.maxRowW; x += le.gridSize {
			candidate.x, candidate.y = x, y
			overlaps := false
			for _, occ := range occupied {
				if candidate.intersects(occ) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				return x, y
			}
		}
	}

	// Fallback: place below all existing blocks
	return 0, canvas.Snap(float64(maxY + le.padding))
}

// ArrangeGroup lays blocks out left to right from (startX, startY), wrapping
// at MaxRowW. It modifies block positions in place and returns them.
func (le *LayoutEngine) ArrangeGroup(blocks []domain.Block, startX, startY float64) []domain.Block {
	left := canvas.Snap(startX)
	x, y := left, canvas.Snap(startY)
	rowHeight := 0

	for i := range blocks {
		r := blockRect(blocks[i])
		if x > left && x+r.w > le.maxRowW {
			x = left
			y += rowHeight + le.padding
			rowHeight = 0
		}
		blocks[i].X = x
		blocks[i].Y = y
		if r.h > rowHeight {
			rowHeight = r.h
		}
		x += r.w + le.padding
	}

	return blocks
}
