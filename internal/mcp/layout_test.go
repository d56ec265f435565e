package mcpserver

import (
	"testing"

	"circuitflow/internal/domain"
)

func block(id string, x, y int) domain.Block {
	return domain.Block{ID: id, X: x, Y: y, Width: domain.BlockWidth, Height: domain.BlockHeight}
}

func TestNextPosition_EmptyCanvas(t *testing.T) {
	le := NewLayoutEngine()
	x, y := le.NextPosition(nil)
	if x != 0 || y != 0 {
		t.Errorf("expected (0, 0) for empty canvas, got (%d, %d)", x, y)
	}
}

func TestNextPosition_AvoidsExistingBlocks(t *testing.T) {
	le := NewLayoutEngine()
	existing := []domain.Block{
		block("a", 0, 0),
		block("b", 200, 0),
		block("c", 480, 120),
	}
	x, y := le.NextPosition(existing)

	if x%GridSize != 0 || y%GridSize != 0 {
		t.Errorf("position (%d, %d) is off the grid", x, y)
	}
	r := rect{x, y, domain.BlockWidth, domain.BlockHeight}
	for _, b := range existing {
		padded := rect{b.X - Padding, b.Y - Padding, b.Width + Padding*2, b.Height + Padding*2}
		if r.intersects(padded) {
			t.Errorf("position (%d, %d) crowds block %s at (%d, %d)", x, y, b.ID, b.X, b.Y)
		}
	}
}

func TestNextPosition_FirstFreeCell(t *testing.T) {
	le := NewLayoutEngine()
	x, y := le.NextPosition([]domain.Block{block("a", 0, 0)})
	// 80 wide + 80 padding
	if x != 160 || y != 0 {
		t.Errorf("got (%d, %d), want (160, 0)", x, y)
	}
}

func TestArrangeGroup(t *testing.T) {
	le := NewLayoutEngine()
	blocks := make([]domain.Block, 9)
	for i := range blocks {
		blocks[i] = block(string(rune('a'+i)), 0, 0)
	}

	arranged := le.ArrangeGroup(blocks, 15, 55)

	if arranged[0].X != 0 || arranged[0].Y != 40 {
		t.Errorf("first block at (%d, %d), want (0, 40)", arranged[0].X, arranged[0].Y)
	}
	for i := 0; i < len(arranged); i++ {
		a := blockRect(arranged[i])
		if a.x+a.w > MaxRowW {
			t.Errorf("block %d overflows the row: x=%d", i, a.x)
		}
		if a.x%GridSize != 0 || a.y%GridSize != 0 {
			t.Errorf("block %d off the grid: (%d, %d)", i, a.x, a.y)
		}
		for j := i + 1; j < len(arranged); j++ {
			if a.intersects(blockRect(arranged[j])) {
				t.Errorf("blocks %d and %d overlap", i, j)
			}
		}
	}
	if arranged[len(arranged)-1].Y == arranged[0].Y {
		t.Error("expected the group to wrap onto a second row")
	}
}
