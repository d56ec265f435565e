package canvas

import (
	"fmt"
	"strconv"
	"time"

	"circuitflow/internal/domain"
)

// Action is one canvas update. Actions that fail their preconditions leave
// the state unchanged.
type Action interface {
	apply(State) State
}

// Reduce returns the state that results from applying a to s.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// Select picks the palette kind used by the next Place.
type Select struct {
	Type domain.BlockType `json:"blockType"`
}

func (a Select) apply(s State) State {
	if !a.Type.Valid() {
		return s
	}
	s.Selected = a.Type
	return s
}

type ClearSelection struct{}

func (ClearSelection) apply(s State) State {
	s.Selected = ""
	return s
}

// Place drops a block at the grid cell under the pointer. Without a Type it
// uses the palette selection and clears it; an explicit Type leaves the
// selection alone.
type Place struct {
	Type domain.BlockType `json:"blockType,omitempty"`
	X    float64          `json:"x"`
	Y    float64          `json:"y"`
	Now  time.Time        `json:"-"`
}

func (a Place) apply(s State) State {
	kind := a.Type
	if kind == "" {
		kind = s.Selected
	} else if !kind.Valid() {
		return s
	}
	if kind == "" {
		return s
	}
	now := a.Now
	if now.IsZero() {
		now = time.Now()
	}
	b := domain.Block{
		ID:                blockID(s, kind, now),
		Type:              kind,
		X:                 Snap(a.X),
		Y:                 Snap(a.Y),
		Width:             domain.BlockWidth,
		Height:            domain.BlockHeight,
		ConnectedBlockIDs: []string{},
	}
	blocks := make([]domain.Block, len(s.Blocks), len(s.Blocks)+1)
	copy(blocks, s.Blocks)
	s.Blocks = append(blocks, b)
	if a.Type == "" {
		s.Selected = ""
	}
	return s
}

// blockID is "<type>-<unix millis>", bumped until unique on the canvas.
func blockID(s State, t domain.BlockType, now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := string(t) + "-" + strconv.FormatInt(ms, 10)
		if s.blockIndex(id) < 0 {
			return id
		}
		ms++
	}
}

// BeginDrag opens a drag session on a block at pointer (X, Y).
type BeginDrag struct {
	BlockID string  `json:"blockId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (a BeginDrag) apply(s State) State {
	i := s.blockIndex(a.BlockID)
	if i < 0 {
		return s
	}
	b := s.Blocks[i]
	s.Drag = DragSession{
		BlockID: b.ID,
		OffsetX: a.X - float64(b.X),
		OffsetY: a.Y - float64(b.Y),
	}
	return s
}

// DragTo moves the dragged block so it follows the pointer, snapped to the grid.
type DragTo struct {
	BlockID string  `json:"blockId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (a DragTo) apply(s State) State {
	if !s.Drag.Active() || s.Drag.BlockID != a.BlockID {
		return s
	}
	return moveBlock(s, a.BlockID, Snap(a.X-s.Drag.OffsetX), Snap(a.Y-s.Drag.OffsetY))
}

type EndDrag struct{}

func (EndDrag) apply(s State) State {
	s.Drag = DragSession{}
	return s
}

// Move places a block at (X, Y) snapped to the grid, outside any drag session.
type Move struct {
	BlockID string  `json:"blockId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (a Move) apply(s State) State {
	return moveBlock(s, a.BlockID, Snap(a.X), Snap(a.Y))
}

func moveBlock(s State, id string, x, y int) State {
	i := s.blockIndex(id)
	if i < 0 {
		return s
	}
	if s.Blocks[i].X == x && s.Blocks[i].Y == y {
		return s
	}
	blocks := make([]domain.Block, len(s.Blocks))
	copy(blocks, s.Blocks)
	b := blocks[i].Clone()
	b.X, b.Y = x, y
	blocks[i] = b
	s.Blocks = blocks
	return s
}

// Connect links two blocks from the source's right port to the target's left
// port. Duplicates and self-loops are accepted; an unknown end is ignored.
type Connect struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (a Connect) apply(s State) State {
	fi := s.blockIndex(a.From)
	if fi < 0 || s.blockIndex(a.To) < 0 {
		return s
	}
	id := a.ID
	if id == "" || s.hasConnection(id) {
		id = connectionID(s)
	}
	conns := make([]domain.Connection, len(s.Connections), len(s.Connections)+1)
	copy(conns, s.Connections)
	s.Connections = append(conns, domain.Connection{
		ID:          id,
		FromBlockID: a.From,
		ToBlockID:   a.To,
		FromPort:    domain.PortRight,
		ToPort:      domain.PortLeft,
	})

	if !s.Blocks[fi].HasConnection(a.To) {
		blocks := make([]domain.Block, len(s.Blocks))
		copy(blocks, s.Blocks)
		b := blocks[fi].Clone()
		b.ConnectedBlockIDs = append(b.ConnectedBlockIDs, a.To)
		blocks[fi] = b
		s.Blocks = blocks
	}
	s.PendingConnect = ""
	return s
}

func connectionID(s State) string {
	for n := len(s.Connections) + 1; ; n++ {
		id := fmt.Sprintf("conn-%d", n)
		if !s.hasConnection(id) {
			return id
		}
	}
}

// BeginConnect arms a block as the source of the next CompleteConnect.
type BeginConnect struct {
	BlockID string `json:"blockId"`
}

func (a BeginConnect) apply(s State) State {
	if s.blockIndex(a.BlockID) < 0 {
		return s
	}
	s.PendingConnect = a.BlockID
	s.ControlsFor = ""
	return s
}

// CompleteConnect links the armed source to BlockID.
type CompleteConnect struct {
	ID      string `json:"id"`
	BlockID string `json:"blockId"`
}

func (a CompleteConnect) apply(s State) State {
	if s.PendingConnect == "" {
		return s
	}
	return Connect{ID: a.ID, From: s.PendingConnect, To: a.BlockID}.apply(s)
}

type CancelConnect struct{}

func (CancelConnect) apply(s State) State {
	s.PendingConnect = ""
	return s
}

// Delete removes a block together with every connection that references it.
type Delete struct {
	BlockID string `json:"blockId"`
}

func (a Delete) apply(s State) State {
	if s.blockIndex(a.BlockID) < 0 {
		return s
	}
	blocks := make([]domain.Block, 0, len(s.Blocks)-1)
	for _, b := range s.Blocks {
		if b.ID == a.BlockID {
			continue
		}
		if b.HasConnection(a.BlockID) {
			b = b.Clone()
			b.ConnectedBlockIDs = without(b.ConnectedBlockIDs, a.BlockID)
		}
		blocks = append(blocks, b)
	}
	conns := make([]domain.Connection, 0, len(s.Connections))
	for _, c := range s.Connections {
		if !c.Touches(a.BlockID) {
			conns = append(conns, c)
		}
	}
	s.Blocks = blocks
	s.Connections = conns
	if s.Drag.BlockID == a.BlockID {
		s.Drag = DragSession{}
	}
	if s.ControlsFor == a.BlockID {
		s.ControlsFor = ""
	}
	if s.PendingConnect == a.BlockID {
		s.PendingConnect = ""
	}
	return s
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ToggleControls shows or hides the connect/configure/delete overlay of a
// block. At most one overlay is open at a time.
type ToggleControls struct {
	BlockID string `json:"blockId"`
}

func (a ToggleControls) apply(s State) State {
	if s.blockIndex(a.BlockID) < 0 {
		return s
	}
	if s.ControlsFor == a.BlockID {
		s.ControlsFor = ""
	} else {
		s.ControlsFor = a.BlockID
	}
	return s
}

// Load replaces the canvas contents. Connections whose ends are missing are
// dropped so the result never references an absent block; empty or repeated
// connection ids are reassigned.
type Load struct {
	Blocks      []domain.Block      `json:"blocks"`
	Connections []domain.Connection `json:"connections"`
}

func (a Load) apply(_ State) State {
	out := New()
	ids := make(map[string]struct{}, len(a.Blocks))
	for _, b := range a.Blocks {
		if b.ID == "" {
			continue
		}
		if _, dup := ids[b.ID]; dup {
			continue
		}
		ids[b.ID] = struct{}{}
		out.Blocks = append(out.Blocks, b.Clone())
	}
	for i := range out.Blocks {
		kept := make([]string, 0, len(out.Blocks[i].ConnectedBlockIDs))
		for _, id := range out.Blocks[i].ConnectedBlockIDs {
			if _, ok := ids[id]; ok {
				kept = append(kept, id)
			}
		}
		out.Blocks[i].ConnectedBlockIDs = kept
	}
	for _, c := range a.Connections {
		_, okFrom := ids[c.FromBlockID]
		_, okTo := ids[c.ToBlockID]
		if !okFrom || !okTo {
			continue
		}
		if !c.FromPort.Valid() {
			c.FromPort = domain.PortRight
		}
		if !c.ToPort.Valid() {
			c.ToPort = domain.PortLeft
		}
		if c.ID == "" || out.hasConnection(c.ID) {
			c.ID = connectionID(out)
		}
		out.Connections = append(out.Connections, c)
	}
	return out
}

type Clear struct{}

func (Clear) apply(_ State) State {
	return New()
}
