package domain

import "strings"

// Grid geometry shared by placement, drag and layout.
const (
	GridSize    = 40
	BlockWidth  = 80
	BlockHeight = 80
)

type BlockType string

const (
	BlockTypePowerSource BlockType = "power-source"
	BlockTypeTransformer BlockType = "transformer"
	BlockTypeCapacitor   BlockType = "capacitor"
	BlockTypeMicrochip   BlockType = "microchip"
	BlockTypeLogicGate   BlockType = "logic-gate"
	BlockTypeMemoryChip  BlockType = "memory-chip"
	BlockTypeAntenna     BlockType = "antenna"
	BlockTypeTransmitter BlockType = "transmitter"
	BlockTypeReceiver    BlockType = "receiver"
	BlockTypeDisplay     BlockType = "display"
	BlockTypeScheduler   BlockType = "scheduler"
	BlockTypeMediaOut    BlockType = "media-out"
)

// Label renders a block type for display: "memory-chip" becomes "Memory Chip".
func (t BlockType) Label() string {
	words := strings.Split(string(t), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Valid reports whether t is one of the palette kinds.
func (t BlockType) Valid() bool {
	_, ok := paletteIndex[t]
	return ok
}

type Block struct {
	ID                string    `json:"id" yaml:"id"`
	Type              BlockType `json:"type" yaml:"type"`
	X                 int       `json:"x" yaml:"x"`
	Y                 int       `json:"y" yaml:"y"`
	Width             int       `json:"width" yaml:"width"`
	Height            int       `json:"height" yaml:"height"`
	ConnectedBlockIDs []string  `json:"connectedBlockIds" yaml:"connectedBlockIds"`
}

// Clone returns a deep copy so reducers never share slices between states.
func (b Block) Clone() Block {
	out := b
	if b.ConnectedBlockIDs != nil {
		out.ConnectedBlockIDs = append([]string(nil), b.ConnectedBlockIDs...)
	}
	return out
}

// HasConnection reports whether id is listed in ConnectedBlockIDs.
func (b Block) HasConnection(id string) bool {
	for _, c := range b.ConnectedBlockIDs {
		if c == id {
			return true
		}
	}
	return false
}
