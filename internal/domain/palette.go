package domain

// PaletteEntry describes one selectable block kind.
type PaletteEntry struct {
	Type        BlockType `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// PaletteCategory groups palette entries for the library panel.
type PaletteCategory struct {
	Name    string         `json:"name"`
	Entries []PaletteEntry `json:"entries"`
}

var palette = []PaletteCategory{
	{Name: "Power Blocks", Entries: []PaletteEntry{
		{BlockTypePowerSource, "Power Block", "Workflow trigger"},
		{BlockTypeTransformer, "Transform Block", "Data transformer"},
		{BlockTypeCapacitor, "Buffer Block", "Data buffer"},
	}},
	{Name: "Logic Pieces", Entries: []PaletteEntry{
		{BlockTypeMicrochip, "AI Chip", "AI processing unit"},
		{BlockTypeLogicGate, "Logic Gate", "Conditional logic"},
		{BlockTypeMemoryChip, "Memory Cube", "Data storage"},
	}},
	{Name: "Connect Blocks", Entries: []PaletteEntry{
		{BlockTypeAntenna, "API Block", "External API calls"},
		{BlockTypeTransmitter, "Email Block", "Email notifications"},
		{BlockTypeReceiver, "Webhook Block", "Receive webhooks"},
	}},
	{Name: "Output Pieces", Entries: []PaletteEntry{
		{BlockTypeDisplay, "Display Block", "Show results"},
		{BlockTypeScheduler, "Timer Block", "Time-based actions"},
		{BlockTypeMediaOut, "Media Block", "Generate media"},
	}},
}

var paletteIndex = func() map[BlockType]PaletteEntry {
	m := make(map[BlockType]PaletteEntry)
	for _, c := range palette {
		for _, e := range c.Entries {
			m[e.Type] = e
		}
	}
	return m
}()

// Palette returns a copy of the block library grouped by category.
func Palette() []PaletteCategory {
	out := make([]PaletteCategory, len(palette))
	for i, c := range palette {
		out[i] = PaletteCategory{Name: c.Name, Entries: append([]PaletteEntry(nil), c.Entries...)}
	}
	return out
}

// LookupPalette returns the palette entry for t.
func LookupPalette(t BlockType) (PaletteEntry, bool) {
	e, ok := paletteIndex[t]
	return e, ok
}
