package domain

type Port string

const (
	PortTop    Port = "top"
	PortBottom Port = "bottom"
	PortLeft   Port = "left"
	PortRight  Port = "right"
)

// Valid reports whether p is one of the four block sides.
func (p Port) Valid() bool {
	switch p {
	case PortTop, PortBottom, PortLeft, PortRight:
		return true
	}
	return false
}

type Connection struct {
	ID          string `json:"id" yaml:"id"`
	FromBlockID string `json:"fromBlockId" yaml:"fromBlockId"`
	ToBlockID   string `json:"toBlockId" yaml:"toBlockId"`
	FromPort    Port   `json:"fromPort" yaml:"fromPort"`
	ToPort      Port   `json:"toPort" yaml:"toPort"`
}

// Touches reports whether either end of the connection is blockID.
func (c Connection) Touches(blockID string) bool {
	return c.FromBlockID == blockID || c.ToBlockID == blockID
}
