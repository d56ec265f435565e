package canvas

import (
	"fmt"

	"circuitflow/internal/domain"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is a cubic Bézier between two blocks plus its SVG path data.
type Path struct {
	Start Point  `json:"start"`
	C1    Point  `json:"c1"`
	C2    Point  `json:"c2"`
	End   Point  `json:"end"`
	D     string `json:"d"`
}

// RoutedConnection pairs a connection with its rendered curve.
type RoutedConnection struct {
	domain.Connection
	Path Path `json:"path"`
}

// Anchor returns the midpoint of a block side.
func Anchor(b domain.Block, p domain.Port) Point {
	x, y := float64(b.X), float64(b.Y)
	w, h := float64(b.Width), float64(b.Height)
	switch p {
	case domain.PortTop:
		return Point{x + w/2, y}
	case domain.PortBottom:
		return Point{x + w/2, y + h}
	case domain.PortLeft:
		return Point{x, y + h/2}
	default:
		return Point{x + w, y + h/2}
	}
}

// ConnectionPath draws the S-curve from the right-center of from to the
// left-center of to. Both control points sit on the horizontal midpoint and
// keep the y of their own endpoint.
func ConnectionPath(from, to domain.Block) Path {
	start := Anchor(from, domain.PortRight)
	end := Anchor(to, domain.PortLeft)
	mid := (start.X + end.X) / 2
	p := Path{
		Start: start,
		C1:    Point{mid, start.Y},
		C2:    Point{mid, end.Y},
		End:   end,
	}
	p.D = fmt.Sprintf("M %g %g C %g %g, %g %g, %g %g",
		p.Start.X, p.Start.Y, p.C1.X, p.C1.Y, p.C2.X, p.C2.Y, p.End.X, p.End.Y)
	return p
}

// Paths computes the curve of every connection on the canvas.
func (s State) Paths() []RoutedConnection {
	out := make([]RoutedConnection, 0, len(s.Connections))
	for _, c := range s.Connections {
		from, ok := s.Block(c.FromBlockID)
		if !ok {
			continue
		}
		to, ok := s.Block(c.ToBlockID)
		if !ok {
			continue
		}
		out = append(out, RoutedConnection{Connection: c, Path: ConnectionPath(from, to)})
	}
	return out
}
