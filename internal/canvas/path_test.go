package canvas

import (
	"testing"

	"circuitflow/internal/domain"
)

func TestConnectionPath(t *testing.T) {
	from := domain.Block{X: 80, Y: 160, Width: 80, Height: 80}
	to := domain.Block{X: 400, Y: 120, Width: 80, Height: 80}

	p := ConnectionPath(from, to)

	if p.Start != (Point{160, 200}) {
		t.Errorf("start = %+v, want right-center (160, 200)", p.Start)
	}
	if p.End != (Point{400, 160}) {
		t.Errorf("end = %+v, want left-center (400, 160)", p.End)
	}
	if p.C1 != (Point{280, 200}) || p.C2 != (Point{280, 160}) {
		t.Errorf("control points = %+v %+v", p.C1, p.C2)
	}
	if want := "M 160 200 C 280 200, 280 160, 400 160"; p.D != want {
		t.Errorf("d = %q, want %q", p.D, want)
	}
}

func TestAnchor(t *testing.T) {
	b := domain.Block{X: 40, Y: 80, Width: 80, Height: 80}
	tests := []struct {
		port domain.Port
		want Point
	}{
		{domain.PortTop, Point{80, 80}},
		{domain.PortBottom, Point{80, 160}},
		{domain.PortLeft, Point{40, 120}},
		{domain.PortRight, Point{120, 120}},
	}
	for _, tt := range tests {
		if got := Anchor(b, tt.port); got != tt.want {
			t.Errorf("Anchor(%s) = %+v, want %+v", tt.port, got, tt.want)
		}
	}
}

func TestPaths_SkipsNothingOnValidCanvas(t *testing.T) {
	s := Reduce(New(), Load{
		Blocks: []domain.Block{
			{ID: "a", X: 0, Y: 0, Width: 80, Height: 80},
			{ID: "b", X: 160, Y: 0, Width: 80, Height: 80},
		},
		Connections: []domain.Connection{{ID: "c", FromBlockID: "a", ToBlockID: "b"}},
	})
	paths := s.Paths()
	if len(paths) != 1 || paths[0].ID != "c" {
		t.Fatalf("unexpected paths %+v", paths)
	}
}
