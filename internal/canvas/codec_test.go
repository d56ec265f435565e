package canvas

import (
	"encoding/json"
	"testing"
)

func TestDecode(t *testing.T) {
	s := New()
	for _, raw := range []string{
		`{"type":"select","payload":{"blockType":"antenna"}}`,
		`{"type":"place","payload":{"x":85,"y":130}}`,
	} {
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatal(err)
		}
		a, err := Decode(env)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		s = Reduce(s, a)
	}
	if len(s.Blocks) != 1 || s.Blocks[0].X != 80 || s.Blocks[0].Y != 120 {
		t.Fatalf("unexpected canvas %+v", s.Blocks)
	}
}

func TestDecode_Unknown(t *testing.T) {
	if _, err := Decode(Envelope{Type: "explode"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	for _, a := range []Action{
		Move{BlockID: "a", X: 40, Y: 80},
		&Connect{From: "a", To: "b"},
		Clear{},
	} {
		env, err := Encode(a)
		if err != nil {
			t.Fatalf("encode %T: %v", a, err)
		}
		back, err := Decode(env)
		if err != nil {
			t.Fatalf("decode %s: %v", env.Type, err)
		}
		if Name(back) != Name(a) {
			t.Errorf("expected %s, got %s", Name(a), Name(back))
		}
	}
	if Name(nil) != "" {
		t.Error("expected empty name for nil action")
	}
}
