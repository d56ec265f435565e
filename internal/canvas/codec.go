package canvas

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Envelope is the wire form of an action: {"type": "place", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var actionFactories = map[string]func() Action{
	"select":           func() Action { return &Select{} },
	"clear_selection":  func() Action { return &ClearSelection{} },
	"place":            func() Action { return &Place{} },
	"begin_drag":       func() Action { return &BeginDrag{} },
	"drag_to":          func() Action { return &DragTo{} },
	"end_drag":         func() Action { return &EndDrag{} },
	"move":             func() Action { return &Move{} },
	"connect":          func() Action { return &Connect{} },
	"begin_connect":    func() Action { return &BeginConnect{} },
	"complete_connect": func() Action { return &CompleteConnect{} },
	"cancel_connect":   func() Action { return &CancelConnect{} },
	"delete":           func() Action { return &Delete{} },
	"toggle_controls":  func() Action { return &ToggleControls{} },
	"load":             func() Action { return &Load{} },
	"clear":            func() Action { return &Clear{} },
}

var actionNames = func() map[reflect.Type]string {
	m := make(map[reflect.Type]string, len(actionFactories))
	for name, f := range actionFactories {
		m[reflect.TypeOf(f()).Elem()] = name
	}
	return m
}()

// Name returns the wire name of a, or "" for an unknown action.
func Name(a Action) string {
	t := reflect.TypeOf(a)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return actionNames[t]
}

// Encode is the inverse of Decode.
func Encode(a Action) (Envelope, error) {
	name := Name(a)
	if name == "" {
		return Envelope{}, fmt.Errorf("unknown action %T", a)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return Envelope{Type: name, Payload: raw}, nil
}

// Decode turns an envelope into an Action.
func Decode(env Envelope) (Action, error) {
	factory, ok := actionFactories[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", env.Type)
	}
	a := factory()
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return a, nil
}
