package editor

import "strings"

// Button is a pointer button.
type Button int

const (
	Primary Button = iota
	Middle
	Secondary
)

// Mods are the modifier keys held during an event.
type Mods struct {
	Shift bool `json:"shift,omitempty" yaml:"shift,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty" yaml:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty" yaml:"meta,omitempty"`
	Alt   bool `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// Has reports whether the named modifier is held. "ctrl" also matches the
// meta (command) key.
func (m Mods) Has(name string) bool {
	switch strings.ToLower(name) {
	case "shift":
		return m.Shift
	case "alt", "option":
		return m.Alt
	case "meta", "cmd":
		return m.Meta
	case "ctrl", "control":
		return m.Ctrl || m.Meta
	}
	return false
}

// PointerKind distinguishes pointer events.
type PointerKind string

const (
	PointerDown PointerKind = "down"
	PointerMove PointerKind = "move"
	PointerUp   PointerKind = "up"
)

// PointerEvent is a pointer event in screen coordinates.
type PointerEvent struct {
	Kind   PointerKind `json:"kind" yaml:"kind"`
	X      float64     `json:"x" yaml:"x"`
	Y      float64     `json:"y" yaml:"y"`
	Button Button      `json:"button,omitempty" yaml:"button,omitempty"`
	Mods   Mods        `json:"mods" yaml:"mods,omitempty"`
}

// WheelEvent is a scroll gesture. Positive DeltaY scrolls down.
type WheelEvent struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	DeltaY float64 `json:"deltaY" yaml:"deltaY"`
	Mods   Mods    `json:"mods" yaml:"mods,omitempty"`
}

// KeyEvent is a key press, named the way browsers name keys ("Escape",
// "Delete", "s").
type KeyEvent struct {
	Key  string `json:"key" yaml:"key"`
	Mods Mods   `json:"mods" yaml:"mods,omitempty"`
}
