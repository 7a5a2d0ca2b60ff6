// Package replay drives an editing session from a YAML script of pointer,
// wheel, and key events, as if a user had performed them on the canvas.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/viewport"
	"gopkg.in/yaml.v3"
)

var ErrEmptyStep = errors.New("step has no action")

// Script is a recorded session.
type Script struct {
	Name     string             `yaml:"name,omitempty"`
	Viewport *viewport.Viewport `yaml:"viewport,omitempty"`
	Steps    []Step             `yaml:"steps"`
}

// Step is one user action. Exactly one field is set.
type Step struct {
	Pointer *editor.PointerEvent `yaml:"pointer,omitempty"`
	Wheel   *editor.WheelEvent   `yaml:"wheel,omitempty"`
	Key     *editor.KeyEvent     `yaml:"key,omitempty"`
	Drop    *Drop                `yaml:"drop,omitempty"`
	Save    string               `yaml:"save,omitempty"`
}

// Drop places a node from the palette at a screen point. An empty Template
// drops a custom node.
type Drop struct {
	Template string  `yaml:"template,omitempty"`
	Label    string  `yaml:"label,omitempty"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Pointer != nil, s.Wheel != nil, s.Key != nil, s.Drop != nil, s.Save != ""} {
		if set {
			n++
		}
	}
	return n
}

// Outcome reports what one step did.
type Outcome struct {
	Step    int
	Command string
	Notice  *editor.Notice
	Err     error
}

// Rejected reports whether the step's command was refused.
func (o Outcome) Rejected() bool { return o.Err != nil }

// Parse decodes a script. Unknown fields are errors.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("replay parse: %w", err)
	}
	for i, st := range s.Steps {
		switch st.actions() {
		case 0:
			return nil, fmt.Errorf("step %d: %w", i+1, ErrEmptyStep)
		case 1:
		default:
			return nil, fmt.Errorf("step %d: more than one action", i+1)
		}
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Run feeds every step to ed in order. A rejected step does not stop the
// script; it is reported in its Outcome.
func Run(ctx context.Context, ed *editor.Editor, s *Script) []Outcome {
	if s.Viewport != nil {
		ed.SetViewport(*s.Viewport)
	}

	out := make([]Outcome, 0, len(s.Steps))
	for i, st := range s.Steps {
		if ctx.Err() != nil {
			out = append(out, Outcome{Step: i + 1, Err: ctx.Err()})
			break
		}
		ed.DismissNotice()
		o := step(ctx, ed, st)
		o.Step = i + 1
		o.Notice = ed.Notice()
		out = append(out, o)
	}
	return out
}

func step(ctx context.Context, ed *editor.Editor, st Step) Outcome {
	var cmd editor.Command
	switch {
	case st.Pointer != nil:
		cmd = ed.ResolvePointer(*st.Pointer)
	case st.Wheel != nil:
		cmd = ed.ResolveWheel(*st.Wheel)
	case st.Key != nil:
		cmd = ed.ResolveKey(*st.Key)
	case st.Drop != nil:
		n, err := st.Drop.node(ed)
		if err != nil {
			return Outcome{Command: "add_node", Err: err}
		}
		cmd = editor.AddNode{Node: n}
	case st.Save != "":
		_, err := ed.Save(ctx, st.Save)
		return Outcome{Command: "save", Err: err}
	}

	if cmd == nil {
		return Outcome{}
	}
	return Outcome{Command: cmd.Name(), Err: ed.Apply(cmd)}
}

func (d Drop) node(ed *editor.Editor) (graph.Node, error) {
	at := ed.ToCanvas(d.X, d.Y)
	if d.Template == "" {
		return graph.NewCustomNode(d.Label, "", "", "", at), nil
	}
	n, err := graph.NewNodeFromTemplate(d.Template, at)
	if err != nil {
		return graph.Node{}, err
	}
	if d.Label != "" {
		n.Label = d.Label
	}
	return n, nil
}
