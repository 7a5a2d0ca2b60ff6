package serve

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
)

// MessageType names a message on the session socket.
type MessageType string

// Client to server.
const (
	MessagePointer MessageType = "pointer"
	MessageWheel   MessageType = "wheel"
	MessageKey     MessageType = "key"
	MessageCommand MessageType = "command"
	MessageSave    MessageType = "save"
	MessageLoad    MessageType = "load"
	MessageList    MessageType = "list"
	MessageDelete  MessageType = "delete"
	MessagePing    MessageType = "ping"
)

// Server to client.
const (
	MessageState      MessageType = "state"
	MessageSaveDialog MessageType = "save_dialog"
	MessageSaved      MessageType = "saved"
	MessageLoaded     MessageType = "loaded"
	MessageRecords    MessageType = "records"
	MessageDeleted    MessageType = "deleted"
	MessageNotice     MessageType = "notice"
	MessageError      MessageType = "error"
	MessagePong       MessageType = "pong"
)

// Message is the envelope for everything on the socket.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandPayload carries an editing command that has no pointer or key
// gesture, such as adding a node from the palette or editing fields in
// the side panel.
type CommandPayload struct {
	Name string `json:"name"`

	// add_node
	Template    string      `json:"template,omitempty"`
	Position    *geom.Point `json:"position,omitempty"`
	Label       *string     `json:"label,omitempty"`
	Description *string     `json:"description,omitempty"`
	Icon        *string     `json:"icon,omitempty"`
	Color       *string     `json:"color,omitempty"`

	// update_node, delete_node, update_edge, delete_edge
	ID string `json:"id,omitempty"`

	// connect
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// update_edge
	Style         *string       `json:"style,omitempty"`
	Curvature     *float64      `json:"curvature,omitempty"`
	ControlPoints *[]geom.Point `json:"controlPoints,omitempty"`
}

// command builds the editor command the payload names.
func (p CommandPayload) command() (editor.Command, error) {
	switch p.Name {
	case "add_node":
		var pos geom.Point
		if p.Position != nil {
			pos = *p.Position
		}
		if p.Template == "" {
			n := graph.NewCustomNode(deref(p.Label), deref(p.Description), deref(p.Icon), deref(p.Color), pos)
			return editor.AddNode{Node: n}, nil
		}
		n, err := graph.NewNodeFromTemplate(p.Template, pos)
		if err != nil {
			return nil, err
		}
		override(&n.Label, p.Label)
		override(&n.Description, p.Description)
		override(&n.Icon, p.Icon)
		override(&n.Color, p.Color)
		return editor.AddNode{Node: n}, nil

	case "update_node":
		return editor.UpdateNode{ID: p.ID, Patch: graph.NodePatch{
			Label:       p.Label,
			Description: p.Description,
			Icon:        p.Icon,
			Color:       p.Color,
			Position:    p.Position,
		}}, nil

	case "delete_node":
		return editor.DeleteNode{ID: p.ID}, nil

	case "select_node":
		return editor.SelectNode{ID: p.ID}, nil

	case "connect":
		return editor.Connect{From: p.From, To: p.To, Label: deref(p.Label)}, nil

	case "update_edge":
		patch := graph.EdgePatch{
			Label:         p.Label,
			Curvature:     p.Curvature,
			ControlPoints: p.ControlPoints,
		}
		if p.Style != nil {
			st := graph.EdgeStyle(*p.Style)
			patch.Style = &st
		}
		return editor.UpdateEdge{ID: p.ID, Patch: patch}, nil

	case "delete_edge":
		return editor.DeleteEdge{ID: p.ID}, nil

	case "edit_edge":
		return editor.EditEdge{ID: p.ID}, nil
	}
	return nil, fmt.Errorf("unknown command: %q", p.Name)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func override(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

type SavePayload struct {
	Name string `json:"name"`
}

// RefPayload names a saved funnel by id, id prefix, or name.
type RefPayload struct {
	ID string `json:"id"`
}

// RecordSummary describes a saved funnel without its graph.
type RecordSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func summarize(r persist.Record) RecordSummary {
	return RecordSummary{
		ID:        r.ID,
		Name:      r.Name,
		Nodes:     len(r.Graph.Nodes),
		Edges:     len(r.Graph.Connections),
		UpdatedAt: r.UpdatedAt,
	}
}

// newMessage encodes payload. A payload that cannot be encoded turns into
// an error message so the client still hears back.
func newMessage(t MessageType, payload any) Message {
	msg := Message{Type: t}
	if payload == nil {
		return msg
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("serve: encode %s: %v", t, err)
		data, _ = json.Marshal(ErrorPayload{Message: fmt.Sprintf("encode %s: %v", t, err)})
		return Message{Type: MessageError, Payload: data}
	}
	msg.Payload = data
	return msg
}

func NewStateMessage(v editor.View) Message {
	return newMessage(MessageState, v)
}

func NewNoticeMessage(n editor.Notice) Message {
	return newMessage(MessageNotice, n)
}

func NewRecordMessage(t MessageType, r persist.Record) Message {
	return newMessage(t, summarize(r))
}

func NewRecordsMessage(recs []persist.Record) Message {
	out := make([]RecordSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, summarize(r))
	}
	return newMessage(MessageRecords, out)
}

func NewErrorMessage(err error) Message {
	return newMessage(MessageError, ErrorPayload{Message: err.Error()})
}
