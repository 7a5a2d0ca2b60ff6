// Package selection tracks the single selected node and the single
// connection being edited. The two are mutually exclusive.
package selection

// Kind says what, if anything, is selected.
type Kind string

const (
	None Kind = "none"
	Node Kind = "node"
	Edge Kind = "edge"
)

// Manager holds at most one selected node or one edge being edited.
type Manager struct {
	kind Kind
	id   string
}

// SelectNode selects a node and stops editing any connection.
func (m *Manager) SelectNode(id string) {
	m.kind, m.id = Node, id
}

// EditEdge opens a connection for editing and deselects any node.
func (m *Manager) EditEdge(id string) {
	m.kind, m.id = Edge, id
}

// Clear drops both the node selection and the edited connection.
func (m *Manager) Clear() {
	m.kind, m.id = None, ""
}

// Kind returns what is currently selected.
func (m *Manager) Kind() Kind {
	if m.kind == "" {
		return None
	}
	return m.kind
}

// Node returns the selected node id.
func (m *Manager) Node() (string, bool) {
	if m.kind != Node {
		return "", false
	}
	return m.id, true
}

// Edge returns the id of the connection being edited.
func (m *Manager) Edge() (string, bool) {
	if m.kind != Edge {
		return "", false
	}
	return m.id, true
}

// Forget clears the selection if it points at id. Callers use it after
// deleting a node or connection.
func (m *Manager) Forget(id string) {
	if m.id == id {
		m.Clear()
	}
}

// State is the serializable form of the selection.
type State struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// State returns the current selection.
func (m *Manager) State() State {
	return State{Kind: m.Kind(), ID: m.id}
}
