package serve

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu      sync.Mutex
	actions []string
}

func (l *eventLog) record(action, target, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.actions...)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *eventLog) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	srv := New(persist.NewMemoryStore(), Options{Owner: "tester", Editor: editor.DefaultConfig()})
	events := &eventLog{}
	srv.Log = events.record

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, events
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ MessageType, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(newMessage(typ, payload)))
}

// await reads until a message of type want arrives.
func await(t *testing.T, conn *websocket.Conn, want MessageType) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func awaitState(t *testing.T, conn *websocket.Conn) editor.View {
	t.Helper()
	var v editor.View
	require.NoError(t, json.Unmarshal(await(t, conn, MessageState).Payload, &v))
	return v
}

func strPtr(s string) *string { return &s }

// twoNodes adds Google Ads at (100,150) and a custom node at (400,150) and
// returns their ids.
func twoNodes(t *testing.T, conn *websocket.Conn) (string, string) {
	t.Helper()
	awaitState(t, conn)

	send(t, conn, MessageCommand, CommandPayload{Name: "add_node", Template: "google_ads", Position: &geom.Point{X: 100, Y: 150}})
	v := awaitState(t, conn)
	require.Len(t, v.Nodes, 1)
	a := v.Nodes[0].ID

	send(t, conn, MessageCommand, CommandPayload{Name: "add_node", Label: strPtr("Thank you"), Position: &geom.Point{X: 400, Y: 150}})
	v = awaitState(t, conn)
	require.Len(t, v.Nodes, 2)
	return a, v.Nodes[1].ID
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestInitialState(t *testing.T) {
	srv, ts, events := newTestServer(t)
	conn := dial(t, ts)

	v := awaitState(t, conn)
	assert.Empty(t, v.Nodes)
	assert.Equal(t, 1.0, v.Viewport.Zoom)
	assert.Equal(t, int64(1), srv.Sessions())
	assert.Contains(t, events.snapshot(), "serve.connect")
}

func TestDrawConnectionWithPointer(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	a, b := twoNodes(t, conn)

	// Outgoing port of A sits at (300,190).
	send(t, conn, MessagePointer, editor.PointerEvent{Kind: editor.PointerDown, X: 300, Y: 190})
	v := awaitState(t, conn)
	assert.Equal(t, "drawing_connection", string(v.Gesture.State))
	require.NotNil(t, v.Pending)

	send(t, conn, MessagePointer, editor.PointerEvent{Kind: editor.PointerDown, X: 450, Y: 190})
	v = awaitState(t, conn)
	assert.Equal(t, "idle", string(v.Gesture.State))
	require.Len(t, v.Routes, 1)
	assert.Equal(t, "curved", string(v.Routes[0].Style))
	assert.Equal(t, []string{b}, v.Nodes[0].ConnectionIDs)
	assert.Equal(t, a, v.Nodes[0].ID)
}

func TestRejectedCommandSendsNotice(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	a, _ := twoNodes(t, conn)

	send(t, conn, MessageCommand, CommandPayload{Name: "connect", From: a, To: a})
	var n editor.Notice
	require.NoError(t, json.Unmarshal(await(t, conn, MessageNotice).Payload, &n))
	assert.Equal(t, editor.LevelWarning, n.Level)

	v := awaitState(t, conn)
	assert.Empty(t, v.Routes)
}

func TestUpdateEdgeCommand(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	a, b := twoNodes(t, conn)

	send(t, conn, MessageCommand, CommandPayload{Name: "connect", From: a, To: b, Label: strPtr("click")})
	v := awaitState(t, conn)
	require.Len(t, v.Routes, 1)

	style := "orthogonal"
	send(t, conn, MessageCommand, CommandPayload{Name: "update_edge", ID: v.Routes[0].EdgeID, Style: &style})
	v = awaitState(t, conn)
	assert.Equal(t, "orthogonal", string(v.Routes[0].Style))
	assert.Equal(t, "click", v.Routes[0].Text)
}

func TestSaveListLoad(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	a, b := twoNodes(t, conn)
	send(t, conn, MessageCommand, CommandPayload{Name: "connect", From: a, To: b})
	awaitState(t, conn)

	send(t, conn, MessageSave, SavePayload{Name: "Launch"})
	var saved RecordSummary
	require.NoError(t, json.Unmarshal(await(t, conn, MessageSaved).Payload, &saved))
	assert.Equal(t, "Launch", saved.Name)
	assert.Equal(t, 2, saved.Nodes)
	assert.Equal(t, 1, saved.Edges)

	send(t, conn, MessageList, nil)
	var recs []RecordSummary
	require.NoError(t, json.Unmarshal(await(t, conn, MessageRecords).Payload, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, saved.ID, recs[0].ID)

	// Edit after saving, then load the saved copy back over it.
	send(t, conn, MessageCommand, CommandPayload{Name: "delete_node", ID: b})
	v := awaitState(t, conn)
	require.Len(t, v.Nodes, 1)

	send(t, conn, MessageLoad, RefPayload{ID: saved.ID})
	await(t, conn, MessageLoaded)
	v = awaitState(t, conn)
	assert.Len(t, v.Nodes, 2)
	assert.Len(t, v.Routes, 1)
	assert.Equal(t, "Launch", v.Record)
}

func TestSaveRequiresName(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	awaitState(t, conn)

	send(t, conn, MessageSave, SavePayload{Name: "  "})
	var n editor.Notice
	require.NoError(t, json.Unmarshal(await(t, conn, MessageNotice).Payload, &n))
	assert.Equal(t, persist.ErrEmptyName.Error(), n.Message)
}

func TestDeleteSaved(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	twoNodes(t, conn)

	send(t, conn, MessageSave, SavePayload{Name: "Old"})
	var saved RecordSummary
	require.NoError(t, json.Unmarshal(await(t, conn, MessageSaved).Payload, &saved))

	send(t, conn, MessageDelete, RefPayload{ID: saved.ID})
	var deleted RecordSummary
	require.NoError(t, json.Unmarshal(await(t, conn, MessageDeleted).Payload, &deleted))
	assert.Equal(t, saved.ID, deleted.ID)

	send(t, conn, MessageDelete, RefPayload{ID: saved.ID})
	await(t, conn, MessageError)
}

func TestSaveShortcut(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	awaitState(t, conn)

	send(t, conn, MessageKey, editor.KeyEvent{Key: "s", Mods: editor.Mods{Meta: true}})
	await(t, conn, MessageSaveDialog)
	v := awaitState(t, conn)
	assert.True(t, v.SaveDialog)
}

func TestPingAndBadMessages(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)
	awaitState(t, conn)

	send(t, conn, MessagePing, nil)
	await(t, conn, MessagePong)

	send(t, conn, "teleport", nil)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(await(t, conn, MessageError).Payload, &e))
	assert.Contains(t, e.Message, "teleport")

	send(t, conn, MessagePointer, nil)
	require.NoError(t, json.Unmarshal(await(t, conn, MessageError).Payload, &e))
	assert.Contains(t, e.Message, "missing payload")

	send(t, conn, MessageCommand, CommandPayload{Name: "explode"})
	require.NoError(t, json.Unmarshal(await(t, conn, MessageError).Payload, &e))
	assert.Contains(t, e.Message, "explode")
}

func TestSessionsAreIndependent(t *testing.T) {
	_, ts, _ := newTestServer(t)
	first := dial(t, ts)
	second := dial(t, ts)

	twoNodes(t, first)
	v := awaitState(t, second)
	assert.Empty(t, v.Nodes)
}

func TestDisconnectIsLogged(t *testing.T) {
	srv, ts, events := newTestServer(t)
	conn := dial(t, ts)
	awaitState(t, conn)
	conn.Close()

	require.Eventually(t, func() bool { return srv.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, events.snapshot(), "serve.disconnect")
}

func TestCrossOriginRejected(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(0), srv.Sessions())
}

func TestSameOriginAccepted(t *testing.T) {
	_, ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{ts.URL}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	awaitState(t, conn)
}

func TestSameOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8080/ws", nil)
	assert.True(t, sameOrigin(req), "no Origin header")

	req.Header.Set("Origin", "http://127.0.0.1:8080")
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://127.0.0.1:9999")
	assert.False(t, sameOrigin(req), "different port")

	req.Header.Set("Origin", "://bad")
	assert.False(t, sameOrigin(req))
}

func TestUnencodablePayloadBecomesError(t *testing.T) {
	msg := newMessage(MessageState, map[string]float64{"zoom": math.NaN()})
	assert.Equal(t, MessageError, msg.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Contains(t, p.Message, "encode state")
}
