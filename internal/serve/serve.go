// Package serve exposes funnel editing sessions over WebSocket. Each
// connection gets its own editor; one goroutine per connection owns it and
// applies pointer, key, and persistence events in arrival order.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/msalah0e/funnel/internal/activity"
	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/persist"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Options configure a Server.
type Options struct {
	Addr   string
	Owner  string
	Editor editor.Config
}

// Server accepts editing sessions.
type Server struct {
	opts     Options
	store    persist.Store
	upgrader websocket.Upgrader
	sessions atomic.Int64

	// Log records connection events. It defaults to the activity log.
	Log func(action, target, details string)
}

// New creates a server whose sessions save to store.
func New(store persist.Store, opts Options) *Server {
	if opts.Owner == "" {
		opts.Owner = "local"
	}
	return &Server{
		opts:  opts,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		Log: func(action, target, details string) {
			_ = activity.Log(action, target, details)
		},
	}
}

// sameOrigin admits clients that send no Origin (CLIs, tests) and pages
// served from the host they are connecting to. Any other page could
// otherwise list, load, or delete the owner's saved funnels.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

// Handler returns the HTTP routes: /health and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Load(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("serve: upgrade: %v", err)
		return
	}

	ed := editor.New(nil, s.opts.Editor)
	ed.SetGateway(persist.New(s.store, s.opts.Owner))

	sess := &session{
		conn:  conn,
		ed:    ed,
		send:  make(chan Message, sendBuffer),
		in:    make(chan Message),
		posts: make(chan func()),
		done:  make(chan struct{}),
	}

	s.sessions.Add(1)
	s.Log("serve.connect", r.RemoteAddr, "")
	defer func() {
		s.Log("serve.disconnect", r.RemoteAddr, "")
		s.sessions.Add(-1)
	}()

	sess.run(r.Context())
}

// ListenAndServe serves until ctx is cancelled, then shuts down. Open
// sessions end with ctx.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// session is one connected client. run is the only goroutine that touches
// ed; background work hands its results back through posts.
type session struct {
	conn  *websocket.Conn
	ed    *editor.Editor
	send  chan Message
	in    chan Message
	posts chan func()
	done  chan struct{}
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		s.writePump()
		close(writerDone)
	}()
	go s.readPump()

	defer func() {
		close(s.done)
		close(s.send)
		<-writerDone
		s.conn.Close()
	}()

	s.pushState()
	for {
		select {
		case msg, ok := <-s.in:
			if !ok {
				return
			}
			s.handle(ctx, msg)
		case fn := <-s.posts:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// readPump decodes client messages and hands them to run.
func (s *session) readPump() {
	defer close(s.in)
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("serve: read: %v", err)
			}
			return
		}
		select {
		case s.in <- msg:
		case <-s.done:
			return
		}
	}
}

// writePump drains send and keeps the connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				// Unblock readPump so run notices the client is gone.
				s.conn.Close()
				for range s.send {
				}
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				for range s.send {
				}
				return
			}
		}
	}
}

// emit queues msg for the client, dropping it if the client is not
// keeping up.
func (s *session) emit(msg Message) {
	select {
	case s.send <- msg:
	default:
		log.Printf("serve: client too slow, dropped %s", msg.Type)
	}
}

func (s *session) emitNotice() {
	if n := s.ed.Notice(); n != nil {
		s.emit(NewNoticeMessage(*n))
	}
}

func (s *session) pushState() { s.emit(NewStateMessage(s.ed.View())) }

// post runs fn on the session goroutine, unless the session has ended.
func (s *session) post(fn func()) {
	select {
	case s.posts <- fn:
	case <-s.done:
	}
}

func (s *session) handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case MessagePing:
		s.emit(newMessage(MessagePong, nil))
		return

	case MessagePointer:
		var ev editor.PointerEvent
		if !s.decode(msg, &ev) {
			return
		}
		s.ed.Pointer(ev)

	case MessageWheel:
		var ev editor.WheelEvent
		if !s.decode(msg, &ev) {
			return
		}
		if s.ed.Wheel(ev) == nil {
			return
		}

	case MessageKey:
		var ev editor.KeyEvent
		if !s.decode(msg, &ev) {
			return
		}
		cmd := s.ed.Key(ev)
		if cmd == nil {
			return
		}
		if _, ok := cmd.(editor.OpenSaveDialog); ok {
			s.emit(newMessage(MessageSaveDialog, nil))
		}

	case MessageCommand:
		var p CommandPayload
		if !s.decode(msg, &p) {
			return
		}
		cmd, err := p.command()
		if err != nil {
			s.emit(NewErrorMessage(err))
			return
		}
		if err := s.ed.Apply(cmd); err != nil {
			s.emitNotice()
		}

	case MessageSave:
		var p SavePayload
		if !s.decode(msg, &p) {
			return
		}
		s.startSave(ctx, p.Name)

	case MessageLoad:
		var p RefPayload
		if !s.decode(msg, &p) {
			return
		}
		s.startLoad(ctx, p.ID)

	case MessageList:
		s.startList(ctx)
		return

	case MessageDelete:
		var p RefPayload
		if !s.decode(msg, &p) {
			return
		}
		s.startDelete(ctx, p.ID)
		return

	default:
		s.emit(NewErrorMessage(fmt.Errorf("unknown message type: %s", msg.Type)))
		return
	}
	s.pushState()
}

func (s *session) decode(msg Message, v any) bool {
	if len(msg.Payload) == 0 {
		s.emit(NewErrorMessage(fmt.Errorf("%s: missing payload", msg.Type)))
		return false
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		s.emit(NewErrorMessage(fmt.Errorf("%s: %w", msg.Type, err)))
		return false
	}
	return true
}

func (s *session) startSave(ctx context.Context, name string) {
	ch, err := s.ed.StartSave(ctx, name)
	if err != nil {
		s.emitNotice()
		return
	}
	go func() {
		res := <-ch
		s.post(func() {
			_ = s.ed.Apply(editor.Saved{Result: res})
			if res.Err != nil {
				s.emitNotice()
			} else {
				s.emit(NewRecordMessage(MessageSaved, res.Record))
			}
			s.pushState()
		})
	}()
}

func (s *session) startLoad(ctx context.Context, ref string) {
	ch, err := s.ed.StartLoad(ctx, ref)
	if err != nil {
		s.emitNotice()
		return
	}
	go func() {
		res := <-ch
		s.post(func() {
			_ = s.ed.Apply(editor.Loaded{Result: res})
			if res.Err != nil {
				s.emitNotice()
			} else {
				s.emit(NewRecordMessage(MessageLoaded, res.Record))
			}
			s.pushState()
		})
	}()
}

func (s *session) startList(ctx context.Context) {
	gw := s.ed.Gateway()
	if gw == nil {
		s.emit(NewErrorMessage(editor.ErrNoGateway))
		return
	}
	go func() {
		recs, err := gw.List(ctx)
		s.post(func() {
			if err != nil {
				s.emit(NewErrorMessage(err))
				return
			}
			s.emit(NewRecordsMessage(recs))
		})
	}()
}

func (s *session) startDelete(ctx context.Context, ref string) {
	gw := s.ed.Gateway()
	if gw == nil {
		s.emit(NewErrorMessage(editor.ErrNoGateway))
		return
	}
	go func() {
		rec, err := gw.Find(ctx, ref)
		if err == nil {
			err = gw.Delete(ctx, rec.ID)
		}
		s.post(func() {
			if err != nil {
				s.emit(NewErrorMessage(err))
				return
			}
			s.emit(NewRecordMessage(MessageDeleted, rec))
		})
	}()
}
