// Package devserver pushes diagnostics to connected editors over a
// WebSocket connection whenever a watched template is recompiled. Grounded
// directly on the teacher's own websocket loop in pages.go's Handler.Render:
// an Upgrader accepts the connection, a read goroutine drains incoming
// client messages and signals a "done" channel on a clean close, and a
// select loop pushes a fresh render (diagnostics, here) each time the
// watched subject is touched. The same three-way select (incoming message /
// touch signal / done) carries over unchanged; only what gets written over
// the wire changes, from a rendered component to a diagnostics payload.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kvietkauskas/au-ttc/internal/diag"
)

var upgrader = websocket.Upgrader{}

// DiagnosticsProvider is the subset of *facade.Facade the server needs,
// kept as an interface so devserver never imports facade directly and a
// test can supply a stub.
type DiagnosticsProvider interface {
	GetDiagnostics(uri string) []diag.FinalizedDiagnostic
}

// Server pushes diagnostics updates for whichever URIs have active
// subscribers.
type Server struct {
	provider DiagnosticsProvider
	logger   *slog.Logger

	mu          sync.Mutex
	subscribers map[string][]chan struct{}
}

// New creates a Server backed by provider.
func New(provider DiagnosticsProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{provider: provider, logger: logger, subscribers: map[string][]chan struct{}{}}
}

// Notify wakes every connection currently watching uri, so it re-pushes
// GetDiagnostics(uri). Call this after each facade.Compile.
func (s *Server) Notify(uri string) {
	s.mu.Lock()
	chans := append([]chan struct{}(nil), s.subscribers[uri]...)
	s.mu.Unlock()

	for _, c := range chans {
		select {
		case c <- struct{}{}:
		default: // a pending touch already covers this notification
		}
	}
}

func (s *Server) subscribe(uri string) chan struct{} {
	c := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[uri] = append(s.subscribers[uri], c)
	s.mu.Unlock()
	return c
}

func (s *Server) unsubscribe(uri string, c chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subscribers[uri]
	for i, existing := range list {
		if existing == c {
			s.subscribers[uri] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// subscribeRequest is the client->server message selecting which template
// URI this connection wants diagnostics for.
type subscribeRequest struct {
	URI string `json:"uri"`
}

// diagnosticsPayload is the server->client wire shape for one push.
type diagnosticsPayload struct {
	URI         string                  `json:"uri"`
	Diagnostics []wireDiagnostic        `json:"diagnostics"`
}

type wireDiagnostic struct {
	Code       string `json:"code"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Suppressed bool   `json:"suppressed"`
}

func toPayload(uri string, items []diag.FinalizedDiagnostic) diagnosticsPayload {
	out := diagnosticsPayload{URI: uri}
	for _, d := range items {
		out.Diagnostics = append(out.Diagnostics, wireDiagnostic{
			Code: d.Code, Severity: d.Severity.String(), Message: d.Message,
			Line: d.Location.Span.Line, Column: d.Location.Span.Column,
			Suppressed: d.IsSuppressed,
		})
	}
	return out
}

// ServeHTTP upgrades the request to a WebSocket and runs the subscribe/push
// loop until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	done := make(chan error)
	reqC := make(chan subscribeRequest)

	go func() {
		for {
			var req subscribeRequest
			if err := ws.ReadJSON(&req); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					err = nil
				} else {
					err = fmt.Errorf("read websocket message: %w", err)
				}
				done <- err
				return
			}
			reqC <- req
		}
	}()

	var uri string
	var touch chan struct{}

	for {
		select {
		case req := <-reqC:
			if touch != nil {
				s.unsubscribe(uri, touch)
			}
			uri = req.URI
			touch = s.subscribe(uri)
			if err := s.push(ws, uri); err != nil {
				s.logger.Warn("push diagnostics", "error", err)
			}
		case <-touch:
			if err := s.push(ws, uri); err != nil {
				s.logger.Warn("push diagnostics", "error", err)
			}
		case err := <-done:
			if touch != nil {
				s.unsubscribe(uri, touch)
			}
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
	}
}

func (s *Server) push(ws *websocket.Conn, uri string) error {
	payload := toPayload(uri, s.provider.GetDiagnostics(uri))
	w, err := ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return fmt.Errorf("get websocket writer: %w", err)
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	return w.Close()
}
