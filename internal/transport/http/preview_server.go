// Package httpserver pushes formatted previews to the browser.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"go-markdown-fmt/internal/contracts"
)

// ErrNotStarted is returned by Publish before Start.
var ErrNotStarted = errors.New("preview: server not started")

// PreviewServer serves the page shell and keeps every connected browser on
// the latest render.
type PreviewServer struct {
	addr   string
	shell  string
	logger *zap.Logger

	mu       sync.Mutex
	server   *http.Server
	url      string
	stopLoop chan struct{}
	loopDone chan struct{}

	updates    chan contracts.RenderMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	upgrader websocket.Upgrader
}

// NewPreviewServer creates a server for addr. Port 0 picks a free port.
func NewPreviewServer(addr string, shell string, logger *zap.Logger) *PreviewServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewServer{
		addr:   addr,
		shell:  shell,
		logger: logger,

		updates:    make(chan contracts.RenderMessage, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start listens and serves in the background. Starting twice is a no-op.
func (s *PreviewServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.stopLoop = make(chan struct{})
	s.loopDone = make(chan struct{})
	stop := s.stopLoop

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(w, r, stop)
	})

	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.url = "http://" + ln.Addr().String()

	go s.runLoop(s.stopLoop, s.loopDone)
	go func(server *http.Server) {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server stopped", zap.Error(err))
		}
	}(s.server)

	s.logger.Info("preview server listening", zap.String("url", s.url))
	return nil
}

// URL returns the browser URL, empty until started.
func (s *PreviewServer) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Publish sends msg to every connected browser and keeps it for browsers
// connecting later. Revisions are assigned by the server.
func (s *PreviewServer) Publish(msg contracts.RenderMessage) error {
	s.mu.Lock()
	stop := s.stopLoop
	s.mu.Unlock()

	if stop == nil {
		return ErrNotStarted
	}
	msg.Type = contracts.MessageTypeRender
	select {
	case s.updates <- msg:
		return nil
	case <-stop:
		return ErrNotStarted
	}
}

// Stop shuts down the HTTP server and the run loop.
func (s *PreviewServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	close(s.stopLoop)
	<-s.loopDone

	s.server = nil
	s.stopLoop = nil
	s.url = ""
	return err
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.shell))
}

func (s *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request, stop <-chan struct{}) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case s.register <- conn:
	case <-stop:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case s.unregister <- conn:
		case <-stop:
		}
	}()

	// The browser never sends anything; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// runLoop owns the connections and serializes all websocket writes.
func (s *PreviewServer) runLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	conns := make(map[*websocket.Conn]struct{})
	var last contracts.RenderMessage

	broadcast := func(msg contracts.RenderMessage) {
		for conn := range conns {
			if !writeJSON(conn, msg) {
				delete(conns, conn)
			}
		}
	}

	for {
		select {
		case msg := <-s.updates:
			msg.Rev = last.Rev + 1
			last = msg
			broadcast(last)

		case conn := <-s.register:
			conns[conn] = struct{}{}
			if last.Rev > 0 && !writeJSON(conn, last) {
				delete(conns, conn)
			}

		case conn := <-s.unregister:
			if _, ok := conns[conn]; ok {
				_ = conn.Close()
				delete(conns, conn)
			}

		case <-stop:
			for conn := range conns {
				_ = conn.Close()
			}
			return
		}
	}
}

// writeJSON writes a JSON message and reports whether the connection is usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
