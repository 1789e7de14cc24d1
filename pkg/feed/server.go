package feed

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
)

// ServerOptions configures a [Server].
type ServerOptions struct {
	// Model is the authoritative store served to peers. Required.
	Model *model.Store

	// Username and Password enable basic auth on every route when
	// Username is set.
	Username string
	Password string

	// Subprotocol defaults to DefaultSubprotocol.
	Subprotocol string

	// SendBuffer is the per-peer queue length. A peer that falls this far
	// behind is disconnected. Defaults to 256.
	SendBuffer int

	Logger *log.Logger
}

// Server serves a model store and the editor's frames.
type Server struct {
	opts     ServerOptions
	logger   *log.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	mu    sync.RWMutex
	peers map[*peer]struct{}
	last  *render.Frame
}

// NewServer builds a server for opts.Model.
func NewServer(opts ServerOptions) *Server {
	if opts.Subprotocol == "" {
		opts.Subprotocol = DefaultSubprotocol
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{opts.Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
		last:  &render.Frame{},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.requireAuth)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/diagram", s.handleDiagram)
	r.Get("/api/diagram.svg", s.handleDiagramSVG)
	r.Get("/api/entities", s.handleEntities)
	r.Get("/api/entities/{id}", s.handleEntity)
	r.Post("/api/events", s.handleEvent)
	r.Get("/ws", s.serveWS)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Render records f as the current frame and sends it to every peer.
func (s *Server) Render(f *render.Frame) {
	s.mu.Lock()
	s.last = f
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	msg := Message{Type: TypeFrame, Frame: f}
	for _, p := range peers {
		p.enqueue(msg)
	}
}

// Frame returns the last rendered frame.
func (s *Server) Frame() *render.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Peers returns the number of connected websocket peers.
func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Close disconnects every peer.
func (s *Server) Close() {
	s.mu.Lock()
	peers := s.peers
	s.peers = make(map[*peer]struct{})
	s.mu.Unlock()
	for p := range peers {
		p.close()
	}
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	if s.opts.Username == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.opts.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.opts.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="petrisync"`)
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "entities": s.opts.Model.Len(), "peers": s.Peers()})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Frame())
}

func (s *Server) handleDiagramSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(render.SVG(s.Frame()))
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	entries := s.opts.Model.Entries()
	out := make([]*Event, len(entries))
	for i, e := range entries {
		out[i] = EventOf(model.OpAdd, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.opts.Model.Get(id)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "entity %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, EventOf(model.OpAdd, e))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode event"))
		return
	}
	id, err := s.apply(&ev)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// apply writes ev to the model and returns the affected id.
func (s *Server) apply(ev *Event) (string, error) {
	m := s.opts.Model
	switch ev.Op {
	case model.OpAdd:
		e, err := m.Add(ev.ID, ev.Fields)
		if err != nil {
			return "", err
		}
		return e.ID(), nil
	case model.OpUpdate:
		return ev.ID, m.Update(ev.ID, ev.Fields)
	case model.OpRemove:
		return ev.ID, m.Remove(ev.ID)
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown op %q", ev.Op)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	p := newPeer(conn, s.opts.SendBuffer, s.logger)
	go p.writeLoop()

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("peer connected", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		p.close()
		s.logger.Info("peer disconnected", "remote", r.RemoteAddr)
	}()

	p.enqueue(Message{Type: TypeHello})
	forward := model.ListenerFunc(func(op model.Op, rec model.Record) {
		p.enqueue(Message{Type: TypeEvent, Event: EventOf(op, rec)})
	})
	cancel := s.opts.Model.Subscribe(forward)
	defer cancel()
	s.opts.Model.Replay(forward)
	p.enqueue(Message{Type: TypeFrame, Frame: s.Frame()})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "remote", r.RemoteAddr, "err", err)
			}
			return
		}
		if err := s.handleMessage(&msg); err != nil {
			s.logger.Debug("rejected peer message", "type", msg.Type, "err", err)
			p.enqueue(Message{Type: TypeError, Error: errorBody(err)})
		}
	}
}

func (s *Server) handleMessage(msg *Message) error {
	switch msg.Type {
	case TypeSet:
		if msg.Set == nil {
			return errors.New(errors.ErrCodeInvalidInput, "set message without body")
		}
		return s.opts.Model.Set(msg.Set.ID, msg.Set.Field, msg.Set.Value)
	case TypeEvent:
		if msg.Event == nil {
			return errors.New(errors.ErrCodeInvalidInput, "event message without body")
		}
		_, err := s.apply(msg.Event)
		return err
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported message type %q", msg.Type)
	}
}

// peer is one websocket connection. All writes go through writeLoop.
type peer struct {
	conn   *websocket.Conn
	send   chan Message
	done   chan struct{}
	once   sync.Once
	logger *log.Logger
}

func newPeer(conn *websocket.Conn, buffer int, logger *log.Logger) *peer {
	return &peer{conn: conn, send: make(chan Message, buffer), done: make(chan struct{}), logger: logger}
}

// enqueue drops the peer if its queue is full.
func (p *peer) enqueue(m Message) {
	select {
	case <-p.done:
	case p.send <- m:
	default:
		p.logger.Warn("peer too slow, disconnecting", "remote", p.conn.RemoteAddr())
		p.close()
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case m := <-p.send:
			if err := p.conn.WriteJSON(m); err != nil {
				p.close()
				return
			}
		}
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func errorBody(err error) *ErrorBody {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return &ErrorBody{Code: string(code), Message: errors.UserMessage(err)}
}

func statusOf(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidName:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case "", errors.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
