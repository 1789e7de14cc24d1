package feed

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/httputil"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/observability"
)

// ClientOptions configures [Dial].
type ClientOptions struct {
	// URL is the websocket endpoint, e.g. ws://host:8080/ws.
	URL string

	Username string
	Password string

	// Subprotocol defaults to DefaultSubprotocol.
	Subprotocol string

	// Attempts and Delay control dial retries. Defaults: 3 and 500ms,
	// doubling after each failure.
	Attempts int
	Delay    time.Duration

	// HandshakeTimeout bounds each dial attempt. Default: 10s.
	HandshakeTimeout time.Duration

	Logger *log.Logger
}

// Client is a connection to a remote model.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger

	wmu    sync.Mutex
	closed bool

	// frames receives rendered frames from the server when non-nil.
	frames func(*Message)
}

// Dial connects to a feed endpoint. Network failures and 5xx handshakes
// are retried; a rejected login is not.
func Dial(ctx context.Context, opts ClientOptions) (*Client, error) {
	if err := errors.ValidateURL(opts.URL); err != nil {
		return nil, err
	}
	if opts.Subprotocol == "" {
		opts.Subprotocol = DefaultSubprotocol
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	dialer := websocket.Dialer{
		Subprotocols:     []string{opts.Subprotocol},
		HandshakeTimeout: opts.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	header := httputil.BasicAuth(opts.Username, opts.Password)
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", opts.URL)
	}
	// http(s) URLs are accepted for convenience.
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	target := u.String()

	var conn *websocket.Conn
	err = httputil.Retry(ctx, opts.Attempts, opts.Delay, func() error {
		start := time.Now()
		observability.HTTP().OnRequest(ctx, http.MethodGet, u.Host, u.Path)
		c, resp, err := dialer.DialContext(ctx, target, header)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodGet, u.Host, u.Path, err)
			if resp != nil {
				switch {
				case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
					return errors.New(errors.ErrCodeUnauthorized, "%s rejected credentials", opts.URL)
				case httputil.RetryableStatus(resp.StatusCode):
					return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "dial %s: status %d", opts.URL, resp.StatusCode))
				default:
					return errors.Wrap(errors.ErrCodeNetwork, err, "dial %s: status %d", opts.URL, resp.StatusCode)
				}
			}
			logger.Debug("dial failed", "url", opts.URL, "err", err)
			if errors.IsTimeout(err) {
				return httputil.Retryable(errors.Wrap(errors.ErrCodeTimeout, err, "dial %s: no handshake within %s", opts.URL, opts.HandshakeTimeout))
			}
			return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "dial %s", opts.URL))
		}
		observability.HTTP().OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if got := conn.Subprotocol(); got != opts.Subprotocol {
		_ = conn.Close()
		return nil, errors.New(errors.ErrCodeUnsupported, "server speaks subprotocol %q, want %q", got, opts.Subprotocol)
	}
	return &Client{conn: conn, logger: logger}, nil
}

// OnFrame registers fn to receive frame messages. It must be called
// before Run.
func (c *Client) OnFrame(fn func(*Message)) { c.frames = fn }

// Run reads messages until ctx ends or the connection drops, turning
// events into notifications for l. Records passed to l write back over
// this connection.
func (c *Client) Run(ctx context.Context, l model.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return errors.Wrap(errors.ErrCodeNetwork, err, "read feed")
		}
		switch msg.Type {
		case TypeEvent:
			if msg.Event == nil {
				continue
			}
			l.Notify(msg.Event.Op, c.record(msg.Event.ID, msg.Event.Fields))
		case TypeFrame:
			if c.frames != nil {
				c.frames(&msg)
			}
		case TypeError:
			if msg.Error != nil {
				c.logger.Warn("server rejected message", "code", msg.Error.Code, "msg", msg.Error.Message)
			}
		}
	}
}

// Set writes field of entity id on the server.
func (c *Client) Set(id, field string, value any) error {
	return c.send(Message{Type: TypeSet, Set: &SetRequest{ID: id, Field: field, Value: value}})
}

// Create publishes a new entity and returns its id. The id is chosen
// here so the caller can reconcile before the echo arrives.
func (c *Client) Create(typ model.Type, fields map[string]any) (string, error) {
	id := uuid.NewString()
	f := wireFields(fields)
	f[model.FieldType] = string(typ)
	if err := c.send(Message{Type: TypeEvent, Event: &Event{Op: model.OpAdd, ID: id, Fields: f}}); err != nil {
		return "", err
	}
	return id, nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) send(m Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return errors.New(errors.ErrCodeNetwork, "feed connection closed")
	}
	if err := c.conn.WriteJSON(m); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "write feed")
	}
	return nil
}

// record wraps wire fields. Form elements become records of their own so
// that button clicks and text edits write back individually.
func (c *Client) record(id string, fields map[string]any) *remoteRecord {
	if fields == nil {
		fields = make(map[string]any)
	}
	r := &remoteRecord{client: c, id: id, fields: fields}
	if items, ok := fields[model.FieldElements].([]any); ok {
		elems := make([]any, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				elems = append(elems, it)
				continue
			}
			elems = append(elems, c.record(model.Stringify(m["id"]), m))
		}
		r.fields[model.FieldElements] = elems
	}
	return r
}

// remoteRecord is a model.Record backed by a feed connection.
type remoteRecord struct {
	client *Client
	id     string

	mu     sync.Mutex
	fields map[string]any
}

func (r *remoteRecord) ID() string { return r.id }

func (r *remoteRecord) Get(field string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.fields[field]
	return v, ok
}

func (r *remoteRecord) Set(field string, value any) error {
	if err := r.client.Set(r.id, field, value); err != nil {
		return err
	}
	r.mu.Lock()
	r.fields[field] = value
	r.mu.Unlock()
	return nil
}

var _ model.Record = (*remoteRecord)(nil)
