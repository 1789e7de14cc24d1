package feed

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
)

type notification struct {
	op model.Op
	r  model.Record
}

// collector buffers notifications delivered on the client goroutine.
type collector struct {
	mu  sync.Mutex
	got []notification
}

func (c *collector) Notify(op model.Op, r model.Record) {
	c.mu.Lock()
	c.got = append(c.got, notification{op, r})
	c.mu.Unlock()
}

// wait polls until pred holds for the notifications seen so far.
func (c *collector) wait(t *testing.T, what string, pred func([]notification) bool) []notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := append([]notification(nil), c.got...)
		c.mu.Unlock()
		if pred(got) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return nil
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func TestClientRoundTrip(t *testing.T) {
	m := model.NewStore()
	m.Add("p1", map[string]any{"type": "place", "name": "buffer", "position": "0,0"})
	m.Add("f1", map[string]any{
		"type":     "form",
		"elements": []any{map[string]any{"id": "go", "type": "button", "name": "Go", "is_active": true}},
	})
	s, ts := newTestServer(t, ServerOptions{Model: m})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := Dial(ctx, ClientOptions{URL: wsURL(ts.URL), Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	var (
		fmu    sync.Mutex
		frames []*render.Frame
	)
	c.OnFrame(func(msg *Message) {
		fmu.Lock()
		frames = append(frames, msg.Frame)
		fmu.Unlock()
	})
	col := &collector{}
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, col) }()

	// Replay delivers the current model.
	got := col.wait(t, "replay", func(n []notification) bool { return len(n) >= 2 })
	p := got[0].r
	if got[0].op != model.OpAdd || p.ID() != "p1" {
		t.Fatalf("first notification = %v %s, want add p1", got[0].op, p.ID())
	}
	ent, err := model.Decode(p)
	if err != nil {
		t.Fatalf("Decode remote record: %v", err)
	}
	if name, _ := ent.(*model.Place).Name.Get(); name != "buffer" {
		t.Errorf("name = %q", name)
	}

	// Set writes back to the authoritative store.
	if err := p.Set(model.FieldSelected, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	eventually(t, "selected write-back", func() bool {
		e, _ := m.Get("p1")
		v, _ := e.Get(model.FieldSelected)
		return v == true
	})

	// Form elements are records of their own.
	fe, err := model.Decode(got[1].r)
	if err != nil {
		t.Fatalf("Decode form: %v", err)
	}
	form := fe.(*model.Form)
	if len(form.Elements) != 1 || !form.Elements[0].Active {
		t.Fatalf("form elements = %+v", form.Elements)
	}
	if err := form.Elements[0].Handle.Set(model.FieldClicked, true); err != nil {
		t.Fatal(err)
	}
	eventually(t, "button click", func() bool {
		for _, j := range m.Journal() {
			if j.ID == "go" && j.Field == model.FieldClicked {
				return true
			}
		}
		return false
	})

	// Create publishes a new entity.
	id, err := c.Create(model.TypeTransition, map[string]any{"name": "fire", "position": "10,0"})
	if err != nil {
		t.Fatal(err)
	}
	eventually(t, "created entity", func() bool { _, ok := m.Get(id); return ok })

	// Frames are forwarded.
	s.Render(&render.Frame{Tick: 3})
	eventually(t, "frame", func() bool {
		fmu.Lock()
		defer fmu.Unlock()
		for _, f := range frames {
			if f != nil && f.Tick == 3 {
				return true
			}
		}
		return false
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if err := c.Set("p1", model.FieldSelected, false); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("Set after close err = %v, want NETWORK_ERROR", err)
	}
}

func TestDialErrors(t *testing.T) {
	ctx := context.Background()
	_, authTS := newTestServer(t, ServerOptions{Username: "alice", Password: "secret"})
	_, otherTS := newTestServer(t, ServerOptions{Subprotocol: "other"})
	silent := silentListener(t)

	tests := []struct {
		name string
		opts ClientOptions
		code errors.Code
	}{
		{"bad scheme", ClientOptions{URL: "ftp://x"}, errors.ErrCodeInvalidInput},
		{"unauthorized", ClientOptions{URL: wsURL(authTS.URL), Username: "alice", Password: "x"}, errors.ErrCodeUnauthorized},
		{"subprotocol", ClientOptions{URL: wsURL(otherTS.URL)}, errors.ErrCodeUnsupported},
		{"refused", ClientOptions{URL: "ws://127.0.0.1:1/ws", Attempts: 2, Delay: time.Millisecond}, errors.ErrCodeNetwork},
		{"timeout", ClientOptions{URL: "ws://" + silent + "/ws", Attempts: 1, HandshakeTimeout: 50 * time.Millisecond}, errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = log.New(io.Discard)
			c, err := Dial(ctx, tt.opts)
			if err == nil {
				c.Close()
				t.Fatal("Dial succeeded, want error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

// silentListener accepts connections and never answers them.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return ln.Addr().String()
}

func TestClientAuthenticated(t *testing.T) {
	_, ts := newTestServer(t, ServerOptions{Username: "alice", Password: "secret"})
	c, err := Dial(context.Background(), ClientOptions{
		URL: wsURL(ts.URL), Username: "alice", Password: "secret", Logger: log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()
}
