package feed

import (
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
)

// DefaultSubprotocol is the websocket subprotocol spoken by both ends.
const DefaultSubprotocol = "cosy"

// Message types.
const (
	TypeHello = "hello"
	TypeEvent = "event"
	TypeSet   = "set"
	TypeFrame = "frame"
	TypeError = "error"
)

// Event is one model notification.
type Event struct {
	Op     model.Op       `json:"op"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// SetRequest is a write-back of one field.
type SetRequest struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Message is the envelope of every websocket frame.
type Message struct {
	Type  string        `json:"type"`
	Event *Event        `json:"event,omitempty"`
	Set   *SetRequest   `json:"set,omitempty"`
	Frame *render.Frame `json:"frame,omitempty"`
	Error *ErrorBody    `json:"error,omitempty"`
}

// ErrorBody reports a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fielder interface {
	Fields() map[string]any
}

// EventOf builds the wire event for a notification about r.
func EventOf(op model.Op, r model.Record) *Event {
	ev := &Event{Op: op, ID: r.ID()}
	if f, ok := r.(fielder); ok {
		ev.Fields = wireFields(f.Fields())
	}
	return ev
}

// wireFields replaces handles by their ids so the map encodes cleanly.
func wireFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = wireValue(v)
	}
	return out
}

func wireValue(v any) any {
	switch x := v.(type) {
	case model.Handle:
		return x.ID()
	case []any:
		items := make([]any, len(x))
		for i, it := range x {
			items[i] = wireValue(it)
		}
		return items
	case map[string]any:
		return wireFields(x)
	default:
		return v
	}
}
