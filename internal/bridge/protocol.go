package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vk/deskshell/internal/dispatch"
	"github.com/vk/deskshell/internal/registry"
)

// Socket.io event names of the invocation protocol.
const (
	EventInvoke = "invoke"
	EventReply  = "invoke:reply"
)

// InvokeMessage is the payload of an EventInvoke emitted by the UI.
type InvokeMessage struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Reply is the payload of an EventReply sent back to the UI. It goes on the
// wire through wire(), never through encoding/json.
type Reply struct {
	ID    string
	OK    bool
	Value any
	Error *ReplyError
}

// ReplyError is the structured failure carried by a Reply.
type ReplyError struct {
	Kind    string
	Message string
}

// parseInvoke extracts an InvokeMessage from the raw socket.io event
// arguments. The payload may arrive as a decoded object or as JSON text.
func parseInvoke(data []any) (*InvokeMessage, error) {
	if len(data) == 0 {
		return nil, errors.New("invoke event carries no payload")
	}

	var raw []byte
	switch v := data[0].(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invoke payload is not JSON-encodable: %w", err)
		}
		raw = encoded
	}

	var msg InvokeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed invoke payload: %w", err)
	}
	if msg.Cmd == "" {
		return &msg, errors.New("invoke payload has no 'cmd'")
	}
	return &msg, nil
}

// newReply converts a dispatcher response into its wire form.
func newReply(resp dispatch.Response) *Reply {
	if resp.Err != nil {
		return errorReply(resp.ID, resp.Err)
	}
	reply := &Reply{ID: resp.ID, OK: true}
	if len(resp.Value) > 0 {
		var value any
		if err := json.Unmarshal(resp.Value, &value); err != nil {
			return errorReply(resp.ID, fmt.Errorf("result is not valid JSON: %w", err))
		}
		reply.Value = value
	}
	return reply
}

func errorReply(id string, err error) *Reply {
	return &Reply{
		ID:    id,
		OK:    false,
		Error: &ReplyError{Kind: registry.Kind(err), Message: err.Error()},
	}
}

// wire renders the reply as plain JSON-compatible values for the socket.io
// encoder.
func (r *Reply) wire() map[string]any {
	out := map[string]any{"id": r.ID, "ok": r.OK}
	if r.OK {
		out["value"] = r.Value
	}
	if r.Error != nil {
		out["error"] = map[string]any{"kind": r.Error.Kind, "message": r.Error.Message}
	}
	return out
}
