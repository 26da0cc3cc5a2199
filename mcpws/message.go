package mcpws

import (
	"encoding/json"
	"time"
)

// routingFields lists the top-level fields checked for a routing key,
// in precedence order. First string-valued match wins.
var routingFields = [...]string{"id", "type", "messageType"}

// Message is a single inbound payload.
type Message struct {
	// Raw is the payload exactly as received.
	Raw []byte

	// IsJSON reports whether Raw parsed as a JSON object. When false the
	// payload is treated as opaque text.
	IsJSON bool

	// Key is the routing key extracted from the top-level "id", "type" or
	// "messageType" field, in that order. Empty when none is present; such
	// messages skip typed dispatch but still reach OnMessage.
	Key string

	fields map[string]json.RawMessage
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Raw)
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Raw, v); err != nil {
		return WrapError(ErrorSerialization, "decode message", err)
	}
	return nil
}

// Field returns the raw value of a top-level field, nil when absent or
// when the payload is not a JSON object.
func (m Message) Field(name string) json.RawMessage {
	return m.fields[name]
}

// stringField returns a top-level field's value when it is a JSON string.
func (m Message) stringField(name string) (string, bool) {
	raw, ok := m.fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// isPong reports whether the message is a heartbeat response.
func (m Message) isPong() bool {
	if !m.IsJSON {
		return false
	}
	if s, ok := m.stringField("type"); ok && s == "pong" {
		return true
	}
	if s, ok := m.stringField("messageType"); ok && s == "pong" {
		return true
	}
	return false
}

// parseMessage builds a Message from a raw payload. Payloads that are not
// JSON objects are kept as opaque text.
func parseMessage(raw []byte) Message {
	msg := Message{Raw: raw}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return msg
	}
	msg.IsJSON = true
	msg.fields = fields

	for _, name := range routingFields {
		if s, ok := msg.stringField(name); ok {
			msg.Key = s
			break
		}
	}
	return msg
}

// pingPayload is the heartbeat probe sent while connected.
type pingPayload struct {
	MessageType string `json:"messageType"`
	Timestamp   int64  `json:"timestamp"`
}

func newPing() pingPayload {
	return pingPayload{MessageType: "ping", Timestamp: time.Now().UnixMilli()}
}
