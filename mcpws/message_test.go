package mcpws

import "testing"

func TestParseMessageKeyPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		key     string
	}{
		{"id wins", `{"id":"req-1","type":"status","messageType":"x"}`, "req-1"},
		{"type next", `{"type":"status","messageType":"x"}`, "status"},
		{"messageType last", `{"messageType":"x"}`, "x"},
		{"non-string id skipped", `{"id":42,"type":"status"}`, "status"},
		{"no routing field", `{"payload":"data"}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := parseMessage([]byte(tc.payload))
			if !msg.IsJSON {
				t.Fatalf("payload not recognized as JSON")
			}
			if msg.Key != tc.key {
				t.Fatalf("key = %q, want %q", msg.Key, tc.key)
			}
		})
	}
}

func TestParseMessageOpaque(t *testing.T) {
	msg := parseMessage([]byte("not json at all"))
	if msg.IsJSON {
		t.Fatalf("opaque payload marked as JSON")
	}
	if msg.Key != "" {
		t.Fatalf("opaque payload got key %q", msg.Key)
	}
	if msg.Text() != "not json at all" {
		t.Fatalf("payload text mangled: %q", msg.Text())
	}
}

func TestMessagePongDetection(t *testing.T) {
	if !parseMessage([]byte(`{"type":"pong"}`)).isPong() {
		t.Errorf("type pong not detected")
	}
	if !parseMessage([]byte(`{"messageType":"pong","timestamp":1}`)).isPong() {
		t.Errorf("messageType pong not detected")
	}
	if parseMessage([]byte(`{"type":"ping"}`)).isPong() {
		t.Errorf("ping misread as pong")
	}
	if parseMessage([]byte(`pong`)).isPong() {
		t.Errorf("opaque text misread as pong")
	}
}

func TestMessageDecode(t *testing.T) {
	msg := parseMessage([]byte(`{"messageType":"echo","data":"x"}`))

	var body struct {
		Data string `json:"data"`
	}
	if err := msg.Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data != "x" {
		t.Fatalf("data = %q, want x", body.Data)
	}
}
