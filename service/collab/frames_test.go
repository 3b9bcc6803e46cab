package collab

import (
	"testing"
	"time"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"join_document","document_id":"d1"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Type != TypeJoinDocument {
		t.Fatalf("Type = %s", env.Type)
	}
	if v, _ := env.Get("document_id"); v != "d1" {
		t.Fatalf("document_id = %v", v)
	}
}

func TestParseEnvelopeRejectsBadInput(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Fatal("accepted malformed json")
	}
	if _, err := ParseEnvelope([]byte(`{"document_id":"d1"}`)); err == nil {
		t.Fatal("accepted envelope without type")
	}
	if _, err := ParseEnvelope([]byte(`{"type":42}`)); err == nil {
		t.Fatal("accepted non-string type")
	}
}

func TestNewEnvelopeStampsTypeAndTimestamp(t *testing.T) {
	env := NewEnvelope("hello", map[string]any{"a": 1})
	if env.Fields["type"] != "hello" {
		t.Fatalf("type field = %v", env.Fields["type"])
	}
	ts, ok := env.Fields["timestamp"].(string)
	if !ok {
		t.Fatal("timestamp missing")
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestEnvelopeTimestampUsesInjectedClock(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)
	defer m.Close()

	want := clock.Now().UTC().Format(time.RFC3339)

	env := m.NewEnvelope("x", nil)
	if env.Fields["timestamp"] != want {
		t.Fatalf("timestamp = %v, want %s", env.Fields["timestamp"], want)
	}

	conf := &ManagerConf{Clock: clock.Now}
	conf.norm()
	hs := BuildConnectionEstablished(1, conf)
	if hs.Fields["server_time"] != want || hs.Fields["timestamp"] != want {
		t.Fatalf("handshake times = %v/%v, want %s", hs.Fields["server_time"], hs.Fields["timestamp"], want)
	}
}

func TestBuildConnectionEstablished(t *testing.T) {
	conf := &ManagerConf{}
	conf.norm()
	env := BuildConnectionEstablished(7, conf)

	if env.Type != TypeConnectionEstablished {
		t.Fatalf("Type = %s", env.Type)
	}
	if env.Fields["epoch"] != int64(7) {
		t.Fatalf("epoch = %v", env.Fields["epoch"])
	}
	features, ok := env.Fields["features"].(map[string]any)
	if !ok {
		t.Fatal("features missing")
	}
	for _, k := range []string{"heartbeat_enabled", "queuing_enabled", "rate_limiting_enabled"} {
		if features[k] != true {
			t.Fatalf("feature %s = %v", k, features[k])
		}
	}
}
