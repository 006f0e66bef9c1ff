package messaging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// newTestClient connects to a local NATS server. Tests that call this helper
// are skipped when nothing listens on localhost:4222.
func newTestClient(t *testing.T) *NATSClient {
	t.Helper()
	config := DefaultNATSConfig()
	config.Name = "chatroom-test"
	config.MaxReconnects = 0

	c, err := NewNATSClient(config, zap.NewNop())
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestServeBotReplies_RoundTrip(t *testing.T) {
	c := newTestClient(t)

	err := c.ServeBotReplies(func(data []byte) ([]byte, error) {
		return bytes.ToUpper(data), nil
	})
	if err != nil {
		t.Fatalf("ServeBotReplies() error: %v", err)
	}

	out, err := c.Request(SubjectBotReply, []byte("hello"), time.Second)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if string(out) != "HELLO" {
		t.Errorf("expected %q, got %q", "HELLO", out)
	}
}

func TestServeBotReplies_HandlerErrorTimesOut(t *testing.T) {
	c := newTestClient(t)

	err := c.ServeBotReplies(func([]byte) ([]byte, error) {
		return nil, errors.New("nope")
	})
	if err != nil {
		t.Fatalf("ServeBotReplies() error: %v", err)
	}

	if _, err := c.Request(SubjectBotReply, []byte("x"), 100*time.Millisecond); err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
}

func TestStopBotReplies(t *testing.T) {
	c := newTestClient(t)

	if err := c.StopBotReplies(); err == nil {
		t.Fatal("expected error when nothing is subscribed")
	}
	if err := c.ServeBotReplies(func(d []byte) ([]byte, error) { return d, nil }); err != nil {
		t.Fatalf("ServeBotReplies() error: %v", err)
	}
	if err := c.StopBotReplies(); err != nil {
		t.Fatalf("StopBotReplies() error: %v", err)
	}
}
