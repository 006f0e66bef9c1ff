package gateway

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/clock"
	"github.com/whisper/chatroom/internal/protocol"
	"github.com/whisper/chatroom/internal/session"
	"github.com/whisper/chatroom/internal/ws"
)

type fakeSender struct {
	mu     sync.Mutex
	frames map[string][]map[string]interface{}
}

func (f *fakeSender) SendMessage(connID string, data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames == nil {
		f.frames = make(map[string][]map[string]interface{})
	}
	f.frames[connID] = append(f.frames[connID], m)
	return nil
}

// take returns and clears the frames sent to connID.
func (f *fakeSender) take(connID string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.frames[connID]
	delete(f.frames, connID)
	return out
}

type fakePresence struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakePresence) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return nil
}

func (p *fakePresence) Create(_ context.Context, id string) error { return p.record("create " + id) }
func (p *fakePresence) MarkLoggedIn(_ context.Context, id string, ident session.Identity) error {
	return p.record("login " + id + " " + ident.Username)
}
func (p *fakePresence) MarkLoggedOut(_ context.Context, id string) error { return p.record("logout " + id) }
func (p *fakePresence) Touch(_ context.Context, id string) error { return p.record("touch " + id) }
func (p *fakePresence) Delete(_ context.Context, id string) error { return p.record("delete " + id) }

type fixture struct {
	gw       *Gateway
	sender   *fakeSender
	presence *fakePresence
	clock    *clock.Manual
	disp     *ws.MessageDispatcher
	conn     *ws.Connection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sel, err := bot.NewSelector(bot.DefaultRules(), rand.NewPCG(5, 6))
	require.NoError(t, err)

	f := &fixture{
		sender:   &fakeSender{},
		presence: &fakePresence{},
		clock:    clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		conn:     &ws.Connection{ID: "c1"},
	}
	f.gw = New(f.sender, app.Config{Responder: sel, Clock: f.clock}, f.presence, nil)
	f.disp = ws.NewMessageDispatcher(nil)
	f.gw.Register(f.disp)
	t.Cleanup(f.gw.Close)

	f.gw.OnConnect(f.conn)
	return f
}

func (f *fixture) dispatch(raw string) {
	f.disp.Dispatch(f.conn, []byte(raw))
}

func TestOnConnect_SendsSessionAndLoginView(t *testing.T) {
	f := newFixture(t)

	frames := f.sender.take("c1")
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.TypeSessionCreated, frames[0]["type"])
	assert.Equal(t, "c1", frames[0]["session_id"])
	assert.Equal(t, protocol.TypeView, frames[1]["type"])
	assert.Equal(t, "/login", frames[1]["route"])
	assert.Equal(t, 1, f.gw.Count())
	assert.Equal(t, []string{"create c1"}, f.presence.calls)
}

func TestLoginAndChatScenario(t *testing.T) {
	f := newFixture(t)
	f.sender.take("c1")

	f.dispatch(`{"type":"login","username":"alice"}`)
	frames := f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/chat", frames[0]["route"])
	assert.Equal(t, "alice", frames[0]["username"])
	assert.Empty(t, frames[0]["messages"])

	f.dispatch(`{"type":"message","text":"hello"}`)
	frames = f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.TypeChatMessage, frames[0]["type"])
	assert.Equal(t, "alice", frames[0]["author"])
	assert.Equal(t, "hello", frames[0]["text"])

	f.clock.Advance(999 * time.Millisecond)
	assert.Empty(t, f.sender.take("c1"))

	f.clock.Advance(time.Millisecond)
	frames = f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, bot.Name, frames[0]["author"])
	assert.Contains(t, bot.DefaultRules().Greetings, frames[0]["text"])
	assert.EqualValues(t, 2, frames[0]["seq"])

	assert.Equal(t, []string{"create c1", "login c1 alice", "touch c1"}, f.presence.calls)
}

func TestBlankSubmissionsGetNoResponse(t *testing.T) {
	f := newFixture(t)
	f.sender.take("c1")

	f.dispatch(`{"type":"login","username":"   "}`)
	assert.Empty(t, f.sender.take("c1"))

	f.dispatch(`{"type":"login","username":"alice"}`)
	f.sender.take("c1")

	f.dispatch(`{"type":"message","text":""}`)
	f.clock.Advance(2 * time.Second)
	assert.Empty(t, f.sender.take("c1"))
}

func TestLogoutShowsLoginAndDropsPendingReply(t *testing.T) {
	f := newFixture(t)
	f.dispatch(`{"type":"login","username":"alice"}`)
	f.dispatch(`{"type":"message","text":"hello"}`)
	f.sender.take("c1")

	f.dispatch(`{"type":"logout"}`)
	frames := f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/login", frames[0]["route"])

	f.clock.Advance(2 * time.Second)
	assert.Empty(t, f.sender.take("c1"), "no reply after logout")
}

func TestNavigateRedirects(t *testing.T) {
	f := newFixture(t)
	f.sender.take("c1")

	f.dispatch(`{"type":"navigate","path":"/chat"}`)
	frames := f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/login", frames[0]["route"])

	f.dispatch(`{"type":"login","username":"alice"}`)
	f.dispatch(`{"type":"message","text":"tell me more"}`)
	f.clock.Advance(time.Second)
	f.sender.take("c1")

	f.dispatch(`{"type":"navigate","path":"/"}`)
	frames = f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/chat", frames[0]["route"])
	msgs, ok := frames[0]["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)

	f.dispatch(`{"type":"login","username":"bob"}`)
	frames = f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/chat", frames[0]["route"])
	assert.Equal(t, "alice", frames[0]["username"])
}

func TestMessageWhileLoggedOutShowsLogin(t *testing.T) {
	f := newFixture(t)
	f.sender.take("c1")

	f.dispatch(`{"type":"message","text":"hello"}`)
	frames := f.sender.take("c1")
	require.Len(t, frames, 1)
	assert.Equal(t, "/login", frames[0]["route"])
}

func TestOnDisconnect(t *testing.T) {
	f := newFixture(t)
	f.dispatch(`{"type":"login","username":"alice"}`)
	f.dispatch(`{"type":"message","text":"hello"}`)

	f.gw.OnDisconnect("c1")
	assert.Zero(t, f.gw.Count())
	assert.Zero(t, f.clock.Pending())
	assert.Contains(t, f.presence.calls, "delete c1")

	// Frames for a gone session are ignored.
	f.sender.take("c1")
	f.dispatch(`{"type":"login","username":"bob"}`)
	assert.Empty(t, f.sender.take("c1"))

	f.gw.OnDisconnect("c1")
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	other := &ws.Connection{ID: "c2"}
	f.gw.OnConnect(other)

	f.dispatch(`{"type":"login","username":"alice"}`)
	f.dispatch(`{"type":"message","text":"hello"}`)
	f.clock.Advance(time.Second)

	frames := f.sender.take("c2")
	require.Len(t, frames, 2, "c2 only sees its own session_created and view")
	assert.Equal(t, "/login", frames[1]["route"])
}
