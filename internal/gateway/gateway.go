// Package gateway binds WebSocket connections to application state: every
// connection is one browser session with its own app.App. Nothing is shared
// between connections.
package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/internal/chat"
	"github.com/whisper/chatroom/internal/protocol"
	"github.com/whisper/chatroom/internal/session"
	"github.com/whisper/chatroom/internal/ws"
)

const presenceTimeout = 3 * time.Second

// Sender delivers a frame to a connection.
type Sender interface {
	SendMessage(connID string, data []byte) error
}

// Presence mirrors session state somewhere other processes can see it.
// *session.Store implements it.
type Presence interface {
	Create(ctx context.Context, sessionID string) error
	MarkLoggedIn(ctx context.Context, sessionID string, id session.Identity) error
	MarkLoggedOut(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// Gateway owns the App of every live connection.
type Gateway struct {
	sender   Sender
	appCfg   app.Config
	presence Presence // nil when disabled
	log      *zap.Logger

	mu   sync.RWMutex
	apps map[string]*app.App
}

// New creates a Gateway. presence may be nil.
func New(sender Sender, appCfg app.Config, presence Presence, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		sender:   sender,
		appCfg:   appCfg,
		presence: presence,
		log:      log,
		apps:     make(map[string]*app.App),
	}
}

// Register installs the gateway's handlers on d.
func (g *Gateway) Register(d *ws.MessageDispatcher) {
	d.Register(protocol.TypeLogin, g.handleLogin)
	d.Register(protocol.TypeLogout, g.handleLogout)
	d.Register(protocol.TypeMessage, g.handleMessage)
	d.Register(protocol.TypeNavigate, g.handleNavigate)
}

// OnConnect creates the connection's App and shows the login view.
func (g *Gateway) OnConnect(conn *ws.Connection) {
	connID := conn.ID
	a := app.New(g.appCfg, func(e app.Event) {
		if e.Kind == app.EventMessage {
			g.send(connID, protocol.TypeChatMessage, protocol.FromChat(e.Message))
		}
	})

	g.mu.Lock()
	g.apps[connID] = a
	g.mu.Unlock()

	g.withPresence(connID, "create", func(ctx context.Context, p Presence) error {
		return p.Create(ctx, connID)
	})

	g.send(connID, protocol.TypeSessionCreated, protocol.SessionCreatedMsg{SessionID: connID})
	g.sendView(connID, a)
}

// OnDisconnect discards the connection's App, cancelling pending replies.
func (g *Gateway) OnDisconnect(connID string) {
	g.mu.Lock()
	a, ok := g.apps[connID]
	delete(g.apps, connID)
	g.mu.Unlock()
	if !ok {
		return
	}

	a.Close()
	g.withPresence(connID, "delete", func(ctx context.Context, p Presence) error {
		return p.Delete(ctx, connID)
	})
}

// Count returns the number of live sessions.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.apps)
}

// Close discards every App.
func (g *Gateway) Close() {
	g.mu.Lock()
	apps := g.apps
	g.apps = make(map[string]*app.App)
	g.mu.Unlock()

	for _, a := range apps {
		a.Close()
	}
}

func (g *Gateway) handleLogin(conn *ws.Connection, msg interface{}) {
	m, ok := msg.(protocol.LoginMsg)
	if !ok {
		return
	}
	a := g.app(conn.ID)
	if a == nil {
		return
	}

	if !a.Login(m.Username) {
		// Blank submissions get no response; a second login is redirected
		// to the chat view.
		if _, loggedIn := a.Identity(); loggedIn {
			a.Navigate(string(app.RouteLogin))
			g.sendView(conn.ID, a)
		}
		return
	}

	id, _ := a.Identity()
	g.log.Info("login", zap.String("session", conn.ID), zap.String("user", id.Username))
	g.withPresence(conn.ID, "mark logged in", func(ctx context.Context, p Presence) error {
		return p.MarkLoggedIn(ctx, conn.ID, id)
	})
	g.sendView(conn.ID, a)
}

func (g *Gateway) handleLogout(conn *ws.Connection, msg interface{}) {
	a := g.app(conn.ID)
	if a == nil {
		return
	}

	if a.Logout() {
		g.log.Info("logout", zap.String("session", conn.ID))
		g.withPresence(conn.ID, "mark logged out", func(ctx context.Context, p Presence) error {
			return p.MarkLoggedOut(ctx, conn.ID)
		})
	}
	g.sendView(conn.ID, a)
}

func (g *Gateway) handleMessage(conn *ws.Connection, msg interface{}) {
	m, ok := msg.(protocol.ChatMsg)
	if !ok {
		return
	}
	a := g.app(conn.ID)
	if a == nil {
		return
	}

	if a.Send(m.Text) {
		g.withPresence(conn.ID, "touch", func(ctx context.Context, p Presence) error {
			return p.Touch(ctx, conn.ID)
		})
		return
	}
	if chat.ValidateText(m.Text) != nil {
		return
	}
	// Not logged in: the chat view is unreachable, show the login view.
	a.Navigate(string(app.RouteChat))
	g.sendView(conn.ID, a)
}

func (g *Gateway) handleNavigate(conn *ws.Connection, msg interface{}) {
	m, ok := msg.(protocol.NavigateMsg)
	if !ok {
		return
	}
	a := g.app(conn.ID)
	if a == nil {
		return
	}

	a.Navigate(m.Path)
	g.sendView(conn.ID, a)
}

func (g *Gateway) app(connID string) *app.App {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.apps[connID]
}

// sendView renders the App's current route.
func (g *Gateway) sendView(connID string, a *app.App) {
	route := a.Route()
	var view protocol.ViewMsg
	if id, ok := a.Identity(); ok && route == app.RouteChat {
		view = protocol.NewView(string(route), id.Username, a.Messages())
	} else {
		view = protocol.NewView(string(route), "", nil)
	}
	g.send(connID, protocol.TypeView, view)
}

func (g *Gateway) send(connID, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		g.log.Error("failed to build message", zap.String("session", connID), zap.String("type", msgType), zap.Error(err))
		return
	}
	if err := g.sender.SendMessage(connID, data); err != nil {
		g.log.Debug("send failed", zap.String("session", connID), zap.String("type", msgType), zap.Error(err))
	}
}

// withPresence runs fn against the presence store, if any. Failures are
// logged and otherwise ignored.
func (g *Gateway) withPresence(connID, action string, fn func(ctx context.Context, p Presence) error) {
	if g.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := fn(ctx, g.presence); err != nil {
		g.log.Warn("presence update failed",
			zap.String("session", connID),
			zap.String("action", action),
			zap.Error(err))
	}
}
