// Package app ties the session holder and the chat conversation together
// into the state of one user session, and tracks which view is shown.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/chat"
	"github.com/whisper/chatroom/internal/clock"
	"github.com/whisper/chatroom/internal/metrics"
	"github.com/whisper/chatroom/internal/session"
)

// EventKind identifies what changed.
type EventKind string

const (
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
	EventMessage EventKind = "message"
)

// Event tells the view layer to re-render.
type Event struct {
	Kind     EventKind
	Identity session.Identity // set for login and logout
	Message  chat.Message     // set for message
}

// Listener receives events. Message events for bot replies arrive on timer
// goroutines. A Listener must not call back into Send, Login or Logout.
type Listener func(Event)

// Config configures an App.
type Config struct {
	Responder bot.Responder
	Clock     clock.Clock   // defaults to clock.System()
	Delay     time.Duration // zero means bot.DefaultDelay
}

// App is the state of one user session. It is safe for concurrent use; the
// identity, route and conversation change together under mu.
type App struct {
	cfg      Config
	listener Listener
	holder   session.Holder

	mu     sync.Mutex
	route  Route
	conv   *chat.Conversation
	unsub  func()
	closed bool
}

// New creates a logged-out App showing the login view. listener may be nil.
func New(cfg Config, listener Listener) *App {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if listener == nil {
		listener = func(Event) {}
	}
	return &App{cfg: cfg, listener: listener, route: RouteLogin}
}

// Login logs username in and opens a fresh, empty chat. It returns false
// for blank usernames and while already logged in.
func (a *App) Login(username string) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	id, err := a.holder.Login(username)
	if err != nil {
		a.mu.Unlock()
		if errors.Is(err, session.ErrBlankUsername) {
			metrics.DroppedSubmissions.WithLabelValues(metrics.FormLogin).Inc()
		}
		return false
	}

	conv := chat.NewConversation(chat.Options{
		Author:    id.Username,
		Responder: a.cfg.Responder,
		Clock:     a.cfg.Clock,
		Delay:     a.cfg.Delay,
	})
	a.conv = conv
	a.unsub = conv.Log().Subscribe(func(m chat.Message) {
		a.listener(Event{Kind: EventMessage, Message: m})
	})
	a.route = RouteChat
	a.mu.Unlock()

	metrics.LoginsTotal.Inc()
	a.listener(Event{Kind: EventLogin, Identity: id})
	return true
}

// Logout clears the identity, discards the chat and cancels pending bot
// replies. It returns false when nobody was logged in.
func (a *App) Logout() bool {
	a.mu.Lock()
	id, ok := a.holder.Logout()
	if !ok {
		a.mu.Unlock()
		return false
	}
	a.route = RouteLogin
	conv, unsub := a.detachLocked()
	a.mu.Unlock()

	closeConversation(conv, unsub)

	metrics.LogoutsTotal.Inc()
	a.listener(Event{Kind: EventLogout, Identity: id})
	return true
}

// Send submits text from the chat view's message form. It returns false when
// logged out or when text is blank.
func (a *App) Send(text string) bool {
	a.mu.Lock()
	conv := a.conv
	a.mu.Unlock()
	if conv == nil {
		return false
	}

	if _, err := conv.Send(text); err != nil {
		if errors.Is(err, chat.ErrBlankText) {
			metrics.DroppedSubmissions.WithLabelValues(metrics.FormMessage).Inc()
		}
		return false
	}
	return true
}

// Messages returns the chat log in insertion order. It is empty while logged
// out.
func (a *App) Messages() []chat.Message {
	a.mu.Lock()
	conv := a.conv
	a.mu.Unlock()
	if conv == nil {
		return []chat.Message{}
	}
	return conv.Log().Snapshot()
}

// Identity returns the logged-in identity, if any.
func (a *App) Identity() (session.Identity, bool) {
	return a.holder.Current()
}

// Route returns the view currently shown.
func (a *App) Route() Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// Navigate requests path and returns the route actually shown.
func (a *App) Navigate(path string) Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.route = Resolve(path, a.holder.LoggedIn())
	return a.route
}

// Pending returns how many bot replies are still scheduled.
func (a *App) Pending() int {
	a.mu.Lock()
	conv := a.conv
	a.mu.Unlock()
	if conv == nil {
		return 0
	}
	return conv.Pending()
}

// Close cancels pending replies and stops all further events. The App is
// not usable afterwards.
func (a *App) Close() {
	a.mu.Lock()
	a.closed = true
	a.holder.Logout()
	conv, unsub := a.detachLocked()
	a.mu.Unlock()

	closeConversation(conv, unsub)
}

// detachLocked clears the current conversation. The caller holds a.mu.
func (a *App) detachLocked() (*chat.Conversation, func()) {
	conv, unsub := a.conv, a.unsub
	a.conv, a.unsub = nil, nil
	return conv, unsub
}

// closeConversation detaches the listener before closing so that no message
// event follows a logout event. Callers must not hold a.mu.
func closeConversation(conv *chat.Conversation, unsub func()) {
	if unsub != nil {
		unsub()
	}
	if conv != nil {
		conv.Close()
	}
}
