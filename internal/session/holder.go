package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrBlankUsername is returned when the submitted username is empty or
	// whitespace-only.
	ErrBlankUsername = errors.New("session: username is blank")

	// ErrAlreadyLoggedIn is returned by Login while an identity is present.
	ErrAlreadyLoggedIn = errors.New("session: already logged in")
)

// Identity is the logged-in user. ID is opaque and unique per login.
type Identity struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// Holder stores the current identity, if any. The zero value is a logged-out
// Holder ready for use.
type Holder struct {
	mu       sync.RWMutex
	identity *Identity
}

// Login records a new identity for username. The username is trimmed; a
// blank one is rejected and leaves the Holder unchanged.
func (h *Holder) Login(username string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Identity{}, ErrBlankUsername
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.identity != nil {
		return *h.identity, ErrAlreadyLoggedIn
	}
	id := Identity{Username: username, ID: uuid.NewString()}
	h.identity = &id
	return id, nil
}

// Logout clears the identity. It returns the identity that was removed and
// whether one was present.
func (h *Holder) Logout() (Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.identity == nil {
		return Identity{}, false
	}
	id := *h.identity
	h.identity = nil
	return id, true
}

// Current returns the identity and whether one is present.
func (h *Holder) Current() (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.identity == nil {
		return Identity{}, false
	}
	return *h.identity, true
}

// LoggedIn reports whether an identity is present.
func (h *Holder) LoggedIn() bool {
	_, ok := h.Current()
	return ok
}
