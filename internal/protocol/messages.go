// Package protocol defines the WebSocket message types exchanged between a
// chat view in the browser and the gateway. All messages are JSON objects with
// a "type" discriminator.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/whisper/chatroom/internal/chat"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeLogin    = "login"
	TypeLogout   = "logout"
	TypeMessage  = "message"
	TypeNavigate = "navigate"
	TypePing     = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated = "session_created"
	TypeView           = "view"
	TypeChatMessage    = "message"
	TypeError          = "error"
	TypePong           = "pong"
)

// Error codes carried by ErrorMsg.
const (
	CodeInvalidMessage = "invalid_message"
	CodeInvalidPayload = "invalid_payload"
)

// Payload size limits. Blank values are legal on the wire and dropped by the
// application; only oversize values are rejected here.
const (
	MaxUsernameLen = 64
	MaxTextLen     = 4096
	MaxPathLen     = 256
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw bytes and extracts only the "type" field.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// LoginMsg is the login form submission.
type LoginMsg struct {
	Type     string `json:"type"`
	Username string `json:"username" validate:"max=64"`
}

// LogoutMsg asks to log out and return to the login view.
type LogoutMsg struct {
	Type string `json:"type"`
}

// ChatMsg is the chat view's message form submission.
type ChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text" validate:"max=4096"`
}

// NavigateMsg requests a route, like typing a URL path.
type NavigateMsg struct {
	Type string `json:"type"`
	Path string `json:"path" validate:"max=256"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent once when the connection is established.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ViewMsg tells the client which view to render and with what content.
// Username and Messages are only meaningful on the chat view.
type ViewMsg struct {
	Type     string              `json:"type"`
	Route    string              `json:"route"`
	Username string              `json:"username,omitempty"`
	Messages []ServerChatMessage `json:"messages"`
}

// ServerChatMessage is one appended log entry.
type ServerChatMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// ErrorMsg reports a malformed or rejected frame.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types and for oversize fields.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeLogin:
		var m LoginMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = validate.Struct(m)
		}
		msg = m
	case TypeLogout:
		var m LogoutMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessage:
		var m ChatMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = validate.Struct(m)
		}
		msg = m
	case TypeNavigate:
		var m NavigateMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = validate.Struct(m)
		}
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}

// FromChat converts a log entry into its wire form.
func FromChat(m chat.Message) ServerChatMessage {
	return ServerChatMessage{
		Type:      TypeChatMessage,
		ID:        m.ID,
		Seq:       m.Seq,
		Text:      m.Text,
		Author:    m.Author,
		Timestamp: m.Timestamp,
	}
}

// NewView builds a ViewMsg for route. The message slice is never nil so the
// client always receives a JSON array.
func NewView(route, username string, msgs []chat.Message) ViewMsg {
	return ViewMsg{
		Type:     TypeView,
		Route:    route,
		Username: username,
		Messages: lo.Map(msgs, func(m chat.Message, _ int) ServerChatMessage {
			return FromChat(m)
		}),
	}
}
