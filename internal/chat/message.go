// Package chat holds the message log of the chat view and the conversation
// that appends user messages and the bot's delayed replies to it.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the display format of Message.Timestamp.
const TimestampLayout = "3:04:05 PM"

// Message is one entry of the message log. Messages are never modified once
// appended.
type Message struct {
	ID        string    `json:"id"`     // time-ordered UUIDv7
	Seq       int       `json:"seq"`    // 1-based position in the log
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Timestamp string    `json:"timestamp"` // display-formatted
	SentAt    time.Time `json:"-"`
}

// newMessageID returns a time-ordered UUID. It falls back to a random UUID if
// the v7 generator fails to read entropy.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
