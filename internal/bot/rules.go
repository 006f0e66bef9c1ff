// Package bot implements the scripted chat bot: a fixed pattern table that
// maps an incoming message to one of a handful of canned replies.
package bot

import "time"

const (
	// Name is the author recorded on every bot message.
	Name = "ChatBot"

	// DefaultDelay is how long after a user message the bot reply appears.
	DefaultDelay = 1000 * time.Millisecond
)

// Rules is the static table the Selector draws from.
type Rules struct {
	Patterns  []string // lower-case substrings that mark a greeting
	Greetings []string // replies used when a pattern matches
	General   []string // replies used otherwise
}

// DefaultRules returns the stock greeting/general table.
func DefaultRules() Rules {
	return Rules{
		Patterns: []string{"hi", "hello", "hey", "howdy"},
		Greetings: []string{
			"Hi there! How can I help you today?",
			"Hello! Nice to meet you!",
			"Hey! How are you doing?",
			"Welcome! How can I assist you?",
		},
		General: []string{
			"That's interesting! Tell me more.",
			"I understand. Please continue.",
			"Thanks for sharing!",
			"How can I help you further?",
			"I'm here to assist you!",
		},
	}
}
