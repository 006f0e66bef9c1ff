package chat

import (
	"errors"
	"strings"
)

var (
	// ErrBlankText is returned for empty or whitespace-only submissions.
	ErrBlankText = errors.New("chat: message text is blank")

	// ErrClosed is returned by Send after the conversation was closed.
	ErrClosed = errors.New("chat: conversation closed")
)

// ValidateText checks a message form submission. The text itself is stored
// verbatim; only the blank check trims.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankText
	}
	return nil
}
