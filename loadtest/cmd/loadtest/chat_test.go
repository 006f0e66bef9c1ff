package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageText(t *testing.T) {
	assert.Equal(t, "message 1 from user-7", messageText(7, 1, 4))
	assert.True(t, strings.HasPrefix(messageText(7, 4, 4), "Hello"))
	assert.Equal(t, "message 4 from user-7", messageText(7, 4, 0))
}

func TestLoginSetupDisabled(t *testing.T) {
	assert.Nil(t, loginSetup(false, nil))
}
