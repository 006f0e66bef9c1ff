package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	ds := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}

	s := Summarize(ds)
	assert.Equal(t, 100, s.N)
	assert.Equal(t, 51*time.Millisecond, s.P50)
	assert.Equal(t, 95*time.Millisecond, s.P95)
	assert.Equal(t, 99*time.Millisecond, s.P99)
	assert.Equal(t, 100*time.Millisecond, s.Max)
	assert.Equal(t, 50500*time.Microsecond, s.Avg)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestCollectorReport(t *testing.T) {
	c := NewCollector()
	c.AddConnect(2 * time.Millisecond)
	c.AddLogin()
	c.AddSent()
	c.AddReplyLatencies([]time.Duration{time.Second})
	c.AddError()

	assert.Equal(t, 1, c.ConnectionCount())
	assert.Equal(t, 1, c.ErrorCount())
	assert.Equal(t, 1, c.ReplyCount())

	var buf bytes.Buffer
	c.Report(&buf)
	out := buf.String()
	assert.Contains(t, out, "Connections:  1")
	assert.Contains(t, out, "Replies:      1")
	assert.Contains(t, out, "--- Reply Latency ---")
	assert.NotContains(t, out, "Server Metrics")
}

func TestParseMetricLine(t *testing.T) {
	name, labels, v, ok := parseMetricLine(`chatroom_messages_total{author="bot"} 7`)
	require.True(t, ok)
	assert.Equal(t, "chatroom_messages_total", name)
	assert.Equal(t, `author="bot"`, labels)
	assert.Equal(t, 7.0, v)

	name, labels, v, ok = parseMetricLine("chatroom_pending_replies 3")
	require.True(t, ok)
	assert.Equal(t, "chatroom_pending_replies", name)
	assert.Empty(t, labels)
	assert.Equal(t, 3.0, v)

	_, _, _, ok = parseMetricLine(`broken{author="bot" 1`)
	assert.False(t, ok)
	_, _, _, ok = parseMetricLine("lonely")
	assert.False(t, ok)
}

func TestParseSnapshot(t *testing.T) {
	body := strings.Join([]string{
		"# HELP chatroom_connections_total Current number of WebSocket connections.",
		"chatroom_connections_total 4",
		"chatroom_logins_total 2",
		`chatroom_messages_total{author="user"} 10`,
		`chatroom_messages_total{author="bot"} 9`,
		`chatroom_dropped_submissions_total{form="login"} 1`,
		`chatroom_dropped_submissions_total{form="message"} 2`,
		"chatroom_pending_replies 1",
		"chatroom_reply_delay_seconds_sum 9.1",
		"chatroom_reply_delay_seconds_count 9",
	}, "\n")

	snap, err := parseSnapshot(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 4.0, snap.connections)
	assert.Equal(t, 2.0, snap.logins)
	assert.Equal(t, 10.0, snap.userMsgs)
	assert.Equal(t, 9.0, snap.botMsgs)
	assert.Equal(t, 3.0, snap.dropped)
	assert.Equal(t, 1.0, snap.pending)
	assert.Equal(t, 9.1, snap.delaySum)
	assert.Equal(t, 9.0, snap.delayCount)
}
