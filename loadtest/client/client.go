// Package client provides a WebSocket client for load testing the chatroom
// gateway. It speaks the same protocol as the browser view: it waits for
// session_created, logs in, sends messages and measures how long ChatBot
// takes to answer each one.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/protocol"
)

// ErrClosed is returned when the connection ended before the awaited event.
var ErrClosed = errors.New("client: connection closed")

// Metrics tracks per-connection performance data.
type Metrics struct {
	ConnectLatency   time.Duration
	ReplyLatencies   []time.Duration // send to ChatBot reply, in reply order
	MessagesReceived int
	MessagesSent     int
	Errors           int
}

// Client is one simulated browser session.
type Client struct {
	conn      net.Conn
	rd        io.ReadWriter // handshake buffer first, then conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	session chan string              // receives the session id once
	views   chan protocol.ViewMsg    // every view frame
	replies chan protocol.ServerChatMessage

	mu       sync.Mutex
	metrics  Metrics
	inFlight []time.Time // send times of unanswered messages, FIFO
}

// New dials url and starts reading frames in the background.
func New(ctx context.Context, url string) (*Client, error) {
	start := time.Now()
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		conn:    conn,
		done:    make(chan struct{}),
		session: make(chan string, 1),
		views:   make(chan protocol.ViewMsg, 16),
		replies: make(chan protocol.ServerChatMessage, 256),
	}
	c.metrics.ConnectLatency = time.Since(start)

	// Frames sent right after the upgrade may already sit in br. Pongs written
	// by the read loop share the send mutex.
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	c.rd = struct {
		io.Reader
		io.Writer
	}{r, lockedWriter{c}}

	go c.readLoop()
	return c, nil
}

// WaitForSession blocks until the server assigned a session id.
func (c *Client) WaitForSession(ctx context.Context) (string, error) {
	select {
	case id := <-c.session:
		return id, nil
	case <-c.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Login submits the login form and waits for the resulting view.
func (c *Client) Login(ctx context.Context, username string) (protocol.ViewMsg, error) {
	if err := c.send(protocol.LoginMsg{Type: protocol.TypeLogin, Username: username}); err != nil {
		return protocol.ViewMsg{}, err
	}
	return c.NextView(ctx)
}

// Logout asks to log out and waits for the login view.
func (c *Client) Logout(ctx context.Context) (protocol.ViewMsg, error) {
	if err := c.send(protocol.LogoutMsg{Type: protocol.TypeLogout}); err != nil {
		return protocol.ViewMsg{}, err
	}
	return c.NextView(ctx)
}

// NextView waits for the next view frame.
func (c *Client) NextView(ctx context.Context) (protocol.ViewMsg, error) {
	select {
	case v := <-c.views:
		return v, nil
	case <-c.done:
		return protocol.ViewMsg{}, ErrClosed
	case <-ctx.Done():
		return protocol.ViewMsg{}, ctx.Err()
	}
}

// SendText submits the chat form. The reply latency is recorded when the
// matching ChatBot message arrives.
func (c *Client) SendText(text string) error {
	c.mu.Lock()
	c.inFlight = append(c.inFlight, time.Now())
	c.mu.Unlock()

	if err := c.send(protocol.ChatMsg{Type: protocol.TypeMessage, Text: text}); err != nil {
		c.mu.Lock()
		c.inFlight = c.inFlight[:len(c.inFlight)-1]
		c.mu.Unlock()
		return err
	}
	return nil
}

// NextReply waits for the next ChatBot message.
func (c *Client) NextReply(ctx context.Context) (protocol.ServerChatMessage, error) {
	select {
	case m := <-c.replies:
		return m, nil
	case <-c.done:
		return protocol.ServerChatMessage{}, ErrClosed
	case <-ctx.Done():
		return protocol.ServerChatMessage{}, ctx.Err()
	}
}

// Close closes the connection and stops the read loop. It is safe to call
// multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// GetMetrics returns a copy of the client's metrics.
func (c *Client) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.metrics
	m.ReplyLatencies = append([]time.Duration(nil), c.metrics.ReplyLatencies...)
	return m
}

func (c *Client) send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	err = wsutil.WriteClientMessage(c.conn, ws.OpText, data)
	c.writeMu.Unlock()

	c.mu.Lock()
	if err != nil {
		c.metrics.Errors++
	} else {
		c.metrics.MessagesSent++
	}
	c.mu.Unlock()
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		data, err := wsutil.ReadServerText(c.rd)
		if err != nil {
			return
		}

		c.mu.Lock()
		c.metrics.MessagesReceived++
		c.mu.Unlock()

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.countError()
			continue
		}

		switch env.Type {
		case protocol.TypeSessionCreated:
			var m protocol.SessionCreatedMsg
			if json.Unmarshal(data, &m) == nil {
				select {
				case c.session <- m.SessionID:
				default:
				}
			}
		case protocol.TypeView:
			var v protocol.ViewMsg
			if json.Unmarshal(data, &v) == nil {
				select {
				case c.views <- v:
				default:
				}
			}
		case protocol.TypeChatMessage:
			var m protocol.ServerChatMessage
			if json.Unmarshal(data, &m) == nil && m.Author == bot.Name {
				c.recordReply()
				select {
				case c.replies <- m:
				default:
				}
			}
		case protocol.TypeError:
			c.countError()
		}
	}
}

func (c *Client) recordReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inFlight) == 0 {
		return
	}
	c.metrics.ReplyLatencies = append(c.metrics.ReplyLatencies, time.Since(c.inFlight[0]))
	c.inFlight = c.inFlight[1:]
}

func (c *Client) countError() {
	c.mu.Lock()
	c.metrics.Errors++
	c.mu.Unlock()
}

type lockedWriter struct{ c *Client }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}
