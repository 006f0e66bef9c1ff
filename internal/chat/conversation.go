package chat

import (
	"sync"
	"time"

	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/clock"
	"github.com/whisper/chatroom/internal/metrics"
)

// Options configures a Conversation.
type Options struct {
	Author    string        // display name used for user messages
	Responder bot.Responder // produces the bot reply text
	Clock     clock.Clock   // defaults to clock.System()
	Delay     time.Duration // bot reply delay; zero means bot.DefaultDelay
	Log       *Log          // defaults to a fresh Log
}

// Conversation is the chat view's orchestration: each sent message is
// appended at once and answered by the bot after a fixed delay.
//
// Every send schedules its own reply. Replies are never coalesced and later
// sends never cancel earlier replies; they land in submission order.
type Conversation struct {
	author    string
	responder bot.Responder
	clock     clock.Clock
	delay     time.Duration
	log       *Log

	sendMu    sync.Mutex // one submission at a time
	deliverMu sync.Mutex // one delivery at a time, keeps replies in order

	mu      sync.Mutex // guards the fields below
	pending []*pendingReply
	nextSeq uint64
	closed  bool
}

// pendingReply is a scheduled bot answer to one user message.
type pendingReply struct {
	seq    uint64
	text   string
	sentAt time.Time
	timer  clock.Timer
}

// NewConversation creates a Conversation.
func NewConversation(opts Options) *Conversation {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Delay == 0 {
		opts.Delay = bot.DefaultDelay
	}
	if opts.Log == nil {
		opts.Log = NewLog()
	}
	return &Conversation{
		author:    opts.Author,
		responder: opts.Responder,
		clock:     opts.Clock,
		delay:     opts.Delay,
		log:       opts.Log,
	}
}

// Log returns the conversation's message log.
func (c *Conversation) Log() *Log {
	return c.log
}

// Author returns the name user messages are recorded under.
func (c *Conversation) Author() string {
	return c.author
}

// Send appends text as a user message and schedules the bot reply. Blank
// text returns ErrBlankText and changes nothing.
func (c *Conversation) Send(text string) (Message, error) {
	if err := ValidateText(text); err != nil {
		return Message{}, err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.isClosed() {
		return Message{}, ErrClosed
	}

	msg := c.log.Append(c.author, text, c.clock.Now())
	metrics.MessagesTotal.WithLabelValues(metrics.AuthorUser).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return msg, nil
	}

	c.nextSeq++
	seq := c.nextSeq
	p := &pendingReply{seq: seq, text: text, sentAt: msg.SentAt}
	c.pending = append(c.pending, p)
	p.timer = c.clock.AfterFunc(c.delay, func() { c.deliver(seq) })
	metrics.PendingReplies.Inc()

	return msg, nil
}

// Pending returns how many bot replies are scheduled but not yet appended.
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close cancels every pending reply. Later sends return ErrClosed. The log
// itself is left as is.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	dropped := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, p := range dropped {
		p.timer.Stop()
	}
	metrics.PendingReplies.Sub(float64(len(dropped)))
}

func (c *Conversation) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// deliver appends the reply for seq, together with any earlier reply whose
// timer has not fired yet. Timer goroutines may race; popping the queue in
// FIFO order under deliverMu keeps the log in submission order and appends
// each reply exactly once.
func (c *Conversation) deliver(seq uint64) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	var due []*pendingReply
	for len(c.pending) > 0 && c.pending[0].seq <= seq {
		due = append(due, c.pending[0])
		c.pending = c.pending[1:]
	}
	c.mu.Unlock()
	metrics.PendingReplies.Sub(float64(len(due)))

	for _, p := range due {
		if p.seq != seq {
			p.timer.Stop()
		}
		reply := c.responder.Respond(p.text)
		if c.isClosed() {
			return
		}
		msg := c.log.Append(bot.Name, reply, c.clock.Now())
		metrics.MessagesTotal.WithLabelValues(metrics.AuthorBot).Inc()
		metrics.ReplyDelay.Observe(msg.SentAt.Sub(p.sentAt).Seconds())
	}
}
