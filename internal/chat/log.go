package chat

import (
	"sync"
	"time"
)

// Log is the append-only, insertion-ordered message log of one chat view.
// It is goroutine-safe; subscribers are notified after each append, in
// append order.
type Log struct {
	mu       sync.RWMutex
	messages []Message

	subMu   sync.Mutex // serializes appends with notification
	nextSub int
	subs    map[int]func(Message)
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{subs: make(map[int]func(Message))}
}

// Append stores a new message authored by author and returns it with its ID,
// sequence number and timestamp filled in.
func (l *Log) Append(author, text string, at time.Time) Message {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	l.mu.Lock()
	msg := Message{
		ID:        newMessageID(),
		Seq:       len(l.messages) + 1,
		Text:      text,
		Author:    author,
		Timestamp: at.Format(TimestampLayout),
		SentAt:    at,
	}
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	for _, fn := range l.subs {
		fn(msg)
	}
	return msg
}

// Snapshot returns a copy of all messages in insertion order. It never
// returns nil.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Subscribe registers fn to be called with every message appended from now
// on. The returned function removes the subscription. fn must not append to
// the same Log.
func (l *Log) Subscribe(fn func(Message)) (unsubscribe func()) {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}
