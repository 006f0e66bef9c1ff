package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var testTime = time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

func TestAppendAndSnapshot(t *testing.T) {
	l := NewLog()

	l.Append("alice", "hello", testTime)
	l.Append("ChatBot", "Hi there!", testTime.Add(time.Second))
	l.Append("alice", "how are you?", testTime.Add(2*time.Second))

	msgs := l.Snapshot()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "hello" || msgs[0].Author != "alice" {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Author != "ChatBot" {
		t.Errorf("expected second author ChatBot, got %q", msgs[1].Author)
	}
	for i, msg := range msgs {
		if msg.Seq != i+1 {
			t.Errorf("index %d: expected seq %d, got %d", i, i+1, msg.Seq)
		}
	}
}

func TestAppendFillsTimestampAndID(t *testing.T) {
	l := NewLog()

	msg := l.Append("alice", "hello", testTime)
	if msg.Timestamp != "2:05:09 PM" {
		t.Errorf("expected timestamp '2:05:09 PM', got %q", msg.Timestamp)
	}
	if !msg.SentAt.Equal(testTime) {
		t.Errorf("expected SentAt %v, got %v", testTime, msg.SentAt)
	}
	if msg.ID == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestAppendKeepsTextVerbatim(t *testing.T) {
	l := NewLog()

	msg := l.Append("alice", "  spaced out  ", testTime)
	if msg.Text != "  spaced out  " {
		t.Fatalf("expected text kept verbatim, got %q", msg.Text)
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	l := NewLog()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		msg := l.Append("alice", "same", testTime)
		if seen[msg.ID] {
			t.Fatalf("duplicate id %s at %d", msg.ID, i)
		}
		seen[msg.ID] = true
	}
}

func TestSnapshotEmptyLog(t *testing.T) {
	l := NewLog()

	msgs := l.Snapshot()
	if msgs == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(msgs))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	l.Append("alice", "original", testTime)

	msgs := l.Snapshot()
	msgs[0].Text = "changed"

	if got := l.Snapshot()[0].Text; got != "original" {
		t.Fatalf("expected log to be unchanged, got %q", got)
	}
}

func TestSubscribe(t *testing.T) {
	l := NewLog()

	var got []string
	unsubscribe := l.Subscribe(func(m Message) {
		got = append(got, m.Text)
	})

	l.Append("alice", "one", testTime)
	l.Append("alice", "two", testTime)
	unsubscribe()
	l.Append("alice", "three", testTime)

	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("expected [one two], got %v", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := NewLog()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Append(fmt.Sprintf("user-%d", g), fmt.Sprintf("msg-%d", i), testTime)
			}
		}(g)
	}
	wg.Wait()

	msgs := l.Snapshot()
	if len(msgs) != 1000 {
		t.Fatalf("expected 1000 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Seq != i+1 {
			t.Fatalf("index %d: expected seq %d, got %d", i, i+1, msg.Seq)
		}
	}
	if l.Len() != 1000 {
		t.Fatalf("expected Len 1000, got %d", l.Len())
	}
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"", ErrBlankText},
		{"   ", ErrBlankText},
		{"\t\n", ErrBlankText},
		{"hello", nil},
		{"  hi  ", nil},
	}
	for _, tt := range tests {
		if got := ValidateText(tt.text); got != tt.want {
			t.Errorf("ValidateText(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
