package bot

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeded(t *testing.T, seed uint64) *Selector {
	t.Helper()
	s, err := NewSelector(DefaultRules(), rand.NewPCG(seed, seed))
	require.NoError(t, err)
	return s
}

func TestReply_GreetingsDrawOnlyFromGreetingSet(t *testing.T) {
	s := newSeeded(t, 1)
	rules := DefaultRules()

	inputs := []string{
		"hi",
		"Hello there",
		"HEY!",
		"howdy partner",
		"oh hi mark",
		"this is fine",     // "hi" inside "this"
		"they went home",   // "hey" inside "they"
		"SHELLO",           // "hello" inside a word
		"well, HoWdY",
	}
	for _, in := range inputs {
		for i := 0; i < 20; i++ {
			got := s.Reply(in)
			assert.Contains(t, rules.Greetings, got, "input %q", in)
		}
	}
}

func TestReply_OtherMessagesDrawOnlyFromGeneralSet(t *testing.T) {
	s := newSeeded(t, 2)
	rules := DefaultRules()

	inputs := []string{
		"",
		"   ",
		"what's up",
		"good morning",
		"h i",
		"he y",
		"1234",
		"ça va ?",
	}
	for _, in := range inputs {
		for i := 0; i < 20; i++ {
			got := s.Reply(in)
			assert.Contains(t, rules.General, got, "input %q", in)
		}
	}
}

func TestReply_SeededSourceIsReproducible(t *testing.T) {
	a := newSeeded(t, 42)
	b := newSeeded(t, 42)

	for _, msg := range []string{"hello", "tell me a joke", "hey", "", "bye"} {
		assert.Equal(t, a.Reply(msg), b.Reply(msg), "message %q", msg)
	}
}

func TestReply_ExactPickFromSource(t *testing.T) {
	rules := DefaultRules()
	s := newSeeded(t, 7)

	// Replay the same draws on an independent generator.
	ref := rand.New(rand.NewPCG(7, 7))
	assert.Equal(t, rules.Greetings[ref.IntN(len(rules.Greetings))], s.Reply("hello"))
	assert.Equal(t, rules.General[ref.IntN(len(rules.General))], s.Reply("tell me more"))
}

func TestReply_CoversWholeSet(t *testing.T) {
	s := newSeeded(t, 3)
	rules := DefaultRules()

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[s.Reply("hey")] = true
	}
	assert.Len(t, seen, len(rules.Greetings))
}

func TestIsGreeting(t *testing.T) {
	s := newSeeded(t, 1)

	assert.True(t, s.IsGreeting("Hi"))
	assert.True(t, s.IsGreeting("xxhowdyxx"))
	assert.False(t, s.IsGreeting(""))
	assert.False(t, s.IsGreeting("greetings"))
}

func TestNewSelector_RejectsEmptyResponseLists(t *testing.T) {
	src := rand.NewPCG(1, 1)

	_, err := NewSelector(Rules{Patterns: []string{"hi"}, General: []string{"x"}}, src)
	assert.Error(t, err)

	_, err = NewSelector(Rules{Patterns: []string{"hi"}, Greetings: []string{"x"}}, src)
	assert.Error(t, err)
}

func TestNewSelector_NoPatternsAlwaysGeneral(t *testing.T) {
	s, err := NewSelector(Rules{Greetings: []string{"g"}, General: []string{"n"}}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, "n", s.Reply("hello"))
}

func TestNewSelector_PatternsAreCaseFoldedAndDeduplicated(t *testing.T) {
	rules := Rules{
		Patterns:  []string{"YO", "yo", ""},
		Greetings: []string{"g"},
		General:   []string{"n"},
	}
	s, err := NewSelector(rules, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, "g", s.Reply("Yo!"))
	assert.Equal(t, "n", s.Reply("hello"))
}

func TestReply_ConcurrentUse(t *testing.T) {
	s := newSeeded(t, 9)
	all := append(DefaultRules().Greetings, DefaultRules().General...)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !lo.Contains(all, s.Reply("hey you")) {
					t.Error("reply outside the rule table")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewDefaultSelector(t *testing.T) {
	s := NewDefaultSelector(0)
	assert.Contains(t, DefaultRules().Greetings, s.Reply("hello"))
}
