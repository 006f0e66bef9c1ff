package bot

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

var (
	errNoGreetings = errors.New("bot: rules have no greeting responses")
	errNoGeneral   = errors.New("bot: rules have no general responses")
)

// Responder turns a user message into the bot's reply text.
type Responder interface {
	Respond(message string) string
}

// Selector picks a reply for a message using Rules. Pattern detection runs an
// Aho-Corasick automaton over the lower-cased message, so a pattern counts
// wherever it occurs ("this" contains "hi"). It is safe for concurrent use.
type Selector struct {
	rules   Rules
	matcher *goahocorasick.Machine // nil when Rules has no patterns

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewSelector builds a Selector. src drives the uniform pick; pass a seeded
// source for reproducible replies.
func NewSelector(rules Rules, src rand.Source) (*Selector, error) {
	if len(rules.Greetings) == 0 {
		return nil, errNoGreetings
	}
	if len(rules.General) == 0 {
		return nil, errNoGeneral
	}

	s := &Selector{rules: rules, rng: rand.New(src)}

	patterns := lo.Uniq(lo.FilterMap(rules.Patterns, func(p string, _ int) (string, bool) {
		p = strings.ToLower(p)
		return p, p != ""
	}))
	if len(patterns) > 0 {
		sort.Strings(patterns)
		keywords := lo.Map(patterns, func(p string, _ int) []rune { return []rune(p) })
		m := new(goahocorasick.Machine)
		if err := m.Build(keywords); err != nil {
			return nil, err
		}
		s.matcher = m
	}
	return s, nil
}

// NewDefaultSelector builds a Selector over DefaultRules with a source seeded
// from seed. A zero seed picks a random one.
func NewDefaultSelector(seed uint64) *Selector {
	if seed == 0 {
		seed = rand.Uint64()
	}
	s, err := NewSelector(DefaultRules(), rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	if err != nil {
		// DefaultRules is a constant table.
		panic(err)
	}
	return s
}

// IsGreeting reports whether message contains any greeting pattern,
// ignoring case.
func (s *Selector) IsGreeting(message string) bool {
	if s.matcher == nil || message == "" {
		return false
	}
	terms := s.matcher.MultiPatternSearch([]rune(strings.ToLower(message)), true)
	return len(terms) > 0
}

// Reply returns a greeting response when message contains a greeting
// pattern and a general response otherwise. Each call is independent.
func (s *Selector) Reply(message string) string {
	if s.IsGreeting(message) {
		return s.pick(s.rules.Greetings)
	}
	return s.pick(s.rules.General)
}

// Respond implements Responder.
func (s *Selector) Respond(message string) string {
	return s.Reply(message)
}

func (s *Selector) pick(options []string) string {
	s.mu.Lock()
	i := s.rng.IntN(len(options))
	s.mu.Unlock()
	return options[i]
}
