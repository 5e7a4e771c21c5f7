// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ai-studykit-be/pkg/llm"
)

var ErrNoScript = errors.New("llmtest: no scripted response for prompt")

// Rule answers every prompt containing Contains. Rules are checked in order.
type Rule struct {
	Contains string
	Response string
	Err      error
	// Times limits how often the rule fires; zero means unlimited.
	Times int
	used  int
}

// Scripted is a fake provider: it matches prompts against rules and records
// every call. Safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	rules   []*Rule
	prompts []string
}

var _ llm.LLMProvider = (*Scripted)(nil)

func New(rules ...Rule) *Scripted {
	s := &Scripted{}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

func (s *Scripted) Add(r Rule) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule := r
	s.rules = append(s.rules, &rule)
	return s
}

func (s *Scripted) Generate(ctx context.Context, prompt string, _ ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)

	for _, r := range s.rules {
		if r.Times > 0 && r.used >= r.Times {
			continue
		}
		if strings.Contains(prompt, r.Contains) {
			r.used++
			return r.Response, r.Err
		}
	}
	return "", ErrNoScript
}

func (s *Scripted) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	parts := make([]string, len(history))
	for i, m := range history {
		parts[i] = m.Content
	}
	return s.Generate(ctx, strings.Join(parts, "\n"), opts...)
}

// Prompts returns a copy of every prompt received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Count returns how many received prompts contain substr.
func (s *Scripted) Count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
