// Package agent holds the orchestrator, the four specialist agents and the
// manager that runs queries through them.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/llm"
	"github.com/spf13/cast"
)

// Context is the key-value bag threaded through a plan's steps.
type Context map[string]any

// has reports whether key is set to something other than null or "".
func (c Context) has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

func (c Context) str(key string) string {
	if !c.has(key) {
		return ""
	}
	return cast.ToString(c[key])
}

func (c Context) criteria(key string) data.Criteria {
	m, err := cast.ToStringMapE(c[key])
	if err != nil || m == nil {
		return data.Criteria{}
	}
	return data.Criteria(m)
}

func (c Context) clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Profile identifies an agent to operators.
type Profile struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Role  string `json:"role"`
}

// Agent executes a free-text action against the shared context.
type Agent interface {
	Profile() Profile
	Execute(ctx context.Context, action string, c Context) Result
}

// handler returns nil to decline, letting later rules try.
type handler func(ctx context.Context, action string, c Context) Result

type rule struct {
	when func(action string, c Context) bool
	then handler
}

func contains(words ...string) func(string, Context) bool {
	return func(action string, _ Context) bool {
		for _, w := range words {
			if strings.Contains(action, w) {
				return true
			}
		}
		return false
	}
}

func containsAll(words ...string) func(string, Context) bool {
	return func(action string, _ Context) bool {
		for _, w := range words {
			if !strings.Contains(action, w) {
				return false
			}
		}
		return true
	}
}

func containsWith(word, key string) func(string, Context) bool {
	return func(action string, c Context) bool {
		return strings.Contains(action, word) && c.has(key)
	}
}

// base carries what every agent shares: identity, system prompt, model and
// the ordered rule list.
type base struct {
	profile      Profile
	systemPrompt string
	model        llm.Client
	rules        []rule
	fallback     handler
}

func newBase(p Profile, systemPrompt string, model llm.Client, prompts *PromptManager) base {
	return base{
		profile:      p,
		systemPrompt: prompts.Resolve(strings.ToLower(p.Name), systemPrompt),
		model:        model,
	}
}

func (b *base) Profile() Profile { return b.profile }

func (b *base) Execute(ctx context.Context, action string, c Context) Result {
	b.logf("Executing: %s", action)
	if c == nil {
		c = Context{}
	}
	lower := strings.ToLower(action)
	for _, r := range b.rules {
		if !r.when(lower, c) {
			continue
		}
		if res := r.then(ctx, action, c); res != nil {
			return res
		}
	}
	return b.fallback(ctx, action, c)
}

func (b *base) callLLM(ctx context.Context, prompt string, temperature float64) string {
	if b.model == nil {
		return llm.ErrorText(fmt.Errorf("no language model configured"))
	}
	return b.model.Complete(ctx, b.systemPrompt, prompt, temperature)
}

// llmFallback forwards the action and context as free text, wrapping the
// reply under field.
func (b *base) llmFallback(verb, typ, field string) handler {
	return func(ctx context.Context, action string, c Context) Result {
		reply := b.callLLM(ctx, fmt.Sprintf("%s: %s\n\nContext: %s", verb, action, dump(c)), llm.DefaultTemperature)
		return TextResult{Outcome: succeeded, Type: typ, Field: field, Text: reply}
	}
}

func (b *base) logf(format string, args ...any) {
	log.Printf("[%s %s] %s", b.profile.Emoji, b.profile.Name, fmt.Sprintf(format, args...))
}

func dump(c Context) string {
	out, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(c))
	}
	return string(out)
}
