package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes an agent dispatch to be evaluated.
type Request struct {
	Agent  string
	Action string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

func (r Result) Allowed() bool {
	return r.Effect == EffectAllow
}

// PolicyEngine evaluates agent dispatches against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies whole agents or actions matching a pattern.
type DefaultPolicyEngine struct {
	DeniedAgents map[string]bool
	DeniedRegex  []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedAgents: make(map[string]bool),
		DeniedRegex:  make([]*regexp.Regexp, 0),
	}
}

// FromConfig builds an engine from disabled agent names and action patterns.
// Patterns are case-insensitive.
func FromConfig(disabledAgents, deniedActions []string) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	for _, name := range disabledAgents {
		e.DenyAgent(name)
	}
	for _, pattern := range deniedActions {
		if err := e.DenyActions(pattern); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyAgent(name string) {
	e.DeniedAgents[strings.ToLower(name)] = true
}

func (e *DefaultPolicyEngine) DenyActions(pattern string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid action pattern %q: %w", pattern, err)
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// AgentEnabled reports whether the agent may be dispatched at all.
func (e *DefaultPolicyEngine) AgentEnabled(name string) bool {
	return !e.DeniedAgents[strings.ToLower(name)]
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedAgents[strings.ToLower(req.Agent)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Agent '%s' is disabled by system policy", req.Agent),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Action) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Action matches restricted pattern: %s", strings.TrimPrefix(re.String(), "(?i)")),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
