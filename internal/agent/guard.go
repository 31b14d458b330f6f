package agent

import (
	"context"
	"strings"

	"github.com/rahul/estate/internal/governance"
)

// Policy decides which agents and actions may run.
type Policy interface {
	governance.PolicyEngine
	AgentEnabled(name string) bool
}

// guarded checks every action against the policy before running it.
type guarded struct {
	Agent
	key    string
	policy Policy
}

func (g guarded) Execute(ctx context.Context, action string, c Context) Result {
	res, err := g.policy.Evaluate(ctx, governance.Request{Agent: g.key, Action: action})
	if err != nil {
		return errorResult("Action blocked by policy: " + err.Error())
	}
	if !res.Allowed() {
		return errorResult("Action blocked by policy: " + strings.TrimSpace(res.Reason))
	}
	return g.Agent.Execute(ctx, action, c)
}
