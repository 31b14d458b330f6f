package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/estate/internal/agent"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// QueryProcessor runs a natural-language query through the agent system.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req agent.Request) agent.Response
}

// Answer processes one chat message and renders the outcome as text.
func Answer(ctx context.Context, p QueryProcessor, requireApproval bool, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Send me a question about a property, buyer or vendor."
	}
	resp := p.ProcessQuery(ctx, agent.Request{
		Query:           text,
		Context:         agent.Context{},
		RequireApproval: requireApproval,
	})
	return FormatResponse(resp)
}

// FormatResponse summarises a plan and its step outcomes for chat.
func FormatResponse(resp agent.Response) string {
	var b strings.Builder

	if resp.Plan != nil {
		name := resp.Plan.PlanName
		if name == "" {
			name = "Custom Workflow"
		}
		fmt.Fprintf(&b, "📋 %s (%s)\n", name, resp.Plan.PlanID)
	}

	if resp.Status == agent.QueryRejected {
		b.WriteString("❌ " + resp.Message)
		return b.String()
	}
	if resp.Results == nil {
		fmt.Fprintf(&b, "Status: %s", resp.Status)
		return b.String()
	}

	fmt.Fprintf(&b, "Status: %s\n", resp.Status)
	if len(resp.Results.StepsCompleted) == 0 {
		b.WriteString("No steps were executed.")
		return b.String()
	}
	for _, s := range resp.Results.StepsCompleted {
		fmt.Fprintf(&b, "\n%s %d. %s: %s", stepIcon(s.Result), s.Step, s.Agent, s.Action)
		if detail := stepDetail(s.Result); detail != "" {
			fmt.Fprintf(&b, "\n   %s", detail)
		}
	}
	return b.String()
}

func stepIcon(r agent.Result) string {
	if r == nil {
		return "⚪"
	}
	switch r.ResultStatus() {
	case agent.StatusSuccess:
		return "✅"
	case agent.StatusSkipped:
		return "⏭️"
	default:
		return "⚠️"
	}
}

func stepDetail(r agent.Result) string {
	switch v := r.(type) {
	case agent.ErrorResult:
		return v.Message
	case agent.SkippedResult:
		return v.Reason
	case agent.TextResult:
		return truncate(v.Text, 300)
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// chunk splits text into pieces no longer than limit runes, preferring line breaks.
func chunk(text string, limit int) []string {
	var out []string
	r := []rune(text)
	for len(r) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if r[i] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(r[:cut]))
		r = []rune(strings.TrimLeft(string(r[cut:]), "\n"))
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
