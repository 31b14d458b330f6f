// Package approval gates plan execution on a yes/no decision.
package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Step is one line of the rendered plan.
type Step struct {
	Number int
	Agent  string
	Action string
}

// Summary is what the operator sees before deciding.
type Summary struct {
	PlanID           string
	PlanName         string
	Description      string
	EstimatedTimeMS  float64
	EstimatedCostUSD float64
	AgentsRequired   []string
	TotalSteps       int
	ParallelGroups   string
	Steps            []Step
}

// Approver decides whether a plan may run. Approve blocks until a decision
// is made.
type Approver interface {
	Approve(ctx context.Context, s Summary) bool
}

// Auto returns a fixed decision without asking anyone.
type Auto struct {
	Decision bool
}

func (a Auto) Approve(context.Context, Summary) bool {
	return a.Decision
}

// Func adapts a function to Approver.
type Func func(ctx context.Context, s Summary) bool

func (f Func) Approve(ctx context.Context, s Summary) bool {
	return f(ctx, s)
}

// Console prompts on a terminal-like stream.
type Console struct {
	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	width int
}

func NewConsole(in io.Reader, out io.Writer, width int) *Console {
	if width <= 0 {
		width = 70
	}
	return &Console{in: bufio.NewReader(in), out: out, width: width}
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	approved    = color.New(color.FgGreen, color.Bold)
	rejected    = color.New(color.FgRed, color.Bold)
	warn        = color.New(color.FgYellow)
)

// Approve renders the summary and reads answers until one is recognised.
// End of input counts as a rejection.
func (c *Console) Approve(ctx context.Context, s Summary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.render(s)

	for {
		if ctx.Err() != nil {
			rejected.Fprintln(c.out, "❌ Plan REJECTED. Approval cancelled.")
			return false
		}
		fmt.Fprint(c.out, "👤 Do you approve this plan? (yes/no/modify): ")
		line, err := c.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" && err != nil {
			fmt.Fprintln(c.out)
			rejected.Fprintln(c.out, "❌ No input available. Execution cancelled.")
			return false
		}

		switch answer {
		case "yes", "y", "proceed", "approve":
			approved.Fprintln(c.out, "✅ Plan APPROVED. Proceeding with execution...")
			fmt.Fprintln(c.out)
			return true
		case "no", "n", "reject", "cancel":
			rejected.Fprintln(c.out, "❌ Plan REJECTED. Execution cancelled.")
			fmt.Fprintln(c.out)
			return false
		case "modify", "m", "edit":
			fmt.Fprintln(c.out, "📝 Modification requested. (Plan editing is not yet available)")
		default:
			warn.Fprintln(c.out, "⚠️  Please enter 'yes' to approve or 'no' to reject.")
		}
	}
}

func (c *Console) render(s Summary) {
	rule := strings.Repeat("=", c.width)
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, rule)
	headerColor.Fprintln(c.out, "🎯 ORCHESTRATOR EXECUTION PLAN - AWAITING APPROVAL")
	fmt.Fprintln(c.out, rule)

	fmt.Fprintf(c.out, "\n📋 Plan ID: %s\n", orNA(s.PlanID))
	fmt.Fprintf(c.out, "📝 Plan Name: %s\n", orNA(s.PlanName))
	fmt.Fprintf(c.out, "📄 Description: %s\n", orNA(s.Description))
	fmt.Fprintf(c.out, "\n⏱️  Estimated Time: %gms\n", s.EstimatedTimeMS)
	fmt.Fprintf(c.out, "💰 Estimated Cost: $%.2f\n", s.EstimatedCostUSD)
	agents := "N/A"
	if len(s.AgentsRequired) > 0 {
		agents = strings.Join(s.AgentsRequired, ", ")
	}
	fmt.Fprintf(c.out, "🤖 Agents Required: %s\n", agents)
	fmt.Fprintf(c.out, "📊 Total Steps: %d\n", s.TotalSteps)
	groups := s.ParallelGroups
	if groups == "" {
		groups = "0"
	}
	fmt.Fprintf(c.out, "⚡ Parallel Groups: %s\n", groups)

	if len(s.Steps) > 0 {
		fmt.Fprintln(c.out, "\n📋 Execution Steps:")
		fmt.Fprintln(c.out, strings.Repeat("-", min(50, c.width)))
		for _, st := range s.Steps {
			fmt.Fprintf(c.out, "  Step %d: [%s] %s\n", st.Number, st.Agent, st.Action)
		}
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, strings.Repeat("-", c.width))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
