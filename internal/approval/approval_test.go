package approval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

var summary = Summary{
	PlanID:           "PLAN-003",
	PlanName:         "Buyer Matching",
	EstimatedTimeMS:  4500,
	EstimatedCostUSD: 0.1,
	AgentsRequired:   []string{"scout", "intelligence"},
	TotalSteps:       2,
	Steps: []Step{
		{Number: 1, Agent: "scout", Action: "Get property details"},
		{Number: 2, Agent: "intelligence", Action: "Match buyers"},
	},
}

func TestConsole_Answers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "yes\n", true},
		{"short yes with spaces", "  Y  \n", true},
		{"proceed", "proceed\n", true},
		{"approve", "APPROVE\n", true},
		{"no", "no\n", false},
		{"cancel", "cancel\n", false},
		{"modify then approve", "modify\nyes\n", true},
		{"garbage then reject", "maybe\nreject\n", false},
		{"eof rejects", "", false},
		{"eof after garbage rejects", "what", false},
		{"last line without newline", "y", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(strings.NewReader(tt.input), &out, 40)
			assert.Equal(t, tt.want, c.Approve(context.Background(), summary))
		})
	}
}

func TestConsole_RendersSummary(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("edit\nhuh\nn\n"), &out, 40)
	c.Approve(context.Background(), summary)

	text := out.String()
	assert.Contains(t, text, "Plan ID: PLAN-003")
	assert.Contains(t, text, "Description: N/A")
	assert.Contains(t, text, "Estimated Cost: $0.10")
	assert.Contains(t, text, "Agents Required: scout, intelligence")
	assert.Contains(t, text, "Step 2: [intelligence] Match buyers")
	assert.Contains(t, text, "not yet available")
	assert.Contains(t, text, "Please enter 'yes'")
	assert.Contains(t, text, "Plan REJECTED")
}

func TestConsole_CancelledContextRejects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole(strings.NewReader("yes\n"), &bytes.Buffer{}, 40)
	assert.False(t, c.Approve(ctx, summary))
}

func TestAutoAndFunc(t *testing.T) {
	assert.True(t, Auto{Decision: true}.Approve(context.Background(), summary))
	assert.False(t, Auto{}.Approve(context.Background(), summary))

	var seen string
	f := Func(func(_ context.Context, s Summary) bool {
		seen = s.PlanID
		return true
	})
	assert.True(t, f.Approve(context.Background(), summary))
	assert.Equal(t, "PLAN-003", seen)
}
