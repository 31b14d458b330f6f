package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rahul/estate/internal/approval"
	"github.com/rahul/estate/internal/governance"
	"github.com/rahul/estate/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amlPlanJSON = `{
  "intent": "AML check for vendor",
  "plan_id": "PLAN-009",
  "plan_name": "AML Compliance Check",
  "agents_required": ["scout", "compliance"],
  "steps": [
    {"step": 1, "agent": "scout", "action": "Fetch vendor record"},
    {"step": 2, "agent": "compliance", "action": "Run AML check"}
  ],
  "estimated_time_ms": 3000,
  "estimated_cost_usd": 0.2,
  "human_approval_required": true,
  "entities_involved": {"vendor_id": "VEN-001"}
}`

func TestManager_ProcessQueryApproved(t *testing.T) {
	deps, _ := testDeps(t, amlPlanJSON)
	var seen approval.Summary
	deps.Approver = approval.Func(func(_ context.Context, s approval.Summary) bool {
		seen = s
		return true
	})
	deps.Status = observability.NewStatus()
	m := NewManager(deps)

	qctx := map[string]any{"source": "web"}
	resp := m.ProcessQuery(bg, Request{Query: "Check AML for VEN-001", Context: qctx, RequireApproval: true})

	require.Equal(t, QueryCompleted, resp.Status)
	assert.Equal(t, "PLAN-009", seen.PlanID)
	assert.Equal(t, 2, seen.TotalSteps)
	assert.Equal(t, "Check AML for VEN-001", resp.Plan.OriginalQuery)
	assert.Equal(t, "web", resp.Plan.Context["source"])
	assert.NotContains(t, qctx, "step_1_result")

	require.Len(t, resp.Results.StepsCompleted, 2)
	aml := resp.Results.StepsCompleted[1].Result.(AMLCheck)
	assert.True(t, aml.AMLPassed)

	role, _, _ := deps.Status.Get()
	assert.Equal(t, observability.RoleIdle, role)

	history, err := m.History(bg)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Check AML for VEN-001", history[0].Query)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, fixedNow, history[0].Timestamp)

	var results map[string]any
	require.NoError(t, json.Unmarshal(history[0].Results, &results))
	assert.Equal(t, "completed", results["status"])

	require.NoError(t, m.ClearHistory(bg))
	history, _ = m.History(bg)
	assert.Empty(t, history)
}

func TestManager_ProcessQueryRejected(t *testing.T) {
	deps, model := testDeps(t, amlPlanJSON)
	deps.Approver = approval.Auto{Decision: false}
	m := NewManager(deps)

	resp := m.ProcessQuery(bg, Request{Query: "Check AML", RequireApproval: true})
	assert.Equal(t, QueryRejected, resp.Status)
	assert.Equal(t, "Plan rejected", resp.Message)
	assert.Nil(t, resp.Results)
	assert.Equal(t, "PLAN-009", resp.Plan.PlanID)
	assert.Len(t, model.calls, 1)

	history, _ := m.History(bg)
	assert.Empty(t, history)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"results"`)
}

func TestManager_NoApprovalSkipsGate(t *testing.T) {
	deps, _ := testDeps(t, "not json")
	deps.Approver = approval.Func(func(context.Context, approval.Summary) bool {
		t.Fatal("approver should not be called")
		return false
	})
	m := NewManager(deps)

	resp := m.ProcessQuery(bg, Request{Query: "hello"})
	assert.Equal(t, QueryCompleted, resp.Status)
	assert.Equal(t, CustomPlanID, resp.Plan.PlanID)
	assert.Equal(t, StatusSkipped, resp.Results.StepsCompleted[0].Result.ResultStatus())
}

func TestManager_Policy(t *testing.T) {
	policy, err := governance.FromConfig([]string{"compliance"}, []string{"portal"})
	require.NoError(t, err)

	deps, _ := testDeps(t, amlPlanJSON)
	deps.Policy = policy
	m := NewManager(deps)

	resp := m.ProcessQuery(bg, Request{Query: "Check AML"})
	steps := resp.Results.StepsCompleted
	assert.Equal(t, StatusSuccess, steps[0].Result.ResultStatus())
	assert.Equal(t, SkippedResult{Outcome: Outcome{Status: StatusSkipped}, Reason: "Agent compliance not available"}, steps[1].Result)

	scout, ok := m.Agent("Scout")
	require.True(t, ok)
	blocked := scout.Execute(bg, "Update portal listings", nil).(ErrorResult)
	assert.Equal(t, "Action blocked by policy: Action matches restricted pattern: portal", blocked.Message)

	res, err := m.Authorize(bg, "compliance", "Run AML check")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
}

func TestManager_ListAgents(t *testing.T) {
	deps, _ := testDeps(t)
	m := NewManager(deps)

	agents := m.ListAgents()
	require.Len(t, agents, 5)
	assert.Equal(t, Profile{Name: "Orchestrator", Emoji: "🎯", Role: "Central Coordinator"}, agents[0])
	assert.Equal(t, "Compliance", agents[4].Name)

	_, ok := m.Agent("nobody")
	assert.False(t, ok)
	assert.True(t, Dispatchable("Scout"))
	assert.False(t, Dispatchable("orchestrator"))
}

func TestSummarize_Defaults(t *testing.T) {
	s := Summarize(&Plan{ParallelGroups: 2.0}, "list hot buyers")
	assert.Equal(t, "CUSTOM", s.PlanID)
	assert.Equal(t, "Custom Workflow", s.PlanName)
	assert.Equal(t, "list hot buyers", s.Description)
	assert.Equal(t, 5000.0, s.EstimatedTimeMS)
	assert.Equal(t, 0.50, s.EstimatedCostUSD)
	assert.Equal(t, []string{"orchestrator"}, s.AgentsRequired)
	assert.Equal(t, "2", s.ParallelGroups)

	s = Summarize(&Plan{ParallelGroups: []any{[]any{1.0, 2.0}}}, "q")
	assert.Equal(t, "[[1,2]]", s.ParallelGroups)
}

func TestManager_ConcurrentQueriesAndHistory(t *testing.T) {
	const workers = 20
	replies := make([]string, workers)
	for i := range replies {
		replies[i] = amlPlanJSON
	}
	deps, _ := testDeps(t, replies...)
	deps.Approver = approval.Auto{Decision: true}
	deps.Status = observability.NewStatus()
	deps.Metrics = observability.NewMetrics()
	m := NewManager(deps)

	var wg sync.WaitGroup
	statuses := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := m.ProcessQuery(bg, Request{
				Query:           "Check AML for VEN-001",
				Context:         map[string]any{"worker": i},
				RequireApproval: true,
			})
			statuses[i] = resp.Status
			_, err := m.History(bg)
			assert.NoError(t, err)
			if i%5 == 0 {
				assert.NoError(t, m.ClearHistory(bg))
			}
		}(i)
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Equal(t, QueryCompleted, s)
	}
	history, err := m.History(bg)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), workers)

	require.NoError(t, m.ClearHistory(bg))
	history, err = m.History(bg)
	require.NoError(t, err)
	assert.Empty(t, history)
}
