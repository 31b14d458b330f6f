package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/llm"
	"github.com/rahul/estate/internal/observability"
)

const orchestratorPrompt = `You are the Orchestrator Agent for a UK Estate Agency AI system.

Your role is to:
1. Analyze incoming queries and understand the intent
2. Identify which workflow and execution plan to use
3. Determine which agents are needed (Scout, Intelligence, Content, Compliance)
4. Create a step-by-step execution plan
5. Coordinate the execution of the plan

Available Agents:
- Scout 🔍: Data retrieval, API calls, database searches, CRM operations
- Intelligence 🧠: Analysis, scoring, pattern recognition, buyer matching
- Content ✍️: Writing descriptions, emails, reports, marketing copy
- Compliance ✅: Validation, AML checks, regulatory compliance, EPC verification

Available Execution Plans:
- PLAN-001: Inbound Lead Capture
- PLAN-002: Portal Enquiry Response
- PLAN-003: Buyer Qualification
- PLAN-004: Pre-Valuation Research
- PLAN-005: Instant Valuation
- PLAN-006: Post-Valuation Follow-up
- PLAN-007: Full Property Onboarding (complex)
- PLAN-008: EPC Verification
- PLAN-009: AML Compliance Check
- PLAN-010: Property Description Generation
- PLAN-011: Property Launch
- PLAN-012: Buyer Database Matching
- PLAN-013: Portal Analytics Review
- PLAN-014: Immediate Enquiry Response
- PLAN-015: Viewing Preparation
- PLAN-016: Feedback Collection
- PLAN-017: Daily Feedback Aggregation
- PLAN-018: Weekly Vendor Report
- PLAN-019: Price Reduction Processing
- PLAN-020: Offer Qualification
- PLAN-021: Offer Presentation
- PLAN-022: Sale Agreed Workflow
- PLAN-023: MoS Generation & Distribution
- PLAN-024: Sales Progression Tracking
- PLAN-025: Completion & Post-Completion

When analyzing a query, respond with a JSON object containing:
{
    "intent": "description of what the query is asking",
    "workflow_type": "the type of workflow needed",
    "plan_id": "the execution plan ID to use (e.g., PLAN-001)",
    "plan_name": "name of the plan",
    "agents_required": ["list", "of", "agents"],
    "steps": [
        {"step": 1, "agent": "agent_name", "action": "what to do"},
        ...
    ],
    "estimated_time_ms": 5000,
    "estimated_cost_usd": 0.50,
    "human_approval_required": true/false,
    "reason_for_human_approval": "why human input is needed (if applicable)",
    "entities_involved": {
        "property_id": "if applicable",
        "vendor_id": "if applicable",
        "buyer_id": "if applicable"
    }
}

Always respond with valid JSON only. No markdown, no explanation.`

const (
	planningTemperature = 0.3
	maxPlanTemplates    = 25

	CustomPlanID = "CUSTOM"

	ExecutionInProgress = "in_progress"
	ExecutionCompleted  = "completed"
)

// Only these agent names are ever dispatched by a plan.
var dispatchable = map[string]bool{
	"scout":        true,
	"intelligence": true,
	"content":      true,
	"compliance":   true,
}

// PlanCatalog lists the known plan templates.
type PlanCatalog interface {
	ExecutionPlans() []data.Record
}

// StepRecord is one executed step.
type StepRecord struct {
	Step   int    `json:"step"`
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Result Result `json:"result"`
}

// ExecutionResult is the outcome of running a plan.
type ExecutionResult struct {
	PlanID         string       `json:"plan_id"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    time.Time    `json:"completed_at"`
	Status         string       `json:"status"`
	StepsCompleted []StepRecord `json:"steps_completed"`
	FinalOutput    any          `json:"final_output"`
}

// Orchestrator turns queries into plans and runs plans step by step.
type Orchestrator struct {
	base
	plans   PlanCatalog
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewOrchestrator(deps Deps) *Orchestrator {
	o := &Orchestrator{
		base:    newBase(Profile{Name: "Orchestrator", Emoji: "🎯", Role: "Central Coordinator"}, orchestratorPrompt, deps.LLM, deps.Prompts),
		plans:   deps.Plans,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     deps.clock(),
	}
	o.fallback = o.llmFallback("Coordinate", TypeLLMResponse, "response")
	return o
}

// AnalyzeQuery asks the model for a plan. It never fails: an unusable reply
// yields a single-step custom plan carrying the raw text.
func (o *Orchestrator) AnalyzeQuery(ctx context.Context, query string, qctx Context) *Plan {
	o.logf("Analyzing query: %s", query)

	contextStr := ""
	if len(qctx) > 0 {
		if b, err := json.MarshalIndent(qctx, "", "  "); err == nil {
			contextStr = "\n\nContext provided:\n" + string(b)
		}
	}

	prompt := fmt.Sprintf(`Analyze this query and create an execution plan:

QUERY: %s

AVAILABLE EXECUTION PLANS:
%s
%s

Respond with a JSON execution plan.`, query, o.planSummary(), contextStr)

	response := stripFences(o.callLLM(ctx, prompt, planningTemperature))

	var plan Plan
	if llm.IsErrorText(response) {
		o.logf("Model unavailable, using default structure: %s", response)
		fallback := customPlan(query, response)
		o.logger.LogPlan(fallback.PlanID, fallback.PlanName, len(fallback.Steps), true)
		return fallback
	}
	if err := json.Unmarshal([]byte(response), &plan); err != nil {
		o.logf("Failed to parse plan, using default structure: %v", err)
		fallback := customPlan(query, response)
		o.logger.LogPlan(fallback.PlanID, fallback.PlanName, len(fallback.Steps), true)
		return fallback
	}

	id := plan.PlanID
	if id == "" {
		id = "Custom Plan"
	}
	o.logf("Plan created: %s", id)
	o.logger.LogPlan(plan.PlanID, plan.PlanName, len(plan.Steps), false)
	return &plan
}

func customPlan(query, raw string) *Plan {
	return &Plan{
		Intent:                query,
		WorkflowType:          "custom",
		PlanID:                CustomPlanID,
		PlanName:              "Custom Workflow",
		AgentsRequired:        []string{"orchestrator"},
		Steps:                 []Step{{Number: 1, Agent: "orchestrator", Action: "Process query"}},
		EstimatedTimeMS:       5000,
		EstimatedCostUSD:      0.10,
		HumanApprovalRequired: true,
		RawResponse:           raw,
	}
}

func (o *Orchestrator) planSummary() string {
	if o.plans == nil {
		return "No plans loaded"
	}
	rows := o.plans.ExecutionPlans()
	if len(rows) == 0 {
		return "No plans loaded"
	}
	if len(rows) > maxPlanTemplates {
		rows = rows[:maxPlanTemplates]
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "plan_id\tplan_name\tworkflow_type\tagents_required")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.StringOr("plan_id", ""),
			r.StringOr("plan_name", ""),
			r.StringOr("workflow_type", ""),
			r.StringOr("agents_required", ""))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// stripFences unwraps a ```json ... ``` or ``` ... ``` block.
func stripFences(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(s, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(s)
}

// ExecutePlan runs every step in order. Steps are never retried and a failed
// step never stops the plan, so the result is always completed.
func (o *Orchestrator) ExecutePlan(ctx context.Context, plan *Plan, agents map[string]Agent) *ExecutionResult {
	o.logf("Starting plan execution...")

	result := &ExecutionResult{
		PlanID:         plan.PlanID,
		StartedAt:      o.now(),
		Status:         ExecutionInProgress,
		StepsCompleted: []StepRecord{},
	}

	if plan.Context == nil {
		plan.Context = Context{}
	}
	shared := plan.Context
	for k, v := range plan.EntitiesInvolved {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok && str == "" {
			continue
		}
		shared[k] = v
	}

	for _, step := range plan.Steps {
		name := strings.ToLower(step.Agent)
		o.logf("Executing Step %d: [%s] %s", step.Number, name, step.Action)

		var res Result
		if a, ok := agents[name]; ok && dispatchable[name] && a != nil {
			res = a.Execute(ctx, step.Action, shared)
		} else {
			res = skipped(fmt.Sprintf("Agent %s not available", name))
		}

		result.StepsCompleted = append(result.StepsCompleted, StepRecord{
			Step:   step.Number,
			Agent:  name,
			Action: step.Action,
			Result: res,
		})
		shared[fmt.Sprintf("step_%d_result", step.Number)] = res

		status := string(res.ResultStatus())
		o.logger.LogStep(plan.PlanID, step.Number, name, step.Action, status)
		o.metrics.ObserveStep(name, status)
	}

	result.CompletedAt = o.now()
	result.Status = ExecutionCompleted
	o.logf("Plan execution completed!")
	return result
}
