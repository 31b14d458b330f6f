package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Plan is the orchestrator's structured answer to a query. Only Context
// changes after the plan is built: it accumulates step results during
// execution.
type Plan struct {
	PlanID                 string
	PlanName               string
	Intent                 string
	WorkflowType           string
	AgentsRequired         []string
	Steps                  []Step
	EstimatedTimeMS        float64
	EstimatedCostUSD       float64
	HumanApprovalRequired  bool
	ReasonForHumanApproval string
	EntitiesInvolved       map[string]any
	// ParallelGroups is reported by the model but never enforced.
	ParallelGroups any
	Context        Context
	OriginalQuery  string
	RawResponse    string
	// Extra holds keys the model returned that have no field above.
	Extra map[string]any
}

// Step is one agent dispatch within a plan.
type Step struct {
	Number int
	Agent  string
	Action string
	Extra  map[string]any
}

var planKeys = map[string]bool{
	"plan_id": true, "plan_name": true, "intent": true, "workflow_type": true,
	"agents_required": true, "steps": true, "estimated_time_ms": true,
	"estimated_cost_usd": true, "human_approval_required": true,
	"reason_for_human_approval": true, "entities_involved": true,
	"parallel_groups": true, "context": true, "original_query": true,
	"raw_response": true,
}

var stepKeys = map[string]bool{
	"step": true, "step_number": true, "agent": true, "assigned_agent": true, "action": true,
}

func (p Plan) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+15)
	for k, v := range p.Extra {
		out[k] = v
	}
	agents := p.AgentsRequired
	if agents == nil {
		agents = []string{}
	}
	steps := p.Steps
	if steps == nil {
		steps = []Step{}
	}
	out["plan_id"] = p.PlanID
	out["plan_name"] = p.PlanName
	out["intent"] = p.Intent
	out["workflow_type"] = p.WorkflowType
	out["agents_required"] = agents
	out["steps"] = steps
	out["estimated_time_ms"] = p.EstimatedTimeMS
	out["estimated_cost_usd"] = p.EstimatedCostUSD
	out["human_approval_required"] = p.HumanApprovalRequired
	if p.ReasonForHumanApproval != "" {
		out["reason_for_human_approval"] = p.ReasonForHumanApproval
	}
	if p.EntitiesInvolved != nil {
		out["entities_involved"] = p.EntitiesInvolved
	}
	if p.ParallelGroups != nil {
		out["parallel_groups"] = p.ParallelGroups
	}
	if p.Context != nil {
		out["context"] = p.Context
	}
	if p.OriginalQuery != "" {
		out["original_query"] = p.OriginalQuery
	}
	if p.RawResponse != "" {
		out["raw_response"] = p.RawResponse
	}
	return json.Marshal(out)
}

// UnmarshalJSON is lenient about value types: models return numbers as
// strings and agent lists as comma separated text often enough.
func (p *Plan) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("plan is not a JSON object")
	}

	var plan Plan
	plan.PlanID = cast.ToString(raw["plan_id"])
	plan.PlanName = cast.ToString(raw["plan_name"])
	plan.Intent = cast.ToString(raw["intent"])
	plan.WorkflowType = cast.ToString(raw["workflow_type"])
	plan.AgentsRequired = toStrings(raw["agents_required"])
	plan.EstimatedTimeMS = cast.ToFloat64(raw["estimated_time_ms"])
	plan.EstimatedCostUSD = cast.ToFloat64(raw["estimated_cost_usd"])
	plan.HumanApprovalRequired = cast.ToBool(raw["human_approval_required"])
	plan.ReasonForHumanApproval = cast.ToString(raw["reason_for_human_approval"])
	plan.ParallelGroups = raw["parallel_groups"]
	plan.OriginalQuery = cast.ToString(raw["original_query"])
	plan.RawResponse = cast.ToString(raw["raw_response"])

	if v, ok := raw["entities_involved"]; ok && v != nil {
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return fmt.Errorf("entities_involved: %w", err)
		}
		plan.EntitiesInvolved = m
	}
	if v, ok := raw["context"]; ok && v != nil {
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		plan.Context = m
	}

	if v, ok := raw["steps"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			return errors.New("steps is not an array")
		}
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("step %d is not an object", i+1)
			}
			plan.Steps = append(plan.Steps, stepFromMap(m))
		}
	}

	for k, v := range raw {
		if planKeys[k] {
			continue
		}
		if plan.Extra == nil {
			plan.Extra = make(map[string]any)
		}
		plan.Extra[k] = v
	}

	*p = plan
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["step"] = s.Number
	out["agent"] = s.Agent
	out["action"] = s.Action
	return json.Marshal(out)
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = stepFromMap(raw)
	return nil
}

func stepFromMap(m map[string]any) Step {
	s := Step{
		Number: cast.ToInt(first(m, "step", "step_number")),
		Agent:  cast.ToString(first(m, "agent", "assigned_agent")),
		Action: cast.ToString(m["action"]),
	}
	for k, v := range m {
		if stepKeys[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}
	return s
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return cast.ToStringSlice(v)
	}
}
