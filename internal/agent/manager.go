package agent

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/estate/internal/approval"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/governance"
	"github.com/rahul/estate/internal/llm"
	"github.com/rahul/estate/internal/observability"
	"github.com/rahul/estate/internal/store"
	"github.com/spf13/cast"
)

// Query outcomes.
const (
	QueryCompleted = "completed"
	QueryRejected  = "rejected"
)

// Deps wires agents to their collaborators. Store and LLM are needed for
// meaningful results; everything else may be left nil.
type Deps struct {
	Store    data.EntityStore
	Plans    PlanCatalog
	LLM      llm.Client
	Prompts  *PromptManager
	Fetcher  ListingFetcher
	Approver approval.Approver
	History  store.HistoryStore
	Policy   Policy
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Status   *observability.Status
	Now      func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// Request is one query submitted to the manager.
type Request struct {
	Query           string
	Context         map[string]any
	RequireApproval bool
}

// Response is the combined envelope returned for every query.
type Response struct {
	Status  string           `json:"status"`
	Plan    *Plan            `json:"plan,omitempty"`
	Results *ExecutionResult `json:"results,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Manager owns one of each agent and runs queries through them.
type Manager struct {
	Orchestrator *Orchestrator
	Scout        *Scout
	Intelligence *Intelligence
	Content      *Content
	Compliance   *Compliance

	all      map[string]Agent
	dispatch map[string]Agent
	policy   Policy
	approver approval.Approver
	history  store.HistoryStore
	logger   *observability.Logger
	metrics  *observability.Metrics
	status   *observability.Status
	now      func() time.Time

	// serialises history appends with clears
	mu sync.Mutex
}

func NewManager(deps Deps) *Manager {
	if deps.History == nil {
		deps.History = store.NewMemoryHistory()
	}
	if deps.Approver == nil {
		deps.Approver = approval.Auto{Decision: false}
	}

	m := &Manager{
		Orchestrator: NewOrchestrator(deps),
		Scout:        NewScout(deps),
		Intelligence: NewIntelligence(deps),
		Content:      NewContent(deps),
		Compliance:   NewCompliance(deps),
		policy:       deps.Policy,
		approver:     deps.Approver,
		history:      deps.History,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		status:       deps.Status,
		now:          deps.clock(),
	}

	specialists := map[string]Agent{
		"scout":        m.Scout,
		"intelligence": m.Intelligence,
		"content":      m.Content,
		"compliance":   m.Compliance,
	}
	m.all = map[string]Agent{"orchestrator": m.Orchestrator}
	m.dispatch = make(map[string]Agent)
	for name, a := range specialists {
		if m.policy != nil {
			a = guarded{Agent: a, key: name, policy: m.policy}
		}
		m.all[name] = a
		if m.policy == nil || m.policy.AgentEnabled(name) {
			m.dispatch[name] = a
		} else {
			log.Printf("[Manager] Agent %s disabled by policy", name)
		}
	}
	return m
}

// ProcessQuery plans, optionally gates, executes and records one query.
func (m *Manager) ProcessQuery(ctx context.Context, req Request) Response {
	log.Printf("🚀 NEW QUERY RECEIVED: %s", req.Query)
	m.logger.LogQuery(req.Query, req.RequireApproval)
	defer m.status.Set(observability.RoleIdle, "")

	m.status.Set(observability.RolePlanning, req.Query)
	plan := m.Orchestrator.AnalyzeQuery(ctx, req.Query, req.Context)
	if req.Context != nil {
		plan.Context = Context(req.Context).clone()
	} else {
		plan.Context = Context{}
	}
	plan.OriginalQuery = req.Query

	if req.RequireApproval {
		m.status.Set(observability.RoleAwaiting, plan.PlanID)
		approved := m.approver.Approve(ctx, Summarize(plan, req.Query))
		m.logger.LogApproval(plan.PlanID, approved)
		if !approved {
			m.metrics.ObserveQuery(QueryRejected)
			return Response{Status: QueryRejected, Message: "Plan rejected", Plan: plan}
		}
	}

	m.status.Set(observability.RoleExecuting, plan.PlanID)
	results := m.Orchestrator.ExecutePlan(ctx, plan, m.dispatch)

	if err := m.record(ctx, req.Query, plan, results); err != nil {
		log.Printf("Warning: failed to record history for %s: %v", plan.PlanID, err)
	}
	m.metrics.ObserveQuery(QueryCompleted)
	return Response{Status: QueryCompleted, Plan: plan, Results: results}
}

func (m *Manager) record(ctx context.Context, query string, plan *Plan, results *ExecutionResult) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Append(ctx, store.Entry{
		ID:        uuid.NewString(),
		Query:     query,
		Plan:      planJSON,
		Results:   resultsJSON,
		Timestamp: m.now(),
	})
}

// Summarize builds what the approval gate shows for a plan.
func Summarize(plan *Plan, query string) approval.Summary {
	s := approval.Summary{
		PlanID:           plan.PlanID,
		PlanName:         plan.PlanName,
		Description:      plan.Intent,
		EstimatedTimeMS:  plan.EstimatedTimeMS,
		EstimatedCostUSD: plan.EstimatedCostUSD,
		AgentsRequired:   plan.AgentsRequired,
		TotalSteps:       len(plan.Steps),
		ParallelGroups:   "1",
	}
	if s.PlanID == "" {
		s.PlanID = CustomPlanID
	}
	if s.PlanName == "" {
		s.PlanName = "Custom Workflow"
	}
	if s.Description == "" {
		s.Description = query
	}
	if s.EstimatedTimeMS == 0 {
		s.EstimatedTimeMS = 5000
	}
	if s.EstimatedCostUSD == 0 {
		s.EstimatedCostUSD = 0.50
	}
	if len(s.AgentsRequired) == 0 {
		s.AgentsRequired = []string{"orchestrator"}
	}
	if plan.ParallelGroups != nil {
		if g, err := cast.ToStringE(plan.ParallelGroups); err == nil {
			s.ParallelGroups = g
		} else if b, err := json.Marshal(plan.ParallelGroups); err == nil {
			s.ParallelGroups = string(b)
		}
	}
	for _, st := range plan.Steps {
		s.Steps = append(s.Steps, approval.Step{Number: st.Number, Agent: st.Agent, Action: st.Action})
	}
	return s
}

// History returns recorded queries, oldest first.
func (m *Manager) History(ctx context.Context) ([]store.Entry, error) {
	return m.history.List(ctx)
}

func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Clear(ctx)
}

// Agent looks an agent up by case-insensitive name.
func (m *Manager) Agent(name string) (Agent, bool) {
	a, ok := m.all[strings.ToLower(name)]
	return a, ok
}

// Authorize reports whether a direct call to an agent would be allowed.
func (m *Manager) Authorize(ctx context.Context, name, action string) (governance.Result, error) {
	if m.policy == nil {
		return governance.Result{Effect: governance.EffectAllow}, nil
	}
	return m.policy.Evaluate(ctx, governance.Request{Agent: strings.ToLower(name), Action: action})
}

// Dispatchable reports whether plans may route steps to the named agent.
func Dispatchable(name string) bool {
	return dispatchable[strings.ToLower(name)]
}

// ListAgents describes every agent, coordinator first.
func (m *Manager) ListAgents() []Profile {
	order := []string{"orchestrator", "scout", "intelligence", "content", "compliance"}
	out := make([]Profile, 0, len(order))
	for _, name := range order {
		out = append(out, m.all[name].Profile())
	}
	return out
}
