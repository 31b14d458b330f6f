package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rahul/estate/internal/agent"
	"github.com/rahul/estate/internal/approval"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/fetch"
	"github.com/rahul/estate/internal/governance"
	"github.com/rahul/estate/internal/llm"
	"github.com/rahul/estate/internal/observability"
	"github.com/rahul/estate/internal/store"
	"github.com/rahul/estate/pkg/config"
)

// requiredTables must load for plans to be useful.
var requiredTables = []string{
	data.TableProperties,
	data.TableVendors,
	data.TableBuyers,
	data.TableEmployees,
	data.TableExecutionPlans,
	data.TableExecutionSteps,
}

// app is everything a command needs, built once from config.
type app struct {
	cfg     *config.Config
	store   *data.Store
	status  *observability.Status
	metrics *observability.Metrics
	logger  *observability.Logger
	prompts *agent.PromptManager
	history store.HistoryStore
	manager *agent.Manager
}

func newApp(cfg *config.Config, approver approval.Approver, events io.Writer) (*app, error) {
	a := &app{
		cfg:     cfg,
		store:   data.NewStore(data.NewTables(os.DirFS(cfg.App.DataDir), nil)),
		status:  observability.NewStatus(),
		metrics: observability.NewMetrics(),
		logger:  observability.NewLogger(events, cfg.App.LogDir),
		prompts: agent.NewPromptManager(cfg.App.PromptsDir),
	}

	if cfg.App.LogDir != "" {
		if err := os.MkdirAll(cfg.App.LogDir, 0o755); err != nil {
			log.Printf("Warning: cannot create log dir %s: %v", cfg.App.LogDir, err)
		}
	}

	history, err := openHistory(cfg.Memory)
	if err != nil {
		return nil, err
	}
	a.history = history

	policy, err := governance.FromConfig(cfg.Governance.DisabledAgents, cfg.Governance.DeniedActions)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("invalid governance config: %w", err)
	}

	a.manager = agent.NewManager(agent.Deps{
		Store:    a.store,
		Plans:    a.store,
		LLM:      newLLM(cfg, a.logger, a.metrics),
		Prompts:  a.prompts,
		Fetcher:  fetch.NewListingFetcher(),
		Approver: approver,
		History:  history,
		Policy:   policy,
		Logger:   a.logger,
		Metrics:  a.metrics,
		Status:   a.status,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.history.Close()
}

func openHistory(cfg config.MemoryConfig) (store.HistoryStore, error) {
	if cfg.Type != config.MemoryTypeSQLite {
		return store.NewMemoryHistory(), nil
	}
	h, err := store.NewSQLiteHistory(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return h, nil
}

func newLLM(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) llm.Client {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		log.Printf("Warning: no enabled LLM provider, agents will answer with errors")
		return llm.Unavailable{Err: fmt.Errorf("no enabled provider")}
	}
	return llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  p.APIKey,
		Model:   p.Model,
		BaseURL: p.BaseURL,
	}, llm.Options{
		Name:      name,
		MaxTokens: p.MaxTokens,
		Logger:    logger,
		Metrics:   metrics,
	})
}

// approverFor picks the plan approver. yes overrides the configured mode.
func approverFor(mode string, yes bool, in io.Reader, out io.Writer) approval.Approver {
	if yes {
		return approval.Auto{Decision: true}
	}
	switch mode {
	case config.ApprovalApprove:
		return approval.Auto{Decision: true}
	case config.ApprovalReject:
		return approval.Auto{Decision: false}
	default:
		return approval.NewConsole(in, out, observability.TermWidth())
	}
}

// startupChecks reports credentials and data files without failing startup.
func startupChecks(cfg *config.Config, tables *data.Tables) []observability.CheckResult {
	var checks []observability.CheckResult

	name, p := cfg.GetDefaultProvider()
	switch {
	case name == "":
		checks = append(checks, observability.CheckResult{Label: "LLM provider", Note: "none enabled"})
	case p.APIKey == "":
		checks = append(checks, observability.CheckResult{Label: "LLM provider " + name, Note: "API key not set"})
	default:
		checks = append(checks, observability.CheckResult{Label: "LLM provider " + name, OK: true, Note: observability.MaskKey(p.APIKey)})
	}

	for _, t := range requiredTables {
		path, _ := tables.Path(t)
		if tables.Exists(t) {
			checks = append(checks, observability.CheckResult{Label: path, OK: true})
		} else {
			checks = append(checks, observability.CheckResult{Label: path, Note: "missing"})
		}
	}
	return checks
}
