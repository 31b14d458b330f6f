package agent

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rahul/estate/internal/data"
)

const propertiesCSV = `property_id,address_line1,property_type,bedrooms,asking_price,status,epc_rating,epc_expiry,key_features,days_on_market,total_viewings,total_enquiries
PROP-001,12 Elm Road,semi_detached,3,300000,active,C,2030-05-01,South-facing garden,21,8,14
PROP-002,4 Oak Lane,flat,2,250000,active,B,2023-01-01,,,,
PROP-003,9 Ash Close,detached,5,650000,active,,,,,,
`

const buyersCSV = `buyer_id,first_name,last_name,max_budget,buyer_type,priority_level
BUY-001,Ann,Lee,280000,first_time_buyer,hot
BUY-002,Bob,Khan,305000,chain_free_cash,warm
BUY-003,Cat,Ng,350000,moving_up,hot
BUY-004,Dan,Wu,200000,first_time_buyer,cold
`

const vendorsCSV = `vendor_id,aml_status,pep_check,sanctions_check,aml_certificate_id
VEN-001,verified,clear,clear,AML-CERT-001
VEN-002,verified,flagged,clear,
VEN-003,pending,clear,clear,
`

const plansCSV = `plan_id,plan_name,workflow_type,agents_required
PLAN-010,Property Description Generation,content,"scout,content,compliance"
PLAN-012,Buyer Database Matching,matching,"scout,intelligence"
`

var fixedNow = time.Date(2024, 6, 1, 9, 30, 15, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testStore(t *testing.T) *data.Store {
	t.Helper()
	fsys := fstest.MapFS{
		"entities/properties.csv":                     {Data: []byte(propertiesCSV)},
		"entities/buyers.csv":                         {Data: []byte(buyersCSV)},
		"entities/vendors.csv":                        {Data: []byte(vendorsCSV)},
		"execution_plans/execution_plans_summary.csv": {Data: []byte(plansCSV)},
	}
	return data.NewStore(data.NewTables(fsys, nil))
}

type llmCall struct {
	system      string
	prompt      string
	temperature float64
}

// scriptedLLM replays canned replies in order, then answers "ok".
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	calls   []llmCall
}

func (s *scriptedLLM) Complete(_ context.Context, system, prompt string, temperature float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, llmCall{system: system, prompt: prompt, temperature: temperature})
	if len(s.replies) == 0 {
		return "ok"
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply
}

func (s *scriptedLLM) last() llmCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return llmCall{}
	}
	return s.calls[len(s.calls)-1]
}

func testDeps(t *testing.T, replies ...string) (Deps, *scriptedLLM) {
	t.Helper()
	model := &scriptedLLM{replies: replies}
	st := testStore(t)
	return Deps{
		Store: st,
		Plans: st,
		LLM:   model,
		Now:   fixedClock,
	}, model
}
