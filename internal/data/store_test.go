package data

import (
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propertiesCSV = `property_id,address_line1,property_type,bedrooms,asking_price,status,postcode,epc_rating,epc_expiry
PROP-2024-5678,12 Elm Road,semi_detached,3,300000,active,SW1A 1AA,C,2030-05-01
PROP-2024-5679,4 Oak Lane,flat,2,250000,sold,E1 6AN,B,
PROP-2024-5680,9 Ash Close,detached,5,650000,active,SW19 2AB,,2023-01-01
`

const buyersCSV = `buyer_id,first_name,last_name,max_budget,buyer_type,priority_level,financial_status
BUY-2024-3001,Ann,Lee,280000,first_time_buyer,hot,mortgage_approved
BUY-2024-3002,Bob,Khan,305000,chain_free_cash,warm,cash
BUY-2024-3003,Cat,Ng,350000,moving_up,hot,mortgage_in_principle
BUY-2024-3004,Dan,Wu,200000,first_time_buyer,cold,
`

const vendorsCSV = `vendor_id,aml_status,pep_check,sanctions_check,chain_status,timeline
VEN-001,verified,clear,clear,chain_free,asap
VEN-002,pending,clear,clear,in_chain,3_months
`

func testStore(t *testing.T) *Store {
	t.Helper()
	fsys := fstest.MapFS{
		"entities/properties.csv":                     {Data: []byte(propertiesCSV)},
		"entities/buyers.csv":                         {Data: []byte(buyersCSV)},
		"entities/vendors.csv":                        {Data: []byte(vendorsCSV)},
		"entities/employees.csv":                      {Data: []byte("employee_id,name,role\nEMP-001,Sam,negotiator\nEMP-002,Jo,lister\n")},
		"execution_plans/execution_plans_summary.csv": {Data: []byte("plan_id,plan_name,workflow_type,agents_required\nPLAN-012,Buyer Database Matching,matching,\"scout,intelligence\"\n")},
		"execution_plans/execution_steps_detailed.csv": {Data: []byte(
			"plan_id,step_number,assigned_agent,action\nPLAN-012,1,scout,Get property\nPLAN-012,2,intelligence,Match buyers\nPLAN-001,1,scout,Create CRM record\n")},
	}
	return NewStore(NewTables(fsys, nil))
}

func TestStore_Get(t *testing.T) {
	s := testStore(t)

	prop, ok := s.Get(KindProperty, "PROP-2024-5678")
	require.True(t, ok)
	assert.Equal(t, "12 Elm Road", prop["address_line1"])
	assert.Equal(t, int64(300000), prop["asking_price"])
	assert.Equal(t, int64(3), prop["bedrooms"])

	_, ok = s.Get(KindProperty, "INVALID-ID")
	assert.False(t, ok)

	_, ok = s.Get(KindProperty, "")
	assert.False(t, ok)

	emp, ok := s.Get(KindEmployee, "EMP-001")
	require.True(t, ok)
	assert.Equal(t, "Sam", emp["name"])
}

func TestStore_GetReturnsCopies(t *testing.T) {
	s := testStore(t)
	prop, _ := s.Get(KindProperty, "PROP-2024-5678")
	prop["asking_price"] = int64(1)

	again, _ := s.Get(KindProperty, "PROP-2024-5678")
	assert.Equal(t, int64(300000), again["asking_price"])
}

func TestStore_EmptyCellsAreNil(t *testing.T) {
	s := testStore(t)
	prop, ok := s.Get(KindProperty, "PROP-2024-5679")
	require.True(t, ok)
	assert.Nil(t, prop["epc_expiry"])
	_, set := prop.String("epc_expiry")
	assert.False(t, set)
}

func TestStore_SearchProperties(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"empty returns all", Criteria{}, []string{"PROP-2024-5678", "PROP-2024-5679", "PROP-2024-5680"}},
		{"price band", Criteria{"min_price": 260000.0, "max_price": 400000.0}, []string{"PROP-2024-5678"}},
		{"status", Criteria{"status": "active"}, []string{"PROP-2024-5678", "PROP-2024-5680"}},
		{"bedrooms exact from json", Criteria{"bedrooms": 3.0}, []string{"PROP-2024-5678"}},
		{"min bedrooms", Criteria{"min_bedrooms": 3}, []string{"PROP-2024-5678", "PROP-2024-5680"}},
		{"postcode prefix", Criteria{"postcode_prefix": "SW1"}, []string{"PROP-2024-5678", "PROP-2024-5680"}},
		{"unknown key ignored", Criteria{"garden": true}, []string{"PROP-2024-5678", "PROP-2024-5679", "PROP-2024-5680"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.Search(KindProperty, tt.criteria), "property_id"))
		})
	}
}

func TestStore_SearchBuyersBudgetBand(t *testing.T) {
	s := testStore(t)
	got := s.Search(KindBuyer, Criteria{"min_budget": 270000, "max_budget": 360000})
	assert.Equal(t, []string{"BUY-2024-3001", "BUY-2024-3002", "BUY-2024-3003"}, ids(got, "buyer_id"))

	hot := s.HotBuyers()
	assert.Equal(t, []string{"BUY-2024-3001", "BUY-2024-3003"}, ids(hot, "buyer_id"))
}

func TestStore_SearchVendorsAndGenericKinds(t *testing.T) {
	s := testStore(t)
	assert.Equal(t, []string{"VEN-001"}, ids(s.Search(KindVendor, Criteria{"aml_status": "verified"}), "vendor_id"))
	assert.Equal(t, []string{"EMP-002"}, ids(s.Search(KindEmployee, Criteria{"role": "lister"}), "employee_id"))
}

func TestStore_ExecutionPlans(t *testing.T) {
	s := testStore(t)

	plan, ok := s.ExecutionPlan("PLAN-012")
	require.True(t, ok)
	assert.Equal(t, "scout,intelligence", plan["agents_required"])

	steps := s.ExecutionSteps("PLAN-012")
	require.Len(t, steps, 2)
	assert.Equal(t, "Match buyers", steps[1]["action"])
	assert.Empty(t, s.ExecutionSteps("PLAN-999"))
}

func TestTables_MissingFileCachesEmptyTable(t *testing.T) {
	tables := NewTables(fstest.MapFS{}, nil)
	tbl := tables.Load(TableMetrics)
	assert.True(t, tbl.Empty())
	assert.False(t, tbl.Loaded)
	assert.Error(t, tbl.Err)
	assert.Same(t, tbl, tables.Load(TableMetrics))
	assert.False(t, tables.Exists(TableMetrics))
}

func TestTables_ReloadPicksUpChanges(t *testing.T) {
	fsys := fstest.MapFS{"entities/employees.csv": {Data: []byte("employee_id\nEMP-001\n")}}
	tables := NewTables(fsys, nil)
	require.Len(t, tables.Load(TableEmployees).Records, 1)

	fsys["entities/employees.csv"] = &fstest.MapFile{Data: []byte("employee_id\nEMP-001\nEMP-002\n")}
	assert.Len(t, tables.Load(TableEmployees).Records, 1, "cached until reload")
	assert.Len(t, tables.Reload(TableEmployees).Records, 2)

	fsys["entities/employees.csv"] = &fstest.MapFile{Data: []byte("employee_id\n")}
	tables.ReloadAll()
	assert.Empty(t, tables.Load(TableEmployees).Records)
}

func TestTables_Latin1Fallback(t *testing.T) {
	// "Café" encoded as ISO-8859-1
	raw := []byte("employee_id,name\nEMP-009,Caf\xe9\n")
	tables := NewTables(fstest.MapFS{"entities/employees.csv": {Data: raw}}, nil)
	s := NewStore(tables)

	emp, ok := s.Get(KindEmployee, "EMP-009")
	require.True(t, ok)
	assert.Equal(t, "Café", emp["name"])
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("buyers")
	assert.True(t, ok)
	assert.Equal(t, KindBuyer, k)

	k, ok = ParseKind("Property")
	assert.True(t, ok)
	assert.Equal(t, KindProperty, k)

	_, ok = ParseKind("castle")
	assert.False(t, ok)
}

func TestParseCell(t *testing.T) {
	assert.Nil(t, parseCell(""))
	assert.Nil(t, parseCell("  "))
	assert.Equal(t, int64(42), parseCell("42"))
	assert.Equal(t, 0.5, parseCell("0.5"))
	assert.Equal(t, "2024-06-01", parseCell("2024-06-01"))
	assert.Equal(t, "VEN-001", parseCell("VEN-001"))
}

func ids(recs []Record, key string) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.StringOr(key, ""))
	}
	return out
}

func TestTables_ConcurrentLoadAndReload(t *testing.T) {
	st := testStore(t)
	tables := st.Tables()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				tables.Reload(TableBuyers)
			case 1:
				tables.ReloadAll()
			default:
				assert.Len(t, tables.Load(TableBuyers).Records, 4)
				_, ok := st.Get(KindProperty, "PROP-2024-5678")
				assert.True(t, ok)
				assert.Len(t, st.Search(KindBuyer, Criteria{"priority_level": "hot"}), 2)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, tables.Load(TableBuyers).Records, 4)
}
