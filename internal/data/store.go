package data

import (
	"strings"
)

// Kind names an entity table that can be looked up by primary key.
type Kind string

const (
	KindProperty      Kind = "property"
	KindVendor        Kind = "vendor"
	KindBuyer         Kind = "buyer"
	KindEmployee      Kind = "employee"
	KindSolicitor     Kind = "solicitor"
	KindExecutionPlan Kind = "execution_plan"
	KindQuery         Kind = "query"
)

type kindInfo struct {
	table string
	key   string
}

var kinds = map[Kind]kindInfo{
	KindProperty:      {TableProperties, "property_id"},
	KindVendor:        {TableVendors, "vendor_id"},
	KindBuyer:         {TableBuyers, "buyer_id"},
	KindEmployee:      {TableEmployees, "employee_id"},
	KindSolicitor:     {TableSolicitors, "solicitor_id"},
	KindExecutionPlan: {TableExecutionPlans, "plan_id"},
	KindQuery:         {TableQueryBank, "query_id"},
}

// ParseKind accepts singular or plural kind names ("buyer", "buyers").
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := kinds[Kind(s)]; ok {
		return Kind(s), true
	}
	for k, info := range kinds {
		if info.table == s {
			return k, true
		}
	}
	return "", false
}

// Criteria is a set of named search predicates.
type Criteria map[string]any

// EntityStore is the read-only view of entity data the agents consume.
type EntityStore interface {
	Get(kind Kind, id string) (Record, bool)
	Search(kind Kind, criteria Criteria) []Record
}

// Store answers entity lookups and searches over cached tables.
type Store struct {
	tables *Tables
}

func NewStore(tables *Tables) *Store {
	return &Store{tables: tables}
}

func (s *Store) Tables() *Tables {
	return s.tables
}

// Get returns the first record whose primary key equals id.
func (s *Store) Get(kind Kind, id string) (Record, bool) {
	info, ok := kinds[kind]
	if !ok || id == "" {
		return nil, false
	}
	for _, rec := range s.tables.Load(info.table).Records {
		if v, ok := rec.String(info.key); ok && v == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// All returns every record of a kind.
func (s *Store) All(kind Kind) []Record {
	info, ok := kinds[kind]
	if !ok {
		return nil
	}
	return cloneAll(s.tables.Load(info.table).Records)
}

// Search filters a kind by criteria. Empty criteria return every record.
func (s *Store) Search(kind Kind, criteria Criteria) []Record {
	info, ok := kinds[kind]
	if !ok {
		return nil
	}
	preds := predicatesFor(kind, criteria)
	var out []Record
	for _, rec := range s.tables.Load(info.table).Records {
		if matchAll(rec, preds) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// ExecutionPlan returns a plan template row by id.
func (s *Store) ExecutionPlan(planID string) (Record, bool) {
	return s.Get(KindExecutionPlan, planID)
}

// ExecutionPlans returns every plan template row.
func (s *Store) ExecutionPlans() []Record {
	return s.All(KindExecutionPlan)
}

// ExecutionSteps returns the detailed steps for a plan template.
func (s *Store) ExecutionSteps(planID string) []Record {
	var out []Record
	for _, rec := range s.tables.Load(TableExecutionSteps).Records {
		if v, ok := rec.String("plan_id"); ok && v == planID {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (s *Store) QueryByID(queryID string) (Record, bool) {
	return s.Get(KindQuery, queryID)
}

func (s *Store) ActiveProperties() []Record {
	return s.Search(KindProperty, Criteria{"status": "active"})
}

func (s *Store) HotBuyers() []Record {
	return s.Search(KindBuyer, Criteria{"priority_level": "hot"})
}

// Metrics returns the metrics dashboard rows.
func (s *Store) Metrics() []Record {
	return cloneAll(s.tables.Load(TableMetrics).Records)
}

func cloneAll(in []Record) []Record {
	out := make([]Record, 0, len(in))
	for _, r := range in {
		out = append(out, r.Clone())
	}
	return out
}
