package data

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Table names known to the loader.
const (
	TableProperties     = "properties"
	TableVendors        = "vendors"
	TableBuyers         = "buyers"
	TableEmployees      = "employees"
	TableSolicitors     = "solicitors"
	TableAIAgents       = "ai_agents"
	TableLookupTables   = "lookup_tables"
	TableQueryBank      = "query_bank"
	TableExecutionPlans = "execution_plans"
	TableExecutionSteps = "execution_steps"
	TableHappyPaths     = "happy_paths"
	TableEdgeCases      = "edge_cases"
	TableErrorRecovery  = "error_recovery"
	TableShowcase       = "showcase"
	TableAgentScripts   = "agent_scripts"
	TableMetrics        = "metrics"
)

// DefaultPaths maps table names to CSV files relative to the data directory.
var DefaultPaths = map[string]string{
	TableProperties:     "entities/properties.csv",
	TableVendors:        "entities/vendors.csv",
	TableBuyers:         "entities/buyers.csv",
	TableEmployees:      "entities/employees.csv",
	TableSolicitors:     "entities/solicitors.csv",
	TableAIAgents:       "entities/ai_agents.csv",
	TableLookupTables:   "entities/lookup_tables.csv",
	TableQueryBank:      "query_bank/query_bank_full.csv",
	TableExecutionPlans: "execution_plans/execution_plans_summary.csv",
	TableExecutionSteps: "execution_plans/execution_steps_detailed.csv",
	TableHappyPaths:     "demo_scenarios/happy_paths.csv",
	TableEdgeCases:      "demo_scenarios/edge_cases.csv",
	TableErrorRecovery:  "demo_scenarios/error_recovery.csv",
	TableShowcase:       "demo_scenarios/showcase_multistage.csv",
	TableAgentScripts:   "agent_interaction_scripts/agent_interaction_scripts.csv",
	TableMetrics:        "metrics_dashboard/metrics_dashboard.csv",
}

// Table is a loaded CSV file. Tables are shared between readers and must
// not be modified.
type Table struct {
	Name    string
	Columns []string
	Records []Record
	Loaded  bool
	Err     error
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Tables is a populate-once cache of CSV tables. It is safe for
// concurrent use.
type Tables struct {
	fsys  fs.FS
	paths map[string]string

	mu    sync.RWMutex
	cache map[string]*Table
}

// NewTables creates a cache reading from fsys. A nil paths map uses DefaultPaths.
func NewTables(fsys fs.FS, paths map[string]string) *Tables {
	if paths == nil {
		paths = DefaultPaths
	}
	return &Tables{
		fsys:  fsys,
		paths: paths,
		cache: make(map[string]*Table),
	}
}

// Path returns the configured file path for a table.
func (t *Tables) Path(name string) (string, bool) {
	p, ok := t.paths[name]
	return p, ok
}

// Exists reports whether the file backing a table is present.
func (t *Tables) Exists(name string) bool {
	p, ok := t.paths[name]
	if !ok || t.fsys == nil {
		return false
	}
	_, err := fs.Stat(t.fsys, p)
	return err == nil
}

// Load returns the named table, reading it on first access. Missing or
// unreadable files yield an empty table which is cached like any other.
func (t *Tables) Load(name string) *Table {
	t.mu.RLock()
	tbl, ok := t.cache[name]
	t.mu.RUnlock()
	if ok {
		return tbl
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tbl, ok := t.cache[name]; ok {
		return tbl
	}
	tbl = t.read(name)
	t.cache[name] = tbl
	return tbl
}

// Reload evicts one table and loads it again.
func (t *Tables) Reload(name string) *Table {
	t.mu.Lock()
	delete(t.cache, name)
	t.mu.Unlock()
	return t.Load(name)
}

// ReloadAll clears the cache; tables reload on next access.
func (t *Tables) ReloadAll() {
	t.mu.Lock()
	t.cache = make(map[string]*Table)
	t.mu.Unlock()
	log.Printf("🔄 Cache cleared. Data will reload on next access.")
}

func (t *Tables) read(name string) *Table {
	tbl := &Table{Name: name}
	path, ok := t.paths[name]
	if !ok || t.fsys == nil {
		tbl.Err = fmt.Errorf("unknown table %q", name)
		log.Printf("⚠️ File not found: %s", name)
		return tbl
	}

	raw, err := fs.ReadFile(t.fsys, path)
	if err != nil {
		tbl.Err = err
		log.Printf("⚠️ File not found: %s at %s", name, path)
		return tbl
	}

	cols, records, err := parseCSV(raw)
	if err != nil {
		tbl.Err = fmt.Errorf("parse %s: %w", path, err)
		log.Printf("❌ Error loading %s: %v", name, err)
		return tbl
	}

	tbl.Columns = cols
	tbl.Records = records
	tbl.Loaded = true
	log.Printf("📂 Loaded: %s (%d records)", name, len(records))
	return tbl
}

func parseCSV(raw []byte) ([]string, []Record, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("decode latin-1: %w", err)
		}
		raw = decoded
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = parseCell(row[i])
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}
	return header, records, nil
}
