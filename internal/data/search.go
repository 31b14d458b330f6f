package data

import (
	"sort"
	"strings"
)

type predicate func(Record) bool

func field(col string, cmp func(v, want float64) bool, want any) predicate {
	return func(r Record) bool {
		v, ok := r.Float(col)
		if !ok {
			return false
		}
		w, err := numeric(want)
		if err != nil {
			return false
		}
		return cmp(v, w)
	}
}

func equals(col string, want any) predicate {
	return func(r Record) bool {
		return valuesEqual(r[col], want)
	}
}

func prefix(col string, want any) predicate {
	p, _ := want.(string)
	return func(r Record) bool {
		v, ok := r[col].(string)
		return ok && strings.HasPrefix(v, p)
	}
}

func gte(v, w float64) bool { return v >= w }
func lte(v, w float64) bool { return v <= w }

// criterion builds a predicate from a criteria value.
type criterion func(want any) predicate

var searchRules = map[Kind]map[string]criterion{
	KindProperty: {
		"min_price":       func(w any) predicate { return field("asking_price", gte, w) },
		"max_price":       func(w any) predicate { return field("asking_price", lte, w) },
		"bedrooms":        func(w any) predicate { return equals("bedrooms", w) },
		"min_bedrooms":    func(w any) predicate { return field("bedrooms", gte, w) },
		"max_bedrooms":    func(w any) predicate { return field("bedrooms", lte, w) },
		"status":          func(w any) predicate { return equals("status", w) },
		"property_type":   func(w any) predicate { return equals("property_type", w) },
		"postcode_prefix": func(w any) predicate { return prefix("postcode", w) },
	},
	KindBuyer: {
		"min_budget":       func(w any) predicate { return field("max_budget", gte, w) },
		"max_budget":       func(w any) predicate { return field("max_budget", lte, w) },
		"buyer_type":       func(w any) predicate { return equals("buyer_type", w) },
		"priority_level":   func(w any) predicate { return equals("priority_level", w) },
		"financial_status": func(w any) predicate { return equals("financial_status", w) },
	},
	KindVendor: {
		"aml_status":   func(w any) predicate { return equals("aml_status", w) },
		"chain_status": func(w any) predicate { return equals("chain_status", w) },
		"timeline":     func(w any) predicate { return equals("timeline", w) },
	},
}

// predicatesFor translates criteria into predicates. Kinds with named
// rules ignore unknown keys; other kinds treat every key as a column
// equality filter.
func predicatesFor(kind Kind, criteria Criteria) []predicate {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules, named := searchRules[kind]
	var preds []predicate
	for _, k := range keys {
		if named {
			if build, ok := rules[k]; ok {
				preds = append(preds, build(criteria[k]))
			}
			continue
		}
		preds = append(preds, equals(k, criteria[k]))
	}
	return preds
}

func matchAll(r Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}
