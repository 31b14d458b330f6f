package agent

import (
	"context"
	"strings"
	"time"

	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/fetch"
)

const scoutPrompt = `You are the Scout Agent for a UK Estate Agency AI system.

Your role is to:
1. Search and retrieve property data from the database
2. Look up vendor and buyer information
3. Verify EPC certificates and other documents
4. Query external APIs (Land Registry, EPC Register, etc.)
5. Create and update CRM records
6. Perform address validation and lookups

Always be thorough and accurate in data retrieval.`

const searchLimit = 10

var updatedPortals = []string{"rightmove", "zoopla", "onthemarket"}

// ListingFetcher retrieves a portal listing page.
type ListingFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Scout retrieves entity data and performs record keeping.
type Scout struct {
	base
	store   data.EntityStore
	fetcher ListingFetcher
	now     func() time.Time
}

func NewScout(deps Deps) *Scout {
	s := &Scout{
		base:    newBase(Profile{Name: "Scout", Emoji: "🔍", Role: "Data Retrieval Specialist"}, scoutPrompt, deps.LLM, deps.Prompts),
		store:   deps.Store,
		fetcher: deps.Fetcher,
		now:     deps.clock(),
	}
	s.rules = []rule{
		{contains("property"), s.property},
		{containsWith("vendor", "vendor_id"), s.lookup(data.KindVendor, "vendor_id", TypeVendor)},
		{contains("buyer"), s.buyer},
		{containsWith("epc", "property_id"), s.epc},
		{containsWith("listing", "listing_url"), s.listing},
		{contains("crm", "record"), s.crmRecord},
		{contains("portal"), s.portal},
	}
	s.fallback = s.llmFallback("Execute", TypeLLMResponse, "response")
	return s
}

func (s *Scout) property(ctx context.Context, action string, c Context) Result {
	if rec, ok := s.get(data.KindProperty, c, "property_id"); ok {
		return RecordResult{Outcome: succeeded, Type: TypeProperty, Data: rec}
	}
	if strings.Contains(strings.ToLower(action), "search") {
		return s.search(data.KindProperty, TypePropertySearch, c)
	}
	return nil
}

func (s *Scout) buyer(ctx context.Context, action string, c Context) Result {
	if rec, ok := s.get(data.KindBuyer, c, "buyer_id"); ok {
		return RecordResult{Outcome: succeeded, Type: TypeBuyer, Data: rec}
	}
	lower := strings.ToLower(action)
	if strings.Contains(lower, "search") || strings.Contains(lower, "match") {
		return s.search(data.KindBuyer, TypeBuyerSearch, c)
	}
	return nil
}

func (s *Scout) lookup(kind data.Kind, key, typ string) handler {
	return func(ctx context.Context, action string, c Context) Result {
		if rec, ok := s.get(kind, c, key); ok {
			return RecordResult{Outcome: succeeded, Type: typ, Data: rec}
		}
		return nil
	}
}

func (s *Scout) search(kind data.Kind, typ string, c Context) Result {
	var found []data.Record
	if s.store != nil {
		found = s.store.Search(kind, c.criteria("search_criteria"))
	}
	page := found
	if len(page) > searchLimit {
		page = page[:searchLimit]
	}
	if page == nil {
		page = []data.Record{}
	}
	return SearchResult{Outcome: succeeded, Type: typ, Count: len(found), Data: page}
}

func (s *Scout) epc(ctx context.Context, action string, c Context) Result {
	prop, ok := s.get(data.KindProperty, c, "property_id")
	if !ok {
		return nil
	}
	return EPCVerification{
		Outcome:   succeeded,
		Type:      TypeEPCVerification,
		EPCRating: prop.StringOr("epc_rating", "Unknown"),
		EPCExpiry: prop.StringOr("epc_expiry", "Unknown"),
		Valid:     true,
	}
}

func (s *Scout) listing(ctx context.Context, action string, c Context) Result {
	if s.fetcher == nil {
		return nil
	}
	url := c.str("listing_url")
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logf("Listing fetch failed for %s: %v", url, err)
		return errorResult(err.Error())
	}
	return ListingPage{
		Outcome: succeeded,
		Type:    TypeListingPage,
		URL:     page.URL,
		Title:   page.Title,
		Excerpt: page.Excerpt,
		Content: page.Content,
	}
}

func (s *Scout) crmRecord(ctx context.Context, action string, c Context) Result {
	return CRMOperation{
		Outcome:  succeeded,
		Type:     TypeCRMOperation,
		RecordID: "REC-" + s.now().Format("20060102150405"),
	}
}

func (s *Scout) portal(ctx context.Context, action string, c Context) Result {
	portals := make([]string, len(updatedPortals))
	copy(portals, updatedPortals)
	return PortalOperation{Outcome: succeeded, Type: TypePortalOperation, PortalsUpdated: portals}
}

func (s *Scout) get(kind data.Kind, c Context, key string) (data.Record, bool) {
	if !c.has(key) || s.store == nil {
		return nil, false
	}
	return s.store.Get(kind, c.str(key))
}
