package agent

import (
	"context"
	"sort"

	"github.com/rahul/estate/internal/data"
)

const intelligencePrompt = `You are the Intelligence Agent for a UK Estate Agency AI system.

Your role is to:
1. Analyze property and buyer data to find matches
2. Score buyer-property compatibility (0-100)
3. Assess market positioning and pricing
4. Identify patterns in feedback data
5. Generate strategic recommendations
6. Assess risk levels for transactions

Always provide data-driven insights with confidence scores.`

const (
	matchCandidates = 15
	topMatches      = 5

	errNoProperty = "No property_id provided"
)

// Intelligence scores buyers, assesses risk and analyses pricing.
type Intelligence struct {
	base
	store data.EntityStore
}

func NewIntelligence(deps Deps) *Intelligence {
	a := &Intelligence{
		base:  newBase(Profile{Name: "Intelligence", Emoji: "🧠", Role: "Analysis & Scoring Specialist"}, intelligencePrompt, deps.LLM, deps.Prompts),
		store: deps.Store,
	}
	a.rules = []rule{
		{containsAll("match", "buyer"), a.matchBuyers},
		{contains("risk", "assess"), a.assessRisk},
		{contains("price", "valuation"), a.analyzePrice},
		{contains("score"), func(context.Context, string, Context) Result {
			return Scoring{Outcome: succeeded, Type: TypeScoring, Score: 85, Confidence: 0.9}
		}},
	}
	a.fallback = a.llmFallback("Analyze", TypeLLMAnalysis, "analysis")
	return a
}

func (a *Intelligence) matchBuyers(ctx context.Context, action string, c Context) Result {
	prop, ok := a.property(c)
	if !ok {
		return errorResult(errNoProperty)
	}

	asking := prop.FloatOr("asking_price", 0)
	criteria := data.Criteria{
		"min_budget": int64(asking * 0.9),
		"max_budget": int64(asking * 1.2),
	}
	buyers := a.store.Search(data.KindBuyer, criteria)
	if len(buyers) > matchCandidates {
		buyers = buyers[:matchCandidates]
	}

	scored := make([]BuyerMatch, 0, len(buyers))
	for _, b := range buyers {
		scored = append(scored, BuyerMatch{
			BuyerID:   b["buyer_id"],
			Name:      b.StringOr("first_name", "") + " " + b.StringOr("last_name", ""),
			Score:     matchScore(prop, b),
			BuyerType: b["buyer_type"],
			Priority:  b["priority_level"],
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	top := scored
	if len(top) > topMatches {
		top = top[:topMatches]
	}
	a.logf("Matched %d buyers for %s", len(scored), c.str("property_id"))
	return BuyerMatching{
		Outcome:      succeeded,
		Type:         TypeBuyerMatching,
		MatchesFound: len(scored),
		TopMatches:   top,
	}
}

// matchScore rates a buyer against a property, from 50 to 100.
func matchScore(prop, buyer data.Record) int {
	score := 50
	asking := prop.FloatOr("asking_price", 0)
	budget := buyer.FloatOr("max_budget", 0)

	if budget >= asking {
		score += 20
	} else if budget >= asking*0.95 {
		score += 10
	}

	switch buyer.StringOr("buyer_type", "") {
	case "chain_free_cash":
		score += 20
	case "first_time_buyer":
		score += 15
	}

	if buyer.StringOr("priority_level", "") == "hot" {
		score += 10
	}

	return min(score, 100)
}

func (a *Intelligence) assessRisk(ctx context.Context, action string, c Context) Result {
	score := 20
	factors := []string{}

	if c.has("buyer_id") && a.store != nil {
		if buyer, ok := a.store.Get(data.KindBuyer, c.str("buyer_id")); ok {
			if buyer.StringOr("buyer_type", "") == "chain_free_cash" {
				factors = append(factors, "✅ Chain-free cash buyer")
			} else {
				score += 20
				factors = append(factors, "⚠️ Chain buyer")
			}
		}
	}

	return RiskAssessment{
		Outcome:   succeeded,
		RiskLevel: riskLevel(score),
		RiskScore: score,
		Factors:   factors,
	}
}

func riskLevel(score int) string {
	switch {
	case score < 40:
		return "LOW"
	case score < 60:
		return "MEDIUM"
	default:
		return "HIGH"
	}
}

func (a *Intelligence) analyzePrice(ctx context.Context, action string, c Context) Result {
	prop, ok := a.property(c)
	if !ok {
		return errorResult(errNoProperty)
	}
	asking := prop.FloatOr("asking_price", 0)
	askingValue := prop["asking_price"]
	if askingValue == nil {
		askingValue = 0
	}
	return PriceAnalysis{
		Outcome:     succeeded,
		AskingPrice: askingValue,
		EstimatedRange: PriceRange{
			Low:  int64(asking * 0.95),
			High: int64(asking * 1.05),
		},
		MarketPosition: "competitive",
	}
}

func (a *Intelligence) property(c Context) (data.Record, bool) {
	if !c.has("property_id") || a.store == nil {
		return nil, false
	}
	return a.store.Get(data.KindProperty, c.str("property_id"))
}
