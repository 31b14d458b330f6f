package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/llm"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const contentPrompt = `You are the Content Agent for a UK Estate Agency AI system.

Your role is to:
1. Write compelling property descriptions
2. Generate personalized email responses
3. Create vendor reports and updates
4. Write marketing copy for listings
5. Personalize communications based on recipient

Guidelines:
- Use professional but warm UK English
- Be accurate and avoid exaggerated claims
- Comply with Consumer Protection Regulations (CPR)
- Keep descriptions 150-200 words
- Always be helpful and professional`

var titleCase = cases.Title(language.BritishEnglish)

// Content writes descriptions, emails and vendor reports.
type Content struct {
	base
	store data.EntityStore
}

func NewContent(deps Deps) *Content {
	a := &Content{
		base:  newBase(Profile{Name: "Content", Emoji: "✍️", Role: "Content Generation Specialist"}, contentPrompt, deps.LLM, deps.Prompts),
		store: deps.Store,
	}
	a.rules = []rule{
		{contains("description"), a.description},
		{contains("email"), a.email},
		{contains("report"), a.report},
	}
	a.fallback = a.llmFallback("Generate content for", TypeLLMContent, "content")
	return a
}

func (a *Content) description(ctx context.Context, action string, c Context) Result {
	prop, ok := a.property(c)
	if !ok {
		return errorResult(errNoProperty)
	}

	propertyType := strings.ReplaceAll(prop.StringOr("property_type", "House"), "_", " ")
	prompt := fmt.Sprintf(`Write a property description for Rightmove (150-180 words):

Address: %s
Type: %s
Bedrooms: %s
Price: £%s
Features: %s

No markdown or asterisks.`,
		prop.StringOr("address_line1", "Property"),
		titleCase.String(propertyType),
		prop.StringOr("bedrooms", "3"),
		pounds(prop["asking_price"]),
		prop.StringOr("key_features", "Modern property"),
	)

	text := a.callLLM(ctx, prompt, llm.DefaultTemperature)
	return PropertyDescription{
		Outcome:   succeeded,
		Type:      TypePropertyDescription,
		WordCount: len(strings.Fields(text)),
		Content:   text,
	}
}

func (a *Content) email(ctx context.Context, action string, c Context) Result {
	name := c.str("buyer_name")
	if name == "" {
		name = "Customer"
	}
	prompt := fmt.Sprintf(`Write a professional estate agency email to %s.
Warm and professional tone. No markdown.`, name)

	text := a.callLLM(ctx, prompt, llm.DefaultTemperature)
	return GeneratedContent{Outcome: succeeded, Type: TypeEmail, Content: text}
}

func (a *Content) report(ctx context.Context, action string, c Context) Result {
	prop, ok := a.property(c)
	if !ok {
		return errorResult(errNoProperty)
	}
	prompt := fmt.Sprintf(`Generate a weekly vendor report:

Property: %s
Days on Market: %s
Viewings: %s
Enquiries: %s

Concise summary with recommendations. No markdown.`,
		prop.StringOr("address_line1", "Property"),
		prop.StringOr("days_on_market", "0"),
		prop.StringOr("total_viewings", "0"),
		prop.StringOr("total_enquiries", "0"),
	)

	text := a.callLLM(ctx, prompt, llm.DefaultTemperature)
	return GeneratedContent{Outcome: succeeded, Type: TypeVendorReport, Content: text}
}

func (a *Content) property(c Context) (data.Record, bool) {
	if !c.has("property_id") || a.store == nil {
		return nil, false
	}
	return a.store.Get(data.KindProperty, c.str("property_id"))
}

// pounds formats a price with thousands separators.
func pounds(v any) string {
	switch n := v.(type) {
	case nil:
		return "0"
	case int64:
		return humanize.Comma(n)
	case int:
		return humanize.Comma(int64(n))
	case float64:
		return humanize.Commaf(n)
	default:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return cast.ToString(v)
		}
		return humanize.Commaf(f)
	}
}
