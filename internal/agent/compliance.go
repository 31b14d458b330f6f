package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/fetch"
)

const compliancePrompt = `You are the Compliance Agent for a UK Estate Agency AI system.

Your role is to:
1. Perform AML (Anti-Money Laundering) checks
2. Validate content for regulatory compliance
3. Check for CPR violations
4. Verify EPC certificates
5. Issue compliance certificates

Always err on the side of caution with compliance matters.`

const validationTemperature = 0.3

// Compliance runs AML, content and EPC checks.
type Compliance struct {
	base
	store data.EntityStore
	now   func() time.Time
}

func NewCompliance(deps Deps) *Compliance {
	a := &Compliance{
		base:  newBase(Profile{Name: "Compliance", Emoji: "✅", Role: "Compliance & Validation Specialist"}, compliancePrompt, deps.LLM, deps.Prompts),
		store: deps.Store,
		now:   deps.clock(),
	}
	a.rules = []rule{
		{contains("aml"), a.checkAML},
		{contains("validate"), a.validateContent},
		{contains("epc"), a.validateEPC},
	}
	a.fallback = a.llmFallback("Compliance check", TypeLLMCompliance, "response")
	return a
}

// checkAML passes only when identity is verified and both screenings are clear.
func (a *Compliance) checkAML(ctx context.Context, action string, c Context) Result {
	if !c.has("vendor_id") || a.store == nil {
		return errorResult("No vendor_id provided")
	}
	vendor, ok := a.store.Get(data.KindVendor, c.str("vendor_id"))
	if !ok {
		return errorResult("No vendor_id provided")
	}

	passed := vendor.StringOr("aml_status", "") == "verified" &&
		vendor.StringOr("pep_check", "") == "clear" &&
		vendor.StringOr("sanctions_check", "") == "clear"

	a.logf("AML check for %s: passed=%t", c.str("vendor_id"), passed)
	return AMLCheck{
		Outcome:       succeeded,
		AMLPassed:     passed,
		AMLStatus:     vendor["aml_status"],
		CertificateID: vendor.StringOr("aml_certificate_id", ""),
	}
}

func (a *Compliance) validateContent(ctx context.Context, action string, c Context) Result {
	raw := strings.TrimSpace(c.str("content"))
	if raw == "" {
		return errorResult("No content provided")
	}
	// Markup-only copy is reviewed as written.
	content := fetch.StripHTML(raw)
	if content == "" {
		content = raw
	}

	prompt := fmt.Sprintf(`Review for UK property marketing compliance:

%s

Respond: APPROVED or REJECTED with reasons.`, content)

	verdict := a.callLLM(ctx, prompt, validationTemperature)
	firstLine, _, _ := strings.Cut(strings.ToUpper(verdict), "\n")
	return ContentValidation{
		Outcome:          succeeded,
		Approved:         strings.Contains(firstLine, "APPROVED"),
		ValidationResult: verdict,
	}
}

// validateEPC compares ISO dates as strings; expiry must be YYYY-MM-DD.
func (a *Compliance) validateEPC(ctx context.Context, action string, c Context) Result {
	if !c.has("property_id") || a.store == nil {
		return errorResult(errNoProperty)
	}
	prop, ok := a.store.Get(data.KindProperty, c.str("property_id"))
	if !ok {
		return errorResult(errNoProperty)
	}

	expiry := prop.StringOr("epc_expiry", "")
	today := a.now().Format("2006-01-02")
	return EPCValidation{
		Outcome:   succeeded,
		EPCValid:  expiry != "" && expiry > today,
		EPCRating: prop.StringOr("epc_rating", ""),
		EPCExpiry: expiry,
	}
}
