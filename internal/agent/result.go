package agent

import (
	"encoding/json"

	"github.com/rahul/estate/internal/data"
)

// Status is carried by every agent result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Result types.
const (
	TypeProperty            = "property"
	TypePropertySearch      = "property_search"
	TypeVendor              = "vendor"
	TypeBuyer               = "buyer"
	TypeBuyerSearch         = "buyer_search"
	TypeEPCVerification     = "epc_verification"
	TypeListingPage         = "listing_page"
	TypeCRMOperation        = "crm_operation"
	TypePortalOperation     = "portal_operation"
	TypeBuyerMatching       = "buyer_matching"
	TypeScoring             = "scoring"
	TypePropertyDescription = "property_description"
	TypeEmail               = "email"
	TypeVendorReport        = "vendor_report"
	TypeLLMResponse         = "llm_response"
	TypeLLMAnalysis         = "llm_analysis"
	TypeLLMContent          = "llm_content"
	TypeLLMCompliance       = "llm_compliance"
)

// Result is the outcome of one agent action. Each concrete type marshals to
// the JSON shape clients already consume.
type Result interface {
	ResultStatus() Status
}

// Outcome is embedded by every result variant.
type Outcome struct {
	Status Status `json:"status"`
}

func (o Outcome) ResultStatus() Status { return o.Status }

var succeeded = Outcome{Status: StatusSuccess}

type ErrorResult struct {
	Outcome
	Message string `json:"message"`
}

func errorResult(msg string) ErrorResult {
	return ErrorResult{Outcome: Outcome{Status: StatusError}, Message: msg}
}

type SkippedResult struct {
	Outcome
	Reason string `json:"reason"`
}

func skipped(reason string) SkippedResult {
	return SkippedResult{Outcome: Outcome{Status: StatusSkipped}, Reason: reason}
}

// RecordResult is a single entity lookup (property, vendor, buyer).
type RecordResult struct {
	Outcome
	Type string      `json:"type"`
	Data data.Record `json:"data"`
}

type SearchResult struct {
	Outcome
	Type  string        `json:"type"`
	Count int           `json:"count"`
	Data  []data.Record `json:"data"`
}

type EPCVerification struct {
	Outcome
	Type      string `json:"type"`
	EPCRating string `json:"epc_rating"`
	EPCExpiry string `json:"epc_expiry"`
	Valid     bool   `json:"valid"`
}

type ListingPage struct {
	Outcome
	Type    string `json:"type"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

type CRMOperation struct {
	Outcome
	Type     string `json:"type"`
	RecordID string `json:"record_id"`
}

type PortalOperation struct {
	Outcome
	Type           string   `json:"type"`
	PortalsUpdated []string `json:"portals_updated"`
}

type BuyerMatch struct {
	BuyerID   any    `json:"buyer_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	BuyerType any    `json:"buyer_type"`
	Priority  any    `json:"priority"`
}

type BuyerMatching struct {
	Outcome
	Type         string       `json:"type"`
	MatchesFound int          `json:"matches_found"`
	TopMatches   []BuyerMatch `json:"top_matches"`
}

type RiskAssessment struct {
	Outcome
	RiskLevel string   `json:"risk_level"`
	RiskScore int      `json:"risk_score"`
	Factors   []string `json:"factors"`
}

type PriceRange struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

type PriceAnalysis struct {
	Outcome
	AskingPrice    any        `json:"asking_price"`
	EstimatedRange PriceRange `json:"estimated_range"`
	MarketPosition string     `json:"market_position"`
}

type Scoring struct {
	Outcome
	Type       string  `json:"type"`
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

type PropertyDescription struct {
	Outcome
	Type      string `json:"type"`
	WordCount int    `json:"word_count"`
	Content   string `json:"content"`
}

// GeneratedContent is model-written text such as an email or vendor report.
type GeneratedContent struct {
	Outcome
	Type    string `json:"type"`
	Content string `json:"content"`
}

type AMLCheck struct {
	Outcome
	AMLPassed     bool   `json:"aml_passed"`
	AMLStatus     any    `json:"aml_status"`
	CertificateID string `json:"certificate_id"`
}

type ContentValidation struct {
	Outcome
	Approved         bool   `json:"approved"`
	ValidationResult string `json:"validation_result"`
}

type EPCValidation struct {
	Outcome
	EPCValid  bool   `json:"epc_valid"`
	EPCRating string `json:"epc_rating"`
	EPCExpiry string `json:"epc_expiry"`
}

// TextResult wraps a free-text model reply. Field names the JSON key the
// text is stored under, which differs per agent.
type TextResult struct {
	Outcome
	Type  string
	Field string
	Text  string
}

func (r TextResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"status": r.Status,
		"type":   r.Type,
		r.Field:  r.Text,
	})
}
