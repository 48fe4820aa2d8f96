package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/model"
)

// TextClient generates a completion for one prompt. Implementations must be
// safe for sequential reuse; the enricher never calls it concurrently.
type TextClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Enricher rewrites exception free-text with an optional LLM. Zero values
// mean: no client (rules only), 40-row cap, 30s per-call timeout.
type Enricher struct {
	Client  TextClient
	MaxRows int
	Timeout time.Duration
}

func (en *Enricher) maxRows() int {
	if en.MaxRows > 0 {
		return en.MaxRows
	}
	return 40
}

func (en *Enricher) timeout() time.Duration {
	if en.Timeout > 0 {
		return en.Timeout
	}
	return 30 * time.Second
}

// llmResult is the strict JSON shape the model is asked for.
type llmResult struct {
	Explanation  string  `json:"explanation"`
	NextAction   string  `json:"next_action"`
	CustomerRisk string  `json:"customer_risk"`
	Confidence   float64 `json:"confidence"`
}

func buildPrompt(e model.Exception, ruleExplanation string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are an operations copilot for a dropshipping business.

Write a concise explanation and a recommended next action for the ops team.
Return STRICT JSON with keys:
- explanation: string (1-2 sentences, plain English)
- next_action: string (one clear action)
- customer_risk: one of ["Low","Medium","High"]
- confidence: integer 0-100

Context:
order_id: %s
sku: %s
issue_type: %s
supplier_name: %s
customer_country: %s
quantity_ordered: %d
quantity_shipped: %d
days_since_order: %d
promised_ship_days: %d
carrier: %s
tracking_number: %s

Rule_based_explanation:
%s`,
		e.OrderID, e.SKU, e.IssueType, e.SupplierName, e.CustomerCountry,
		e.QuantityOrdered, e.QuantityShipped, e.DaysSinceOrder, e.PromisedShipDays,
		e.Carrier, e.TrackingNumber, ruleExplanation))
}

// Enhance fills Explanation, NextAction, and CustomerRisk on every exception
// in place. Never returns an error: LLM problems degrade to the rule-based
// text row by row.
func (en *Enricher) Enhance(ctx context.Context, exceptions []model.Exception) {
	if len(exceptions) == 0 {
		return
	}

	ruleText := make([]string, len(exceptions))
	for i := range exceptions {
		e := &exceptions[i]
		ruleText[i] = RuleExplanation(*e)
		e.CustomerRisk = riskFor(e.IssueType)
		e.NextAction = actionFor(e.IssueType)
		e.LLMUsed = false
		e.LLMConfidence = 0
	}

	if en != nil && en.Client != nil {
		limit := en.maxRows()
		rewritten := 0
		for i := range exceptions {
			if i >= limit {
				break
			}
			if ctx.Err() != nil {
				break
			}
			e := &exceptions[i]

			callCtx, cancel := context.WithTimeout(ctx, en.timeout())
			raw, err := en.Client.Generate(callCtx, buildPrompt(*e, ruleText[i]))
			cancel()
			if err != nil {
				logging.Enrich("row %d: llm call failed, keeping rules: %v", i, err)
				continue
			}

			var res llmResult
			if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &res); err != nil || strings.TrimSpace(res.Explanation) == "" {
				logging.Enrich("row %d: unusable llm payload, keeping rules", i)
				continue
			}

			ruleText[i] = strings.TrimSpace(res.Explanation)
			if a := strings.TrimSpace(res.NextAction); a != "" {
				e.NextAction = a
			}
			if r := strings.TrimSpace(res.CustomerRisk); r != "" {
				e.CustomerRisk = r
			}
			e.LLMConfidence = int(res.Confidence)
			e.LLMUsed = true
			rewritten++
		}
		logging.Enrich("rewrote %d/%d exception(s)", rewritten, len(exceptions))
	}

	for i := range exceptions {
		e := &exceptions[i]
		e.Explanation = finalExplanation(ruleText[i], e.CustomerRisk, e.NextAction)
	}
}
