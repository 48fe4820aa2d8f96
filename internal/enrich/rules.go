// Package enrich fills the free-text fields on exceptions: a plain-English
// explanation, a recommended next action, and a customer risk level. A
// rule-based baseline is always applied; an optional LLM client may rewrite
// the text but never changes status or urgency classifications, and any LLM
// failure silently falls back to the rules.
package enrich

import (
	"fmt"

	"opsdeck/internal/model"
)

// issueToRisk maps issue types to a default customer risk. Types not listed
// fall back to Low.
var issueToRisk = map[string]string{
	"CARRIER_EXCEPTION":        model.UrgencyHigh,
	model.IssueLateUnshipped:   model.UrgencyHigh,
	model.IssueMissingTracking: model.UrgencyMedium,
	model.IssuePartialShipment: model.UrgencyMedium,
	"UNSHIPPED":                model.UrgencyMedium,
	"OVER_SHIPPED":             model.UrgencyLow,
}

// issueToAction maps issue types to a default next action.
var issueToAction = map[string]string{
	"CARRIER_EXCEPTION":        "Contact carrier + supplier; decide reship/refund.",
	model.IssueLateUnshipped:   "Escalate to supplier; request tracking within 24h.",
	model.IssueMissingTracking: "Request tracking number + carrier today.",
	model.IssuePartialShipment: "Request remainder ETA + tracking.",
	"UNSHIPPED":                "Confirm order accepted; request estimated ship date.",
	"OVER_SHIPPED":             "Verify duplicates; stop further shipments; decide return/keep policy.",
}

const defaultAction = "Review and take action."

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// RuleExplanation writes the baseline explanation sentence for one
// exception.
func RuleExplanation(e model.Exception) string {
	supplier := e.SupplierName
	if supplier == "" {
		supplier = "supplier"
	}

	switch e.IssueType {
	case model.IssueLateUnshipped:
		if !e.OrderCreatedAt.IsZero() {
			return fmt.Sprintf("Order %s (SKU %s) is %d day(s) old and still not shipped (SLA %d days).",
				e.OrderID, e.SKU, e.DaysSinceOrder, e.PromisedShipDays)
		}
		return fmt.Sprintf("Order %s (SKU %s) is late and still not shipped.", e.OrderID, e.SKU)
	case model.IssueMissingTracking:
		return fmt.Sprintf("Order %s (SKU %s) appears shipped but tracking is missing or invalid. Request carrier + tracking from %s.",
			e.OrderID, e.SKU, supplier)
	case model.IssuePartialShipment:
		return fmt.Sprintf("Order %s (SKU %s) is partially shipped (%d/%d).",
			e.OrderID, e.SKU, e.QuantityShipped, e.QuantityOrdered)
	case "CARRIER_EXCEPTION":
		return fmt.Sprintf("Order %s (SKU %s) has a carrier exception. Carrier: %s Tracking: %s.",
			e.OrderID, e.SKU, orDash(e.Carrier), orDash(e.TrackingNumber))
	case "UNSHIPPED":
		return fmt.Sprintf("Order %s (SKU %s) is unshipped. Confirm acceptance and ship date with %s.",
			e.OrderID, e.SKU, supplier)
	case "OVER_SHIPPED":
		return fmt.Sprintf("Order %s (SKU %s) may have excess shipment vs ordered quantity. Verify duplicates before further action.",
			e.OrderID, e.SKU)
	}
	return fmt.Sprintf("Order %s (SKU %s) needs review.", e.OrderID, e.SKU)
}

func riskFor(issueType string) string {
	if r, ok := issueToRisk[issueType]; ok {
		return r
	}
	return model.UrgencyLow
}

func actionFor(issueType string) string {
	if a, ok := issueToAction[issueType]; ok {
		return a
	}
	return defaultAction
}

// finalExplanation combines the (possibly rewritten) explanation with the
// risk/action footer shown to operators.
func finalExplanation(explanation, risk, action string) string {
	return fmt.Sprintf("%s\nRisk: %s. Next: %s", explanation, risk, action)
}
