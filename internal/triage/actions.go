package triage

import (
	"sort"
	"strings"

	"opsdeck/internal/model"
)

// ActionList is the morning worklist derived from one run: who to contact
// about customer-visible pain, which suppliers to chase, and what to watch.
type ActionList struct {
	CustomerActions []model.Exception
	SupplierActions []model.Followup
	Watchlist       []model.Exception
}

// customerPainTerms flag exceptions a customer would already be feeling.
var customerPainTerms = []string{
	"late", "overdue", "past due", "missing tracking", "no tracking",
	"exception", "lost", "stuck", "returned",
}

// BuildDailyActions selects at most maxItems entries per list. Exceptions
// must already carry Urgency (see AddUrgency).
func BuildDailyActions(exceptions []model.Exception, followups []model.Followup, maxItems int) ActionList {
	if maxItems <= 0 {
		maxItems = 10
	}
	var out ActionList

	for _, e := range exceptions {
		blob := strings.ToLower(strings.Join([]string{
			e.IssueType, e.Explanation, e.NextAction, e.LineStatus,
		}, " "))
		urgent := e.Urgency == model.UrgencyCritical || e.Urgency == model.UrgencyHigh
		if urgent || containsAny(blob, customerPainTerms) {
			out.CustomerActions = append(out.CustomerActions, e)
		}
		if e.Urgency == model.UrgencyMedium {
			out.Watchlist = append(out.Watchlist, e)
		}
	}
	// Plain string sort: Critical < High < Low < Medium, which front-loads
	// the severe rows.
	sort.SliceStable(out.CustomerActions, func(i, j int) bool {
		a, b := out.CustomerActions[i], out.CustomerActions[j]
		if a.Urgency != b.Urgency {
			return a.Urgency < b.Urgency
		}
		if a.CustomerRisk != b.CustomerRisk {
			return a.CustomerRisk < b.CustomerRisk
		}
		return a.OrderID < b.OrderID
	})
	if len(out.CustomerActions) > maxItems {
		out.CustomerActions = out.CustomerActions[:maxItems]
	}
	if len(out.Watchlist) > maxItems {
		out.Watchlist = out.Watchlist[:maxItems]
	}

	out.SupplierActions = append(out.SupplierActions, followups...)
	sort.SliceStable(out.SupplierActions, func(i, j int) bool {
		return out.SupplierActions[i].ItemCount > out.SupplierActions[j].ItemCount
	})
	if len(out.SupplierActions) > maxItems {
		out.SupplierActions = out.SupplierActions[:maxItems]
	}

	return out
}
