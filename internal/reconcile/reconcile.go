// Package reconcile joins normalized orders, shipments, and tracking into
// per-line statuses, actionable exceptions, supplier follow-up drafts, an
// order-level rollup, and run KPIs. Everything here is a pure recomputation:
// the same inputs at the same clock instant always produce the same outputs.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/model"
)

// Output bundles everything one reconciliation pass produces.
type Output struct {
	Lines      []model.LineStatus
	Exceptions []model.Exception
	Followups  []model.Followup
	Rollup     []model.OrderRollup
	KPIs       model.KPIs
}

type lineKey struct {
	OrderID string
	SKU     string
}

// shipAgg is the per-(order, sku) shipment aggregate: quantities sum, the
// first row seen wins for identifying fields, and the earliest ship date is
// kept.
type shipAgg struct {
	QuantityShipped int
	SupplierName    string
	SupplierOrderID string
	Carrier         string
	TrackingNumber  string
	ShipDatetime    time.Time
	seen            bool
}

func aggregateShipments(shipments []model.ShipmentRecord) map[lineKey]shipAgg {
	agg := make(map[lineKey]shipAgg)
	for _, s := range shipments {
		key := lineKey{OrderID: s.OrderID, SKU: s.SKU}
		a := agg[key]
		a.QuantityShipped += s.QuantityShipped
		if !a.seen {
			a.SupplierName = s.SupplierName
			a.SupplierOrderID = s.SupplierOrderID
			a.Carrier = s.Carrier
			a.TrackingNumber = s.TrackingNumber
			a.seen = true
		}
		if !s.ShipDatetime.IsZero() && (a.ShipDatetime.IsZero() || s.ShipDatetime.Before(a.ShipDatetime)) {
			a.ShipDatetime = s.ShipDatetime
		}
		agg[key] = a
	}
	return agg
}

// deliveredSet collects tracking numbers the carrier reports as delivered.
func deliveredSet(tracking []model.TrackingRecord) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tracking {
		if t.TrackingNumber != "" && t.Delivered() {
			out[t.TrackingNumber] = true
		}
	}
	return out
}

func lineStatusOf(qtyShipped, qtyOrdered int) string {
	if qtyShipped <= 0 {
		return model.StatusUnshipped
	}
	if qtyShipped < qtyOrdered {
		return model.StatusPartiallyShipped
	}
	return model.StatusShipped
}

// issueTypeOf applies the detection cascade in precedence order. A line gets
// at most one issue.
func issueTypeOf(status string, isLate, hasTracking bool) string {
	switch {
	case status == model.StatusUnshipped && isLate:
		return model.IssueLateUnshipped
	case status == model.StatusPartiallyShipped:
		return model.IssuePartialShipment
	case (status == model.StatusShipped || status == model.StatusDelivered) && !hasTracking:
		return model.IssueMissingTracking
	}
	return ""
}

// Run reconciles the three normalized tables as of now. Input order is
// preserved in Lines and Exceptions; Followups and Rollup are sorted by
// their group key.
func Run(orders []model.OrderLine, shipments []model.ShipmentRecord, tracking []model.TrackingRecord, now time.Time) Output {
	now = now.UTC()
	agg := aggregateShipments(shipments)
	delivered := deliveredSet(tracking)

	lines := make([]model.LineStatus, 0, len(orders))
	for _, o := range orders {
		a := agg[lineKey{OrderID: o.OrderID, SKU: o.SKU}]

		ls := model.LineStatus{
			AccountID:        o.AccountID,
			StoreID:          o.StoreID,
			Platform:         o.Platform,
			OrderID:          o.OrderID,
			SKU:              o.SKU,
			OrderCreatedAt:   o.OrderDatetime,
			QuantityOrdered:  o.QuantityOrdered,
			QuantityShipped:  a.QuantityShipped,
			SupplierName:     a.SupplierName,
			SupplierOrderID:  a.SupplierOrderID,
			Carrier:          a.Carrier,
			TrackingNumber:   a.TrackingNumber,
			ShipDatetime:     a.ShipDatetime,
			CustomerCountry:  o.CustomerCountry,
			PromisedShipDays: o.PromisedShipDays,
		}

		if !o.OrderDatetime.IsZero() {
			ls.SLADueDate = o.OrderDatetime.AddDate(0, 0, o.PromisedShipDays)
			// Whole elapsed days, truncated toward zero.
			ls.DaysSinceOrder = int(now.Sub(o.OrderDatetime).Hours() / 24)
		}
		ls.IsLate = ls.DaysSinceOrder > o.PromisedShipDays

		ls.Status = lineStatusOf(ls.QuantityShipped, ls.QuantityOrdered)
		if ls.TrackingNumber != "" && delivered[ls.TrackingNumber] {
			ls.Status = model.StatusDelivered
		}

		hasTracking := strings.TrimSpace(ls.TrackingNumber) != ""
		ls.IssueType = issueTypeOf(ls.Status, ls.IsLate, hasTracking)

		lines = append(lines, ls)
	}

	exceptions := buildExceptions(lines)
	out := Output{
		Lines:      lines,
		Exceptions: exceptions,
		Followups:  buildFollowups(exceptions),
		Rollup:     buildRollup(lines),
		KPIs:       buildKPIs(lines),
	}
	logging.Reconcile("run: %d lines, %d exceptions, %d followups, %d orders",
		len(out.Lines), len(out.Exceptions), len(out.Followups), len(out.Rollup))
	return out
}

func buildExceptions(lines []model.LineStatus) []model.Exception {
	var out []model.Exception
	for _, l := range lines {
		if l.IssueType == "" {
			continue
		}
		out = append(out, model.Exception{
			AccountID:        l.AccountID,
			StoreID:          l.StoreID,
			Platform:         l.Platform,
			OrderID:          l.OrderID,
			SKU:              l.SKU,
			IssueType:        l.IssueType,
			CustomerCountry:  l.CustomerCountry,
			SupplierName:     l.SupplierName,
			SupplierOrderID:  l.SupplierOrderID,
			Carrier:          l.Carrier,
			TrackingNumber:   l.TrackingNumber,
			QuantityOrdered:  l.QuantityOrdered,
			QuantityShipped:  l.QuantityShipped,
			LineStatus:       l.Status,
			DaysSinceOrder:   l.DaysSinceOrder,
			PromisedShipDays: l.PromisedShipDays,
			OrderCreatedAt:   l.OrderCreatedAt,
			SLADueDate:       l.SLADueDate,
		})
	}
	return out
}

const (
	followupSubject = "Action required: outstanding shipments"
)

func followupBody(orderIDs string) string {
	return fmt.Sprintf("Hello,\n\n"+
		"We are missing shipment confirmation or tracking for the following orders:\n\n"+
		"Orders: %s\n\nPlease provide tracking or an updated ship date.\n\nThank you.", orderIDs)
}

// buildFollowups groups exceptions by supplier into one outreach draft each.
// Urgency is volume-based: three or more affected lines is High.
func buildFollowups(exceptions []model.Exception) []model.Followup {
	type group struct {
		count  int
		orders map[string]bool
	}
	groups := make(map[string]*group)
	for _, e := range exceptions {
		// Unshipped lines never matched a shipment, so they carry no
		// supplier; give them the same floor the shipment table uses.
		supplier := e.SupplierName
		if strings.TrimSpace(supplier) == "" {
			supplier = "Unknown Supplier"
		}
		g := groups[supplier]
		if g == nil {
			g = &group{orders: make(map[string]bool)}
			groups[supplier] = g
		}
		g.count++
		if strings.TrimSpace(e.OrderID) != "" {
			g.orders[e.OrderID] = true
		}
	}

	suppliers := make([]string, 0, len(groups))
	for s := range groups {
		suppliers = append(suppliers, s)
	}
	sort.Strings(suppliers)

	out := make([]model.Followup, 0, len(suppliers))
	for _, s := range suppliers {
		g := groups[s]
		ids := make([]string, 0, len(g.orders))
		for id := range g.orders {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		joined := strings.Join(ids, ", ")

		urgency := model.UrgencyMedium
		if g.count >= 3 {
			urgency = model.UrgencyHigh
		}
		out = append(out, model.Followup{
			SupplierName: s,
			ItemCount:    g.count,
			OrderIDs:     joined,
			Urgency:      urgency,
			Subject:      followupSubject,
			Body:         followupBody(joined),
		})
	}
	return out
}

// buildRollup produces one summary row per order, sorted by order id.
// customer_facing_status is the lexicographically smallest line status in the
// order, which happens to order DELIVERED < PARTIALLY_SHIPPED < SHIPPED <
// UNSHIPPED; top_issue is the first issue in line order.
func buildRollup(lines []model.LineStatus) []model.OrderRollup {
	type acc struct {
		anyNotDelivered bool
		minStatus       string
		topIssue        string
		lateCount       int
	}
	accs := make(map[string]*acc)
	var order []string
	for _, l := range lines {
		a := accs[l.OrderID]
		if a == nil {
			a = &acc{}
			accs[l.OrderID] = a
			order = append(order, l.OrderID)
		}
		if l.Status != model.StatusDelivered {
			a.anyNotDelivered = true
		}
		if a.minStatus == "" || l.Status < a.minStatus {
			a.minStatus = l.Status
		}
		if a.topIssue == "" && l.IssueType != "" {
			a.topIssue = l.IssueType
		}
		if l.IsLate {
			a.lateCount++
		}
	}
	sort.Strings(order)

	out := make([]model.OrderRollup, 0, len(order))
	for _, id := range order {
		a := accs[id]
		internal := "OK"
		if a.anyNotDelivered {
			internal = "Issue"
		}
		band := "Low"
		switch {
		case a.lateCount >= 2:
			band = "High"
		case a.lateCount == 1:
			band = "Medium"
		}
		out = append(out, model.OrderRollup{
			OrderID:              id,
			InternalStatus:       internal,
			CustomerFacingStatus: a.minStatus,
			TopIssue:             a.topIssue,
			RiskScore:            a.lateCount,
			RiskBand:             band,
		})
	}
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	// Round to one decimal the way a report column would.
	v := 100 * float64(n) / float64(total)
	return float64(int(v*10+0.5)) / 10
}

func buildKPIs(lines []model.LineStatus) model.KPIs {
	total := len(lines)
	var shippedOrDelivered, deliveredN, unshipped, lateUnshipped int
	for _, l := range lines {
		switch l.Status {
		case model.StatusShipped:
			shippedOrDelivered++
		case model.StatusDelivered:
			shippedOrDelivered++
			deliveredN++
		case model.StatusUnshipped:
			unshipped++
			if l.IsLate {
				lateUnshipped++
			}
		}
	}
	return model.KPIs{
		TotalOrderLines:       total,
		PctShippedOrDelivered: pct(shippedOrDelivered, total),
		PctDelivered:          pct(deliveredN, total),
		PctUnshipped:          pct(unshipped, total),
		PctLateUnshipped:      pct(lateUnshipped, total),
	}
}
