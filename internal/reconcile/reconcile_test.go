package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/model"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func orderLine(orderID, sku string, qty int, createdDaysAgo, promised int) model.OrderLine {
	return model.OrderLine{
		OrderID:          orderID,
		SKU:              sku,
		QuantityOrdered:  qty,
		OrderDatetime:    now.AddDate(0, 0, -createdDaysAgo),
		PromisedShipDays: promised,
	}
}

func TestShipmentAggregation(t *testing.T) {
	orders := []model.OrderLine{orderLine("A", "S1", 5, 1, 5)}
	shipments := []model.ShipmentRecord{
		{OrderID: "A", SKU: "S1", QuantityShipped: 2, SupplierName: "Acme", Carrier: "DHL",
			TrackingNumber: "T1", ShipDatetime: now.AddDate(0, 0, -1)},
		{OrderID: "A", SKU: "S1", QuantityShipped: 3, SupplierName: "Other", Carrier: "UPS",
			TrackingNumber: "T2", ShipDatetime: now.AddDate(0, 0, -2)},
	}

	out := Run(orders, shipments, nil, now)
	require.Len(t, out.Lines, 1)
	l := out.Lines[0]
	assert.Equal(t, 5, l.QuantityShipped, "quantities sum")
	assert.Equal(t, "Acme", l.SupplierName, "first shipment wins identity")
	assert.Equal(t, "DHL", l.Carrier)
	assert.Equal(t, "T1", l.TrackingNumber)
	assert.Equal(t, now.AddDate(0, 0, -2), l.ShipDatetime, "earliest ship date wins")
	assert.Equal(t, model.StatusShipped, l.Status)
}

func TestLineStatusCascade(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("A", "UNSH", 2, 1, 5),
		orderLine("A", "PART", 4, 1, 5),
		orderLine("A", "FULL", 2, 1, 5),
	}
	shipments := []model.ShipmentRecord{
		{OrderID: "A", SKU: "PART", QuantityShipped: 1, TrackingNumber: "T1"},
		{OrderID: "A", SKU: "FULL", QuantityShipped: 2, TrackingNumber: "T2"},
	}

	out := Run(orders, shipments, nil, now)
	byStatus := map[string]string{}
	for _, l := range out.Lines {
		byStatus[l.SKU] = l.Status
	}
	assert.Equal(t, model.StatusUnshipped, byStatus["UNSH"])
	assert.Equal(t, model.StatusPartiallyShipped, byStatus["PART"])
	assert.Equal(t, model.StatusShipped, byStatus["FULL"])
}

func TestDeliveredOverride(t *testing.T) {
	orders := []model.OrderLine{orderLine("A", "S1", 1, 1, 5)}
	shipments := []model.ShipmentRecord{
		{OrderID: "A", SKU: "S1", QuantityShipped: 1, TrackingNumber: "T1"},
	}
	tracking := []model.TrackingRecord{
		{TrackingNumber: "T1", Status: "Delivered", DeliveryDate: now.AddDate(0, 0, -1)},
	}

	out := Run(orders, shipments, tracking, now)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, model.StatusDelivered, out.Lines[0].Status)
	assert.Empty(t, out.Lines[0].IssueType, "delivered with tracking is clean")
}

func TestIssuePrecedence(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("A", "LATE", 1, 10, 5),  // unshipped past promise
		orderLine("A", "PART", 4, 1, 5),   // partial but not late
		orderLine("A", "NOTRK", 1, 1, 5),  // shipped with no tracking
		orderLine("A", "FRESH", 1, 1, 5),  // unshipped, within promise
	}
	shipments := []model.ShipmentRecord{
		{OrderID: "A", SKU: "PART", QuantityShipped: 2, TrackingNumber: "T1"},
		{OrderID: "A", SKU: "NOTRK", QuantityShipped: 1},
	}

	out := Run(orders, shipments, nil, now)
	byIssue := map[string]string{}
	for _, l := range out.Lines {
		byIssue[l.SKU] = l.IssueType
	}
	assert.Equal(t, model.IssueLateUnshipped, byIssue["LATE"])
	assert.Equal(t, model.IssuePartialShipment, byIssue["PART"])
	assert.Equal(t, model.IssueMissingTracking, byIssue["NOTRK"])
	assert.Empty(t, byIssue["FRESH"])
	assert.Len(t, out.Exceptions, 3)
}

func TestSLAFields(t *testing.T) {
	orders := []model.OrderLine{orderLine("A", "S1", 1, 7, 5)}

	out := Run(orders, nil, nil, now)
	require.Len(t, out.Lines, 1)
	l := out.Lines[0]
	assert.Equal(t, 7, l.DaysSinceOrder)
	assert.True(t, l.IsLate)
	assert.Equal(t, l.OrderCreatedAt.AddDate(0, 0, 5), l.SLADueDate)
}

func TestMissingOrderDateIsNotLate(t *testing.T) {
	orders := []model.OrderLine{{OrderID: "A", SKU: "S1", QuantityOrdered: 1, PromisedShipDays: 5}}

	out := Run(orders, nil, nil, now)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, 0, out.Lines[0].DaysSinceOrder)
	assert.False(t, out.Lines[0].IsLate)
	assert.True(t, out.Lines[0].SLADueDate.IsZero())
}

func TestFollowupGrouping(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("O1", "S1", 1, 10, 5),
		orderLine("O2", "S2", 1, 10, 5),
		orderLine("O3", "S3", 1, 10, 5),
		orderLine("O4", "S4", 1, 10, 5),
	}
	// All unshipped and late; no shipment rows means no supplier identity,
	// so the whole batch lands on the Unknown Supplier floor.
	out := Run(orders, nil, nil, now)
	require.Len(t, out.Followups, 1)
	f := out.Followups[0]
	assert.Equal(t, "Unknown Supplier", f.SupplierName)
	assert.Equal(t, 4, f.ItemCount)
	assert.Equal(t, model.UrgencyHigh, f.Urgency)
	assert.Equal(t, "O1, O2, O3, O4", f.OrderIDs)
	assert.Equal(t, "Action required: outstanding shipments", f.Subject)
	assert.Contains(t, f.Body, "Orders: O1, O2, O3, O4")
}

func TestFollowupUrgencyThreshold(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("O1", "S1", 1, 10, 5),
		orderLine("O2", "S2", 1, 10, 5),
	}
	out := Run(orders, nil, nil, now)
	require.Len(t, out.Followups, 1)
	assert.Equal(t, model.UrgencyMedium, out.Followups[0].Urgency)
}

func TestRollup(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("O1", "A", 1, 10, 5), // late unshipped
		orderLine("O1", "B", 1, 10, 5), // late unshipped
		orderLine("O2", "C", 1, 1, 5),  // delivered below
	}
	shipments := []model.ShipmentRecord{
		{OrderID: "O2", SKU: "C", QuantityShipped: 1, TrackingNumber: "T1"},
	}
	tracking := []model.TrackingRecord{
		{TrackingNumber: "T1", DeliveryDate: now},
	}

	out := Run(orders, shipments, tracking, now)
	require.Len(t, out.Rollup, 2)

	o1 := out.Rollup[0]
	assert.Equal(t, "O1", o1.OrderID)
	assert.Equal(t, "Issue", o1.InternalStatus)
	assert.Equal(t, model.StatusUnshipped, o1.CustomerFacingStatus)
	assert.Equal(t, model.IssueLateUnshipped, o1.TopIssue)
	assert.Equal(t, 2, o1.RiskScore)
	assert.Equal(t, "High", o1.RiskBand)

	o2 := out.Rollup[1]
	assert.Equal(t, "O2", o2.OrderID)
	assert.Equal(t, "OK", o2.InternalStatus)
	assert.Equal(t, model.StatusDelivered, o2.CustomerFacingStatus)
	assert.Equal(t, "Low", o2.RiskBand)
}

func TestCustomerFacingStatusIsLexicographicMin(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("O1", "A", 1, 1, 5),
		orderLine("O1", "B", 1, 1, 5),
	}
	shipments := []model.ShipmentRecord{
		{OrderID: "O1", SKU: "A", QuantityShipped: 1, TrackingNumber: "T1"},
	}
	tracking := []model.TrackingRecord{{TrackingNumber: "T1", DeliveryDate: now}}

	out := Run(orders, shipments, tracking, now)
	require.Len(t, out.Rollup, 1)
	// DELIVERED sorts before UNSHIPPED, so a half-delivered order reads as
	// delivered to the customer. Deliberate carry-over from the reporting
	// layer this engine replaced.
	assert.Equal(t, model.StatusDelivered, out.Rollup[0].CustomerFacingStatus)
	assert.Equal(t, "Issue", out.Rollup[0].InternalStatus)
}

func TestKPIs(t *testing.T) {
	orders := []model.OrderLine{
		orderLine("O1", "A", 1, 10, 5), // late unshipped
		orderLine("O2", "B", 1, 1, 5),  // shipped
		orderLine("O3", "C", 1, 1, 5),  // delivered
	}
	shipments := []model.ShipmentRecord{
		{OrderID: "O2", SKU: "B", QuantityShipped: 1, TrackingNumber: "T1"},
		{OrderID: "O3", SKU: "C", QuantityShipped: 1, TrackingNumber: "T2"},
	}
	tracking := []model.TrackingRecord{{TrackingNumber: "T2", DeliveryDate: now}}

	out := Run(orders, shipments, tracking, now)
	k := out.KPIs
	assert.Equal(t, 3, k.TotalOrderLines)
	assert.Equal(t, 66.7, k.PctShippedOrDelivered)
	assert.Equal(t, 33.3, k.PctDelivered)
	assert.Equal(t, 33.3, k.PctUnshipped)
	assert.Equal(t, 33.3, k.PctLateUnshipped)
}

func TestKPIsEmpty(t *testing.T) {
	out := Run(nil, nil, nil, now)
	assert.Equal(t, model.KPIs{}, out.KPIs)
	assert.Empty(t, out.Lines)
	assert.Empty(t, out.Followups)
}

func TestFollowupBodyFormat(t *testing.T) {
	body := followupBody("O1, O2")
	lines := strings.Split(body, "\n")
	assert.Equal(t, "Hello,", lines[0])
	assert.Contains(t, body, "Orders: O1, O2")
	assert.True(t, strings.HasSuffix(body, "Thank you."))
}
