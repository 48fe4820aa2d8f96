package workspace

import (
	"strconv"
	"time"

	"opsdeck/internal/model"
	"opsdeck/internal/tabular"
)

// Export formatting for the CSV artifacts. Column names are stable — they
// are the contract downstream spreadsheets and the run loader depend on.

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtInt(v int) string { return strconv.Itoa(v) }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func fmtBool(v bool) string { return strconv.FormatBool(v) }

// OrdersTable renders normalized order lines.
func OrdersTable(orders []model.OrderLine) *tabular.Table {
	t := &tabular.Table{
		Name: "orders_normalized",
		Columns: []string{
			"account_id", "store_id", "platform", "order_id", "order_datetime_utc",
			"sku", "quantity_ordered", "customer_country", "customer_state",
			"order_revenue", "currency", "shipping_method", "promised_ship_days",
		},
	}
	for _, o := range orders {
		t.Rows = append(t.Rows, []string{
			o.AccountID, o.StoreID, o.Platform, o.OrderID, fmtTime(o.OrderDatetime),
			o.SKU, fmtInt(o.QuantityOrdered), o.CustomerCountry, o.CustomerState,
			fmtFloat(o.OrderRevenue), o.Currency, o.ShippingMethod, fmtInt(o.PromisedShipDays),
		})
	}
	return t
}

// ShipmentsTable renders normalized shipment rows.
func ShipmentsTable(shipments []model.ShipmentRecord) *tabular.Table {
	t := &tabular.Table{
		Name: "shipments_normalized",
		Columns: []string{
			"supplier_name", "supplier_order_id", "order_id", "sku",
			"quantity_shipped", "ship_datetime_utc", "carrier", "tracking_number",
			"ship_from_country", "ship_to_country",
		},
	}
	for _, s := range shipments {
		t.Rows = append(t.Rows, []string{
			s.SupplierName, s.SupplierOrderID, s.OrderID, s.SKU,
			fmtInt(s.QuantityShipped), fmtTime(s.ShipDatetime), s.Carrier, s.TrackingNumber,
			s.ShipFromCountry, s.ShipToCountry,
		})
	}
	return t
}

// TrackingTable renders normalized carrier tracking rows.
func TrackingTable(tracking []model.TrackingRecord) *tabular.Table {
	t := &tabular.Table{
		Name: "tracking_normalized",
		Columns: []string{
			"tracking_number", "status", "last_update_utc", "delivery_date_utc",
			"delivery_exception",
		},
	}
	for _, r := range tracking {
		t.Rows = append(t.Rows, []string{
			r.TrackingNumber, r.Status, fmtTime(r.LastUpdate), fmtTime(r.DeliveryDate),
			fmtBool(r.DeliveryException),
		})
	}
	return t
}

// LineStatusTable renders the full per-line join.
func LineStatusTable(lines []model.LineStatus) *tabular.Table {
	t := &tabular.Table{
		Name: "line_status",
		Columns: []string{
			"account_id", "store_id", "platform", "order_id", "sku",
			"order_created_at", "sla_due_date", "quantity_ordered", "quantity_shipped",
			"supplier_name", "supplier_order_id", "carrier", "tracking_number",
			"ship_datetime_utc", "customer_country", "promised_ship_days",
			"days_since_order", "is_late", "line_status", "issue_type",
		},
	}
	for _, l := range lines {
		t.Rows = append(t.Rows, []string{
			l.AccountID, l.StoreID, l.Platform, l.OrderID, l.SKU,
			fmtTime(l.OrderCreatedAt), fmtTime(l.SLADueDate), fmtInt(l.QuantityOrdered), fmtInt(l.QuantityShipped),
			l.SupplierName, l.SupplierOrderID, l.Carrier, l.TrackingNumber,
			fmtTime(l.ShipDatetime), l.CustomerCountry, fmtInt(l.PromisedShipDays),
			fmtInt(l.DaysSinceOrder), fmtBool(l.IsLate), l.Status, l.IssueType,
		})
	}
	return t
}

// ExceptionsTable renders the triaged exception queue.
func ExceptionsTable(exceptions []model.Exception) *tabular.Table {
	t := &tabular.Table{
		Name: "exceptions",
		Columns: []string{
			"account_id", "store_id", "platform", "order_id", "sku", "issue_type",
			"customer_country", "supplier_name", "supplier_order_id", "carrier",
			"tracking_number", "quantity_ordered", "quantity_shipped", "line_status",
			"days_since_order", "promised_ship_days", "order_created_at", "sla_due_date",
			"urgency", "explanation", "next_action", "customer_risk",
			"llm_used", "llm_confidence",
		},
	}
	for _, e := range exceptions {
		t.Rows = append(t.Rows, []string{
			e.AccountID, e.StoreID, e.Platform, e.OrderID, e.SKU, e.IssueType,
			e.CustomerCountry, e.SupplierName, e.SupplierOrderID, e.Carrier,
			e.TrackingNumber, fmtInt(e.QuantityOrdered), fmtInt(e.QuantityShipped), e.LineStatus,
			fmtInt(e.DaysSinceOrder), fmtInt(e.PromisedShipDays), fmtTime(e.OrderCreatedAt), fmtTime(e.SLADueDate),
			e.Urgency, e.Explanation, e.NextAction, e.CustomerRisk,
			fmtBool(e.LLMUsed), fmtInt(e.LLMConfidence),
		})
	}
	return t
}

// FollowupsTable renders supplier follow-up drafts with their directory and
// tracker enrichment.
func FollowupsTable(followups []model.Followup) *tabular.Table {
	t := &tabular.Table{
		Name: "followups",
		Columns: []string{
			"supplier_name", "item_count", "order_ids", "urgency", "subject", "body",
			"worst_escalation", "supplier_email", "supplier_channel", "language",
			"timezone", "issue_id", "contact_status", "follow_up_count", "owner",
			"issue_status", "next_action_at", "last_contacted",
		},
	}
	for _, f := range followups {
		t.Rows = append(t.Rows, []string{
			f.SupplierName, fmtInt(f.ItemCount), f.OrderIDs, f.Urgency, f.Subject, f.Body,
			f.WorstEscalation, f.SupplierEmail, f.SupplierChannel, f.Language,
			f.Timezone, f.IssueID, f.ContactStatus, fmtInt(f.FollowUpCount), f.Owner,
			f.IssueStatus, f.NextActionAt, f.LastContacted,
		})
	}
	return t
}

// RollupTable renders the per-order rollup.
func RollupTable(rollup []model.OrderRollup) *tabular.Table {
	t := &tabular.Table{
		Name: "order_rollup",
		Columns: []string{
			"order_id", "internal_status", "customer_facing_status", "top_issue",
			"risk_score", "risk_band",
		},
	}
	for _, r := range rollup {
		t.Rows = append(t.Rows, []string{
			r.OrderID, r.InternalStatus, r.CustomerFacingStatus, r.TopIssue,
			fmtInt(r.RiskScore), r.RiskBand,
		})
	}
	return t
}
