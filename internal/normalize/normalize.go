// Package normalize maps raw order/shipment/tracking exports with arbitrary
// column names onto the canonical tables the reconciliation engine consumes.
//
// The contract is deliberately forgiving: malformed input never produces an
// error, only a partially-populated table plus human-readable validation
// messages. The single hard floor is primary keys — rows with an empty
// order_id or sku are dropped, rows with populated keys never are.
package normalize

import (
	"fmt"
	"strings"

	"opsdeck/internal/logging"
	"opsdeck/internal/model"
	"opsdeck/internal/tabular"
)

// Options carries tenant defaults applied uniformly to every row.
type Options struct {
	DefaultCurrency         string
	DefaultPromisedShipDays int
	PlatformHint            string
}

// Result reports what normalization did to one table.
type Result struct {
	Dialect  string   // "shopify" or "generic"
	Messages []string // one human-readable line per problem found
	Dropped  int      // rows removed for empty primary keys
}

// OK reports whether normalization found no schema problems.
func (r Result) OK() bool { return len(r.Messages) == 0 }

// SchemaError is the one fatal condition: the join keys never resolved, so
// reconciliation would group garbage. Everything else degrades to Messages.
type SchemaError struct {
	Table   string
	Missing []string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s missing required columns %v. Columns present: %v",
		e.Table, e.Missing, e.Columns)
}

func (r *Result) addf(format string, args ...interface{}) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// requireFields appends one message per canonical field missing from the
// resolved column map. It never aborts; callers keep whatever did resolve.
func requireFields(res *Result, table string, cols map[string]int, fields ...string) {
	for _, f := range fields {
		if _, ok := cols[f]; !ok {
			res.addf("%s: missing required column '%s'", table, f)
		}
	}
}

// Orders normalizes a raw orders export into canonical order lines. The only
// fatal condition is a *SchemaError: order_id or sku never resolved through
// the alias table, so the reconciliation join would be meaningless.
func Orders(raw *tabular.Table, tenant model.Tenant, opts Options) ([]model.OrderLine, Result, error) {
	res := Result{Dialect: "generic"}
	if raw == nil || len(raw.Columns) == 0 {
		return nil, res, &SchemaError{Table: "orders", Missing: []string{"order_id", "sku"}}
	}

	if detectShopifyOrders(raw.Columns) || strings.EqualFold(opts.PlatformHint, "shopify") && raw.HasColumn("Name", "Lineitem sku") {
		res.Dialect = "shopify"
	}

	columns := raw.Columns
	if res.Dialect == "shopify" {
		columns = renameColumns(columns, shopifyOrderMap)
	}

	cols := orderAliases.resolve(columns)
	var missing []string
	for _, f := range []string{"order_id", "sku"} {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, res, &SchemaError{Table: "orders", Missing: missing, Columns: raw.Columns}
	}
	if _, ok := cols["quantity_ordered"]; !ok {
		res.addf("orders: missing column 'quantity_ordered', defaulting quantities to 1")
	}
	if _, ok := cols["order_datetime_utc"]; !ok {
		res.addf("orders: missing column 'order_datetime_utc', SLA ages will be unreliable")
	}

	platform := tenant.Platform
	if platform == "" {
		platform = opts.PlatformHint
	}

	out := make([]model.OrderLine, 0, raw.Len())
	for i := range raw.Rows {
		line := model.OrderLine{
			AccountID:        tenant.AccountID,
			StoreID:          tenant.StoreID,
			Platform:         platform,
			OrderID:          strings.TrimSpace(raw.Cell(i, idx(cols, "order_id"))),
			SKU:              upperCode(raw.Cell(i, idx(cols, "sku"))),
			OrderDatetime:    parseUTC(raw.Cell(i, idx(cols, "order_datetime_utc"))),
			CustomerCountry:  upperCode(raw.Cell(i, idx(cols, "customer_country"))),
			CustomerState:    strings.TrimSpace(raw.Cell(i, idx(cols, "customer_state"))),
			OrderRevenue:     parseFloat(raw.Cell(i, idx(cols, "order_revenue"))),
			Currency:         upperCode(raw.Cell(i, idx(cols, "currency"))),
			ShippingMethod:   strings.TrimSpace(raw.Cell(i, idx(cols, "shipping_method"))),
			QuantityOrdered:  parseInt(raw.Cell(i, idx(cols, "quantity_ordered")), 1),
			PromisedShipDays: parseInt(raw.Cell(i, idx(cols, "promised_ship_days")), opts.DefaultPromisedShipDays),
		}

		// Order quantities below one are data errors; clamp rather than drop.
		if line.QuantityOrdered < 1 {
			line.QuantityOrdered = 1
		}
		if line.Currency == "" {
			line.Currency = upperCode(opts.DefaultCurrency)
		}

		if line.OrderID == "" || line.SKU == "" {
			res.Dropped++
			continue
		}
		out = append(out, line)
	}

	if res.Dropped > 0 {
		res.addf("orders: dropped %d row(s) with empty order_id/sku", res.Dropped)
	}
	logging.Normalize("orders: %d rows in, %d out, dialect=%s, messages=%d",
		raw.Len(), len(out), res.Dialect, len(res.Messages))
	return out, res, nil
}

// Shipments normalizes a raw shipments export into canonical shipment
// records. Suppliers with no name become "Unknown Supplier" so supplier
// grouping downstream never silently merges blanks.
func Shipments(raw *tabular.Table, tenant model.Tenant, opts Options) ([]model.ShipmentRecord, Result, error) {
	res := Result{Dialect: "generic"}
	if raw == nil || len(raw.Columns) == 0 {
		return nil, res, &SchemaError{Table: "shipments", Missing: []string{"order_id", "sku"}}
	}

	cols := shipmentAliases.resolve(raw.Columns)
	var missing []string
	if _, ok := cols["sku"]; !ok {
		missing = append(missing, "sku")
	}
	_, hasOrder := cols["order_id"]
	_, hasSupplierOrder := cols["supplier_order_id"]
	if !hasOrder && !hasSupplierOrder {
		missing = append(missing, "order_id")
	}
	if len(missing) > 0 {
		return nil, res, &SchemaError{Table: "shipments", Missing: missing, Columns: raw.Columns}
	}

	out := make([]model.ShipmentRecord, 0, raw.Len())
	for i := range raw.Rows {
		rec := model.ShipmentRecord{
			SupplierName:    strings.TrimSpace(raw.Cell(i, idx(cols, "supplier_name"))),
			SupplierOrderID: strings.TrimSpace(raw.Cell(i, idx(cols, "supplier_order_id"))),
			OrderID:         strings.TrimSpace(raw.Cell(i, idx(cols, "order_id"))),
			SKU:             upperCode(raw.Cell(i, idx(cols, "sku"))),
			QuantityShipped: parseInt(raw.Cell(i, idx(cols, "quantity_shipped")), 0),
			ShipDatetime:    parseUTC(raw.Cell(i, idx(cols, "ship_datetime_utc"))),
			Carrier:         strings.TrimSpace(raw.Cell(i, idx(cols, "carrier"))),
			TrackingNumber:  strings.TrimSpace(raw.Cell(i, idx(cols, "tracking_number"))),
			ShipFromCountry: upperCode(raw.Cell(i, idx(cols, "ship_from_country"))),
			ShipToCountry:   upperCode(raw.Cell(i, idx(cols, "ship_to_country"))),
		}

		if rec.QuantityShipped < 0 {
			rec.QuantityShipped = 0
		}
		if rec.SupplierName == "" {
			rec.SupplierName = "Unknown Supplier"
		}

		key := rec.OrderID
		if key == "" {
			key = rec.SupplierOrderID
		}
		if key == "" || rec.SKU == "" {
			res.Dropped++
			continue
		}
		out = append(out, rec)
	}

	if res.Dropped > 0 {
		res.addf("shipments: dropped %d row(s) with empty order/sku keys", res.Dropped)
	}
	logging.Normalize("shipments: %d rows in, %d out, messages=%d", raw.Len(), len(out), len(res.Messages))
	return out, res, nil
}

// Tracking normalizes a raw carrier tracking export. Tracking is optional
// input; a nil table yields an empty result with no messages.
func Tracking(raw *tabular.Table, tenant model.Tenant, opts Options) ([]model.TrackingRecord, Result) {
	res := Result{Dialect: "generic"}
	if raw.Empty() {
		return nil, res
	}

	cols := trackingAliases.resolve(raw.Columns)
	requireFields(&res, "tracking", cols, "tracking_number")

	out := make([]model.TrackingRecord, 0, raw.Len())
	for i := range raw.Rows {
		rec := model.TrackingRecord{
			TrackingNumber:    strings.TrimSpace(raw.Cell(i, idx(cols, "tracking_number"))),
			Status:            strings.TrimSpace(raw.Cell(i, idx(cols, "status"))),
			LastUpdate:        parseUTC(raw.Cell(i, idx(cols, "last_update"))),
			DeliveryDate:      parseUTC(raw.Cell(i, idx(cols, "delivery_date_utc"))),
			DeliveryException: parseBool(raw.Cell(i, idx(cols, "delivery_exception"))),
		}
		if rec.TrackingNumber == "" {
			res.Dropped++
			continue
		}
		out = append(out, rec)
	}

	if res.Dropped > 0 {
		res.addf("tracking: dropped %d row(s) with empty tracking_number", res.Dropped)
	}
	return out, res
}

func idx(cols map[string]int, field string) int {
	if i, ok := cols[field]; ok {
		return i
	}
	return -1
}

func renameColumns(columns []string, m map[string]string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if canon, ok := m[key]; ok {
			out[i] = canon
		} else {
			out[i] = c
		}
	}
	return out
}
