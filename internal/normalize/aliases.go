package normalize

import "strings"

// aliasTable maps a canonical field to the raw header names that may carry
// it, in priority order. The first alias present in the input wins; later
// matches are ignored. Canonical names lead each list so already-normalized
// input maps onto itself.
type aliasTable map[string][]string

var orderAliases = aliasTable{
	"order_id":           {"order_id", "Order ID", "OrderID", "order", "Order", "Order Number", "order_number", "name", "Name"},
	"sku":                {"sku", "SKU", "Variant SKU", "variant_sku", "line_item_sku", "Lineitem sku", "Line Item SKU"},
	"quantity_ordered":   {"quantity_ordered", "Quantity Ordered", "qty_ordered", "Lineitem quantity", "qty", "Qty", "Quantity"},
	"order_datetime_utc": {"order_datetime_utc", "order_created_at", "Order Date", "order_date", "Created At", "created_at", "Order Created At"},
	"customer_country":   {"customer_country", "Shipping Country", "shipping_country", "To Country", "Ship To Country", "country", "Country"},
	"customer_state":     {"customer_state", "Shipping Province", "shipping_province", "state", "State", "province", "Province"},
	"order_revenue":      {"order_revenue", "Total", "total", "order_total", "Order Total", "revenue"},
	"currency":           {"currency", "Currency"},
	"shipping_method":    {"shipping_method", "Shipping Method", "shipping", "Shipping"},
	"promised_ship_days": {"promised_ship_days", "Promised Ship Days", "sla_days", "SLA Days"},
}

var shipmentAliases = aliasTable{
	"order_id":          {"order_id", "Order ID", "OrderID", "order", "Order", "Order Number", "order_number"},
	"sku":               {"sku", "SKU", "Variant SKU", "variant_sku"},
	"quantity_shipped":  {"quantity_shipped", "Quantity Shipped", "qty_shipped", "Shipped Quantity", "Quantity", "qty"},
	"supplier_name":     {"supplier_name", "Supplier", "Supplier Name"},
	"supplier_order_id": {"supplier_order_id", "Supplier Order ID", "SupplierOrderID"},
	"carrier":           {"carrier", "Carrier"},
	"tracking_number":   {"tracking_number", "Tracking", "Tracking Number", "tracking", "tracking_no", "TrackingNo"},
	"ship_datetime_utc": {"ship_datetime_utc", "Ship Date", "ship_date", "Ship Datetime", "shipped_at", "Shipped At"},
	"ship_from_country": {"ship_from_country", "From Country", "Ship From Country", "origin_country"},
	"ship_to_country":   {"ship_to_country", "To Country", "Ship To Country"},
}

var trackingAliases = aliasTable{
	"tracking_number":    {"tracking_number", "Tracking", "Tracking Number", "tracking", "tracking_no", "TrackingNo"},
	"status":             {"status", "Status", "tracking_status", "Tracking Status", "Checkpoint Status"},
	"last_update":        {"last_update", "Last Update", "last_update_utc", "Last Checkpoint", "updated_at", "Updated At"},
	"delivery_date_utc":  {"delivery_date_utc", "delivery_date", "Delivery Date", "Delivered At", "delivered_at"},
	"delivery_exception": {"delivery_exception", "Delivery Exception", "exception", "Exception", "has_exception"},
}

// shopifyOrderSignals are headers that only a Shopify order export carries.
// Three or more hits means we treat the table as Shopify regardless of hint.
var shopifyOrderSignals = []string{
	"name",
	"lineitem sku",
	"lineitem quantity",
	"created at",
	"shipping country",
	"shipping province",
	"financial status",
	"fulfillment status",
}

// shopifyOrderMap renames the Shopify order export columns outright; the
// generic alias table handles everything the map does not cover.
var shopifyOrderMap = map[string]string{
	"name":              "order_id",
	"lineitem sku":      "sku",
	"lineitem quantity": "quantity_ordered",
	"created at":        "order_datetime_utc",
	"shipping country":  "customer_country",
	"shipping province": "customer_state",
	"total":             "order_revenue",
	"currency":          "currency",
	"shipping method":   "shipping_method",
}

// detectShopifyOrders counts signal columns after trim/lower-casing.
func detectShopifyOrders(columns []string) bool {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.ToLower(strings.TrimSpace(c))] = true
	}
	hits := 0
	for _, sig := range shopifyOrderSignals {
		if present[sig] {
			hits++
		}
	}
	return hits >= 3
}

// resolve maps canonical field -> column index for the given header,
// first-matching-alias-wins. Fields with no matching column are absent
// from the result.
func (a aliasTable) resolve(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, taken := index[key]; !taken {
			index[key] = i
		}
	}

	out := make(map[string]int, len(a))
	for canon, candidates := range a {
		for _, cand := range candidates {
			if i, ok := index[strings.ToLower(strings.TrimSpace(cand))]; ok {
				out[canon] = i
				break
			}
		}
	}
	return out
}
