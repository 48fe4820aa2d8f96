package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/model"
	"opsdeck/internal/tabular"
)

func mustTable(t *testing.T, csvText string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.Read("test", strings.NewReader(csvText))
	require.NoError(t, err)
	return tbl
}

var tenant = model.Tenant{AccountID: "acct-1", StoreID: "store-1", Platform: "woo"}

func TestOrdersGenericAliases(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"Order Number,Variant SKU,Qty,Order Date,Shipping Country,Total,Currency",
		"1001,abc-1,2,2026-01-05 10:00:00,us,$49.90,usd",
	}, "\n"))

	lines, res, err := Orders(tbl, tenant, Options{DefaultPromisedShipDays: 5})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "generic", res.Dialect)
	assert.True(t, res.OK(), "messages: %v", res.Messages)

	got := lines[0]
	assert.Equal(t, "1001", got.OrderID)
	assert.Equal(t, "ABC-1", got.SKU)
	assert.Equal(t, 2, got.QuantityOrdered)
	assert.Equal(t, "US", got.CustomerCountry)
	assert.Equal(t, 49.90, got.OrderRevenue)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, 5, got.PromisedShipDays)
	assert.Equal(t, "acct-1", got.AccountID)
	assert.Equal(t, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), got.OrderDatetime)
}

func TestOrdersShopifyDetection(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"Name,Lineitem sku,Lineitem quantity,Created at,Shipping Country,Shipping Province,Total",
		"#1001,SKU-9,1,2026-01-02,US,CA,19.99",
	}, "\n"))

	lines, res, err := Orders(tbl, tenant, Options{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "shopify", res.Dialect)
	assert.Equal(t, "#1001", lines[0].OrderID)
	assert.Equal(t, "SKU-9", lines[0].SKU)
	assert.Equal(t, "CA", lines[0].CustomerState)
}

func TestOrdersIdempotentOnCanonicalInput(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"order_id,sku,quantity_ordered,order_datetime_utc,customer_country,currency",
		"A-1,SKU-1,3,2026-02-01T00:00:00Z,DE,EUR",
	}, "\n"))

	first, res, err := Orders(tbl, tenant, Options{})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, first, 1)

	// Feeding canonical output back through must not change anything.
	again, res2, err := Orders(tbl, tenant, Options{})
	require.NoError(t, err)
	require.True(t, res2.OK())
	assert.Equal(t, first, again)
}

func TestOrdersClampsQuantityAndDropsEmptyKeys(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"order_id,sku,quantity_ordered",
		"A-1,SKU-1,0",
		"A-2,SKU-2,-4",
		",SKU-3,1",
		"A-4,,1",
	}, "\n"))

	lines, res, err := Orders(tbl, tenant, Options{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].QuantityOrdered)
	assert.Equal(t, 1, lines[1].QuantityOrdered)
	assert.Equal(t, 2, res.Dropped)
}

func TestOrdersMissingRequiredColumnsIsFatal(t *testing.T) {
	tbl := mustTable(t, "foo,bar\n1,2")

	lines, _, err := Orders(tbl, tenant, Options{})
	assert.Empty(t, lines)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "orders", schemaErr.Table)
	assert.ElementsMatch(t, []string{"order_id", "sku"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "foo")
}

func TestShipmentsDefaultsAndClamp(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"Order ID,SKU,Quantity Shipped,Ship Date,Tracking Number",
		"A-1,SKU-1,-2,2026-01-03,TRK123",
	}, "\n"))

	recs, res, err := Shipments(tbl, tenant, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, res.OK(), "messages: %v", res.Messages)
	assert.Equal(t, 0, recs[0].QuantityShipped)
	assert.Equal(t, "Unknown Supplier", recs[0].SupplierName)
	assert.Equal(t, "TRK123", recs[0].TrackingNumber)
}

func TestShipmentsSupplierOrderIDSatisfiesKey(t *testing.T) {
	tbl := mustTable(t, strings.Join([]string{
		"supplier_order_id,sku,quantity_shipped",
		"PO-77,SKU-1,1",
	}, "\n"))

	recs, res, err := Shipments(tbl, tenant, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, res.OK(), "messages: %v", res.Messages)
	assert.Equal(t, "PO-77", recs[0].SupplierOrderID)
}

func TestTrackingOptionalAndDelivered(t *testing.T) {
	recs, res := Tracking(nil, tenant, Options{})
	assert.Empty(t, recs)
	assert.True(t, res.OK())

	tbl := mustTable(t, strings.Join([]string{
		"Tracking Number,Status,Delivered At,Delivery Exception",
		"TRK1,Delivered,2026-01-10,no",
		"TRK2,In Transit,,yes",
		",In Transit,,",
	}, "\n"))

	recs, res = Tracking(tbl, tenant, Options{})
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Delivered())
	assert.False(t, recs[1].Delivered())
	assert.True(t, recs[1].DeliveryException)
	assert.Equal(t, 1, res.Dropped)
}

func TestParseUTCFormats(t *testing.T) {
	cases := map[string]time.Time{
		"2026-01-05T10:00:00Z":      time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		"2026-01-05 10:00:00":       time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		"01/05/2026":                time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		"Jan 5, 2026":               time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		"2026-01-05 10:00:00 +0200": time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		"not a date":                {},
		"":                          {},
	}
	for in, want := range cases {
		assert.Equal(t, want, parseUTC(in), "input %q", in)
	}
}
