// Package model holds the canonical domain types shared across the
// normalization, reconciliation, triage, and tracker layers.
package model

import "time"

// Line status values, in lifecycle order.
const (
	StatusUnshipped        = "UNSHIPPED"
	StatusPartiallyShipped = "PARTIALLY_SHIPPED"
	StatusShipped          = "SHIPPED"
	StatusDelivered        = "DELIVERED"
)

// Issue types detected by the reconciliation engine.
const (
	IssueLateUnshipped   = "LATE_UNSHIPPED"
	IssuePartialShipment = "PARTIAL_SHIPMENT"
	IssueMissingTracking = "MISSING_TRACKING"
)

// Urgency levels, most severe first.
const (
	UrgencyCritical = "Critical"
	UrgencyHigh     = "High"
	UrgencyMedium   = "Medium"
	UrgencyLow      = "Low"
)

// Escalation buckets, most severe first.
const (
	BucketEscalate = "Escalate"
	BucketFirm     = "Firm Follow-up"
	BucketAtRisk   = "At Risk (72h)"
	BucketReminder = "Reminder"
	BucketOnTrack  = "On Track"
	BucketUnknown  = "Unknown"
)

// EscalationBuckets lists every bucket in severity order (worst first).
var EscalationBuckets = []string{
	BucketEscalate,
	BucketFirm,
	BucketAtRisk,
	BucketReminder,
	BucketOnTrack,
	BucketUnknown,
}

// Tenant identifies whose data a pipeline run is processing.
type Tenant struct {
	AccountID string
	StoreID   string
	Platform  string
}

// OrderLine is one (order_id, sku) row from a normalized orders export.
type OrderLine struct {
	AccountID        string
	StoreID          string
	Platform         string
	OrderID          string
	OrderDatetime    time.Time // zero when the source date was unparseable
	SKU              string
	QuantityOrdered  int
	CustomerCountry  string
	CustomerState    string
	OrderRevenue     float64
	Currency         string
	ShippingMethod   string
	PromisedShipDays int
}

// ShipmentRecord is one shipped (order, sku) row from a normalized
// shipments export.
type ShipmentRecord struct {
	SupplierName    string
	SupplierOrderID string
	OrderID         string
	SKU             string
	QuantityShipped int
	ShipDatetime    time.Time
	Carrier         string
	TrackingNumber  string
	ShipFromCountry string
	ShipToCountry   string
}

// TrackingRecord is carrier status keyed by tracking number.
type TrackingRecord struct {
	TrackingNumber    string
	Status            string
	LastUpdate        time.Time
	DeliveryDate      time.Time // zero means not delivered
	DeliveryException bool
}

// Delivered reports whether the carrier recorded a delivery date.
func (t TrackingRecord) Delivered() bool { return !t.DeliveryDate.IsZero() }

// LineStatus is the per-line join of an order line with its aggregated
// shipments. It is recomputed fresh on every run and never persisted as
// mutable state.
type LineStatus struct {
	AccountID        string
	StoreID          string
	Platform         string
	OrderID          string
	SKU              string
	OrderCreatedAt   time.Time
	SLADueDate       time.Time
	QuantityOrdered  int
	QuantityShipped  int
	SupplierName     string
	SupplierOrderID  string
	Carrier          string
	TrackingNumber   string
	ShipDatetime     time.Time
	CustomerCountry  string
	PromisedShipDays int
	DaysSinceOrder   int
	IsLate           bool
	Status           string
	IssueType        string // empty when the line needs no action
}

// Exception is a line that needs operator action, projected from LineStatus
// with triage/enrichment fields appended downstream.
type Exception struct {
	AccountID        string
	StoreID          string
	Platform         string
	OrderID          string
	SKU              string
	IssueType        string
	CustomerCountry  string
	SupplierName     string
	SupplierOrderID  string
	Carrier          string
	TrackingNumber   string
	QuantityOrdered  int
	QuantityShipped  int
	LineStatus       string
	DaysSinceOrder   int
	PromisedShipDays int
	OrderCreatedAt   time.Time
	SLADueDate       time.Time

	// Appended by triage / enrichment.
	Urgency       string
	Explanation   string
	NextAction    string
	CustomerRisk  string
	LLMUsed       bool
	LLMConfidence int
}

// Followup aggregates open exceptions for one supplier into an outreach
// draft. Re-derived every run, then filtered against the tracker's resolved
// set before presentation.
type Followup struct {
	SupplierName    string
	ItemCount       int
	OrderIDs        string // comma-joined sorted unique order ids
	Urgency         string
	Subject         string
	Body            string
	WorstEscalation string

	// Supplier directory enrichment (blank when the directory has no row).
	SupplierEmail   string
	SupplierChannel string
	Language        string
	Timezone        string

	// Tracker enrichment.
	IssueID        string
	ContactStatus  string
	FollowUpCount  int
	Owner          string
	IssueStatus    string
	NextActionAt   string
	LastContacted  string
}

// OrderRollup is the one-row-per-order summary.
type OrderRollup struct {
	OrderID              string
	InternalStatus       string // "Issue" or "OK"
	CustomerFacingStatus string // lexicographic min of line statuses (see DESIGN.md)
	TopIssue             string
	RiskScore            int // count of late lines
	RiskBand             string
}

// KPIs are the scalar run metrics. Percentages are rounded to one decimal
// and zero when there are no lines.
type KPIs struct {
	TotalOrderLines       int     `json:"total_order_lines"`
	PctShippedOrDelivered float64 `json:"pct_shipped_or_delivered"`
	PctDelivered          float64 `json:"pct_delivered"`
	PctUnshipped          float64 `json:"pct_unshipped"`
	PctLateUnshipped      float64 `json:"pct_late_unshipped"`
}

// EscalationBand is the per-supplier SLA summary over open lines.
type EscalationBand struct {
	SupplierName    string
	WorstEscalation string
	OpenLinesTotal  int
	Counts          map[string]int // bucket name -> open line count
}

// SupplierScore is one row of the supplier scorecard.
type SupplierScore struct {
	SupplierName          string
	TotalLines            int
	ExceptionLines        int
	Critical              int
	High                  int
	ExceptionRate         float64
	MissingTrackingFlags  int
	LateFlags             int
	CarrierExceptionFlags int
}
