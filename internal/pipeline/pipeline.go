// Package pipeline runs one end-to-end reconciliation pass: raw exports in,
// a persisted run directory of triaged artifacts out.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"opsdeck/internal/enrich"
	"opsdeck/internal/logging"
	"opsdeck/internal/model"
	"opsdeck/internal/normalize"
	"opsdeck/internal/reconcile"
	"opsdeck/internal/suppliers"
	"opsdeck/internal/tabular"
	"opsdeck/internal/tracker"
	"opsdeck/internal/triage"
	"opsdeck/internal/workspace"
)

// Inputs are the raw export files for one run. Tracking is optional.
type Inputs struct {
	OrdersPath    string
	ShipmentsPath string
	TrackingPath  string
}

// Params configure one run.
type Params struct {
	Tenant        model.Tenant
	WorkspaceName string

	Normalize normalize.Options
	Triage    triage.Config

	// Enricher may be nil; rules-only explanations are still produced.
	Enricher *enrich.Enricher

	SuppliersDir  string
	WorkspacesDir string

	// MaxActions caps the daily action list; <=0 uses the default of 10.
	MaxActions int

	// SkipSave runs the pipeline without persisting a run directory.
	SkipSave bool

	// Now is overridable in tests; nil means wall clock.
	Now func() time.Time
}

func (p Params) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Result is everything one run produced.
type Result struct {
	Lines       []model.LineStatus
	Exceptions  []model.Exception
	Followups   []model.Followup // full set, directory + tracker enriched
	Open        []model.Followup // Followups minus resolved issues
	Rollup      []model.OrderRollup
	KPIs        model.KPIs
	Escalations []model.EscalationBand
	Scorecard   []model.SupplierScore
	Actions     triage.ActionList

	RunDir   string   // empty when SkipSave
	Messages []string // non-fatal normalization findings
}

// Run executes the full pass. The only fatal input condition is a schema
// mismatch on orders or shipments (*normalize.SchemaError); everything else
// degrades and is reported in Result.Messages.
func Run(ctx context.Context, in Inputs, p Params) (*Result, error) {
	rawOrders, err := tabular.ReadFile(in.OrdersPath)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	rawShipments, err := tabular.ReadFile(in.ShipmentsPath)
	if err != nil {
		return nil, fmt.Errorf("shipments: %w", err)
	}
	var rawTracking *tabular.Table
	if in.TrackingPath != "" {
		rawTracking, err = tabular.ReadFile(in.TrackingPath)
		if err != nil {
			return nil, fmt.Errorf("tracking: %w", err)
		}
	}

	return RunTables(ctx, rawOrders, rawShipments, rawTracking, p)
}

// RunTables is Run for callers that already hold parsed tables (watch mode,
// tests, future upload surfaces).
func RunTables(ctx context.Context, rawOrders, rawShipments, rawTracking *tabular.Table, p Params) (*Result, error) {
	now := p.now()
	start := time.Now()

	orders, ordersRes, err := normalize.Orders(rawOrders, p.Tenant, p.Normalize)
	if err != nil {
		return nil, err
	}
	shipments, shipmentsRes, err := normalize.Shipments(rawShipments, p.Tenant, p.Normalize)
	if err != nil {
		return nil, err
	}
	var tracking []model.TrackingRecord
	var trackingRes normalize.Result
	if rawTracking != nil {
		tracking, trackingRes = normalize.Tracking(rawTracking, p.Tenant, p.Normalize)
	}

	res := &Result{}
	res.Messages = append(res.Messages, ordersRes.Messages...)
	res.Messages = append(res.Messages, shipmentsRes.Messages...)
	res.Messages = append(res.Messages, trackingRes.Messages...)

	out := reconcile.Run(orders, shipments, tracking, now)
	res.Lines = out.Lines
	res.Rollup = out.Rollup
	res.KPIs = out.KPIs

	exceptions := out.Exceptions
	followups := out.Followups

	// Explanations before urgency: the classifier reads the enriched text.
	p.Enricher.Enhance(ctx, exceptions)

	dir := suppliers.Load(p.SuppliersDir, p.Tenant.AccountID, p.Tenant.StoreID)
	suppliers.EnrichFollowups(followups, dir)
	exceptions = suppliers.AddMissingContactExceptions(exceptions, followups)

	escalations, followups := triage.BuildEscalations(out.Lines, followups, p.Triage, now)
	res.Escalations = escalations

	triage.AddUrgency(exceptions)
	res.Exceptions = exceptions

	wsRoot := workspace.Root(p.WorkspacesDir, p.Tenant.AccountID, p.Tenant.StoreID)
	store := tracker.NewStore(tracker.PathForWorkspaceRoot(wsRoot))
	applied := tracker.Apply(store, followups, nil)
	res.Followups = applied.Full
	res.Open = applied.Open

	res.Scorecard = triage.BuildScorecard(out.Lines, exceptions)

	maxActions := p.MaxActions
	if maxActions <= 0 {
		maxActions = 10
	}
	res.Actions = triage.BuildDailyActions(exceptions, res.Open, maxActions)

	if !p.SkipSave {
		art := workspace.Artifacts{
			Exceptions:  workspace.ExceptionsTable(res.Exceptions),
			Followups:   workspace.FollowupsTable(res.Followups),
			OrderRollup: workspace.RollupTable(res.Rollup),
			LineStatus:  workspace.LineStatusTable(res.Lines),
			Orders:      workspace.OrdersTable(orders),
			Shipments:   workspace.ShipmentsTable(shipments),
			Tracking:    workspace.TrackingTable(tracking),
			Suppliers:   dir.Table(),
		}
		runDir, err := workspace.SaveRun(wsRoot, p.WorkspaceName, p.Tenant, art, res.KPIs, now)
		if err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		res.RunDir = runDir
	}

	logging.Pipeline("run complete: %d lines, %d exceptions, %d followups (%d open) in %s",
		len(res.Lines), len(res.Exceptions), len(res.Followups), len(res.Open),
		time.Since(start).Round(time.Millisecond))
	return res, nil
}
