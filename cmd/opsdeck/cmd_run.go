package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opsdeck/internal/enrich"
	"opsdeck/internal/normalize"
	"opsdeck/internal/pipeline"
)

var (
	ordersPath    string
	shipmentsPath string
	trackingPath  string
	workspaceName string
	noSave        bool
	noLLM         bool
	maxActions    int
)

// runCmd executes one reconciliation pass over a set of exports.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile order/shipment/tracking exports into a triaged run",
	Long: `Runs the full pipeline over the given CSV exports:

  1. Normalize: map heterogeneous headers onto the canonical schema
  2. Reconcile: join lines, aggregate shipments, detect issues
  3. Triage: urgency classification and SLA escalation buckets
  4. Enrich: rule-based (and optionally LLM) explanations
  5. Persist: a run directory of CSV artifacts plus meta.json

Tracking is optional; without it shipped lines never show as delivered.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&ordersPath, "orders", "", "Orders export CSV (required)")
	runCmd.Flags().StringVar(&shipmentsPath, "shipments", "", "Shipments export CSV (required)")
	runCmd.Flags().StringVar(&trackingPath, "tracking", "", "Tracking export CSV (optional)")
	runCmd.Flags().StringVar(&workspaceName, "workspace-name", "", "Workspace to file the run under (default from config)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "Run without persisting a run directory")
	runCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip LLM enrichment even when configured")
	runCmd.Flags().IntVar(&maxActions, "max-actions", 10, "Cap for the daily action list")
	runCmd.MarkFlagRequired("orders")
	runCmd.MarkFlagRequired("shipments")
}

func buildParams(ctx context.Context) (pipeline.Params, error) {
	name := workspaceName
	if name == "" {
		name = cfg.Paths.WorkspaceName
	}
	p := pipeline.Params{
		Tenant:        cfg.TenantModel(),
		WorkspaceName: name,
		Normalize:     cfg.NormalizeOptions(),
		Triage:        cfg.TriageConfig(),
		SuppliersDir:  cfg.SuppliersDir(),
		WorkspacesDir: cfg.WorkspacesDir(),
		MaxActions:    maxActions,
		SkipSave:      noSave,
	}
	if cfg.Enrichment.Enabled && !noLLM {
		client, err := enrich.NewGeminiClient(ctx, cfg.Enrichment.APIKey, cfg.Enrichment.Model)
		if err != nil {
			return p, fmt.Errorf("enrichment: %w", err)
		}
		p.Enricher = &enrich.Enricher{
			Client:  client,
			MaxRows: cfg.Enrichment.MaxRows,
			Timeout: cfg.GetEnrichTimeout(),
		}
	}
	return p, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	params, err := buildParams(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := pipeline.Run(ctx, pipeline.Inputs{
		OrdersPath:    ordersPath,
		ShipmentsPath: shipmentsPath,
		TrackingPath:  trackingPath,
	}, params)
	if err != nil {
		var schemaErr *normalize.SchemaError
		if errors.As(err, &schemaErr) {
			return fmt.Errorf("schema mismatch: %s", schemaErr.Error())
		}
		return err
	}

	logger.Info("Run complete",
		zap.Int("lines", len(res.Lines)),
		zap.Int("exceptions", len(res.Exceptions)),
		zap.Int("open_followups", len(res.Open)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	printRunSummary(res)
	return nil
}

func printRunSummary(res *pipeline.Result) {
	fmt.Printf("Order lines:        %d\n", res.KPIs.TotalOrderLines)
	fmt.Printf("Shipped/Delivered:  %.1f%%\n", res.KPIs.PctShippedOrDelivered)
	fmt.Printf("Unshipped:          %.1f%% (%.1f%% late)\n", res.KPIs.PctUnshipped, res.KPIs.PctLateUnshipped)
	fmt.Printf("Exceptions:         %d\n", len(res.Exceptions))
	fmt.Printf("Open follow-ups:    %d of %d\n", len(res.Open), len(res.Followups))

	for _, msg := range res.Messages {
		fmt.Printf("note: %s\n", msg)
	}

	if len(res.Actions.SupplierActions) > 0 {
		fmt.Println("\nSupplier actions:")
		for _, f := range res.Actions.SupplierActions {
			fmt.Printf("  - %s: %d item(s) outstanding (orders %s)\n", f.SupplierName, f.ItemCount, f.OrderIDs)
		}
	}
	if len(res.Actions.CustomerActions) > 0 {
		fmt.Println("\nCustomer actions:")
		for _, e := range res.Actions.CustomerActions {
			fmt.Printf("  - [%s] order %s sku %s: %s\n", e.Urgency, e.OrderID, e.SKU, e.NextAction)
		}
	}
	if res.RunDir != "" {
		fmt.Printf("\nRun saved to %s\n", res.RunDir)
	}
}
