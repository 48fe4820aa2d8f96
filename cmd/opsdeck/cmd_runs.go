package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opsdeck/internal/workspace"
)

var zipOut string

// runsCmd browses persisted run directories.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse persisted pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs for the current tenant, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		wsRoot := workspace.Root(cfg.WorkspacesDir(), cfg.Tenant.AccountID, cfg.Tenant.StoreID)
		runs := workspace.ListRuns(wsRoot)
		if len(runs) == 0 {
			fmt.Println("No runs yet.")
			return nil
		}

		hist := workspace.RunHistory(runs)
		return hist.Write(os.Stdout)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-dir]",
	Short: "Show one run's metadata and row counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, meta, err := workspace.LoadRun(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created:   %s\n", meta.CreatedAt)
		fmt.Printf("Workspace: %s\n", meta.WorkspaceName)
		fmt.Printf("Tenant:    %s / %s\n", meta.AccountID, meta.StoreID)
		fmt.Printf("KPIs:      %.1f%% shipped, %.1f%% unshipped (%.1f%% late)\n",
			meta.KPIs.PctShippedOrDelivered, meta.KPIs.PctUnshipped, meta.KPIs.PctLateUnshipped)
		for name, n := range meta.RowCounts {
			fmt.Printf("  %s: %d\n", name, n)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-dir]",
	Short: "Delete a run directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := workspace.DeleteRun(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var runsZipCmd = &cobra.Command{
	Use:   "zip [run-dir]",
	Short: "Package a run directory as a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := workspace.MakeRunZip(args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(zipOut, blob, 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d bytes)\n", zipOut, len(blob))
		return nil
	},
}

func init() {
	runsZipCmd.Flags().StringVarP(&zipOut, "out", "o", "run.zip", "Output zip path")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	runsCmd.AddCommand(runsZipCmd)
}
