package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opsdeck/internal/timeline"
	"opsdeck/internal/tracker"
	"opsdeck/internal/workspace"
)

var (
	timelineIssue string
	timelineLimit int
)

// timelineCmd reads the append-only event log beside the tracker.
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the issue event timeline",
	Long: `Every tracker mutation appends an event to a JSONL timeline beside
the tracker file. This command lists events, optionally filtered to one
issue, newest last.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wsRoot := workspace.Root(cfg.WorkspacesDir(), cfg.Tenant.AccountID, cfg.Tenant.StoreID)
		store := timeline.NewStore(timeline.PathForTrackerPath(tracker.PathForWorkspaceRoot(wsRoot)))

		var events []timeline.Event
		if timelineIssue != "" {
			events = store.ForIssue(timelineIssue)
		} else {
			events = store.Read()
		}
		if timelineLimit > 0 && len(events) > timelineLimit {
			events = events[len(events)-timelineLimit:]
		}

		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}
		for _, ev := range events {
			issue := ev.IssueID
			if issue == "" {
				issue = "-"
			}
			fmt.Printf("%s  %-26s %-50s %s\n", ev.TS, ev.EventType, issue, ev.Summary)
		}
		return nil
	},
}

func init() {
	timelineCmd.Flags().StringVar(&timelineIssue, "issue", "", "Only events for this issue id")
	timelineCmd.Flags().IntVar(&timelineLimit, "limit", 0, "Show only the most recent N events")
}
