package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"opsdeck/internal/tracker"
	"opsdeck/internal/workspace"
)

var (
	issueNote    string
	issueChannel string
	pruneDays    int
)

// issuesCmd manages persistent issue state across runs.
var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Inspect and update the persistent issue tracker",
	Long: `The issue tracker carries operator state (resolution, ownership,
contact threads) across runs. Issue ids are derived from the exception and
follow-up rows, so re-running the pipeline re-attaches state automatically.`,
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked issues with status summaries",
	RunE:  issuesList,
}

var issuesResolveCmd = &cobra.Command{
	Use:   "resolve [issue-id]",
	Short: "Mark an issue resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerStore().SetResolved(args[0], true, nil); err != nil {
			return err
		}
		fmt.Printf("Resolved %s\n", args[0])
		return nil
	},
}

var issuesReopenCmd = &cobra.Command{
	Use:   "reopen [issue-id]",
	Short: "Reopen a resolved issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerStore().SetResolved(args[0], false, nil); err != nil {
			return err
		}
		fmt.Printf("Reopened %s\n", args[0])
		return nil
	},
}

var issuesNotesCmd = &cobra.Command{
	Use:   "notes [issue-id] [text]",
	Short: "Replace the notes on an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackerStore().SetNotes(args[0], args[1], nil)
	},
}

var issuesOwnerCmd = &cobra.Command{
	Use:   "owner [issue-id] [owner]",
	Short: "Assign an owner to an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackerStore().SetOwner(args[0], args[1], nil)
	},
}

var issuesStatusCmd = &cobra.Command{
	Use:   "status [issue-id] [Open|Waiting|Resolved]",
	Short: "Move an issue through its lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackerStore().SetIssueStatus(args[0], args[1], nil)
	},
}

var issuesContactCmd = &cobra.Command{
	Use:   "contact [issue-id]",
	Short: "Log one supplier outreach on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerStore().MarkContacted(args[0], issueChannel, issueNote, tracker.ContactContacted, nil); err != nil {
			return err
		}
		fmt.Printf("Contact logged on %s\n", args[0])
		return nil
	},
}

var issuesFollowupCmd = &cobra.Command{
	Use:   "followup [issue-id]",
	Short: "Log one more chase on an existing contact thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerStore().IncrementFollowup(args[0], issueChannel, issueNote, nil); err != nil {
			return err
		}
		fmt.Printf("Follow-up logged on %s\n", args[0])
		return nil
	},
}

var issuesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove resolved issues older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := trackerStore().PruneResolvedOlderThanDays(pruneDays)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d resolved issue(s) older than %d day(s)\n", removed, pruneDays)
		return nil
	},
}

var issuesClearResolvedCmd = &cobra.Command{
	Use:   "clear-resolved",
	Short: "Remove every resolved issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := trackerStore().ClearResolved()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d resolved issue(s)\n", removed)
		return nil
	},
}

func init() {
	issuesContactCmd.Flags().StringVar(&issueChannel, "channel", "email", "Contact channel")
	issuesContactCmd.Flags().StringVar(&issueNote, "note", "", "Note to record with the contact")
	issuesFollowupCmd.Flags().StringVar(&issueChannel, "channel", "email", "Contact channel")
	issuesFollowupCmd.Flags().StringVar(&issueNote, "note", "", "Note to record with the follow-up")
	issuesPruneCmd.Flags().IntVar(&pruneDays, "days", 30, "Age cutoff in days")

	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesResolveCmd)
	issuesCmd.AddCommand(issuesReopenCmd)
	issuesCmd.AddCommand(issuesNotesCmd)
	issuesCmd.AddCommand(issuesOwnerCmd)
	issuesCmd.AddCommand(issuesStatusCmd)
	issuesCmd.AddCommand(issuesContactCmd)
	issuesCmd.AddCommand(issuesFollowupCmd)
	issuesCmd.AddCommand(issuesPruneCmd)
	issuesCmd.AddCommand(issuesClearResolvedCmd)
}

func trackerStore() *tracker.Store {
	wsRoot := workspace.Root(cfg.WorkspacesDir(), cfg.Tenant.AccountID, cfg.Tenant.StoreID)
	return tracker.NewStore(tracker.PathForWorkspaceRoot(wsRoot))
}

func issuesList(cmd *cobra.Command, args []string) error {
	store := trackerStore()
	issues := store.All()

	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := issues[id]
		owner := rec.Owner
		if owner == "" {
			owner = "-"
		}
		fmt.Printf("%-50s %-20s owner=%-12s contact=%-14s followups=%d\n",
			id, rec.Status, owner, rec.Contact.Status, rec.Contact.FollowUpCount)
	}

	summary := store.IssueSummary()
	fmt.Println()
	for _, status := range tracker.IssueStatuses {
		fmt.Printf("%s: %d  ", status, summary[status])
	}
	fmt.Println()
	return nil
}
