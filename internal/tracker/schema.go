// Package tracker is the persisted issue lifecycle store: a JSON file
// mapping issue_id to a record tracking ownership, contact status, and
// resolution, with every state transition mirrored to the append-only
// timeline. Reads are fail-open (a corrupt file loads as empty); writes are
// whole-file, last-writer-wins.
package tracker

// Issue statuses, in lifecycle order. Resolved is terminal until an explicit
// status-set reopens the record.
const (
	StatusOpen     = "Open"
	StatusWaiting  = "Waiting"
	StatusResolved = "Resolved"
)

// IssueStatuses lists every valid issue status.
var IssueStatuses = []string{StatusOpen, StatusWaiting, StatusResolved}

// Contact statuses.
const (
	ContactNotContacted = "Not Contacted"
	ContactContacted    = "Contacted"
	ContactWaiting      = "Waiting"
	ContactEscalated    = "Escalated"
	ContactResolved     = "Resolved"
)

// ContactStatuses lists every valid contact status.
var ContactStatuses = []string{
	ContactNotContacted,
	ContactContacted,
	ContactWaiting,
	ContactEscalated,
	ContactResolved,
}

// ContactEntry is one row of the contact history.
type ContactEntry struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Note      string `json:"note"`
	Status    string `json:"status"`
}

// Contact tracks supplier outreach on one issue, independently from the
// issue status (the two converge on Resolved).
type Contact struct {
	Status          string         `json:"status"`
	LastContactedAt string         `json:"last_contacted_at"`
	Channel         string         `json:"channel"`
	FollowUpCount   int            `json:"follow_up_count"`
	History         []ContactEntry `json:"history"`
}

// Issue is one persisted tracker record. Timestamps are ISO-8601 UTC with a
// trailing Z, truncated to seconds; empty string means unset.
type Issue struct {
	Resolved     bool    `json:"resolved"`
	Notes        string  `json:"notes"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	ResolvedAt   string  `json:"resolved_at"`
	Owner        string  `json:"owner"`
	Status       string  `json:"status"`
	NextActionAt string  `json:"next_action_at"`
	LastActionAt string  `json:"last_action_at"`
	Contact      Contact `json:"contact"`

	// Context fields, filled lazily from whatever referenced the issue.
	SupplierName  string `json:"supplier_name,omitempty"`
	SupplierEmail string `json:"supplier_email,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	OrderIDs      string `json:"order_ids,omitempty"`
}

// Context carries best-effort identifying fields merged into a record on any
// mutation. Only blanks are filled; existing values are never overwritten.
type Context struct {
	SupplierName  string
	SupplierEmail string
	OrderID       string
	OrderIDs      string
}

// ensureDefaults normalizes a record loaded from disk (or zero-valued) so
// downstream code never sees missing contact state. Mirrors the lightweight
// migration older tracker files go through.
func ensureDefaults(rec *Issue) {
	if rec.Contact.Status == "" {
		rec.Contact.Status = ContactNotContacted
	}
	if rec.Contact.History == nil {
		rec.Contact.History = []ContactEntry{}
	}
	if rec.Status == "" {
		rec.Status = StatusOpen
	}
	if rec.LastActionAt == "" {
		rec.LastActionAt = rec.UpdatedAt
	}
}

func (c *Context) apply(rec *Issue) {
	if c == nil {
		return
	}
	if rec.SupplierName == "" {
		rec.SupplierName = c.SupplierName
	}
	if rec.SupplierEmail == "" {
		rec.SupplierEmail = c.SupplierEmail
	}
	if rec.OrderID == "" {
		rec.OrderID = c.OrderID
	}
	if rec.OrderIDs == "" {
		rec.OrderIDs = c.OrderIDs
	}
}

func validIssueStatus(s string) bool {
	for _, v := range IssueStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func validContactStatus(s string) bool {
	for _, v := range ContactStatuses {
		if v == s {
			return true
		}
	}
	return false
}
