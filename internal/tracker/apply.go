package tracker

import (
	"opsdeck/internal/model"
)

// ExceptionIDRow maps an exception onto the id derivation inputs. The SKU
// doubles as the line identifier.
func ExceptionIDRow(e model.Exception) IDRow {
	return IDRow{
		LineID:       e.SKU,
		OrderID:      e.OrderID,
		SupplierName: e.SupplierName,
		IssueType:    e.IssueType,
	}
}

// FollowupIDRow maps a supplier followup onto the id derivation inputs.
func FollowupIDRow(f model.Followup) IDRow {
	return IDRow{
		OrderIDs:     f.OrderIDs,
		SupplierName: f.SupplierName,
	}
}

// AttachIssueIDs stamps a stable issue id onto every followup in place.
func AttachIssueIDs(followups []model.Followup, strat IDStrategy) {
	if strat == nil {
		strat = CompositeID{}
	}
	for i := range followups {
		if followups[i].IssueID == "" {
			followups[i].IssueID = strat.IssueID(FollowupIDRow(followups[i]))
		}
	}
}

// ApplyResult is the tracker's view of one run's followups.
type ApplyResult struct {
	Full []model.Followup // every followup, tracker fields filled
	Open []model.Followup // Full minus followups whose issue is resolved
}

// Apply joins the re-derived followups against the persisted tracker state:
// attaches issue ids, fills the tracker enrichment fields, and filters out
// followups whose issue is already resolved. The tracker file is read, not
// written — presentation must never mutate state.
func Apply(store *Store, followups []model.Followup, strat IDStrategy) ApplyResult {
	AttachIssueIDs(followups, strat)

	issues := store.All()
	full := make([]model.Followup, len(followups))
	copy(full, followups)

	var open []model.Followup
	for i := range full {
		f := &full[i]
		rec := issues[f.IssueID]
		if rec == nil {
			// Unknown to the tracker: open by definition.
			f.IssueStatus = StatusOpen
			f.ContactStatus = ContactNotContacted
			open = append(open, *f)
			continue
		}
		f.IssueStatus = rec.Status
		f.Owner = rec.Owner
		f.NextActionAt = rec.NextActionAt
		f.ContactStatus = rec.Contact.Status
		f.FollowUpCount = rec.Contact.FollowUpCount
		f.LastContacted = rec.Contact.LastContactedAt
		if !rec.Resolved {
			open = append(open, *f)
		}
	}
	return ApplyResult{Full: full, Open: open}
}
