package tracker

import "fmt"

// Upsert lazily creates the record and optionally sets resolved and/or
// notes. Passing nil leaves a field untouched. Resolving also resolves the
// contact side; un-resolving reopens a Resolved status. The returned error
// reports a failed persist, in which case the mutation is lost.
func (s *Store) Upsert(issueID string, resolved *bool, notes *string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)

	prevResolved := rec.Resolved
	prevNotes := rec.Notes

	if resolved != nil {
		rec.Resolved = *resolved
		if *resolved {
			if rec.ResolvedAt == "" {
				rec.ResolvedAt = now
			}
			rec.Contact.Status = ContactResolved
			rec.Status = StatusResolved
		} else {
			rec.ResolvedAt = ""
			if rec.Status == StatusResolved {
				rec.Status = StatusOpen
			}
		}
	}
	if notes != nil {
		rec.Notes = *notes
	}
	ensureDefaults(rec)

	if err := s.persist(data); err != nil {
		return err
	}

	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	if resolved != nil && prevResolved != *resolved {
		s.logEvent("issue.resolved_changed", fmt.Sprintf("Resolved set to %v", *resolved),
			issueID, rec, map[string]any{"prev": prevResolved, "new": *resolved})
	}
	if notes != nil && prevNotes != *notes {
		s.logEvent("issue.notes_updated", "Notes updated",
			issueID, rec, map[string]any{"prev": prevNotes, "new": *notes})
	}
	return nil
}

// SetResolved flips the resolved flag.
func (s *Store) SetResolved(issueID string, resolved bool, ctx *Context) error {
	return s.Upsert(issueID, &resolved, nil, ctx)
}

// SetNotes replaces the notes text.
func (s *Store) SetNotes(issueID, notes string, ctx *Context) error {
	return s.Upsert(issueID, nil, &notes, ctx)
}

// SetOwner assigns the owner.
func (s *Store) SetOwner(issueID, owner string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)
	ensureDefaults(rec)

	prevOwner := rec.Owner
	rec.Owner = owner

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	if prevOwner != rec.Owner {
		label := rec.Owner
		if label == "" {
			label = "(blank)"
		}
		s.logEvent("issue.owner_set", "Owner set to "+label,
			issueID, rec, map[string]any{"prev": prevOwner, "new": rec.Owner})
	}
	return nil
}

// SetIssueStatus moves the issue through Open -> Waiting -> Resolved.
// Setting Resolved also resolves the record and contact; setting anything
// else clears resolution and demotes a Resolved contact back to Not
// Contacted. An invalid status is rejected with an error and changes
// nothing.
func (s *Store) SetIssueStatus(issueID, status string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	if !validIssueStatus(status) {
		return fmt.Errorf("invalid issue status %q (valid: %v)", status, IssueStatuses)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)
	ensureDefaults(rec)

	prevStatus := rec.Status
	prevResolved := rec.Resolved

	rec.Status = status
	if status == StatusResolved {
		rec.Resolved = true
		if rec.ResolvedAt == "" {
			rec.ResolvedAt = now
		}
		rec.Contact.Status = ContactResolved
	} else {
		rec.Resolved = false
		rec.ResolvedAt = ""
		if rec.Contact.Status == ContactResolved {
			rec.Contact.Status = ContactNotContacted
		}
	}

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	if prevStatus != status {
		s.logEvent("issue.status_changed", "Status changed to "+status,
			issueID, rec, map[string]any{"prev": prevStatus, "new": status})
	}
	if prevResolved != rec.Resolved {
		s.logEvent("issue.resolved_changed", fmt.Sprintf("Resolved set to %v", rec.Resolved),
			issueID, rec, map[string]any{"prev": prevResolved, "new": rec.Resolved})
	}
	return nil
}

// SetNextActionAt sets the next-action timestamp (free-form ISO string).
func (s *Store) SetNextActionAt(issueID, nextActionAt string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)
	ensureDefaults(rec)

	prev := rec.NextActionAt
	rec.NextActionAt = nextActionAt

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	if prev != rec.NextActionAt {
		label := rec.NextActionAt
		if label == "" {
			label = "(blank)"
		}
		s.logEvent("issue.next_action_set", "Next action set to "+label,
			issueID, rec, map[string]any{"prev": prev, "new": rec.NextActionAt})
	}
	return nil
}

// IssueSummary counts records per issue status. Unknown statuses count as
// Open.
func (s *Store) IssueSummary() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(IssueStatuses))
	for _, st := range IssueStatuses {
		counts[st] = 0
	}
	for _, rec := range s.Load() {
		st := rec.Status
		if _, ok := counts[st]; !ok {
			st = StatusOpen
		}
		counts[st]++
	}
	return counts
}
