package tracker

import "fmt"

// MarkContacted records one outreach: sets contact status (defaulting to
// Contacted on an invalid status), stamps channel and time, bumps the
// follow-up count, and appends to the contact history. A Waiting/Escalated
// contact also parks the issue in Waiting unless already Resolved.
func (s *Store) MarkContacted(issueID, channel, note, newStatus string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	if !validContactStatus(newStatus) {
		newStatus = ContactContacted
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)
	ensureDefaults(rec)

	prevStatus := rec.Contact.Status

	rec.Contact.Status = newStatus
	rec.Contact.LastContactedAt = now
	rec.Contact.Channel = channel
	rec.Contact.FollowUpCount++
	rec.Contact.History = append(rec.Contact.History, ContactEntry{
		Timestamp: now,
		Channel:   channel,
		Note:      note,
		Status:    newStatus,
	})

	if rec.Status != StatusResolved && (newStatus == ContactWaiting || newStatus == ContactEscalated) {
		rec.Status = StatusWaiting
	}

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	label := channel
	if label == "" {
		label = "channel"
	}
	s.logEvent("contact.mark_contacted", "Contact logged ("+label+")", issueID, rec, map[string]any{
		"channel":         channel,
		"note":            note,
		"prev_status":     prevStatus,
		"new_status":      newStatus,
		"follow_up_count": rec.Contact.FollowUpCount,
	})
	return nil
}

// IncrementFollowup logs one more chase on an existing thread: bumps the
// count, stamps channel/time, and forces contact into Waiting unless it is
// already Resolved or Escalated. The issue itself moves to Waiting unless
// Resolved.
func (s *Store) IncrementFollowup(issueID, channel, note string, ctx *Context) error {
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

	prevCount := rec.Contact.FollowUpCount
	prevStatus := rec.Contact.Status

	rec.Contact.FollowUpCount++
	rec.Contact.LastContactedAt = now
	rec.Contact.Channel = channel
	if rec.Contact.Status != ContactResolved && rec.Contact.Status != ContactEscalated {
		rec.Contact.Status = ContactWaiting
	}
	rec.Contact.History = append(rec.Contact.History, ContactEntry{
		Timestamp: now,
		Channel:   channel,
		Note:      note,
		Status:    rec.Contact.Status,
	})

	if rec.Status != StatusResolved {
		rec.Status = StatusWaiting
	}

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	s.logEvent("contact.followup", "Follow-up logged", issueID, rec, map[string]any{
		"channel":               channel,
		"note":                  note,
		"prev_status":           prevStatus,
		"new_status":            rec.Contact.Status,
		"prev_follow_up_count":  prevCount,
		"new_follow_up_count":   rec.Contact.FollowUpCount,
	})
	return nil
}

// SetContactStatus sets the contact status directly. Resolved converges the
// whole record to Resolved; Waiting/Escalated park the issue in Waiting.
// An invalid status is rejected with an error and changes nothing.
func (s *Store) SetContactStatus(issueID, status string, ctx *Context) error {
	if issueID == "" {
		return nil
	}
	if !validContactStatus(status) {
		return fmt.Errorf("invalid contact status %q (valid: %v)", status, ContactStatuses)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowISO()
	data := s.Load()
	rec, isNew := s.locate(data, issueID, now)
	ctx.apply(rec)
	ensureDefaults(rec)

	prevStatus := rec.Contact.Status
	rec.Contact.Status = status

	switch {
	case status == ContactResolved:
		rec.Resolved = true
		rec.Status = StatusResolved
		if rec.ResolvedAt == "" {
			rec.ResolvedAt = now
		}
	case (status == ContactWaiting || status == ContactEscalated) && rec.Status != StatusResolved:
		rec.Status = StatusWaiting
	}

	if err := s.persist(data); err != nil {
		return err
	}
	if isNew {
		s.logEvent("issue.created", "Issue created", issueID, rec, nil)
	}
	if prevStatus != status {
		s.logEvent("contact.status_changed", "Contact status changed to "+status,
			issueID, rec, map[string]any{"prev": prevStatus, "new": status})
	}
	return nil
}

// ContactSummary counts records per contact status. Unknown statuses count
// as Not Contacted.
func (s *Store) ContactSummary() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(ContactStatuses))
	for _, st := range ContactStatuses {
		counts[st] = 0
	}
	for _, rec := range s.Load() {
		st := rec.Contact.Status
		if _, ok := counts[st]; !ok {
			st = ContactNotContacted
		}
		counts[st]++
	}
	return counts
}
