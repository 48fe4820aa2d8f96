package tracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "issue_tracker.json"))
	s.SetClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) })
	return s
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestUpsertCreatesLazily(t *testing.T) {
	s := newTestStore(t)

	s.Upsert("id-1", nil, strPtr("checking with supplier"), nil)

	rec := s.Get("id-1")
	assert.Equal(t, "2026-03-10T12:00:00Z", rec.CreatedAt)
	assert.Equal(t, "checking with supplier", rec.Notes)
	assert.Equal(t, StatusOpen, rec.Status)
	assert.Equal(t, ContactNotContacted, rec.Contact.Status)
	assert.False(t, rec.Resolved)

	events := s.Timeline().Read()
	require.NotEmpty(t, events)
	assert.Equal(t, "issue.created", events[0].EventType)
}

func TestUpsertResolveCouplesContact(t *testing.T) {
	s := newTestStore(t)

	s.Upsert("id-1", boolPtr(true), nil, nil)

	rec := s.Get("id-1")
	assert.True(t, rec.Resolved)
	assert.Equal(t, "2026-03-10T12:00:00Z", rec.ResolvedAt)
	assert.Equal(t, StatusResolved, rec.Status)
	assert.Equal(t, ContactResolved, rec.Contact.Status)

	// Un-resolving clears resolution and reopens.
	s.Upsert("id-1", boolPtr(false), nil, nil)
	rec = s.Get("id-1")
	assert.False(t, rec.Resolved)
	assert.Empty(t, rec.ResolvedAt)
	assert.Equal(t, StatusOpen, rec.Status)

	var types []string
	for _, ev := range s.Timeline().Read() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{
		"issue.created",
		"issue.resolved_changed",
		"issue.resolved_changed",
	}, types)
}

func TestSetIssueStatusReopenDemotesContact(t *testing.T) {
	s := newTestStore(t)

	s.SetIssueStatus("id-1", StatusResolved, nil)
	rec := s.Get("id-1")
	assert.True(t, rec.Resolved)
	assert.Equal(t, ContactResolved, rec.Contact.Status)

	s.SetIssueStatus("id-1", StatusOpen, nil)
	rec = s.Get("id-1")
	assert.False(t, rec.Resolved)
	assert.Empty(t, rec.ResolvedAt)
	assert.Equal(t, ContactNotContacted, rec.Contact.Status, "Resolved contact demotes on reopen")
}

func TestSetIssueStatusRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.SetIssueStatus("id-1", "Bogus", nil)
	assert.Error(t, err)
	assert.Empty(t, s.All())
}

func TestSetContactStatusRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.SetContactStatus("id-1", "Bogus", nil)
	assert.Error(t, err)
	assert.Empty(t, s.All())
}

func TestMarkContacted(t *testing.T) {
	s := newTestStore(t)

	s.MarkContacted("id-1", "email", "sent chaser", ContactContacted, nil)

	rec := s.Get("id-1")
	assert.Equal(t, ContactContacted, rec.Contact.Status)
	assert.Equal(t, "email", rec.Contact.Channel)
	assert.Equal(t, 1, rec.Contact.FollowUpCount)
	assert.Equal(t, "2026-03-10T12:00:00Z", rec.Contact.LastContactedAt)
	require.Len(t, rec.Contact.History, 1)
	assert.Equal(t, "sent chaser", rec.Contact.History[0].Note)
	assert.Equal(t, StatusOpen, rec.Status, "plain contact does not park the issue")

	// Escalated contact parks the issue in Waiting.
	s.MarkContacted("id-1", "phone", "", ContactEscalated, nil)
	rec = s.Get("id-1")
	assert.Equal(t, StatusWaiting, rec.Status)
	assert.Equal(t, 2, rec.Contact.FollowUpCount)
}

func TestMarkContactedInvalidStatusDefaults(t *testing.T) {
	s := newTestStore(t)
	s.MarkContacted("id-1", "email", "", "Bogus", nil)
	assert.Equal(t, ContactContacted, s.Get("id-1").Contact.Status)
}

func TestIncrementFollowupForcesWaiting(t *testing.T) {
	s := newTestStore(t)

	s.IncrementFollowup("id-1", "email", "second chase", nil)

	rec := s.Get("id-1")
	assert.Equal(t, 1, rec.Contact.FollowUpCount)
	assert.Equal(t, ContactWaiting, rec.Contact.Status)
	assert.Equal(t, StatusWaiting, rec.Status)

	// Escalated contact status survives further follow-ups.
	s.SetContactStatus("id-1", ContactEscalated, nil)
	s.IncrementFollowup("id-1", "email", "", nil)
	rec = s.Get("id-1")
	assert.Equal(t, ContactEscalated, rec.Contact.Status)
	assert.Equal(t, 2, rec.Contact.FollowUpCount)
}

func TestSetContactStatusResolvedConverges(t *testing.T) {
	s := newTestStore(t)

	s.SetContactStatus("id-1", ContactResolved, nil)

	rec := s.Get("id-1")
	assert.True(t, rec.Resolved)
	assert.Equal(t, StatusResolved, rec.Status)
	assert.NotEmpty(t, rec.ResolvedAt)
}

func TestContextFillsBlanksOnly(t *testing.T) {
	s := newTestStore(t)

	s.Upsert("id-1", nil, nil, &Context{SupplierName: "Acme", OrderID: "O1"})
	s.Upsert("id-1", nil, nil, &Context{SupplierName: "Other", SupplierEmail: "a@acme.test"})

	rec := s.Get("id-1")
	assert.Equal(t, "Acme", rec.SupplierName, "existing value never overwritten")
	assert.Equal(t, "a@acme.test", rec.SupplierEmail, "blank filled")
	assert.Equal(t, "O1", rec.OrderID)
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issue_tracker.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	s := NewStore(path)
	assert.Empty(t, s.All())

	// And mutations still work, replacing the broken file.
	s.Upsert("id-1", nil, nil, nil)
	assert.Len(t, s.All(), 1)
}

func TestSummaries(t *testing.T) {
	s := newTestStore(t)
	s.Upsert("a", nil, nil, nil)
	s.IncrementFollowup("b", "email", "", nil)
	s.SetResolved("c", true, nil)

	issues := s.IssueSummary()
	assert.Equal(t, 1, issues[StatusOpen])
	assert.Equal(t, 1, issues[StatusWaiting])
	assert.Equal(t, 1, issues[StatusResolved])

	contacts := s.ContactSummary()
	assert.Equal(t, 1, contacts[ContactNotContacted])
	assert.Equal(t, 1, contacts[ContactWaiting])
	assert.Equal(t, 1, contacts[ContactResolved])
}

func TestPruneResolvedOlderThanDays(t *testing.T) {
	s := newTestStore(t)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return old })
	s.SetResolved("old-resolved", true, nil)

	recent := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return recent })
	s.SetResolved("fresh-resolved", true, nil)
	s.Upsert("still-open", nil, nil, nil)

	s.SetClock(func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) })
	removed, err := s.PruneResolvedOlderThanDays(30)

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	data := s.All()
	assert.NotContains(t, data, "old-resolved")
	assert.Contains(t, data, "fresh-resolved")
	assert.Contains(t, data, "still-open")
}

func TestPruneNonPositiveDaysIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.SetResolved("a", true, nil)
	removed, err := s.PruneResolvedOlderThanDays(0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Len(t, s.All(), 1)
}

func TestClearResolved(t *testing.T) {
	s := newTestStore(t)
	s.SetResolved("a", true, nil)
	s.Upsert("b", nil, nil, nil)

	removed, err := s.ClearResolved()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	data := s.All()
	assert.NotContains(t, data, "a")
	assert.Contains(t, data, "b")
}

func TestOperationsIgnoreEmptyID(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Upsert("", boolPtr(true), nil, nil))
	assert.NoError(t, s.SetOwner("", "sam", nil))
	assert.NoError(t, s.MarkContacted("", "email", "", ContactContacted, nil))
	assert.Empty(t, s.All())
}

func TestMutationsSurfaceSaveFailure(t *testing.T) {
	// The tracker path is a directory, so every write fails.
	path := filepath.Join(t.TempDir(), "issue_tracker.json")
	require.NoError(t, os.MkdirAll(path, 0755))
	s := NewStore(path)

	require.Error(t, s.SetResolved("id-1", true, nil))
	require.Error(t, s.SetOwner("id-1", "sam", nil))
	require.Error(t, s.MarkContacted("id-1", "email", "", ContactContacted, nil))

	rec := s.Get("id-1")
	assert.False(t, rec.Resolved, "a failed save must not read back as applied")
	assert.Empty(t, rec.Owner)
	assert.Empty(t, s.Timeline().Read(), "no events for mutations that never persisted")
}
