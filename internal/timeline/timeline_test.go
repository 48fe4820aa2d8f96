package timeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.jsonl")
	s := NewStore(path)
	s.Now = func() string { return "2026-03-10T12:00:00Z" }

	s.Append(Event{Scope: ScopeIssue, EventType: "issue.created", Summary: "Issue created", IssueID: "id-1"})
	s.Append(Event{Scope: ScopeIssue, EventType: "issue.status_changed", Summary: "Status changed to Waiting", IssueID: "id-1"})
	s.Append(Event{Scope: ScopeIssue, EventType: "issue.created", Summary: "Issue created", IssueID: "id-2"})

	events := s.Read()
	require.Len(t, events, 3)
	assert.Equal(t, "issue.created", events[0].EventType)
	assert.Equal(t, "2026-03-10T12:00:00Z", events[0].TS)
	assert.Equal(t, "user", events[0].Actor)
	assert.NotEmpty(t, events[0].EventID)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
	assert.NotNil(t, events[0].Data)

	forIssue := s.ForIssue("id-1")
	require.Len(t, forIssue, 2)
	assert.Equal(t, "issue.status_changed", forIssue[1].EventType)
}

func TestAppendIsAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.jsonl")
	s := NewStore(path)

	s.Append(Event{Scope: ScopeIssue, EventType: "a", IssueID: "x"})
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	s.Append(Event{Scope: ScopeIssue, EventType: "b", IssueID: "x"})
	both, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(both), string(first)), "existing lines are never rewritten")
	assert.Equal(t, 2, strings.Count(string(both), "\n"))
}

func TestReadSkipsGarbageLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.jsonl")
	s := NewStore(path)
	s.Append(Event{Scope: ScopeIssue, EventType: "a", IssueID: "x"})

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	f.WriteString("not json\n")
	f.Close()

	s.Append(Event{Scope: ScopeIssue, EventType: "b", IssueID: "x"})

	events := s.Read()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].EventType)
	assert.Equal(t, "b", events[1].EventType)
}

func TestReadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Empty(t, s.Read())
}
