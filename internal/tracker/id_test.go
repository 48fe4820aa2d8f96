package tracker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/model"
)

func TestCompositeIDJoinsAvailableParts(t *testing.T) {
	id := CompositeID{}.IssueID(IDRow{
		LineID:       "SKU-1",
		OrderID:      "O1",
		SupplierName: "Acme",
		IssueType:    "LATE_UNSHIPPED",
	})
	assert.Equal(t, "SKU-1|O1|Acme|LATE_UNSHIPPED", id)
}

func TestCompositeIDFallbacks(t *testing.T) {
	// SKU stands in for a missing line id, OrderIDs for a missing order id.
	id := CompositeID{}.IssueID(IDRow{
		SKU:          "SKU-9",
		OrderIDs:     "O1, O2",
		SupplierName: "Acme",
	})
	assert.Equal(t, "SKU-9|O1, O2|Acme", id)

	// Partial rows keep whatever is present.
	assert.Equal(t, "Acme", CompositeID{}.IssueID(IDRow{SupplierName: "Acme"}))
}

func TestCompositeIDHashFallback(t *testing.T) {
	a := CompositeID{}.IssueID(IDRow{})
	b := CompositeID{}.IssueID(IDRow{})
	assert.True(t, strings.HasPrefix(a, "hash:"))
	assert.Equal(t, a, b, "identical rows hash identically")

	c := CompositeID{}.IssueID(IDRow{LineID: "  ", SupplierName: "\t"})
	assert.True(t, strings.HasPrefix(c, "hash:"))
	assert.NotEqual(t, a, c, "whitespace-only fields still feed the hash")
}

func TestCompositeIDCustomDelimiter(t *testing.T) {
	id := CompositeID{Delimiter: "::"}.IssueID(IDRow{OrderID: "O1", SupplierName: "Acme"})
	assert.Equal(t, "O1::Acme", id)
}

func TestCompositeIDDeterministic(t *testing.T) {
	row := IDRow{LineID: "L1", OrderID: "O1", SupplierName: "Acme", IssueType: "PARTIAL_SHIPMENT"}
	assert.Equal(t, CompositeID{}.IssueID(row), CompositeID{}.IssueID(row))
}

func TestAttachIssueIDs(t *testing.T) {
	fs := []model.Followup{
		{SupplierName: "Acme", OrderIDs: "O1, O2"},
		{SupplierName: "Beta", OrderIDs: "O3", IssueID: "preset"},
	}
	AttachIssueIDs(fs, nil)
	assert.Equal(t, "O1, O2|Acme", fs[0].IssueID)
	assert.Equal(t, "preset", fs[1].IssueID, "existing ids are kept")
}

func TestExceptionIDRowUsesSKUAsLineID(t *testing.T) {
	row := ExceptionIDRow(model.Exception{
		OrderID: "O1", SKU: "SKU-1", SupplierName: "Acme", IssueType: "MISSING_TRACKING",
	})
	assert.Equal(t, "SKU-1|O1|Acme|MISSING_TRACKING", CompositeID{}.IssueID(row))
}

func TestApplyFiltersResolved(t *testing.T) {
	s := newTestStore(t)

	fs := []model.Followup{
		{SupplierName: "Acme", OrderIDs: "O1"},
		{SupplierName: "Beta", OrderIDs: "O2"},
		{SupplierName: "Gamma", OrderIDs: "O3"},
	}
	acmeID := CompositeID{}.IssueID(FollowupIDRow(fs[0]))
	betaID := CompositeID{}.IssueID(FollowupIDRow(fs[1]))

	require.NoError(t, s.SetResolved(acmeID, true, nil))
	require.NoError(t, s.SetOwner(betaID, "sam", nil))
	require.NoError(t, s.IncrementFollowup(betaID, "email", "", nil))

	res := Apply(s, fs, nil)

	assert.Len(t, res.Full, 3)
	assert.Len(t, res.Open, 2)
	for _, f := range res.Open {
		assert.NotEqual(t, "Acme", f.SupplierName, "resolved followup excluded")
	}

	var beta model.Followup
	for _, f := range res.Open {
		if f.SupplierName == "Beta" {
			beta = f
		}
	}
	assert.Equal(t, StatusWaiting, beta.IssueStatus)
	assert.Equal(t, "sam", beta.Owner)
	assert.Equal(t, ContactWaiting, beta.ContactStatus)
	assert.Equal(t, 1, beta.FollowUpCount)
	assert.NotEmpty(t, beta.LastContacted)

	// Unknown to the tracker: open with defaults.
	var gamma model.Followup
	for _, f := range res.Open {
		if f.SupplierName == "Gamma" {
			gamma = f
		}
	}
	assert.Equal(t, StatusOpen, gamma.IssueStatus)
	assert.Equal(t, ContactNotContacted, gamma.ContactStatus)
	assert.Equal(t, 0, gamma.FollowUpCount)
}

func TestApplyDoesNotMutateTracker(t *testing.T) {
	s := newTestStore(t)
	Apply(s, []model.Followup{{SupplierName: "Acme", OrderIDs: "O1"}}, nil)
	assert.Empty(t, s.All(), "presentation join never writes")
	assert.Empty(t, s.Timeline().Read())
}
