package tracker

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// IDRow carries the identifying fields an issue id can be derived from.
type IDRow struct {
	LineID       string
	OrderID      string
	OrderIDs     string // fallback for followup-level rows
	SKU          string
	SupplierName string
	IssueType    string
}

// IDStrategy derives a stable issue id from a row. The default is
// CompositeID; anything implementing this can be swapped in.
type IDStrategy interface {
	IssueID(row IDRow) string
}

// CompositeID joins the first available candidate from each fallback list
// with a delimiter. The same row always yields the same id; ids survive
// re-derivation across runs as long as the identifying columns keep their
// values. When every candidate is blank it falls back to a content hash,
// which is stable for identical rows but not across schema shifts.
type CompositeID struct {
	Delimiter string // defaults to "|"
}

func (c CompositeID) delim() string {
	if c.Delimiter == "" {
		return "|"
	}
	return c.Delimiter
}

func firstNonEmpty(candidates ...string) string {
	for _, s := range candidates {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// IssueID implements IDStrategy.
func (c CompositeID) IssueID(row IDRow) string {
	parts := []string{
		firstNonEmpty(row.LineID, row.SKU),
		firstNonEmpty(row.OrderID, row.OrderIDs),
		firstNonEmpty(row.SupplierName),
		firstNonEmpty(row.IssueType),
	}

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, c.delim())
	}

	h := sha1.Sum([]byte(strings.Join([]string{
		row.LineID, row.OrderID, row.OrderIDs, row.SKU, row.SupplierName, row.IssueType,
	}, "\x1f")))
	return "hash:" + hex.EncodeToString(h[:])
}
