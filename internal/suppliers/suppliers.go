// Package suppliers is the per-tenant supplier directory: a small CSV CRM
// keyed by supplier name, joined onto follow-up drafts so outreach has a
// real address to go to.
package suppliers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"opsdeck/internal/logging"
	"opsdeck/internal/tabular"
	"opsdeck/internal/workspace"
)

// Contact is one directory row.
type Contact struct {
	SupplierName string
	Email        string
	Channel      string
	Language     string
	Timezone     string
}

// NormalizeKey reduces a supplier name to its join key. Matching is
// whitespace- and case-insensitive because exports rarely agree on either.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Path returns the tenant's directory file location.
func Path(suppliersDir, accountID, storeID string) string {
	return filepath.Join(suppliersDir,
		workspace.SafeSlug(accountID), workspace.SafeSlug(storeID), "suppliers.csv")
}

// Directory is a loaded supplier directory with normalized-key lookup.
// Duplicate keys keep the first row, matching how the file is maintained
// (newest rows are appended at the bottom).
type Directory struct {
	contacts []Contact
	byKey    map[string]Contact
}

// NewDirectory builds a Directory from rows.
func NewDirectory(contacts []Contact) *Directory {
	d := &Directory{byKey: make(map[string]Contact, len(contacts))}
	for _, c := range contacts {
		key := NormalizeKey(c.SupplierName)
		if key == "" {
			continue
		}
		d.contacts = append(d.contacts, c)
		if _, ok := d.byKey[key]; !ok {
			d.byKey[key] = c
		}
	}
	return d
}

// Len returns the number of usable rows.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.contacts)
}

// Contacts returns the directory rows in file order.
func (d *Directory) Contacts() []Contact {
	if d == nil {
		return nil
	}
	return d.contacts
}

// Lookup finds a contact by supplier name, normalized.
func (d *Directory) Lookup(supplierName string) (Contact, bool) {
	if d == nil {
		return Contact{}, false
	}
	c, ok := d.byKey[NormalizeKey(supplierName)]
	return c, ok
}

// Load reads the tenant's directory. Fail-open: a missing or unreadable
// file loads as an empty directory rather than blocking the run.
func Load(suppliersDir, accountID, storeID string) *Directory {
	path := Path(suppliersDir, accountID, storeID)
	tbl, err := tabular.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Pipeline("suppliers: unreadable directory %s, continuing without", path)
		}
		return NewDirectory(nil)
	}
	return FromTable(tbl)
}

// FromTable parses directory rows out of a table. Only supplier_name is
// required; the enrichment columns are optional.
func FromTable(tbl *tabular.Table) *Directory {
	if tbl.Empty() || tbl.ColumnIndex("supplier_name") < 0 {
		return NewDirectory(nil)
	}
	name := tbl.ColumnIndex("supplier_name")
	email := tbl.ColumnIndex("supplier_email")
	channel := tbl.ColumnIndex("supplier_channel")
	language := tbl.ColumnIndex("language")
	timezone := tbl.ColumnIndex("timezone")

	var contacts []Contact
	for i := range tbl.Rows {
		contacts = append(contacts, Contact{
			SupplierName: strings.TrimSpace(tbl.Cell(i, name)),
			Email:        strings.TrimSpace(tbl.Cell(i, email)),
			Channel:      strings.TrimSpace(tbl.Cell(i, channel)),
			Language:     strings.TrimSpace(tbl.Cell(i, language)),
			Timezone:     strings.TrimSpace(tbl.Cell(i, timezone)),
		})
	}
	return NewDirectory(contacts)
}

// Table renders the directory back to its CSV shape.
func (d *Directory) Table() *tabular.Table {
	t := &tabular.Table{
		Name:    "suppliers",
		Columns: []string{"supplier_name", "supplier_email", "supplier_channel", "language", "timezone"},
	}
	for _, c := range d.Contacts() {
		t.Rows = append(t.Rows, []string{c.SupplierName, c.Email, c.Channel, c.Language, c.Timezone})
	}
	return t
}

// Save persists the directory for a tenant, creating parents as needed, and
// returns the file path.
func Save(suppliersDir, accountID, storeID string, d *Directory) (string, error) {
	path := Path(suppliersDir, accountID, storeID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create suppliers dir: %w", err)
	}
	if err := d.Table().WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}
