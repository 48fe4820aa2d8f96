package suppliers

import (
	"sort"
	"strings"

	"opsdeck/internal/model"
)

// EnrichFollowups left-joins directory fields onto followups by normalized
// supplier name, in place. Values already present on a followup win; only
// blanks are filled.
func EnrichFollowups(followups []model.Followup, d *Directory) {
	if d.Len() == 0 {
		return
	}
	for i := range followups {
		f := &followups[i]
		c, ok := d.Lookup(f.SupplierName)
		if !ok {
			continue
		}
		if strings.TrimSpace(f.SupplierEmail) == "" {
			f.SupplierEmail = c.Email
		}
		if strings.TrimSpace(f.SupplierChannel) == "" {
			f.SupplierChannel = c.Channel
		}
		if strings.TrimSpace(f.Language) == "" {
			f.Language = c.Language
		}
		if strings.TrimSpace(f.Timezone) == "" {
			f.Timezone = c.Timezone
		}
	}
}

// AddMissingContactExceptions appends one synthetic exception per supplier
// that has actionable follow-ups but no email on file, prompting the
// operator to fill the directory instead of silently skipping outreach.
func AddMissingContactExceptions(exceptions []model.Exception, followups []model.Followup) []model.Exception {
	seen := map[string]bool{}
	var missing []string
	for _, f := range followups {
		if f.ItemCount <= 0 {
			continue
		}
		if strings.TrimSpace(f.SupplierEmail) != "" {
			continue
		}
		name := strings.TrimSpace(f.SupplierName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return exceptions
	}
	sort.Strings(missing)

	for _, name := range missing {
		exceptions = append(exceptions, model.Exception{
			IssueType:    "Missing supplier contact",
			SupplierName: name,
			Explanation:  "A supplier follow-up is needed, but this supplier has no email saved in the Supplier Directory.",
			NextAction:   "Add supplier_email in Supplier Directory (upload suppliers.csv) or update the CRM row.",
			CustomerRisk: "Medium",
		})
	}
	return exceptions
}
