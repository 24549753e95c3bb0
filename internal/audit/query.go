package audit

import (
	"strings"

	"github.com/admitguard/admitguard/internal/models"
	"golang.org/x/text/cases"
)

// Search keeps records whose candidate name, email or id contains query,
// ignoring case. An empty query matches everything.
func Search(records []models.AuditRecord, query string) []models.AuditRecord {
	q := strings.TrimSpace(query)
	if q == "" {
		return records
	}

	fold := cases.Fold()
	q = fold.String(q)

	var out []models.AuditRecord
	for _, r := range records {
		if strings.Contains(fold.String(r.Candidate.FullName), q) ||
			strings.Contains(fold.String(r.Candidate.Email), q) ||
			strings.Contains(fold.String(r.ID), q) {
			out = append(out, r)
		}
	}
	return out
}

// Find by exact id
func Find(records []models.AuditRecord, id string) (models.AuditRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return models.AuditRecord{}, false
}
