package audit

import (
	"fmt"

	"github.com/admitguard/admitguard/internal/models"
)

// Stats summarizes the log for the dashboard
type Stats struct {
	Total             int    `json:"total"`
	Eligible          int    `json:"eligible"`
	ExceptionApproved int    `json:"exceptionApproved"`
	Blocked           int    `json:"blocked"`
	ManagerReview     int    `json:"managerReview"`
	ExceptionRate     string `json:"exceptionRate"` // percent, one decimal
}

// ComputeStats over records
func ComputeStats(records []models.AuditRecord) Stats {
	s := Stats{Total: len(records), ExceptionRate: "0.0"}
	withExceptions := 0

	for _, r := range records {
		switch r.Outcome {
		case models.OutcomeEligible:
			s.Eligible++
		case models.OutcomeExceptionApproved:
			s.ExceptionApproved++
		case models.OutcomeBlocked:
			s.Blocked++
		}
		if r.ManagerReviewRequired {
			s.ManagerReview++
		}
		if r.ExceptionsUsed > 0 {
			withExceptions++
		}
	}

	if s.Total > 0 {
		s.ExceptionRate = fmt.Sprintf("%.1f", float64(withExceptions)/float64(s.Total)*100)
	}
	return s
}
