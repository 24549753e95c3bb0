// Package rules holds the eligibility rule schema: the compiled strict segment,
// the editable soft-rule and exception-policy segment, and the store that
// swaps committed edits in atomically.
package rules

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/admitguard/admitguard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Interview and offer values used by the default strict rules
const (
	InterviewCleared    = "Cleared"
	InterviewWaitlisted = "Waitlisted"
	InterviewRejected   = "Rejected"
	OfferYes            = "Yes"
	OfferNo             = "No"
)

// Qualifications accepted by default
var Qualifications = []string{"B.Tech", "B.E.", "B.Sc", "BCA", "M.Tech", "M.Sc", "MCA", "MBA"}

// DefaultStrictRules is the constant strict definition
func DefaultStrictRules() []StrictRule {
	return []StrictRule{
		{
			Field:     models.FieldFullName,
			Kind:      KindPattern,
			Required:  true,
			MinLength: 2,
			Pattern:   `^[a-zA-Z\s]+$`,
			Message:   "Enter a valid full name as per official documents.",
		},
		{
			Field:    models.FieldEmail,
			Kind:     KindPattern,
			Required: true,
			Pattern:  `^[^\s@]+@[^\s@]+\.[^\s@]+$`,
			Message:  "Enter a valid email address.",
		},
		{
			Field:    models.FieldPhone,
			Kind:     KindPattern,
			Required: true,
			Pattern:  `^[6-9]\d{9}$`,
			Message:  "Enter a valid 10-digit Indian mobile number.",
		},
		{
			Field:    models.FieldNationalID,
			Kind:     KindPattern,
			Required: true,
			Pattern:  `^\d{12}$`,
			Message:  "Aadhaar number must be a 12-digit numeric value.",
		},
		{
			Field:    models.FieldQualification,
			Kind:     KindEnum,
			Required: true,
			Allowed:  Qualifications,
			Message:  "Select a highest qualification from the list.",
		},
		{
			Field: models.FieldInterviewStatus,
			Kind:  KindExpr,
			Expr:  `candidate.interviewStatus != rule.blockedValue`,
			Params: map[string]any{
				"allowedValues": []string{InterviewCleared, InterviewWaitlisted, InterviewRejected},
				"blockedValue":  InterviewRejected,
			},
			Message: "Candidates marked as Rejected are not eligible to proceed further.",
		},
		{
			Field: models.FieldOfferSent,
			Kind:  KindExpr,
			Expr:  `candidate.offerSent != rule.blockingValue || candidate.interviewStatus in rule.allowedInterviewStatuses`,
			Params: map[string]any{
				"blockingValue":            OfferYes,
				"allowedInterviewStatuses": []string{InterviewCleared, InterviewWaitlisted},
			},
			Message: "Offer letter can only be sent after interview clearance or waitlisting.",
		},
	}
}

var defaultStrict = sync.OnceValues(func() (*StrictSet, error) {
	return CompileStrict(DefaultStrictRules())
})

// DefaultStrict returns the compiled default strict segment. Compiled once.
func DefaultStrict() (*StrictSet, error) {
	return defaultStrict()
}

// MustDefaultStrict panics on compile failure (for tests)
func MustDefaultStrict() *StrictSet {
	s, err := DefaultStrict()
	if err != nil {
		panic(fmt.Sprintf("default strict rules: %v", err))
	}
	return s
}

var defaultTunables = sync.OnceValues(func() (models.Tunables, error) {
	var t models.Tunables
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		return models.Tunables{}, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	return t, nil
})

// DefaultTunables returns a fresh copy of the built-in soft rules and exception policy
func DefaultTunables() models.Tunables {
	t, err := defaultTunables()
	if err != nil {
		panic(err)
	}
	return t.Clone()
}
