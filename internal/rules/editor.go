package rules

import (
	"math"
	"sort"
	"strings"

	"github.com/admitguard/admitguard/internal/models"
)

// Keys for configuration errors
const (
	KeyPercentage         = "percentage"
	KeyCGPA               = "cgpa"
	KeyScreeningScore     = "screeningScore"
	KeyAge                = "age"
	KeyGraduationYear     = "graduationYear"
	KeyMaxExceptions      = "maxExceptions"
	KeyRationaleMinLength = "rationaleMinLength"
	KeyRationaleKeywords  = "rationaleKeywords"
)

// ConfigError lists every bound a proposed edit violates, keyed by rule
type ConfigError struct {
	Fields map[string]string
}

func (e *ConfigError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid rule configuration: " + strings.Join(parts, "; ")
}

// Validate checks the bounds of a proposed tunables edit. It returns nil or a
// *ConfigError carrying all failures, never just the first.
func Validate(t models.Tunables) error {
	errs := map[string]string{}
	soft := t.SoftRules

	// NaN compares false against everything, so finiteness is checked first
	if !finite(soft.Percentage.Min) || soft.Percentage.Min < 0 || soft.Percentage.Min > 100 {
		errs[KeyPercentage] = "Percentage must be between 0 and 100."
	}
	if !finite(soft.CGPA.Min, soft.CGPA.Max) || soft.CGPA.Min < 0 || soft.CGPA.Min > soft.CGPA.Max {
		errs[KeyCGPA] = "Min CGPA must be between 0 and Max CGPA."
	}
	if !finite(soft.ScreeningScore.Min, soft.ScreeningScore.Max) || soft.ScreeningScore.Min < 0 || soft.ScreeningScore.Min > soft.ScreeningScore.Max {
		errs[KeyScreeningScore] = "Min Screening Score must be between 0 and Max Screening Score."
	}
	if !finite(soft.Age.Min, soft.Age.Max) || soft.Age.Min < 0 || soft.Age.Min > soft.Age.Max {
		errs[KeyAge] = "Min Age must be between 0 and Max Age."
	}
	if !finite(soft.GraduationYear.Min, soft.GraduationYear.Max) || soft.GraduationYear.Min > soft.GraduationYear.Max {
		errs[KeyGraduationYear] = "Start Year cannot be after End Year."
	}

	policy := t.ExceptionPolicy
	if policy.MaxExceptions < 0 {
		errs[KeyMaxExceptions] = "Max exceptions cannot be negative."
	}
	if policy.RationaleMinLength < 0 {
		errs[KeyRationaleMinLength] = "Rationale minimum length cannot be negative."
	}
	if !hasKeywords(policy.RationaleKeywords) {
		errs[KeyRationaleKeywords] = "At least one non-blank rationale keyword is required."
	}

	if len(errs) > 0 {
		return &ConfigError{Fields: errs}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// hasKeywords: non-empty and no blank entries, which would match any rationale
func hasKeywords(keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return false
		}
	}
	return true
}
