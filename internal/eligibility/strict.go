package eligibility

import (
	"strings"
	"unicode/utf8"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/rules"
)

// EvaluateStrict checks every mandatory rule. A failing expression counts as a
// violation; strict rules fail closed.
func EvaluateStrict(input models.CandidateInput, strict *rules.StrictSet) models.Violations {
	violations := models.Violations{}
	fields := input.Fields()

	for _, rule := range strict.Rules() {
		if !strictPasses(rule, fields) {
			violations[rule.Field] = rule.Message
		}
	}
	return violations
}

func strictPasses(rule *rules.CompiledRule, fields map[string]string) bool {
	value := fields[rule.Field]

	switch rule.Kind {
	case rules.KindPattern:
		if value == "" {
			return !rule.Required
		}
		if utf8.RuneCountInString(strings.TrimSpace(value)) < rule.MinLength {
			return false
		}
		return rule.MatchString(value)
	case rules.KindEnum:
		if value == "" {
			return !rule.Required
		}
		return rule.Allows(value)
	case rules.KindExpr:
		ok, err := rule.Holds(fields)
		return err == nil && ok
	default:
		return false
	}
}

// requiredFilled reports whether every required strict field has a value
func requiredFilled(input models.CandidateInput, strict *rules.StrictSet) bool {
	fields := input.Fields()
	for _, f := range strict.RequiredFields() {
		if fields[f] == "" {
			return false
		}
	}
	return true
}
