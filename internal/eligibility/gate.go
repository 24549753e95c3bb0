package eligibility

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/admitguard/admitguard/internal/models"
	"golang.org/x/text/cases"
)

const missingJustificationMessage = "Rationale must include a clear professional justification (e.g., experience, academic background, referral)."

// EvaluateExceptions aggregates override flags and checks the rationale.
// It never enforces MaxExceptions; exceeding it only escalates review.
func EvaluateExceptions(soft models.Violations, overrides models.Overrides, rationale string, policy models.ExceptionPolicy) models.GateResult {
	result := models.GateResult{AllOverridden: true}

	for _, on := range overrides {
		if on {
			result.ExceptionsUsed++
		}
	}
	result.AnyExceptionEnabled = result.ExceptionsUsed > 0

	if result.AnyExceptionEnabled {
		result.RationaleError = checkRationale(rationale, policy)
	}

	// partial overriding does not count
	for field := range soft {
		if !overrides[field] {
			result.AllOverridden = false
			break
		}
	}
	return result
}

func checkRationale(rationale string, policy models.ExceptionPolicy) *models.RationaleError {
	trimmed := strings.TrimSpace(rationale)
	if utf8.RuneCountInString(trimmed) < policy.RationaleMinLength {
		return &models.RationaleError{
			Code:    models.RationaleTooShort,
			Message: fmt.Sprintf("Rationale must be at least %d characters long.", policy.RationaleMinLength),
		}
	}

	fold := cases.Fold()
	text := fold.String(trimmed)
	for _, kw := range policy.RationaleKeywords {
		if strings.Contains(text, fold.String(kw)) {
			return nil
		}
	}
	return &models.RationaleError{
		Code:    models.RationaleMissingJustification,
		Message: missingJustificationMessage,
	}
}
