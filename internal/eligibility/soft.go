package eligibility

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/models"
)

// EvaluateSoft checks the advisory thresholds. Empty fields are not yet
// evaluable and never warn. Values that cannot be parsed warn, since the
// threshold cannot be shown to hold.
func EvaluateSoft(input models.CandidateInput, soft models.SoftRules, asOf time.Time) models.Violations {
	violations := models.Violations{}

	if input.DateOfBirth != "" {
		age, ok := AgeOn(input.DateOfBirth, asOf)
		if !ok || !soft.Age.Contains(float64(age)) {
			violations[models.SoftAge] = soft.Age.Message
		}
	}

	if input.GraduationYear != "" {
		year, err := parseYear(input.GraduationYear)
		if err != nil || !soft.GraduationYear.Contains(float64(year)) {
			violations[models.SoftGraduationYear] = soft.GraduationYear.Message
		}
	}

	if input.Score != "" {
		score, err := parseNumber(input.Score)
		switch input.EffectiveScoreType() {
		case models.ScoreTypeCGPA:
			if err != nil || score < soft.CGPA.Min {
				violations[models.SoftScore] = soft.CGPA.Message
			}
		default:
			if err != nil || score < soft.Percentage.Min {
				violations[models.SoftScore] = soft.Percentage.Message
			}
		}
	}

	if input.TestScore != "" {
		score, err := parseNumber(input.TestScore)
		if err != nil || score < soft.ScreeningScore.Min {
			violations[models.SoftTestScore] = soft.ScreeningScore.Message
		}
	}

	return violations
}

// AgeOn returns completed years between a YYYY-MM-DD birth date and asOf
func AgeOn(dob string, asOf time.Time) (int, bool) {
	birth, err := time.Parse(models.DateLayout, strings.TrimSpace(dob))
	if err != nil {
		return 0, false
	}

	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	return age, true
}

var errNotFinite = errors.New("not a finite number")

// parseNumber rejects NaN and infinities, which no threshold comparison catches
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parseYear reads the leading integer, so "2020.0" and "2020 (expected)"
// both give 2020
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s[:end])
}
