package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/audit"
	"github.com/admitguard/admitguard/internal/eligibility"
	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/rules"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

const divider = "--------------------------------------------------"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func outcomeColor(o models.Outcome) func(a ...any) string {
	switch o {
	case models.OutcomeEligible:
		return green
	case models.OutcomeExceptionApproved:
		return yellow
	default:
		return red
	}
}

// FormatEvaluation renders one pipeline result for a terminal
func FormatEvaluation(result models.EvaluationResult, policy models.ExceptionPolicy) string {
	var sb strings.Builder

	oc := outcomeColor(result.Outcome)
	fmt.Fprintf(&sb, "%s %s\n", bold("Outcome:"), oc(result.Outcome.Label()))
	if result.Age != nil {
		fmt.Fprintf(&sb, "Age: %d\n", *result.Age)
	}
	sb.WriteString(divider + "\n")

	sb.WriteString(bold("Strict rules") + "\n")
	if len(result.StrictViolations) == 0 {
		fmt.Fprintf(&sb, "  %s all strict rules pass\n", green("✓"))
	}
	for _, field := range sortedKeys(result.StrictViolations) {
		fmt.Fprintf(&sb, "  %s %s: %s\n", red("✗"), field, result.StrictViolations[field])
	}

	sb.WriteString(bold("Soft rules") + "\n")
	if len(result.SoftViolations) == 0 {
		fmt.Fprintf(&sb, "  %s no soft rule violations\n", green("✓"))
	}
	for _, field := range sortedKeys(result.SoftViolations) {
		mark := yellow("⚠")
		suffix := ""
		if result.Overrides[field] {
			suffix = " " + yellow("[exception]")
		}
		fmt.Fprintf(&sb, "  %s %s: %s%s\n", mark, field, result.SoftViolations[field], suffix)
	}

	if result.ExceptionsUsed > 0 {
		fmt.Fprintf(&sb, "Exceptions used: %d (manager review above %d)\n", result.ExceptionsUsed, policy.MaxExceptions)
	}
	if result.RationaleError != nil {
		fmt.Fprintf(&sb, "  %s rationale: %s\n", red("✗"), result.RationaleError.Message)
	}
	if result.ManagerReviewRequired {
		fmt.Fprintf(&sb, "%s %s\n", yellow("Manager review required:"), policy.ManagerReviewMessage)
	}

	sb.WriteString(divider + "\n")
	if result.IsReadyToSubmit {
		fmt.Fprintf(&sb, "%s\n", green("Ready to submit"))
	} else {
		fmt.Fprintf(&sb, "%s\n", red("Not ready to submit"))
	}
	return sb.String()
}

// FormatStatus is the one-line session prompt summary
func FormatStatus(state eligibility.State, result models.EvaluationResult) string {
	return fmt.Sprintf("[%s] outcome=%s strict=%d soft=%d exceptions=%d",
		state, outcomeColor(result.Outcome)(result.Outcome.Label()),
		len(result.StrictViolations), len(result.SoftViolations), result.ExceptionsUsed)
}

// FormatRecordList renders audit records as a table, most recent first
func FormatRecordList(records []models.AuditRecord, loc *time.Location) string {
	if len(records) == 0 {
		return "No audit records.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-13s  %-20s  %-24s  %-25s  %s\n", "ID", "TIMESTAMP", "CANDIDATE", "OUTCOME", "EXCEPTIONS")
	for _, r := range records {
		review := ""
		if r.ManagerReviewRequired {
			review = " (review)"
		}
		fmt.Fprintf(&sb, "%-13s  %-20s  %-24s  %-25s  %d%s\n",
			r.ID,
			audit.FormatTimestamp(r.Timestamp, loc),
			truncate(r.Candidate.FullName, 24),
			r.Outcome.Label(),
			r.ExceptionsUsed,
			review,
		)
	}
	return sb.String()
}

// FormatRecord renders one audit record in full
func FormatRecord(r models.AuditRecord, loc *time.Location) string {
	var sb strings.Builder
	c := r.Candidate

	fmt.Fprintf(&sb, "%s %s\n", bold("Record"), r.ID)
	fmt.Fprintf(&sb, "Timestamp:      %s\n", audit.FormatTimestamp(r.Timestamp, loc))
	fmt.Fprintf(&sb, "Outcome:        %s\n", outcomeColor(r.Outcome)(r.Outcome.Label()))
	if r.RulesVersion != "" {
		fmt.Fprintf(&sb, "Rules version:  %s\n", shortVersion(r.RulesVersion))
	}
	sb.WriteString(divider + "\n")
	fmt.Fprintf(&sb, "Name:           %s\n", c.FullName)
	fmt.Fprintf(&sb, "Email:          %s\n", c.Email)
	fmt.Fprintf(&sb, "Phone:          %s\n", c.Phone)
	fmt.Fprintf(&sb, "National ID:    %s\n", c.NationalID)
	fmt.Fprintf(&sb, "Date of birth:  %s\n", c.DateOfBirth)
	if r.Age != nil {
		fmt.Fprintf(&sb, "Age:            %d\n", *r.Age)
	}
	fmt.Fprintf(&sb, "Qualification:  %s (%s)\n", c.Qualification, c.GraduationYear)
	fmt.Fprintf(&sb, "Score:          %s %s\n", c.Score, c.EffectiveScoreType())
	fmt.Fprintf(&sb, "Screening test: %s\n", c.TestScore)
	fmt.Fprintf(&sb, "Interview:      %s\n", c.InterviewStatus)
	fmt.Fprintf(&sb, "Offer sent:     %s\n", c.OfferSent)

	if len(r.SoftViolations) > 0 {
		sb.WriteString(divider + "\n")
		sb.WriteString(bold("Soft rule violations") + "\n")
		for _, field := range sortedKeys(r.SoftViolations) {
			fmt.Fprintf(&sb, "  %s %s: %s\n", yellow("⚠"), field, r.SoftViolations[field])
		}
	}
	if r.ExceptionsUsed > 0 {
		sb.WriteString(divider + "\n")
		fmt.Fprintf(&sb, "Exceptions (%d): %s\n", r.ExceptionsUsed, audit.OverrideLabels(r.Overrides))
		fmt.Fprintf(&sb, "Rationale:      %s\n", r.Rationale)
	}
	if r.ManagerReviewRequired {
		fmt.Fprintf(&sb, "%s %s\n", yellow("Manager review required:"), r.ManagerReviewMessage)
	}
	return sb.String()
}

// FormatStats renders the dashboard counters
func FormatStats(s audit.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total submissions:        %d\n", s.Total)
	fmt.Fprintf(&sb, "Eligible:                 %s\n", green(s.Eligible))
	fmt.Fprintf(&sb, "Eligible with exceptions: %s\n", yellow(s.ExceptionApproved))
	fmt.Fprintf(&sb, "Blocked:                  %s\n", red(s.Blocked))
	fmt.Fprintf(&sb, "Manager review flagged:   %d\n", s.ManagerReview)
	fmt.Fprintf(&sb, "Exception rate:           %s%%\n", s.ExceptionRate)
	return sb.String()
}

// FormatChanges lists a rule configuration diff
func FormatChanges(changes []rules.Change) string {
	if len(changes) == 0 {
		return "No changes.\n"
	}
	var sb strings.Builder
	for _, c := range changes {
		fmt.Fprintf(&sb, "  %s %s\n", yellow("~"), c.Summary)
	}
	return sb.String()
}

// FormatHistory lists journaled rule edits
func FormatHistory(entries []rules.JournalEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return "No rule edits recorded.\n"
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %s  %s → %s\n",
			bold(audit.FormatTimestamp(e.Timestamp, loc)), e.Action, shortVersion(e.From), shortVersion(e.To))
		sb.WriteString(FormatChanges(e.Changes))
	}
	return sb.String()
}

func shortVersion(v string) string {
	v = strings.TrimPrefix(v, "sha256:")
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

// FormatConfigError lists every rejected bound
func FormatConfigError(e *rules.ConfigError) string {
	var sb strings.Builder
	sb.WriteString(red("Rule configuration rejected; nothing was saved.") + "\n")
	for _, k := range sortedKeys(e.Fields) {
		fmt.Fprintf(&sb, "  %s %s: %s\n", red("✗"), k, e.Fields[k])
	}
	return sb.String()
}

// FormatStrictRules describes the fixed strict segment
func FormatStrictRules(set *rules.StrictSet) string {
	var sb strings.Builder
	sb.WriteString(bold("Strict rules (not waivable)") + "\n")
	for _, r := range set.Rules() {
		detail := ""
		switch r.Kind {
		case rules.KindEnum:
			detail = "one of " + strings.Join(r.Allowed, ", ")
		case rules.KindExpr:
			detail = r.Expr
		case rules.KindPattern:
			detail = r.Pattern
		}
		fmt.Fprintf(&sb, "  %-16s %-8s %s\n", r.Field, r.Kind, detail)
		fmt.Fprintf(&sb, "  %-16s %-8s → %s\n", "", "", r.Message)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
