package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/models"
)

// TimestampLayout used by exports and listings
const TimestampLayout = "2 Jan 2006, 3:04 pm"

// CSVHeader of the flat export
var CSVHeader = []string{
	"Evaluation ID",
	"Timestamp",
	"Full Name",
	"Email",
	"Phone Number",
	"National ID",
	"Date of Birth",
	"Age at Evaluation",
	"Highest Qualification",
	"Graduation Year",
	"Score Type",
	"Percentage Value",
	"CGPA Value",
	"Screening Test Score",
	"Interview Status",
	"Offer Letter Sent",
	"Final Eligibility Status",
	"Exception Count",
	"Manager Review Required",
	"Exception Rules Triggered",
	"Exception Rationales",
}

// override keys in display order
var overrideLabels = []struct {
	key   string
	label string
}{
	{models.SoftAge, "Age Eligibility"},
	{models.SoftGraduationYear, "Graduation Year"},
	{models.SoftScore, "Academic Score"},
	{models.SoftTestScore, "Screening Score"},
}

// OverrideLabels renders the enabled overrides as readable rule categories
func OverrideLabels(o models.Overrides) string {
	var labels []string
	known := map[string]bool{}
	for _, l := range overrideLabels {
		known[l.key] = true
		if o[l.key] {
			labels = append(labels, l.label)
		}
	}
	for _, k := range o.Enabled() {
		if !known[k] {
			labels = append(labels, k)
		}
	}
	return strings.Join(labels, ", ")
}

// FormatTimestamp in loc; nil loc means UTC
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// WriteCSV writes one row per record with every field
func WriteCSV(w io.Writer, records []models.AuditRecord, loc *time.Location) error {
	if len(records) == 0 {
		return ErrEmptyLog
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r, loc)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r models.AuditRecord, loc *time.Location) []string {
	c := r.Candidate

	age := ""
	if r.Age != nil {
		age = strconv.Itoa(*r.Age)
	}

	var percentage, cgpa string
	switch c.ScoreType {
	case models.ScoreTypePercentage:
		percentage = c.Score
	case models.ScoreTypeCGPA:
		cgpa = c.Score
	}

	return []string{
		r.ID,
		FormatTimestamp(r.Timestamp, loc),
		c.FullName,
		c.Email,
		c.Phone,
		c.NationalID,
		c.DateOfBirth,
		age,
		c.Qualification,
		c.GraduationYear,
		string(c.ScoreType),
		percentage,
		cgpa,
		c.TestScore,
		c.InterviewStatus,
		c.OfferSent,
		r.Outcome.Label(),
		strconv.Itoa(r.ExceptionsUsed),
		yesNo(r.ManagerReviewRequired),
		OverrideLabels(r.Overrides),
		r.Rationale,
	}
}

// SummaryEntry is one row of the summarized export
type SummaryEntry struct {
	Timestamp             string `json:"timestamp"`
	CandidateName         string `json:"candidateName"`
	Email                 string `json:"email"`
	EligibilityOutcome    string `json:"eligibilityOutcome"`
	ExceptionsUsed        int    `json:"exceptionsUsed"`
	ManagerReviewRequired string `json:"managerReviewRequired"`
}

// Summarize projects records to summary entries
func Summarize(records []models.AuditRecord, loc *time.Location) []SummaryEntry {
	out := make([]SummaryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, SummaryEntry{
			Timestamp:             FormatTimestamp(r.Timestamp, loc),
			CandidateName:         r.Candidate.FullName,
			Email:                 r.Candidate.Email,
			EligibilityOutcome:    r.Outcome.Label(),
			ExceptionsUsed:        r.ExceptionsUsed,
			ManagerReviewRequired: yesNo(r.ManagerReviewRequired),
		})
	}
	return out
}

// WriteSummaryJSON writes the summarized export as an indented JSON array
func WriteSummaryJSON(w io.Writer, records []models.AuditRecord, loc *time.Location) error {
	if len(records) == 0 {
		return ErrEmptyLog
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Summarize(records, loc)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
