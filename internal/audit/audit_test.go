package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/admitguard/admitguard/internal/models"
)

func intPtr(n int) *int { return &n }

func record(id, name, email string, outcome models.Outcome, exceptions int, review bool) models.AuditRecord {
	overrides := models.Overrides{}
	if exceptions > 0 {
		overrides[models.SoftScore] = true
	}
	if exceptions > 1 {
		overrides[models.SoftAge] = true
	}
	return models.AuditRecord{
		ID:        id,
		Timestamp: time.Date(2026, time.March, 1, 10, 30, 0, 0, time.UTC),
		Candidate: models.CandidateInput{
			FullName:        name,
			Email:           email,
			Phone:           "9876543210",
			NationalID:      "123456789012",
			DateOfBirth:     "2000-05-10",
			Qualification:   "B.Tech",
			GraduationYear:  "2022",
			ScoreType:       models.ScoreTypePercentage,
			Score:           "75",
			TestScore:       "65",
			InterviewStatus: "Cleared",
			OfferSent:       "No",
		},
		Age:                   intPtr(25),
		Outcome:               outcome,
		StrictViolations:      models.Violations{},
		SoftViolations:        models.Violations{},
		ExceptionsUsed:        exceptions,
		Overrides:             overrides,
		ManagerReviewRequired: review,
	}
}

func TestStores(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "nested", "audit.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List on empty store: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("empty store returned %d records", len(got))
			}

			first := record("AG-000000001", "Asha Verma", "asha@example.com", models.OutcomeEligible, 0, false)
			second := record("AG-000000002", "Ravi Kumar", "ravi@example.com", models.OutcomeExceptionApproved, 1, false)
			if err := s.Append(ctx, first); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := s.Append(ctx, second); err != nil {
				t.Fatalf("Append: %v", err)
			}

			got, err = s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("List returned %d records, want 2", len(got))
			}
			if got[0].ID != second.ID || got[1].ID != first.ID {
				t.Errorf("List order = [%s %s], want most recent first", got[0].ID, got[1].ID)
			}

			if err := s.Append(ctx, first); !errors.Is(err, ErrDuplicateID) {
				t.Errorf("duplicate Append error = %v, want ErrDuplicateID", err)
			}

			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			got, _ = s.List(ctx)
			if len(got) != 0 {
				t.Errorf("after Clear got %d records", len(got))
			}
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.json")
	ctx := context.Background()

	s1, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := record("AG-ABCDEF123", "Asha Verma", "asha@example.com", models.OutcomeExceptionApproved, 2, false)
	rec.Rationale = "Strong academic background"
	if err := s1.Append(ctx, rec); err != nil {
		t.Fatal(err)
	}

	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after reopen", len(got))
	}
	r := got[0]
	if r.ID != rec.ID || r.Rationale != rec.Rationale || r.ExceptionsUsed != 2 {
		t.Errorf("reopened record = %+v", r)
	}
	if !r.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("timestamp = %v, want %v", r.Timestamp, rec.Timestamp)
	}
	if r.Age == nil || *r.Age != 25 {
		t.Errorf("age = %v, want 25", r.Age)
	}
	if !r.Overrides[models.SoftAge] || !r.Overrides[models.SoftScore] {
		t.Errorf("overrides = %v", r.Overrides)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(context.Background()); err == nil {
		t.Error("expected parse error for corrupt log")
	}
}

func TestSearch(t *testing.T) {
	records := []models.AuditRecord{
		record("AG-00000000A", "Asha Verma", "asha@example.com", models.OutcomeEligible, 0, false),
		record("AG-00000000B", "Ravi Kumar", "ravi@corp.in", models.OutcomeEligible, 0, false),
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"AG-00000000A", "AG-00000000B"}},
		{"asha", []string{"AG-00000000A"}},
		{"KUMAR", []string{"AG-00000000B"}},
		{"corp.in", []string{"AG-00000000B"}},
		{"ag-00000000a", []string{"AG-00000000A"}},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Search(records, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) returned %d records, want %d", tt.query, len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFind(t *testing.T) {
	records := []models.AuditRecord{
		record("AG-00000000A", "Asha Verma", "asha@example.com", models.OutcomeEligible, 0, false),
	}
	if _, ok := Find(records, "AG-00000000A"); !ok {
		t.Error("expected to find record")
	}
	if _, ok := Find(records, "AG-00000000Z"); ok {
		t.Error("found unknown id")
	}
}

func TestComputeStats(t *testing.T) {
	empty := ComputeStats(nil)
	if empty.Total != 0 || empty.ExceptionRate != "0.0" {
		t.Errorf("empty stats = %+v", empty)
	}

	records := []models.AuditRecord{
		record("AG-1", "A", "a@x.io", models.OutcomeEligible, 0, false),
		record("AG-2", "B", "b@x.io", models.OutcomeExceptionApproved, 1, false),
		record("AG-3", "C", "c@x.io", models.OutcomeExceptionApproved, 3, true),
	}
	s := ComputeStats(records)
	if s.Total != 3 || s.Eligible != 1 || s.ExceptionApproved != 2 || s.Blocked != 0 {
		t.Errorf("counts = %+v", s)
	}
	if s.ManagerReview != 1 {
		t.Errorf("ManagerReview = %d, want 1", s.ManagerReview)
	}
	if s.ExceptionRate != "66.7" {
		t.Errorf("ExceptionRate = %s, want 66.7", s.ExceptionRate)
	}
}

func TestWriteCSV(t *testing.T) {
	rec := record("AG-00000000A", "Verma, Asha", "asha@example.com", models.OutcomeExceptionApproved, 2, false)
	rec.Rationale = "Strong academic background, \"excellent\" interview"

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []models.AuditRecord{rec}, time.UTC); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one", len(rows))
	}
	if len(rows[0]) != len(CSVHeader) || len(rows[1]) != len(CSVHeader) {
		t.Fatalf("column count mismatch: header %d row %d", len(rows[0]), len(rows[1]))
	}

	row := map[string]string{}
	for i, h := range rows[0] {
		row[h] = rows[1][i]
	}

	checks := map[string]string{
		"Evaluation ID":             "AG-00000000A",
		"Timestamp":                 "1 Mar 2026, 10:30 am",
		"Full Name":                 "Verma, Asha",
		"Age at Evaluation":         "25",
		"Percentage Value":          "75",
		"CGPA Value":                "",
		"Final Eligibility Status":  "Eligible with Exceptions",
		"Exception Count":           "2",
		"Manager Review Required":   "No",
		"Exception Rules Triggered": "Age Eligibility, Academic Score",
		"Exception Rationales":      rec.Rationale,
	}
	for col, want := range checks {
		if row[col] != want {
			t.Errorf("%s = %q, want %q", col, row[col], want)
		}
	}
}

func TestWriteCSV_CGPAColumn(t *testing.T) {
	rec := record("AG-1", "A", "a@x.io", models.OutcomeEligible, 0, false)
	rec.Candidate.ScoreType = models.ScoreTypeCGPA
	rec.Candidate.Score = "8.2"

	row := csvRow(rec, nil)
	if row[11] != "" || row[12] != "8.2" {
		t.Errorf("percentage=%q cgpa=%q", row[11], row[12])
	}
}

func TestExport_EmptyLog(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, time.UTC); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("WriteCSV error = %v, want ErrEmptyLog", err)
	}
	if err := WriteSummaryJSON(&buf, nil, time.UTC); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("WriteSummaryJSON error = %v, want ErrEmptyLog", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for empty log", buf.Len())
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	records := []models.AuditRecord{
		record("AG-1", "Asha Verma", "asha@example.com", models.OutcomeExceptionApproved, 3, true),
	}

	var buf bytes.Buffer
	if err := WriteSummaryJSON(&buf, records, loc); err != nil {
		t.Fatalf("WriteSummaryJSON: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries", len(got))
	}
	e := got[0]
	if e["timestamp"] != "1 Mar 2026, 4:00 pm" {
		t.Errorf("timestamp = %v", e["timestamp"])
	}
	if e["eligibilityOutcome"] != "Eligible with Exceptions" {
		t.Errorf("eligibilityOutcome = %v", e["eligibilityOutcome"])
	}
	if e["managerReviewRequired"] != "Yes" {
		t.Errorf("managerReviewRequired = %v", e["managerReviewRequired"])
	}
	if e["exceptionsUsed"] != float64(3) {
		t.Errorf("exceptionsUsed = %v", e["exceptionsUsed"])
	}
	if _, ok := e["candidateName"]; !ok || strings.Contains(buf.String(), "nationalId") {
		t.Error("summary should carry candidateName and omit identity documents")
	}
}
