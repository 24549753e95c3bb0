package rules

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/admitguard/admitguard/internal/models"
)

func TestDefaultTunables(t *testing.T) {
	d := DefaultTunables()

	if d.SoftRules.Age.Min != 18 || d.SoftRules.Age.Max != 35 {
		t.Errorf("age = [%v,%v], want [18,35]", d.SoftRules.Age.Min, d.SoftRules.Age.Max)
	}
	if d.SoftRules.Percentage.Min != 60 {
		t.Errorf("percentage.min = %v, want 60", d.SoftRules.Percentage.Min)
	}
	if d.ExceptionPolicy.MaxExceptions != 2 {
		t.Errorf("maxExceptions = %d, want 2", d.ExceptionPolicy.MaxExceptions)
	}
	if d.ExceptionPolicy.RationaleMinLength != 30 {
		t.Errorf("rationaleMinLength = %d, want 30", d.ExceptionPolicy.RationaleMinLength)
	}
	if len(d.ExceptionPolicy.RationaleKeywords) != 10 {
		t.Errorf("got %d keywords, want 10", len(d.ExceptionPolicy.RationaleKeywords))
	}
	if err := Validate(d); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaultTunablesIsACopy(t *testing.T) {
	a := DefaultTunables()
	a.ExceptionPolicy.RationaleKeywords[0] = "mutated"
	a.SoftRules.Age.Min = 99

	b := DefaultTunables()
	if b.ExceptionPolicy.RationaleKeywords[0] == "mutated" || b.SoftRules.Age.Min == 99 {
		t.Error("DefaultTunables must return an independent copy")
	}
}

func TestCompileStrictDefaults(t *testing.T) {
	set := MustDefaultStrict()

	want := []string{
		models.FieldFullName, models.FieldEmail, models.FieldPhone, models.FieldNationalID,
		models.FieldQualification, models.FieldInterviewStatus, models.FieldOfferSent,
	}
	if len(set.Rules()) != len(want) {
		t.Fatalf("got %d rules, want %d", len(set.Rules()), len(want))
	}
	for i, r := range set.Rules() {
		if r.Field != want[i] {
			t.Errorf("rule %d = %q, want %q", i, r.Field, want[i])
		}
	}

	required := set.RequiredFields()
	if strings.Join(required, ",") != "fullName,email,phone,nationalId,qualification" {
		t.Errorf("RequiredFields() = %v", required)
	}
}

func TestCompileStrictErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []StrictRule
	}{
		{"missing field", []StrictRule{{Kind: KindPattern}}},
		{"bad pattern", []StrictRule{{Field: "x", Kind: KindPattern, Pattern: "("}}},
		{"empty enum", []StrictRule{{Field: "x", Kind: KindEnum}}},
		{"bad expr", []StrictRule{{Field: "x", Kind: KindExpr, Expr: "candidate.x =="}}},
		{"unknown kind", []StrictRule{{Field: "x", Kind: "other"}}},
		{"duplicate", []StrictRule{
			{Field: "x", Kind: KindPattern},
			{Field: "x", Kind: KindPattern},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileStrict(tt.defs); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestOfferSentExpression(t *testing.T) {
	rule, ok := MustDefaultStrict().Rule(models.FieldOfferSent)
	if !ok {
		t.Fatal("offerSent rule missing")
	}

	tests := []struct {
		offer     string
		interview string
		want      bool
	}{
		{"Yes", "Cleared", true},
		{"Yes", "Waitlisted", true},
		{"Yes", "Rejected", false},
		{"Yes", "", false},
		{"No", "Rejected", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := rule.Holds(map[string]string{
			models.FieldOfferSent:       tt.offer,
			models.FieldInterviewStatus: tt.interview,
		})
		if err != nil {
			t.Fatalf("Holds: %v", err)
		}
		if got != tt.want {
			t.Errorf("offer=%q interview=%q: got %v, want %v", tt.offer, tt.interview, got, tt.want)
		}
	}
}

func TestExprNonBoolean(t *testing.T) {
	set, err := CompileStrict([]StrictRule{{Field: "x", Kind: KindExpr, Expr: `candidate.x`}})
	if err != nil {
		t.Fatalf("CompileStrict: %v", err)
	}
	r, _ := set.Rule("x")
	if _, err := r.Holds(map[string]string{"x": "y"}); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Tunables)
		wantKey string
	}{
		{"percentage above 100", func(t *models.Tunables) { t.SoftRules.Percentage.Min = 150 }, KeyPercentage},
		{"percentage negative", func(t *models.Tunables) { t.SoftRules.Percentage.Min = -1 }, KeyPercentage},
		{"cgpa min over max", func(t *models.Tunables) { t.SoftRules.CGPA.Min = 11 }, KeyCGPA},
		{"screening min over max", func(t *models.Tunables) { t.SoftRules.ScreeningScore.Min = 101 }, KeyScreeningScore},
		{"age negative", func(t *models.Tunables) { t.SoftRules.Age.Min = -3 }, KeyAge},
		{"age min over max", func(t *models.Tunables) { t.SoftRules.Age.Min = 40 }, KeyAge},
		{"graduation years inverted", func(t *models.Tunables) { t.SoftRules.GraduationYear.Min = 2030 }, KeyGraduationYear},
		{"max exceptions negative", func(t *models.Tunables) { t.ExceptionPolicy.MaxExceptions = -1 }, KeyMaxExceptions},
		{"rationale length negative", func(t *models.Tunables) { t.ExceptionPolicy.RationaleMinLength = -5 }, KeyRationaleMinLength},
		{"no keywords", func(t *models.Tunables) { t.ExceptionPolicy.RationaleKeywords = nil }, KeyRationaleKeywords},
		{"blank keyword", func(t *models.Tunables) { t.ExceptionPolicy.RationaleKeywords = []string{"work", " "} }, KeyRationaleKeywords},
		{"percentage NaN", func(t *models.Tunables) { t.SoftRules.Percentage.Min = math.NaN() }, KeyPercentage},
		{"cgpa min NaN", func(t *models.Tunables) { t.SoftRules.CGPA.Min = math.NaN() }, KeyCGPA},
		{"cgpa max +Inf", func(t *models.Tunables) { t.SoftRules.CGPA.Max = math.Inf(1) }, KeyCGPA},
		{"screening max NaN", func(t *models.Tunables) { t.SoftRules.ScreeningScore.Max = math.NaN() }, KeyScreeningScore},
		{"age max +Inf", func(t *models.Tunables) { t.SoftRules.Age.Max = math.Inf(1) }, KeyAge},
		{"graduation min -Inf", func(t *models.Tunables) { t.SoftRules.GraduationYear.Min = math.Inf(-1) }, KeyGraduationYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposed := DefaultTunables()
			tt.mutate(&proposed)

			err := Validate(proposed)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if _, ok := cfgErr.Fields[tt.wantKey]; !ok {
				t.Errorf("missing error for %q in %v", tt.wantKey, cfgErr.Fields)
			}
			if len(cfgErr.Fields) != 1 {
				t.Errorf("expected exactly one error, got %v", cfgErr.Fields)
			}
		})
	}
}

func TestValidateBoundaries(t *testing.T) {
	proposed := DefaultTunables()
	proposed.SoftRules.Percentage.Min = 100
	proposed.SoftRules.CGPA.Min = proposed.SoftRules.CGPA.Max
	proposed.SoftRules.Age.Min = 0
	proposed.SoftRules.GraduationYear.Min = proposed.SoftRules.GraduationYear.Max
	proposed.ExceptionPolicy.MaxExceptions = 0
	proposed.ExceptionPolicy.RationaleMinLength = 0

	if err := Validate(proposed); err != nil {
		t.Errorf("inclusive bounds should pass: %v", err)
	}
}

func TestValidateReportsAllFields(t *testing.T) {
	proposed := DefaultTunables()
	proposed.SoftRules.Percentage.Min = 150
	proposed.SoftRules.GraduationYear.Min = 2030

	err := Validate(proposed)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(cfgErr.Fields) != 2 {
		t.Errorf("expected 2 errors, got %v", cfgErr.Fields)
	}
	if !strings.Contains(err.Error(), "graduationYear: ") || !strings.Contains(err.Error(), "percentage: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStoreCommitRejectsNonFinite(t *testing.T) {
	store, err := NewStore(MustDefaultStrict(), DefaultTunables(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	before := store.Current()

	proposed := DefaultTunables()
	proposed.SoftRules.CGPA.Min = math.NaN()

	_, err = store.Commit(proposed)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if _, ok := cfgErr.Fields[KeyCGPA]; !ok {
		t.Errorf("error not keyed on cgpa: %v", cfgErr.Fields)
	}
	if store.Current() != before {
		t.Error("schema must be unchanged after rejected commit")
	}
}

func TestStoreCommitRejectsInvalid(t *testing.T) {
	store, err := NewStore(MustDefaultStrict(), DefaultTunables(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	before := store.Current()

	proposed := DefaultTunables()
	proposed.SoftRules.Percentage.Min = 150

	_, err = store.Commit(proposed)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if _, ok := cfgErr.Fields[KeyPercentage]; !ok {
		t.Errorf("error not keyed on percentage: %v", cfgErr.Fields)
	}
	if store.Current() != before {
		t.Error("schema must be unchanged after rejected commit")
	}
	if store.Current().Soft.Percentage.Min != 60 {
		t.Errorf("percentage.min = %v, want 60", store.Current().Soft.Percentage.Min)
	}
}

func TestStoreCommitSwapsSchema(t *testing.T) {
	store, err := NewStore(MustDefaultStrict(), DefaultTunables(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	old := store.Current()

	proposed := DefaultTunables()
	proposed.SoftRules.Age.Min = 21

	changes, err := store.Commit(proposed)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	if changes[0].Path != "softRules.age.min" {
		t.Errorf("change path = %q", changes[0].Path)
	}
	if !strings.Contains(changes[0].Summary, "set to 21") {
		t.Errorf("summary = %q", changes[0].Summary)
	}

	if store.Current().Soft.Age.Min != 21 {
		t.Errorf("age.min = %v, want 21", store.Current().Soft.Age.Min)
	}
	if old.Soft.Age.Min != 18 {
		t.Error("previous snapshot must not be mutated")
	}
	if store.Current().Strict != old.Strict {
		t.Error("strict segment must be carried over")
	}
}

func TestDiffNoChanges(t *testing.T) {
	changes, err := Diff(DefaultTunables(), DefaultTunables())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %+v", changes)
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.yaml")
	p := NewFilePersister(path)

	loaded, err := p.Load()
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if loaded.SoftRules.Age.Min != 18 {
		t.Errorf("missing file should yield defaults, got age.min %v", loaded.SoftRules.Age.Min)
	}

	store, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	proposed := store.Current().Tunables()
	proposed.ExceptionPolicy.MaxExceptions = 3
	proposed.ExceptionPolicy.RationaleKeywords = []string{"merit"}
	if _, err := store.Commit(proposed); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reopened, err := Open(NewFilePersister(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	policy := reopened.Current().Policy
	if policy.MaxExceptions != 3 {
		t.Errorf("maxExceptions = %d, want 3", policy.MaxExceptions)
	}
	if len(policy.RationaleKeywords) != 1 || policy.RationaleKeywords[0] != "merit" {
		t.Errorf("keywords = %v", policy.RationaleKeywords)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	partial := "softRules:\n  age:\n    min: 20\n    max: 30\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewFilePersister(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SoftRules.Age.Min != 20 || got.SoftRules.Age.Max != 30 {
		t.Errorf("age = [%v,%v], want [20,30]", got.SoftRules.Age.Min, got.SoftRules.Age.Max)
	}
	if got.SoftRules.Age.Message == "" {
		t.Error("message absent from file should keep its default")
	}
	if got.ExceptionPolicy.MaxExceptions != 2 {
		t.Errorf("policy should keep defaults, got maxExceptions %d", got.ExceptionPolicy.MaxExceptions)
	}
}

func TestOpenRejectsInvalidPersistedRules(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{"out of bounds", "softRules:\n  percentage:\n    min: 150\n", KeyPercentage},
		{"nan threshold", "softRules:\n  percentage:\n    min: .nan\n", KeyPercentage},
		{"nan range", "softRules:\n  cgpa:\n    min: .nan\n", KeyCGPA},
		{"infinite max", "softRules:\n  age:\n    max: .inf\n", KeyAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := Open(NewFilePersister(path))
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if _, ok := cfgErr.Fields[tt.wantKey]; !ok {
				t.Errorf("missing error for %q in %v", tt.wantKey, cfgErr.Fields)
			}
		})
	}
}

func TestMergeOverDefaultsJSON(t *testing.T) {
	got, err := MergeOverDefaults([]byte(`{"exceptionPolicy":{"maxExceptions":5}}`))
	if err != nil {
		t.Fatalf("MergeOverDefaults: %v", err)
	}
	if got.ExceptionPolicy.MaxExceptions != 5 {
		t.Errorf("maxExceptions = %d, want 5", got.ExceptionPolicy.MaxExceptions)
	}
	if got.ExceptionPolicy.RationaleMinLength != 30 {
		t.Errorf("rationaleMinLength = %d, want 30", got.ExceptionPolicy.RationaleMinLength)
	}
}

func mustSchema(t *testing.T, strict *StrictSet, tun models.Tunables) *Schema {
	t.Helper()
	s, err := NewSchema(strict, tun)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestFingerprint(t *testing.T) {
	strict := MustDefaultStrict()
	a := mustSchema(t, strict, DefaultTunables())
	b := mustSchema(t, strict, DefaultTunables())

	if !strings.HasPrefix(a.Version, "sha256:") || len(a.Version) != len("sha256:")+64 {
		t.Fatalf("version = %q", a.Version)
	}
	if a.Version != b.Version {
		t.Error("equal schemas must share a version")
	}

	edited := DefaultTunables()
	edited.ExceptionPolicy.RationaleKeywords = append(edited.ExceptionPolicy.RationaleKeywords, "mentorship")
	if mustSchema(t, strict, edited).Version == a.Version {
		t.Error("an edit must change the version")
	}
}

func TestJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	j := NewJournal(path)

	entries, err := j.Entries()
	if err != nil || len(entries) != 0 {
		t.Fatalf("empty journal = %v, %v", entries, err)
	}

	first := JournalEntry{
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Action:    "set",
		From:      "sha256:aaa",
		To:        "sha256:bbb",
		Changes:   []Change{{Op: "replace", Path: "softRules.percentage.min", Value: 50.0, Summary: "softRules.percentage.min set to 50"}},
	}
	second := JournalEntry{Timestamp: first.Timestamp.Add(time.Hour), Action: "reset", From: "sha256:bbb", To: "sha256:aaa"}

	if err := j.Append(first); err != nil {
		t.Fatal(err)
	}
	// a torn line is skipped, not fatal
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("{\"ts\":\n")
	f.Close()
	if err := j.Append(second); err != nil {
		t.Fatal(err)
	}

	entries, err = j.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Action != "reset" || entries[1].Action != "set" {
		t.Errorf("order = %s, %s; want most recent first", entries[0].Action, entries[1].Action)
	}
	if entries[1].SchemaVersion != JournalSchemaVersion || len(entries[1].Changes) != 1 {
		t.Errorf("entry = %+v", entries[1])
	}
}

func TestMergeOver(t *testing.T) {
	base := DefaultTunables()
	base.SoftRules.Age.Max = 40

	got, err := MergeOver(base, []byte("softRules:\n  age:\n    min: 21\n"))
	if err != nil {
		t.Fatalf("MergeOver: %v", err)
	}
	if got.SoftRules.Age.Min != 21 || got.SoftRules.Age.Max != 40 {
		t.Errorf("age = [%v,%v], want [21,40]", got.SoftRules.Age.Min, got.SoftRules.Age.Max)
	}
	if base.SoftRules.Age.Min != 18 {
		t.Error("base must not be modified")
	}
}
