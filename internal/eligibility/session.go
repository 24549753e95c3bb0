package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/rules"
)

// State of a candidate session
type State string

const (
	StateEditing       State = "editing"
	StateReadyToSubmit State = "ready_to_submit"
	StateSubmitted     State = "submitted"
)

var (
	ErrSessionSubmitted = errors.New("session already submitted; reset to start a new candidate")
	ErrUnknownField     = errors.New("unknown candidate field")
	ErrInvalidValue     = errors.New("invalid field value")
)

// SchemaSource yields the schema to evaluate against
type SchemaSource interface {
	Current() *rules.Schema
}

// Session holds the form state for one candidate and re-runs the whole
// pipeline after every mutation. It is not safe for concurrent use.
type Session struct {
	schemas   SchemaSource
	now       func() time.Time
	asOf      time.Time
	input     models.CandidateInput
	overrides models.Overrides
	rationale string
	result    models.EvaluationResult
	state     State
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithClock replaces time.Now for both age and the record timestamp
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithAsOf pins the date age is computed on. The record timestamp still
// comes from the clock.
func WithAsOf(date time.Time) SessionOption {
	return func(s *Session) {
		s.asOf = date
	}
}

// NewSession starts in Editing with empty input
func NewSession(schemas SchemaSource, opts ...SessionOption) *Session {
	s := &Session{
		schemas: schemas,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset discards all transient state
func (s *Session) Reset() {
	s.input = models.CandidateInput{}
	s.overrides = models.Overrides{}
	s.rationale = ""
	s.state = StateEditing
	s.recompute()
}

// Load replaces the whole candidate input
func (s *Session) Load(input models.CandidateInput) error {
	if s.state == StateSubmitted {
		return ErrSessionSubmitted
	}
	if input.ScoreType != "" && !input.ScoreType.Valid() {
		return fmt.Errorf("%w: scoreType %q", ErrInvalidValue, input.ScoreType)
	}
	s.input = input
	s.recompute()
	return nil
}

// SetField assigns one candidate field by its wire name
func (s *Session) SetField(field, value string) error {
	if s.state == StateSubmitted {
		return ErrSessionSubmitted
	}
	if field == models.FieldScoreType && value != "" && !models.ScoreType(value).Valid() {
		return fmt.Errorf("%w: scoreType %q", ErrInvalidValue, value)
	}
	if !s.input.Set(field, value) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.recompute()
	return nil
}

// SetOverride flags a soft rule for exception. Flags on fields not currently
// in violation are kept but ignored by evaluation.
func (s *Session) SetOverride(field string, on bool) error {
	if s.state == StateSubmitted {
		return ErrSessionSubmitted
	}
	if on {
		s.overrides[field] = true
	} else {
		delete(s.overrides, field)
	}
	s.recompute()
	return nil
}

// ToggleOverride flips a soft rule override
func (s *Session) ToggleOverride(field string) error {
	return s.SetOverride(field, !s.overrides[field])
}

// SetRationale replaces the justification text
func (s *Session) SetRationale(text string) error {
	if s.state == StateSubmitted {
		return ErrSessionSubmitted
	}
	s.rationale = text
	s.recompute()
	return nil
}

// Recorder accepts submitted records, typically an audit store
type Recorder interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// Submit produces the audit record, hands it to log and closes the session.
// If log rejects the record the session stays open. log may be nil.
func (s *Session) Submit(ctx context.Context, log Recorder) (models.AuditRecord, error) {
	if s.state == StateSubmitted {
		return models.AuditRecord{}, ErrSessionSubmitted
	}

	schema := s.schemas.Current()
	req := s.request()
	req.SubmittedAt = s.now()
	result := Evaluate(schema, req)
	s.result = result

	rec, err := BuildRecord(NewRecordID(), req.SubmittedAt, req, result, schema.Policy)
	if err != nil {
		s.state = StateEditing
		return models.AuditRecord{}, err
	}
	rec.RulesVersion = schema.Version
	if log != nil {
		if err := log.Append(ctx, rec); err != nil {
			s.state = StateReadyToSubmit
			return models.AuditRecord{}, fmt.Errorf("failed to record submission: %w", err)
		}
	}
	s.state = StateSubmitted
	return rec, nil
}

// Result of the latest pipeline run
func (s *Session) Result() models.EvaluationResult {
	return s.result
}

// State of the session
func (s *Session) State() State {
	return s.state
}

// Input currently held
func (s *Session) Input() models.CandidateInput {
	return s.input
}

// Rationale currently held
func (s *Session) Rationale() string {
	return s.rationale
}

func (s *Session) request() Request {
	asOf := s.asOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	return Request{
		Input:     s.input,
		Overrides: s.overrides.Clone(),
		Rationale: s.rationale,
		AsOf:      asOf,
	}
}

func (s *Session) recompute() {
	s.result = Evaluate(s.schemas.Current(), s.request())
	if s.result.IsReadyToSubmit {
		s.state = StateReadyToSubmit
	} else {
		s.state = StateEditing
	}
}
