package eligibility

import (
	"errors"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/google/uuid"
)

// ErrNotReady is returned when a record is requested for an evaluation that
// still has unresolved blocking conditions.
var ErrNotReady = errors.New("evaluation is not ready to submit")

// Resolution is the outcome resolver's verdict
type Resolution struct {
	Outcome               models.Outcome
	ManagerReviewRequired bool
	ReadyToSubmit         bool
}

// Resolve combines validator and gate results. Strict violations always force
// Blocked, whatever the gate says.
func Resolve(strict, soft models.Violations, gate models.GateResult, policy models.ExceptionPolicy, requiredFilled bool) Resolution {
	res := Resolution{
		ManagerReviewRequired: gate.ExceptionsUsed > policy.MaxExceptions,
	}

	rationaleOK := !gate.AnyExceptionEnabled || gate.RationaleError == nil
	res.ReadyToSubmit = len(strict) == 0 && requiredFilled && gate.AllOverridden && rationaleOK

	switch {
	case len(strict) > 0:
		res.Outcome = models.OutcomeBlocked
	case gate.ExceptionsUsed > 0:
		res.Outcome = models.OutcomeExceptionApproved
	default:
		res.Outcome = models.OutcomeEligible
	}
	return res
}

// NewRecordID returns an id like AG-3F9A0C1B2
func NewRecordID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AG-" + strings.ToUpper(hex[:9])
}

// BuildRecord snapshots a ready evaluation. The returned record shares no
// maps with its inputs.
func BuildRecord(id string, at time.Time, req Request, result models.EvaluationResult, policy models.ExceptionPolicy) (models.AuditRecord, error) {
	if !result.IsReadyToSubmit {
		return models.AuditRecord{}, ErrNotReady
	}

	rec := models.AuditRecord{
		ID:                    id,
		Timestamp:             at,
		Candidate:             req.Input,
		Outcome:               result.Outcome,
		StrictViolations:      result.StrictViolations.Clone(),
		SoftViolations:        result.SoftViolations.Clone(),
		ExceptionsUsed:        result.ExceptionsUsed,
		Overrides:             result.Overrides.Clone(),
		Rationale:             req.Rationale,
		ManagerReviewRequired: result.ManagerReviewRequired,
	}
	rec.Candidate.ScoreType = req.Input.EffectiveScoreType()
	if result.Age != nil {
		age := *result.Age
		rec.Age = &age
	}
	if rec.ManagerReviewRequired {
		rec.ManagerReviewMessage = policy.ManagerReviewMessage
	}
	return rec, nil
}
