// Package eligibility is the determination engine: strict and soft
// validation, the exception gate and the outcome resolver. Everything here is
// a pure function of its arguments.
package eligibility

import (
	"time"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/rules"
)

// Request is everything one evaluation pass depends on besides the schema
type Request struct {
	Input     models.CandidateInput
	Overrides models.Overrides
	Rationale string
	// AsOf is the evaluation date used for age. Zero means now.
	AsOf time.Time
	// SubmittedAt stamps the audit record. Zero means now; AsOf never does.
	SubmittedAt time.Time
}

// Evaluate runs the full pipeline. Re-running it on the same schema and
// request yields an identical result.
func Evaluate(schema *rules.Schema, req Request) models.EvaluationResult {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	strict := EvaluateStrict(req.Input, schema.Strict)
	soft := EvaluateSoft(req.Input, schema.Soft, asOf)

	// flags on fields that are not in violation carry no weight
	overrides := models.Overrides{}
	for field, on := range req.Overrides {
		if _, violated := soft[field]; on && violated {
			overrides[field] = true
		}
	}

	gate := EvaluateExceptions(soft, overrides, req.Rationale, schema.Policy)
	res := Resolve(strict, soft, gate, schema.Policy, requiredFilled(req.Input, schema.Strict))

	result := models.EvaluationResult{
		StrictViolations:      strict,
		SoftViolations:        soft,
		RationaleError:        gate.RationaleError,
		IsReadyToSubmit:       res.ReadyToSubmit,
		Outcome:               res.Outcome,
		ExceptionsUsed:        gate.ExceptionsUsed,
		ManagerReviewRequired: res.ManagerReviewRequired,
		Overrides:             overrides,
	}
	if age, ok := AgeOn(req.Input.DateOfBirth, asOf); ok {
		result.Age = &age
	}
	return result
}

// Submit evaluates req and, when ready, builds its audit record stamped at
// SubmittedAt and tagged with the schema version
func Submit(schema *rules.Schema, req Request) (models.AuditRecord, models.EvaluationResult, error) {
	at := req.SubmittedAt
	if at.IsZero() {
		at = time.Now()
	}
	result := Evaluate(schema, req)
	rec, err := BuildRecord(NewRecordID(), at, req, result, schema.Policy)
	if err != nil {
		return models.AuditRecord{}, result, err
	}
	rec.RulesVersion = schema.Version
	return rec, result, nil
}
