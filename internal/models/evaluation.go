package models

// Outcome of an eligibility determination
type Outcome string

const (
	OutcomeEligible          Outcome = "Eligible"
	OutcomeExceptionApproved Outcome = "Exception Approved"
	OutcomeBlocked           Outcome = "Blocked"
)

// Label used in exports
func (o Outcome) Label() string {
	if o == OutcomeExceptionApproved {
		return "Eligible with Exceptions"
	}
	return string(o)
}

// Violations maps field name to message
type Violations map[string]string

// Clone copies the map, never returning nil
func (v Violations) Clone() Violations {
	out := make(Violations, len(v))
	for k, msg := range v {
		out[k] = msg
	}
	return out
}

// Overrides maps soft-rule key to its exception flag
type Overrides map[string]bool

// Clone copies the map, never returning nil
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for k, on := range o {
		out[k] = on
	}
	return out
}

// Enabled lists keys set to true
func (o Overrides) Enabled() []string {
	var keys []string
	for k, on := range o {
		if on {
			keys = append(keys, k)
		}
	}
	return keys
}

// RationaleCode identifies why a rationale was rejected
type RationaleCode string

const (
	RationaleTooShort             RationaleCode = "rationaleTooShort"
	RationaleMissingJustification RationaleCode = "rationaleMissingJustification"
)

// RationaleError explains a rejected rationale
type RationaleError struct {
	Code    RationaleCode `json:"code"`
	Message string        `json:"message"`
}

// GateResult from the exception gate
type GateResult struct {
	RationaleError      *RationaleError `json:"rationaleError,omitempty"`
	AllOverridden       bool            `json:"allOverridden"`
	ExceptionsUsed      int             `json:"exceptionsUsed"`
	AnyExceptionEnabled bool            `json:"anyExceptionEnabled"`
}

// EvaluationResult is the transient outcome of one pipeline run
type EvaluationResult struct {
	StrictViolations      Violations      `json:"strictViolations"`
	SoftViolations        Violations      `json:"softViolations"`
	RationaleError        *RationaleError `json:"rationaleError,omitempty"`
	IsReadyToSubmit       bool            `json:"isReadyToSubmit"`
	Outcome               Outcome         `json:"outcome"`
	ExceptionsUsed        int             `json:"exceptionsUsed"`
	ManagerReviewRequired bool            `json:"managerReviewRequired"`
	Overrides             Overrides       `json:"overrides"`
	Age                   *int            `json:"age,omitempty"`
}
