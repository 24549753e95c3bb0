package models

// Range threshold with inclusive bounds
type Range struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Message string  `json:"errorMessage" yaml:"errorMessage"`
}

// Contains reports min <= v <= max
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Threshold lower bound only
type Threshold struct {
	Min     float64 `json:"min" yaml:"min"`
	Message string  `json:"errorMessage" yaml:"errorMessage"`
}

// SoftRules are the advisory thresholds. They can be edited and persisted.
type SoftRules struct {
	Age            Range     `json:"age" yaml:"age"`
	GraduationYear Range     `json:"graduationYear" yaml:"graduationYear"`
	Percentage     Threshold `json:"percentage" yaml:"percentage"`
	CGPA           Range     `json:"cgpa" yaml:"cgpa"`
	ScreeningScore Range     `json:"screeningScore" yaml:"screeningScore"`
}

// ExceptionPolicy governs overrides of soft violations
type ExceptionPolicy struct {
	MaxExceptions        int      `json:"maxExceptions" yaml:"maxExceptions"`
	RationaleMinLength   int      `json:"rationaleMinLength" yaml:"rationaleMinLength"`
	RationaleKeywords    []string `json:"rationaleKeywords" yaml:"rationaleKeywords"`
	ManagerReviewMessage string   `json:"managerReviewMessage" yaml:"managerReviewMessage"`
}

// Tunables is the serializable part of the rule schema
type Tunables struct {
	SoftRules       SoftRules       `json:"softRules" yaml:"softRules"`
	ExceptionPolicy ExceptionPolicy `json:"exceptionPolicy" yaml:"exceptionPolicy"`
}

// Clone deep-copies the keyword slice
func (t Tunables) Clone() Tunables {
	out := t
	out.ExceptionPolicy.RationaleKeywords = append([]string(nil), t.ExceptionPolicy.RationaleKeywords...)
	return out
}
