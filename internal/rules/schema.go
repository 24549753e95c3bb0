package rules

import "github.com/admitguard/admitguard/internal/models"

// Schema is one immutable version of the full rule set.
// Evaluations read it and never mutate it.
type Schema struct {
	Strict *StrictSet
	Soft   models.SoftRules
	Policy models.ExceptionPolicy
	// Version fingerprints Strict plus the tunables
	Version string
}

// NewSchema pairs a compiled strict segment with a copy of the tunables.
// It fails when the pair cannot be fingerprinted.
func NewSchema(strict *StrictSet, t models.Tunables) (*Schema, error) {
	t = t.Clone()
	version, err := Fingerprint(strict, t)
	if err != nil {
		return nil, err
	}
	return &Schema{
		Strict:  strict,
		Soft:    t.SoftRules,
		Policy:  t.ExceptionPolicy,
		Version: version,
	}, nil
}

// Tunables returns a copy of the editable segment
func (s *Schema) Tunables() models.Tunables {
	return models.Tunables{
		SoftRules:       s.Soft,
		ExceptionPolicy: s.Policy,
	}.Clone()
}

// Default schema: default strict rules and built-in tunables
func Default() (*Schema, error) {
	strict, err := DefaultStrict()
	if err != nil {
		return nil, err
	}
	return NewSchema(strict, DefaultTunables())
}
