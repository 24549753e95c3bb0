package rules

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
)

// StrictKind selects how a strict rule is checked
type StrictKind string

const (
	// KindPattern: required-ness, minimum trimmed length and a regular expression.
	KindPattern StrictKind = "pattern"
	// KindEnum: value must be one of Allowed.
	KindEnum StrictKind = "enum"
	// KindExpr: a CEL expression over the candidate that must hold.
	KindExpr StrictKind = "expr"
)

// StrictRule is the uncompiled definition of a mandatory rule.
//
// Expr rules see two variables: candidate (map of field name to raw value)
// and rule (Params).
type StrictRule struct {
	Field     string
	Kind      StrictKind
	Required  bool
	MinLength int
	Pattern   string
	Allowed   []string
	Expr      string
	Params    map[string]any
	Message   string
}

// CompiledRule is a StrictRule ready for evaluation
type CompiledRule struct {
	StrictRule
	re  *regexp.Regexp
	prg cel.Program
}

// MatchString reports whether v satisfies the rule pattern.
// Rules without a pattern match everything.
func (r *CompiledRule) MatchString(v string) bool {
	if r.re == nil {
		return true
	}
	return r.re.MatchString(v)
}

// Allows reports whether v is in the allowed enumeration
func (r *CompiledRule) Allows(v string) bool {
	for _, a := range r.Allowed {
		if a == v {
			return true
		}
	}
	return false
}

// Holds evaluates the rule expression against the candidate fields
func (r *CompiledRule) Holds(fields map[string]string) (bool, error) {
	if r.prg == nil {
		return true, nil
	}
	params := r.Params
	if params == nil {
		params = map[string]any{}
	}
	out, _, err := r.prg.Eval(map[string]any{
		"candidate": fields,
		"rule":      params,
	})
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Field, err)
	}
	passed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q: expression must return boolean, got %T", r.Field, out.Value())
	}
	return passed, nil
}

// StrictSet is the immutable, compiled strict segment of the schema
type StrictSet struct {
	rules []*CompiledRule
	index map[string]*CompiledRule
}

// CompileStrict validates and compiles rule definitions. Order is preserved.
func CompileStrict(defs []StrictRule) (*StrictSet, error) {
	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("rule", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	set := &StrictSet{index: make(map[string]*CompiledRule, len(defs))}
	for _, def := range defs {
		if def.Field == "" {
			return nil, fmt.Errorf("strict rule without field")
		}
		if _, dup := set.index[def.Field]; dup {
			return nil, fmt.Errorf("duplicate strict rule for %q", def.Field)
		}

		c := &CompiledRule{StrictRule: def}
		c.Allowed = append([]string(nil), def.Allowed...)

		switch def.Kind {
		case KindPattern:
			if def.Pattern != "" {
				re, err := regexp.Compile(def.Pattern)
				if err != nil {
					return nil, fmt.Errorf("rule %q: bad pattern: %w", def.Field, err)
				}
				c.re = re
			}
		case KindEnum:
			if len(def.Allowed) == 0 {
				return nil, fmt.Errorf("rule %q: enum without allowed values", def.Field)
			}
		case KindExpr:
			ast, issues := env.Compile(def.Expr)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("rule %q: CEL compile error: %w", def.Field, issues.Err())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("rule %q: CEL program error: %w", def.Field, err)
			}
			c.prg = prg
		default:
			return nil, fmt.Errorf("rule %q: unknown kind %q", def.Field, def.Kind)
		}

		set.rules = append(set.rules, c)
		set.index[def.Field] = c
	}
	return set, nil
}

// Rules in definition order
func (s *StrictSet) Rules() []*CompiledRule {
	return s.rules
}

// Rule by field name
func (s *StrictSet) Rule(field string) (*CompiledRule, bool) {
	r, ok := s.index[field]
	return r, ok
}

// RequiredFields lists the fields that must be non-empty
func (s *StrictSet) RequiredFields() []string {
	var out []string
	for _, r := range s.rules {
		if r.Required {
			out = append(out, r.Field)
		}
	}
	return out
}
