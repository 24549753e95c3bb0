package rules

import (
	"fmt"
	"strings"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/wI2L/jsondiff"
)

// Change is one field-level difference between two tunables versions
type Change struct {
	Op      string `json:"op"`
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Summary string `json:"summary"`
}

// Diff lists what a commit of next over prev would change
func Diff(prev, next models.Tunables) ([]Change, error) {
	patch, err := jsondiff.Compare(prev, next)
	if err != nil {
		return nil, fmt.Errorf("failed to diff rule configuration: %w", err)
	}

	changes := make([]Change, 0, len(patch))
	for _, op := range patch {
		c := Change{
			Op:    op.Type,
			Path:  dottedPath(op.Path),
			Value: op.Value,
		}
		c.Summary = summarize(c)
		if c.Summary == "" {
			continue
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// dottedPath turns /softRules/age/min into softRules.age.min
func dottedPath(pointer string) string {
	p := strings.TrimPrefix(pointer, "/")
	p = strings.ReplaceAll(p, "~1", "/")
	p = strings.ReplaceAll(p, "~0", "~")
	return strings.ReplaceAll(p, "/", ".")
}

func summarize(c Change) string {
	switch c.Op {
	case jsondiff.OperationReplace:
		return fmt.Sprintf("%s set to %v", c.Path, c.Value)
	case jsondiff.OperationAdd:
		return fmt.Sprintf("%s added (%v)", c.Path, c.Value)
	case jsondiff.OperationRemove:
		return fmt.Sprintf("%s removed", c.Path)
	default:
		return ""
	}
}
