package rules

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/admitguard/admitguard/internal/models"
)

// fingerprintDoc is the canonical form hashed into a schema version.
// encoding/json emits struct fields in declaration order and map keys
// sorted, so equal schemas hash equal.
type fingerprintDoc struct {
	Strict   []StrictRule    `json:"strict"`
	Tunables models.Tunables `json:"tunables"`
}

// Fingerprint identifies one schema version as "sha256:<hex>"
func Fingerprint(strict *StrictSet, t models.Tunables) (string, error) {
	doc := fingerprintDoc{Tunables: t}
	if strict != nil {
		for _, r := range strict.Rules() {
			doc.Strict = append(doc.Strict, r.StrictRule)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint rules: %w", err)
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data)), nil
}
