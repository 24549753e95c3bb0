package models

import "time"

// AuditRecord is an immutable snapshot of one submitted determination
type AuditRecord struct {
	ID                    string         `json:"id"`
	Timestamp             time.Time      `json:"timestamp"`
	Candidate             CandidateInput `json:"candidate"`
	Age                   *int           `json:"age,omitempty"`
	Outcome               Outcome        `json:"outcome"`
	StrictViolations      Violations     `json:"strictRuleResults"`
	SoftViolations        Violations     `json:"softRuleViolations"`
	ExceptionsUsed        int            `json:"exceptionsUsed"`
	Overrides             Overrides      `json:"overrides"`
	Rationale             string         `json:"rationale"`
	ManagerReviewRequired bool           `json:"managerReviewRequired"`
	ManagerReviewMessage  string         `json:"managerReviewMessage,omitempty"`
	RulesVersion          string         `json:"rulesVersion,omitempty"`
}
