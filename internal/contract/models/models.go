package models

import (
	"time"

	"github.com/google/uuid"

	"petchain/internal/contract"
)

// Result is a verdict as returned to the ledger runtime.
type Result struct {
	ID          uuid.UUID
	Fingerprint string
	Command     contract.CommandType
	Accepted    bool
	RuleID      string
	Reason      string
	Kind        contract.Kind
	VerifiedAt  time.Time
	// Cached is true when the verdict came from the verdict cache rather than
	// a fresh evaluation. Both are identical by construction.
	Cached bool
}

// CachedVerdict is the cacheable part of a verdict, keyed by fingerprint.
type CachedVerdict struct {
	Command  contract.CommandType `json:"command"`
	Accepted bool                 `json:"accepted"`
	RuleID   string               `json:"rule_id,omitempty"`
	Reason   string               `json:"reason,omitempty"`
	Kind     contract.Kind        `json:"kind,omitempty"`
}

// FromVerdict captures an engine verdict for caching.
func FromVerdict(v contract.Verdict) CachedVerdict {
	cv := CachedVerdict{
		Command:  v.Command,
		Accepted: v.Accepted(),
		Reason:   v.Reason(),
		Kind:     v.Kind(),
	}
	if v.Violation != nil {
		cv.RuleID = v.Violation.RuleID
	}
	return cv
}
