// Package audit records contract verdicts for later review.
//
// Every verdict the verifier hands back to a ledger runtime is an audit
// event. Events are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names what happened to a transaction.
type Action string

const (
	ActionTransitionAccepted Action = "transition_accepted"
	ActionTransitionRejected Action = "transition_rejected"
)

// Decision is the recorded outcome.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Event captures one verdict.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	Command     string    `json:"command"`
	Decision    Decision  `json:"decision"`
	RuleID      string    `json:"rule_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	RequestID   string    `json:"request_id,omitempty"`
	// Parties lists the owning keys of every party named by the transaction's
	// states, so events can be routed to the participants.
	Parties []string `json:"parties,omitempty"`
}

// ActionFor maps an acceptance flag to its action.
func ActionFor(accepted bool) Action {
	if accepted {
		return ActionTransitionAccepted
	}
	return ActionTransitionRejected
}

// DecisionFor maps an acceptance flag to its decision.
func DecisionFor(accepted bool) Decision {
	if accepted {
		return DecisionAccepted
	}
	return DecisionRejected
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is what domain services depend on to record events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
