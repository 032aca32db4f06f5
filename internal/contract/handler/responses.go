package handler

import (
	"time"

	"petchain/internal/contract"
	"petchain/internal/contract/models"
)

// VerdictResponse is one verdict on the wire. A rejection is still a 200:
// the verdict is data, not a transport failure.
type VerdictResponse struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Command     string    `json:"command,omitempty"`
	Accepted    bool      `json:"accepted"`
	RuleID      string    `json:"rule_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	VerifiedAt  time.Time `json:"verified_at"`
	Cached      bool      `json:"cached"`
}

// BatchResponse is the HTTP response for POST /v1/transitions/verify/batch.
type BatchResponse struct {
	Results  []*VerdictResponse `json:"results"`
	Accepted int                `json:"accepted"`
	Rejected int                `json:"rejected"`
}

// RuleResponse describes one rule in evaluation order.
type RuleResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// CommandRulesResponse lists the rules evaluated for one command.
type CommandRulesResponse struct {
	Command string         `json:"command"`
	Rules   []RuleResponse `json:"rules"`
}

// RulesResponse is the HTTP response for GET /v1/contract/rules.
type RulesResponse struct {
	Contract string                 `json:"contract"`
	Commands []CommandRulesResponse `json:"commands"`
}

// FromResult converts a service result to an HTTP response.
func FromResult(r *models.Result) *VerdictResponse {
	return &VerdictResponse{
		ID:          r.ID.String(),
		Fingerprint: r.Fingerprint,
		Command:     string(r.Command),
		Accepted:    r.Accepted,
		RuleID:      r.RuleID,
		Reason:      r.Reason,
		Kind:        string(r.Kind),
		VerifiedAt:  r.VerifiedAt,
		Cached:      r.Cached,
	}
}

// FromResults converts batch results, keeping request order.
func FromResults(results []*models.Result) *BatchResponse {
	resp := &BatchResponse{Results: make([]*VerdictResponse, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, FromResult(r))
		if r.Accepted {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}
	return resp
}

// FromRules describes the contract's rule lists.
func FromRules() *RulesResponse {
	resp := &RulesResponse{Contract: contract.ContractID}
	for _, cmd := range contract.Commands() {
		rules := contract.Rules(cmd)
		cr := CommandRulesResponse{Command: string(cmd), Rules: make([]RuleResponse, 0, len(rules))}
		for _, rule := range rules {
			cr.Rules = append(cr.Rules, RuleResponse{
				ID:     rule.RuleID,
				Kind:   string(rule.Kind),
				Reason: rule.Reason,
			})
		}
		resp.Commands = append(resp.Commands, cr)
	}
	return resp
}
