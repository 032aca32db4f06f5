// Package contract decides whether a proposed pet transaction may enter the
// ledger.
//
// Verification is pure: no I/O, no shared state, no clock. The same
// transaction always yields the same verdict, so any number of ledger nodes
// (or goroutines) can verify independently and agree.
package contract

// ContractID names this contract on the ledger.
const ContractID = "net.petchain.contracts.PetContract"

// Verdict is the outcome of verifying one transaction. A rejected verdict
// carries exactly one violation: the first rule that failed.
type Verdict struct {
	Command   CommandType
	Violation *Violation
}

// Accepted reports whether the transaction is admissible.
func (v Verdict) Accepted() bool {
	return v.Violation == nil
}

// Reason returns the rejection reason, or "" when accepted.
func (v Verdict) Reason() string {
	if v.Violation == nil {
		return ""
	}
	return v.Violation.Reason
}

// Kind returns the class of the violated rule, or "" when accepted.
func (v Verdict) Kind() Kind {
	if v.Violation == nil {
		return ""
	}
	return v.Violation.Kind
}

// Err returns the violation as an error, or nil when accepted.
func (v Verdict) Err() error {
	if v.Violation == nil {
		return nil
	}
	return v.Violation
}

// Evaluate applies the command dispatch and the command's rule chain.
func Evaluate(tx Transaction) Verdict {
	cmd, ok := tx.Command()
	if !ok {
		return Verdict{Violation: ErrAmbiguousCommand}
	}

	rules, ok := rulesFor(cmd)
	if !ok {
		return Verdict{Command: cmd, Violation: ErrUnrecognizedCommand}
	}

	return Verdict{Command: cmd, Violation: applyRules(tx, rules)}
}

// Verify returns nil if tx is admissible, otherwise the *Violation of the
// first failed rule.
func Verify(tx Transaction) error {
	return Evaluate(tx).Err()
}
