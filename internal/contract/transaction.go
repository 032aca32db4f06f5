package contract

import (
	"petchain/internal/petstate"
	"petchain/pkg/domain"
)

// Transaction is a fully assembled ledger transaction as handed over by the
// ledger runtime. Signers holds the keys whose signatures the runtime has
// already verified; the contract only tests membership.
type Transaction struct {
	Inputs   []petstate.ContractState
	Outputs  []petstate.ContractState
	Commands []CommandType
	Signers  domain.KeySet
}

// Command returns the single declared command, or false when there is not
// exactly one.
func (tx Transaction) Command() (CommandType, bool) {
	if len(tx.Commands) != 1 {
		return "", false
	}
	return tx.Commands[0], true
}

// asPet unwraps a state into a PetState.
func asPet(state petstate.ContractState) (petstate.PetState, bool) {
	switch s := state.(type) {
	case petstate.PetState:
		return s, true
	case *petstate.PetState:
		if s == nil {
			return petstate.PetState{}, false
		}
		return *s, true
	default:
		return petstate.PetState{}, false
	}
}

// countPets counts the states that are pet records.
func countPets(states []petstate.ContractState) int {
	n := 0
	for _, s := range states {
		if _, ok := asPet(s); ok {
			n++
		}
	}
	return n
}

// firstPet returns the first state as a PetState, or the zero record.
func firstPet(states []petstate.ContractState) petstate.PetState {
	if len(states) == 0 {
		return petstate.PetState{}
	}
	pet, _ := asPet(states[0])
	return pet
}
