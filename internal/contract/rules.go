package contract

import "petchain/internal/petstate"

// Rule is one admission check: the transaction is admissible only if Holds
// returns true. Holds must be deterministic and side-effect free.
type Rule struct {
	Violation *Violation
	Holds     func(Transaction) bool
}

// applyRules runs rules in order and returns the first violation.
// Rule order is the evaluation order and fixes the reported reason, so it
// must never change between releases.
func applyRules(tx Transaction, rules []Rule) *Violation {
	for _, r := range rules {
		if !r.Holds(tx) {
			return r.Violation
		}
	}
	return nil
}

// Think in terms of:
//  1. scope constraints: number of inputs/outputs and their types
//  2. content constraints: the values carried by the states
//  3. signer constraints: who must have signed
//
// Content rules read states through firstPet, which yields the zero record
// when the structural rules before them would have failed.

var bornRules = []Rule{
	// scope
	{ErrBornInputs, func(tx Transaction) bool { return len(tx.Inputs) == 0 }},
	{ErrBornOutputs, func(tx Transaction) bool { return len(tx.Outputs) == 1 }},
	{ErrBornOutputType, func(tx Transaction) bool { return countPets(tx.Outputs) == 1 }},

	// content
	{ErrBornOwnerIsBreeder, func(tx Transaction) bool {
		out := firstPet(tx.Outputs)
		return out.Owner().Equal(out.Breeder())
	}},
	{ErrBornSpecies, bornFieldSet(petstate.PetState.Species)},
	{ErrBornBreed, bornFieldSet(petstate.PetState.Breed)},
	{ErrBornColor, bornFieldSet(petstate.PetState.Color)},
	{ErrBornSex, bornFieldSet(petstate.PetState.Sex)},
	{ErrBornBirthDate, bornFieldSet(petstate.PetState.BirthDate)},

	// signers
	{ErrBornOwnerSignature, func(tx Transaction) bool {
		return tx.Signers.Contains(firstPet(tx.Outputs).Owner().OwningKey)
	}},
}

var transferRules = []Rule{
	// scope
	{ErrTransferInputs, func(tx Transaction) bool { return len(tx.Inputs) == 1 }},
	{ErrTransferOutputs, func(tx Transaction) bool { return len(tx.Outputs) == 1 }},
	{ErrTransferInputType, func(tx Transaction) bool { return countPets(tx.Inputs) == 1 }},
	{ErrTransferOutputType, func(tx Transaction) bool { return countPets(tx.Outputs) == 1 }},

	// content
	{ErrTransferName, func(tx Transaction) bool { return firstPet(tx.Outputs).PetName() != "" }},
	{ErrTransferSameOwner, func(tx Transaction) bool {
		return !firstPet(tx.Outputs).Owner().Equal(firstPet(tx.Inputs).Owner())
	}},
	{ErrTransferSpecies, transferFieldKept(petstate.PetState.Species)},
	{ErrTransferBreed, transferFieldKept(petstate.PetState.Breed)},
	{ErrTransferColor, transferFieldKept(petstate.PetState.Color)},
	{ErrTransferSex, transferFieldKept(petstate.PetState.Sex)},
	{ErrTransferBirthDate, transferFieldKept(petstate.PetState.BirthDate)},

	// signers
	{ErrTransferCurrentSigner, func(tx Transaction) bool {
		return tx.Signers.Contains(firstPet(tx.Inputs).Owner().OwningKey)
	}},
	{ErrTransferNewOwnerSigner, func(tx Transaction) bool {
		return tx.Signers.Contains(firstPet(tx.Outputs).Owner().OwningKey)
	}},
}

func bornFieldSet(field func(petstate.PetState) string) func(Transaction) bool {
	return func(tx Transaction) bool {
		return field(firstPet(tx.Outputs)) != ""
	}
}

func transferFieldKept(field func(petstate.PetState) string) func(Transaction) bool {
	return func(tx Transaction) bool {
		return field(firstPet(tx.Outputs)) == field(firstPet(tx.Inputs))
	}
}

// rulesFor returns the ordered rules of a known command.
func rulesFor(cmd CommandType) ([]Rule, bool) {
	switch cmd {
	case CommandBorn:
		return bornRules, true
	case CommandTransfer:
		return transferRules, true
	default:
		return nil, false
	}
}

// Rules returns the violations of cmd's rules in evaluation order, or nil
// for an unknown command. The values are copies; changing them does not
// affect verification.
func Rules(cmd CommandType) []Violation {
	rules, ok := rulesFor(cmd)
	if !ok {
		return nil
	}
	out := make([]Violation, len(rules))
	for i, r := range rules {
		out[i] = *r.Violation
	}
	return out
}
