package contract_test

import (
	"petchain/internal/contract"
	"petchain/internal/petstate"
	"petchain/pkg/domain"
)

var (
	alice   = domain.NewParty("Alice", "ed25519:alice")
	bob     = domain.NewParty("Bob", "ed25519:bob")
	charlie = domain.NewParty("Charlie", "ed25519:charlie")
	dummy   = domain.NewParty("Dummy", "ed25519:dummy")
)

func momo(owner, breeder domain.Party) petstate.PetState {
	return petstate.New(owner, "Momo", "Canine", "Cockapoo", "female", "beige", "2006-10-12", breeder)
}

func states(s ...petstate.ContractState) []petstate.ContractState {
	return s
}

func bornTx(out ...petstate.ContractState) contract.Transaction {
	return contract.Transaction{
		Outputs:  out,
		Commands: []contract.CommandType{contract.CommandBorn},
		Signers:  domain.NewKeySet(alice.OwningKey),
	}
}

func transferTx(in, out petstate.ContractState, signers ...domain.Party) contract.Transaction {
	keys := domain.NewKeySet()
	for _, p := range signers {
		keys.Add(p.OwningKey)
	}
	return contract.Transaction{
		Inputs:   states(in),
		Outputs:  states(out),
		Commands: []contract.CommandType{contract.CommandTransfer},
		Signers:  keys,
	}
}
