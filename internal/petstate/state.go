// Package petstate defines the ledger record describing one companion animal.
//
// Records are immutable values. Construction performs no validation; the
// contract package decides whether a record may enter the ledger.
package petstate

import (
	"reflect"

	"petchain/pkg/domain"
)

// ContractState is any state carried by a ledger transaction.
type ContractState interface {
	// Participants returns the parties that must receive and store the state.
	Participants() []domain.Party
}

// PetState is the recorded provenance of one animal.
//
// Species, Breed, Sex, Color and BirthDate are fixed at birth. Breeder is the
// party that recorded the birth and is copied unchanged by every transfer.
// Owner is the only field expected to change across a transfer.
type PetState struct {
	owner     domain.Party
	petName   string
	species   string
	breed     string
	sex       string
	color     string
	birthDate string
	breeder   domain.Party
}

// New builds a PetState without validating it.
func New(owner domain.Party, petName, species, breed, sex, color, birthDate string, breeder domain.Party) PetState {
	return PetState{
		owner:     owner,
		petName:   petName,
		species:   species,
		breed:     breed,
		sex:       sex,
		color:     color,
		birthDate: birthDate,
		breeder:   breeder,
	}
}

func (p PetState) Owner() domain.Party   { return p.owner }
func (p PetState) PetName() string       { return p.petName }
func (p PetState) Species() string       { return p.species }
func (p PetState) Breed() string         { return p.breed }
func (p PetState) Sex() string           { return p.sex }
func (p PetState) Color() string         { return p.color }
func (p PetState) BirthDate() string     { return p.birthDate }
func (p PetState) Breeder() domain.Party { return p.breeder }

// Participants returns the current owner only.
func (p PetState) Participants() []domain.Party {
	return []domain.Party{p.owner}
}

// WithNewOwner returns the successor record of a transfer to owner. Every
// birth fact and the breeder are carried over; petName replaces the name.
func (p PetState) WithNewOwner(owner domain.Party, petName string) PetState {
	next := p
	next.owner = owner
	next.petName = petName
	return next
}

// ForeignState is a state belonging to some other contract. It shows up in
// transactions that mix asset types and is never admissible as a pet record.
type ForeignState struct {
	Type    string
	Parties []domain.Party
}

func (f ForeignState) Participants() []domain.Party {
	return f.Parties
}

// ParticipantsOf returns the participants of s. A nil state, including a nil
// pointer held in the interface, has none.
func ParticipantsOf(s ContractState) []domain.Party {
	if s == nil {
		return nil
	}
	if v := reflect.ValueOf(s); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return s.Participants()
}

var (
	_ ContractState = PetState{}
	_ ContractState = ForeignState{}
)
