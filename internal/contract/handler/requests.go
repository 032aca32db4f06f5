package handler

import (
	"errors"
	"fmt"
	"strings"

	"petchain/internal/contract"
	"petchain/internal/petstate"
	"petchain/pkg/domain"
	dErrors "petchain/pkg/domain-errors"
	pstrings "petchain/pkg/platform/strings"
)

const (
	// StateTypePet marks a pet record on the wire. Any other type decodes to
	// a foreign state that the contract will refuse.
	StateTypePet = "pet"

	maxStatesPerSide = 16
	maxCommands      = 8
	maxSigners       = 32
	maxFieldLength   = 256
)

// PartyRequest is a ledger party on the wire.
type PartyRequest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (p *PartyRequest) parse(field string) (domain.Party, error) {
	if p == nil {
		return domain.Party{}, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	key, err := domain.ParsePublicKey(p.Key)
	if err != nil {
		return domain.Party{}, dErrors.New(dErrors.CodeValidation, field+".key is required")
	}
	return domain.NewParty(strings.TrimSpace(p.Name), key), nil
}

// StateRequest is one input or output state. Pet fields are passed through
// untrimmed and unchecked: empty content is the contract's to reject.
type StateRequest struct {
	Type string `json:"type"`

	Owner     *PartyRequest `json:"owner,omitempty"`
	PetName   string        `json:"pet_name,omitempty"`
	Species   string        `json:"species,omitempty"`
	Breed     string        `json:"breed,omitempty"`
	Sex       string        `json:"sex,omitempty"`
	Color     string        `json:"color,omitempty"`
	BirthDate string        `json:"birth_date,omitempty"`
	Breeder   *PartyRequest `json:"breeder,omitempty"`

	// Participants of a non-pet state.
	Participants []PartyRequest `json:"participants,omitempty"`
}

func (s *StateRequest) parse(field string) (petstate.ContractState, error) {
	stateType := strings.ToLower(strings.TrimSpace(s.Type))
	if stateType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, field+".type is required")
	}

	if stateType != StateTypePet {
		parties := make([]domain.Party, 0, len(s.Participants))
		for i := range s.Participants {
			p, err := s.Participants[i].parse(fmt.Sprintf("%s.participants[%d]", field, i))
			if err != nil {
				return nil, err
			}
			parties = append(parties, p)
		}
		return petstate.ForeignState{Type: stateType, Parties: parties}, nil
	}

	for _, f := range []struct{ name, value string }{
		{"pet_name", s.PetName},
		{"species", s.Species},
		{"breed", s.Breed},
		{"sex", s.Sex},
		{"color", s.Color},
		{"birth_date", s.BirthDate},
	} {
		if len(f.value) > maxFieldLength {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s.%s must be at most %d characters", field, f.name, maxFieldLength))
		}
	}

	owner, err := s.Owner.parse(field + ".owner")
	if err != nil {
		return nil, err
	}
	breeder, err := s.Breeder.parse(field + ".breeder")
	if err != nil {
		return nil, err
	}
	return petstate.New(owner, s.PetName, s.Species, s.Breed, s.Sex, s.Color, s.BirthDate, breeder), nil
}

// VerifyRequest is the HTTP request body for POST /v1/transitions/verify.
// Command is shorthand for a single-element Commands.
type VerifyRequest struct {
	Command  string         `json:"command,omitempty"`
	Commands []string       `json:"commands,omitempty"`
	Inputs   []StateRequest `json:"inputs"`
	Outputs  []StateRequest `json:"outputs"`
	Signers  []string       `json:"signers"`

	// Parsed values (populated by Validate)
	parsed contract.Transaction
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.Inputs) > maxStatesPerSide || len(r.Outputs) > maxStatesPerSide {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("at most %d inputs and %d outputs are allowed", maxStatesPerSide, maxStatesPerSide))
	}
	if len(r.Commands) > maxCommands {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d commands are allowed", maxCommands))
	}
	if len(r.Signers) > maxSigners {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d signers are allowed", maxSigners))
	}

	raw := r.Commands
	if strings.TrimSpace(r.Command) != "" {
		if len(r.Commands) > 0 {
			return dErrors.New(dErrors.CodeValidation, "use either command or commands, not both")
		}
		raw = []string{r.Command}
	}

	// Duplicates are kept: two identical commands are still ambiguous.
	commands := make([]contract.CommandType, 0, len(raw))
	for _, c := range raw {
		cmd, err := contract.ParseCommandType(c)
		if err != nil {
			return err
		}
		commands = append(commands, cmd)
	}

	inputs, err := parseStates("inputs", r.Inputs)
	if err != nil {
		return err
	}
	outputs, err := parseStates("outputs", r.Outputs)
	if err != nil {
		return err
	}

	if i := pstrings.FirstBlank(r.Signers); i >= 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("signers[%d] must not be empty", i))
	}
	signers := domain.NewKeySet()
	for _, s := range pstrings.DedupeAndTrim(r.Signers) {
		signers.Add(domain.PublicKey(s))
	}

	r.parsed = contract.Transaction{
		Inputs:   inputs,
		Outputs:  outputs,
		Commands: commands,
		Signers:  signers,
	}
	return nil
}

// Transaction returns the validated transaction.
func (r *VerifyRequest) Transaction() contract.Transaction {
	return r.parsed
}

func parseStates(field string, reqs []StateRequest) ([]petstate.ContractState, error) {
	states := make([]petstate.ContractState, 0, len(reqs))
	for i := range reqs {
		st, err := reqs[i].parse(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

// VerifyBatchRequest is the HTTP request body for POST /v1/transitions/verify/batch.
type VerifyBatchRequest struct {
	Transactions []VerifyRequest `json:"transactions"`
}

// Validate validates every transaction, reporting the first failure with its
// position. The batch size limit is enforced by the service.
func (r *VerifyBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Transactions) == 0 {
		return dErrors.New(dErrors.CodeValidation, "transactions is required")
	}
	for i := range r.Transactions {
		if err := r.Transactions[i].Validate(); err != nil {
			msg := err.Error()
			var de *dErrors.Error
			if errors.As(err, &de) {
				msg = de.Message
			}
			return dErrors.New(dErrors.CodeOf(err), fmt.Sprintf("transactions[%d]: %s", i, msg))
		}
	}
	return nil
}

// ParsedTransactions returns the validated transactions in request order.
func (r *VerifyBatchRequest) ParsedTransactions() []contract.Transaction {
	txs := make([]contract.Transaction, len(r.Transactions))
	for i := range r.Transactions {
		txs[i] = r.Transactions[i].Transaction()
	}
	return txs
}
