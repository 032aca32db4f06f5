package contract

import "errors"

// Kind classifies a violated rule.
type Kind string

const (
	// KindCommand covers missing, multiple or unknown commands.
	KindCommand Kind = "command"
	// KindStructural covers input/output cardinality and state types.
	KindStructural Kind = "structural"
	// KindContent covers required fields and fields that may not change.
	KindContent Kind = "content"
	// KindAuthorization covers required signers missing from the signer set.
	KindAuthorization Kind = "authorization"
)

// Violation is the rejection reason of a transaction. Each rule owns exactly
// one Violation instance, so errors.Is identifies the failing rule.
//
// Reason is surfaced verbatim to whoever proposed the transaction and must
// stay byte-for-byte stable: every verifier has to agree on it. The Err*
// values below are shared by every verification and must not be modified;
// compare them with errors.Is and read copies through Rules.
type Violation struct {
	RuleID string
	Kind   Kind
	Reason string
}

func (v *Violation) Error() string {
	return v.Reason
}

func violation(ruleID string, kind Kind, reason string) *Violation {
	return &Violation{RuleID: ruleID, Kind: kind, Reason: reason}
}

// command violations
var (
	ErrAmbiguousCommand    = violation("command.single", KindCommand, "Unrecognized or ambiguous command.")
	ErrUnrecognizedCommand = violation("command.known", KindCommand, "Unrecognized command!")
)

// born violations - keep in evaluation order
var (
	ErrBornInputs         = violation("born.inputs", KindStructural, "Pet born should have zero inputs.")
	ErrBornOutputs        = violation("born.outputs", KindStructural, "Pet born should have one output.")
	ErrBornOutputType     = violation("born.output_type", KindStructural, "Pet born output should be a PetState.")
	ErrBornOwnerIsBreeder = violation("born.owner_is_breeder", KindContent, "Owner and Breeder must be the same when pet is born.")
	ErrBornSpecies        = violation("born.species", KindContent, "Pet's species type, e.g., canine, feline, required when recording birth.")
	ErrBornBreed          = violation("born.breed", KindContent, "Pet's breed type, e.g., Bulldog, Cockapoo, required when recording birth.")
	ErrBornColor          = violation("born.color", KindContent, "Pet's color required when recording birth.")
	ErrBornSex            = violation("born.sex", KindContent, "Pet's gender required when recording birth.")
	ErrBornBirthDate      = violation("born.birth_date", KindContent, "Pet's birth date required when recording birth.")
	ErrBornOwnerSignature = violation("born.owner_signer", KindAuthorization, "Pet born should have output owner's as a required signer.")
)

// transfer violations - keep in evaluation order
var (
	ErrTransferInputs         = violation("transfer.inputs", KindStructural, "Pet transfer should have one input.")
	ErrTransferOutputs        = violation("transfer.outputs", KindStructural, "Pet transfer should have one output.")
	ErrTransferInputType      = violation("transfer.input_type", KindStructural, "Pet transfer input should be a PetState.")
	ErrTransferOutputType     = violation("transfer.output_type", KindStructural, "Pet transfer output should be a PetState.")
	ErrTransferName           = violation("transfer.name", KindContent, "Requires pet's name.")
	ErrTransferSameOwner      = violation("transfer.new_owner", KindContent, "Output Owner must differ from Input Owner in a pet transfer.")
	ErrTransferSpecies        = violation("transfer.species", KindContent, "Pet species type cannot change in a pet transfer.")
	ErrTransferBreed          = violation("transfer.breed", KindContent, "Pet breed type cannot change in a pet transfer.")
	ErrTransferColor          = violation("transfer.color", KindContent, "Pet color cannot change in a pet transfer.")
	ErrTransferSex            = violation("transfer.sex", KindContent, "Pet gender cannot change in a pet transfer.")
	ErrTransferBirthDate      = violation("transfer.birth_date", KindContent, "Pet birth date cannot change in a pet transfer.")
	ErrTransferCurrentSigner  = violation("transfer.current_owner_signer", KindAuthorization, "Current owner required to sign a pet transfer.")
	ErrTransferNewOwnerSigner = violation("transfer.new_owner_signer", KindAuthorization, "New owner required to sign a pet transfer.")
)

// AsViolation extracts the Violation from err.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// determine the class of a rejection
func IsCommand(err error) bool       { return isKind(err, KindCommand) }
func IsStructural(err error) bool    { return isKind(err, KindStructural) }
func IsContent(err error) bool       { return isKind(err, KindContent) }
func IsAuthorization(err error) bool { return isKind(err, KindAuthorization) }

func isKind(err error, kind Kind) bool {
	v, ok := AsViolation(err)
	return ok && v.Kind == kind
}
