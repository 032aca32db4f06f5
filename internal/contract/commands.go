package contract

import (
	"strings"

	dErrors "petchain/pkg/domain-errors"
)

// CommandType is the declared intent of a pet transaction. The set is
// closed: every switch over it must handle each value explicitly.
type CommandType string

const (
	// CommandBorn records a new animal. No inputs, one output.
	CommandBorn CommandType = "born"
	// CommandTransfer moves an animal to a new owner. One input, one output.
	CommandTransfer CommandType = "transfer"
)

// ParseCommandType normalizes a wire command name. Unknown names are kept
// as-is so the contract can reject them with its own reason.
func ParseCommandType(s string) (CommandType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "command is required")
	}
	return CommandType(s), nil
}

func (c CommandType) String() string {
	return string(c)
}

// IsKnown reports whether c is one of the pet contract commands.
func (c CommandType) IsKnown() bool {
	switch c {
	case CommandBorn, CommandTransfer:
		return true
	default:
		return false
	}
}

// Commands lists the pet contract commands in declaration order.
func Commands() []CommandType {
	return []CommandType{CommandBorn, CommandTransfer}
}
