package domain

import (
	"slices"
	"strings"

	dErrors "petchain/pkg/domain-errors"
)

// PublicKey is the owning key of a ledger party. It is opaque here: the
// ledger runtime verifies signatures, this module only compares keys.
type PublicKey string

// ParsePublicKey validates and returns a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "public key is required")
	}
	return PublicKey(s), nil
}

func (k PublicKey) String() string {
	return string(k)
}

// IsNil returns true if the key is empty.
func (k PublicKey) IsNil() bool {
	return k == ""
}

// Party is a named ledger participant. Two parties are the same participant
// when their owning keys match; the display name is informational.
type Party struct {
	Name      string    `json:"name"`
	OwningKey PublicKey `json:"owning_key"`
}

// NewParty builds a Party from a display name and key.
func NewParty(name string, key PublicKey) Party {
	return Party{Name: name, OwningKey: key}
}

// Equal compares parties by owning key.
func (p Party) Equal(other Party) bool {
	return p.OwningKey == other.OwningKey
}

// IsNil returns true if the party carries no key.
func (p Party) IsNil() bool {
	return p.OwningKey.IsNil()
}

func (p Party) String() string {
	if p.Name == "" {
		return p.OwningKey.String()
	}
	return p.Name
}

// KeySet is a set of public keys, typically the signers a ledger runtime has
// already verified for a transaction.
type KeySet map[PublicKey]struct{}

// NewKeySet builds a set from the given keys, ignoring empty ones.
func NewKeySet(keys ...PublicKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts a key. Empty keys are ignored.
func (s KeySet) Add(k PublicKey) {
	if k.IsNil() {
		return
	}
	s[k] = struct{}{}
}

// Contains reports membership. A nil set contains nothing.
func (s KeySet) Contains(k PublicKey) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of keys.
func (s KeySet) Len() int {
	return len(s)
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []PublicKey {
	out := make([]PublicKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
