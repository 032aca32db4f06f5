package contract

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"

	"petchain/internal/petstate"
)

const fingerprintDomain = "petchain/transaction/v1"

// Fingerprint returns a hex BLAKE2b-256 digest of the canonical encoding of
// tx. Signer order does not affect the result; input, output and command
// order do. Two transactions with equal fingerprints get equal verdicts.
func Fingerprint(tx Transaction) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for an oversized key, and there is none
		panic(err)
	}

	writeString(h, fingerprintDomain)

	writeLen(h, len(tx.Commands))
	for _, c := range tx.Commands {
		writeString(h, string(c))
	}

	writeStates(h, "inputs", tx.Inputs)
	writeStates(h, "outputs", tx.Outputs)

	signers := tx.Signers.Sorted()
	writeLen(h, len(signers))
	for _, k := range signers {
		writeString(h, string(k))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeStates(h hash.Hash, label string, states []petstate.ContractState) {
	writeString(h, label)
	writeLen(h, len(states))
	for _, s := range states {
		if pet, ok := asPet(s); ok {
			writeString(h, "pet")
			writeString(h, string(pet.Owner().OwningKey))
			writeString(h, pet.PetName())
			writeString(h, pet.Species())
			writeString(h, pet.Breed())
			writeString(h, pet.Sex())
			writeString(h, pet.Color())
			writeString(h, pet.BirthDate())
			writeString(h, string(pet.Breeder().OwningKey))
			continue
		}

		writeString(h, "foreign")
		if f, ok := s.(petstate.ForeignState); ok {
			writeString(h, f.Type)
		} else {
			writeString(h, "")
		}
		var keys []string
		for _, p := range petstate.ParticipantsOf(s) {
			keys = append(keys, string(p.OwningKey))
		}
		sort.Strings(keys)
		writeLen(h, len(keys))
		for _, k := range keys {
			writeString(h, k)
		}
	}
}

func writeLen(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(buf[:], uint64(n))
	_, _ = h.Write(buf[:l])
}

func writeString(h hash.Hash, s string) {
	writeLen(h, len(s))
	_, _ = h.Write([]byte(s))
}
