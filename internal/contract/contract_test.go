package contract_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petchain/internal/contract"
	"petchain/internal/petstate"
	"petchain/pkg/domain"
	"petchain/pkg/testutil"
)

func TestScenarios(t *testing.T) {
	testutil.Given(t, "a pet recorded by Alice", func(t *testing.T) {
		pet := momo(alice, alice)

		testutil.When(t, "Alice records the birth and signs", func(t *testing.T) {
			testutil.Then(t, "the transaction is accepted", func(t *testing.T) {
				assert.NoError(t, contract.Verify(bornTx(pet)))
			})
		})

		testutil.When(t, "the species is left empty", func(t *testing.T) {
			noSpecies := petstate.New(alice, "Momo", "", "Cockapoo", "female", "beige", "2006-10-12", alice)
			testutil.Then(t, "the species reason is reported", func(t *testing.T) {
				err := contract.Verify(bornTx(noSpecies))
				require.Error(t, err)
				assert.Equal(t, "Pet's species type, e.g., canine, feline, required when recording birth.", err.Error())
			})
		})

		testutil.When(t, "the birth consumes a prior record", func(t *testing.T) {
			tx := bornTx(pet)
			tx.Inputs = states(pet)
			testutil.Then(t, "the birth is rejected for having inputs", func(t *testing.T) {
				err := contract.Verify(tx)
				require.Error(t, err)
				assert.Equal(t, "Pet born should have zero inputs.", err.Error())
			})
		})

		testutil.When(t, "Alice and Bob sign a transfer to Bob", func(t *testing.T) {
			testutil.Then(t, "the transfer is accepted", func(t *testing.T) {
				assert.NoError(t, contract.Verify(transferTx(pet, pet.WithNewOwner(bob, "Momo"), alice, bob)))
			})
		})

		testutil.When(t, "the transfer changes the species", func(t *testing.T) {
			out := petstate.New(bob, "Momo", "Feline", "Cockapoo", "female", "beige", "2006-10-12", alice)
			testutil.Then(t, "the species reason is reported", func(t *testing.T) {
				err := contract.Verify(transferTx(pet, out, alice, bob))
				require.Error(t, err)
				assert.Equal(t, "Pet species type cannot change in a pet transfer.", err.Error())
			})
		})

		testutil.When(t, "only Alice signs the transfer", func(t *testing.T) {
			testutil.Then(t, "the new owner signature is reported missing", func(t *testing.T) {
				err := contract.Verify(transferTx(pet, pet.WithNewOwner(bob, "Momo"), alice))
				require.Error(t, err)
				assert.Equal(t, "New owner required to sign a pet transfer.", err.Error())
			})
		})
	})
}

func TestVerifyIsPure(t *testing.T) {
	txs := []contract.Transaction{
		bornTx(momo(alice, alice)),
		bornTx(momo(alice, bob)),
		transferTx(momo(alice, alice), momo(bob, alice), alice, bob),
		transferTx(momo(alice, alice), momo(bob, alice), alice),
	}

	t.Run("repeated calls agree", func(t *testing.T) {
		for _, tx := range txs {
			first := contract.Evaluate(tx)
			second := contract.Evaluate(tx)
			assert.Equal(t, first, second)
		}
	})

	t.Run("concurrent calls agree", func(t *testing.T) {
		want := make([]contract.Verdict, len(txs))
		for i, tx := range txs {
			want[i] = contract.Evaluate(tx)
		}

		var wg sync.WaitGroup
		for range 8 {
			for i, tx := range txs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.Equal(t, want[i], contract.Evaluate(tx))
				}()
			}
		}
		wg.Wait()
	})
}

func TestRules(t *testing.T) {
	t.Run("born chain is ordered as declared", func(t *testing.T) {
		rules := contract.Rules(contract.CommandBorn)
		require.Len(t, rules, 10)
		assert.Equal(t, *contract.ErrBornInputs, rules[0])
		assert.Equal(t, *contract.ErrBornOwnerSignature, rules[9])
	})

	t.Run("transfer chain is ordered as declared", func(t *testing.T) {
		rules := contract.Rules(contract.CommandTransfer)
		require.Len(t, rules, 13)
		assert.Equal(t, *contract.ErrTransferInputs, rules[0])
		assert.Equal(t, *contract.ErrTransferNewOwnerSigner, rules[12])
	})

	t.Run("unknown command has no rules", func(t *testing.T) {
		assert.Nil(t, contract.Rules("vaccinate"))
	})

	t.Run("changing a listed rule does not change verification", func(t *testing.T) {
		rules := contract.Rules(contract.CommandBorn)
		rules[4].Reason = "species optional"
		rules[4].Kind = contract.KindCommand

		assert.Equal(t, "Pet's species type, e.g., canine, feline, required when recording birth.", contract.ErrBornSpecies.Reason)
		noSpecies := petstate.New(alice, "Momo", "", "Cockapoo", "female", "beige", "2006-10-12", alice)
		err := contract.Verify(bornTx(noSpecies))
		require.ErrorIs(t, err, contract.ErrBornSpecies)
		assert.Equal(t, "Pet's species type, e.g., canine, feline, required when recording birth.", err.Error())
		assert.Equal(t, contract.KindContent, contract.Rules(contract.CommandBorn)[4].Kind)
	})
}

func TestParseCommandType(t *testing.T) {
	cmd, err := contract.ParseCommandType(" Transfer ")
	require.NoError(t, err)
	assert.Equal(t, contract.CommandTransfer, cmd)
	assert.True(t, cmd.IsKnown())

	cmd, err = contract.ParseCommandType("vaccinate")
	require.NoError(t, err)
	assert.False(t, cmd.IsKnown())

	_, err = contract.ParseCommandType("")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	base := transferTx(momo(alice, alice), momo(bob, alice), alice, bob)

	t.Run("stable and hex encoded", func(t *testing.T) {
		fp := contract.Fingerprint(base)
		assert.Len(t, fp, 64)
		assert.Equal(t, fp, contract.Fingerprint(base))
	})

	t.Run("signer order does not matter", func(t *testing.T) {
		reordered := transferTx(momo(alice, alice), momo(bob, alice), bob, alice)
		assert.Equal(t, contract.Fingerprint(base), contract.Fingerprint(reordered))
	})

	t.Run("party display names do not matter", func(t *testing.T) {
		renamed := domain.NewParty("Robert", bob.OwningKey)
		other := transferTx(momo(alice, alice), momo(renamed, alice), alice, bob)
		assert.Equal(t, contract.Fingerprint(base), contract.Fingerprint(other))
	})

	t.Run("any field change matters", func(t *testing.T) {
		changed := transferTx(momo(alice, alice), momo(bob, alice).WithNewOwner(bob, "Mochi"), alice, bob)
		assert.NotEqual(t, contract.Fingerprint(base), contract.Fingerprint(changed))
	})

	t.Run("inputs and outputs are not interchangeable", func(t *testing.T) {
		swapped := base
		swapped.Inputs, swapped.Outputs = base.Outputs, base.Inputs
		assert.NotEqual(t, contract.Fingerprint(base), contract.Fingerprint(swapped))
	})

	t.Run("foreign states are covered", func(t *testing.T) {
		a := bornTx(petstate.ForeignState{Type: "DummyState", Parties: []domain.Party{alice}})
		b := bornTx(petstate.ForeignState{Type: "DummyState", Parties: []domain.Party{bob}})
		assert.NotEqual(t, contract.Fingerprint(a), contract.Fingerprint(b))
	})

	t.Run("nil states are hashed without participants", func(t *testing.T) {
		var nilPet *petstate.PetState
		tx := bornTx(nilPet)

		var fp string
		require.NotPanics(t, func() { fp = contract.Fingerprint(tx) })
		assert.Len(t, fp, 64)
		assert.Equal(t, fp, contract.Fingerprint(bornTx(nil)))
		assert.NotEqual(t, fp, contract.Fingerprint(bornTx(momo(alice, alice))))
	})
}
