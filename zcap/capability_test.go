package zcap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-ld/zcap-go/store"
)

func TestCreateCapabilityProducesVerifiableRoot(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	capStore := store.NewMemoryCapabilityStore()
	revoked := store.NewMemoryRevocationSet()

	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)

	c, err := CreateCapability(alice.actor, bob.actor, newTestTarget(),
		[]Action{{Name: "read"}}, alice.signer, timeZero(), nil)
	require.NoError(t, err)
	capStore.Put(c.ID, c)

	assert.True(t, c.IsRoot())
	assert.NoError(t, VerifyCapability(c, didKeys, revoked, capStore))
}

func TestCreateCapabilityRejectsNoActions(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)

	_, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), nil, alice.signer, timeZero(), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCapabilityRoundTripsThroughJSONLD(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)

	c, err := CreateCapability(alice.actor, bob.actor, newTestTarget(),
		[]Action{{Name: "read"}, {Name: "write"}}, alice.signer, timeZero(), nil)
	require.NoError(t, err)

	doc, err := c.ToJSONLD()
	require.NoError(t, err)

	parsed, err := FromJSONLD(doc)
	require.NoError(t, err)

	assert.Equal(t, c.ID, parsed.ID)
	assert.Equal(t, c.Controller, parsed.Controller)
	assert.Equal(t, c.Invoker, parsed.Invoker)
	assert.ElementsMatch(t, c.ActionNames(), parsed.ActionNames())
	assert.Equal(t, c.Proof.ProofValue, parsed.Proof.ProofValue)
}
