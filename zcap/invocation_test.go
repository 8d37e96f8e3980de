package zcap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-ld/zcap-go/store"
)

func TestInvokeCapabilitySucceedsAndVerifies(t *testing.T) {
	root, didKeys, revoked, capStore, _, bob := setupRoot(t)
	nonces := store.NewMemoryNonceStore()

	inv, opaques, err := InvokeCapability(root, "read", bob.signer, didKeys, revoked, capStore, nonces, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, opaques)
	assert.NotEmpty(t, inv.Nonce)
	assert.True(t, nonces.Seen(inv.Nonce))

	require.NoError(t, VerifyInvocation(inv, didKeys, revoked, capStore))
}

func TestInvokeCapabilityRejectsDisallowedAction(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	revoked := store.NewMemoryRevocationSet()
	capStore := store.NewMemoryCapabilityStore()
	nonces := store.NewMemoryNonceStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)

	root, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), []Action{{Name: "read"}}, alice.signer, timeZero(), nil)
	require.NoError(t, err)
	capStore.Put(root.ID, root)

	_, _, err = InvokeCapability(root, "delete", bob.signer, didKeys, revoked, capStore, nonces, nil, 0)
	assert.ErrorIs(t, err, ErrInvocation)
}

func TestInvokeCapabilityRejectsWrongInvokerKey(t *testing.T) {
	root, didKeys, revoked, capStore, _, _ := setupRoot(t)
	nonces := store.NewMemoryNonceStore()
	impostor := newTestActor(t, "did:key:impostor", didKeys)

	_, _, err := InvokeCapability(root, "read", impostor.signer, didKeys, revoked, capStore, nonces, nil, 0)
	assert.ErrorIs(t, err, ErrInvocation)
}

func TestInvokeCapabilityGeneratesFreshNoncesEachTime(t *testing.T) {
	root, didKeys, revoked, capStore, _, bob := setupRoot(t)
	nonces := store.NewMemoryNonceStore()

	first, _, err := InvokeCapability(root, "read", bob.signer, didKeys, revoked, capStore, nonces, nil, 0)
	require.NoError(t, err)
	second, _, err := InvokeCapability(root, "read", bob.signer, didKeys, revoked, capStore, nonces, nil, 0)
	require.NoError(t, err)

	assert.NotEqual(t, first.Nonce, second.Nonce)
}

func TestInvokeCapabilityFailsOnRequireParameterViolation(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	revoked := store.NewMemoryRevocationSet()
	capStore := store.NewMemoryCapabilityStore()
	nonces := store.NewMemoryNonceStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)

	root, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), []Action{{Name: "withdraw"}}, alice.signer,
		timeZero(), []Caveat{{"type": CaveatRequireParam, "name": "amount"}})
	require.NoError(t, err)
	capStore.Put(root.ID, root)

	_, _, err = InvokeCapability(root, "withdraw", bob.signer, didKeys, revoked, capStore, nonces, JSONMap{}, 0)
	assert.ErrorIs(t, err, ErrCaveatEvaluation)

	_, _, err = InvokeCapability(root, "withdraw", bob.signer, didKeys, revoked, capStore, nonces, JSONMap{"amount": float64(5)}, 0)
	assert.NoError(t, err)
}

func TestVerifyInvocationRejectsAfterRevocation(t *testing.T) {
	root, didKeys, revoked, capStore, _, bob := setupRoot(t)
	nonces := store.NewMemoryNonceStore()

	inv, _, err := InvokeCapability(root, "read", bob.signer, didKeys, revoked, capStore, nonces, nil, 0)
	require.NoError(t, err)

	revoked.Revoke(root.ID)
	err = VerifyInvocation(inv, didKeys, revoked, capStore)
	assert.ErrorIs(t, err, ErrCapabilityVerification)
}

func TestCleanupExpiredNoncesEvictsOldEntries(t *testing.T) {
	nonces := store.NewMemoryNonceStore()
	old := time.Now().Add(-2 * time.Hour)
	nonces.Record("stale", old)
	nonces.Record("fresh", time.Now())

	evicted := CleanupExpiredNonces(nonces, time.Hour)
	assert.Equal(t, 1, evicted)
	assert.False(t, nonces.Seen("stale"))
	assert.True(t, nonces.Seen("fresh"))
}
