package zcap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-ld/zcap-go/store"
)

func setupRoot(t *testing.T) (root *Capability, didKeys *store.MemoryDIDKeyStore, revoked *store.MemoryRevocationSet, capStore *store.MemoryCapabilityStore, alice, bob testActor) {
	t.Helper()
	didKeys = store.NewMemoryDIDKeyStore()
	revoked = store.NewMemoryRevocationSet()
	capStore = store.NewMemoryCapabilityStore()

	alice = newTestActor(t, "did:key:alice", didKeys)
	bob = newTestActor(t, "did:key:bob", didKeys)

	var err error
	root, err = CreateCapability(alice.actor, bob.actor, newTestTarget(),
		[]Action{{Name: "read"}, {Name: "write"}}, alice.signer, timeZero(), nil)
	require.NoError(t, err)
	capStore.Put(root.ID, root)
	return
}

func TestDelegateCapabilityNarrowsActions(t *testing.T) {
	root, didKeys, revoked, capStore, _, bob := setupRoot(t)
	carol := newTestActor(t, "did:key:carol", didKeys)

	child, err := DelegateCapability(root, bob.signer, carol.actor, didKeys, revoked, capStore,
		[]Action{{Name: "read"}}, timeZero(), nil)
	require.NoError(t, err)
	capStore.Put(child.ID, child)

	assert.Equal(t, []string{"read"}, child.ActionNames())
	assert.Equal(t, root.Controller, child.Controller)
	assert.Equal(t, carol.actor, child.Invoker)
	assert.NoError(t, VerifyCapability(child, didKeys, revoked, capStore))
}

func TestDelegateCapabilityRejectsActionEscalation(t *testing.T) {
	root, didKeys, revoked, capStore, _, bob := setupRoot(t)
	carol := newTestActor(t, "did:key:carol", didKeys)

	_, err := DelegateCapability(root, bob.signer, carol.actor, didKeys, revoked, capStore,
		[]Action{{Name: "delete"}}, timeZero(), nil)
	assert.ErrorIs(t, err, ErrDelegation)
}

func TestDelegateCapabilityRejectsExpiryExtension(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	revoked := store.NewMemoryRevocationSet()
	capStore := store.NewMemoryCapabilityStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)
	carol := newTestActor(t, "did:key:carol", didKeys)

	root, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), []Action{{Name: "read"}}, alice.signer,
		time.Now().Add(1*time.Hour), nil)
	require.NoError(t, err)
	capStore.Put(root.ID, root)

	_, err = DelegateCapability(root, bob.signer, carol.actor, didKeys, revoked, capStore,
		nil, time.Now().Add(2*time.Hour), nil)
	assert.ErrorIs(t, err, ErrDelegation)
}

func TestDelegateCapabilityRejectsWrongDelegatorKey(t *testing.T) {
	root, didKeys, revoked, capStore, _, _ := setupRoot(t)
	impostor := newTestActor(t, "did:key:impostor", didKeys)
	carol := newTestActor(t, "did:key:carol", didKeys)

	_, err := DelegateCapability(root, impostor.signer, carol.actor, didKeys, revoked, capStore, nil, timeZero(), nil)
	assert.ErrorIs(t, err, ErrDelegation)
}

func TestDelegateCapabilityInheritsAndAppendsCaveats(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	revoked := store.NewMemoryRevocationSet()
	capStore := store.NewMemoryCapabilityStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)
	carol := newTestActor(t, "did:key:carol", didKeys)

	parentCaveat := Caveat{"type": CaveatValidAfter, "date": "2020-01-01T00:00:00Z"}
	root, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), []Action{{Name: "read"}}, alice.signer,
		timeZero(), []Caveat{parentCaveat})
	require.NoError(t, err)
	capStore.Put(root.ID, root)

	newCaveat := Caveat{"type": CaveatRequireParam, "name": "reason"}
	child, err := DelegateCapability(root, bob.signer, carol.actor, didKeys, revoked, capStore, nil, timeZero(), []Caveat{newCaveat})
	require.NoError(t, err)

	assert.Len(t, child.Caveats, 2)
}

func TestDelegateCapabilityRejectsConflictingCaveat(t *testing.T) {
	didKeys := store.NewMemoryDIDKeyStore()
	revoked := store.NewMemoryRevocationSet()
	capStore := store.NewMemoryCapabilityStore()
	alice := newTestActor(t, "did:key:alice", didKeys)
	bob := newTestActor(t, "did:key:bob", didKeys)
	carol := newTestActor(t, "did:key:carol", didKeys)

	root, err := CreateCapability(alice.actor, bob.actor, newTestTarget(), []Action{{Name: "read"}}, alice.signer,
		timeZero(), []Caveat{{"type": CaveatValidAfter, "date": "2020-01-01T00:00:00Z"}})
	require.NoError(t, err)
	capStore.Put(root.ID, root)

	_, err = DelegateCapability(root, bob.signer, carol.actor, didKeys, revoked, capStore, nil, timeZero(),
		[]Caveat{{"type": CaveatValidAfter, "date": "2021-01-01T00:00:00Z"}})
	assert.ErrorIs(t, err, ErrDelegation)
}
