package zcap

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zcap-ld/zcap-go/crypto"
	"github.com/zcap-ld/zcap-go/store"
)

func timeZero() time.Time {
	return time.Time{}
}

type testActor struct {
	actor  Actor
	signer *crypto.Ed25519Signer
}

func newTestActor(t *testing.T, did string, keys *store.MemoryDIDKeyStore) testActor {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	keys.Register(did, pub)
	return testActor{
		actor:  Actor{ID: did, Type: "Ed25519VerificationKey2020"},
		signer: crypto.NewEd25519Signer(priv),
	}
}

func newTestTarget() Target {
	return Target{ID: "https://example.com/res/1", Type: "Resource"}
}
