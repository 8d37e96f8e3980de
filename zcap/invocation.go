package zcap

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/zcap-ld/zcap-go/crypto"
	"github.com/zcap-ld/zcap-go/internal/log"
	"github.com/zcap-ld/zcap-go/store"
)

// DefaultNonceMaxAge is the retention window applied when the caller
// does not specify one.
const DefaultNonceMaxAge = 3600 * time.Second

// nonceEntropyBytes is the nonce's random content: 16 bytes, i.e.
// 128 bits, base64url-encoded to 22 characters.
const nonceEntropyBytes = 16

const maxNonceRegenAttempts = 8

// InvokeCapability verifies c, checks that actionName is permitted and
// every caveat passes, then produces and signs an invocation document.
// It mutates nonces in place: on success the fresh nonce is recorded,
// and cleanup runs opportunistically. Any opaque caveats encountered
// (MaxUses, AllowedNetwork) are returned for the caller to enforce.
func InvokeCapability(
	c *Capability,
	actionName string,
	invoker crypto.Signer,
	didKeys store.DIDKeyStore,
	revoked store.RevocationSet,
	capStore store.CapabilityStore,
	nonces store.NonceStore,
	parameters JSONMap,
	nonceMaxAge time.Duration,
) (*Invocation, []OpaqueCaveat, error) {
	const op = "InvokeCapability"

	if nonceMaxAge <= 0 {
		nonceMaxAge = DefaultNonceMaxAge
	}
	if parameters == nil {
		parameters = JSONMap{}
	}

	if err := VerifyCapability(c, didKeys, revoked, capStore); err != nil {
		return nil, nil, err
	}

	if !c.HasAction(actionName) {
		return nil, nil, newErr(KindInvocation, op, fmt.Sprintf("action %q not allowed by capability %q", actionName, c.ID), nil)
	}

	now := nowFunc()
	opaques, err := EvaluateCaveats(c.Caveats, EvalContext{
		Now:        now,
		ActionName: actionName,
		HasAction:  true,
		Parameters: parameters,
		Revoked:    revocationAdapter(revoked),
	})
	if err != nil {
		return nil, nil, err
	}

	registeredPub, ok := didKeys.Lookup(c.Invoker.ID)
	if !ok {
		return nil, nil, newErr(KindDIDKeyNotFound, op, fmt.Sprintf("no key registered for invoker DID %q", c.Invoker.ID), nil)
	}
	if !registeredPub.Equal(invoker.Public()) {
		return nil, nil, newErr(KindInvocation, op, "invoker key does not match capability's registered invoker", nil)
	}

	nonce, err := freshNonce(nonces)
	if err != nil {
		return nil, nil, err
	}

	inv := &Invocation{
		ID:         newInvocationID(),
		Type:       InvocationType,
		Capability: c.ID,
		Action:     Action{Name: actionName, Parameters: parameters},
		Created:    now,
		Nonce:      nonce,
	}

	doc, err := inv.ToJSONLD()
	if err != nil {
		return nil, nil, newErr(KindValidation, op, "failed to project invocation to JSON-LD", err)
	}
	bytes, err := canonicalize(doc)
	if err != nil {
		return nil, nil, err
	}
	sig, err := invoker.Sign(bytes)
	if err != nil {
		return nil, nil, newErr(KindSignatureVerification, op, "failed to sign invocation", err)
	}
	encodedSig, err := crypto.EncodeSignature(sig)
	if err != nil {
		return nil, nil, newErr(KindSignatureVerification, op, "failed to encode invocation signature", err)
	}

	inv.Proof = &Proof{
		Type:               ProofTypeEd25519Signature2020,
		Created:            now,
		VerificationMethod: c.Invoker.ID + "#key-1",
		ProofPurpose:       ProofPurposeCapabilityInvocation,
		ProofValue:         encodedSig,
	}

	nonces.Record(nonce, now)
	evicted := CleanupExpiredNonces(nonces, nonceMaxAge)

	log.Default().Info("invocation created", log.Fields{
		"capability": c.ID,
		"action":     actionName,
		"invocation": inv.ID,
		"evicted":    evicted,
	})

	return inv, opaques, nil
}

// freshNonce generates a nonce guaranteed absent from nonces, retrying
// on the astronomically unlikely event of a collision.
func freshNonce(nonces store.NonceStore) (string, error) {
	for attempt := 0; attempt < maxNonceRegenAttempts; attempt++ {
		buf := make([]byte, nonceEntropyBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", newErr(KindInvocation, "InvokeCapability", "failed to generate nonce", err)
		}
		nonce := base64.RawURLEncoding.EncodeToString(buf)
		if !nonces.Seen(nonce) {
			return nonce, nil
		}
	}
	return "", newErr(KindInvocation, "InvokeCapability", "nonce collision exhausted retry budget", nil)
}

// CleanupExpiredNonces evicts every nonce recorded before maxAge ago.
// It is called opportunistically by InvokeCapability but may also be
// called by the caller on its own schedule.
func CleanupExpiredNonces(nonces store.NonceStore, maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultNonceMaxAge
	}
	return nonces.Evict(nowFunc().Add(-maxAge))
}

// VerifyInvocation verifies the capability chain doc references, its
// own proof, and re-evaluates caveats against the invoked action.
// Replay protection is the caller's responsibility: this function
// performs no nonce bookkeeping.
func VerifyInvocation(doc *Invocation, didKeys store.DIDKeyStore, revoked store.RevocationSet, capStore store.CapabilityStore) error {
	const op = "VerifyInvocation"

	capVal, ok := capStore.Get(doc.Capability)
	if !ok {
		return newErr(KindCapabilityNotFound, op, fmt.Sprintf("capability %q not found", doc.Capability), nil)
	}
	c, ok := capVal.(*Capability)
	if !ok {
		return newErr(KindCapabilityNotFound, op, fmt.Sprintf("capability %q has the wrong type", doc.Capability), nil)
	}

	if err := VerifyCapability(c, didKeys, revoked, capStore); err != nil {
		return err
	}

	pub, ok := didKeys.Lookup(c.Invoker.ID)
	if !ok {
		return newErr(KindDIDKeyNotFound, op, fmt.Sprintf("no key registered for invoker DID %q", c.Invoker.ID), nil)
	}
	if doc.Proof == nil {
		return newErr(KindInvocationVerification, op, "invocation has no proof", nil)
	}
	if doc.Proof.ProofPurpose != ProofPurposeCapabilityInvocation {
		return newErr(KindInvocationVerification, op, "invocation proof has the wrong purpose", nil)
	}

	invDoc, err := doc.ToJSONLD()
	if err != nil {
		return newErr(KindValidation, op, "failed to project invocation to JSON-LD", err)
	}
	bytes, err := canonicalize(invDoc)
	if err != nil {
		return err
	}
	if err := crypto.Verify(pub, bytes, doc.Proof.ProofValue); err != nil {
		return newErr(KindInvocationVerification, op, "invocation signature invalid", err)
	}

	now := nowFunc()
	if _, err := EvaluateCaveats(c.Caveats, EvalContext{
		Now:        now,
		ActionName: doc.Action.Name,
		HasAction:  true,
		Parameters: doc.Action.Parameters,
		Revoked:    revocationAdapter(revoked),
	}); err != nil {
		return err
	}

	return nil
}
