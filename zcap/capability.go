package zcap

import (
	"time"

	"github.com/zcap-ld/zcap-go/crypto"
)

// CreateCapability mints a new root capability granting invoker the
// listed actions over target, signed by controllerKey on behalf of
// controller. A root capability's controller signs its own proof: see
// spec section 4.4.
func CreateCapability(
	controller Actor,
	invoker Actor,
	target Target,
	actions []Action,
	controllerKey crypto.Signer,
	expires time.Time,
	caveats []Caveat,
) (*Capability, error) {
	const op = "CreateCapability"

	if len(actions) == 0 {
		return nil, newErr(KindValidation, op, "a capability must grant at least one action", nil)
	}

	c := &Capability{
		ID:         newCapabilityID(),
		Context:    Contexts,
		Type:       CapabilityType,
		Controller: controller,
		Invoker:    invoker,
		Target:     target,
		Actions:    actions,
		Caveats:    caveats,
		Created:    nowFunc(),
		Expires:    expires,
	}

	if err := signCapability(c, controller, controllerKey, ProofPurposeCapabilityDelegation); err != nil {
		return nil, err
	}
	return c, nil
}

// signCapability canonicalizes c (proof excluded) and attaches a fresh
// Ed25519Signature2020 proof authored by signerActor's key.
func signCapability(c *Capability, signerActor Actor, key crypto.Signer, purpose string) error {
	const op = "signCapability"

	doc, err := c.ToJSONLD()
	if err != nil {
		return newErr(KindValidation, op, "failed to project capability to JSON-LD", err)
	}
	bytes, err := canonicalize(doc)
	if err != nil {
		return err
	}
	sig, err := key.Sign(bytes)
	if err != nil {
		return newErr(KindSignatureVerification, op, "failed to sign capability", err)
	}
	encoded, err := crypto.EncodeSignature(sig)
	if err != nil {
		return newErr(KindSignatureVerification, op, "failed to encode capability signature", err)
	}

	c.Proof = &Proof{
		Type:               ProofTypeEd25519Signature2020,
		Created:            c.Created,
		VerificationMethod: signerActor.ID + "#key-1",
		ProofPurpose:       purpose,
		ProofValue:         encoded,
	}
	return nil
}
