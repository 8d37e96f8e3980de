package zcap

import (
	"time"

	"github.com/zcap-ld/zcap-go/crypto"
	"github.com/zcap-ld/zcap-go/store"
)

// DelegateCapability derives a new capability from parent, narrowing
// actions/expiry/caveats and reassigning invocation rights to
// newInvoker. The child's controller is always copied from the parent
// (delegation moves invocation rights, not control) per spec section
// 4.7. delegatorKey must belong to parent's current invoker.
func DelegateCapability(
	parent *Capability,
	delegatorKey crypto.Signer,
	newInvoker Actor,
	didKeys store.DIDKeyStore,
	revoked store.RevocationSet,
	capStore store.CapabilityStore,
	actions []Action,
	expires time.Time,
	caveats []Caveat,
) (*Capability, error) {
	const op = "DelegateCapability"

	if err := VerifyCapability(parent, didKeys, revoked, capStore); err != nil {
		return nil, err
	}

	registeredPub, ok := didKeys.Lookup(parent.Invoker.ID)
	if !ok {
		return nil, newErr(KindDIDKeyNotFound, op, "no key registered for parent's invoker", nil)
	}
	if !registeredPub.Equal(delegatorKey.Public()) {
		return nil, newErr(KindDelegation, op, "delegator key does not match parent capability's invoker", nil)
	}

	childActions := actions
	if childActions == nil {
		childActions = parent.Actions
	} else {
		parentNames := make(map[string]bool, len(parent.Actions))
		for _, a := range parent.Actions {
			parentNames[a.Name] = true
		}
		for _, a := range childActions {
			if !parentNames[a.Name] {
				return nil, newErr(KindDelegation, op, "cannot delegate action \""+a.Name+"\": not granted by parent", nil)
			}
		}
	}

	childExpires := expires
	if childExpires.IsZero() {
		childExpires = parent.Expires
	} else if parent.HasExpiry() && childExpires.After(parent.Expires) {
		return nil, newErr(KindDelegation, op, "delegated expiry cannot extend past parent's expiry", nil)
	}

	mergedCaveats, err := mergeCaveats(parent.Caveats, caveats)
	if err != nil {
		return nil, err
	}

	child := &Capability{
		ID:               newCapabilityID(),
		Context:          Contexts,
		Type:             CapabilityType,
		Controller:       parent.Controller,
		Invoker:          newInvoker,
		Target:           parent.Target,
		Actions:          childActions,
		Caveats:          mergedCaveats,
		ParentCapability: parent.ID,
		Created:          nowFunc(),
		Expires:          childExpires,
	}

	if err := signCapability(child, parent.Invoker, delegatorKey, ProofPurposeCapabilityDelegation); err != nil {
		return nil, err
	}
	return child, nil
}

// mergeCaveats appends additions onto inherited, rejecting an addition
// that shares a type tag with an inherited caveat but differs from it:
// that would silently loosen a restriction the parent imposed, rather
// than narrow it further.
func mergeCaveats(inherited, additions []Caveat) ([]Caveat, error) {
	const op = "DelegateCapability"

	byTag := make(map[string]string, len(inherited))
	merged := make([]Caveat, 0, len(inherited)+len(additions))
	for _, c := range inherited {
		canon, err := canonicalCaveat(c)
		if err != nil {
			return nil, err
		}
		byTag[c.Type()] = canon
		merged = append(merged, c)
	}

	for _, c := range additions {
		canon, err := canonicalCaveat(c)
		if err != nil {
			return nil, err
		}
		if existing, ok := byTag[c.Type()]; ok {
			if existing != canon {
				return nil, newErr(KindDelegation, op, "caveat \""+c.Type()+"\" conflicts with one already present on the parent", nil)
			}
			continue
		}
		byTag[c.Type()] = canon
		merged = append(merged, c)
	}

	return merged, nil
}
