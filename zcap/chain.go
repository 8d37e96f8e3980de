package zcap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zcap-ld/zcap-go/crypto"
	"github.com/zcap-ld/zcap-go/internal/log"
	"github.com/zcap-ld/zcap-go/options"
	"github.com/zcap-ld/zcap-go/store"
)

// MaxChainDepth bounds delegation-chain recursion. A chain longer than
// this raises a "chain too long" CapabilityVerificationError rather
// than recursing further.
const MaxChainDepth = 100

// nowFunc is overridable in tests.
var nowFunc = time.Now

func revocationAdapter(r store.RevocationSet) RevocationChecker {
	if r == nil {
		return nil
	}
	return r
}

// VerifyCapability walks c's delegation chain to its root, verifying
// signatures, temporal bounds, caveats, and attenuation at every link,
// per spec section 4.5.
func VerifyCapability(c *Capability, didKeys store.DIDKeyStore, revoked store.RevocationSet, capStore store.CapabilityStore, opts ...options.VerifyOpt) error {
	cfg := options.VerifyOptions{MaxChainDepth: MaxChainDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return verifyChain(c, didKeys, revoked, capStore, make(map[string]bool), 0, cfg.MaxChainDepth)
}

func verifyChain(c *Capability, didKeys store.DIDKeyStore, revoked store.RevocationSet, capStore store.CapabilityStore, visited map[string]bool, depth, maxDepth int) error {
	const op = "VerifyCapability"
	log.Default().Debug("verifying capability", log.Fields{"id": c.ID, "depth": depth})

	if depth > maxDepth {
		return newErr(KindCapabilityVerification, op, "chain too long", nil)
	}
	if visited[c.ID] {
		return newErr(KindCapabilityVerification, op, fmt.Sprintf("cycle detected at capability %q", c.ID), nil)
	}
	visited[c.ID] = true

	// 1. revocation
	if revoked != nil && revoked.IsRevoked(c.ID) {
		log.Default().Warn("capability revoked", log.Fields{"id": c.ID})
		return newErr(KindCapabilityVerification, op, fmt.Sprintf("capability %q is revoked", c.ID), nil)
	}

	// 2. expiry
	now := nowFunc()
	if c.HasExpiry() && now.After(c.Expires) {
		return newErr(KindCapabilityVerification, op, fmt.Sprintf("capability %q has expired", c.ID), nil)
	}

	// 3. time-only caveat evaluation
	if _, err := EvaluateCaveats(c.Caveats, EvalContext{Now: now, Revoked: revocationAdapter(revoked)}); err != nil {
		return err
	}

	// 4. resolve signer
	var signer Actor
	if c.IsRoot() {
		signer = c.Controller
	} else {
		parentVal, ok := capStore.Get(c.ParentCapability)
		if !ok {
			return newErr(KindCapabilityNotFound, op, fmt.Sprintf("parent capability %q not found", c.ParentCapability), nil)
		}
		parent, ok := parentVal.(*Capability)
		if !ok {
			return newErr(KindCapabilityNotFound, op, fmt.Sprintf("parent capability %q has the wrong type", c.ParentCapability), nil)
		}
		signer = parent.Invoker

		// 7. recursively verify the parent and enforce attenuation.
		if err := verifyChain(parent, didKeys, revoked, capStore, visited, depth+1, maxDepth); err != nil {
			return err
		}
		if err := enforceAttenuation(c, parent); err != nil {
			return err
		}
	}

	// 5/6. resolve key and verify signature.
	if err := verifyProof(op, c, signer, didKeys); err != nil {
		return err
	}

	// 8. terminal case for the root.
	if c.IsRoot() && signer.ID != c.Controller.ID {
		return newErr(KindCapabilityVerification, op, "root capability signer is not its controller", nil)
	}

	return nil
}

func verifyProof(op string, c *Capability, signer Actor, didKeys store.DIDKeyStore) error {
	if c.Proof == nil {
		return newErr(KindSignatureVerification, op, "capability has no proof", nil)
	}
	pub, ok := didKeys.Lookup(signer.ID)
	if !ok {
		return newErr(KindDIDKeyNotFound, op, fmt.Sprintf("no key registered for DID %q", signer.ID), nil)
	}
	doc, err := c.ToJSONLD()
	if err != nil {
		return newErr(KindValidation, op, "failed to project capability to JSON-LD", err)
	}
	bytes, err := canonicalize(doc)
	if err != nil {
		return err
	}
	if err := crypto.Verify(pub, bytes, c.Proof.ProofValue); err != nil {
		return newErr(KindSignatureVerification, op, fmt.Sprintf("signature invalid for capability %q", c.ID), err)
	}
	return nil
}

// enforceAttenuation checks that child never grants more authority than
// parent: every action name is inherited, expiry never extends, and
// every parent caveat survives onto the child.
func enforceAttenuation(child, parent *Capability) error {
	const op = "VerifyCapability"

	parentActions := make(map[string]bool, len(parent.Actions))
	for _, a := range parent.Actions {
		parentActions[a.Name] = true
	}
	for _, a := range child.Actions {
		if !parentActions[a.Name] {
			return newErr(KindCapabilityVerification, op, fmt.Sprintf("action %q is not granted by parent capability %q", a.Name, parent.ID), nil)
		}
	}

	if child.HasExpiry() && parent.HasExpiry() && child.Expires.After(parent.Expires) {
		return newErr(KindCapabilityVerification, op, "child capability expires after its parent", nil)
	}
	if child.HasExpiry() && !parent.HasExpiry() {
		// child adds an expiry the parent never had; that is a narrowing,
		// not a widening, and is allowed.
	}

	childCaveats := make(map[string]bool, len(child.Caveats))
	for _, cv := range child.Caveats {
		b, err := canonicalCaveat(cv)
		if err != nil {
			return err
		}
		childCaveats[b] = true
	}
	for _, cv := range parent.Caveats {
		b, err := canonicalCaveat(cv)
		if err != nil {
			return err
		}
		if !childCaveats[b] {
			return newErr(KindCapabilityVerification, op, "child capability dropped a caveat present on its parent", nil)
		}
	}

	return nil
}

// canonicalCaveat produces a byte-comparable canonical form of a caveat
// for the "present on parent implies present on child" identity check.
// Caveats are bare tagged mappings, not full JSON-LD documents (they
// carry no @context of their own), so this uses a plain deterministic
// JSON encoding rather than URDNA2015 - encoding/json already sorts
// object keys, which is sufficient for byte-exact identity comparison.
func canonicalCaveat(c Caveat) (string, error) {
	b, err := json.Marshal(JSONMap(c))
	if err != nil {
		return "", newErr(KindValidation, "canonicalCaveat", "failed to encode caveat", err)
	}
	return string(b), nil
}

// BatchVerifyCapabilities verifies each of caps independently and
// concurrently, bounded by maxConcurrency. Chain verification is
// read-only over caller state, so this is purely a convenience wrapper
// over VerifyCapability; the result slice is aligned index-for-index
// with caps.
func BatchVerifyCapabilities(ctx context.Context, caps []*Capability, didKeys store.DIDKeyStore, revoked store.RevocationSet, capStore store.CapabilityStore, maxConcurrency int64, opts ...options.VerifyOpt) []error {
	if maxConcurrency <= 0 {
		maxConcurrency = int64(len(caps))
		if maxConcurrency == 0 {
			maxConcurrency = 1
		}
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	results := make([]error, len(caps))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range caps {
		i, c := i, c
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = err
				return nil
			}
			defer sem.Release(1)
			results[i] = VerifyCapability(c, didKeys, revoked, capStore, opts...)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
