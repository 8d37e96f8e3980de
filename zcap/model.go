// Package zcap implements the ZCAP-LD capability data model, chain
// verifier, invocation engine, delegation engine, and caveat evaluator
// described in the spec. It is a pure-function library over
// caller-owned state (see the store package), with the exception that
// InvokeCapability and CleanupExpiredNonces mutate the caller's nonce
// store.
package zcap

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONMap is a JSON-LD object represented as a plain Go map, grounded on
// the teacher's vc.JSONMap alias.
type JSONMap = map[string]interface{}

// Contexts every capability and invocation document must declare, in
// order. Canonicalization rejects any other context IRI.
var Contexts = []string{
	"https://w3id.org/security/v2",
	"https://w3id.org/zcap/v1",
}

// CapabilityType is the literal "type" value of every capability.
const CapabilityType = "zcap"

// InvocationType is the literal "type" value of every invocation
// document.
const InvocationType = "CapabilityInvocation"

// Actor identifies a DID together with the tag of its key type, used
// for both controller and invoker.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Target references the resource a capability grants access to.
// Additional properties beyond ID and Type are preserved verbatim in
// Properties so that round-tripping through JSON-LD is exact.
type Target struct {
	ID         string
	Type       string
	Properties JSONMap
}

// Action names an operation a capability permits, with the parameters
// that constrain it.
type Action struct {
	Name       string
	Parameters JSONMap
}

// Caveat is a tagged predicate attached to a capability. It is kept as
// a raw JSON-LD map (per the "dynamic dictionaries" design note) rather
// than a closed struct, so unrecognized fields on known caveat types and
// entirely unknown caveat types both survive a round trip.
type Caveat JSONMap

// Type returns the caveat's "type" tag.
func (c Caveat) Type() string {
	t, _ := c["type"].(string)
	return t
}

// Proof is the Ed25519Signature2020 linked-data proof attached to a
// signed capability or invocation document.
type Proof struct {
	ID                 string
	Type               string
	Created            time.Time
	VerificationMethod string
	ProofPurpose       string
	ProofValue         string
}

const (
	ProofTypeEd25519Signature2020 = "Ed25519Signature2020"

	ProofPurposeCapabilityDelegation = "capabilityDelegation"
	ProofPurposeCapabilityInvocation = "capabilityInvocation"
)

// Capability is the immutable, signed authorization record described by
// the data model.
type Capability struct {
	ID               string
	Context          []string
	Type             string
	Controller       Actor
	Invoker          Actor
	Target           Target
	Actions          []Action
	Caveats          []Caveat
	ParentCapability string // empty for a root capability
	Created          time.Time
	Expires          time.Time // zero value means "no expiry"
	Proof            *Proof
}

// IsRoot reports whether c has no parent, i.e. is the origin of its
// delegation chain.
func (c *Capability) IsRoot() bool {
	return c.ParentCapability == ""
}

// HasExpiry reports whether c.Expires is set.
func (c *Capability) HasExpiry() bool {
	return !c.Expires.IsZero()
}

// ActionNames returns the ordered list of action names c grants.
func (c *Capability) ActionNames() []string {
	names := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		names[i] = a.Name
	}
	return names
}

// HasAction reports whether name appears among c.Actions.
func (c *Capability) HasAction(name string) bool {
	for _, a := range c.Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Invocation is a signed invocation document produced by InvokeCapability
// and consumed by VerifyInvocation.
type Invocation struct {
	ID         string
	Type       string
	Capability string // id of the invoked capability
	Action     Action
	Created    time.Time
	Nonce      string
	Proof      *Proof
}

// newCapabilityID mints a fresh, globally unique capability id in the
// urn:uuid: form required by spec section 6.
func newCapabilityID() string {
	return "urn:uuid:" + uuid.NewString()
}

// newInvocationID mints a fresh invocation document id.
func newInvocationID() string {
	return "urn:uuid:" + uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(op, field string, v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, newErr(KindValidation, op, fmt.Sprintf("field %q must be a string timestamp", field), nil)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, newErr(KindValidation, op, fmt.Sprintf("field %q is not RFC3339", field), err)
	}
	return t, nil
}
