package jsonld

import (
	"fmt"

	"github.com/piprate/json-gold/ld"
)

// SecurityV2 and ZcapV1 are the only two context IRIs the engine
// recognizes. Every capability and invocation document must declare
// both; canonicalization fails closed on any other context IRI.
const (
	SecurityV2 = "https://w3id.org/security/v2"
	ZcapV1     = "https://w3id.org/zcap/v1"
)

// securityV2Context defines the vocabulary shared by proofs and
// controller/verification-method references.
var securityV2Context = map[string]interface{}{
	"@context": map[string]interface{}{
		"id":                 "@id",
		"type":               "@type",
		"sec":                "https://w3id.org/security#",
		"controller":         map[string]interface{}{"@id": "sec:controller", "@type": "@id"},
		"proof":              map[string]interface{}{"@id": "sec:proof", "@type": "@id", "@container": "@graph"},
		"created":            map[string]interface{}{"@id": "sec:created", "@type": "http://www.w3.org/2001/XMLSchema#dateTime"},
		"expires":            map[string]interface{}{"@id": "sec:expiration", "@type": "http://www.w3.org/2001/XMLSchema#dateTime"},
		"verificationMethod": map[string]interface{}{"@id": "sec:verificationMethod", "@type": "@id"},
		"proofPurpose":       map[string]interface{}{"@id": "sec:proofPurpose"},
		"proofValue":         map[string]interface{}{"@id": "sec:proofValue"},
		"Ed25519Signature2020": "sec:Ed25519Signature2020",
	},
}

// zcapV1Context defines the ZCAP-LD-specific vocabulary: capabilities,
// delegation, invocation, and caveats.
var zcapV1Context = map[string]interface{}{
	"@context": map[string]interface{}{
		"zcap":              "https://w3id.org/zcap#",
		"zcap-capability":   "zcap:Capability",
		"invoker":           map[string]interface{}{"@id": "zcap:invoker", "@type": "@id"},
		"parentCapability":  map[string]interface{}{"@id": "zcap:parentCapability", "@type": "@id"},
		"target":            "zcap:invocationTarget",
		"action":            "zcap:action",
		"name":              "zcap:actionName",
		"parameters":        "zcap:actionParameters",
		"caveat":            "zcap:caveat",
		"capability":        map[string]interface{}{"@id": "zcap:capability", "@type": "@id"},
		"nonce":             "zcap:nonce",
		"capabilityDelegation": "zcap:capabilityDelegation",
		"capabilityInvocation": "zcap:capabilityInvocation",
		"CapabilityInvocation": "zcap:CapabilityInvocationDocument",
	},
}

// StaticLoader is a json-gold ld.DocumentLoader that resolves only the
// two whitelisted context IRIs and rejects everything else. This is the
// "embedded context map" of the spec: it never performs network I/O and
// never delegates to json-gold's HTTP-backed default loader.
type StaticLoader struct{}

// NewStaticLoader constructs the fixed-whitelist document loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{}
}

// LoadDocument implements ld.DocumentLoader.
func (l *StaticLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	var doc interface{}
	switch u {
	case SecurityV2:
		doc = securityV2Context
	case ZcapV1:
		doc = zcapV1Context
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, u)
	}
	return &ld.RemoteDocument{
		DocumentURL: u,
		Document:    doc,
	}, nil
}
