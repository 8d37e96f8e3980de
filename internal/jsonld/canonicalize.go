// Package jsonld canonicalizes capability and invocation documents to a
// deterministic byte string using URDNA2015 RDF dataset normalization,
// against a fixed, embedded set of JSON-LD contexts. Remote context
// resolution is never attempted.
package jsonld

import (
	"errors"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

const (
	nquadsFormat = "application/n-quads"
	algorithm    = "URDNA2015"
)

// ErrUnknownContext is returned when a document references a context
// IRI outside the embedded whitelist.
var ErrUnknownContext = errors.New("jsonld: context not in embedded whitelist")

// ErrCanonicalization wraps any failure from the URDNA2015 pipeline:
// malformed contexts, cyclic structure, or an RDF normalization error.
var ErrCanonicalization = errors.New("jsonld: canonicalization failed")

var sharedLoader = NewStaticLoader()

// Canonicalize produces the deterministic signing/verification byte
// string for doc. The caller is responsible for stripping any "proof"
// field before calling this; Canonicalize does not know about proofs.
func Canonicalize(doc map[string]interface{}) ([]byte, error) {
	opts := ld.NewJsonLdOptions("")
	opts.ProcessingMode = ld.JsonLd_1_1
	opts.Algorithm = algorithm
	opts.Format = nquadsFormat
	opts.ProduceGeneralizedRdf = true
	opts.DocumentLoader = sharedLoader

	proc := ld.NewJsonLdProcessor()
	view, err := proc.Normalize(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanonicalization, err)
	}

	result, ok := view.(string)
	if !ok {
		return nil, fmt.Errorf("%w: normalize did not return a string view", ErrCanonicalization)
	}

	return []byte(result), nil
}
