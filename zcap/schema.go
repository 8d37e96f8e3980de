package zcap

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// The embedded schemas below are additive structural validation on top
// of the field-by-field checks FromJSONLD/InvocationFromJSONLD perform;
// see the teacher's vc/credential.go: validateCredential for the
// grounding pattern (gojsonschema.Validate against a Go-loaded document).
const capabilitySchemaJSON = `{
  "type": "object",
  "required": ["@context", "id", "type", "controller", "invoker", "target", "action", "created"],
  "properties": {
    "@context": {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "id": {"type": "string"},
    "type": {"type": "string", "enum": ["zcap"]},
    "controller": {"$ref": "#/definitions/actor"},
    "invoker": {"$ref": "#/definitions/actor"},
    "target": {"type": "object", "required": ["id", "type"]},
    "action": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/action"}},
    "caveat": {"type": "array", "items": {"type": "object", "required": ["type"]}},
    "parentCapability": {"type": "string"},
    "created": {"type": "string"},
    "expires": {"type": "string"},
    "proof": {"$ref": "#/definitions/proof"}
  },
  "definitions": {
    "actor": {
      "type": "object",
      "required": ["id"],
      "properties": {"id": {"type": "string"}, "type": {"type": "string"}}
    },
    "action": {
      "type": "object",
      "required": ["name"],
      "properties": {"name": {"type": "string"}, "parameters": {"type": "object"}}
    },
    "proof": {
      "type": "object",
      "required": ["type", "created", "verificationMethod", "proofPurpose", "proofValue"]
    }
  }
}`

const invocationSchemaJSON = `{
  "type": "object",
  "required": ["@context", "id", "type", "capability", "action", "created", "nonce"],
  "properties": {
    "@context": {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "id": {"type": "string"},
    "type": {"type": "string", "enum": ["CapabilityInvocation"]},
    "capability": {"type": "string"},
    "action": {
      "type": "object",
      "required": ["name"],
      "properties": {"name": {"type": "string"}, "parameters": {"type": "object"}}
    },
    "created": {"type": "string"},
    "nonce": {"type": "string", "minLength": 16},
    "proof": {"type": "object"}
  }
}`

var (
	capabilitySchema  *gojsonschema.Schema
	invocationSchema  *gojsonschema.Schema
)

func init() {
	var err error
	capabilitySchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(capabilitySchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("zcap: invalid embedded capability schema: %v", err))
	}
	invocationSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(invocationSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("zcap: invalid embedded invocation schema: %v", err))
	}
}

func validateAgainst(op string, schema *gojsonschema.Schema, doc JSONMap) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return newErr(KindValidation, op, "schema validation errored", err)
	}
	if !result.Valid() {
		return newErr(KindValidation, op, fmt.Sprintf("document does not conform to schema: %v", result.Errors()), nil)
	}
	return nil
}

func validateCapabilitySchema(doc JSONMap) error {
	return validateAgainst("FromJSONLD", capabilitySchema, doc)
}

func validateInvocationSchema(doc JSONMap) error {
	return validateAgainst("InvocationFromJSONLD", invocationSchema, doc)
}
