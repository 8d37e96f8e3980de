package zcap

import (
	"fmt"
	"time"

	"github.com/zcap-ld/zcap-go/internal/jsonld"
	"github.com/zcap-ld/zcap-go/options"
)

const (
	fldContext          = "@context"
	fldID               = "id"
	fldType             = "type"
	fldController       = "controller"
	fldInvoker          = "invoker"
	fldTarget           = "target"
	fldAction           = "action"
	fldName             = "name"
	fldParameters       = "parameters"
	fldCaveat           = "caveat"
	fldParentCapability = "parentCapability"
	fldCreated          = "created"
	fldExpires          = "expires"
	fldProof            = "proof"
	fldCapability       = "capability"
	fldNonce            = "nonce"
	fldVerificationMeth = "verificationMethod"
	fldProofPurpose     = "proofPurpose"
	fldProofValue       = "proofValue"
)

func serializeActor(a Actor) JSONMap {
	return JSONMap{fldID: a.ID, fldType: a.Type}
}

func parseActor(op, field string, v interface{}) (Actor, error) {
	m, ok := v.(JSONMap)
	if !ok {
		return Actor{}, newErr(KindValidation, op, fmt.Sprintf("field %q must be an object", field), nil)
	}
	id, _ := m[fldID].(string)
	typ, _ := m[fldType].(string)
	if id == "" {
		return Actor{}, newErr(KindValidation, op, fmt.Sprintf("field %q.id is required", field), nil)
	}
	return Actor{ID: id, Type: typ}, nil
}

func serializeTarget(t Target) JSONMap {
	m := JSONMap{}
	for k, v := range t.Properties {
		m[k] = v
	}
	m[fldID] = t.ID
	m[fldType] = t.Type
	return m
}

func parseTarget(op string, v interface{}) (Target, error) {
	m, ok := v.(JSONMap)
	if !ok {
		return Target{}, newErr(KindValidation, op, "field \"target\" must be an object", nil)
	}
	id, _ := m[fldID].(string)
	typ, _ := m[fldType].(string)
	if id == "" {
		return Target{}, newErr(KindValidation, op, "field \"target.id\" is required", nil)
	}
	props := JSONMap{}
	for k, v := range m {
		if k == fldID || k == fldType {
			continue
		}
		props[k] = v
	}
	return Target{ID: id, Type: typ, Properties: props}, nil
}

func serializeAction(a Action) JSONMap {
	m := JSONMap{fldName: a.Name}
	if a.Parameters != nil {
		m[fldParameters] = a.Parameters
	} else {
		m[fldParameters] = JSONMap{}
	}
	return m
}

func parseAction(op string, v interface{}) (Action, error) {
	m, ok := v.(JSONMap)
	if !ok {
		return Action{}, newErr(KindValidation, op, "action entry must be an object", nil)
	}
	name, _ := m[fldName].(string)
	if name == "" {
		return Action{}, newErr(KindValidation, op, "action.name is required", nil)
	}
	params, _ := m[fldParameters].(JSONMap)
	if params == nil {
		params = JSONMap{}
	}
	return Action{Name: name, Parameters: params}, nil
}

func serializeProof(p *Proof) JSONMap {
	if p == nil {
		return nil
	}
	m := JSONMap{
		fldType:             p.Type,
		fldCreated:          formatTime(p.Created),
		fldVerificationMeth: p.VerificationMethod,
		fldProofPurpose:     p.ProofPurpose,
		fldProofValue:       p.ProofValue,
	}
	if p.ID != "" {
		m[fldID] = p.ID
	}
	return m
}

func parseProof(op string, v interface{}) (*Proof, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(JSONMap)
	if !ok {
		return nil, newErr(KindValidation, op, "field \"proof\" must be an object", nil)
	}
	created, err := parseTime(op, "proof.created", m[fldCreated])
	if err != nil {
		return nil, err
	}
	id, _ := m[fldID].(string)
	typ, _ := m[fldType].(string)
	vm, _ := m[fldVerificationMeth].(string)
	purpose, _ := m[fldProofPurpose].(string)
	value, _ := m[fldProofValue].(string)
	if typ == "" || vm == "" || purpose == "" || value == "" {
		return nil, newErr(KindValidation, op, "proof is missing required fields", nil)
	}
	return &Proof{
		ID:                 id,
		Type:               typ,
		Created:            created,
		VerificationMethod: vm,
		ProofPurpose:       purpose,
		ProofValue:         value,
	}, nil
}

// ToJSONLD projects c into the JSON-LD wire representation used for
// canonicalization, signing, and transport.
func (c *Capability) ToJSONLD() (JSONMap, error) {
	if c.ID == "" {
		return nil, newErr(KindValidation, "ToJSONLD", "capability id is required", nil)
	}
	ctx := c.Context
	if len(ctx) == 0 {
		ctx = Contexts
	}
	m := JSONMap{
		fldContext:    toInterfaceSlice(ctx),
		fldID:         c.ID,
		fldType:       CapabilityType,
		fldController: serializeActor(c.Controller),
		fldInvoker:    serializeActor(c.Invoker),
		fldTarget:     serializeTarget(c.Target),
		fldCreated:    formatTime(c.Created),
	}
	actions := make([]interface{}, len(c.Actions))
	for i, a := range c.Actions {
		actions[i] = serializeAction(a)
	}
	m[fldAction] = actions

	if len(c.Caveats) > 0 {
		caveats := make([]interface{}, len(c.Caveats))
		for i, cv := range c.Caveats {
			caveats[i] = JSONMap(cv)
		}
		m[fldCaveat] = caveats
	}
	if c.ParentCapability != "" {
		m[fldParentCapability] = c.ParentCapability
	}
	if c.HasExpiry() {
		m[fldExpires] = formatTime(c.Expires)
	}
	if c.Proof != nil {
		m[fldProof] = serializeProof(c.Proof)
	}
	return m, nil
}

// FromJSONLD parses and validates a capability from its JSON-LD wire
// representation, rejecting missing required fields or type mismatches.
func FromJSONLD(m JSONMap, opts ...options.ParseOpt) (*Capability, error) {
	const op = "FromJSONLD"

	cfg := options.ParseOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.SkipSchemaValidation {
		if err := validateCapabilitySchema(m); err != nil {
			return nil, err
		}
	}

	id, _ := m[fldID].(string)
	if id == "" {
		return nil, newErr(KindValidation, op, "field \"id\" is required", nil)
	}
	typ, _ := m[fldType].(string)
	if typ != CapabilityType {
		return nil, newErr(KindValidation, op, fmt.Sprintf("field \"type\" must be %q", CapabilityType), nil)
	}

	ctxRaw, ok := m[fldContext].([]interface{})
	if !ok {
		return nil, newErr(KindValidation, op, "field \"@context\" must be an array", nil)
	}
	ctx := make([]string, 0, len(ctxRaw))
	for _, c := range ctxRaw {
		s, ok := c.(string)
		if !ok {
			return nil, newErr(KindValidation, op, "\"@context\" entries must be strings", nil)
		}
		ctx = append(ctx, s)
	}

	controller, err := parseActor(op, "controller", m[fldController])
	if err != nil {
		return nil, err
	}
	invoker, err := parseActor(op, "invoker", m[fldInvoker])
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(op, m[fldTarget])
	if err != nil {
		return nil, err
	}

	actionsRaw, ok := m[fldAction].([]interface{})
	if !ok || len(actionsRaw) == 0 {
		return nil, newErr(KindValidation, op, "field \"action\" must be a non-empty array", nil)
	}
	actions := make([]Action, len(actionsRaw))
	for i, a := range actionsRaw {
		parsed, err := parseAction(op, a)
		if err != nil {
			return nil, err
		}
		actions[i] = parsed
	}

	var caveats []Caveat
	if raw, ok := m[fldCaveat].([]interface{}); ok {
		caveats = make([]Caveat, len(raw))
		for i, c := range raw {
			cm, ok := c.(JSONMap)
			if !ok {
				return nil, newErr(KindValidation, op, "caveat entries must be objects", nil)
			}
			caveats[i] = Caveat(cm)
		}
	}

	created, err := parseTime(op, "created", m[fldCreated])
	if err != nil {
		return nil, err
	}

	var expires time.Time
	if raw, ok := m[fldExpires]; ok {
		expires, err = parseTime(op, "expires", raw)
		if err != nil {
			return nil, err
		}
	}

	parent, _ := m[fldParentCapability].(string)

	proof, err := parseProof(op, m[fldProof])
	if err != nil {
		return nil, err
	}

	return &Capability{
		ID:               id,
		Context:          ctx,
		Type:             typ,
		Controller:       controller,
		Invoker:          invoker,
		Target:           target,
		Actions:          actions,
		Caveats:          caveats,
		ParentCapability: parent,
		Created:          created,
		Expires:          expires,
		Proof:            proof,
	}, nil
}

// ToJSONLD projects inv into its wire representation.
func (inv *Invocation) ToJSONLD() (JSONMap, error) {
	m := JSONMap{
		fldContext:    toInterfaceSlice(Contexts),
		fldID:         inv.ID,
		fldType:       InvocationType,
		fldCapability: inv.Capability,
		fldAction:     serializeAction(inv.Action),
		fldCreated:    formatTime(inv.Created),
		fldNonce:      inv.Nonce,
	}
	if inv.Proof != nil {
		m[fldProof] = serializeProof(inv.Proof)
	}
	return m, nil
}

// InvocationFromJSONLD parses and validates an invocation document.
func InvocationFromJSONLD(m JSONMap, opts ...options.ParseOpt) (*Invocation, error) {
	const op = "InvocationFromJSONLD"

	cfg := options.ParseOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.SkipSchemaValidation {
		if err := validateInvocationSchema(m); err != nil {
			return nil, err
		}
	}

	id, _ := m[fldID].(string)
	typ, _ := m[fldType].(string)
	capID, _ := m[fldCapability].(string)
	nonce, _ := m[fldNonce].(string)
	if id == "" || typ != InvocationType || capID == "" || nonce == "" {
		return nil, newErr(KindValidation, op, "invocation document is missing required fields", nil)
	}

	action, err := parseAction(op, m[fldAction])
	if err != nil {
		return nil, err
	}
	created, err := parseTime(op, "created", m[fldCreated])
	if err != nil {
		return nil, err
	}
	proof, err := parseProof(op, m[fldProof])
	if err != nil {
		return nil, err
	}

	return &Invocation{
		ID:         id,
		Type:       typ,
		Capability: capID,
		Action:     action,
		Created:    created,
		Nonce:      nonce,
		Proof:      proof,
	}, nil
}

func toInterfaceSlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// canonicalize strips proof (if present) and runs URDNA2015 over the
// remainder, per spec section 4.1.
func canonicalize(doc JSONMap) ([]byte, error) {
	stripped := make(JSONMap, len(doc))
	for k, v := range doc {
		if k == fldProof {
			continue
		}
		stripped[k] = v
	}
	b, err := jsonld.Canonicalize(stripped)
	if err != nil {
		return nil, newErr(KindCanonicalization, "canonicalize", "failed to canonicalize document", err)
	}
	return b, nil
}
