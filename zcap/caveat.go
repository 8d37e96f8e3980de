package zcap

import (
	"fmt"
	"time"
)

// Recognized caveat type tags.
const (
	CaveatValidUntil      = "ValidUntil"
	CaveatValidAfter      = "ValidAfter"
	CaveatAllowedAction   = "AllowedAction"
	CaveatRequireParam    = "RequireParameter"
	CaveatMaxUses         = "MaxUses"
	CaveatAllowedNetwork  = "AllowedNetwork"
	CaveatValidWhileTrue  = "ValidWhileTrue"
)

// opaqueCaveats are caveats the evaluator cannot fully decide; the
// caller must enforce them out of band.
var opaqueCaveats = map[string]bool{
	CaveatMaxUses:        true,
	CaveatAllowedNetwork: true,
}

// EvalContext supplies the ambient facts a caveat is checked against.
// ActionName and Parameters are only present when evaluating in the
// context of a specific invocation; a time-only context (used during
// chain verification) leaves them zero.
type EvalContext struct {
	Now        time.Time
	ActionName string // empty when not evaluating a specific action
	HasAction  bool
	Parameters JSONMap
	Revoked    RevocationChecker
}

// RevocationChecker abstracts the caller's revocation set for caveat
// evaluation (ValidWhileTrue).
type RevocationChecker interface {
	IsRevoked(id string) bool
}

// OpaqueCaveat is surfaced to the caller instead of an error: the
// evaluator could not fully decide it and the caller must enforce it.
type OpaqueCaveat struct {
	Caveat Caveat
}

// EvaluateCaveat checks a single caveat against ctx. opaque is non-nil
// only when the caveat is a recognized-but-opaque type (MaxUses,
// AllowedNetwork); the caller must consult the returned OpaqueCaveat.
// An error is returned for an unsatisfied, unknown, or malformed
// caveat.
func EvaluateCaveat(c Caveat, ctx EvalContext) (opaque *OpaqueCaveat, err error) {
	const op = "EvaluateCaveat"
	tag := c.Type()
	if tag == "" {
		return nil, newErr(KindCaveatEvaluation, op, "caveat is missing a \"type\" tag", nil)
	}

	if opaqueCaveats[tag] {
		return &OpaqueCaveat{Caveat: c}, nil
	}

	switch tag {
	case CaveatValidUntil:
		date, err := caveatTime(op, c, "date")
		if err != nil {
			return nil, err
		}
		if ctx.Now.After(date) {
			return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("ValidUntil %s has passed", date), nil)
		}
		return nil, nil

	case CaveatValidAfter:
		date, err := caveatTime(op, c, "date")
		if err != nil {
			return nil, err
		}
		if ctx.Now.Before(date) {
			return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("ValidAfter %s has not arrived", date), nil)
		}
		return nil, nil

	case CaveatAllowedAction:
		if !ctx.HasAction {
			return nil, nil
		}
		actions, err := caveatStringSlice(op, c, "actions")
		if err != nil {
			return nil, err
		}
		for _, a := range actions {
			if a == ctx.ActionName {
				return nil, nil
			}
		}
		return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("action %q not in AllowedAction list", ctx.ActionName), nil)

	case CaveatRequireParam:
		name, ok := c["name"].(string)
		if !ok || name == "" {
			return nil, newErr(KindCaveatEvaluation, op, "RequireParameter caveat is missing \"name\"", nil)
		}
		if !ctx.HasAction {
			// Nothing to check yet; the caveat only binds at invocation time.
			return nil, nil
		}
		val, present := ctx.Parameters[name]
		if !present {
			return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("required parameter %q is absent", name), nil)
		}
		if want, hasWant := c["value"]; hasWant {
			if !equalJSON(want, val) {
				return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("parameter %q does not match required value", name), nil)
			}
		}
		return nil, nil

	case CaveatValidWhileTrue:
		resourceID, ok := c["resource_id"].(string)
		if !ok || resourceID == "" {
			return nil, newErr(KindCaveatEvaluation, op, "ValidWhileTrue caveat is missing \"resource_id\"", nil)
		}
		if ctx.Revoked != nil && ctx.Revoked.IsRevoked(resourceID) {
			return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("resource %q has been revoked", resourceID), nil)
		}
		return nil, nil

	default:
		return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("unrecognized caveat type %q", tag), nil)
	}
}

// EvaluateCaveats evaluates each of caveats in declaration order,
// short-circuiting on the first failure. Opaque results accumulate and
// are returned alongside a nil error when every non-opaque caveat
// passes.
func EvaluateCaveats(caveats []Caveat, ctx EvalContext) ([]OpaqueCaveat, error) {
	var opaques []OpaqueCaveat
	for _, c := range caveats {
		opaque, err := EvaluateCaveat(c, ctx)
		if err != nil {
			return opaques, err
		}
		if opaque != nil {
			opaques = append(opaques, *opaque)
		}
	}
	return opaques, nil
}

func caveatTime(op string, c Caveat, field string) (time.Time, error) {
	raw, ok := c[field].(string)
	if !ok || raw == "" {
		return time.Time{}, newErr(KindCaveatEvaluation, op, fmt.Sprintf("caveat is missing string field %q", field), nil)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, newErr(KindCaveatEvaluation, op, fmt.Sprintf("caveat field %q is not RFC3339", field), err)
	}
	return t, nil
}

func caveatStringSlice(op string, c Caveat, field string) ([]string, error) {
	raw, ok := c[field].([]interface{})
	if !ok {
		return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("caveat is missing array field %q", field), nil)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, newErr(KindCaveatEvaluation, op, fmt.Sprintf("caveat field %q must contain strings", field), nil)
		}
		out = append(out, s)
	}
	return out, nil
}

// equalJSON compares two values as decoded from JSON (so a float64 and
// an int, or two strings, compare structurally rather than by type
// identity).
func equalJSON(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
