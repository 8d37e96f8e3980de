package zcap

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into the taxonomy of spec section 7. Every
// error the engine returns can be inspected with errors.As against
// *Error and switched on Kind, or matched with errors.Is against one
// of the Err* sentinels below. KindCanonicalization has no sentinel.
type Kind string

const (
	KindSignatureVerification  Kind = "signature_verification"
	KindCaveatEvaluation       Kind = "caveat_evaluation"
	KindCapabilityVerification Kind = "capability_verification"
	KindInvocationVerification Kind = "invocation_verification"
	KindDelegation             Kind = "delegation"
	KindInvocation             Kind = "invocation"
	KindDIDKeyNotFound         Kind = "did_key_not_found"
	KindCapabilityNotFound     Kind = "capability_not_found"
	KindValidation             Kind = "validation"
	KindCanonicalization       Kind = "canonicalization"
)

// Error is the single type every engine error is returned as, grounded on
// the teacher's consistent fmt.Errorf("...: %w", err) wrapping idiom.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zcap: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("zcap: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Sentinels for errors.Is comparisons against a specific taxonomy
// member without needing the *Error wrapper's Kind field.
var (
	ErrSignatureVerification  = errors.New("signature verification failed")
	ErrCaveatEvaluation       = errors.New("caveat evaluation failed")
	ErrCapabilityVerification = errors.New("capability verification failed")
	ErrInvocationVerification = errors.New("invocation verification failed")
	ErrDelegation             = errors.New("delegation rejected")
	ErrInvocation             = errors.New("invocation rejected")
	ErrDIDKeyNotFound         = errors.New("DID key not found")
	ErrCapabilityNotFound     = errors.New("capability not found")
	ErrValidation             = errors.New("validation failed")
)

func kindSentinel(k Kind) error {
	switch k {
	case KindSignatureVerification:
		return ErrSignatureVerification
	case KindCaveatEvaluation:
		return ErrCaveatEvaluation
	case KindCapabilityVerification:
		return ErrCapabilityVerification
	case KindInvocationVerification:
		return ErrInvocationVerification
	case KindDelegation:
		return ErrDelegation
	case KindInvocation:
		return ErrInvocation
	case KindDIDKeyNotFound:
		return ErrDIDKeyNotFound
	case KindCapabilityNotFound:
		return ErrCapabilityNotFound
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Is lets errors.Is(err, zcap.ErrCapabilityVerification) succeed against
// an *Error of the matching Kind, even though the sentinel is never
// stored as Err directly.
func (e *Error) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}
