// Package crypto signs and verifies canonicalized capability bytes with
// Ed25519, encoding signatures as z-prefixed multibase base58btc.
package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/multiformats/go-multibase"
)

// SignatureSize is the fixed length of a raw Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// ErrVerification is the sentinel every signature-verification failure
// wraps: malformed encoding, wrong length, or a cryptographic mismatch.
var ErrVerification = errors.New("crypto: signature verification failed")

// Signer produces raw signature bytes over caller-supplied data. It
// mirrors the teacher's did/signer.Signer interface, narrowed to the
// single algorithm this engine supports.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	Public() ed25519.PublicKey
}

// Ed25519Signer wraps a private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer builds a Signer from a raw private key.
func NewEd25519Signer(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv}
}

// Sign returns the raw 64-byte Ed25519 signature over data.
func (s *Ed25519Signer) Sign(data []byte) ([]byte, error) {
	if len(s.priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid private key size: %d", len(s.priv))
	}
	return ed25519.Sign(s.priv, data), nil
}

// Public returns the public half of the signing key.
func (s *Ed25519Signer) Public() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// EncodeSignature multibase-encodes a raw 64-byte signature as
// z<base58btc>, per spec section 4.2.
func EncodeSignature(sig []byte) (string, error) {
	if len(sig) != SignatureSize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrVerification, SignatureSize, len(sig))
	}
	encoded, err := multibase.Encode(multibase.Base58BTC, sig)
	if err != nil {
		return "", fmt.Errorf("crypto: multibase encode: %w", err)
	}
	return encoded, nil
}

// DecodeSignature accepts either the canonical z-prefixed base58btc
// multibase encoding, or (legacy, input-only) a 0x-prefixed hex string.
func DecodeSignature(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty signature", ErrVerification)
	}

	if strings.HasPrefix(encoded, "0x") {
		sig, err := hexutil.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy hex decode: %v", ErrVerification, err)
		}
		if len(sig) != SignatureSize {
			return nil, fmt.Errorf("%w: legacy hex signature has length %d, want %d", ErrVerification, len(sig), SignatureSize)
		}
		return sig, nil
	}

	enc, sig, err := multibase.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: multibase decode: %v", ErrVerification, err)
	}
	if enc != multibase.Base58BTC {
		return nil, fmt.Errorf("%w: unsupported multibase encoding %q, want base58btc (z)", ErrVerification, string(rune(enc)))
	}
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("%w: signature has length %d, want %d", ErrVerification, len(sig), SignatureSize)
	}
	return sig, nil
}

// Verify checks sig (in either accepted encoding) over data against pub.
func Verify(pub ed25519.PublicKey, data []byte, encodedSig string) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: invalid public key size %d", ErrVerification, len(pub))
	}
	sig, err := DecodeSignature(encodedSig)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, data, sig) {
		return fmt.Errorf("%w: signature does not match", ErrVerification)
	}
	return nil
}
