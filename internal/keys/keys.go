// Package keys generates and serializes CA and end-entity key material.
// RSA, DSA and ECDSA are supported. Private keys serialize to PEM and are
// encrypted at rest with AES-256 when a passphrase is supplied.
package keys

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA keys remain supported for legacy CAs
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

// Algorithm identifies a key algorithm.
type Algorithm string

const (
	AlgRSA   Algorithm = "RSA"
	AlgDSA   Algorithm = "DSA"
	AlgECDSA Algorithm = "ECDSA"
)

// DefaultMinBits is the minimum RSA/DSA key size accepted when the caller
// does not configure one.
const DefaultMinBits = 2048

// Sentinel errors for key generation and loading.
var (
	// ErrKeySize indicates an RSA/DSA key size that is not an accepted
	// power of two at or above the configured minimum.
	ErrKeySize = errors.New("unsupported key size")

	// ErrUnknownCurve indicates an unrecognized ECDSA curve name.
	ErrUnknownCurve = errors.New("unknown elliptic curve")

	// ErrUnknownAlgorithm indicates an unsupported key algorithm.
	ErrUnknownAlgorithm = errors.New("unknown key algorithm")

	// ErrPasswordRequired indicates an encrypted key was loaded without a
	// passphrase.
	ErrPasswordRequired = errors.New("private key is encrypted but no passphrase provided")

	// ErrDecryptionFailed indicates the supplied passphrase did not
	// decrypt the key.
	ErrDecryptionFailed = errors.New("failed to decrypt private key")
)

// Spec describes the key to generate: algorithm plus size (RSA/DSA) or
// curve name (ECDSA). MinBits overrides DefaultMinBits when non-zero.
type Spec struct {
	Algorithm Algorithm
	Bits      int
	Curve     string
	MinBits   int
}

// Material holds a generated or loaded private key.
type Material struct {
	Algorithm Algorithm
	Bits      int
	Curve     string

	key crypto.PrivateKey
}

// dsaParamSizes maps accepted DSA key sizes to their parameter sets.
var dsaParamSizes = map[int]dsa.ParameterSizes{
	1024: dsa.L1024N160,
	2048: dsa.L2048N256,
	3072: dsa.L3072N256,
}

// namedCurves maps accepted curve names to stdlib curves. Both the
// SECG names and the NIST aliases are recognized.
var namedCurves = map[string]elliptic.Curve{
	"SECP256R1": elliptic.P256(),
	"P-256":     elliptic.P256(),
	"SECP384R1": elliptic.P384(),
	"P-384":     elliptic.P384(),
	"SECP521R1": elliptic.P521(),
	"P-521":     elliptic.P521(),
}

// Generate creates a new private key from the spec. RSA and DSA sizes must
// be a power of two at or above the minimum; ECDSA requires a recognized
// named curve. Output is non-deterministic (crypto/rand); callers should
// assert structure, not bytes.
func Generate(spec Spec) (*Material, error) {
	switch spec.Algorithm {
	case AlgRSA:
		if err := checkSize(spec.Bits, spec.minBits()); err != nil {
			return nil, err
		}
		key, err := rsa.GenerateKey(rand.Reader, spec.Bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA key: %w", err)
		}
		return &Material{Algorithm: AlgRSA, Bits: spec.Bits, key: key}, nil

	case AlgDSA:
		if err := checkSize(spec.Bits, spec.minBits()); err != nil {
			return nil, err
		}
		sizes, ok := dsaParamSizes[spec.Bits]
		if !ok {
			return nil, fmt.Errorf("%w: DSA does not support %d bits", ErrKeySize, spec.Bits)
		}
		var params dsa.Parameters
		if err := dsa.GenerateParameters(&params, rand.Reader, sizes); err != nil {
			return nil, fmt.Errorf("failed to generate DSA parameters: %w", err)
		}
		key := &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: params}}
		if err := dsa.GenerateKey(key, rand.Reader); err != nil {
			return nil, fmt.Errorf("failed to generate DSA key: %w", err)
		}
		return &Material{Algorithm: AlgDSA, Bits: spec.Bits, key: key}, nil

	case AlgECDSA:
		name := spec.Curve
		if name == "" {
			name = "SECP256R1"
		}
		curve, ok := namedCurves[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCurve, name)
		}
		key, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
		}
		return &Material{Algorithm: AlgECDSA, Curve: name, Bits: curve.Params().BitSize, key: key}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, spec.Algorithm)
	}
}

func (s Spec) minBits() int {
	if s.MinBits > 0 {
		return s.MinBits
	}
	return DefaultMinBits
}

// checkSize validates an RSA/DSA key size: power of two, at or above min.
func checkSize(bits, min int) error {
	if bits < min {
		return fmt.Errorf("%w: %d is below the minimum of %d bits", ErrKeySize, bits, min)
	}
	if bits&(bits-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of two", ErrKeySize, bits)
	}
	return nil
}

// Signer returns the key as a crypto.Signer. DSA keys, which do not
// implement crypto.Signer in the standard library, are wrapped.
func (m *Material) Signer() crypto.Signer {
	switch key := m.key.(type) {
	case *rsa.PrivateKey:
		return key
	case *ecdsa.PrivateKey:
		return key
	case *dsa.PrivateKey:
		return &dsaSigner{key: key}
	}
	return nil
}

// Public returns the public half of the key.
func (m *Material) Public() crypto.PublicKey {
	switch key := m.key.(type) {
	case *rsa.PrivateKey:
		return &key.PublicKey
	case *ecdsa.PrivateKey:
		return &key.PublicKey
	case *dsa.PrivateKey:
		return &key.PublicKey
	}
	return nil
}

// PrivateKey returns the underlying private key. Prefer Signer().
func (m *Material) PrivateKey() crypto.PrivateKey {
	return m.key
}

// Zero overwrites a passphrase or other secret buffer.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
