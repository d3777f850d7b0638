package keys

import (
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
)

// dsaPrivateKey mirrors the OpenSSL traditional DSA key structure. PKCS#8
// marshaling in the standard library does not cover DSA.
type dsaPrivateKey struct {
	Version int
	P, Q, G *big.Int
	Y, X    *big.Int
}

// EncodePEM serializes the private key to PEM. RSA and ECDSA keys use
// PKCS#8; DSA keys use the OpenSSL traditional encoding. A non-empty
// passphrase encrypts the block with AES-256.
func (m *Material) EncodePEM(passphrase []byte) ([]byte, error) {
	var block *pem.Block

	switch key := m.key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(m.key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal private key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	case *dsa.PrivateKey:
		der, err := asn1.Marshal(dsaPrivateKey{
			P: key.P, Q: key.Q, G: key.G, Y: key.Y, X: key.X,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal DSA key: %w", err)
		}
		block = &pem.Block{Type: "DSA PRIVATE KEY", Bytes: der}

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAlgorithm, m.key)
	}

	if len(passphrase) > 0 {
		var err error
		block, err = x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, passphrase, x509.PEMCipherAES256) //nolint:staticcheck // Deprecated but still used
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt private key: %w", err)
		}
	}

	return pem.EncodeToMemory(block), nil
}

// ParsePEM loads a private key from PEM data. Encrypted blocks require a
// passphrase: absent fails with ErrPasswordRequired, wrong fails with
// ErrDecryptionFailed.
func ParsePEM(data, passphrase []byte) (*Material, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key data")
	}

	keyBytes := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		if len(passphrase) == 0 {
			return nil, ErrPasswordRequired
		}
		var err error
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
	}

	switch block.Type {
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
		}
		return fromParsed(priv)

	case "EC PRIVATE KEY":
		priv, err := x509.ParseECPrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC key: %w", err)
		}
		return fromParsed(priv)

	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA key: %w", err)
		}
		return fromParsed(priv)

	case "DSA PRIVATE KEY":
		var parsed dsaPrivateKey
		if _, err := asn1.Unmarshal(keyBytes, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse DSA key: %w", err)
		}
		key := &dsa.PrivateKey{
			PublicKey: dsa.PublicKey{
				Parameters: dsa.Parameters{P: parsed.P, Q: parsed.Q, G: parsed.G},
				Y:          parsed.Y,
			},
			X: parsed.X,
		}
		return fromParsed(key)

	default:
		return nil, fmt.Errorf("unknown PEM type: %s", block.Type)
	}
}

// fromParsed wraps a parsed private key in Material with algorithm info.
func fromParsed(priv interface{}) (*Material, error) {
	switch key := priv.(type) {
	case *rsa.PrivateKey:
		return &Material{Algorithm: AlgRSA, Bits: key.N.BitLen(), key: key}, nil
	case *ecdsa.PrivateKey:
		curve := key.Curve.Params().Name
		return &Material{Algorithm: AlgECDSA, Curve: curve, Bits: key.Curve.Params().BitSize, key: key}, nil
	case *dsa.PrivateKey:
		return &Material{Algorithm: AlgDSA, Bits: key.P.BitLen(), key: key}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAlgorithm, priv)
	}
}
