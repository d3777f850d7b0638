package keys

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"encoding/asn1"
	"fmt"
	"io"
	"math/big"
)

// dsaSigner adapts *dsa.PrivateKey to crypto.Signer. The standard library
// can parse DSA certificates but not create them, so DSA-signed
// certificates are assembled manually (see internal/ca); this adapter
// produces the Dss-Sig-Value signature bytes for that path.
type dsaSigner struct {
	key *dsa.PrivateKey
}

var _ crypto.Signer = (*dsaSigner)(nil)

// dsaSignature mirrors the Dss-Sig-Value ASN.1 structure (RFC 3279 §2.2.2).
type dsaSignature struct {
	R, S *big.Int
}

func (s *dsaSigner) Public() crypto.PublicKey {
	return &s.key.PublicKey
}

// Sign signs a pre-hashed digest. DSA truncates digests longer than the
// subgroup order internally, so SHA-256 digests work with all accepted
// parameter sets.
func (s *dsaSigner) Sign(random io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	r, sig, err := dsa.Sign(random, s.key, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with DSA key: %w", err)
	}
	return asn1.Marshal(dsaSignature{R: r, S: sig})
}
