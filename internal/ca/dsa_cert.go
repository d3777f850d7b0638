package ca

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA certificates remain supported for legacy deployments
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"
)

// crypto/x509 neither marshals DSA public keys nor signs with DSA keys, so
// certificates involving DSA on either side are assembled by hand: encode
// the TBSCertificate, digest it with SHA-256, and sign with the CA key.

var (
	oidDSAPublicKey       = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	oidSigDSAWithSHA256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}
	oidSigSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSigECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}

	asn1NullBytes = []byte{0x05, 0x00}
)

type tbsCertificate struct {
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	Extensions         []pkix.Extension `asn1:"optional,explicit,tag:3,omitempty"`
}

type validity struct {
	NotBefore, NotAfter time.Time
}

type certificateDER struct {
	TBSCertificate     asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

type dsaParameters struct {
	P, Q, G *big.Int
}

// marshalSPKI encodes a SubjectPublicKeyInfo, covering the DSA case the
// standard library refuses.
func marshalSPKI(pub crypto.PublicKey) ([]byte, error) {
	switch key := pub.(type) {
	case *dsa.PublicKey:
		return marshalDSAPublicKey(key)
	default:
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal public key: %w", err)
		}
		return der, nil
	}
}

// marshalDSAPublicKey encodes a DSA SubjectPublicKeyInfo per RFC 3279:
// algorithm parameters carry P, Q and G, the subjectPublicKey BIT STRING
// wraps the INTEGER Y.
func marshalDSAPublicKey(key *dsa.PublicKey) ([]byte, error) {
	params, err := asn1.Marshal(dsaParameters{P: key.P, Q: key.Q, G: key.G})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DSA parameters: %w", err)
	}
	y, err := asn1.Marshal(key.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DSA public value: %w", err)
	}

	spki := struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}{
		Algorithm: pkix.AlgorithmIdentifier{
			Algorithm:  oidDSAPublicKey,
			Parameters: asn1.RawValue{FullBytes: params},
		},
		PublicKey: asn1.BitString{Bytes: y, BitLength: len(y) * 8},
	}
	return asn1.Marshal(spki)
}

// signatureAlgorithmFor picks the AlgorithmIdentifier matching the signer's
// key, always over SHA-256.
func signatureAlgorithmFor(signer crypto.Signer) (pkix.AlgorithmIdentifier, error) {
	switch signer.Public().(type) {
	case *dsa.PublicKey:
		return pkix.AlgorithmIdentifier{Algorithm: oidSigDSAWithSHA256}, nil
	case *rsa.PublicKey:
		return pkix.AlgorithmIdentifier{
			Algorithm:  oidSigSHA256WithRSA,
			Parameters: asn1.RawValue{FullBytes: asn1NullBytes},
		}, nil
	case *ecdsa.PublicKey:
		return pkix.AlgorithmIdentifier{Algorithm: oidSigECDSAWithSHA256}, nil
	default:
		return pkix.AlgorithmIdentifier{}, fmt.Errorf("unsupported signing key type %T", signer.Public())
	}
}

// createCertificateManual assembles and signs a certificate without
// crypto/x509. Used whenever the subject or issuer key is DSA. Subject and
// issuer arrive as raw DER so a parent's distinguished name is carried
// byte-for-byte from its certificate.
func createCertificateManual(serial *big.Int, subjectDER, issuerDER []byte, notBefore, notAfter time.Time, spkiDER []byte, exts []pkix.Extension, signer crypto.Signer) ([]byte, error) {
	sigAlg, err := signatureAlgorithmFor(signer)
	if err != nil {
		return nil, err
	}

	tbs := tbsCertificate{
		Version:            2, // X.509 v3
		SerialNumber:       serial,
		SignatureAlgorithm: sigAlg,
		Issuer:             asn1.RawValue{FullBytes: issuerDER},
		Validity:           validity{NotBefore: notBefore.UTC(), NotAfter: notAfter.UTC()},
		Subject:            asn1.RawValue{FullBytes: subjectDER},
		PublicKey:          asn1.RawValue{FullBytes: spkiDER},
		Extensions:         exts,
	}

	tbsDER, err := asn1.Marshal(tbs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tbsCertificate: %w", err)
	}

	digest := sha256.Sum256(tbsDER)
	signature, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}

	return asn1.Marshal(certificateDER{
		TBSCertificate:     asn1.RawValue{FullBytes: tbsDER},
		SignatureAlgorithm: sigAlg,
		SignatureValue:     asn1.BitString{Bytes: signature, BitLength: len(signature) * 8},
	})
}

// needsManualPath reports whether either key forces the hand-rolled
// certificate assembly.
func needsManualPath(subjectPub, issuerPub crypto.PublicKey) bool {
	if _, ok := subjectPub.(*dsa.PublicKey); ok {
		return true
	}
	if _, ok := issuerPub.(*dsa.PublicKey); ok {
		return true
	}
	return false
}
