// Package ca implements certificate authority creation and issuance.
package ca

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

// Authority is a certificate authority record. Created once, immutable
// afterwards; the parent reference makes the CA hierarchy a tree.
type Authority struct {
	// Name uniquely identifies the CA in the store.
	Name string `yaml:"name"`

	// Serial is the CA certificate serial number in hex.
	Serial string `yaml:"serial"`

	// Parent is the name of the issuing CA, empty for a root.
	Parent string `yaml:"parent,omitempty"`

	// PathLen restricts how deep intermediates may chain below this CA.
	// Nil means unlimited.
	PathLen *int `yaml:"pathlen,omitempty"`

	// CRLURLs, OCSPURL and IssuerURL are stamped into certificates this
	// CA issues. They are not the URLs embedded in the CA's own
	// certificate.
	CRLURLs   []string `yaml:"crl_urls,omitempty"`
	OCSPURL   string   `yaml:"ocsp_url,omitempty"`
	IssuerURL string   `yaml:"issuer_url,omitempty"`

	// IssuerAltName holds the CA's alternative names as "TYPE:value"
	// tokens, stamped as the issuerAltName extension on certificates
	// this CA issues.
	IssuerAltName []string `yaml:"issuer_alt_name,omitempty"`

	// KeyPEM is the CA private key, PEM-encoded and possibly encrypted.
	KeyPEM []byte `yaml:"-"`

	// Certificate is the CA's own certificate.
	Certificate *x509.Certificate `yaml:"-"`
}

// AllowsIntermediateCA reports whether this CA may sign a child CA.
// True iff pathlen is unset or greater than zero.
func (a *Authority) AllowsIntermediateCA() bool {
	return a.PathLen == nil || *a.PathLen > 0
}

// IsRoot reports whether this CA is self-signed.
func (a *Authority) IsRoot() bool {
	return a.Parent == ""
}

// NotAfter returns the CA certificate's expiry.
func (a *Authority) NotAfter() time.Time {
	return a.Certificate.NotAfter
}

// SubjectKeyID returns the CA's subject key identifier as embedded in its
// certificate, falling back to a digest of its public key.
func (a *Authority) SubjectKeyID() ([]byte, error) {
	if len(a.Certificate.SubjectKeyId) > 0 {
		return a.Certificate.SubjectKeyId, nil
	}
	return ComputeSubjectKeyID(a.Certificate.RawSubjectPublicKeyInfo)
}

// CertificatePEM returns the CA certificate PEM-encoded.
func (a *Authority) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: a.Certificate.Raw})
}

// Certificate is an issued end-entity certificate.
type Certificate struct {
	// Serial is the certificate serial number in hex.
	Serial string

	// CA is the name of the issuing authority.
	CA string

	// Cert is the parsed certificate.
	Cert *x509.Certificate
}

// PEM returns the certificate PEM-encoded.
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Cert.Raw})
}

// DER returns the raw DER encoding.
func (c *Certificate) DER() []byte {
	return c.Cert.Raw
}

// ComputeSubjectKeyID derives a key identifier from a DER-encoded
// SubjectPublicKeyInfo, using a truncated SHA-256 digest (RFC 7093 method 1).
func ComputeSubjectKeyID(spkiDER []byte) ([]byte, error) {
	if len(spkiDER) == 0 {
		return nil, fmt.Errorf("empty SubjectPublicKeyInfo")
	}
	sum := sha256.Sum256(spkiDER)
	return sum[:20], nil
}
