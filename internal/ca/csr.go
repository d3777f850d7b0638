package ca

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// CSR encodings accepted by the issuance engine.
const (
	CSRFormatPEM = "PEM"
	CSRFormatDER = "DER"
)

// DecodeCSR parses a certificate signing request in the declared format.
// An empty format means PEM. The request's signature is verified; its
// subject is not trusted.
func DecodeCSR(data []byte, format string) (*x509.CertificateRequest, error) {
	var der []byte

	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "", CSRFormatPEM:
		block, _ := pem.Decode(data)
		if block == nil || block.Type != "CERTIFICATE REQUEST" {
			return nil, fmt.Errorf("%w: no CERTIFICATE REQUEST block found", ErrInvalidCSR)
		}
		der = block.Bytes
	case CSRFormatDER:
		der = data
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCSRFormat, format)
	}

	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSR, err)
	}
	// crypto/x509 cannot verify DSA signatures; the key is still usable.
	if csr.SignatureAlgorithm != x509.DSAWithSHA1 && csr.SignatureAlgorithm != x509.DSAWithSHA256 {
		if err := csr.CheckSignature(); err != nil {
			return nil, fmt.Errorf("%w: signature check failed: %v", ErrInvalidCSR, err)
		}
	}
	return csr, nil
}
