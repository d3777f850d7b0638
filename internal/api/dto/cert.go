package dto

// CertIssueRequest represents a certificate issuance request.
type CertIssueRequest struct {
	// CSR is the certificate signing request.
	CSR *BinaryData `json:"csr"`

	// CSRFormat selects the CSR encoding: "PEM" (default) or "DER".
	CSRFormat string `json:"csr_format,omitempty"`

	// Subject is the certificate subject in "/C=FR/O=Org/CN=Name" form.
	// The CSR's own subject is not trusted.
	Subject string `json:"subject,omitempty"`

	// ValidityDays overrides the configured default validity.
	ValidityDays int `json:"validity_days,omitempty"`

	// ExcludeCNFromSAN leaves the common name out of the subject
	// alternative names.
	ExcludeCNFromSAN bool `json:"exclude_cn_from_san,omitempty"`

	// AltNames are "TYPE:value" SAN tokens (DNS, email, IP, URI).
	AltNames []string `json:"alt_names,omitempty"`

	// Extension flag values, OpenSSL-style comma-separated tokens with
	// an optional leading "critical".
	KeyUsage    string `json:"key_usage,omitempty"`
	ExtKeyUsage string `json:"ext_key_usage,omitempty"`
	TLSFeature  string `json:"tls_feature,omitempty"`

	// Passphrase decrypts the CA key when it is encrypted.
	Passphrase string `json:"passphrase,omitempty"`
}

// CertResponse represents an issued certificate.
type CertResponse struct {
	// Serial is the certificate serial number (hex).
	Serial string `json:"serial"`

	// CA names the issuing authority.
	CA string `json:"ca"`

	// Subject is the certificate subject.
	Subject string `json:"subject"`

	// Issuer is the certificate issuer.
	Issuer string `json:"issuer"`

	// Validity is the certificate validity period.
	Validity ValidityInfo `json:"validity"`

	// DNSNames lists the subject alternative DNS names.
	DNSNames []string `json:"dns_names,omitempty"`

	// Fingerprint is the SHA-256 fingerprint of the certificate.
	Fingerprint string `json:"fingerprint"`

	// Certificate is the PEM-encoded certificate.
	Certificate string `json:"certificate"`
}
