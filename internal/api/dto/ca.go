package dto

// CACreateRequest represents a CA creation request.
type CACreateRequest struct {
	// Name is the CA identifier (required).
	Name string `json:"name"`

	// Subject is the CA subject in "/C=FR/O=Org/CN=Name" form. The CN
	// defaults to the CA name.
	Subject string `json:"subject,omitempty"`

	// Algorithm selects the key algorithm: "RSA", "DSA" or "ECDSA".
	Algorithm string `json:"algorithm,omitempty"`

	// KeyBits is the key size for RSA/DSA keys.
	KeyBits int `json:"key_bits,omitempty"`

	// Curve is the named curve for ECDSA keys.
	Curve string `json:"curve,omitempty"`

	// ValidityDays overrides the configured default validity.
	ValidityDays int `json:"validity_days,omitempty"`

	// Parent names the issuing CA for intermediates.
	Parent string `json:"parent,omitempty"`

	// ParentPassphrase decrypts the parent CA's key.
	ParentPassphrase string `json:"parent_passphrase,omitempty"`

	// Passphrase encrypts the new CA's private key.
	Passphrase string `json:"passphrase,omitempty"`

	// PathLen limits how deep the CA's subtree may grow. Null means
	// unbounded; zero forbids intermediates.
	PathLen *int `json:"path_len,omitempty"`

	// URLs embedded in the CA's own certificate. Not allowed for roots.
	CACRLURLs []string `json:"ca_crl_urls,omitempty"`
	CAOCSPURL string   `json:"ca_ocsp_url,omitempty"`

	// URLs stamped on certificates this CA issues.
	CRLURLs   []string `json:"crl_urls,omitempty"`
	OCSPURL   string   `json:"ocsp_url,omitempty"`
	IssuerURL string   `json:"issuer_url,omitempty"`

	// IssuerAltName lists the CA's alternative names as "TYPE:value"
	// tokens, stamped as the issuerAltName extension on certificates
	// it issues.
	IssuerAltName []string `json:"issuer_alt_name,omitempty"`

	// NameConstraints are "permitted|excluded,TYPE:value" tokens, e.g.
	// "permitted,DNS:example.com".
	NameConstraints []string `json:"name_constraints,omitempty"`
}

// CAResponse represents a CA.
type CAResponse struct {
	// Name is the CA identifier.
	Name string `json:"name"`

	// Subject is the CA certificate subject.
	Subject string `json:"subject"`

	// Serial is the certificate serial number (hex).
	Serial string `json:"serial"`

	// Parent names the issuing CA, empty for roots.
	Parent string `json:"parent,omitempty"`

	// PathLen is the path length constraint, null when unbounded.
	PathLen *int `json:"path_len,omitempty"`

	// Validity is the certificate validity period.
	Validity ValidityInfo `json:"validity"`

	// Fingerprint is the SHA-256 fingerprint of the certificate.
	Fingerprint string `json:"fingerprint"`

	// Certificate is the PEM-encoded CA certificate.
	Certificate string `json:"certificate"`
}

// CAListResponse lists stored CAs.
type CAListResponse struct {
	CAs []string `json:"cas"`
}

// CAChildrenResponse lists a CA's direct intermediates.
type CAChildrenResponse struct {
	Children []string `json:"children"`
}
