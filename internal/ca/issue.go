package ca

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/remiblancher/private-ca/internal/audit"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/policy"
	"github.com/remiblancher/private-ca/internal/subject"
)

// IssueRequest holds the parameters for issuing an end-entity certificate.
type IssueRequest struct {
	// CA names the issuing authority.
	CA string

	// CSR is the signing request, PEM by default.
	CSR []byte

	// CSRFormat selects the CSR encoding: "PEM" (default) or "DER".
	CSRFormat string

	// Subject is the certificate's distinguished name. The CSR's own
	// subject is not trusted; its common name serves only as a fallback
	// when no subject is given here.
	Subject subject.Subject

	// ValidityDays is the certificate lifetime. Zero means the
	// configured default. A lifetime past the CA's expiry is rejected.
	ValidityDays int

	// ExcludeCNFromSAN leaves the common name out of the subject
	// alternative names. By default the CN is added as a DNS name and
	// must parse as one.
	ExcludeCNFromSAN bool

	// AltNames are the subject alternative names.
	AltNames extensions.AltNames

	// KeyUsage overrides the default end-entity key usage
	// (critical digitalSignature, keyEncipherment).
	KeyUsage    *extensions.KeyUsage
	ExtKeyUsage *extensions.ExtKeyUsage
	TLSFeature  *extensions.TLSFeature

	// Passphrase decrypts the CA's private key when it is encrypted.
	Passphrase []byte
}

// Issue signs an end-entity certificate against the named CA.
//
// Ordering contract: the expiry and identity checks run first; observers'
// BeforeIssuance fires exactly once per attempt that passes them, even when
// a later step (CSR decode, CN-to-SAN mapping, key decryption, signing)
// fails. AfterIssuance fires only on success.
func (e *Engine) Issue(ctx context.Context, req IssueRequest) (*Certificate, error) {
	defer keys.Zero(req.Passphrase)

	cert, err := e.issue(ctx, req)
	if err != nil {
		_ = audit.LogCertIssued(req.CA, "", req.Subject.String(), "", false)
		return nil, NewCAError("issue", err)
	}
	return cert, nil
}

func (e *Engine) issue(ctx context.Context, req IssueRequest) (*Certificate, error) {
	authority, err := e.store.LoadCA(ctx, req.CA)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if now.After(authority.NotAfter()) {
		return nil, ErrCAExpired
	}

	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = e.cfg.DefaultValidityDays
	}
	notAfter := now.AddDate(0, 0, validityDays)
	if err := policy.CheckExpiry(notAfter, authority.NotAfter(), now); err != nil {
		return nil, err
	}

	defaults, err := e.defaultSubject()
	if err != nil {
		return nil, err
	}
	subj := req.Subject.MergeDefaults(defaults).Clean()

	if subj.CommonName() == "" && req.AltNames.IsEmpty() {
		return nil, ErrMissingIdentity
	}

	// The attempt is now considered real: observers see it even if a
	// later step fails.
	e.notifyBefore(ctx, &req)

	csr, err := DecodeCSR(req.CSR, req.CSRFormat)
	if err != nil {
		return nil, err
	}

	san := req.AltNames
	cn := subj.CommonName()
	switch {
	case cn == "":
		// Fallback display name from the first alternative name.
		subj.Set("CN", firstAltName(san))
	case !req.ExcludeCNFromSAN:
		if err := san.AddCommonName(cn); err != nil {
			return nil, err
		}
	}

	spkiDER, err := marshalSPKI(csr.PublicKey)
	if err != nil {
		return nil, err
	}
	skid, err := ComputeSubjectKeyID(spkiDER)
	if err != nil {
		return nil, err
	}
	akid, err := authority.SubjectKeyID()
	if err != nil {
		return nil, err
	}

	keyUsage := req.KeyUsage
	if keyUsage == nil {
		keyUsage = &extensions.KeyUsage{
			Critical: true,
			Usage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		}
	}

	issuerAltNames, err := extensions.ParseAltNames(authority.IssuerAltName)
	if err != nil {
		return nil, err
	}

	set, err := extensions.Build(extensions.Params{
		KeyUsage:       keyUsage,
		ExtKeyUsage:    req.ExtKeyUsage,
		TLSFeature:     req.TLSFeature,
		AltNames:       san,
		IssuerAltNames: issuerAltNames,
		SubjectKeyID:   skid,
		AuthorityKeyID: akid,
		CRLURLs:        authority.CRLURLs,
		OCSPURL:        authority.OCSPURL,
		CAIssuersURL:   authority.IssuerURL,
	})
	if err != nil {
		return nil, err
	}

	caKey, err := keys.ParsePEM(authority.KeyPEM, req.Passphrase)
	if err != nil {
		_ = audit.LogAuthFailed(authority.Name, "CA key decryption failed")
		return nil, err
	}
	if err := audit.LogKeyAccessed(authority.Name, true, "sign certificate"); err != nil {
		return nil, err
	}

	serial, err := e.store.NextSerial(ctx, authority.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate serial: %w", err)
	}

	signed, err := signCertificate(serial, subj.PKIXName(), authority.Certificate, now, notAfter, csr.PublicKey, set.List(), caKey.Signer())
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		Serial: fmt.Sprintf("%x", serial),
		CA:     authority.Name,
		Cert:   signed,
	}
	if err := e.store.SaveCert(ctx, authority.Name, cert); err != nil {
		return nil, err
	}
	if err := audit.LogCertIssued(authority.Name, cert.Serial, signed.Subject.String(), algorithmLabel(caKey), true); err != nil {
		return nil, err
	}

	e.notifyAfter(ctx, &req, cert)
	return cert, nil
}

// firstAltName picks a display name from the alternative names, preferring
// DNS entries.
func firstAltName(san extensions.AltNames) string {
	if len(san.DNS) > 0 {
		return san.DNS[0]
	}
	if len(san.Email) > 0 {
		return san.Email[0]
	}
	if len(san.URI) > 0 {
		return san.URI[0]
	}
	if len(san.IP) > 0 {
		return san.IP[0].String()
	}
	return ""
}
