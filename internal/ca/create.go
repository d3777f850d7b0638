package ca

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"

	"github.com/remiblancher/private-ca/internal/audit"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/policy"
	"github.com/remiblancher/private-ca/internal/subject"
)

// CreateCARequest holds the parameters for creating a certificate authority.
type CreateCARequest struct {
	// Name uniquely identifies the CA in the store.
	Name string

	// Subject is the CA's distinguished name. CN defaults to Name.
	Subject subject.Subject

	// Key describes the key to generate.
	Key keys.Spec

	// ValidityDays is the CA certificate lifetime. Zero means the
	// configured default. For an intermediate CA a lifetime past the
	// parent's expiry is silently clamped to the parent's expiry.
	ValidityDays int

	// Parent names the issuing CA; empty creates a self-signed root.
	Parent string

	// ParentPassphrase decrypts the parent's private key when needed.
	ParentPassphrase []byte

	// Passphrase encrypts the new CA's private key at rest. Empty
	// stores the key unencrypted.
	Passphrase []byte

	// PathLen restricts chaining depth below this CA. Nil = unlimited.
	PathLen *int

	// CACRLURLs and CAOCSPURL are embedded in this CA's own certificate.
	// Both are forbidden for root CAs.
	CACRLURLs []string
	CAOCSPURL string

	// CAIssuerURL is the caIssuers access URL embedded in this CA's own
	// certificate.
	CAIssuerURL string

	// CRLURLs, OCSPURL and IssuerURL are stamped on certificates this CA
	// issues, not on the CA certificate itself.
	CRLURLs   []string
	OCSPURL   string
	IssuerURL string

	// IssuerAltName lists this CA's alternative names as "TYPE:value"
	// tokens, stamped as the issuerAltName extension on certificates it
	// issues.
	IssuerAltName []string

	// KeyUsage overrides the default CA key usage
	// (critical keyCertSign, cRLSign).
	KeyUsage *extensions.KeyUsage

	// NameConstraints limits the names this CA may certify.
	NameConstraints *extensions.NameConstraints
}

// CreateCA creates a root or intermediate certificate authority.
//
// An intermediate's requested expiry past the parent's is clamped, not
// rejected. A parent with pathlen 0 fails with the pathlen restriction
// error before any key is generated.
func (e *Engine) CreateCA(ctx context.Context, req CreateCARequest) (*Authority, error) {
	defer keys.Zero(req.Passphrase)
	defer keys.Zero(req.ParentPassphrase)

	authority, err := e.createCA(ctx, req)
	if err != nil {
		_ = audit.LogCACreated(req.Name, req.Subject.String(), string(req.Key.Algorithm), false)
		return nil, NewCAError("create", err)
	}
	return authority, nil
}

func (e *Engine) createCA(ctx context.Context, req CreateCARequest) (*Authority, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("CA name is required")
	}
	if _, err := e.store.LoadCA(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCAExists, req.Name)
	} else if !errors.Is(err, ErrCANotFound) {
		return nil, err
	}

	now := e.now()
	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = e.cfg.DefaultCAValidityDays
	}
	notAfter := now.AddDate(0, 0, validityDays)

	var parent *Authority
	if req.Parent != "" {
		var err error
		parent, err = e.store.LoadCA(ctx, req.Parent)
		if err != nil {
			return nil, err
		}
		// A longer lifetime than the parent's is clamped, never rejected.
		notAfter = policy.ClampExpiry(notAfter, parent.NotAfter())
		if err := policy.CheckIntermediateAllowed(parent.PathLen); err != nil {
			return nil, err
		}
	} else {
		if err := policy.CheckRootRevocationURLs(req.CACRLURLs, req.CAOCSPURL); err != nil {
			return nil, err
		}
	}

	subj := req.Subject
	if subj.CommonName() == "" {
		subj.Set("CN", req.Name)
	}
	defaults, err := e.defaultSubject()
	if err != nil {
		return nil, err
	}
	subj = subj.MergeDefaults(defaults).Clean()

	// Bad tokens must fail here, not on every later issuance.
	if _, err := extensions.ParseAltNames(req.IssuerAltName); err != nil {
		return nil, err
	}

	if req.Key.MinBits == 0 {
		req.Key.MinBits = e.cfg.MinKeyBits
	}
	material, err := keys.Generate(req.Key)
	if err != nil {
		return nil, err
	}

	spkiDER, err := marshalSPKI(material.Public())
	if err != nil {
		return nil, err
	}
	skid, err := ComputeSubjectKeyID(spkiDER)
	if err != nil {
		return nil, err
	}

	// Self-signed CAs reference their own new key; chained CAs the
	// parent's.
	akid := skid
	var issuerCert *x509.Certificate
	var signer crypto.Signer = material.Signer()
	if parent != nil {
		issuerCert = parent.Certificate
		akid, err = parent.SubjectKeyID()
		if err != nil {
			return nil, err
		}
		parentKey, err := keys.ParsePEM(parent.KeyPEM, req.ParentPassphrase)
		if err != nil {
			_ = audit.LogAuthFailed(parent.Name, "CA key decryption failed")
			return nil, err
		}
		signer = parentKey.Signer()
		if err := audit.LogKeyAccessed(parent.Name, true, "sign intermediate CA"); err != nil {
			return nil, err
		}
	}

	keyUsage := req.KeyUsage
	if keyUsage == nil {
		keyUsage = &extensions.KeyUsage{
			Critical: true,
			Usage:    x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		}
	}

	set, err := extensions.Build(extensions.Params{
		IsCA:            true,
		PathLen:         req.PathLen,
		KeyUsage:        keyUsage,
		NameConstraints: req.NameConstraints,
		SubjectKeyID:    skid,
		AuthorityKeyID:  akid,
		CRLURLs:         req.CACRLURLs,
		OCSPURL:         req.CAOCSPURL,
		CAIssuersURL:    req.CAIssuerURL,
	})
	if err != nil {
		return nil, err
	}

	serial, err := e.allocateCASerial(ctx, parent)
	if err != nil {
		return nil, err
	}

	cert, err := signCertificate(serial, subj.PKIXName(), issuerCert, now, notAfter, material.Public(), set.List(), signer)
	if err != nil {
		return nil, err
	}

	keyPEM, err := material.EncodePEM(req.Passphrase)
	if err != nil {
		return nil, err
	}

	authority := &Authority{
		Name:          req.Name,
		Serial:        fmt.Sprintf("%x", serial),
		Parent:        req.Parent,
		PathLen:       req.PathLen,
		CRLURLs:       req.CRLURLs,
		OCSPURL:       req.OCSPURL,
		IssuerURL:     req.IssuerURL,
		IssuerAltName: req.IssuerAltName,
		KeyPEM:        keyPEM,
		Certificate:   cert,
	}
	if err := e.store.SaveCA(ctx, authority); err != nil {
		return nil, err
	}

	if err := audit.LogCACreated(authority.Name, cert.Subject.String(), algorithmLabel(material), true); err != nil {
		return nil, err
	}
	return authority, nil
}

// allocateCASerial draws an intermediate's serial from the parent's
// counter; a root gets a random 128-bit serial.
func (e *Engine) allocateCASerial(ctx context.Context, parent *Authority) (*big.Int, error) {
	if parent != nil {
		serial, err := e.store.NextSerial(ctx, parent.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate serial: %w", err)
		}
		return serial, nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}
	return serial, nil
}
