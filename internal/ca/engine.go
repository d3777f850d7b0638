package ca

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"github.com/remiblancher/private-ca/internal/audit"
	"github.com/remiblancher/private-ca/internal/config"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/subject"
)

// Engine creates certificate authorities and issues certificates against
// them. It holds no mutable state of its own; all persistence goes through
// the Store.
type Engine struct {
	store     Store
	cfg       *config.Config
	notifiers []Notifier
	now       func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNotifier registers an issuance observer.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifiers = append(e.notifiers, n)
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an issuance engine backed by the given store.
func NewEngine(store Store, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetCA loads an authority by name and records the access.
func (e *Engine) GetCA(ctx context.Context, name string) (*Authority, error) {
	authority, err := e.store.LoadCA(ctx, name)
	if err != nil {
		return nil, NewCAError("load", err)
	}
	if err := audit.LogCALoaded(authority.Name, authority.Certificate.Subject.String(), true); err != nil {
		return nil, NewCAError("load", err)
	}
	return authority, nil
}

// defaultSubject converts the configured default subject mapping.
func (e *Engine) defaultSubject() (subject.Subject, error) {
	if len(e.cfg.DefaultSubject) == 0 {
		return subject.Subject{}, nil
	}
	return subject.New(e.cfg.DefaultSubject)
}

func (e *Engine) notifyBefore(ctx context.Context, req *IssueRequest) {
	for _, n := range e.notifiers {
		n.BeforeIssuance(ctx, req)
	}
}

func (e *Engine) notifyAfter(ctx context.Context, req *IssueRequest, cert *Certificate) {
	for _, n := range e.notifiers {
		n.AfterIssuance(ctx, req, cert)
	}
}

// algorithmLabel describes key material for audit records, e.g. "RSA-4096"
// or "ECDSA-P-256".
func algorithmLabel(m *keys.Material) string {
	if m.Curve != "" {
		return fmt.Sprintf("%s-%s", m.Algorithm, m.Curve)
	}
	return fmt.Sprintf("%s-%d", m.Algorithm, m.Bits)
}

// signCertificate signs one certificate. Issuer nil means self-signed.
// DSA on either side of the signature goes through the manual assembly
// path; everything else through crypto/x509.
func signCertificate(serial *big.Int, subjectDN pkix.Name, issuer *x509.Certificate, notBefore, notAfter time.Time, pub crypto.PublicKey, exts []pkix.Extension, signer crypto.Signer) (*x509.Certificate, error) {
	var der []byte
	var err error

	if needsManualPath(pub, signer.Public()) {
		var spkiDER, subjectDER, issuerDER []byte
		spkiDER, err = marshalSPKI(pub)
		if err != nil {
			return nil, err
		}
		subjectDER, err = asn1.Marshal(subjectDN.ToRDNSequence())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal subject: %w", err)
		}
		issuerDER = subjectDER
		if issuer != nil {
			issuerDER = issuer.RawSubject
		}
		der, err = createCertificateManual(serial, subjectDER, issuerDER, notBefore, notAfter, spkiDER, exts, signer)
	} else {
		template := &x509.Certificate{
			SerialNumber:    serial,
			Subject:         subjectDN,
			NotBefore:       notBefore,
			NotAfter:        notAfter,
			ExtraExtensions: exts,
		}
		parent := template
		if issuer != nil {
			parent = issuer
		}
		der, err = x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created certificate: %w", err)
	}
	return cert, nil
}
