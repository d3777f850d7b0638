// Package service provides business logic for the REST API.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/remiblancher/private-ca/internal/api/dto"
	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/subject"
)

// CAService provides CA operations for the REST API.
type CAService struct {
	engine *ca.Engine
	store  ca.Store
}

// NewCAService creates a new CAService.
func NewCAService(engine *ca.Engine, store ca.Store) *CAService {
	return &CAService{engine: engine, store: store}
}

// Create creates a new root or intermediate CA.
func (s *CAService) Create(ctx context.Context, req *dto.CACreateRequest) (*dto.CAResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("CA name is required")
	}

	var subj subject.Subject
	if req.Subject != "" {
		var err error
		subj, err = subject.Parse(req.Subject)
		if err != nil {
			return nil, err
		}
	}

	spec := keys.Spec{
		Algorithm: keys.Algorithm(req.Algorithm),
		Bits:      req.KeyBits,
		Curve:     req.Curve,
	}
	if spec.Algorithm == "" {
		spec.Algorithm = keys.AlgECDSA
		if spec.Curve == "" {
			spec.Curve = "SECP256R1"
		}
	}

	var constraints *extensions.NameConstraints
	if len(req.NameConstraints) > 0 {
		var err error
		constraints, err = extensions.ParseNameConstraints(req.NameConstraints)
		if err != nil {
			return nil, err
		}
	}

	authority, err := s.engine.CreateCA(ctx, ca.CreateCARequest{
		Name:             req.Name,
		Subject:          subj,
		Key:              spec,
		ValidityDays:     req.ValidityDays,
		Parent:           req.Parent,
		ParentPassphrase: []byte(req.ParentPassphrase),
		Passphrase:       []byte(req.Passphrase),
		PathLen:          req.PathLen,
		CACRLURLs:        req.CACRLURLs,
		CAOCSPURL:        req.CAOCSPURL,
		CRLURLs:          req.CRLURLs,
		OCSPURL:          req.OCSPURL,
		IssuerURL:        req.IssuerURL,
		IssuerAltName:    req.IssuerAltName,
		NameConstraints:  constraints,
	})
	if err != nil {
		return nil, err
	}
	return caResponse(authority), nil
}

// Get returns a stored CA.
func (s *CAService) Get(ctx context.Context, name string) (*dto.CAResponse, error) {
	authority, err := s.engine.GetCA(ctx, name)
	if err != nil {
		return nil, err
	}
	return caResponse(authority), nil
}

// List returns the names of all stored CAs.
func (s *CAService) List(ctx context.Context) (*dto.CAListResponse, error) {
	names, err := s.store.ListCAs(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CAListResponse{CAs: names}, nil
}

// Children returns the direct intermediates of a CA.
func (s *CAService) Children(ctx context.Context, name string) (*dto.CAChildrenResponse, error) {
	// Fail with CA_NOT_FOUND rather than an empty list for unknown names.
	if _, err := s.store.LoadCA(ctx, name); err != nil {
		return nil, err
	}
	children, err := s.store.Children(ctx, name)
	if err != nil {
		return nil, err
	}
	return &dto.CAChildrenResponse{Children: children}, nil
}

func caResponse(authority *ca.Authority) *dto.CAResponse {
	cert := authority.Certificate
	return &dto.CAResponse{
		Name:        authority.Name,
		Subject:     cert.Subject.String(),
		Serial:      authority.Serial,
		Parent:      authority.Parent,
		PathLen:     authority.PathLen,
		Validity:    validityInfo(cert.NotBefore, cert.NotAfter),
		Fingerprint: fingerprint(cert.Raw),
		Certificate: string(authority.CertificatePEM()),
	}
}

func validityInfo(notBefore, notAfter time.Time) dto.ValidityInfo {
	return dto.ValidityInfo{
		NotBefore: notBefore.UTC().Format(time.RFC3339),
		NotAfter:  notAfter.UTC().Format(time.RFC3339),
	}
}

func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
