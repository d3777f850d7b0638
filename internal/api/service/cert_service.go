package service

import (
	"context"
	"fmt"

	"github.com/remiblancher/private-ca/internal/api/dto"
	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/subject"
)

// CertService provides certificate operations for the REST API.
type CertService struct {
	engine *ca.Engine
	store  ca.Store
}

// NewCertService creates a new CertService.
func NewCertService(engine *ca.Engine, store ca.Store) *CertService {
	return &CertService{engine: engine, store: store}
}

// Issue signs an end-entity certificate against the named CA.
func (s *CertService) Issue(ctx context.Context, caName string, req *dto.CertIssueRequest) (*dto.CertResponse, error) {
	csr, err := req.CSR.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ca.ErrInvalidCSR, err)
	}

	var subj subject.Subject
	if req.Subject != "" {
		subj, err = subject.Parse(req.Subject)
		if err != nil {
			return nil, err
		}
	}

	issueReq := ca.IssueRequest{
		CA:               caName,
		CSR:              csr,
		CSRFormat:        req.CSRFormat,
		Subject:          subj,
		ValidityDays:     req.ValidityDays,
		ExcludeCNFromSAN: req.ExcludeCNFromSAN,
		Passphrase:       []byte(req.Passphrase),
	}

	if issueReq.AltNames, err = extensions.ParseAltNames(req.AltNames); err != nil {
		return nil, err
	}
	if req.KeyUsage != "" {
		if issueReq.KeyUsage, err = extensions.ParseKeyUsage(req.KeyUsage); err != nil {
			return nil, err
		}
	}
	if req.ExtKeyUsage != "" {
		if issueReq.ExtKeyUsage, err = extensions.ParseExtKeyUsage(req.ExtKeyUsage); err != nil {
			return nil, err
		}
	}
	if req.TLSFeature != "" {
		if issueReq.TLSFeature, err = extensions.ParseTLSFeature(req.TLSFeature); err != nil {
			return nil, err
		}
	}

	cert, err := s.engine.Issue(ctx, issueReq)
	if err != nil {
		return nil, err
	}
	return certResponse(cert), nil
}

// Get returns a previously issued certificate.
func (s *CertService) Get(ctx context.Context, caName, serial string) (*dto.CertResponse, error) {
	cert, err := s.store.LoadCert(ctx, caName, serial)
	if err != nil {
		return nil, err
	}
	return certResponse(cert), nil
}

func certResponse(cert *ca.Certificate) *dto.CertResponse {
	parsed := cert.Cert
	return &dto.CertResponse{
		Serial:      cert.Serial,
		CA:          cert.CA,
		Subject:     parsed.Subject.String(),
		Issuer:      parsed.Issuer.String(),
		Validity:    validityInfo(parsed.NotBefore, parsed.NotAfter),
		DNSNames:    parsed.DNSNames,
		Fingerprint: fingerprint(parsed.Raw),
		Certificate: string(cert.PEM()),
	}
}
