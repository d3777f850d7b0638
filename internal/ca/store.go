package ca

import (
	"context"
	"math/big"
)

// Store persists authorities and issued certificates.
//
// Implementations must allocate serials uniquely per CA; the issuance
// engine depends on that but does not enforce it.
type Store interface {
	// SaveCA persists a new authority. Fails with ErrCAExists if the
	// name is taken.
	SaveCA(ctx context.Context, authority *Authority) error

	// LoadCA retrieves an authority by name. Fails with ErrCANotFound
	// if it does not exist.
	LoadCA(ctx context.Context, name string) (*Authority, error)

	// SaveCert persists a certificate issued by the named CA.
	SaveCert(ctx context.Context, caName string, cert *Certificate) error

	// LoadCert retrieves an issued certificate by serial. Fails with
	// ErrCertNotFound if it does not exist.
	LoadCert(ctx context.Context, caName, serial string) (*Certificate, error)

	// NextSerial allocates the next unique serial for the named CA.
	NextSerial(ctx context.Context, caName string) (*big.Int, error)

	// ListCAs returns the names of all stored authorities.
	ListCAs(ctx context.Context) ([]string, error)

	// Children returns the names of CAs whose parent is the named CA.
	Children(ctx context.Context, name string) ([]string, error)
}
