// Package policy holds the pure validity and trust rules shared by CA
// creation and certificate issuance: expiry clamping against the issuer,
// pathlen checks for intermediate CAs, and the root-CA revocation-URL
// prohibition. All functions are stateless.
package policy

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for policy violations.
var (
	// ErrPathlenRestriction indicates the parent CA's pathlen forbids
	// creating a further intermediate CA.
	ErrPathlenRestriction = errors.New("parent CA cannot create intermediate CA due to pathlen restrictions")

	// ErrRootCACRLNotAllowed indicates CRL URLs were supplied for a root
	// CA certificate. Root CAs are not revoked via CRL.
	ErrRootCACRLNotAllowed = errors.New("CRLs cannot be used to revoke root CAs")

	// ErrRootCAOCSPNotAllowed indicates an OCSP URL was supplied for a
	// root CA certificate. Root CAs are not revoked via OCSP.
	ErrRootCAOCSPNotAllowed = errors.New("OCSP cannot be used to revoke root CAs")

	// ErrExpiryExceedsIssuer indicates a requested certificate validity
	// extends past the issuing CA's own expiry.
	ErrExpiryExceedsIssuer = errors.New("certificate would outlive CA")
)

// ClampExpiry resolves a child CA's effective expiry: a requested expiry
// past the issuer's is silently clamped to the issuer's expiry. This is
// deliberate behavior for CA creation, not an error; end-entity issuance
// rejects instead (see CheckExpiry).
func ClampExpiry(requested, issuerExpiry time.Time) time.Time {
	if requested.After(issuerExpiry) {
		return issuerExpiry
	}
	return requested
}

// AllowsIntermediateCA reports whether a CA with the given pathlen may sign
// further CA certificates. A nil pathlen means unset (unlimited).
func AllowsIntermediateCA(pathLen *int) bool {
	return pathLen == nil || *pathLen > 0
}

// CheckIntermediateAllowed fails with ErrPathlenRestriction when the parent
// pathlen forbids another CA level beneath it.
func CheckIntermediateAllowed(parentPathLen *int) error {
	if !AllowsIntermediateCA(parentPathLen) {
		return ErrPathlenRestriction
	}
	return nil
}

// CheckRootRevocationURLs rejects CRL or OCSP URLs on a root CA
// certificate. Applies only to the URLs embedded in the CA's own
// certificate, not to the URLs the CA stamps on certificates it issues.
func CheckRootRevocationURLs(crlURLs []string, ocspURL string) error {
	if len(crlURLs) > 0 {
		return ErrRootCACRLNotAllowed
	}
	if ocspURL != "" {
		return ErrRootCAOCSPNotAllowed
	}
	return nil
}

// MaxIssueDays returns the maximum whole days of validity the issuer can
// still grant, measured from now.
func MaxIssueDays(issuerExpiry, now time.Time) int {
	return int(issuerExpiry.Sub(now).Hours() / 24)
}

// CheckExpiry fails with ErrExpiryExceedsIssuer when the requested expiry
// extends past the issuer's. The message states the maximum remaining whole
// days this issuer can grant.
func CheckExpiry(requested, issuerExpiry, now time.Time) error {
	if requested.After(issuerExpiry) {
		return fmt.Errorf("%w, maximum expiry for this CA is %d days", ErrExpiryExceedsIssuer, MaxIssueDays(issuerExpiry, now))
	}
	return nil
}
