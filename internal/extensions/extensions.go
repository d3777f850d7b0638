// Package extensions builds the typed X.509 extension set for CA and
// end-entity certificates. Each requested extension is parsed from its
// flag grammar, validated, and DER-encoded into a pkix.Extension with the
// correct criticality. Extensions not requested are absent from the set;
// only BasicConstraints and AuthorityKeyIdentifier are always present.
package extensions

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for extension parsing.
var (
	// ErrUnknownValue indicates an unrecognized token in an extension
	// value list (key usage, extended key usage, TLS feature, SAN type).
	ErrUnknownValue = errors.New("unknown extension value")

	// ErrInvalidNameConstraint indicates a malformed name-constraint
	// token. The accepted form is "permitted|excluded,TYPE:value".
	ErrInvalidNameConstraint = errors.New("invalid name constraint")

	// ErrCommonNameNotDNSName indicates a CN that cannot be carried as a
	// dNSName SAN entry.
	ErrCommonNameNotDNSName = errors.New("could not parse CommonName as subjectAltName")
)

// Extension OIDs handled by this package.
var (
	oidSubjectKeyID          = asn1.ObjectIdentifier{2, 5, 29, 14}
	oidKeyUsage              = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidSubjectAltName        = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidIssuerAltName         = asn1.ObjectIdentifier{2, 5, 29, 18}
	oidBasicConstraints      = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidNameConstraints       = asn1.ObjectIdentifier{2, 5, 29, 30}
	oidCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}
	oidAuthorityKeyID        = asn1.ObjectIdentifier{2, 5, 29, 35}
	oidExtKeyUsage           = asn1.ObjectIdentifier{2, 5, 29, 37}
	oidAuthorityInfoAccess   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
	oidTLSFeature            = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 24}

	oidAccessMethodOCSP      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	oidAccessMethodCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
)

// TLS feature identifiers (RFC 7633 references TLS extension numbers).
const (
	tlsFeatureStatusRequest   = 5  // OCSPMustStaple
	tlsFeatureStatusRequestV2 = 17 // MultipleCertStatus
)

// Set is the extension set for one certificate: at most one extension per
// OID, in insertion order.
type Set struct {
	list []pkix.Extension
}

// add inserts an extension, replacing any previous one with the same OID.
func (s *Set) add(ext pkix.Extension) {
	for i, e := range s.list {
		if e.Id.Equal(ext.Id) {
			s.list[i] = ext
			return
		}
	}
	s.list = append(s.list, ext)
}

// List returns the extensions in insertion order, ready for a certificate
// template's ExtraExtensions.
func (s *Set) List() []pkix.Extension {
	return append([]pkix.Extension(nil), s.list...)
}

// Get returns the extension with the given OID.
func (s *Set) Get(oid asn1.ObjectIdentifier) (pkix.Extension, bool) {
	for _, e := range s.list {
		if e.Id.Equal(oid) {
			return e, true
		}
	}
	return pkix.Extension{}, false
}

// KeyUsage is a parsed KeyUsage flag value.
type KeyUsage struct {
	Critical bool
	Usage    x509.KeyUsage
}

var keyUsageNames = map[string]x509.KeyUsage{
	"digitalSignature": x509.KeyUsageDigitalSignature,
	"nonRepudiation":   x509.KeyUsageContentCommitment,
	"keyEncipherment":  x509.KeyUsageKeyEncipherment,
	"dataEncipherment": x509.KeyUsageDataEncipherment,
	"keyAgreement":     x509.KeyUsageKeyAgreement,
	"keyCertSign":      x509.KeyUsageCertSign,
	"cRLSign":          x509.KeyUsageCRLSign,
	"encipherOnly":     x509.KeyUsageEncipherOnly,
	"decipherOnly":     x509.KeyUsageDecipherOnly,
}

// ParseKeyUsage parses a comma-separated usage list. An optional leading
// "critical" token sets the critical flag.
func ParseKeyUsage(value string) (*KeyUsage, error) {
	ku := &KeyUsage{}
	for i, tok := range splitTokens(value) {
		if i == 0 && tok == "critical" {
			ku.Critical = true
			continue
		}
		usage, ok := keyUsageNames[tok]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key usage %q", ErrUnknownValue, tok)
		}
		ku.Usage |= usage
	}
	return ku, nil
}

// ExtKeyUsage is a parsed ExtendedKeyUsage flag value.
type ExtKeyUsage struct {
	Critical bool
	Usages   []x509.ExtKeyUsage
}

var extKeyUsageNames = map[string]x509.ExtKeyUsage{
	"serverAuth":      x509.ExtKeyUsageServerAuth,
	"clientAuth":      x509.ExtKeyUsageClientAuth,
	"codeSigning":     x509.ExtKeyUsageCodeSigning,
	"emailProtection": x509.ExtKeyUsageEmailProtection,
	"timeStamping":    x509.ExtKeyUsageTimeStamping,
	"OCSPSigning":     x509.ExtKeyUsageOCSPSigning,
}

// ParseExtKeyUsage parses a comma-separated purpose list with an optional
// leading "critical" token.
func ParseExtKeyUsage(value string) (*ExtKeyUsage, error) {
	eku := &ExtKeyUsage{}
	for i, tok := range splitTokens(value) {
		if i == 0 && tok == "critical" {
			eku.Critical = true
			continue
		}
		usage, ok := extKeyUsageNames[tok]
		if !ok {
			return nil, fmt.Errorf("%w: unknown extended key usage %q", ErrUnknownValue, tok)
		}
		eku.Usages = append(eku.Usages, usage)
	}
	return eku, nil
}

// TLSFeature is a parsed TLSFeature flag value.
type TLSFeature struct {
	Critical bool
	Features []int
}

var tlsFeatureNames = map[string]int{
	"OCSPMustStaple":     tlsFeatureStatusRequest,
	"MultipleCertStatus": tlsFeatureStatusRequestV2,
}

// ParseTLSFeature parses a comma-separated feature list with an optional
// leading "critical" token.
func ParseTLSFeature(value string) (*TLSFeature, error) {
	tf := &TLSFeature{}
	for i, tok := range splitTokens(value) {
		if i == 0 && tok == "critical" {
			tf.Critical = true
			continue
		}
		feature, ok := tlsFeatureNames[tok]
		if !ok {
			return nil, fmt.Errorf("%w: unknown TLS feature %q", ErrUnknownValue, tok)
		}
		tf.Features = append(tf.Features, feature)
	}
	return tf, nil
}

// AltNames collects SubjectAltName entries by general-name type.
type AltNames struct {
	DNS   []string
	Email []string
	URI   []string
	IP    []net.IP
}

// IsEmpty reports whether no names are present. An empty AltNames omits
// the SAN extension entirely.
func (a AltNames) IsEmpty() bool {
	return len(a.DNS) == 0 && len(a.Email) == 0 && len(a.URI) == 0 && len(a.IP) == 0
}

// ParseAltNames parses "TYPE:value" tokens (DNS, email, IP, URI). Tokens
// without a recognized prefix are treated as DNS names.
func ParseAltNames(tokens []string) (AltNames, error) {
	var a AltNames
	for _, tok := range tokens {
		if err := a.Add(tok); err != nil {
			return AltNames{}, err
		}
	}
	return a, nil
}

// Add parses one SAN token into the set.
func (a *AltNames) Add(token string) error {
	typ, value, found := strings.Cut(token, ":")
	if !found {
		a.DNS = append(a.DNS, token)
		return nil
	}
	switch strings.ToUpper(typ) {
	case "DNS":
		a.DNS = append(a.DNS, value)
	case "EMAIL":
		a.Email = append(a.Email, value)
	case "URI":
		a.URI = append(a.URI, value)
	case "IP":
		ip := net.ParseIP(value)
		if ip == nil {
			return fmt.Errorf("%w: invalid IP address %q", ErrUnknownValue, value)
		}
		a.IP = append(a.IP, ip)
	default:
		// No recognized prefix: the whole token is a DNS name
		// (e.g. "example.com" or a URI-less hostname with a port).
		a.DNS = append(a.DNS, token)
	}
	return nil
}

// AddCommonName appends the subject CN as a DNS entry after validating it
// as a syntactically legal DNS name. IDNA mapping is applied first so
// internationalized CNs become their ASCII form.
func (a *AltNames) AddCommonName(cn string) error {
	name, err := MapDNSName(cn)
	if err != nil {
		return fmt.Errorf("%s: %w", cn, ErrCommonNameNotDNSName)
	}
	// Skip when the CN already appears among the DNS names.
	for _, existing := range a.DNS {
		if NormalizeDNSName(existing) == name {
			return nil
		}
	}
	a.DNS = append(a.DNS, name)
	return nil
}

// NameConstraints collects permitted and excluded subtrees by type.
type NameConstraints struct {
	PermittedDNS   []string
	ExcludedDNS    []string
	PermittedEmail []string
	ExcludedEmail  []string
	PermittedURI   []string
	ExcludedURI    []string
	PermittedIP    []*net.IPNet
	ExcludedIP     []*net.IPNet
}

// IsEmpty reports whether no subtrees are present.
func (nc NameConstraints) IsEmpty() bool {
	return len(nc.PermittedDNS) == 0 && len(nc.ExcludedDNS) == 0 &&
		len(nc.PermittedEmail) == 0 && len(nc.ExcludedEmail) == 0 &&
		len(nc.PermittedURI) == 0 && len(nc.ExcludedURI) == 0 &&
		len(nc.PermittedIP) == 0 && len(nc.ExcludedIP) == 0
}

// ParseNameConstraints parses "permitted|excluded,TYPE:value" tokens.
func ParseNameConstraints(tokens []string) (*NameConstraints, error) {
	nc := &NameConstraints{}
	for _, tok := range tokens {
		if err := nc.Add(tok); err != nil {
			return nil, err
		}
	}
	return nc, nil
}

// Add parses one name-constraint token into the set.
func (nc *NameConstraints) Add(token string) error {
	scope, rest, found := strings.Cut(token, ",")
	if !found {
		return fmt.Errorf("%w: %q", ErrInvalidNameConstraint, token)
	}

	permitted := false
	switch scope {
	case "permitted":
		permitted = true
	case "excluded":
	default:
		return fmt.Errorf("%w: %q must start with permitted or excluded", ErrInvalidNameConstraint, token)
	}

	typ, value, found := strings.Cut(rest, ":")
	if !found {
		typ, value = "DNS", rest
	}
	switch strings.ToUpper(typ) {
	case "DNS":
		if permitted {
			nc.PermittedDNS = append(nc.PermittedDNS, value)
		} else {
			nc.ExcludedDNS = append(nc.ExcludedDNS, value)
		}
	case "EMAIL":
		if permitted {
			nc.PermittedEmail = append(nc.PermittedEmail, value)
		} else {
			nc.ExcludedEmail = append(nc.ExcludedEmail, value)
		}
	case "URI":
		if permitted {
			nc.PermittedURI = append(nc.PermittedURI, value)
		} else {
			nc.ExcludedURI = append(nc.ExcludedURI, value)
		}
	case "IP":
		_, ipNet, err := net.ParseCIDR(value)
		if err != nil {
			return fmt.Errorf("%w: invalid CIDR %q", ErrInvalidNameConstraint, value)
		}
		if permitted {
			nc.PermittedIP = append(nc.PermittedIP, ipNet)
		} else {
			nc.ExcludedIP = append(nc.ExcludedIP, ipNet)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNameConstraint, typ)
	}
	return nil
}

// splitTokens splits a comma-separated flag value and trims each token.
func splitTokens(value string) []string {
	var tokens []string
	for _, tok := range strings.Split(value, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
