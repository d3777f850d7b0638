package extensions

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Params describes the extension set to build for one certificate.
// SubjectKeyID and AuthorityKeyID are derived by the issuance engine from
// the subject and issuer public keys; they are not user-settable.
type Params struct {
	IsCA    bool
	PathLen *int // nil = no pathLenConstraint

	KeyUsage    *KeyUsage
	ExtKeyUsage *ExtKeyUsage
	TLSFeature  *TLSFeature

	AltNames        AltNames
	IssuerAltNames  AltNames
	NameConstraints *NameConstraints

	SubjectKeyID   []byte
	AuthorityKeyID []byte

	CRLURLs      []string
	OCSPURL      string
	CAIssuersURL string
}

// Build assembles the extension set. Each entry is a small pure builder
// returning nil when its extension is not requested.
func Build(p Params) (*Set, error) {
	builders := []struct {
		name  string
		build func(Params) (*pkix.Extension, error)
	}{
		{"basicConstraints", buildBasicConstraints},
		{"keyUsage", buildKeyUsage},
		{"extendedKeyUsage", buildExtKeyUsage},
		{"subjectKeyIdentifier", buildSubjectKeyID},
		{"authorityKeyIdentifier", buildAuthorityKeyID},
		{"subjectAltName", buildSubjectAltName},
		{"issuerAltName", buildIssuerAltName},
		{"crlDistributionPoints", buildCRLDistributionPoints},
		{"authorityInfoAccess", buildAuthorityInfoAccess},
		{"tlsFeature", buildTLSFeature},
		{"nameConstraints", buildNameConstraints},
	}

	set := &Set{}
	for _, b := range builders {
		ext, err := b.build(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s extension: %w", b.name, err)
		}
		if ext != nil {
			set.add(*ext)
		}
	}
	return set, nil
}

// Three BasicConstraints shapes: end-entity (empty SEQUENCE), CA without
// pathlen, CA with pathlen. Separate structs because asn1 "optional" drops
// a zero pathlen, and pathlen 0 must still be encoded.
type basicConstraintsEE struct{}

type basicConstraintsCA struct {
	IsCA bool
}

type basicConstraintsCAPathLen struct {
	IsCA       bool
	MaxPathLen int
}

// buildBasicConstraints always emits the extension, critical per RFC 5280.
func buildBasicConstraints(p Params) (*pkix.Extension, error) {
	var der []byte
	var err error
	switch {
	case !p.IsCA:
		der, err = asn1.Marshal(basicConstraintsEE{})
	case p.PathLen == nil:
		der, err = asn1.Marshal(basicConstraintsCA{IsCA: true})
	default:
		der, err = asn1.Marshal(basicConstraintsCAPathLen{IsCA: true, MaxPathLen: *p.PathLen})
	}
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidBasicConstraints, Critical: true, Value: der}, nil
}

func buildKeyUsage(p Params) (*pkix.Extension, error) {
	if p.KeyUsage == nil || p.KeyUsage.Usage == 0 {
		return nil, nil
	}
	der, err := encodeKeyUsage(p.KeyUsage.Usage)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidKeyUsage, Critical: p.KeyUsage.Critical, Value: der}, nil
}

// encodeKeyUsage encodes key usage bits as an ASN.1 BIT STRING, trimmed to
// the highest set bit.
func encodeKeyUsage(usage x509.KeyUsage) ([]byte, error) {
	var bits [2]byte
	for i := 0; i < 9; i++ {
		if usage&(1<<uint(i)) != 0 {
			bits[i/8] |= 1 << uint(7-i%8)
		}
	}

	bitLength := 0
	for i := 0; i < 9; i++ {
		if usage&(1<<uint(i)) != 0 {
			bitLength = i + 1
		}
	}

	byteLength := (bitLength + 7) / 8
	return asn1.Marshal(asn1.BitString{
		Bytes:     bits[:byteLength],
		BitLength: bitLength,
	})
}

var extKeyUsageOIDs = map[x509.ExtKeyUsage]asn1.ObjectIdentifier{
	x509.ExtKeyUsageServerAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 1},
	x509.ExtKeyUsageClientAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 2},
	x509.ExtKeyUsageCodeSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 3},
	x509.ExtKeyUsageEmailProtection: {1, 3, 6, 1, 5, 5, 7, 3, 4},
	x509.ExtKeyUsageTimeStamping:    {1, 3, 6, 1, 5, 5, 7, 3, 8},
	x509.ExtKeyUsageOCSPSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 9},
}

func buildExtKeyUsage(p Params) (*pkix.Extension, error) {
	if p.ExtKeyUsage == nil || len(p.ExtKeyUsage.Usages) == 0 {
		return nil, nil
	}
	var oids []asn1.ObjectIdentifier
	for _, eku := range p.ExtKeyUsage.Usages {
		oid, ok := extKeyUsageOIDs[eku]
		if !ok {
			return nil, fmt.Errorf("unsupported extended key usage: %d", eku)
		}
		oids = append(oids, oid)
	}
	der, err := asn1.Marshal(oids)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidExtKeyUsage, Critical: p.ExtKeyUsage.Critical, Value: der}, nil
}

func buildSubjectKeyID(p Params) (*pkix.Extension, error) {
	if len(p.SubjectKeyID) == 0 {
		return nil, nil
	}
	der, err := asn1.Marshal(p.SubjectKeyID)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidSubjectKeyID, Value: der}, nil
}

// authorityKeyID mirrors the AuthorityKeyIdentifier SEQUENCE with only the
// keyIdentifier field ([0] IMPLICIT OCTET STRING).
type authorityKeyID struct {
	KeyIdentifier []byte `asn1:"optional,tag:0"`
}

func buildAuthorityKeyID(p Params) (*pkix.Extension, error) {
	if len(p.AuthorityKeyID) == 0 {
		return nil, nil
	}
	der, err := asn1.Marshal(authorityKeyID{KeyIdentifier: p.AuthorityKeyID})
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidAuthorityKeyID, Value: der}, nil
}

// GeneralName context-specific tags (RFC 5280 §4.2.1.6).
const (
	tagRFC822Name = 1
	tagDNSName    = 2
	tagURI        = 6
	tagIPAddress  = 7
)

func buildSubjectAltName(p Params) (*pkix.Extension, error) {
	if p.AltNames.IsEmpty() {
		return nil, nil
	}
	der, err := encodeGeneralNames(p.AltNames)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidSubjectAltName, Value: der}, nil
}

// buildIssuerAltName stamps the issuing CA's alternative names (RFC 5280
// §4.2.1.7). Same GeneralNames encoding as the SAN, never critical.
func buildIssuerAltName(p Params) (*pkix.Extension, error) {
	if p.IssuerAltNames.IsEmpty() {
		return nil, nil
	}
	der, err := encodeGeneralNames(p.IssuerAltNames)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidIssuerAltName, Value: der}, nil
}

// encodeGeneralNames encodes a SEQUENCE OF GeneralName.
func encodeGeneralNames(names AltNames) ([]byte, error) {
	var rawValues []asn1.RawValue
	for _, name := range names.DNS {
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   tagDNSName,
			Class: asn1.ClassContextSpecific,
			Bytes: []byte(name),
		})
	}
	for _, email := range names.Email {
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   tagRFC822Name,
			Class: asn1.ClassContextSpecific,
			Bytes: []byte(email),
		})
	}
	for _, uri := range names.URI {
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   tagURI,
			Class: asn1.ClassContextSpecific,
			Bytes: []byte(uri),
		})
	}
	for _, ip := range names.IP {
		bytes := ip.To4()
		if bytes == nil {
			bytes = ip
		}
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   tagIPAddress,
			Class: asn1.ClassContextSpecific,
			Bytes: bytes,
		})
	}
	return asn1.Marshal(rawValues)
}

// distributionPointName and distributionPoint mirror the CRLDP ASN.1
// structure with a fullName GeneralNames choice.
type distributionPointName struct {
	FullName []asn1.RawValue `asn1:"optional,tag:0"`
}

type distributionPoint struct {
	DistributionPointName distributionPointName `asn1:"optional,tag:0"`
}

func buildCRLDistributionPoints(p Params) (*pkix.Extension, error) {
	if len(p.CRLURLs) == 0 {
		return nil, nil
	}

	var dps []distributionPoint
	for _, url := range p.CRLURLs {
		dps = append(dps, distributionPoint{
			DistributionPointName: distributionPointName{
				FullName: []asn1.RawValue{{
					Tag:   tagURI,
					Class: asn1.ClassContextSpecific,
					Bytes: []byte(url),
				}},
			},
		})
	}

	der, err := asn1.Marshal(dps)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidCRLDistributionPoints, Value: der}, nil
}

// accessDescription mirrors the AIA AccessDescription SEQUENCE.
type accessDescription struct {
	AccessMethod   asn1.ObjectIdentifier
	AccessLocation asn1.RawValue
}

func buildAuthorityInfoAccess(p Params) (*pkix.Extension, error) {
	if p.OCSPURL == "" && p.CAIssuersURL == "" {
		return nil, nil
	}

	var descriptions []accessDescription
	if p.OCSPURL != "" {
		descriptions = append(descriptions, accessDescription{
			AccessMethod: oidAccessMethodOCSP,
			AccessLocation: asn1.RawValue{
				Tag:   tagURI,
				Class: asn1.ClassContextSpecific,
				Bytes: []byte(p.OCSPURL),
			},
		})
	}
	if p.CAIssuersURL != "" {
		descriptions = append(descriptions, accessDescription{
			AccessMethod: oidAccessMethodCAIssuers,
			AccessLocation: asn1.RawValue{
				Tag:   tagURI,
				Class: asn1.ClassContextSpecific,
				Bytes: []byte(p.CAIssuersURL),
			},
		})
	}

	der, err := asn1.Marshal(descriptions)
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidAuthorityInfoAccess, Value: der}, nil
}

// buildTLSFeature encodes a SEQUENCE OF INTEGER (RFC 7633).
func buildTLSFeature(p Params) (*pkix.Extension, error) {
	if p.TLSFeature == nil || len(p.TLSFeature.Features) == 0 {
		return nil, nil
	}

	builder := cryptobyte.NewBuilder(nil)
	builder.AddASN1(cryptobyte_asn1.SEQUENCE, func(child *cryptobyte.Builder) {
		for _, feature := range p.TLSFeature.Features {
			child.AddASN1Int64(int64(feature))
		}
	})
	der, err := builder.Bytes()
	if err != nil {
		return nil, err
	}
	return &pkix.Extension{Id: oidTLSFeature, Critical: p.TLSFeature.Critical, Value: der}, nil
}

// nameConstraintsValue and generalSubtree mirror the NameConstraints ASN.1
// structure.
type nameConstraintsValue struct {
	Permitted []generalSubtree `asn1:"optional,tag:0"`
	Excluded  []generalSubtree `asn1:"optional,tag:1"`
}

type generalSubtree struct {
	Base asn1.RawValue
}

func buildNameConstraints(p Params) (*pkix.Extension, error) {
	if p.NameConstraints == nil || p.NameConstraints.IsEmpty() {
		return nil, nil
	}
	nc := p.NameConstraints

	var value nameConstraintsValue
	for _, domain := range nc.PermittedDNS {
		value.Permitted = append(value.Permitted, dnsSubtree(domain))
	}
	for _, email := range nc.PermittedEmail {
		value.Permitted = append(value.Permitted, emailSubtree(email))
	}
	for _, uri := range nc.PermittedURI {
		value.Permitted = append(value.Permitted, uriSubtree(uri))
	}
	for _, ipNet := range nc.PermittedIP {
		value.Permitted = append(value.Permitted, ipSubtree(ipNet.IP, ipNet.Mask))
	}
	for _, domain := range nc.ExcludedDNS {
		value.Excluded = append(value.Excluded, dnsSubtree(domain))
	}
	for _, email := range nc.ExcludedEmail {
		value.Excluded = append(value.Excluded, emailSubtree(email))
	}
	for _, uri := range nc.ExcludedURI {
		value.Excluded = append(value.Excluded, uriSubtree(uri))
	}
	for _, ipNet := range nc.ExcludedIP {
		value.Excluded = append(value.Excluded, ipSubtree(ipNet.IP, ipNet.Mask))
	}

	der, err := asn1.Marshal(value)
	if err != nil {
		return nil, err
	}
	// RFC 5280: Name Constraints MUST be critical
	return &pkix.Extension{Id: oidNameConstraints, Critical: true, Value: der}, nil
}

func dnsSubtree(domain string) generalSubtree {
	return generalSubtree{Base: asn1.RawValue{
		Tag:   tagDNSName,
		Class: asn1.ClassContextSpecific,
		Bytes: []byte(domain),
	}}
}

func emailSubtree(email string) generalSubtree {
	return generalSubtree{Base: asn1.RawValue{
		Tag:   tagRFC822Name,
		Class: asn1.ClassContextSpecific,
		Bytes: []byte(email),
	}}
}

func uriSubtree(uri string) generalSubtree {
	return generalSubtree{Base: asn1.RawValue{
		Tag:   tagURI,
		Class: asn1.ClassContextSpecific,
		Bytes: []byte(uri),
	}}
}

// ipSubtree encodes an IP range as address followed by mask.
func ipSubtree(ip []byte, mask []byte) generalSubtree {
	bytes := make([]byte, 0, len(ip)+len(mask))
	bytes = append(bytes, ip...)
	bytes = append(bytes, mask...)
	return generalSubtree{Base: asn1.RawValue{
		Tag:   tagIPAddress,
		Class: asn1.ClassContextSpecific,
		Bytes: bytes,
	}}
}
