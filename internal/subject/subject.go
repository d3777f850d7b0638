// Package subject models X.509 distinguished names for CA and certificate
// subjects. A subject is an ordered list of attribute key/value pairs parsed
// from either structured input or the OpenSSL-style "/K1=V1/K2=V2/..." form.
package subject

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSubjectKey indicates an unrecognized DN attribute key.
var ErrInvalidSubjectKey = errors.New("invalid subject key")

// Attribute keys accepted in a subject, in canonical DN order.
var dnOrder = []string{"C", "ST", "L", "O", "OU", "CN", "emailAddress"}

// oidEmailAddress is the PKCS#9 emailAddress attribute, which pkix.Name has
// no dedicated field for.
var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// Attribute is a single DN key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// Subject is an ordered set of DN attributes. The zero value is empty and
// ready to use. Methods that modify the subject return a new value where
// noted; Set and Remove mutate in place.
type Subject struct {
	attrs []Attribute
}

// New builds a subject from key/value pairs, validating each key.
func New(pairs map[string]string) (Subject, error) {
	var s Subject
	for _, key := range dnOrder {
		if v, ok := pairs[key]; ok {
			s.Set(key, v)
		}
	}
	for key := range pairs {
		if !validKey(key) {
			return Subject{}, fmt.Errorf("%w: %s", ErrInvalidSubjectKey, key)
		}
	}
	return s, nil
}

// Parse parses a "/K1=V1/K2=V2/..." subject string. Unknown keys fail with
// ErrInvalidSubjectKey. Duplicate keys are last-write-wins. Values are
// trimmed of surrounding whitespace; attributes whose value is empty after
// trimming are kept as explicit removals (see MergeDefaults) and dropped by
// Clean.
func Parse(input string) (Subject, error) {
	var s Subject
	input = strings.TrimPrefix(input, "/")
	if input == "" {
		return s, nil
	}

	for _, field := range strings.Split(input, "/") {
		if field == "" {
			continue
		}
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Subject{}, fmt.Errorf("%w: %q has no value", ErrInvalidSubjectKey, field)
		}
		key = strings.TrimSpace(key)
		if !validKey(key) {
			return Subject{}, fmt.Errorf("%w: %s", ErrInvalidSubjectKey, key)
		}
		s.Set(key, strings.TrimSpace(value))
	}
	return s, nil
}

func validKey(key string) bool {
	for _, k := range dnOrder {
		if k == key {
			return true
		}
	}
	return false
}

// Set adds or replaces the value for key. Replacement keeps the attribute's
// original position.
func (s *Subject) Set(key, value string) {
	for i, a := range s.attrs {
		if a.Key == key {
			s.attrs[i].Value = value
			return
		}
	}
	s.attrs = append(s.attrs, Attribute{Key: key, Value: value})
}

// Get returns the value for key and whether the key is present. A present
// key may carry an empty value (an explicit removal).
func (s Subject) Get(key string) (string, bool) {
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Remove deletes the attribute for key if present.
func (s *Subject) Remove(key string) {
	for i, a := range s.attrs {
		if a.Key == key {
			s.attrs = append(s.attrs[:i], s.attrs[i+1:]...)
			return
		}
	}
}

// CommonName returns the CN value, or "" when absent or cleared.
func (s Subject) CommonName() string {
	cn, _ := s.Get("CN")
	return cn
}

// IsEmpty reports whether the subject has no non-empty attributes.
func (s Subject) IsEmpty() bool {
	for _, a := range s.attrs {
		if a.Value != "" {
			return false
		}
	}
	return true
}

// MergeDefaults fills missing keys from defaults without overwriting keys
// already present. A key present with an empty value blocks its default:
// clearing is a valid "remove this key" signal, and Clean drops it later.
func (s Subject) MergeDefaults(defaults Subject) Subject {
	merged := Subject{attrs: append([]Attribute(nil), s.attrs...)}
	for _, d := range defaults.attrs {
		if _, ok := merged.Get(d.Key); !ok {
			merged.Set(d.Key, d.Value)
		}
	}
	return merged
}

// Clean returns a copy with all empty-valued attributes dropped, in
// canonical DN order (C, ST, L, O, OU, CN, emailAddress).
func (s Subject) Clean() Subject {
	var cleaned Subject
	for _, key := range dnOrder {
		if v, ok := s.Get(key); ok && v != "" {
			cleaned.Set(key, v)
		}
	}
	return cleaned
}

// Attributes returns a copy of the attribute list.
func (s Subject) Attributes() []Attribute {
	return append([]Attribute(nil), s.attrs...)
}

// PKIXName converts the subject to a pkix.Name. Empty attributes are
// skipped. emailAddress is carried in ExtraNames since pkix.Name has no
// field for it.
func (s Subject) PKIXName() pkix.Name {
	var name pkix.Name
	for _, a := range s.Clean().attrs {
		switch a.Key {
		case "C":
			name.Country = append(name.Country, a.Value)
		case "ST":
			name.Province = append(name.Province, a.Value)
		case "L":
			name.Locality = append(name.Locality, a.Value)
		case "O":
			name.Organization = append(name.Organization, a.Value)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, a.Value)
		case "CN":
			name.CommonName = a.Value
		case "emailAddress":
			// RFC 5280: PKCS#9 emailAddress is an IA5String, not the
			// UTF8String the asn1 default would produce.
			name.ExtraNames = append(name.ExtraNames, pkix.AttributeTypeAndValue{
				Type: oidEmailAddress,
				Value: asn1.RawValue{
					Tag:   asn1.TagIA5String,
					Bytes: []byte(a.Value),
				},
			})
		}
	}
	return name
}

// String renders the subject in the "/K=V" form used by Parse.
func (s Subject) String() string {
	var b strings.Builder
	for _, a := range s.Clean().attrs {
		fmt.Fprintf(&b, "/%s=%s", a.Key, a.Value)
	}
	return b.String()
}
