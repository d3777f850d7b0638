package extensions

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeDNSName lowercases a DNS name (RFC 4343) and strips the trailing
// dot of the FQDN absolute form.
func NormalizeDNSName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}

// MapDNSName applies IDNA mapping and validates the result per RFC
// 1035/1123. Returns the normalized ASCII name. A leading "*." wildcard
// label is preserved through the mapping.
func MapDNSName(name string) (string, error) {
	wildcard := strings.HasPrefix(name, "*.")
	if wildcard {
		name = name[2:]
	}
	mapped, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid DNS name %q: %w", name, err)
	}
	if wildcard {
		mapped = "*." + mapped
	}
	mapped = NormalizeDNSName(mapped)
	if err := ValidateDNSName(mapped); err != nil {
		return "", err
	}
	return mapped, nil
}

// ValidateDNSName validates a DNS name according to RFC 1035/1123:
// total length ≤ 253, labels ≤ 63 characters, no empty labels, valid
// characters, no leading/trailing hyphens. A wildcard is allowed in the
// leftmost label only. Single-label names like "localhost" are accepted.
func ValidateDNSName(name string) error {
	if name == "" {
		return fmt.Errorf("DNS name cannot be empty")
	}

	name = NormalizeDNSName(name)

	// RFC 1035: total DNS name ≤ 253 characters
	if len(name) > 253 {
		return fmt.Errorf("DNS name too long: %d > 253 characters", len(name))
	}

	for i, label := range strings.Split(name, ".") {
		if label == "" {
			return fmt.Errorf("empty label in DNS name (double dot or leading/trailing dot)")
		}

		// RFC 1035: label ≤ 63 characters
		if len(label) > 63 {
			return fmt.Errorf("label too long: %q (%d > 63 characters)", label, len(label))
		}

		if label == "*" {
			if i != 0 {
				return fmt.Errorf("wildcard (*) must be leftmost label")
			}
			continue
		}

		if !isValidDNSLabel(label) {
			return fmt.Errorf("invalid DNS label %q: must contain only alphanumeric characters and hyphens, and not start or end with a hyphen", label)
		}
	}

	return nil
}

// isValidDNSLabel checks a DNS label per RFC 1123: alphanumeric characters
// and hyphens only, no leading or trailing hyphen.
func isValidDNSLabel(label string) bool {
	if len(label) == 0 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if !isLower && !isUpper && !isDigit && c != '-' {
			return false
		}
	}
	return true
}
