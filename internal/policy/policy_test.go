package policy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestU_ClampExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := now.AddDate(5, 0, 0)

	tests := []struct {
		name      string
		requested time.Time
		want      time.Time
	}{
		{"within issuer validity", now.AddDate(1, 0, 0), now.AddDate(1, 0, 0)},
		{"exceeds issuer, clamped", now.AddDate(10, 0, 0), issuer},
		{"exactly issuer expiry", issuer, issuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampExpiry(tt.requested, issuer); !got.Equal(tt.want) {
				t.Errorf("ClampExpiry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestU_AllowsIntermediateCA(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name    string
		pathLen *int
		want    bool
	}{
		{"unset means unlimited", nil, true},
		{"pathlen zero forbids", intPtr(0), false},
		{"pathlen one allows", intPtr(1), true},
		{"pathlen three allows", intPtr(3), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllowsIntermediateCA(tt.pathLen); got != tt.want {
				t.Errorf("AllowsIntermediateCA(%v) = %v, want %v", tt.pathLen, got, tt.want)
			}
			err := CheckIntermediateAllowed(tt.pathLen)
			if tt.want && err != nil {
				t.Errorf("CheckIntermediateAllowed() error = %v, want nil", err)
			}
			if !tt.want && !errors.Is(err, ErrPathlenRestriction) {
				t.Errorf("CheckIntermediateAllowed() error = %v, want ErrPathlenRestriction", err)
			}
		})
	}
}

func TestU_CheckRootRevocationURLs(t *testing.T) {
	if err := CheckRootRevocationURLs(nil, ""); err != nil {
		t.Errorf("no URLs: error = %v, want nil", err)
	}
	err := CheckRootRevocationURLs([]string{"http://example.com/crl"}, "")
	if !errors.Is(err, ErrRootCACRLNotAllowed) {
		t.Errorf("CRL URL: error = %v, want ErrRootCACRLNotAllowed", err)
	}
	err = CheckRootRevocationURLs(nil, "http://example.com/ocsp")
	if !errors.Is(err, ErrRootCAOCSPNotAllowed) {
		t.Errorf("OCSP URL: error = %v, want ErrRootCAOCSPNotAllowed", err)
	}
}

func TestU_CheckExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuerExpiry := now.AddDate(0, 0, 30)

	if err := CheckExpiry(now.AddDate(0, 0, 29), issuerExpiry, now); err != nil {
		t.Errorf("within validity: error = %v, want nil", err)
	}

	err := CheckExpiry(now.AddDate(0, 0, 33), issuerExpiry, now)
	if !errors.Is(err, ErrExpiryExceedsIssuer) {
		t.Fatalf("past validity: error = %v, want ErrExpiryExceedsIssuer", err)
	}
	// The message must state the exact maximum remaining whole days.
	want := fmt.Sprintf("maximum expiry for this CA is %d days", 30)
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error = %q, want it to contain %q", got, want)
	}
}

func TestU_MaxIssueDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := MaxIssueDays(now.AddDate(0, 0, 30), now); got != 30 {
		t.Errorf("MaxIssueDays() = %d, want 30", got)
	}
	// Partial days round down.
	if got := MaxIssueDays(now.Add(30*24*time.Hour+6*time.Hour), now); got != 30 {
		t.Errorf("MaxIssueDays() = %d, want 30", got)
	}
}
