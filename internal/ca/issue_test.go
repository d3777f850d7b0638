package ca

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/policy"
)

// recordingNotifier counts issuance notifications.
type recordingNotifier struct {
	before int
	after  int
}

func (r *recordingNotifier) BeforeIssuance(context.Context, *IssueRequest) { r.before++ }
func (r *recordingNotifier) AfterIssuance(context.Context, *IssueRequest, *Certificate) {
	r.after++
}

// makeCSR builds a PEM-encoded ECDSA signing request.
func makeCSR(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: "csr-fallback"},
	}, key)
	if err != nil {
		t.Fatalf("CreateCertificateRequest() error = %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}

// issueFixture creates an engine with a root CA and a notifier attached.
func issueFixture(t *testing.T, caReq CreateCARequest) (*Engine, *MockStore, *recordingNotifier) {
	t.Helper()
	store := NewMockStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, store, WithNotifier(notifier))

	if caReq.Name == "" {
		caReq.Name = "root-ca"
	}
	if caReq.Key.Algorithm == "" {
		caReq.Key = ecdsaSpec()
	}
	if _, err := engine.CreateCA(context.Background(), caReq); err != nil {
		t.Fatalf("CreateCA() error = %v", err)
	}
	return engine, store, notifier
}

// =============================================================================
// Issuance
// =============================================================================

func TestF_Issue_Basic(t *testing.T) {
	engine, store, notifier := issueFixture(t, CreateCARequest{
		ValidityDays: 3650,
		CRLURLs:      []string{"http://crl.example.com/ca.crl"},
		OCSPURL:      "http://ocsp.example.com",
		IssuerURL:    "http://certs.example.com/ca.crt",
	})

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:           "root-ca",
		CSR:          makeCSR(t),
		Subject:      mustSubject(t, "/CN=www.example.com/O=Example Corp"),
		ValidityDays: 365,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if notifier.before != 1 || notifier.after != 1 {
		t.Errorf("notifications before=%d after=%d, want 1/1", notifier.before, notifier.after)
	}
	if store.SaveCertCalls != 1 {
		t.Errorf("SaveCert called %d times, want 1", store.SaveCertCalls)
	}

	parsed := cert.Cert
	if parsed.Subject.CommonName != "www.example.com" {
		t.Errorf("CN = %q, want www.example.com", parsed.Subject.CommonName)
	}
	if parsed.IsCA {
		t.Error("end-entity certificate must not be a CA")
	}
	// CN joins the SAN by default.
	if len(parsed.DNSNames) != 1 || parsed.DNSNames[0] != "www.example.com" {
		t.Errorf("DNSNames = %v, want [www.example.com]", parsed.DNSNames)
	}
	// The issuing CA's URLs are stamped on the certificate.
	if len(parsed.CRLDistributionPoints) != 1 || parsed.CRLDistributionPoints[0] != "http://crl.example.com/ca.crl" {
		t.Errorf("CRLDistributionPoints = %v", parsed.CRLDistributionPoints)
	}
	if len(parsed.OCSPServer) != 1 || parsed.OCSPServer[0] != "http://ocsp.example.com" {
		t.Errorf("OCSPServer = %v", parsed.OCSPServer)
	}
	if len(parsed.IssuingCertificateURL) != 1 || parsed.IssuingCertificateURL[0] != "http://certs.example.com/ca.crt" {
		t.Errorf("IssuingCertificateURL = %v", parsed.IssuingCertificateURL)
	}

	root, err := store.LoadCA(context.Background(), "root-ca")
	if err != nil {
		t.Fatalf("LoadCA() error = %v", err)
	}
	if err := parsed.CheckSignatureFrom(root.Certificate); err != nil {
		t.Errorf("signature invalid: %v", err)
	}
	if string(parsed.AuthorityKeyId) != string(root.Certificate.SubjectKeyId) {
		t.Error("AKID should match the CA's SKID")
	}
}

func TestU_Issue_ExpiryExceedsIssuer(t *testing.T) {
	engine, store, notifier := issueFixture(t, CreateCARequest{ValidityDays: 30})

	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:           "root-ca",
		CSR:          makeCSR(t),
		Subject:      mustSubject(t, "/CN=www.example.com"),
		ValidityDays: 33,
	})
	if !errors.Is(err, policy.ErrExpiryExceedsIssuer) {
		t.Fatalf("Issue() error = %v, want ErrExpiryExceedsIssuer", err)
	}
	// The message names the exact maximum remaining whole days.
	if !strings.Contains(err.Error(), "maximum expiry for this CA is 30 days") {
		t.Errorf("error %q should state the 30 day maximum", err.Error())
	}
	// Fails before the attempt is observable.
	if notifier.before != 0 || notifier.after != 0 {
		t.Errorf("notifications before=%d after=%d, want 0/0", notifier.before, notifier.after)
	}
	if store.SaveCertCalls != 0 {
		t.Error("no certificate should be persisted")
	}
}

func TestU_Issue_MissingIdentity(t *testing.T) {
	engine, store, notifier := issueFixture(t, CreateCARequest{})

	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:  "root-ca",
		CSR: makeCSR(t),
	})
	if !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("Issue() error = %v, want ErrMissingIdentity", err)
	}
	// The identity check precedes the before notification.
	if notifier.before != 0 || notifier.after != 0 {
		t.Errorf("notifications before=%d after=%d, want 0/0", notifier.before, notifier.after)
	}
	if store.SaveCertCalls != 0 {
		t.Error("no certificate should be persisted")
	}
}

func TestU_Issue_UnknownCSRFormat(t *testing.T) {
	engine, _, notifier := issueFixture(t, CreateCARequest{})

	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:        "root-ca",
		CSR:       makeCSR(t),
		CSRFormat: "BASE32",
		Subject:   mustSubject(t, "/CN=www.example.com"),
	})
	if !errors.Is(err, ErrUnknownCSRFormat) {
		t.Fatalf("Issue() error = %v, want ErrUnknownCSRFormat", err)
	}
	// The error names the bad value.
	if !strings.Contains(err.Error(), "BASE32") {
		t.Errorf("error %q should name the format", err.Error())
	}
	// The attempt passed the expiry and identity checks.
	if notifier.before != 1 || notifier.after != 0 {
		t.Errorf("notifications before=%d after=%d, want 1/0", notifier.before, notifier.after)
	}
}

func TestU_Issue_CommonNameNotDNSName(t *testing.T) {
	engine, store, notifier := issueFixture(t, CreateCARequest{})

	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:      "root-ca",
		CSR:     makeCSR(t),
		Subject: mustSubject(t, "/CN=foo bar"),
	})
	if !errors.Is(err, extensions.ErrCommonNameNotDNSName) {
		t.Fatalf("Issue() error = %v, want ErrCommonNameNotDNSName", err)
	}
	if !strings.Contains(err.Error(), "foo bar") {
		t.Errorf("error %q should name the CN", err.Error())
	}
	// Before fires, after does not, nothing is persisted.
	if notifier.before != 1 || notifier.after != 0 {
		t.Errorf("notifications before=%d after=%d, want 1/0", notifier.before, notifier.after)
	}
	if store.SaveCertCalls != 0 {
		t.Error("no certificate should be persisted")
	}
}

func TestU_Issue_ExcludeCNFromSAN(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	var san extensions.AltNames
	if err := san.Add("DNS:app.example.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// A non-DNS CN is fine when it stays out of the SAN.
	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:               "root-ca",
		CSR:              makeCSR(t),
		Subject:          mustSubject(t, "/CN=foo bar"),
		ExcludeCNFromSAN: true,
		AltNames:         san,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if cert.Cert.Subject.CommonName != "foo bar" {
		t.Errorf("CN = %q, want foo bar", cert.Cert.Subject.CommonName)
	}
	if len(cert.Cert.DNSNames) != 1 || cert.Cert.DNSNames[0] != "app.example.com" {
		t.Errorf("DNSNames = %v, want [app.example.com] without the CN", cert.Cert.DNSNames)
	}
}

func TestU_Issue_CommonNameFallsBackToSAN(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	var san extensions.AltNames
	if err := san.Add("app.example.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:       "root-ca",
		CSR:      makeCSR(t),
		AltNames: san,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if cert.Cert.Subject.CommonName != "app.example.com" {
		t.Errorf("CN = %q, want fallback app.example.com", cert.Cert.Subject.CommonName)
	}
	if len(cert.Cert.DNSNames) != 1 {
		t.Errorf("DNSNames = %v, SAN should not duplicate the fallback CN", cert.Cert.DNSNames)
	}
}

// =============================================================================
// Encrypted CA keys
// =============================================================================

func TestU_Issue_EncryptedCAKey(t *testing.T) {
	engine, store, notifier := issueFixture(t, CreateCARequest{
		Passphrase: []byte("ca secret"),
	})

	base := IssueRequest{
		CA:      "root-ca",
		CSR:     makeCSR(t),
		Subject: mustSubject(t, "/CN=www.example.com"),
	}

	// No passphrase.
	req := base
	_, err := engine.Issue(context.Background(), req)
	if !errors.Is(err, keys.ErrPasswordRequired) {
		t.Fatalf("Issue(no passphrase) error = %v, want ErrPasswordRequired", err)
	}
	if notifier.before != 1 {
		t.Errorf("before notifications = %d, want 1 (key decryption happens after the attempt is observable)", notifier.before)
	}

	// Wrong passphrase.
	req = base
	req.Passphrase = []byte("wrong")
	_, err = engine.Issue(context.Background(), req)
	if !errors.Is(err, keys.ErrDecryptionFailed) {
		t.Fatalf("Issue(wrong passphrase) error = %v, want ErrDecryptionFailed", err)
	}
	if store.SaveCertCalls != 0 {
		t.Error("no certificate should be persisted on decryption failure")
	}

	// Correct passphrase.
	req = base
	req.Passphrase = []byte("ca secret")
	cert, err := engine.Issue(context.Background(), req)
	if err != nil {
		t.Fatalf("Issue(correct passphrase) error = %v", err)
	}

	root, err := store.LoadCA(context.Background(), "root-ca")
	if err != nil {
		t.Fatalf("LoadCA() error = %v", err)
	}
	if string(cert.Cert.AuthorityKeyId) != string(root.Certificate.SubjectKeyId) {
		t.Error("AKID should match the CA's SKID")
	}
	if notifier.after != 1 {
		t.Errorf("after notifications = %d, want 1", notifier.after)
	}
}

func TestU_Issue_PassphraseZeroedOnExit(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{Passphrase: []byte("ca secret")})

	passphrase := []byte("ca secret")
	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:         "root-ca",
		CSR:        makeCSR(t),
		Subject:    mustSubject(t, "/CN=www.example.com"),
		Passphrase: passphrase,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	for i, b := range passphrase {
		if b != 0 {
			t.Fatalf("passphrase byte %d not zeroed", i)
		}
	}
}

// =============================================================================
// Extension round-trip
// =============================================================================

func TestF_Issue_ExtensionRoundTrip(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	keyUsage, err := extensions.ParseKeyUsage("critical,digitalSignature,keyAgreement")
	if err != nil {
		t.Fatalf("ParseKeyUsage() error = %v", err)
	}
	extKeyUsage, err := extensions.ParseExtKeyUsage("serverAuth,clientAuth")
	if err != nil {
		t.Fatalf("ParseExtKeyUsage() error = %v", err)
	}
	tlsFeature, err := extensions.ParseTLSFeature("OCSPMustStaple")
	if err != nil {
		t.Fatalf("ParseTLSFeature() error = %v", err)
	}
	san, err := extensions.ParseAltNames([]string{
		"www.example.com",
		"email:admin@example.com",
		"URI:https://example.com/app",
		"IP:192.0.2.10",
	})
	if err != nil {
		t.Fatalf("ParseAltNames() error = %v", err)
	}

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:               "root-ca",
		CSR:              makeCSR(t),
		Subject:          mustSubject(t, "/CN=www.example.com"),
		AltNames:         san,
		KeyUsage:         keyUsage,
		ExtKeyUsage:      extKeyUsage,
		TLSFeature:       tlsFeature,
		ExcludeCNFromSAN: true,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parsed := cert.Cert
	if parsed.KeyUsage != x509.KeyUsageDigitalSignature|x509.KeyUsageKeyAgreement {
		t.Errorf("KeyUsage = %v, want digitalSignature|keyAgreement", parsed.KeyUsage)
	}
	if len(parsed.ExtKeyUsage) != 2 ||
		parsed.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth ||
		parsed.ExtKeyUsage[1] != x509.ExtKeyUsageClientAuth {
		t.Errorf("ExtKeyUsage = %v, want [serverAuth clientAuth]", parsed.ExtKeyUsage)
	}
	if len(parsed.DNSNames) != 1 || parsed.DNSNames[0] != "www.example.com" {
		t.Errorf("DNSNames = %v", parsed.DNSNames)
	}
	if len(parsed.EmailAddresses) != 1 || parsed.EmailAddresses[0] != "admin@example.com" {
		t.Errorf("EmailAddresses = %v", parsed.EmailAddresses)
	}
	if len(parsed.URIs) != 1 || parsed.URIs[0].String() != "https://example.com/app" {
		t.Errorf("URIs = %v", parsed.URIs)
	}
	if len(parsed.IPAddresses) != 1 || !parsed.IPAddresses[0].Equal(net.ParseIP("192.0.2.10")) {
		t.Errorf("IPAddresses = %v", parsed.IPAddresses)
	}

	// Criticality survives the round-trip.
	critical := map[string]bool{}
	for _, ext := range parsed.Extensions {
		critical[ext.Id.String()] = ext.Critical
	}
	if !critical["2.5.29.15"] {
		t.Error("keyUsage should be critical")
	}
	if critical["2.5.29.37"] {
		t.Error("extendedKeyUsage should not be critical")
	}
	if !critical["2.5.29.19"] {
		t.Error("basicConstraints should be critical")
	}
	if _, ok := critical["1.3.6.1.5.5.7.1.24"]; !ok {
		t.Error("tlsFeature extension missing")
	}
}

func TestF_Issue_IssuerAltNameStamped(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{
		IssuerAltName: []string{"URI:https://ca.example.com", "ca.example.com"},
	})

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:      "root-ca",
		CSR:     makeCSR(t),
		Subject: mustSubject(t, "/CN=www.example.com"),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var ian *pkix.Extension
	for i, ext := range cert.Cert.Extensions {
		if ext.Id.String() == "2.5.29.18" {
			ian = &cert.Cert.Extensions[i]
		}
	}
	if ian == nil {
		t.Fatal("issuerAltName extension missing")
	}
	if ian.Critical {
		t.Error("issuerAltName should not be critical")
	}

	var names []asn1.RawValue
	if _, err := asn1.Unmarshal(ian.Value, &names); err != nil {
		t.Fatalf("Unmarshal(issuerAltName) error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("issuerAltName has %d entries, want 2", len(names))
	}
	// DNS entries come first in the GeneralNames encoding.
	if names[0].Tag != 2 || string(names[0].Bytes) != "ca.example.com" {
		t.Errorf("entry 0 = tag %d %q, want DNS ca.example.com", names[0].Tag, names[0].Bytes)
	}
	if names[1].Tag != 6 || string(names[1].Bytes) != "https://ca.example.com" {
		t.Errorf("entry 1 = tag %d %q, want URI https://ca.example.com", names[1].Tag, names[1].Bytes)
	}
}

func TestU_Issue_OmitsIssuerAltNameWhenUnset(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:      "root-ca",
		CSR:     makeCSR(t),
		Subject: mustSubject(t, "/CN=www.example.com"),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	for _, ext := range cert.Cert.Extensions {
		if ext.Id.String() == "2.5.29.18" {
			t.Fatal("issuerAltName should be absent for a CA without one")
		}
	}
}

func TestU_CreateCA_InvalidIssuerAltName(t *testing.T) {
	store := NewMockStore()
	engine := newTestEngine(t, store)

	_, err := engine.CreateCA(context.Background(), CreateCARequest{
		Name:          "root-ca",
		Key:           ecdsaSpec(),
		IssuerAltName: []string{"IP:not-an-ip"},
	})
	if !errors.Is(err, extensions.ErrUnknownValue) {
		t.Fatalf("CreateCA() error = %v, want ErrUnknownValue", err)
	}
	if _, loadErr := store.LoadCA(context.Background(), "root-ca"); !errors.Is(loadErr, ErrCANotFound) {
		t.Error("no CA should be persisted after a rejected issuer alt name")
	}
}

func TestU_Issue_SerialsAreSequential(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	var serials []string
	for i := 0; i < 3; i++ {
		cert, err := engine.Issue(context.Background(), IssueRequest{
			CA:      "root-ca",
			CSR:     makeCSR(t),
			Subject: mustSubject(t, "/CN=www.example.com"),
		})
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		serials = append(serials, cert.Serial)
	}

	want := []string{"1", "2", "3"}
	for i := range want {
		if serials[i] != want[i] {
			t.Errorf("serial[%d] = %q, want %q", i, serials[i], want[i])
		}
	}
}

func TestU_Issue_CANotFound(t *testing.T) {
	store := NewMockStore()
	engine := newTestEngine(t, store)

	_, err := engine.Issue(context.Background(), IssueRequest{
		CA:      "missing-ca",
		CSR:     makeCSR(t),
		Subject: mustSubject(t, "/CN=www.example.com"),
	})
	if !errors.Is(err, ErrCANotFound) {
		t.Errorf("Issue() error = %v, want ErrCANotFound", err)
	}
}

func TestU_Issue_DERFormat(t *testing.T) {
	engine, _, _ := issueFixture(t, CreateCARequest{})

	pemCSR := makeCSR(t)
	block, _ := pem.Decode(pemCSR)

	cert, err := engine.Issue(context.Background(), IssueRequest{
		CA:        "root-ca",
		CSR:       block.Bytes,
		CSRFormat: "DER",
		Subject:   mustSubject(t, "/CN=www.example.com"),
	})
	if err != nil {
		t.Fatalf("Issue(DER) error = %v", err)
	}
	if cert.Cert.Subject.CommonName != "www.example.com" {
		t.Errorf("CN = %q", cert.Cert.Subject.CommonName)
	}
}
