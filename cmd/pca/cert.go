package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/subject"
)

// certCmd is the parent command for certificate operations.
var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate management",
	Long: `Issue and inspect end-entity certificates.

Commands:
  issue   Sign a certificate from a CSR
  show    Display an issued certificate

Examples:
  # Issue a TLS server certificate
  pca cert issue --ca issuing-ca --csr server.csr --subject "/CN=www.example.com"

  # Issue with extra SANs and a 90 day validity
  pca cert issue --ca issuing-ca --csr server.csr \
      --subject "/CN=www.example.com" --alt DNS:api.example.com --days 90`,
}

var certIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a certificate from a CSR",
	Long: `Sign an end-entity certificate from a certificate signing request.

Only the CSR's public key is used; its subject is ignored. The subject is
taken from --subject, filled from the configured default subject. By
default the common name is added to the subject alternative names and must
parse as a DNS name; pass --exclude-cn-from-san for CNs that are not
hostnames.

The requested validity must not outlive the issuing CA.

Examples:
  # Server certificate with OCSP must-staple
  pca cert issue --ca issuing-ca --csr server.csr \
      --subject "/CN=www.example.com" --tls-feature OCSPMustStaple

  # Client certificate, CN kept out of the SAN
  pca cert issue --ca issuing-ca --csr client.csr \
      --subject "/CN=Jane Doe" --exclude-cn-from-san --alt email:jane@example.com \
      --key-usage critical,digitalSignature --ext-key-usage clientAuth

  # DER-encoded CSR
  pca cert issue --ca issuing-ca --csr server.der --csr-format DER \
      --subject "/CN=www.example.com"`,
	RunE: runCertIssue,
}

var certShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display an issued certificate",
	RunE:  runCertShow,
}

// cert issue flags
var (
	certIssueCA           string
	certIssueCSRFile      string
	certIssueCSRFormat    string
	certIssueSubject      string
	certIssueDays         int
	certIssueAlt          []string
	certIssueExcludeCN    bool
	certIssueKeyUsage     string
	certIssueExtKeyUsage  string
	certIssueTLSFeature   string
	certIssuePassword     string
	certIssueOut          string
)

// cert show flags
var (
	certShowCA     string
	certShowSerial string
)

func init() {
	flags := certIssueCmd.Flags()
	flags.StringVar(&certIssueCA, "ca", "", "Issuing CA name (required)")
	flags.StringVar(&certIssueCSRFile, "csr", "", "Path to the CSR file (required)")
	flags.StringVar(&certIssueCSRFormat, "csr-format", "", "CSR encoding: PEM (default) or DER")
	flags.StringVar(&certIssueSubject, "subject", "", `Subject in "/C=FR/O=Org/CN=Name" form`)
	flags.IntVar(&certIssueDays, "days", 0, "Validity in days (default from config)")
	flags.StringArrayVar(&certIssueAlt, "alt", nil, `SAN token, e.g. "DNS:www.example.com", "IP:192.0.2.1"`)
	flags.BoolVar(&certIssueExcludeCN, "exclude-cn-from-san", false, "Do not add the CN to the subject alternative names")
	flags.StringVar(&certIssueKeyUsage, "key-usage", "", `Key usage, e.g. "critical,digitalSignature,keyEncipherment"`)
	flags.StringVar(&certIssueExtKeyUsage, "ext-key-usage", "", `Extended key usage, e.g. "serverAuth,clientAuth"`)
	flags.StringVar(&certIssueTLSFeature, "tls-feature", "", `TLS feature, e.g. "OCSPMustStaple"`)
	flags.StringVar(&certIssuePassword, "password", "", "Passphrase for the CA key")
	flags.StringVar(&certIssueOut, "out", "", "Write the certificate PEM to this file (default: stdout)")
	_ = certIssueCmd.MarkFlagRequired("ca")
	_ = certIssueCmd.MarkFlagRequired("csr")

	certShowCmd.Flags().StringVar(&certShowCA, "ca", "", "Issuing CA name (required)")
	certShowCmd.Flags().StringVar(&certShowSerial, "serial", "", "Certificate serial (hex, required)")
	_ = certShowCmd.MarkFlagRequired("ca")
	_ = certShowCmd.MarkFlagRequired("serial")

	certCmd.AddCommand(certIssueCmd)
	certCmd.AddCommand(certShowCmd)
}

func runCertIssue(cmd *cobra.Command, args []string) error {
	engine, _, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	csr, err := os.ReadFile(certIssueCSRFile)
	if err != nil {
		return fmt.Errorf("failed to read CSR: %w", err)
	}

	req := ca.IssueRequest{
		CA:               certIssueCA,
		CSR:              csr,
		CSRFormat:        certIssueCSRFormat,
		ValidityDays:     certIssueDays,
		ExcludeCNFromSAN: certIssueExcludeCN,
		Passphrase:       []byte(certIssuePassword),
	}

	if certIssueSubject != "" {
		if req.Subject, err = subject.Parse(certIssueSubject); err != nil {
			return err
		}
	}
	if req.AltNames, err = extensions.ParseAltNames(certIssueAlt); err != nil {
		return err
	}
	if certIssueKeyUsage != "" {
		if req.KeyUsage, err = extensions.ParseKeyUsage(certIssueKeyUsage); err != nil {
			return err
		}
	}
	if certIssueExtKeyUsage != "" {
		if req.ExtKeyUsage, err = extensions.ParseExtKeyUsage(certIssueExtKeyUsage); err != nil {
			return err
		}
	}
	if certIssueTLSFeature != "" {
		if req.TLSFeature, err = extensions.ParseTLSFeature(certIssueTLSFeature); err != nil {
			return err
		}
	}

	cert, err := engine.Issue(context.Background(), req)
	if err != nil {
		return err
	}

	if certIssueOut != "" {
		if err := os.WriteFile(certIssueOut, cert.PEM(), 0644); err != nil {
			return fmt.Errorf("failed to write certificate: %w", err)
		}
		fmt.Printf("Issued certificate %s (serial %s)\n", cert.Cert.Subject, cert.Serial)
		fmt.Printf("  Written to %s\n", certIssueOut)
		return nil
	}

	fmt.Fprintf(os.Stderr, "Issued certificate %s (serial %s)\n", cert.Cert.Subject, cert.Serial)
	fmt.Print(string(cert.PEM()))
	return nil
}

func runCertShow(cmd *cobra.Command, args []string) error {
	_, store, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	cert, err := store.LoadCert(context.Background(), certShowCA, certShowSerial)
	if err != nil {
		return err
	}
	parsed := cert.Cert

	fmt.Printf("Certificate %s (CA %s)\n", cert.Serial, cert.CA)
	fmt.Printf("  Subject:    %s\n", parsed.Subject)
	fmt.Printf("  Issuer:     %s\n", parsed.Issuer)
	fmt.Printf("  Not before: %s\n", parsed.NotBefore.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Not after:  %s\n", parsed.NotAfter.Format("2006-01-02 15:04:05 MST"))
	if len(parsed.DNSNames) > 0 {
		fmt.Printf("  DNS names:  %v\n", parsed.DNSNames)
	}
	if len(parsed.EmailAddresses) > 0 {
		fmt.Printf("  Emails:     %v\n", parsed.EmailAddresses)
	}
	if len(parsed.IPAddresses) > 0 {
		fmt.Printf("  IPs:        %v\n", parsed.IPAddresses)
	}
	fmt.Print(string(cert.PEM()))
	return nil
}
