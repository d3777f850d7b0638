package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/subject"
)

// caCmd is the parent command for CA operations.
var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Certificate Authority management",
	Long: `Manage Certificate Authorities.

Commands:
  init    Create a new CA (root or intermediate)
  info    Display CA information
  list    List stored CAs

Examples:
  # Create a root CA
  pca ca init --name root-ca --subject "/C=FR/O=Example/CN=Example Root CA"

  # Create an intermediate that cannot create further CAs
  pca ca init --name issuing-ca --parent root-ca --pathlen 0

  # Show CA information
  pca ca info --name root-ca`,
}

var caInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new Certificate Authority",
	Long: `Create a new Certificate Authority.

Without --parent the CA is a self-signed root; a root may not carry
--ca-crl-url or --ca-ocsp-url since nothing above it could revoke it.
With --parent the CA is an intermediate signed by the parent: a validity
past the parent's expiry is silently clamped, and the parent's --pathlen
must allow another level of CAs.

The subject is given in OpenSSL style ("/C=FR/O=Org/CN=Name"); missing
fields are filled from the configured default subject, and the CN defaults
to the CA name.

Examples:
  # ECDSA root CA, 10 year validity
  pca ca init --name root-ca --days 3650

  # RSA-4096 root with an encrypted key
  pca ca init --name root-ca --algorithm RSA --bits 4096 --password secret

  # Intermediate constrained to example.com
  pca ca init --name issuing-ca --parent root-ca --pathlen 0 \
      --name-constraint permitted,DNS:example.com`,
	RunE: runCAInit,
}

var caInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display CA information",
	Long:  `Display detailed information about a Certificate Authority.`,
	RunE:  runCAInfo,
}

var caListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored CAs",
	RunE:  runCAList,
}

// ca init flags
var (
	caInitName            string
	caInitSubject         string
	caInitAlgorithm       string
	caInitBits            int
	caInitCurve           string
	caInitDays            int
	caInitParent          string
	caInitParentPassword  string
	caInitPassword        string
	caInitPathLen         int
	caInitCACRLURLs       []string
	caInitCAOCSPURL       string
	caInitCAIssuerURL     string
	caInitCRLURLs         []string
	caInitOCSPURL         string
	caInitIssuerURL       string
	caInitIssuerAltName   []string
	caInitNameConstraints []string
)

// ca info flags
var caInfoName string

func init() {
	flags := caInitCmd.Flags()
	flags.StringVar(&caInitName, "name", "", "CA name (required)")
	flags.StringVar(&caInitSubject, "subject", "", `Subject in "/C=FR/O=Org/CN=Name" form`)
	flags.StringVar(&caInitAlgorithm, "algorithm", "ECDSA", "Key algorithm: RSA, DSA or ECDSA")
	flags.IntVar(&caInitBits, "bits", 0, "Key size for RSA/DSA keys")
	flags.StringVar(&caInitCurve, "curve", "SECP256R1", "Named curve for ECDSA keys")
	flags.IntVar(&caInitDays, "days", 0, "Validity in days (default from config)")
	flags.StringVar(&caInitParent, "parent", "", "Parent CA name (creates an intermediate)")
	flags.StringVar(&caInitParentPassword, "parent-password", "", "Passphrase for the parent CA key")
	flags.StringVar(&caInitPassword, "password", "", "Passphrase to encrypt the new CA key")
	flags.IntVar(&caInitPathLen, "pathlen", -1, "Path length constraint (-1 = unbounded)")
	flags.StringArrayVar(&caInitCACRLURLs, "ca-crl-url", nil, "CRL URL embedded in the CA certificate (forbidden for roots)")
	flags.StringVar(&caInitCAOCSPURL, "ca-ocsp-url", "", "OCSP URL embedded in the CA certificate (forbidden for roots)")
	flags.StringVar(&caInitCAIssuerURL, "ca-issuer-url", "", "caIssuers URL embedded in the CA certificate")
	flags.StringArrayVar(&caInitCRLURLs, "crl-url", nil, "CRL URL stamped on issued certificates")
	flags.StringVar(&caInitOCSPURL, "ocsp-url", "", "OCSP URL stamped on issued certificates")
	flags.StringVar(&caInitIssuerURL, "issuer-url", "", "caIssuers URL stamped on issued certificates")
	flags.StringArrayVar(&caInitIssuerAltName, "issuer-alt-name", nil, `Issuer alternative name stamped on issued certificates, e.g. "URI:https://ca.example.com"`)
	flags.StringArrayVar(&caInitNameConstraints, "name-constraint", nil, `Name constraint token, e.g. "permitted,DNS:example.com" or "excluded,DNS:.com"`)
	_ = caInitCmd.MarkFlagRequired("name")

	caInfoCmd.Flags().StringVar(&caInfoName, "name", "", "CA name (required)")
	_ = caInfoCmd.MarkFlagRequired("name")

	caCmd.AddCommand(caInitCmd)
	caCmd.AddCommand(caInfoCmd)
	caCmd.AddCommand(caListCmd)
}

func runCAInit(cmd *cobra.Command, args []string) error {
	engine, _, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	bits := caInitBits
	if bits == 0 && keys.Algorithm(caInitAlgorithm) != keys.AlgECDSA {
		bits = cfg.MinKeyBits
	}

	req := ca.CreateCARequest{
		Name: caInitName,
		Key: keys.Spec{
			Algorithm: keys.Algorithm(caInitAlgorithm),
			Bits:      bits,
			Curve:     caInitCurve,
		},
		ValidityDays:     caInitDays,
		Parent:           caInitParent,
		ParentPassphrase: []byte(caInitParentPassword),
		Passphrase:       []byte(caInitPassword),
		CACRLURLs:        caInitCACRLURLs,
		CAOCSPURL:        caInitCAOCSPURL,
		CAIssuerURL:      caInitCAIssuerURL,
		CRLURLs:          caInitCRLURLs,
		OCSPURL:          caInitOCSPURL,
		IssuerURL:        caInitIssuerURL,
		IssuerAltName:    caInitIssuerAltName,
	}

	if caInitSubject != "" {
		if req.Subject, err = subject.Parse(caInitSubject); err != nil {
			return err
		}
	}
	if caInitPathLen >= 0 {
		pathLen := caInitPathLen
		req.PathLen = &pathLen
	}
	if len(caInitNameConstraints) > 0 {
		if req.NameConstraints, err = extensions.ParseNameConstraints(caInitNameConstraints); err != nil {
			return err
		}
	}

	authority, err := engine.CreateCA(context.Background(), req)
	if err != nil {
		return err
	}

	kind := "root"
	if authority.Parent != "" {
		kind = "intermediate"
	}
	fmt.Printf("Created %s CA %q\n", kind, authority.Name)
	fmt.Printf("  Subject:  %s\n", authority.Certificate.Subject)
	fmt.Printf("  Serial:   %s\n", authority.Serial)
	fmt.Printf("  Expires:  %s\n", authority.NotAfter().Format("2006-01-02"))
	return nil
}

func runCAInfo(cmd *cobra.Command, args []string) error {
	engine, store, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	authority, err := engine.GetCA(context.Background(), caInfoName)
	if err != nil {
		return err
	}
	cert := authority.Certificate

	fmt.Printf("CA: %s\n", authority.Name)
	fmt.Printf("  Subject:    %s\n", cert.Subject)
	fmt.Printf("  Issuer:     %s\n", cert.Issuer)
	fmt.Printf("  Serial:     %s\n", authority.Serial)
	fmt.Printf("  Not before: %s\n", cert.NotBefore.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Not after:  %s\n", cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
	if authority.Parent != "" {
		fmt.Printf("  Parent:     %s\n", authority.Parent)
	}
	if authority.PathLen != nil {
		fmt.Printf("  Pathlen:    %d\n", *authority.PathLen)
	}

	children, err := store.Children(context.Background(), authority.Name)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		fmt.Println("  Children:")
		for _, child := range children {
			fmt.Printf("    - %s\n", child)
		}
	}
	return nil
}

func runCAList(cmd *cobra.Command, args []string) error {
	_, store, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	names, err := store.ListCAs(context.Background())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No CAs found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
