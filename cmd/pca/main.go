// Command pca is the CLI tool for managing a private certificate authority.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/audit"
	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/config"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	auditLogPath string
)

// cfg is loaded once before any command runs.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pca",
	Short: "Private CA - a minimal certificate authority toolkit",
	Long: `pca is a command-line tool for managing a private Certificate Authority:
creating root and intermediate CAs, issuing end-entity certificates from
CSRs, and keeping a tamper-evident audit trail.

Supported algorithms:
  RSA   (2048, 4096, 8192)
  DSA   (1024, 2048, 3072)
  ECDSA (SECP256R1, SECP384R1, SECP521R1)

Examples:
  # Create a root CA
  pca ca init --name root-ca --subject "/C=FR/O=Example/CN=Example Root CA"

  # Create an issuing CA below it
  pca ca init --name issuing-ca --parent root-ca --pathlen 0

  # Issue a TLS server certificate
  pca cert issue --ca issuing-ca --csr server.csr --subject "/CN=www.example.com"

  # Generate a key pair
  pca key gen --algorithm ECDSA --curve SECP384R1 --out server.key`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// The flag wins over config and environment.
		if auditLogPath == "" {
			auditLogPath = os.Getenv("PCA_AUDIT_LOG")
		}
		if auditLogPath == "" {
			auditLogPath = cfg.AuditLog
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set PCA_AUDIT_LOG env var)")

	rootCmd.AddCommand(caCmd)   // pca ca ...
	rootCmd.AddCommand(certCmd) // pca cert ...
	rootCmd.AddCommand(keyCmd)  // pca key ...
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
}

// openStore builds the configured certificate store.
func openStore() (ca.Store, func() error, error) {
	switch cfg.Store {
	case "sqlite":
		store, err := ca.OpenSQLStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return ca.NewFileStore(cfg.CADir), func() error { return nil }, nil
	}
}

// newEngine builds the issuance engine over the configured store.
func newEngine() (*ca.Engine, ca.Store, func() error, error) {
	store, closeStore, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	return ca.NewEngine(store, cfg), store, closeStore, nil
}
