package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/api/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP REST API server for CA operations.

The server exposes endpoints for creating CAs, issuing certificates,
and verifying the audit log. With --tls-cert and --tls-key the server
listens over TLS, otherwise plain HTTP.

Environment variables:
  PCA_PORT        Server port (default 8443)
  PCA_HOST        Bind address (default 0.0.0.0)
  PCA_TLS_CERT    Path to TLS certificate
  PCA_TLS_KEY     Path to TLS private key

Examples:
  # Start with defaults
  pca serve

  # Start on a custom port with TLS
  pca serve --port 9443 --tls-cert server.crt --tls-key server.key`,
	RunE: runServe,
}

var (
	servePort    int
	serveHost    string
	serveTLSCert string
	serveTLSKey  string
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Server port (default 8443)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind address (default 0.0.0.0)")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "Path to TLS certificate")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "Path to TLS private key")
}

func runServe(cmd *cobra.Command, args []string) error {
	srvCfg := server.DefaultConfig()

	if v := os.Getenv("PCA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			srvCfg.Port = port
		}
	}
	if v := os.Getenv("PCA_HOST"); v != "" {
		srvCfg.Host = v
	}
	if v := os.Getenv("PCA_TLS_CERT"); v != "" {
		srvCfg.TLSCert = v
	}
	if v := os.Getenv("PCA_TLS_KEY"); v != "" {
		srvCfg.TLSKey = v
	}

	if servePort != 0 {
		srvCfg.Port = servePort
	}
	if serveHost != "" {
		srvCfg.Host = serveHost
	}
	if serveTLSCert != "" {
		srvCfg.TLSCert = serveTLSCert
	}
	if serveTLSKey != "" {
		srvCfg.TLSKey = serveTLSKey
	}
	srvCfg.AuditLog = auditLogPath

	engine, store, closeStore, err := newEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(srvCfg, version, engine, store)
	return srv.Start()
}
