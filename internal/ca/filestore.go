package ca

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore persists authorities on the filesystem.
// Directory structure, one subtree per CA:
//
//	{base}/{name}/
//	  ├── ca.crt           # CA certificate
//	  ├── ca.yaml          # CA metadata
//	  ├── private/
//	  │   └── ca.key       # CA private key (possibly encrypted)
//	  ├── certs/           # Issued certificates
//	  │   └── {serial}.crt
//	  ├── index.txt        # Certificate database (OpenSSL-like)
//	  └── serial           # Next serial number
type FileStore struct {
	basePath string

	// serialMu serializes the read-modify-write of serial files so
	// concurrent issuance through one store never reuses a serial.
	serialMu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at the given directory.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

// caMetadata is the YAML representation of an Authority, key and
// certificate excluded.
type caMetadata struct {
	Name          string   `yaml:"name"`
	Serial        string   `yaml:"serial"`
	Parent        string   `yaml:"parent,omitempty"`
	PathLen       *int     `yaml:"pathlen,omitempty"`
	CRLURLs       []string `yaml:"crl_urls,omitempty"`
	OCSPURL       string   `yaml:"ocsp_url,omitempty"`
	IssuerURL     string   `yaml:"issuer_url,omitempty"`
	IssuerAltName []string `yaml:"issuer_alt_name,omitempty"`
}

func (s *FileStore) caDir(name string) string {
	return filepath.Join(s.basePath, name)
}

func (s *FileStore) metadataPath(name string) string {
	return filepath.Join(s.caDir(name), "ca.yaml")
}

// SaveCA persists a new authority and initializes its directory tree.
func (s *FileStore) SaveCA(_ context.Context, authority *Authority) error {
	dir := s.caDir(authority.Name)
	if _, err := os.Stat(s.metadataPath(authority.Name)); err == nil {
		return fmt.Errorf("%w: %s", ErrCAExists, authority.Name)
	}

	dirs := []string{
		dir,
		filepath.Join(dir, "certs"),
		filepath.Join(dir, "private"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	if err := saveCertPEM(filepath.Join(dir, "ca.crt"), authority.Certificate); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "private", "ca.key"), authority.KeyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write CA key: %w", err)
	}

	meta := caMetadata{
		Name:          authority.Name,
		Serial:        authority.Serial,
		Parent:        authority.Parent,
		PathLen:       authority.PathLen,
		CRLURLs:       authority.CRLURLs,
		OCSPURL:       authority.OCSPURL,
		IssuerURL:     authority.IssuerURL,
		IssuerAltName: authority.IssuerAltName,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to marshal CA metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(authority.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write CA metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "serial"), []byte("01\n"), 0644); err != nil {
		return fmt.Errorf("failed to create serial file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.txt"), []byte(""), 0644); err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	return nil
}

// LoadCA retrieves an authority by name.
func (s *FileStore) LoadCA(_ context.Context, name string) (*Authority, error) {
	data, err := os.ReadFile(s.metadataPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCANotFound, name)
		}
		return nil, fmt.Errorf("failed to read CA metadata: %w", err)
	}

	var meta caMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse CA metadata: %w", err)
	}

	dir := s.caDir(name)
	cert, err := loadCertPEM(filepath.Join(dir, "ca.crt"))
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(filepath.Join(dir, "private", "ca.key"))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA key: %w", err)
	}

	return &Authority{
		Name:          meta.Name,
		Serial:        meta.Serial,
		Parent:        meta.Parent,
		PathLen:       meta.PathLen,
		CRLURLs:       meta.CRLURLs,
		OCSPURL:       meta.OCSPURL,
		IssuerURL:     meta.IssuerURL,
		IssuerAltName: meta.IssuerAltName,
		KeyPEM:        keyPEM,
		Certificate:   cert,
	}, nil
}

// SaveCert persists an issued certificate and appends it to the index.
func (s *FileStore) SaveCert(_ context.Context, caName string, cert *Certificate) error {
	dir := s.caDir(caName)
	path := filepath.Join(dir, "certs", cert.Serial+".crt")
	if err := saveCertPEM(path, cert.Cert); err != nil {
		return err
	}
	return s.appendIndex(caName, cert)
}

// LoadCert retrieves an issued certificate by serial.
func (s *FileStore) LoadCert(_ context.Context, caName, serial string) (*Certificate, error) {
	path := filepath.Join(s.caDir(caName), "certs", serial+".crt")
	cert, err := loadCertPEM(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCertNotFound, serial)
		}
		return nil, err
	}
	return &Certificate{Serial: serial, CA: caName, Cert: cert}, nil
}

// NextSerial returns the next serial number for the named CA and
// increments the counter.
func (s *FileStore) NextSerial(_ context.Context, caName string) (*big.Int, error) {
	s.serialMu.Lock()
	defer s.serialMu.Unlock()

	serialPath := filepath.Join(s.caDir(caName), "serial")

	data, err := os.ReadFile(serialPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read serial file: %w", err)
	}

	serialHex := strings.TrimSpace(string(data))
	if len(serialHex)%2 == 1 {
		serialHex = "0" + serialHex
	}
	serial, err := hex.DecodeString(serialHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse serial: %w", err)
	}

	next := incrementSerial(serial)
	if err := os.WriteFile(serialPath, []byte(hex.EncodeToString(next)+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to update serial file: %w", err)
	}

	return new(big.Int).SetBytes(serial), nil
}

// ListCAs returns the names of all stored authorities.
func (s *FileStore) ListCAs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list CA directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.metadataPath(entry.Name())); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Children returns the names of CAs whose parent is the named CA.
func (s *FileStore) Children(ctx context.Context, name string) ([]string, error) {
	names, err := s.ListCAs(ctx)
	if err != nil {
		return nil, err
	}

	var children []string
	for _, n := range names {
		data, err := os.ReadFile(s.metadataPath(n))
		if err != nil {
			return nil, fmt.Errorf("failed to read CA metadata: %w", err)
		}
		var meta caMetadata
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse CA metadata: %w", err)
		}
		if meta.Parent == name {
			children = append(children, n)
		}
	}
	return children, nil
}

// appendIndex appends an OpenSSL-style index.txt entry:
// status, expiry, revocation date (empty), serial, filename, subject.
func (s *FileStore) appendIndex(caName string, cert *Certificate) error {
	indexPath := filepath.Join(s.caDir(caName), "index.txt")

	f, err := os.OpenFile(indexPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("V\t%s\t\t%s\tunknown\t%s\n",
		cert.Cert.NotAfter.UTC().Format("060102150405Z"),
		cert.Serial,
		cert.Cert.Subject.String(),
	)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append index entry: %w", err)
	}
	return nil
}

// incrementSerial increments a big-endian byte slice by 1.
func incrementSerial(serial []byte) []byte {
	result := make([]byte, len(serial))
	copy(result, serial)

	for i := len(result) - 1; i >= 0; i-- {
		result[i]++
		if result[i] != 0 {
			return result
		}
	}

	// Overflow - prepend a byte
	return append([]byte{1}, result...)
}

// saveCertPEM writes a certificate to a PEM file.
func saveCertPEM(path string, cert *x509.Certificate) error {
	block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create certificate file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}

// loadCertPEM reads a certificate from a PEM file.
func loadCertPEM(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}
