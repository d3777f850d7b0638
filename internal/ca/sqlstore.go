package ca

import (
	"context"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLStore persists authorities and certificates in SQLite.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens (creating if necessary) a SQLite-backed store.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// under concurrent serial allocation.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS authorities (
			name TEXT PRIMARY KEY,
			serial TEXT NOT NULL,
			parent TEXT,
			pathlen INTEGER,
			crl_urls TEXT,
			ocsp_url TEXT,
			issuer_url TEXT,
			issuer_alt_name TEXT,
			key_pem BLOB NOT NULL,
			cert_der BLOB NOT NULL,
			next_serial INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS certificates (
			serial TEXT NOT NULL,
			ca_name TEXT NOT NULL,
			subject TEXT NOT NULL,
			not_after DATETIME NOT NULL,
			cert_der BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (ca_name, serial),
			FOREIGN KEY (ca_name) REFERENCES authorities(name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_authorities_parent ON authorities(parent)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SaveCA persists a new authority.
func (s *SQLStore) SaveCA(ctx context.Context, authority *Authority) error {
	var pathLen sql.NullInt64
	if authority.PathLen != nil {
		pathLen = sql.NullInt64{Int64: int64(*authority.PathLen), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authorities (name, serial, parent, pathlen, crl_urls, ocsp_url, issuer_url, issuer_alt_name, key_pem, cert_der)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		authority.Name, authority.Serial, authority.Parent, pathLen,
		joinLines(authority.CRLURLs), authority.OCSPURL, authority.IssuerURL,
		joinLines(authority.IssuerAltName), authority.KeyPEM, authority.Certificate.Raw,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrCAExists, authority.Name)
		}
		return fmt.Errorf("failed to save CA: %w", err)
	}
	return nil
}

// LoadCA retrieves an authority by name.
func (s *SQLStore) LoadCA(ctx context.Context, name string) (*Authority, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, serial, parent, pathlen, crl_urls, ocsp_url, issuer_url, issuer_alt_name, key_pem, cert_der
		 FROM authorities WHERE name = ?`, name)

	var (
		authority     Authority
		parent        sql.NullString
		pathLen       sql.NullInt64
		crlURLs       sql.NullString
		ocspURL       sql.NullString
		issuerURL     sql.NullString
		issuerAltName sql.NullString
		certDER       []byte
	)
	err := row.Scan(&authority.Name, &authority.Serial, &parent, &pathLen,
		&crlURLs, &ocspURL, &issuerURL, &issuerAltName, &authority.KeyPEM, &certDER)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCANotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load CA: %w", err)
	}

	authority.Parent = parent.String
	if pathLen.Valid {
		v := int(pathLen.Int64)
		authority.PathLen = &v
	}
	authority.CRLURLs = splitLines(crlURLs.String)
	authority.OCSPURL = ocspURL.String
	authority.IssuerURL = issuerURL.String
	authority.IssuerAltName = splitLines(issuerAltName.String)

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored CA certificate: %w", err)
	}
	authority.Certificate = cert
	return &authority, nil
}

// SaveCert persists an issued certificate.
func (s *SQLStore) SaveCert(ctx context.Context, caName string, cert *Certificate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certificates (serial, ca_name, subject, not_after, cert_der)
		 VALUES (?, ?, ?, ?, ?)`,
		cert.Serial, caName, cert.Cert.Subject.String(), cert.Cert.NotAfter.UTC(), cert.Cert.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	return nil
}

// LoadCert retrieves an issued certificate by serial.
func (s *SQLStore) LoadCert(ctx context.Context, caName, serial string) (*Certificate, error) {
	var certDER []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT cert_der FROM certificates WHERE ca_name = ? AND serial = ?`,
		caName, serial).Scan(&certDER)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCertNotFound, serial)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored certificate: %w", err)
	}
	return &Certificate{Serial: serial, CA: caName, Cert: cert}, nil
}

// NextSerial allocates the next serial for the named CA. The single
// UPDATE ... RETURNING statement is atomic, so concurrent issuance
// never reuses a value.
func (s *SQLStore) NextSerial(ctx context.Context, caName string) (*big.Int, error) {
	var serial int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE authorities SET next_serial = next_serial + 1
		 WHERE name = ? RETURNING next_serial - 1`, caName).Scan(&serial)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCANotFound, caName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate serial: %w", err)
	}
	return big.NewInt(serial), nil
}

// ListCAs returns the names of all stored authorities.
func (s *SQLStore) ListCAs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM authorities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list CAs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan CA name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Children returns the names of CAs whose parent is the named CA.
func (s *SQLStore) Children(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM authorities WHERE parent = ? ORDER BY name`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("failed to scan CA name: %w", err)
		}
		names = append(names, child)
	}
	return names, rows.Err()
}

// isUniqueViolation reports whether an insert hit a primary key constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// String lists are stored as a single newline-separated column.
func joinLines(values []string) string {
	return strings.Join(values, "\n")
}

func splitLines(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}
