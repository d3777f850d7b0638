package ca

import (
	"encoding/pem"
	"errors"
	"testing"
)

func TestU_DecodeCSR_Formats(t *testing.T) {
	pemCSR := makeCSR(t)
	block, _ := pem.Decode(pemCSR)

	tests := []struct {
		name    string
		data    []byte
		format  string
		wantErr error
	}{
		{"[Unit] DecodeCSR: default is PEM", pemCSR, "", nil},
		{"[Unit] DecodeCSR: explicit PEM", pemCSR, "PEM", nil},
		{"[Unit] DecodeCSR: lowercase pem", pemCSR, "pem", nil},
		{"[Unit] DecodeCSR: DER", block.Bytes, "DER", nil},
		{"[Unit] DecodeCSR: unknown format", pemCSR, "BASE32", ErrUnknownCSRFormat},
		{"[Unit] DecodeCSR: garbage PEM", []byte("not a csr"), "PEM", ErrInvalidCSR},
		{"[Unit] DecodeCSR: garbage DER", []byte("not a csr"), "DER", ErrInvalidCSR},
		{"[Unit] DecodeCSR: wrong PEM block type", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: block.Bytes}), "PEM", ErrInvalidCSR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csr, err := DecodeCSR(tt.data, tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeCSR() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCSR() error = %v", err)
			}
			if csr.Subject.CommonName != "csr-fallback" {
				t.Errorf("CN = %q", csr.Subject.CommonName)
			}
		})
	}
}
