package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/keys"
)

// keyCmd is the parent command for key operations.
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Key pair management",
	Long: `Generate private keys.

Examples:
  # ECDSA P-384 key
  pca key gen --algorithm ECDSA --curve SECP384R1 --out server.key

  # RSA-4096 key encrypted with a passphrase
  pca key gen --algorithm RSA --bits 4096 --password secret --out ca.key`,
}

var keyGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a private key",
	Long: `Generate a private key.

RSA and DSA key sizes must be a power of two at or above the configured
minimum (DSA additionally accepts 1024 and 3072). ECDSA keys use a named
curve: SECP256R1, SECP384R1 or SECP521R1 (NIST aliases P-256, P-384 and
P-521 are recognized).`,
	RunE: runKeyGen,
}

var (
	keyGenAlgorithm string
	keyGenBits      int
	keyGenCurve     string
	keyGenPassword  string
	keyGenOut       string
)

func init() {
	flags := keyGenCmd.Flags()
	flags.StringVar(&keyGenAlgorithm, "algorithm", "ECDSA", "Key algorithm: RSA, DSA or ECDSA")
	flags.IntVar(&keyGenBits, "bits", 0, "Key size for RSA/DSA keys")
	flags.StringVar(&keyGenCurve, "curve", "SECP256R1", "Named curve for ECDSA keys")
	flags.StringVar(&keyGenPassword, "password", "", "Passphrase to encrypt the key")
	flags.StringVar(&keyGenOut, "out", "", "Write the key PEM to this file (default: stdout)")

	keyCmd.AddCommand(keyGenCmd)
}

func runKeyGen(cmd *cobra.Command, args []string) error {
	bits := keyGenBits
	if bits == 0 && keys.Algorithm(keyGenAlgorithm) != keys.AlgECDSA {
		bits = cfg.MinKeyBits
	}
	material, err := keys.Generate(keys.Spec{
		Algorithm: keys.Algorithm(keyGenAlgorithm),
		Bits:      bits,
		Curve:     keyGenCurve,
		MinBits:   cfg.MinKeyBits,
	})
	if err != nil {
		return err
	}

	pemData, err := material.EncodePEM([]byte(keyGenPassword))
	if err != nil {
		return err
	}

	if keyGenOut != "" {
		if err := os.WriteFile(keyGenOut, pemData, 0600); err != nil {
			return fmt.Errorf("failed to write key: %w", err)
		}
		fmt.Printf("Generated %s key: %s\n", material.Algorithm, keyGenOut)
		return nil
	}

	fmt.Print(string(pemData))
	return nil
}
