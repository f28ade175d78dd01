// Package gpg provides OpenPGP signing and verification for bundle manifests.
// Uses ProtonMail's go-crypto, a maintained fork of golang.org/x/crypto/openpgp.
// This is in external-adapters to isolate the external dependency.
package gpg

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces armored detached signatures with a local private keyring
type Signer struct {
	keyring openpgp.EntityList
}

// NewSigner reads an armored private keyring from a file.
// The first entity carrying a private key is used for signing.
func NewSigner(keyringPath string) (*Signer, error) {
	//nolint:gosec // G304: keyring path is given by the operator
	f, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open signing keyring: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing keyring: %w", err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("signing keyring contains no keys: %s", keyringPath)
	}

	return &Signer{keyring: keyring}, nil
}

// SignDetached writes an armored detached signature of dataPath to sigPath
func (s *Signer) SignDetached(dataPath, sigPath string) error {
	signer := s.signingEntity()
	if signer == nil {
		return fmt.Errorf("no private key available for signing")
	}

	//nolint:gosec // G304: data path names the manifest being signed
	data, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dataPath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	//nolint:gosec // G304: signature is written next to the manifest
	out, err := os.Create(sigPath)
	if err != nil {
		return fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, signer, data, nil); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to sign %s: %w", dataPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close signature file: %w", err)
	}
	return nil
}

func (s *Signer) signingEntity() *openpgp.Entity {
	for _, e := range s.keyring {
		if e.PrivateKey != nil {
			return e
		}
	}
	return nil
}
