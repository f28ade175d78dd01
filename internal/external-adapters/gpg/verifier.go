package gpg

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Verifier checks armored detached signatures against a local public keyring.
// Unlike keyserver-backed setups, verification here is fully offline: the
// operator supplies the trusted keys explicitly.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier reads an armored public keyring from a file
func NewVerifier(keyringPath string) (*Verifier, error) {
	//nolint:gosec // G304: keyring path is given by the operator
	f, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring contains no keys: %s", keyringPath)
	}

	return &Verifier{keyring: keyring}, nil
}

// VerifyDetached checks the armored detached signature at sigPath over the
// file at dataPath
func (v *Verifier) VerifyDetached(dataPath, sigPath string) error {
	//nolint:gosec // G304: data path names the manifest being verified
	data, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dataPath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	//nolint:gosec // G304: signature path is derived from the manifest path
	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature %s: %w", sigPath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(v.keyring, data, sig, nil); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
