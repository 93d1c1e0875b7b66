package postinit

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// Key holds the credential used to decrypt the provisioning secrets.
// Exactly one of IdentityFile or Passphrase should be non-empty.
type Key struct {
	IdentityFile string // path to an age identity file (secret key)
	Passphrase   string // scrypt passphrase (used when IdentityFile is empty)
}

// DecryptFile reads src (age-encrypted), decrypts it with k, and writes the
// plaintext to dst with the given mode (0600 when zero). Private keys and
// tokens land with owner-only permissions unless the config widens them.
func (k *Key) DecryptFile(src, dst string, mode os.FileMode) error {
	ciphertext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read ciphertext: %w", err)
	}

	identities, err := k.identities()
	if err != nil {
		return err
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read plaintext: %w", err)
	}

	if mode == 0 {
		mode = 0o600
	}
	return os.WriteFile(dst, plaintext, mode)
}

// identities returns the age identities for decryption.
func (k *Key) identities() ([]age.Identity, error) {
	if k.Passphrase != "" {
		id, err := age.NewScryptIdentity(k.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("create scrypt identity: %w", err)
		}
		return []age.Identity{id}, nil
	}
	if k.IdentityFile == "" {
		return nil, fmt.Errorf("no age identity configured; set post.secrets.identity in rig.yaml or RIG_AGE_PASSPHRASE")
	}
	f, err := os.Open(k.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identities: %w", err)
	}
	return identities, nil
}
