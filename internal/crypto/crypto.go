// Package crypto manages the age key used to encrypt cloud backups.
package crypto

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Encryptor encrypts and decrypts backup payloads with an age X25519 key
type Encryptor struct {
	keyPath string
}

// NewEncryptor creates a new encryptor
func NewEncryptor(keyPath string) *Encryptor {
	return &Encryptor{
		keyPath: keyPath,
	}
}

// GenerateKey generates a new age key and saves it to the key path
func (e *Encryptor) GenerateKey() error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	keyFile, err := os.OpenFile(e.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFile.Close()

	if _, err := fmt.Fprintf(keyFile, "# public key: %s\n", identity.Recipient()); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if _, err := fmt.Fprintf(keyFile, "%s\n", identity); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	return nil
}

// KeyExists checks if the encryption key exists
func (e *Encryptor) KeyExists() bool {
	_, err := os.Stat(e.keyPath)
	return err == nil
}

// EncryptBytes encrypts plaintext to an ASCII-armored age message
func (e *Encryptor) EncryptBytes(plaintext []byte) ([]byte, error) {
	recipient, err := e.loadRecipient()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize armor: %w", err)
	}

	return buf.Bytes(), nil
}

// DecryptBytes decrypts an armored age message produced by EncryptBytes
func (e *Encryptor) DecryptBytes(ciphertext []byte) ([]byte, error) {
	identity, err := e.loadIdentity()
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(ciphertext)), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted content: %w", err)
	}

	return plaintext, nil
}

// IsArmored reports whether data looks like an armored age message
func IsArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header))
}

// loadIdentity loads the age identity from the key file
func (e *Encryptor) loadIdentity() (age.Identity, error) {
	keyFile, err := os.Open(e.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	identities, err := age.ParseIdentities(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identities: %w", err)
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in key file")
	}

	return identities[0], nil
}

// loadRecipient loads the age recipient from the key file
func (e *Encryptor) loadRecipient() (age.Recipient, error) {
	identity, err := e.loadIdentity()
	if err != nil {
		return nil, err
	}

	x25519Identity, ok := identity.(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("key is not an X25519 identity")
	}

	return x25519Identity.Recipient(), nil
}
