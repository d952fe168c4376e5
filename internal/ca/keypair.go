package ca

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// SigningKey holds the CA's private signing key. It is loaded once at startup
// and shared read-only by all signing operations.
type SigningKey struct {
	Signer ssh.Signer
}

// LoadOrGenerateSigningKey loads the CA private key from privatePath, or
// generates a new ed25519 key there on first startup.
func LoadOrGenerateSigningKey(privatePath, publicPath string) (*SigningKey, error) {
	if _, err := os.Stat(privatePath); err == nil {
		return loadSigningKey(privatePath)
	}

	return generateSigningKey(privatePath, publicPath)
}

// loadSigningKey loads an existing private key from file
func loadSigningKey(privatePath string) (*SigningKey, error) {
	privateBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(privateBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA private key: %w", err)
	}

	return &SigningKey{Signer: signer}, nil
}

// generateSigningKey generates a new ed25519 CA key pair
func generateSigningKey(privatePath, publicPath string) (*SigningKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH signer: %w", err)
	}

	key := &SigningKey{Signer: signer}

	if err := saveSigningKey(priv, key, privatePath, publicPath); err != nil {
		return nil, fmt.Errorf("failed to save CA key pair: %w", err)
	}

	return key, nil
}

// saveSigningKey writes the generated key pair to disk
func saveSigningKey(priv ed25519.PrivateKey, key *SigningKey, privatePath, publicPath string) error {
	if err := os.MkdirAll(filepath.Dir(privatePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for private key: %w", err)
	}

	privateBlock, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(privatePath, pem.EncodeToMemory(privateBlock), 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	if publicPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(publicPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for public key: %w", err)
	}

	publicBytes := ssh.MarshalAuthorizedKey(key.Signer.PublicKey())

	if err := os.WriteFile(publicPath, publicBytes, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

// PublicKey returns the CA public key
func (k *SigningKey) PublicKey() ssh.PublicKey {
	return k.Signer.PublicKey()
}

// PublicKeyString returns the CA public key in authorized_keys format
func (k *SigningKey) PublicKeyString() string {
	return string(ssh.MarshalAuthorizedKey(k.Signer.PublicKey()))
}
