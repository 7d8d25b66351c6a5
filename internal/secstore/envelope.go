package secstore

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/remotectl/unlockd/internal/crypto"
)

const (
	hostSaltFile = "machine.salt"
	hostSaltSize = 32
	envelopeInfo = "unlockd secstore envelope v1"
)

var errEnvelopeOpen = errors.New("envelope authentication failed")

// envelope seals blobs under a machine-scoped key before they reach a
// backend. The key is derived from a random per-host salt file, so a copy
// of the backend's persistence (keyring export, stolen key files) cannot
// be decrypted on another machine or without the salt.
type envelope struct {
	key []byte
}

func newEnvelope(dir string) (*envelope, error) {
	salt, err := loadOrCreateHostSalt(dir)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(salt)

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, salt, nil, []byte(envelopeInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive envelope key: %w", err)
	}

	_ = crypto.LockMemory(key)
	return &envelope{key: key}, nil
}

func loadOrCreateHostSalt(dir string) ([]byte, error) {
	if err := os.MkdirAll(dir, dirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, hostSaltFile)
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == hostSaltSize {
		return salt, nil
	}

	salt = make([]byte, hostSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate host salt: %w", err)
	}
	if err := os.WriteFile(path, salt, filePermSecure); err != nil {
		return nil, fmt.Errorf("failed to write host salt: %w", err)
	}
	return salt, nil
}

// seal encrypts data with XChaCha20-Poly1305, nonce prepended
func (e *envelope) seal(data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(nonce)+len(data)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

func (e *envelope) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, errEnvelopeOpen
	}

	nonce := sealed[:chacha20poly1305.NonceSizeX]
	ct := sealed[chacha20poly1305.NonceSizeX:]

	data, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errEnvelopeOpen
	}
	return data, nil
}
