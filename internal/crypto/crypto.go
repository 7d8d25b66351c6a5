package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	KeySize   = 32 // AES-256 key size
	NonceSize = 12 // GCM nonce size
	TagSize   = 16 // GCM authentication tag size
)

var (
	ErrRNGFailure = errors.New("entropy source unavailable")
	ErrAuthFailed = errors.New("authentication failed")
	ErrMalformed  = errors.New("malformed encrypted blob")
	ErrKeySize    = errors.New("key must be 32 bytes")
)

// GenerateKey returns a fresh random AES-256 key
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRNGFailure, err)
	}
	return key, nil
}

// SplitKey splits key into two 32-byte halves such that neither half alone
// reveals anything about the key. k1 is fresh randomness, k2 = key XOR k1.
// The caller wipes key once both halves are persisted.
func SplitKey(key []byte) (k1, k2 []byte, err error) {
	if len(key) != KeySize {
		return nil, nil, ErrKeySize
	}

	k1 = make([]byte, KeySize)
	if _, err := rand.Read(k1); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRNGFailure, err)
	}

	k2 = make([]byte, KeySize)
	for i := range key {
		k2[i] = key[i] ^ k1[i]
	}

	return k1, k2, nil
}

// CombineKey is the inverse of SplitKey
func CombineKey(k1, k2 []byte) ([]byte, error) {
	if len(k1) != KeySize || len(k2) != KeySize {
		return nil, ErrKeySize
	}

	key := make([]byte, KeySize)
	for i := range key {
		key[i] = k1[i] ^ k2[i]
	}
	return key, nil
}

// Encrypt seals plaintext under key using AES-256-GCM with a fresh random
// nonce per call, so a nonce is never reused under the same key.
func Encrypt(key, plaintext []byte) (*Blob, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRNGFailure, err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	// Seal appends the tag to the ciphertext; the blob keeps them separate
	ct := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return &Blob{
		Version:    BlobVersion,
		Nonce:      nonce,
		Ciphertext: append([]byte(nil), ct...),
		Tag:        append([]byte(nil), tag...),
	}, nil
}

// Decrypt opens blob under key. On tag mismatch it returns ErrAuthFailed and
// no plaintext, partial or otherwise.
func Decrypt(key []byte, blob *Blob) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if blob == nil || len(blob.Nonce) != NonceSize || len(blob.Tag) != TagSize {
		return nil, ErrMalformed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.Tag...)

	plaintext, err := gcm.Open(nil, blob.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Wipe zeroes a secret buffer before release
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
