package vault

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/remotectl/unlockd/internal/crypto"
	"github.com/remotectl/unlockd/internal/secstore"
)

// SecureStorage ids of the two vault halves
const (
	CredentialsKeyID = "unlock_credentials"
	K1KeyID          = "unlock_k1"
)

const (
	dirPermSecure  = 0700
	filePermSecure = 0600
)

var (
	ErrIncomplete = errors.New("credential vault incomplete")
	ErrCorrupt    = errors.New("credential vault corrupt")
	ErrEmpty      = errors.New("username and password must not be empty")
)

// Credentials is one decrypted credential set. Password stays a byte
// slice so the caller can wipe it after use.
type Credentials struct {
	Username string
	Password []byte
	Domain   string
}

// Wipe zeroes the password buffer
func (c *Credentials) Wipe() {
	crypto.Wipe(c.Password)
}

// Vault stores one credential pair using split-key envelope encryption:
// k1 lives only in secure storage, k2 only in an owner-only local file,
// and the encrypted payload next to k1. No single storage compromise
// yields the credentials.
type Vault struct {
	mu     sync.Mutex
	store  secstore.Store
	k2Path string
}

func New(store secstore.Store, k2Path string) *Vault {
	return &Vault{store: store, k2Path: k2Path}
}

// StoreUnlockCredentials encrypts and persists one username/password pair.
// On any mid-sequence failure every artifact already written is deleted so
// a half-written vault never survives, and every intermediate secret
// buffer is wiped.
func (v *Vault) StoreUnlockCredentials(username string, password []byte) error {
	if username == "" || len(password) == 0 {
		return ErrEmpty
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Payload format: username NUL password
	payload := make([]byte, 0, len(username)+1+len(password))
	payload = append(payload, username...)
	payload = append(payload, 0)
	payload = append(payload, password...)
	defer crypto.Wipe(payload)

	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)

	k1, k2, err := crypto.SplitKey(key)
	if err != nil {
		return err
	}
	defer crypto.Wipe(k1)
	defer crypto.Wipe(k2)

	blob, err := crypto.Encrypt(key, payload)
	if err != nil {
		return err
	}
	crypto.Wipe(key)

	if err := v.writeK2(k2); err != nil {
		return err
	}
	crypto.Wipe(k2)

	ok := v.store.StoreKey(K1KeyID, k1) &&
		v.store.StoreKey(CredentialsKeyID, blob.Serialize())
	crypto.Wipe(k1)

	if !ok {
		v.removeArtifacts()
		return fmt.Errorf("failed to persist credential vault")
	}

	return nil
}

// HasStoredCredentials reports whether both secure-storage halves are
// present. It does not validate content.
func (v *Vault) HasStoredCredentials() bool {
	return v.store.KeyExists(CredentialsKeyID) && v.store.KeyExists(K1KeyID)
}

// ClearStoredCredentials deletes every vault artifact. Idempotent and
// best effort: it always succeeds.
func (v *Vault) ClearStoredCredentials() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removeArtifacts()
}

// FetchCredentials recombines the split key, decrypts the stored payload
// and returns the credential set. It fails closed: any missing or
// malformed artifact yields an error and never partial data.
func (v *Vault) FetchCredentials() (*Credentials, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.store.KeyExists(CredentialsKeyID) || !v.store.KeyExists(K1KeyID) {
		return nil, ErrIncomplete
	}

	k2, err := os.ReadFile(v.k2Path)
	if err != nil {
		return nil, ErrIncomplete
	}
	defer crypto.Wipe(k2)
	if len(k2) != crypto.KeySize {
		return nil, ErrIncomplete
	}

	k1 := v.store.RetrieveKey(K1KeyID)
	if k1 == nil {
		return nil, ErrIncomplete
	}
	defer crypto.Wipe(k1)

	serialized := v.store.RetrieveKey(CredentialsKeyID)
	if serialized == nil {
		return nil, ErrIncomplete
	}

	key, err := crypto.CombineKey(k1, k2)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	blob, err := crypto.Deserialize(serialized)
	if err != nil {
		return nil, err
	}

	payload, err := crypto.Decrypt(key, blob)
	crypto.Wipe(key)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(payload)

	sep := bytes.IndexByte(payload, 0)
	if sep <= 0 || sep == len(payload)-1 {
		return nil, ErrCorrupt
	}

	username := string(payload[:sep])
	password := append([]byte(nil), payload[sep+1:]...)

	creds := &Credentials{Password: password}
	creds.Username, creds.Domain = inferDomain(username)
	return creds, nil
}

func (v *Vault) writeK2(k2 []byte) error {
	if err := os.MkdirAll(filepath.Dir(v.k2Path), dirPermSecure); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(v.k2Path, k2, filePermSecure); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

func (v *Vault) removeArtifacts() {
	v.store.DeleteKey(CredentialsKeyID)
	v.store.DeleteKey(K1KeyID)
	os.Remove(v.k2Path)
}

// inferDomain derives the logon domain from the username shape:
// DOMAIN\user carries its own domain, user@domain stays a UPN with an
// empty domain, anything else is a local account on this machine.
func inferDomain(username string) (user, domain string) {
	if i := strings.IndexByte(username, '\\'); i >= 0 {
		return username[i+1:], username[:i]
	}
	if strings.ContainsRune(username, '@') {
		return username, ""
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "."
	}
	return username, host
}
