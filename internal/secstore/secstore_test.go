package secstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()

	env, err := newEnvelope(dir)
	if err != nil {
		t.Fatalf("newEnvelope failed: %v", err)
	}
	files, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("newFileStore failed: %v", err)
	}
	return &sealedStore{backend: files, env: env}, dir
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	data := []byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0x7F}
	if !store.StoreKey("unlock_k1", data) {
		t.Fatal("StoreKey failed")
	}

	got := store.RetrieveKey("unlock_k1")
	if !bytes.Equal(got, data) {
		t.Errorf("RetrieveKey returned %x, want %x", got, data)
	}
}

func TestRetrieveMissingKey(t *testing.T) {
	store, _ := newTestStore(t)
	if got := store.RetrieveKey("nonexistent"); got != nil {
		t.Errorf("expected nil for missing key, got %x", got)
	}
	if store.KeyExists("nonexistent") {
		t.Error("KeyExists true for missing key")
	}
}

func TestDeleteKey(t *testing.T) {
	store, _ := newTestStore(t)

	store.StoreKey("unlock_credentials", []byte("blob"))
	if !store.DeleteKey("unlock_credentials") {
		t.Error("DeleteKey failed for existing key")
	}
	if store.KeyExists("unlock_credentials") {
		t.Error("key still exists after delete")
	}

	// Delete of an absent key is still success
	if !store.DeleteKey("unlock_credentials") {
		t.Error("DeleteKey not idempotent")
	}
}

func TestPersistedValueIsSealed(t *testing.T) {
	store, dir := newTestStore(t)

	secret := []byte("supersecretkeymaterial")
	store.StoreKey("unlock_k1", secret)

	raw, err := os.ReadFile(filepath.Join(dir, "keys", "unlock_k1.key"))
	if err != nil {
		t.Fatalf("failed to read backing file: %v", err)
	}
	if bytes.Contains(raw, secret) {
		t.Error("plaintext key material found in backing file")
	}
}

func TestEnvelopeBoundToHostSalt(t *testing.T) {
	store, dir := newTestStore(t)
	store.StoreKey("unlock_k1", []byte("material"))

	// A store opened with a different host salt must not decrypt the value
	if err := os.Remove(filepath.Join(dir, hostSaltFile)); err != nil {
		t.Fatalf("failed to remove host salt: %v", err)
	}
	env2, err := newEnvelope(dir)
	if err != nil {
		t.Fatalf("newEnvelope failed: %v", err)
	}
	files, _ := newFileStore(dir)
	other := &sealedStore{backend: files, env: env2}

	if got := other.RetrieveKey("unlock_k1"); got != nil {
		t.Errorf("retrieve with wrong envelope key returned data: %x", got)
	}
}

func TestEnvelopeSealOpen(t *testing.T) {
	env, err := newEnvelope(t.TempDir())
	if err != nil {
		t.Fatalf("newEnvelope failed: %v", err)
	}

	sealed, err := env.seal([]byte("payload"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	got, err := env.open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}

	// Tampered ciphertext fails authentication
	sealed[len(sealed)-1] ^= 0x01
	if _, err := env.open(sealed); !errors.Is(err, errEnvelopeOpen) {
		t.Errorf("expected errEnvelopeOpen, got %v", err)
	}
}

func TestKeyIdCannotEscapeDirectory(t *testing.T) {
	store, dir := newTestStore(t)

	outside := filepath.Join(filepath.Dir(dir), "escape.key")
	store.StoreKey("../escape", []byte("material"))

	if _, err := os.Stat(outside); err == nil {
		t.Fatal("key id with traversal characters wrote outside the key directory")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "keys"))
	if err != nil {
		t.Fatalf("failed to list key directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one sanitized key file, found %d entries", len(entries))
	}
}

func TestKeyFilePermissions(t *testing.T) {
	store, dir := newTestStore(t)
	store.StoreKey("unlock_k1", []byte("material"))

	info, err := os.Stat(filepath.Join(dir, "keys", "unlock_k1.key"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePermSecure {
		t.Errorf("key file permission %o, want %o", perm, filePermSecure)
	}
}
