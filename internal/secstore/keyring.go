package secstore

import (
	"encoding/base64"

	"github.com/zalando/go-keyring"
)

const serviceName = "unlockd"

// keyringStore persists blobs in the OS keyring: Credential Manager on
// Windows, Keychain on macOS, the freedesktop secret service on Linux.
// Values are base64-encoded because keyring entries are strings.
type keyringStore struct{}

func (k *keyringStore) StoreKey(id string, data []byte) bool {
	encoded := base64.StdEncoding.EncodeToString(data)
	return keyring.Set(serviceName, id, encoded) == nil
}

func (k *keyringStore) RetrieveKey(id string) []byte {
	encoded, err := keyring.Get(serviceName, id)
	if err != nil {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return data
}

func (k *keyringStore) DeleteKey(id string) bool {
	err := keyring.Delete(serviceName, id)
	return err == nil || err == keyring.ErrNotFound
}

func (k *keyringStore) KeyExists(id string) bool {
	_, err := keyring.Get(serviceName, id)
	return err == nil
}
