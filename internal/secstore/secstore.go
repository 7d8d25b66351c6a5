package secstore

import (
	"github.com/zalando/go-keyring"
)

// Store is the uniform opaque-blob keystore interface. Operations are best
// effort: callers treat a false/empty result as "not there" and fail closed.
// Ids are stable strings; the OS serializes cross-process access per id, so
// no locking happens at this layer.
type Store interface {
	StoreKey(id string, data []byte) bool
	RetrieveKey(id string) []byte
	DeleteKey(id string) bool
	KeyExists(id string) bool
}

// Open selects a backend and wraps it in the machine envelope. The OS
// keyring is preferred; when it is unreachable (headless session, no
// secret service) key material falls back to owner-only files under dir.
func Open(dir string) (Store, error) {
	env, err := newEnvelope(dir)
	if err != nil {
		return nil, err
	}

	if keyringAvailable() {
		return &sealedStore{backend: &keyringStore{}, env: env}, nil
	}

	files, err := newFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &sealedStore{backend: files, env: env}, nil
}

// keyringAvailable probes the OS keyring with a throwaway entry
func keyringAvailable() bool {
	const probe = "availability_probe"
	if err := keyring.Set(serviceName, probe, "1"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, probe)
	return true
}

// sealedStore applies the machine envelope around any backend, so the
// persisted value alone is useless without the host salt file.
type sealedStore struct {
	backend Store
	env     *envelope
}

func (s *sealedStore) StoreKey(id string, data []byte) bool {
	sealed, err := s.env.seal(data)
	if err != nil {
		return false
	}
	return s.backend.StoreKey(id, sealed)
}

func (s *sealedStore) RetrieveKey(id string) []byte {
	sealed := s.backend.RetrieveKey(id)
	if len(sealed) == 0 {
		return nil
	}
	data, err := s.env.open(sealed)
	if err != nil {
		return nil
	}
	return data
}

func (s *sealedStore) DeleteKey(id string) bool {
	return s.backend.DeleteKey(id)
}

func (s *sealedStore) KeyExists(id string) bool {
	return s.backend.KeyExists(id)
}
