package secstore

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPermSecure  = 0700
	filePermSecure = 0600
)

// fileStore is the protected-file fallback: one base64-encoded file per
// id under an owner-only keys directory. All file operations go through
// an os.Root opened on that directory, so no id can reach outside it.
type fileStore struct {
	root *os.Root
}

func newFileStore(dir string) (*fileStore, error) {
	keysDir := filepath.Join(dir, "keys")
	if err := os.MkdirAll(keysDir, dirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	root, err := os.OpenRoot(keysDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open key directory: %w", err)
	}
	return &fileStore{root: root}, nil
}

func (f *fileStore) fileName(id string) string {
	// Ids are fixed program constants, but keep path characters out anyway
	id = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.':
			return '_'
		}
		return r
	}, id)
	return id + ".key"
}

func (f *fileStore) StoreKey(id string, data []byte) bool {
	file, err := f.root.OpenFile(f.fileName(id), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermSecure)
	if err != nil {
		return false
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	_, werr := file.Write([]byte(encoded))
	cerr := file.Close()
	return werr == nil && cerr == nil
}

func (f *fileStore) RetrieveKey(id string) []byte {
	file, err := f.root.Open(f.fileName(id))
	if err != nil {
		return nil
	}
	defer file.Close()

	encoded, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil
	}
	return data
}

func (f *fileStore) DeleteKey(id string) bool {
	err := f.root.Remove(f.fileName(id))
	return err == nil || os.IsNotExist(err)
}

func (f *fileStore) KeyExists(id string) bool {
	_, err := f.root.Stat(f.fileName(id))
	return err == nil
}
