package sessionstore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	domainerror "github.com/fixora/sessionkit/domain/error"
	"github.com/fixora/sessionkit/domain/valueobject"
)

// FileStore persists the token pair as a single JSON record in the user's
// runtime directory. Writes are whole-record via temp file + rename, so a
// reader never observes a partial pair. With a key configured, the record is
// sealed with ChaCha20-Poly1305 before it touches disk.
type FileStore struct {
	path string
	aead cipher.AEAD
}

// NewFileStore creates a store at path. key is optional: empty means
// plaintext records, otherwise it must be a 32-byte AEAD key.
func NewFileStore(path string, key []byte) (*FileStore, error) {
	store := &FileStore{path: path}

	if len(key) > 0 {
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session encryption: %w", err)
		}
		store.aead = aead
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return store, nil
}

func (s *FileStore) Load() (*valueobject.TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domainerror.Wrap(domainerror.ErrCodeStoreRead, "failed to read session record", err)
	}

	if s.aead != nil {
		data, err = s.open(data)
		if err != nil {
			return nil, domainerror.Wrap(domainerror.ErrCodeRestoreCorrupt, "failed to unseal session record", err)
		}
	}

	var pair valueobject.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, domainerror.Wrap(domainerror.ErrCodeRestoreCorrupt, "session record is not valid JSON", err)
	}

	if !pair.Complete() {
		return nil, domainerror.New(domainerror.ErrCodeRestoreCorrupt, "session record is structurally incomplete")
	}

	return &pair, nil
}

func (s *FileStore) Save(pair *valueobject.TokenPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return domainerror.Wrap(domainerror.ErrCodeStoreWrite, "failed to encode session record", err)
	}

	if s.aead != nil {
		data, err = s.seal(data)
		if err != nil {
			return domainerror.Wrap(domainerror.ErrCodeStoreWrite, "failed to seal session record", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return domainerror.Wrap(domainerror.ErrCodeStoreWrite, "failed to write session record", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return domainerror.Wrap(domainerror.ErrCodeStoreWrite, "failed to replace session record", err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return domainerror.Wrap(domainerror.ErrCodeStoreWrite, "failed to remove session record", err)
	}
	return nil
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, fmt.Errorf("sealed record too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
