package secstore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

// FileStore keeps each value in its own file under dir, sealed with
// nacl/secretbox. The nonce is prepended to the ciphertext.
type FileStore struct {
	mu  sync.Mutex
	dir string
	key [32]byte
}

// NewFile creates a FileStore rooted at dir. The sealing key must be exactly
// 32 bytes.
func NewFile(dir string, key []byte) (*FileStore, error) {
	if len(key) != 32 {
		return nil, ErrBadKey
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("secstore: create dir: %w", err)
	}
	fs := &FileStore{dir: dir}
	copy(fs.key[:], key)
	return fs, nil
}

func (f *FileStore) path(key string) string {
	// Keys are hashed so arbitrary storage keys cannot escape dir.
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".bin")
}

func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secstore: read: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("secstore: sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &f.key)
	if !ok {
		return "", fmt.Errorf("secstore: open sealed value failed")
	}
	return string(plain), nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("secstore: nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &f.key)
	if err := os.WriteFile(f.path(key), sealed, 0o600); err != nil {
		return fmt.Errorf("secstore: write: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("secstore: delete: %w", err)
	}
	return nil
}
