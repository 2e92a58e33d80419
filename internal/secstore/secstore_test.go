package secstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get("k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := m.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func testKey(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	fs, err := NewFile(t.TempDir(), testKey(1))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := fs.Set("tienda.session", `{"user":{"id":"1"},"token":"abc"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := fs.Get("tienda.session")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"user":{"id":"1"},"token":"abc"}` {
		t.Fatalf("Get = %q", got)
	}
	if err := fs.Delete("tienda.session"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fs.Get("tienda.session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// Deleting again is not an error.
	if err := fs.Delete("tienda.session"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestFileValuesSealedAtRest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs, err := NewFile(dir, testKey(2))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := fs.Set("k", "super-secret-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadDir = %v, %v", entries, err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("super-secret-token")) {
		t.Fatal("plaintext leaked to disk")
	}
}

func TestFileWrongKeyFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs, err := NewFile(dir, testKey(3))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := fs.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	other, err := NewFile(dir, testKey(4))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if _, err := other.Get("k"); err == nil {
		t.Fatal("wrong key must fail to open the sealed value")
	}
}

func TestFileCorruptValueFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs, err := NewFile(dir, testKey(5))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := fs.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	path := filepath.Join(dir, entries[0].Name())
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := fs.Get("k"); err == nil {
		t.Fatal("corrupt value must not decode")
	}
}

func TestFileRejectsShortKey(t *testing.T) {
	t.Parallel()

	if _, err := NewFile(t.TempDir(), []byte("short")); !errors.Is(err, ErrBadKey) {
		t.Fatalf("err = %v, want ErrBadKey", err)
	}
}
