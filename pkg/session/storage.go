package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/flmelody/defender-console-go/pkg/errors"
)

// FileStorage is the durable client storage: a flat key/value JSON document
// on disk, the CLI/SDK counterpart of the browser's localStorage. Multiple
// processes may share the file; no cross-process locking is attempted and
// each process's view is authoritative until its next read, matching the
// multi-tab behavior of the original apps.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates storage backed by the given file. The parent
// directory is created lazily on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultStatePath returns the conventional location of the session state
// file for the given app kind, under the user's home directory.
func DefaultStatePath(app string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".defender", app+"-session.json")
}

func (fs *FileStorage) load() map[string]string {
	entries := map[string]string{}
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return map[string]string{}
	}
	return entries
}

func (fs *FileStorage) save(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeStorage, errors.ErrCodeStorageIO, "failed to encode session state", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(errors.ErrorTypeStorage, errors.ErrCodeStorageIO, "failed to create state directory", err)
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrorTypeStorage, errors.ErrCodeStorageIO, "failed to write session state", err)
	}
	return nil
}

// Get returns the stored value for key
func (fs *FileStorage) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	value, ok := fs.load()[key]
	return value, ok
}

// Set stores value under key
func (fs *FileStorage) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries := fs.load()
	entries[key] = value
	return fs.save(entries)
}

// Delete removes key
func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries := fs.load()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return fs.save(entries)
}

// MemoryStorage is an in-memory Storage for tests and embedded use.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: map[string]string{}}
}

// Get returns the stored value for key
func (ms *MemoryStorage) Get(key string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	value, ok := ms.entries[key]
	return value, ok
}

// Set stores value under key
func (ms *MemoryStorage) Set(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries[key] = value
	return nil
}

// Delete removes key
func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, key)
	return nil
}
