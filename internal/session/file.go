package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/felixgeelhaar/botctl/internal/log"
)

// FileBackend stores all keys of one scope in a single JSON document.
// The document is rewritten atomically on every change and is readable
// only by the owner. A document that cannot be decoded is moved aside to
// <path>.corrupt and treated as empty.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend returns a backend persisting to <dir>/<scope>.json.
func NewFileBackend(dir, scope string) *FileBackend {
	return &FileBackend{path: filepath.Join(dir, scope+".json")}
}

// Path returns the document location.
func (f *FileBackend) Path() string { return f.path }

// Load reads key from disk.
func (f *FileBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Save writes key to disk.
func (f *FileBackend) Save(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[key] = string(value)
	return f.write(doc)
}

// Delete removes key. The document is removed once it is empty.
func (f *FileBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	if len(doc) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", f.path, err)
		}
		return nil
	}
	return f.write(doc)
}

func (f *FileBackend) read() (map[string]string, error) {
	doc := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		f.quarantine(err)
		return make(map[string]string), nil
	}
	return doc, nil
}

func (f *FileBackend) quarantine(cause error) {
	aside := f.path + ".corrupt"
	logger := log.DefaultLogger().With("path", f.path, "error", cause.Error())
	if err := os.Rename(f.path, aside); err != nil {
		logger.Warn("ignoring unreadable session file", "rename_error", err.Error())
		return
	}
	logger.Warn("moved unreadable session file aside", "moved_to", aside)
}

func (f *FileBackend) write(doc map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err == nil {
		return nil
	}

	defer os.Remove(tmp)
	if runtime.GOOS == "windows" {
		_ = os.Remove(f.path)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}
