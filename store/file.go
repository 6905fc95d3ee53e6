package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Key segments are restricted to a filesystem-safe charset so keys can map
// directly onto paths.
var keySegmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore persists each key as a JSON file under a data directory. A key
// such as "todos/alice" becomes <dir>/todos/alice.json. Writes go to a
// temporary file first and are renamed into place, so readers never observe
// a partial value. A lock file guards against concurrent processes sharing
// the directory; goroutines within one process are serialized by a mutex.
type FileStore struct {
	dir      string
	mu       sync.Mutex
	fileLock *flock.Flock
}

// NewFileStore opens (creating if needed) a file store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	// The lock file is separate from the data files because the data files
	// are replaced by rename on every write.
	return &FileStore{
		dir:      dir,
		fileLock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("store: empty key")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." || !keySegmentPattern.MatchString(segment) {
			return fmt.Errorf("store: invalid key %q", key)
		}
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json")
}

// acquireLock takes the cross-process file lock, retrying until ctx expires.
func (s *FileStore) acquireLock(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("store lock held by another process")
	}
	return nil
}

func (s *FileStore) releaseLock() {
	_ = s.fileLock.Unlock()
}

// Get reads the value stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer s.releaseLock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put stores value under key. The write is atomic: a crash mid-write leaves
// the previous value intact.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.releaseLock()

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	return nil
}

// Close releases the lock file handle.
func (s *FileStore) Close() error {
	return s.fileLock.Close()
}
