// Package audio persists synthesized speech under collision-free
// identifiers and serves it back by filename. The namespace is
// append-only: writers never overwrite each other because every artifact
// gets a fresh random id. No expiry is applied; cleanup is external.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound reports that no artifact exists under the given filename.
var ErrNotFound = errors.New("audio artifact not found")

// Store writes MP3 artifacts into a directory on disk.
type Store struct {
	dir string
}

// NewStore creates an artifact store rooted at dir. The directory is
// created on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes data under a fresh unique filename and returns that
// filename. Concurrent saves never collide: the name is derived from a
// random UUID, not the content.
func (s *Store) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	filename := "audio_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ".mp3"
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio artifact: %w", err)
	}
	return filename, nil
}

// Read returns the artifact bytes for filename, or ErrNotFound. Names
// containing path separators are rejected so the store never serves
// files outside its directory.
func (s *Store) Read(filename string) ([]byte, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
