// Package blob stores large snapshot file contents outside the event
// log. Contents are content-addressed by SHA-256, so identical files
// across snapshots are stored once.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/tryout/pkg/metrics"
)

// Store persists opaque byte contents keyed by digest.
type Store interface {
	// Put writes content and returns its reference. Writing the same
	// content twice returns the same reference.
	Put(content []byte) (Ref, error)

	// Get returns the content for a reference.
	Get(ref Ref) ([]byte, error)
}

// Ref identifies stored content. The digest is hex-encoded SHA-256.
type Ref struct {
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// FSStore implements Store on the local filesystem. Blobs live under
// root/<first two digest chars>/<digest>.
type FSStore struct {
	root string
}

// NewFSStore creates the store directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(digest string) string {
	return filepath.Join(s.root, digest[:2], digest)
}

// Put writes content under its digest. Existing blobs are left alone.
func (s *FSStore) Put(content []byte) (Ref, error) {
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	ref := Ref{Digest: digest, Size: int64(len(content))}

	p := s.path(digest)
	if _, err := os.Stat(p); err == nil {
		return ref, nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Ref{}, fmt.Errorf("create blob dir: %w", err)
	}

	// Write to a temp file then rename so readers never observe a
	// partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return Ref{}, fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Ref{}, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Ref{}, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return Ref{}, fmt.Errorf("finalize blob: %w", err)
	}

	metrics.RecordBlobUpload()
	return ref, nil
}

// Get reads the content for a reference.
func (s *FSStore) Get(ref Ref) ([]byte, error) {
	if len(ref.Digest) < 2 {
		return nil, ErrInvalidRef
	}
	content, err := os.ReadFile(s.path(ref.Digest))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return content, nil
}
