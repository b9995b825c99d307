package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirStore serves blobs from a local directory. Blob ids are paths relative
// to the root and destinations are subdirectories.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

func (d *DirStore) resolve(rel string) (string, error) {
	clean := filepath.Clean("/" + rel)
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid blob path: %s", rel)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DirStore) Fetch(ctx context.Context, blobID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.resolve(blobID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, blobID)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (d *DirStore) Store(ctx context.Context, artifact Artifact, destinationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.ToSlash(filepath.Join(destinationID, artifact.Name))
	path, err := d.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+artifact.Name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return rel, nil
}
