// Package blob talks to the remote store holding source images and exported tables.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// Artifact is a serialized file to push to the store
type Artifact struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Store is the remote blob collaborator. Both operations are network calls in
// production; failures are returned to the caller and never retried here.
type Store interface {
	// Fetch opens the blob identified by blobID
	Fetch(ctx context.Context, blobID string) (io.ReadCloser, error)
	// Store writes the artifact under destinationID, replacing an existing
	// artifact of the same name, and returns the remote id.
	Store(ctx context.Context, artifact Artifact, destinationID string) (string, error)
}

// Config selects and configures a backend
type Config struct {
	Backend         string
	Dir             string
	CredentialsFile string
	CredentialsJSON string
}

// Open returns the backend named by cfg.Backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "dir":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("blob.dir is required for the dir backend")
		}
		return NewDirStore(cfg.Dir), nil
	case "drive":
		return NewDriveStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s (supported: dir, drive)", cfg.Backend)
	}
}
