package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveStore keeps blobs in Google Drive. Blob ids are Drive file ids and
// destinations are folder ids.
type DriveStore struct {
	files *drive.FilesService
}

// NewDriveStore authenticates with a service account and returns a store.
// Extra client options (endpoint, http client) are appended last.
func NewDriveStore(ctx context.Context, cfg Config, opts ...option.ClientOption) (*DriveStore, error) {
	clientOpts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	srv, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveStore{files: srv.Files}, nil
}

func (d *DriveStore) Fetch(ctx context.Context, blobID string) (io.ReadCloser, error) {
	resp, err := d.files.Get(blobID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, blobID)
		}
		return nil, fmt.Errorf("failed to download %s from drive: %w", blobID, err)
	}
	return resp.Body, nil
}

func (d *DriveStore) Store(ctx context.Context, artifact Artifact, destinationID string) (string, error) {
	existing, err := d.findByName(ctx, artifact.Name, destinationID)
	if err != nil {
		return "", err
	}

	media := googleapi.ContentType(artifact.MIMEType)
	if existing != "" {
		f, err := d.files.Update(existing, &drive.File{}).
			Media(bytes.NewReader(artifact.Data), media).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("failed to update %s on drive: %w", artifact.Name, err)
		}
		slog.Debug("Drive file updated", "name", artifact.Name, "id", f.Id)
		return f.Id, nil
	}

	meta := &drive.File{Name: artifact.Name}
	if destinationID != "" {
		meta.Parents = []string{destinationID}
	}
	f, err := d.files.Create(meta).
		Media(bytes.NewReader(artifact.Data), media).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to drive: %w", artifact.Name, err)
	}
	slog.Debug("Drive file created", "name", artifact.Name, "id", f.Id)
	return f.Id, nil
}

func (d *DriveStore) findByName(ctx context.Context, name, folderID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}
	list, err := d.files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search drive for %s: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
