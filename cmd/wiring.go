package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/woundlabel/internal/blob"
	"github.com/lehigh-university-libraries/woundlabel/internal/config"
	"github.com/lehigh-university-libraries/woundlabel/internal/export"
	"github.com/lehigh-university-libraries/woundlabel/internal/labels"
)

func openLabelStore(ctx context.Context, cfg *config.Config) (labels.Store, error) {
	store, err := labels.Open(ctx, cfg.Labels.Driver, cfg.Labels.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label store: %w", err)
	}
	return store, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	store, err := blob.Open(ctx, blob.Config{
		Backend:         cfg.Blob.Backend,
		Dir:             cfg.Blob.Dir,
		CredentialsFile: cfg.Blob.CredentialsFile,
		CredentialsJSON: cfg.Blob.CredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return store, nil
}

func newExporter(store blob.Store, cfg *config.Config) *export.Exporter {
	return export.New(store, export.Options{
		Destination: cfg.Export.Destination,
		Format:      cfg.Export.Format,
		IncludeRaw:  cfg.Export.IncludeRaw,
	})
}
