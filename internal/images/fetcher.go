package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/lehigh-university-libraries/woundlabel/internal/blob"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// maxImageBytes bounds a single downloaded image
const maxImageBytes = 25 * 1024 * 1024

// Content is a fetched catalog image
type Content struct {
	ImageID     string
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// Fetcher retrieves catalog images from the blob store and keeps recently
// served images in memory so re-rendering a page does not refetch them.
type Fetcher struct {
	store blob.Store
	cache *cache.Cache
}

// NewFetcher creates a fetcher; ttl <= 0 disables caching
func NewFetcher(store blob.Store, ttl time.Duration) *Fetcher {
	f := &Fetcher{store: store}
	if ttl > 0 {
		f.cache = cache.New(ttl, 2*ttl)
	}
	return f
}

// Fetch downloads the image referenced by img
func (f *Fetcher) Fetch(ctx context.Context, img models.Image) (*Content, error) {
	if f.cache != nil {
		if x, found := f.cache.Get(img.BlobRef); found {
			return x.(*Content), nil
		}
	}

	start := time.Now()
	rc, err := f.store.Fetch(ctx, img.BlobRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", img.ID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image %s too large (max %d bytes)", img.ID, maxImageBytes)
	}

	content := &Content{
		ImageID:     img.ID,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}

	width, height, err := dimensions(data)
	if err != nil {
		slog.Warn("Failed to get image dimensions", "image", img.ID, "error", err)
	} else {
		content.Width, content.Height = width, height
	}

	slog.Info("Image fetched", "image", img.ID, "bytes", len(data), "duration", time.Since(start))

	if f.cache != nil {
		f.cache.Set(img.BlobRef, content, cache.DefaultExpiration)
	}
	return content, nil
}

func dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
