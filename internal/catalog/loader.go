package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// ErrNotFound is returned when an image id is not in the catalog
var ErrNotFound = errors.New("image not found in catalog")

// Catalog is the ordered, read-only list of images to label
type Catalog struct {
	images []models.Image
	index  map[string]int
}

// New builds a catalog from images in their serving order
func New(images []models.Image) *Catalog {
	c := &Catalog{
		images: images,
		index:  make(map[string]int, len(images)),
	}
	for i, img := range images {
		// ids are assumed unique; keep the first position if they are not
		if _, ok := c.index[img.ID]; !ok {
			c.index[img.ID] = i
		}
	}
	return c
}

// Len returns the number of images
func (c *Catalog) Len() int {
	return len(c.images)
}

// At returns the image at position i
func (c *Catalog) At(i int) (models.Image, bool) {
	if i < 0 || i >= len(c.images) {
		return models.Image{}, false
	}
	return c.images[i], true
}

// Lookup finds an image by id
func (c *Catalog) Lookup(id string) (models.Image, error) {
	i, ok := c.index[id]
	if !ok {
		return models.Image{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.images[i], nil
}

// Load reads a catalog file (CSV or Parquet)
func Load(path string) (*Catalog, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		images []models.Image
		err    error
	)
	switch ext {
	case ".csv":
		images, err = loadCSV(path)
	case ".parquet":
		images, err = loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s (supported: .csv, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Image catalog loaded", "path", path, "images", len(images))
	return New(images), nil
}

func loadCSV(path string) ([]models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	return decodeCSV(file)
}

func decodeCSV(r io.Reader) ([]models.Image, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	header := dec.Header()
	for _, col := range []string{"file_name", "drive_id"} {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("catalog is missing column %q", col)
		}
	}

	var images []models.Image
	for {
		var img models.Image
		if err := dec.Decode(&img); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode catalog row %d: %w", len(images)+1, err)
		}
		img.ID = strings.TrimSpace(img.ID)
		img.BlobRef = strings.TrimSpace(img.BlobRef)
		if img.ID == "" {
			slog.Warn("Skipping catalog row without file_name", "row", len(images)+1)
			continue
		}
		images = append(images, img)
	}

	return images, nil
}

func loadParquet(path string) ([]models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[models.Image](pf)
	defer reader.Close()

	var images []models.Image
	rows := make([]models.Image, 128)
	for {
		n, err := reader.Read(rows)
		for _, img := range rows[:n] {
			if img.ID != "" {
				images = append(images, img)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet catalog", "rows", len(images), "row_groups", len(pf.RowGroups()))

	return images, nil
}
