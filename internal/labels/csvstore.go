package labels

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// CSVStore keeps label records in a flat CSV file with the columns
// image_name, expert, label, additional_labels.
//
// Appends from this process are serialized through mu and land as a single
// write on an O_APPEND descriptor, so a row is never interleaved with another.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore returns a store backed by the file at path. The file is created
// with a header on the first append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Append(ctx context.Context, rec models.LabelRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := rec.Normalize()
	if err != nil {
		return fmt.Errorf("invalid label record: %w", err)
	}
	r, err := toRow(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create label store directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open label store: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat label store: %w", err)
	}

	var buf bytes.Buffer
	// a hand-edited file may lack the final newline; the row must not join it
	if info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("failed to read label store: %w", err)
		}
		if last[0] != '\n' {
			buf.WriteByte('\n')
		}
	}
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = info.Size() == 0
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode label record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode label record: %w", err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append label record: %w", err)
	}

	slog.Debug("Label record appended", "image", rec.ImageID, "role", rec.Role, "altered", rec.Altered)
	return nil
}

// LoadAll returns all records in file order. An absent, empty or unreadable
// file yields no records; individual malformed rows are skipped.
func (s *CSVStore) LoadAll(ctx context.Context) ([]models.LabelRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open label store: %w", err)
	}
	defer file.Close()

	return decodeRecords(file, s.path), nil
}

func decodeRecords(r io.Reader, source string) []models.LabelRecord {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			slog.Warn("Label store is unreadable, treating as empty", "path", source, "err", err)
		}
		return nil
	}

	var records []models.LabelRecord
	line := 1
	for {
		line++
		var rw row
		if err := dec.Decode(&rw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("Label store is malformed, ignoring remaining rows", "path", source, "line", line, "err", err)
				break
			}
			slog.Warn("Skipping malformed label row", "path", source, "line", line, "err", err)
			continue
		}

		rec, err := fromRow(rw)
		if err != nil {
			slog.Warn("Skipping invalid label row", "path", source, "line", line, "err", err)
			continue
		}
		records = append(records, rec)
	}

	return records
}

func (s *CSVStore) Close() error {
	return nil
}
