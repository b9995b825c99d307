package labels

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// SnapshotRecord is the parquet row layout of a raw label snapshot
type SnapshotRecord struct {
	Seq              int64    `parquet:"seq"`
	ImageName        string   `parquet:"image_name"`
	Expert           string   `parquet:"expert"`
	Label            int32    `parquet:"label"`
	AdditionalLabels []string `parquet:"additional_labels,list"`
}

// WriteParquet writes every record, in append order, as a parquet file
func WriteParquet(w io.Writer, records []models.LabelRecord) error {
	rows := make([]SnapshotRecord, 0, len(records))
	for i, rec := range records {
		findings := make([]string, 0, len(rec.Findings))
		for _, f := range rec.Findings {
			findings = append(findings, string(f))
		}
		rows = append(rows, SnapshotRecord{
			Seq:              int64(i + 1),
			ImageName:        rec.ImageID,
			Expert:           string(rec.Role),
			Label:            int32(rec.Value()),
			AdditionalLabels: findings,
		})
	}

	pw := parquet.NewGenericWriter[SnapshotRecord](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a snapshot written by WriteParquet
func ReadParquet(r io.ReaderAt, size int64) ([]models.LabelRecord, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[SnapshotRecord](pf)
	defer reader.Close()

	var records []models.LabelRecord
	buf := make([]SnapshotRecord, 128)
	for {
		n, err := reader.Read(buf)
		for _, sr := range buf[:n] {
			rec, convErr := snapshotToRecord(sr)
			if convErr != nil {
				return nil, convErr
			}
			records = append(records, rec)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

func snapshotToRecord(sr SnapshotRecord) (models.LabelRecord, error) {
	role, err := models.ParseRole(sr.Expert)
	if err != nil {
		return models.LabelRecord{}, err
	}
	rec := models.LabelRecord{
		ImageID: sr.ImageName,
		Role:    role,
		Altered: sr.Label == 1,
	}
	for _, name := range sr.AdditionalLabels {
		f, err := models.ParseFinding(name)
		if err != nil {
			return models.LabelRecord{}, err
		}
		rec.Findings = append(rec.Findings, f)
	}
	return rec.Normalize()
}
