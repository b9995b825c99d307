package labels

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// SQLiteStore keeps label records in a SQLite table. Each append runs in its
// own transaction, so concurrent raters sharing the database file are
// serialized by SQLite's write lock.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given path in WAL mode
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS label_records (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	image_name        TEXT NOT NULL,
	expert            TEXT NOT NULL,
	label             INTEGER NOT NULL CHECK (label IN (0, 1)),
	additional_labels TEXT NOT NULL DEFAULT '[]',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_label_records_image ON label_records(image_name);
`

// Migrate creates the label table if needed
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec models.LabelRecord) error {
	rec, err := rec.Normalize()
	if err != nil {
		return fmt.Errorf("invalid label record: %w", err)
	}
	r, err := toRow(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO label_records (image_name, expert, label, additional_labels) VALUES (?, ?, ?, ?)`,
		r.ImageName, r.Expert, r.Label, r.AdditionalLabels,
	); err != nil {
		return fmt.Errorf("failed to insert label record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit label record: %w", err)
	}

	slog.Debug("Label record appended", "image", rec.ImageID, "role", rec.Role, "altered", rec.Altered)
	return nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]models.LabelRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_name, expert, label, additional_labels FROM label_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query label records: %w", err)
	}
	defer rows.Close()

	var records []models.LabelRecord
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.ImageName, &r.Expert, &r.Label, &r.AdditionalLabels); err != nil {
			return nil, fmt.Errorf("failed to scan label record: %w", err)
		}
		rec, err := fromRow(r)
		if err != nil {
			slog.Warn("Skipping invalid label row", "image", r.ImageName, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label records: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
