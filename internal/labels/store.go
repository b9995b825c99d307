// Package labels persists rater label records in append order.
//
// The store never overwrites or deduplicates: a rater labeling the same image
// twice produces two records, and LoadAll returns both in the order they were
// appended. Deduplication is the job of the aggregation step.
package labels

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// Store is an append-only record of label records
type Store interface {
	// Append durably adds one record. Storage errors are returned, never retried.
	Append(ctx context.Context, rec models.LabelRecord) error
	// LoadAll returns every record ever appended, in append order.
	LoadAll(ctx context.Context) ([]models.LabelRecord, error)
	Close() error
}

// Open returns the store backend named by driver
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case "", "csv":
		return NewCSVStore(path), nil
	case "sqlite":
		st, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported label store driver: %s (supported: csv, sqlite)", driver)
	}
}
