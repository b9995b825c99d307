// Package export serializes the derived tables and pushes them to the blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tealeg/xlsx/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/woundlabel/internal/aggregate"
	"github.com/lehigh-university-libraries/woundlabel/internal/agreement"
	"github.com/lehigh-university-libraries/woundlabel/internal/blob"
	"github.com/lehigh-university-libraries/woundlabel/internal/labels"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
	"github.com/lehigh-university-libraries/woundlabel/internal/report"
)

// Artifact names pushed to the destination
const (
	PivotName    = "classification_table.csv"
	FindingsName = "additional_labels_table.csv"
	WorkbookName = "classification_tables.xlsx"
	ReportName   = "agreement_summary.yaml"
	SnapshotName = "label_records.parquet"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Options configures what gets exported and where
type Options struct {
	Destination string
	Format      string
	IncludeRaw  bool
}

// Derived holds every table recomputed from the label store
type Derived struct {
	Records  int
	Pivot    aggregate.PivotTable
	Findings aggregate.FindingsTable
	Summary  agreement.Summary
}

// Derive recomputes pivot, findings and agreement from all records
func Derive(records []models.LabelRecord) Derived {
	pivot := aggregate.Pivot(records)
	return Derived{
		Records:  len(records),
		Pivot:    pivot,
		Findings: aggregate.Findings(records),
		Summary:  agreement.Compute(pivot),
	}
}

// Outcome is the push result of a single artifact
type Outcome struct {
	Name     string `json:"name"`
	RemoteID string `json:"remote_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of one export run
type Result struct {
	Derived  Derived   `json:"-"`
	Outcomes []Outcome `json:"outcomes"`
	// Stale is set when a newer snapshot was already pushed and nothing was sent
	Stale bool `json:"stale,omitempty"`
	err   error
}

// Err joins every artifact failure, or is nil when all pushes succeeded
func (r *Result) Err() error {
	return r.err
}

// Exporter pushes derived tables to a fixed destination. Runs are
// serialized, and a run never replaces a snapshot built from more records
// than its own.
type Exporter struct {
	store blob.Store
	opts  Options

	mu     sync.Mutex
	pushed int // record count of the last fully pushed snapshot
}

// New creates an exporter
func New(store blob.Store, opts Options) *Exporter {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	return &Exporter{store: store, opts: opts}
}

// Build serializes the derived tables into artifacts. Output depends only on
// the records, so an unchanged label store yields byte-identical artifacts.
func Build(records []models.LabelRecord, opts Options) (Derived, []blob.Artifact, error) {
	d := Derive(records)
	var artifacts []blob.Artifact

	switch opts.Format {
	case "", FormatCSV:
		pivot, err := EncodeCSV(d.Pivot.Header(), d.Pivot.Rows())
		if err != nil {
			return d, nil, err
		}
		findings, err := EncodeCSV(d.Findings.Header(), d.Findings.Rows())
		if err != nil {
			return d, nil, err
		}
		artifacts = append(artifacts,
			blob.Artifact{Name: PivotName, MIMEType: "text/csv", Data: pivot},
			blob.Artifact{Name: FindingsName, MIMEType: "text/csv", Data: findings},
		)
	case FormatXLSX:
		workbook, err := EncodeWorkbook(d)
		if err != nil {
			return d, nil, err
		}
		artifacts = append(artifacts, blob.Artifact{
			Name:     WorkbookName,
			MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:     workbook,
		})
	default:
		return d, nil, fmt.Errorf("unsupported export format: %s (supported: csv, xlsx)", opts.Format)
	}

	summary, err := report.Build(d.Records, d.Pivot, d.Findings, d.Summary).Marshal()
	if err != nil {
		return d, nil, err
	}
	artifacts = append(artifacts, blob.Artifact{Name: ReportName, MIMEType: "application/yaml", Data: summary})

	if opts.IncludeRaw {
		var buf bytes.Buffer
		if err := labels.WriteParquet(&buf, records); err != nil {
			return d, nil, err
		}
		artifacts = append(artifacts, blob.Artifact{Name: SnapshotName, MIMEType: "application/vnd.apache.parquet", Data: buf.Bytes()})
	}

	return d, artifacts, nil
}

// Sync reloads every record from store and pushes the derived tables. The
// reload happens after earlier runs have finished, so the last Sync to
// complete always pushes the newest state of the store.
func (e *Exporter) Sync(ctx context.Context, store labels.Store) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load label records: %w", err)
	}
	return e.run(ctx, records)
}

// Run derives the tables from records and pushes every artifact. Push
// failures are collected in the result; they are reported, not retried.
// Records are append-only, so a run with fewer records than the last pushed
// snapshot is stale and is skipped.
func (e *Exporter) Run(ctx context.Context, records []models.LabelRecord) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(ctx, records)
}

func (e *Exporter) run(ctx context.Context, records []models.LabelRecord) (*Result, error) {
	if len(records) < e.pushed {
		slog.Warn("Skipping stale export", "records", len(records), "pushed", e.pushed)
		return &Result{Derived: Derive(records), Stale: true}, nil
	}

	start := time.Now()
	d, artifacts, err := Build(records, e.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exports: %w", err)
	}

	res := &Result{Derived: d, Outcomes: make([]Outcome, len(artifacts))}
	errs := make([]error, len(artifacts))

	var g errgroup.Group
	for i, a := range artifacts {
		g.Go(func() error {
			res.Outcomes[i].Name = a.Name
			id, err := e.store.Store(ctx, a, e.opts.Destination)
			if err != nil {
				errs[i] = fmt.Errorf("failed to push %s: %w", a.Name, err)
				res.Outcomes[i].Error = errs[i].Error()
				return errs[i]
			}
			res.Outcomes[i].RemoteID = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.err = errors.Join(errs...)
		slog.Error("Export push failed", "destination", e.opts.Destination, "err", res.err)
		return res, nil
	}

	e.pushed = d.Records
	slog.Info("Export complete", "destination", e.opts.Destination, "artifacts", len(artifacts), "records", d.Records, "duration", time.Since(start))
	return res, nil
}

// EncodeCSV writes a header and rows as CSV
func EncodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeWorkbook writes the pivot and findings tables as two sheets
func EncodeWorkbook(d Derived) ([]byte, error) {
	file := xlsx.NewFile()
	if err := addSheet(file, "classification", d.Pivot.Header(), d.Pivot.Rows()); err != nil {
		return nil, err
	}
	if err := addSheet(file, "additional_labels", d.Findings.Header(), d.Findings.Rows()); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheet(file *xlsx.File, name string, header []string, rows [][]string) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row[0])
		for _, v := range row[1:] {
			cell := r.AddCell()
			if v == "" {
				continue
			}
			if n, err := strconv.Atoi(v); err == nil {
				cell.SetInt(n)
			} else {
				cell.SetString(v)
			}
		}
	}
	return nil
}
