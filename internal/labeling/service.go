package labeling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/woundlabel/internal/agreement"
	"github.com/lehigh-university-libraries/woundlabel/internal/catalog"
	"github.com/lehigh-university-libraries/woundlabel/internal/export"
	"github.com/lehigh-university-libraries/woundlabel/internal/labels"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

var (
	// ErrCatalogExhausted is returned once a session has labeled every image
	ErrCatalogExhausted = errors.New("all images have been labeled")
	// ErrInvalidSubmission is returned for a submission that cannot become a label record
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrStaleImage is returned when a submission names an image other than the current one
	ErrStaleImage = errors.New("submission is not for the current image")
)

// Submission is a rater's answer for the image under the cursor
type Submission struct {
	// ImageID is optional; when set it must match the current image
	ImageID  string   `json:"image_name"`
	Role     string   `json:"expert"`
	Altered  bool     `json:"altered"`
	Findings []string `json:"findings"`
}

// Progress describes where a session stands in the catalog
type Progress struct {
	Index int  `json:"index"`
	Total int  `json:"total"`
	Done  bool `json:"done"`
}

// Outcome is returned after a label has been recorded
type Outcome struct {
	Record   models.LabelRecord `json:"record"`
	Progress Progress           `json:"progress"`
	Summary  agreement.Summary  `json:"summary"`
	Lines    []string           `json:"lines"`
	Export   *export.Result     `json:"export,omitempty"`
	// ExportError is set when recomputing or pushing the tables failed; the
	// label itself is recorded either way
	ExportError string `json:"export_error,omitempty"`
}

// Service runs the labeling interaction for rater sessions
type Service struct {
	catalog  *catalog.Catalog
	store    labels.Store
	exporter *export.Exporter
}

// NewService wires the catalog, label store and exporter. A nil exporter
// disables pushing derived tables after each submission.
func NewService(c *catalog.Catalog, store labels.Store, exporter *export.Exporter) *Service {
	return &Service{
		catalog:  c,
		store:    store,
		exporter: exporter,
	}
}

// Progress reports the session cursor against the catalog length
func (s *Service) Progress(session *models.RaterSession) Progress {
	session.Lock()
	defer session.Unlock()
	return s.progress(session)
}

func (s *Service) progress(session *models.RaterSession) Progress {
	n := s.catalog.Len()
	return Progress{
		Index: session.Cursor.Index,
		Total: n,
		Done:  session.Cursor.Done(n),
	}
}

// Current returns the image under the session cursor
func (s *Service) Current(session *models.RaterSession) (models.Image, error) {
	session.Lock()
	defer session.Unlock()
	return s.current(session)
}

func (s *Service) current(session *models.RaterSession) (models.Image, error) {
	img, ok := s.catalog.At(session.Cursor.Index)
	if !ok {
		return models.Image{}, ErrCatalogExhausted
	}
	return img, nil
}

// Submit records the label for the current image, advances the cursor by
// one and recomputes the derived tables. A failed append leaves the cursor
// where it was; a failed export does not undo the append.
func (s *Service) Submit(ctx context.Context, session *models.RaterSession, sub Submission) (*Outcome, error) {
	record, progress, err := s.record(ctx, session, sub)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Record: record, Progress: progress}

	if s.exporter == nil {
		records, err := s.store.LoadAll(ctx)
		if err != nil {
			slog.Error("Failed to reload label records after append", "err", err)
			out.ExportError = err.Error()
		} else {
			out.Summary = export.Derive(records).Summary
		}
		out.Lines = out.Summary.Lines()
		return out, nil
	}

	res, err := s.exporter.Sync(ctx, s.store)
	if err != nil {
		slog.Error("Failed to export after append", "err", err)
		out.ExportError = err.Error()
		if records, err := s.store.LoadAll(ctx); err == nil {
			out.Summary = export.Derive(records).Summary
		}
		out.Lines = out.Summary.Lines()
		return out, nil
	}
	out.Summary = res.Derived.Summary
	out.Lines = out.Summary.Lines()
	out.Export = res
	if err := res.Err(); err != nil {
		out.ExportError = err.Error()
	}
	return out, nil
}

// record appends the label and moves the cursor while holding the session lock
func (s *Service) record(ctx context.Context, session *models.RaterSession, sub Submission) (models.LabelRecord, Progress, error) {
	session.Lock()
	defer session.Unlock()

	img, err := s.current(session)
	if err != nil {
		return models.LabelRecord{}, s.progress(session), err
	}
	if sub.ImageID != "" && sub.ImageID != img.ID {
		if _, err := s.catalog.Lookup(sub.ImageID); err != nil {
			return models.LabelRecord{}, s.progress(session), fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		return models.LabelRecord{}, s.progress(session), fmt.Errorf("%w: got %s, current is %s", ErrStaleImage, sub.ImageID, img.ID)
	}

	record, err := toRecord(img.ID, sub)
	if err != nil {
		return models.LabelRecord{}, s.progress(session), err
	}

	start := time.Now()
	if err := s.store.Append(ctx, record); err != nil {
		return models.LabelRecord{}, s.progress(session), fmt.Errorf("failed to record label: %w", err)
	}
	session.Cursor.Advance(s.catalog.Len())

	slog.Info("Label recorded",
		"session_id", session.ID,
		"image", record.ImageID,
		"expert", record.Role,
		"altered", record.Altered,
		"findings", len(record.Findings),
		"cursor", session.Cursor.Index,
		"duration", time.Since(start))

	return record, s.progress(session), nil
}

func toRecord(imageID string, sub Submission) (models.LabelRecord, error) {
	role, err := models.ParseRole(sub.Role)
	if err != nil {
		return models.LabelRecord{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}

	record := models.LabelRecord{
		ImageID: imageID,
		Role:    role,
		Altered: sub.Altered,
	}
	// findings are meaningless for an unaltered image and are dropped unparsed
	if sub.Altered {
		for _, name := range sub.Findings {
			f, err := models.ParseFinding(name)
			if err != nil {
				return models.LabelRecord{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
			}
			record.Findings = append(record.Findings, f)
		}
	}

	record, err = record.Normalize()
	if err != nil {
		return models.LabelRecord{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return record, nil
}

// Stats recomputes pivot, findings and agreement from every stored record
func (s *Service) Stats(ctx context.Context) (export.Derived, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return export.Derived{}, fmt.Errorf("failed to load label records: %w", err)
	}
	return export.Derive(records), nil
}

// Export pushes the derived tables once, outside of a submission
func (s *Service) Export(ctx context.Context) (*export.Result, error) {
	if s.exporter == nil {
		return nil, errors.New("export is not configured")
	}
	return s.exporter.Sync(ctx, s.store)
}
