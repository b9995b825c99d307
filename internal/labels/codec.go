package labels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// row is the on-disk shape shared by the CSV and SQLite backends
type row struct {
	ImageName        string `csv:"image_name"`
	Expert           string `csv:"expert"`
	Label            int    `csv:"label"`
	AdditionalLabels string `csv:"additional_labels"`
}

func toRow(rec models.LabelRecord) (row, error) {
	findings, err := EncodeFindings(rec.Findings)
	if err != nil {
		return row{}, err
	}
	return row{
		ImageName:        rec.ImageID,
		Expert:           string(rec.Role),
		Label:            rec.Value(),
		AdditionalLabels: findings,
	}, nil
}

func fromRow(r row) (models.LabelRecord, error) {
	role, err := models.ParseRole(r.Expert)
	if err != nil {
		return models.LabelRecord{}, err
	}
	if r.Label != 0 && r.Label != 1 {
		return models.LabelRecord{}, fmt.Errorf("invalid label value %d", r.Label)
	}
	findings, err := DecodeFindings(r.AdditionalLabels)
	if err != nil {
		return models.LabelRecord{}, err
	}
	rec := models.LabelRecord{
		ImageID:  r.ImageName,
		Role:     role,
		Altered:  r.Label == 1,
		Findings: findings,
	}
	return rec.Normalize()
}

// EncodeFindings writes findings as a JSON array of slugs
func EncodeFindings(findings []models.Finding) (string, error) {
	if findings == nil {
		findings = []models.Finding{}
	}
	b, err := json.Marshal(findings)
	if err != nil {
		return "", fmt.Errorf("failed to encode findings: %w", err)
	}
	return string(b), nil
}

// DecodeFindings reads a list-encoded findings cell. Both the JSON encoding
// and the python list repr of older files (['Tejido necrótico']) are accepted.
func DecodeFindings(s string) ([]models.Finding, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var findings []models.Finding
	for _, part := range strings.Split(s, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name == "" {
			continue
		}
		f, err := models.ParseFinding(name)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, nil
}
