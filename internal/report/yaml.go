package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/woundlabel/internal/aggregate"
	"github.com/lehigh-university-libraries/woundlabel/internal/agreement"
)

// Tables describes the size of the derived tables
type Tables struct {
	Records            int `yaml:"records"`
	Images             int `yaml:"images"`
	CompleteImages     int `yaml:"completeimages"`
	IgnoredRepeats     int `yaml:"ignoredrepeats"`
	ImagesWithFindings int `yaml:"imageswithfindings"`
}

// Pair is one pairwise agreement entry
type Pair struct {
	Raters []string `yaml:"raters"`
	Kappa  *float64 `yaml:"kappa"`
	Status string   `yaml:"status"`
}

// AgreementReport is the YAML document exported next to the tables
type AgreementReport struct {
	Tables    Tables   `yaml:"tables"`
	Roles     []string `yaml:"roles"`
	Pairs     []Pair   `yaml:"pairs"`
	MeanKappa *float64 `yaml:"meankappa,omitempty"`
	Status    string   `yaml:"status"`
}

const (
	statusOK           = "ok"
	statusInsufficient = "insufficient data"
)

// Build assembles the report; it carries no timestamps so an unchanged label
// store always renders the same bytes.
func Build(records int, pivot aggregate.PivotTable, findings aggregate.FindingsTable, s agreement.Summary) AgreementReport {
	r := AgreementReport{
		Tables: Tables{
			Records:            records,
			Images:             len(pivot.Images),
			CompleteImages:     s.CompleteImages,
			IgnoredRepeats:     pivot.Ignored,
			ImagesWithFindings: len(findings.Images),
		},
		Roles:  make([]string, 0, len(s.Roles)),
		Pairs:  make([]Pair, 0, len(s.Pairs)),
		Status: statusInsufficient,
	}
	for _, role := range s.Roles {
		r.Roles = append(r.Roles, string(role))
	}
	for _, p := range s.Pairs {
		entry := Pair{Raters: []string{string(p.A), string(p.B)}, Status: statusInsufficient}
		if p.Sufficient {
			k := p.Kappa
			entry.Kappa = &k
			entry.Status = statusOK
		}
		r.Pairs = append(r.Pairs, entry)
	}
	if s.HasMean && s.MeanSufficient {
		m := s.MeanKappa
		r.MeanKappa = &m
	}
	if s.Sufficient() {
		r.Status = statusOK
	}
	return r
}

// Marshal renders the report as YAML
func (r AgreementReport) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

// Save writes the report to path
func (r AgreementReport) Save(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
