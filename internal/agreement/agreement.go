// Package agreement computes pairwise chance-corrected agreement between
// rater roles over the pivot table.
package agreement

import (
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/woundlabel/internal/aggregate"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

const insufficientMessage = "Not enough data to compute the agreement index."

// PairResult is the agreement between two roles
type PairResult struct {
	A              models.RaterRole `json:"a" yaml:"a"`
	B              models.RaterRole `json:"b" yaml:"b"`
	Kappa          float64          `json:"kappa" yaml:"kappa"`
	Sufficient     bool             `json:"sufficient" yaml:"sufficient"`
	ImagesCompared int              `json:"images_compared" yaml:"images_compared"`
}

// Summary is the agreement state derived from one pivot table
type Summary struct {
	Roles          []models.RaterRole `json:"roles" yaml:"roles"`
	CompleteImages int                `json:"complete_images" yaml:"complete_images"`
	Pairs          []PairResult       `json:"pairs" yaml:"pairs"`

	// Mean is set only when all three roles are present
	HasMean        bool    `json:"has_mean" yaml:"has_mean"`
	MeanKappa      float64 `json:"mean_kappa" yaml:"mean_kappa"`
	MeanSufficient bool    `json:"mean_sufficient" yaml:"mean_sufficient"`
}

// Sufficient reports whether at least one pairwise coefficient was computed
func (s Summary) Sufficient() bool {
	for _, p := range s.Pairs {
		if p.Sufficient {
			return true
		}
	}
	return false
}

// Compute derives pairwise agreement from the pivot table.
//
// Only images where every present role has labeled the image are used, for
// every pair. With three roles present an image missing the Nurse label is
// therefore excluded from the Surgeon/Dermatologist coefficient as well.
func Compute(p aggregate.PivotTable) Summary {
	s := Summary{Roles: p.Roles}
	complete := p.CompleteImages()
	s.CompleteImages = len(complete)

	vectors := make(map[models.RaterRole][]int, len(p.Roles))
	for _, role := range p.Roles {
		v := make([]int, 0, len(complete))
		for _, img := range complete {
			v = append(v, p.Get(img, role).Value)
		}
		vectors[role] = v
	}

	for i := 0; i < len(p.Roles); i++ {
		for j := i + 1; j < len(p.Roles); j++ {
			pair := PairResult{A: p.Roles[i], B: p.Roles[j], ImagesCompared: len(complete)}
			if k, err := CohenKappa(vectors[pair.A], vectors[pair.B]); err == nil {
				pair.Kappa = k
				pair.Sufficient = true
			}
			s.Pairs = append(s.Pairs, pair)
		}
	}

	if len(p.Roles) == len(models.Roles) {
		s.HasMean = true
		var sum float64
		for _, pair := range s.Pairs {
			if !pair.Sufficient {
				return s
			}
			sum += pair.Kappa
		}
		s.MeanKappa = sum / float64(len(s.Pairs))
		s.MeanSufficient = true
	}

	return s
}

// Lines renders the summary as human readable status lines
func (s Summary) Lines() []string {
	if len(s.Pairs) == 0 {
		return []string{insufficientMessage}
	}

	var lines []string
	for _, p := range s.Pairs {
		if !p.Sufficient {
			lines = append(lines, fmt.Sprintf("Cohen's Kappa between %s and %s: insufficient data", p.A, p.B))
			continue
		}
		lines = append(lines, fmt.Sprintf("Cohen's Kappa between %s and %s: %.2f", p.A, p.B, p.Kappa))
	}
	if s.HasMean {
		if s.MeanSufficient {
			lines = append(lines, fmt.Sprintf("Average agreement index (Cohen's Kappa): %.2f", s.MeanKappa))
		} else {
			lines = append(lines, "Average agreement index (Cohen's Kappa): insufficient data")
		}
	}
	if !s.Sufficient() {
		lines = append(lines, insufficientMessage)
	}
	return lines
}

// PrintSummary writes a human readable summary
func (s Summary) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "INTER-RATER AGREEMENT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Roles present: %d\n", len(s.Roles))
	fmt.Fprintf(w, "Images labeled by every present role: %d\n", s.CompleteImages)
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, line := range s.Lines() {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}
