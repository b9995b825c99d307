package aggregate

import (
	"sort"
	"strconv"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// FindingsTable counts, per image, how many altered records cite each finding.
// Every altered record counts, including repeated labels from the same rater.
// Images whose altered records cite no finding have no row.
type FindingsTable struct {
	Images []string                          `json:"images"`
	Counts map[string]map[models.Finding]int `json:"counts"`
}

// Findings builds the findings count table from records in append order
func Findings(records []models.LabelRecord) FindingsTable {
	t := FindingsTable{
		Counts: make(map[string]map[models.Finding]int),
	}
	for _, rec := range records {
		if !rec.Altered || len(rec.Findings) == 0 {
			continue
		}
		row, ok := t.Counts[rec.ImageID]
		if !ok {
			row = make(map[models.Finding]int)
			t.Counts[rec.ImageID] = row
			t.Images = append(t.Images, rec.ImageID)
		}
		for _, f := range rec.Findings {
			row[f]++
		}
	}
	sort.Strings(t.Images)
	return t
}

// Count returns the number of records citing finding f for image
func (t FindingsTable) Count(image string, f models.Finding) int {
	return t.Counts[image][f]
}

// Header returns the column names used for serialization
func (t FindingsTable) Header() []string {
	header := make([]string, 0, len(models.Findings)+1)
	header = append(header, "image_name")
	for _, f := range models.Findings {
		header = append(header, string(f))
	}
	return header
}

// Rows returns one string row per image with a count for every finding
func (t FindingsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Images))
	for _, img := range t.Images {
		row := make([]string, 0, len(models.Findings)+1)
		row = append(row, img)
		for _, f := range models.Findings {
			row = append(row, strconv.Itoa(t.Count(img, f)))
		}
		rows = append(rows, row)
	}
	return rows
}
