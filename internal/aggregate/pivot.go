// Package aggregate derives the wide tables used for agreement and export
// from the full, append-ordered sequence of label records.
package aggregate

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// Cell is one pivot value; Set is false when the rater has no record for the image
type Cell struct {
	Value int  `json:"value"`
	Set   bool `json:"set"`
}

// PivotTable maps image × rater role to the role's label for that image.
//
// Policy: the first record per (image, role) wins. Later records for the same
// key, e.g. a rater correcting a label, do not change the cell and are only
// counted in Ignored.
type PivotTable struct {
	Images  []string                             `json:"images"`
	Roles   []models.RaterRole                   `json:"roles"`
	Cells   map[string]map[models.RaterRole]Cell `json:"-"`
	Ignored int                                  `json:"ignored"`
}

// Pivot builds the image × role table from records in append order
func Pivot(records []models.LabelRecord) PivotTable {
	t := PivotTable{
		Cells: make(map[string]map[models.RaterRole]Cell),
	}
	present := make(map[models.RaterRole]bool)

	for _, rec := range records {
		row, ok := t.Cells[rec.ImageID]
		if !ok {
			row = make(map[models.RaterRole]Cell)
			t.Cells[rec.ImageID] = row
			t.Images = append(t.Images, rec.ImageID)
		}
		if _, exists := row[rec.Role]; exists {
			t.Ignored++
			slog.Debug("Ignoring repeated label, first record wins", "image", rec.ImageID, "role", rec.Role)
			continue
		}
		row[rec.Role] = Cell{Value: rec.Value(), Set: true}
		present[rec.Role] = true
	}

	sort.Strings(t.Images)
	for _, role := range models.Roles {
		if present[role] {
			t.Roles = append(t.Roles, role)
		}
	}

	return t
}

// Get returns the cell for an image and role
func (t PivotTable) Get(image string, role models.RaterRole) Cell {
	return t.Cells[image][role]
}

// CompleteImages returns the images where every present role has a cell
func (t PivotTable) CompleteImages() []string {
	var complete []string
	for _, img := range t.Images {
		ok := true
		for _, role := range t.Roles {
			if !t.Get(img, role).Set {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, img)
		}
	}
	return complete
}

// Header returns the column names used for serialization
func (t PivotTable) Header() []string {
	header := make([]string, 0, len(t.Roles)+1)
	header = append(header, "image_name")
	for _, role := range t.Roles {
		header = append(header, string(role))
	}
	return header
}

// Rows returns one string row per image; unset cells are empty
func (t PivotTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Images))
	for _, img := range t.Images {
		row := make([]string, 0, len(t.Roles)+1)
		row = append(row, img)
		for _, role := range t.Roles {
			cell := t.Get(img, role)
			if cell.Set {
				row = append(row, strconv.Itoa(cell.Value))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}
