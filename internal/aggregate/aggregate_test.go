package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// two images, Surgeon and Dermatologist, as described by the labeling protocol walkthrough
func scenarioRecords() []models.LabelRecord {
	return []models.LabelRecord{
		{ImageID: "A", Role: models.Surgeon, Altered: true, Findings: []models.Finding{models.NecroticTissue}},
		{ImageID: "B", Role: models.Surgeon},
		{ImageID: "A", Role: models.Dermatologist, Altered: true, Findings: []models.Finding{models.NecroticTissue}},
		{ImageID: "B", Role: models.Dermatologist, Altered: true, Findings: []models.Finding{models.EdemaBeyondEdge}},
	}
}

func TestPivotScenario(t *testing.T) {
	p := Pivot(scenarioRecords())

	assert.Equal(t, []string{"A", "B"}, p.Images)
	assert.Equal(t, []models.RaterRole{models.Surgeon, models.Dermatologist}, p.Roles)

	assert.Equal(t, Cell{Value: 1, Set: true}, p.Get("A", models.Surgeon))
	assert.Equal(t, Cell{Value: 1, Set: true}, p.Get("A", models.Dermatologist))
	assert.Equal(t, Cell{Value: 0, Set: true}, p.Get("B", models.Surgeon))
	assert.Equal(t, Cell{Value: 1, Set: true}, p.Get("B", models.Dermatologist))
	assert.False(t, p.Get("A", models.Nurse).Set)

	assert.Equal(t, []string{"A", "B"}, p.CompleteImages())
	assert.Equal(t, 0, p.Ignored)
}

func TestPivotFirstRecordWins(t *testing.T) {
	records := []models.LabelRecord{
		{ImageID: "A", Role: models.Nurse},
		{ImageID: "A", Role: models.Nurse, Altered: true},
		{ImageID: "A", Role: models.Nurse, Altered: true},
	}
	p := Pivot(records)
	assert.Equal(t, Cell{Value: 0, Set: true}, p.Get("A", models.Nurse))
	assert.Equal(t, 2, p.Ignored)

	// reversing the order flips the winner
	p = Pivot([]models.LabelRecord{records[1], records[0]})
	assert.Equal(t, Cell{Value: 1, Set: true}, p.Get("A", models.Nurse))
}

func TestPivotRowsAndHeader(t *testing.T) {
	records := []models.LabelRecord{
		{ImageID: "B", Role: models.Nurse, Altered: true},
		{ImageID: "A", Role: models.Surgeon},
	}
	p := Pivot(records)

	assert.Equal(t, []string{"image_name", "Surgeon", "Nurse"}, p.Header())
	assert.Equal(t, [][]string{
		{"A", "0", ""},
		{"B", "", "1"},
	}, p.Rows())
	assert.Empty(t, p.CompleteImages())
}

func TestPivotEmpty(t *testing.T) {
	p := Pivot(nil)
	assert.Empty(t, p.Images)
	assert.Empty(t, p.Roles)
	assert.Equal(t, []string{"image_name"}, p.Header())
	assert.Empty(t, p.Rows())
}

func TestFindingsScenario(t *testing.T) {
	f := Findings(scenarioRecords())

	assert.Equal(t, []string{"A", "B"}, f.Images)
	assert.Equal(t, 2, f.Count("A", models.NecroticTissue))
	assert.Equal(t, 1, f.Count("B", models.EdemaBeyondEdge))
	assert.Equal(t, 0, f.Count("B", models.NecroticTissue))

	header := f.Header()
	require.Len(t, header, 11)
	assert.Equal(t, "image_name", header[0])
	assert.Equal(t, "necrotic_tissue", header[6])

	rows := f.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A", "0", "0", "0", "0", "0", "2", "0", "0", "0", "0"}, rows[0])
	assert.Equal(t, []string{"B", "0", "0", "1", "0", "0", "0", "0", "0", "0", "0"}, rows[1])
}

func TestFindingsSkipsRecordsWithoutFindings(t *testing.T) {
	f := Findings([]models.LabelRecord{
		{ImageID: "A", Role: models.Surgeon},
		{ImageID: "B", Role: models.Surgeon, Altered: true},
		{ImageID: "C", Role: models.Nurse, Altered: true},
		{ImageID: "C", Role: models.Surgeon, Altered: true, Findings: []models.Finding{models.HypertrophicScar}},
	})
	assert.Equal(t, []string{"C"}, f.Images)
	assert.Equal(t, [][]string{{"C", "0", "0", "0", "0", "0", "0", "0", "0", "0", "1"}}, f.Rows())
}

func TestFindingsCountsRepeatedRecords(t *testing.T) {
	f := Findings([]models.LabelRecord{
		{ImageID: "A", Role: models.Surgeon, Altered: true, Findings: []models.Finding{models.Suppuration}},
		{ImageID: "A", Role: models.Surgeon, Altered: true, Findings: []models.Finding{models.Suppuration}},
	})
	assert.Equal(t, 2, f.Count("A", models.Suppuration))
}
