package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected RaterRole
		wantErr  bool
	}{
		{name: "canonical", input: "Surgeon", expected: Surgeon},
		{name: "case insensitive", input: " dermatologist ", expected: Dermatologist},
		{name: "legacy surgeon", input: "Cirujano", expected: Surgeon},
		{name: "legacy dermatologist", input: "Dermatólogo", expected: Dermatologist},
		{name: "legacy nurse", input: "Enfermera", expected: Nurse},
		{name: "unknown", input: "Radiologist", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestParseFinding(t *testing.T) {
	f, err := ParseFinding("necrotic_tissue")
	require.NoError(t, err)
	assert.Equal(t, NecroticTissue, f)

	f, err = ParseFinding("Tejido necrótico")
	require.NoError(t, err)
	assert.Equal(t, NecroticTissue, f)

	f, err = ParseFinding("Edema beyond the wound edge")
	require.NoError(t, err)
	assert.Equal(t, EdemaBeyondEdge, f)

	_, err = ParseFinding("sunburn")
	assert.ErrorIs(t, err, ErrUnknownFinding)
}

func TestFindingsAreTen(t *testing.T) {
	assert.Len(t, Findings, 10)
	for i, f := range Findings {
		assert.Equal(t, i, f.Index())
		assert.NotEqual(t, string(f), f.Label())
	}
}

func TestNormalize(t *testing.T) {
	t.Run("not altered drops findings", func(t *testing.T) {
		rec, err := LabelRecord{ImageID: "a.jpg", Role: Nurse, Findings: []Finding{NecroticTissue}}.Normalize()
		require.NoError(t, err)
		assert.Empty(t, rec.Findings)
	})

	t.Run("altered orders and dedupes findings", func(t *testing.T) {
		rec, err := LabelRecord{
			ImageID:  "a.jpg",
			Role:     Surgeon,
			Altered:  true,
			Findings: []Finding{Suppuration, DehiscentEdges, Suppuration},
		}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, []Finding{DehiscentEdges, Suppuration}, rec.Findings)
	})

	t.Run("unknown finding rejected", func(t *testing.T) {
		_, err := LabelRecord{ImageID: "a.jpg", Role: Surgeon, Altered: true, Findings: []Finding{"rash"}}.Normalize()
		assert.ErrorIs(t, err, ErrUnknownFinding)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := LabelRecord{ImageID: "a.jpg", Role: "Porter"}.Normalize()
		assert.ErrorIs(t, err, ErrUnknownRole)
	})

	t.Run("missing image rejected", func(t *testing.T) {
		_, err := LabelRecord{Role: Surgeon}.Normalize()
		assert.Error(t, err)
	})
}

func TestSessionCursorAdvance(t *testing.T) {
	var c SessionCursor
	const catalogLen = 2

	assert.True(t, c.Advance(catalogLen))
	assert.Equal(t, 1, c.Index)
	assert.True(t, c.Advance(catalogLen))
	assert.Equal(t, 2, c.Index)
	assert.True(t, c.Done(catalogLen))

	assert.False(t, c.Advance(catalogLen))
	assert.Equal(t, 2, c.Index)
}
