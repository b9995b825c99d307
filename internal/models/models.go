package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnknownRole is returned when a rater role name cannot be parsed
	ErrUnknownRole = errors.New("unknown rater role")
	// ErrUnknownFinding is returned when a finding name cannot be parsed
	ErrUnknownFinding = errors.New("unknown finding")
)

// Image is one entry of the image catalog
type Image struct {
	ID      string `json:"id" csv:"file_name" parquet:"file_name"`
	BlobRef string `json:"blob_ref" csv:"drive_id" parquet:"drive_id"`
}

// RaterRole is the category of human labeler
type RaterRole string

const (
	Surgeon       RaterRole = "Surgeon"
	Dermatologist RaterRole = "Dermatologist"
	Nurse         RaterRole = "Nurse"
)

// Roles lists every rater role in column order
var Roles = []RaterRole{Surgeon, Dermatologist, Nurse}

// legacy names written by the first version of the labeling form
var legacyRoles = map[string]RaterRole{
	"cirujano":    Surgeon,
	"dermatólogo": Dermatologist,
	"dermatologo": Dermatologist,
	"enfermera":   Nurse,
}

// ParseRole parses a canonical or legacy rater role name
func ParseRole(s string) (RaterRole, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles {
		if strings.ToLower(string(r)) == key {
			return r, nil
		}
	}
	if r, ok := legacyRoles[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Index returns the column position of the role, or -1
func (r RaterRole) Index() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}

// Finding is a wound abnormality selectable for altered images
type Finding string

const (
	DehiscentEdges      Finding = "dehiscent_edges"
	MaceratedEdges      Finding = "macerated_edges"
	EdemaBeyondEdge     Finding = "edema_beyond_edge"
	PathologicalRedness Finding = "pathological_redness"
	BleedingHematoma    Finding = "bleeding_ecchymosis_hematoma"
	NecroticTissue      Finding = "necrotic_tissue"
	Suppuration         Finding = "suppuration"
	VesiclesBlisters    Finding = "vesicles_or_blisters"
	FistulousTracts     Finding = "fistulous_tracts"
	HypertrophicScar    Finding = "hypertrophic_scar"
)

// Findings lists every finding in column order
var Findings = []Finding{
	DehiscentEdges,
	MaceratedEdges,
	EdemaBeyondEdge,
	PathologicalRedness,
	BleedingHematoma,
	NecroticTissue,
	Suppuration,
	VesiclesBlisters,
	FistulousTracts,
	HypertrophicScar,
}

var findingLabels = map[Finding]string{
	DehiscentEdges:      "Dehiscent edges",
	MaceratedEdges:      "Macerated edges",
	EdemaBeyondEdge:     "Edema beyond the wound edge",
	PathologicalRedness: "Pathological redness",
	BleedingHematoma:    "Bleeding/Ecchymosis/Hematoma",
	NecroticTissue:      "Necrotic tissue",
	Suppuration:         "Suppuration",
	VesiclesBlisters:    "Vesicles or blisters",
	FistulousTracts:     "Fistulous tracts",
	HypertrophicScar:    "Hypertrophic scar",
}

var legacyFindings = map[string]Finding{
	"bordes dehiscentes":                    DehiscentEdges,
	"bordes macerados":                      MaceratedEdges,
	"edema más allá del borde de la herida": EdemaBeyondEdge,
	"enrojecimiento patológico":             PathologicalRedness,
	"sangrado/equimosis/hematoma":           BleedingHematoma,
	"tejido necrótico":                      NecroticTissue,
	"supuración":                            Suppuration,
	"vesículas o ampollas":                  VesiclesBlisters,
	"tractos fistulosos":                    FistulousTracts,
	"cicatriz hipertrófica":                 HypertrophicScar,
}

// Label returns the human readable name of the finding
func (f Finding) Label() string {
	if l, ok := findingLabels[f]; ok {
		return l
	}
	return string(f)
}

// Index returns the column position of the finding, or -1
func (f Finding) Index() int {
	for i, finding := range Findings {
		if finding == f {
			return i
		}
	}
	return -1
}

// ParseFinding accepts a slug, an English label or a legacy Spanish label
func ParseFinding(s string) (Finding, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, f := range Findings {
		if string(f) == key || strings.ToLower(findingLabels[f]) == key {
			return f, nil
		}
	}
	if f, ok := legacyFindings[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFinding, s)
}

// LabelRecord is one rater's label for one image
type LabelRecord struct {
	ImageID  string    `json:"image_name"`
	Role     RaterRole `json:"expert"`
	Altered  bool      `json:"altered"`
	Findings []Finding `json:"findings,omitempty"`
}

// Value returns the 0/1 label value stored for the record
func (r LabelRecord) Value() int {
	if r.Altered {
		return 1
	}
	return 0
}

// Normalize enforces that only altered records carry findings, drops
// duplicate findings and orders them by column position.
func (r LabelRecord) Normalize() (LabelRecord, error) {
	if strings.TrimSpace(r.ImageID) == "" {
		return r, errors.New("image_name is required")
	}
	if r.Role.Index() < 0 {
		return r, fmt.Errorf("%w: %q", ErrUnknownRole, r.Role)
	}
	if !r.Altered {
		r.Findings = nil
		return r, nil
	}

	seen := make(map[Finding]bool, len(r.Findings))
	for _, f := range r.Findings {
		if f.Index() < 0 {
			return r, fmt.Errorf("%w: %q", ErrUnknownFinding, f)
		}
		seen[f] = true
	}
	findings := make([]Finding, 0, len(seen))
	for _, f := range Findings {
		if seen[f] {
			findings = append(findings, f)
		}
	}
	if len(findings) == 0 {
		findings = nil
	}
	r.Findings = findings
	return r, nil
}

// SessionCursor points at the next catalog image a rater session will label
type SessionCursor struct {
	Index int `json:"index"`
}

// Done reports whether every catalog image has been served
func (c SessionCursor) Done(catalogLen int) bool {
	return c.Index >= catalogLen
}

// Advance moves the cursor forward by one, never past catalogLen
func (c *SessionCursor) Advance(catalogLen int) bool {
	if c.Index >= catalogLen {
		return false
	}
	c.Index++
	return true
}

// RaterSession is the per-login state threaded through every request
type RaterSession struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Cursor    SessionCursor `json:"cursor"`
	CreatedAt time.Time     `json:"created_at"`

	mu sync.Mutex
}

// Lock serializes interactions of a single session
func (s *RaterSession) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *RaterSession) Unlock() { s.mu.Unlock() }
