package agreement

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when there is nothing to compare
var ErrInsufficientData = errors.New("insufficient data")

// CohenKappa computes Cohen's kappa for two raters' binary label vectors.
//
// kappa = (po - pe) / (1 - pe), where po is the observed agreement and pe the
// agreement expected by chance from each rater's marginal rates. When both
// raters used a single identical label throughout, pe is 1 and the result is
// defined as 1 (perfect agreement).
func CohenKappa(a, b []int) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("label vectors differ in length: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrInsufficientData
	}

	n := float64(len(a))
	var agree, aPos, bPos float64
	for i := range a {
		if (a[i] != 0 && a[i] != 1) || (b[i] != 0 && b[i] != 1) {
			return 0, fmt.Errorf("labels must be 0 or 1, got %d and %d at %d", a[i], b[i], i)
		}
		if a[i] == b[i] {
			agree++
		}
		aPos += float64(a[i])
		bPos += float64(b[i])
	}

	po := agree / n
	pa, pb := aPos/n, bPos/n
	pe := pa*pb + (1-pa)*(1-pb)

	if pe == 1 {
		// only reachable when both raters gave the same constant label
		return 1, nil
	}
	return (po - pe) / (1 - pe), nil
}
